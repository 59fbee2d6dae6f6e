package domain

import (
	"errors"
	"testing"
)

func TestStatusCanTransition(t *testing.T) {
	t.Parallel()

	chain := []PodcastStatus{
		StatusNotScheduled,
		StatusReqScheduled,
		StatusScheduled,
		StatusPlaying,
		StatusFinished,
	}

	for i, from := range chain {
		for j, to := range chain {
			from, to := from, to
			wantOK := j > i
			t.Run(string(from)+"_to_"+string(to), func(t *testing.T) {
				t.Parallel()
				if got := from.CanTransition(to); got != wantOK {
					t.Errorf("CanTransition(%s -> %s) = %v, want %v", from, to, got, wantOK)
				}
			})
		}
	}
}

func TestStatusCanTransitionSkipsStates(t *testing.T) {
	t.Parallel()

	// Skipping intermediate states forward is legal.
	if !StatusNotScheduled.CanTransition(StatusScheduled) {
		t.Error("NOTSCHEDULED should reach SCHEDULED directly")
	}
	if !StatusScheduled.CanTransition(StatusFinished) {
		t.Error("SCHEDULED should reach FINISHED directly")
	}
	if StatusFinished.CanTransition(StatusPlaying) {
		t.Error("FINISHED must not move backwards")
	}
	if PodcastStatus("BOGUS").CanTransition(StatusFinished) {
		t.Error("unknown status must not transition")
	}
	if StatusPlaying.CanTransition(PodcastStatus("BOGUS")) {
		t.Error("transition to unknown status must fail")
	}
}

func TestScheduleIsSetAndEqual(t *testing.T) {
	t.Parallel()

	full := Schedule{Date: "2026-09-01", Day: "Tuesday", Time: "19:00"}
	if !full.IsSet() {
		t.Error("full schedule should be set")
	}
	if (Schedule{Date: "2026-09-01"}).IsSet() {
		t.Error("partial schedule should not be set")
	}
	if !full.Equal(Schedule{Date: "2026-09-01", Day: "Tuesday", Time: "19:00"}) {
		t.Error("identical schedules should be equal")
	}
	if full.Equal(Schedule{Date: "2026-09-01", Day: "Tuesday", Time: "20:00"}) {
		t.Error("schedules differing in time should not be equal")
	}
}

func TestValidateParticipants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		primary      int
		participants []Participant
		capacity     int
		wantErr      error
	}{
		{
			name:         "exact capacity passes",
			primary:      1,
			participants: []Participant{{UserID: 2}, {UserID: 3}},
			capacity:     2,
			wantErr:      nil,
		},
		{
			name:         "too few participants",
			primary:      1,
			participants: []Participant{{UserID: 2}},
			capacity:     2,
			wantErr:      ErrCapacityMismatch,
		},
		{
			name:         "too many participants",
			primary:      1,
			participants: []Participant{{UserID: 2}, {UserID: 3}, {UserID: 4}},
			capacity:     2,
			wantErr:      ErrCapacityMismatch,
		},
		{
			name:         "primary user in list",
			primary:      1,
			participants: []Participant{{UserID: 2}, {UserID: 1}},
			capacity:     2,
			wantErr:      ErrSelfMatch,
		},
		{
			name:         "duplicate participant",
			primary:      1,
			participants: []Participant{{UserID: 2}, {UserID: 2}},
			capacity:     2,
			wantErr:      ErrDuplicateParticipant,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateParticipants(tt.primary, tt.participants, tt.capacity)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateParticipants() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
