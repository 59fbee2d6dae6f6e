package domain

import "time"

// PodcastStatus is the lifecycle state of a matched podcast group.
// The chain is strictly forward; there is no way back to an earlier state.
type PodcastStatus string

const (
	StatusNotScheduled PodcastStatus = "NOTSCHEDULED"
	StatusReqScheduled PodcastStatus = "REQSCHEDULED"
	StatusScheduled    PodcastStatus = "SCHEDULED"
	StatusPlaying      PodcastStatus = "PLAYING"
	StatusFinished     PodcastStatus = "FINISHED"
)

var statusRank = map[PodcastStatus]int{
	StatusNotScheduled: 0,
	StatusReqScheduled: 1,
	StatusScheduled:    2,
	StatusPlaying:      3,
	StatusFinished:     4,
}

// CanTransition reports whether moving from s to the target keeps the
// state machine strictly forward.
func (s PodcastStatus) CanTransition(to PodcastStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	target, ok := statusRank[to]
	if !ok {
		return false
	}
	return target > from
}

// Terminal reports whether the group is closed and no longer counts
// against the primary user's open-group limit.
func (s PodcastStatus) Terminal() bool {
	return s == StatusFinished
}

// Participant is one matched member of a podcast group together with the
// score that put them there and the client-facing consent flags.
type Participant struct {
	UserID           int     `json:"user_id"`
	Score            float64 `json:"score"`
	IsAllow          bool    `json:"is_allow"`
	IsRequest        bool    `json:"is_request"`
	IsQuestionAnswer bool    `json:"is_question_answer"`
}

type Schedule struct {
	Date string `json:"date"`
	Day  string `json:"day"`
	Time string `json:"time"`
}

func (s Schedule) IsSet() bool {
	return s.Date != "" && s.Day != "" && s.Time != ""
}

func (s Schedule) Equal(o Schedule) bool {
	return s.Date == o.Date && s.Day == o.Day && s.Time == o.Time
}

type PodcastGroup struct {
	ID            int           `json:"id"`
	PrimaryUserID int           `json:"primary_user_id"`
	Participants  []Participant `json:"participants"`
	Schedule      Schedule      `json:"schedule"`
	Status        PodcastStatus `json:"status"`
	RecordingURL  *string       `json:"recording_url"`
	RoomCode      string        `json:"room_code"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (g *PodcastGroup) HasParticipant(userID int) bool {
	for _, p := range g.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// ValidateParticipants enforces the group invariants: the list length must
// equal the tier-derived capacity, the primary user never appears, and no
// user id repeats.
func ValidateParticipants(primaryUserID int, participants []Participant, capacity int) error {
	if len(participants) != capacity {
		return ErrCapacityMismatch
	}
	seen := make(map[int]struct{}, len(participants))
	for _, p := range participants {
		if p.UserID == primaryUserID {
			return ErrSelfMatch
		}
		if _, dup := seen[p.UserID]; dup {
			return ErrDuplicateParticipant
		}
		seen[p.UserID] = struct{}{}
	}
	return nil
}
