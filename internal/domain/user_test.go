package domain

import (
	"testing"
	"time"
)

func dob(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestUserAge(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		dob  *time.Time
		want int
	}{
		{name: "nil date of birth", dob: nil, want: 0},
		{name: "birthday earlier this year", dob: dob(1996, time.March, 1), want: 30},
		{name: "birthday today", dob: dob(2000, time.June, 15), want: 26},
		{name: "birthday tomorrow", dob: dob(2000, time.June, 16), want: 25},
		{name: "exactly one year old", dob: dob(2025, time.June, 15), want: 1},
		{name: "one day short of a year", dob: dob(2025, time.June, 16), want: 0},
		{name: "future date clamps to zero", dob: dob(2030, time.January, 1), want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			u := &User{DateOfBirth: tt.dob}
			if got := u.Age(now); got != tt.want {
				t.Errorf("Age() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPlanCapacity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		plan           Plan
		wantCapacity   int
		wantSpotlights int
	}{
		{PlanStarter, 2, 1},
		{PlanSeeker, 3, 2},
		{PlanElite, 4, 3},
		{Plan("UNKNOWN"), 2, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.plan), func(t *testing.T) {
			t.Parallel()
			if got := tt.plan.Capacity(); got != tt.wantCapacity {
				t.Errorf("Capacity() = %d, want %d", got, tt.wantCapacity)
			}
			if got := tt.plan.Spotlights(); got != tt.wantSpotlights {
				t.Errorf("Spotlights() = %d, want %d", got, tt.wantSpotlights)
			}
		})
	}
}

func TestProfileComplete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		user User
		want bool
	}{
		{name: "empty profile", user: User{}, want: false},
		{name: "bio only", user: User{Bio: "hi"}, want: true},
		{name: "interests only", user: User{Interests: []string{"art"}}, want: true},
		{name: "answers only", user: User{CompatibilityAnswers: []string{"a"}}, want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.user.ProfileComplete(); got != tt.want {
				t.Errorf("ProfileComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}
