package domain

import "errors"

var (
	// Not-found / lookup failures.
	ErrUserNotFound  = errors.New("user not found")
	ErrGroupNotFound = errors.New("podcast group not found")

	// Auth.
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Business-rule outcomes. Callers branch on these; they are never
	// conflated with transient infrastructure errors.
	ErrOpenGroupExists        = errors.New("user already has an open podcast group")
	ErrInsufficientCandidates = errors.New("not enough candidates to fill the group")
	ErrCapacityMismatch       = errors.New("participant count does not match subscription capacity")
	ErrScheduleMismatch       = errors.New("schedule does not match stored schedule")
	ErrInvalidTransition      = errors.New("invalid podcast status transition")
	ErrNotGroupPrimary        = errors.New("only the group's primary user may do this")

	// Contract violations caught defensively.
	ErrDuplicateParticipant = errors.New("duplicate participant in group")
	ErrSelfMatch            = errors.New("primary user cannot be a participant")

	// Validation.
	ErrInvalidInput     = errors.New("invalid input")
	ErrEmptyProfileText = errors.New("profile has no text to embed")
)
