// Package repository declares the persistence contracts the use cases
// depend on. Implementations live in the postgres subpackage.
package repository

import (
	"context"

	"github.com/podlove/podlove-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id int) error

	// ListComplete returns users whose profiles are complete enough to be
	// embedded, for batch index rebuilds.
	ListComplete(ctx context.Context) ([]*domain.User, error)

	CompatibilityAnswers(ctx context.Context, userID int) ([]string, error)
	UpdateSubscription(ctx context.Context, userID int, sub domain.Subscription) error
	SetPodcastActive(ctx context.Context, userID int, active bool) error
}

type PodcastRepository interface {
	Create(ctx context.Context, group *domain.PodcastGroup) error
	GetByID(ctx context.Context, id int) (*domain.PodcastGroup, error)
	GetOpenByPrimaryUser(ctx context.Context, userID int) (*domain.PodcastGroup, error)
	HasOpenGroup(ctx context.Context, userID int) (bool, error)
	GetUserGroups(ctx context.Context, userID int, limit, offset int) ([]*domain.PodcastGroup, error)

	// MarkRequested flips every participant's request flag and moves the
	// group from NotScheduled to ReqScheduled as one statement pair; the
	// caller wraps it in a transaction.
	MarkRequested(ctx context.Context, id int) error

	// SetSchedule attaches the schedule and advances to Scheduled, guarded
	// by an exact match on the previously stored schedule fields.
	SetSchedule(ctx context.Context, id int, prev, next domain.Schedule) error

	// StartWhereScheduleMatches moves the group to Playing only when the
	// stored schedule equals the given one in all three fields.
	StartWhereScheduleMatches(ctx context.Context, id int, schedule domain.Schedule) error

	// SetRecording attaches the recording URL and finishes the group.
	SetRecording(ctx context.Context, id int, url string) error
}

// TxManager scopes a function to one database transaction. Repository
// calls made with the context it passes join that transaction; any error
// rolls the whole unit back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
