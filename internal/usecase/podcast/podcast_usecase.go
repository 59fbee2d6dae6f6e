package podcast

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/podlove/podlove-backend/internal/domain"
	"github.com/podlove/podlove-backend/internal/infrastructure/metrics"
	"github.com/podlove/podlove-backend/internal/realtime"
	"github.com/podlove/podlove-backend/internal/repository"
)

// ActivityMarker mirrors podcast-flag changes into the similarity
// index. Failures are the marker's to log and count; group workflows
// never fail on a stale index entry.
type ActivityMarker interface {
	SetActive(ctx context.Context, userID int, active bool) error
}

type PodcastUseCase struct {
	podcastRepo repository.PodcastRepository
	userRepo    repository.UserRepository
	txm         repository.TxManager
	presence    realtime.Registry
	activity    ActivityMarker
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

func NewPodcastUseCase(
	podcastRepo repository.PodcastRepository,
	userRepo repository.UserRepository,
	txm repository.TxManager,
	presence realtime.Registry,
	activity ActivityMarker,
	m *metrics.Metrics,
	log zerolog.Logger,
) *PodcastUseCase {
	return &PodcastUseCase{
		podcastRepo: podcastRepo,
		userRepo:    userRepo,
		txm:         txm,
		presence:    presence,
		activity:    activity,
		metrics:     m,
		log:         log.With().Str("component", "podcast").Logger(),
	}
}

// ScheduleRequest carries the three schedule fields every scheduling
// operation matches on.
type ScheduleRequest struct {
	Date string `json:"date" binding:"required"`
	Day  string `json:"day" binding:"required"`
	Time string `json:"time" binding:"required"`
}

func (r *ScheduleRequest) toDomain() domain.Schedule {
	return domain.Schedule{Date: r.Date, Day: r.Day, Time: r.Time}
}

// SetScheduleRequest is the admin scheduling call. Previous holds the
// schedule the admin last saw; the update only lands if it still matches.
type SetScheduleRequest struct {
	Previous ScheduleRequest `json:"previous"`
	Next     ScheduleRequest `json:"next" binding:"required"`
}

// AssembleGroup validates the participant set against the primary user's
// current subscription and persists a new group in NotScheduled. It joins
// any transaction carried by the context, which is how payment-triggered
// matching makes subscription update and group creation atomic.
// Capacity is re-checked here, not just at selection time, so a tier
// downgrade between the two cannot slip an oversized group through.
func (uc *PodcastUseCase) AssembleGroup(ctx context.Context, primary *domain.User, participants []domain.Participant) (*domain.PodcastGroup, error) {
	capacity := primary.Subscription.Plan.Capacity()
	if err := domain.ValidateParticipants(primary.ID, participants, capacity); err != nil {
		return nil, err
	}

	group := &domain.PodcastGroup{
		PrimaryUserID: primary.ID,
		Participants:  participants,
		Status:        domain.StatusNotScheduled,
		RoomCode:      uuid.NewString(),
	}
	if err := uc.podcastRepo.Create(ctx, group); err != nil {
		return nil, err
	}
	// Every member leaves the matching pool, not just the primary user;
	// otherwise a participant could land in two groups at once.
	if err := uc.userRepo.SetPodcastActive(ctx, primary.ID, true); err != nil {
		return nil, err
	}
	for _, p := range participants {
		if err := uc.userRepo.SetPodcastActive(ctx, p.UserID, true); err != nil {
			return nil, err
		}
	}
	uc.markActive(ctx, group, true)

	uc.metrics.GroupsCreated.Inc()
	uc.log.Info().Int("group_id", group.ID).Int("primary_user_id", primary.ID).
		Int("participants", len(participants)).Msg("podcast group created")
	return group, nil
}

// CreateGroup is the standalone (non-webhook) assembly path; it wraps
// AssembleGroup in its own transaction.
func (uc *PodcastUseCase) CreateGroup(ctx context.Context, primary *domain.User, participants []domain.Participant) (*domain.PodcastGroup, error) {
	var group *domain.PodcastGroup
	err := uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		group, err = uc.AssembleGroup(ctx, primary, participants)
		return err
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// SendRequest moves the group from NotScheduled to ReqScheduled and flags
// every participant's request bit as one all-or-nothing unit. Clients
// retry this call, so a half-applied state must never be observable.
func (uc *PodcastUseCase) SendRequest(ctx context.Context, userID, groupID int) (*domain.PodcastGroup, error) {
	group, err := uc.podcastRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.PrimaryUserID != userID {
		return nil, domain.ErrNotGroupPrimary
	}
	if !group.Status.CanTransition(domain.StatusReqScheduled) {
		return nil, domain.ErrInvalidTransition
	}

	err = uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		return uc.podcastRepo.MarkRequested(ctx, groupID)
	})
	if err != nil {
		return nil, err
	}

	uc.notifyParticipants(ctx, group)
	return uc.podcastRepo.GetByID(ctx, groupID)
}

// SetSchedule is the admin operation attaching date/day/time. The update
// is guarded by an exact match on the previously stored schedule so a
// stale admin view cannot overwrite a newer one.
func (uc *PodcastUseCase) SetSchedule(ctx context.Context, groupID int, req *SetScheduleRequest) (*domain.PodcastGroup, error) {
	next := req.Next.toDomain()
	if !next.IsSet() {
		return nil, domain.ErrInvalidInput
	}
	if err := uc.podcastRepo.SetSchedule(ctx, groupID, req.Previous.toDomain(), next); err != nil {
		return nil, err
	}
	return uc.podcastRepo.GetByID(ctx, groupID)
}

// StartPodcast advances the group to Playing only when the caller's
// schedule matches the stored one in all three fields. A mismatch reports
// not-found and mutates nothing.
func (uc *PodcastUseCase) StartPodcast(ctx context.Context, groupID int, req *ScheduleRequest) (*domain.PodcastGroup, error) {
	if err := uc.podcastRepo.StartWhereScheduleMatches(ctx, groupID, req.toDomain()); err != nil {
		return nil, err
	}
	return uc.podcastRepo.GetByID(ctx, groupID)
}

// UpdateRecording attaches the recording URL and finishes the group.
// Restricted to the group's primary user. Finishing releases the podcast
// flag of everyone involved so they re-enter the matching pool.
func (uc *PodcastUseCase) UpdateRecording(ctx context.Context, userID, groupID int, url string) (*domain.PodcastGroup, error) {
	group, err := uc.podcastRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.PrimaryUserID != userID {
		return nil, domain.ErrNotGroupPrimary
	}

	err = uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.podcastRepo.SetRecording(ctx, groupID, url); err != nil {
			return err
		}
		if err := uc.userRepo.SetPodcastActive(ctx, group.PrimaryUserID, false); err != nil {
			return err
		}
		for _, p := range group.Participants {
			if err := uc.userRepo.SetPodcastActive(ctx, p.UserID, false); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.markActive(ctx, group, false)

	return uc.podcastRepo.GetByID(ctx, groupID)
}

// markActive mirrors the members' podcast flags into the vector index.
// Best-effort: the index is a derived projection and reconverges on the
// next profile sync.
func (uc *PodcastUseCase) markActive(ctx context.Context, group *domain.PodcastGroup, active bool) {
	_ = uc.activity.SetActive(ctx, group.PrimaryUserID, active)
	for _, p := range group.Participants {
		_ = uc.activity.SetActive(ctx, p.UserID, active)
	}
}

func (uc *PodcastUseCase) GetGroup(ctx context.Context, groupID int) (*domain.PodcastGroup, error) {
	return uc.podcastRepo.GetByID(ctx, groupID)
}

func (uc *PodcastUseCase) GetOpenGroup(ctx context.Context, userID int) (*domain.PodcastGroup, error) {
	return uc.podcastRepo.GetOpenByPrimaryUser(ctx, userID)
}

func (uc *PodcastUseCase) ListUserGroups(ctx context.Context, userID, limit, offset int) ([]*domain.PodcastGroup, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return uc.podcastRepo.GetUserGroups(ctx, userID, limit, offset)
}

// notifyParticipants decides per participant whether the request reaches
// them live or waits in their inbox. Delivery itself is the notification
// layer's job; here we only consult the presence registry.
func (uc *PodcastUseCase) notifyParticipants(ctx context.Context, group *domain.PodcastGroup) {
	for _, p := range group.Participants {
		connID, online, err := uc.presence.Lookup(ctx, p.UserID)
		if err != nil {
			uc.log.Warn().Err(err).Int("user_id", p.UserID).Msg("presence lookup failed")
			continue
		}
		evt := uc.log.Info().Int("group_id", group.ID).Int("user_id", p.UserID).Bool("online", online)
		if online {
			evt = evt.Str("connection_id", connID)
		}
		evt.Msg(fmt.Sprintf("podcast request %s", deliveryMode(online)))
	}
}

func deliveryMode(online bool) string {
	if online {
		return "delivered live"
	}
	return "queued for next login"
}
