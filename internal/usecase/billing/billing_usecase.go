package billing

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/podlove/podlove-backend/internal/domain"
	"github.com/podlove/podlove-backend/internal/matching"
	"github.com/podlove/podlove-backend/internal/repository"
	"github.com/podlove/podlove-backend/internal/usecase/podcast"
)

const subscriptionPeriod = 30 * 24 * time.Hour

// SubscriptionPaidEvent is the trusted payload the billing provider's
// webhook layer hands over once it has verified the event.
type SubscriptionPaidEvent struct {
	UserID int     `json:"user_id" binding:"required"`
	Plan   string  `json:"plan" binding:"required,plan"`
	Fee    float64 `json:"fee" binding:"min=0"`
}

// PaymentOutcome reports what the payment bought: the refreshed
// subscription always, a podcast group when matching filled one.
type PaymentOutcome struct {
	Subscription domain.Subscription  `json:"subscription"`
	Group        *domain.PodcastGroup `json:"group,omitempty"`
	Matched      bool                 `json:"matched"`
	Reason       string               `json:"reason,omitempty"`
}

type BillingUseCase struct {
	userRepo repository.UserRepository
	selector *matching.Selector
	podcasts *podcast.PodcastUseCase
	txm      repository.TxManager
	log      zerolog.Logger
}

func NewBillingUseCase(
	userRepo repository.UserRepository,
	selector *matching.Selector,
	podcasts *podcast.PodcastUseCase,
	txm repository.TxManager,
	log zerolog.Logger,
) *BillingUseCase {
	return &BillingUseCase{
		userRepo: userRepo,
		selector: selector,
		podcasts: podcasts,
		txm:      txm,
		log:      log.With().Str("component", "billing").Logger(),
	}
}

// HandleSubscriptionPaid refreshes the subscription and runs tier-sized
// matching. Selection happens before the transaction (it calls external
// services); the persistence of subscription + group is atomic, so a
// failure mid-creation leaves neither a half-created group nor a charged
// subscription pointing at one. When matching cannot fill a group the
// subscription still commits and the outcome names why.
func (uc *BillingUseCase) HandleSubscriptionPaid(ctx context.Context, evt *SubscriptionPaidEvent) (*PaymentOutcome, error) {
	plan := domain.Plan(evt.Plan)
	if !plan.Valid() {
		return nil, domain.ErrInvalidInput
	}

	user, err := uc.userRepo.GetByID(ctx, evt.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expires := now.Add(subscriptionPeriod)
	sub := domain.Subscription{
		Plan:           plan,
		Fee:            evt.Fee,
		Status:         domain.SubscriptionActive,
		StartedAt:      &now,
		ExpiresAt:      &expires,
		SpotlightsLeft: plan.Spotlights(),
	}
	// Capacity derives from the plan just paid for, not the stored one.
	user.Subscription = sub

	participants, selErr := uc.selector.Select(ctx, user, nil, plan.Capacity(), matching.StrategyLLM)

	if selErr != nil {
		reason, ok := matchSkipReason(selErr)
		if !ok {
			// Transient matching failure: the payment still counts, the
			// match can be retried later.
			uc.log.Error().Err(selErr).Int("user_id", user.ID).Msg("payment-triggered matching failed")
			reason = "matching_unavailable"
		}
		if err := uc.userRepo.UpdateSubscription(ctx, user.ID, sub); err != nil {
			return nil, err
		}
		return &PaymentOutcome{Subscription: sub, Matched: false, Reason: reason}, nil
	}

	var group *domain.PodcastGroup
	err = uc.txm.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.userRepo.UpdateSubscription(ctx, user.ID, sub); err != nil {
			return err
		}
		var err error
		group, err = uc.podcasts.AssembleGroup(ctx, user, participants)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &PaymentOutcome{Subscription: sub, Group: group, Matched: true}, nil
}

// matchSkipReason classifies the named business outcomes that leave the
// payment committed without a group.
func matchSkipReason(err error) (string, bool) {
	switch {
	case errors.Is(err, domain.ErrInsufficientCandidates):
		return "insufficient_candidates", true
	case errors.Is(err, domain.ErrOpenGroupExists):
		return "open_group_exists", true
	case errors.Is(err, domain.ErrEmptyProfileText):
		return "profile_incomplete", true
	}
	return "", false
}
