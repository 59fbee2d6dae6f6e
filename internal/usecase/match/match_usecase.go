package match

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/podlove/podlove-backend/internal/domain"
	"github.com/podlove/podlove-backend/internal/matching"
	"github.com/podlove/podlove-backend/internal/repository"
	"github.com/podlove/podlove-backend/internal/usecase/podcast"
)

type MatchUseCase struct {
	userRepo repository.UserRepository
	selector *matching.Selector
	podcasts *podcast.PodcastUseCase
	log      zerolog.Logger
}

func NewMatchUseCase(
	userRepo repository.UserRepository,
	selector *matching.Selector,
	podcasts *podcast.PodcastUseCase,
	log zerolog.Logger,
) *MatchUseCase {
	return &MatchUseCase{
		userRepo: userRepo,
		selector: selector,
		podcasts: podcasts,
		log:      log.With().Str("component", "match").Logger(),
	}
}

// FindMatchesRequest represents an explicit matching request. Answers
// override the user's stored compatibility answers when present.
type FindMatchesRequest struct {
	Answers  []string `json:"answers" binding:"omitempty,max=20"`
	Strategy string   `json:"strategy" binding:"omitempty,oneof=vector llm"`
}

// CandidateResponse is one surfaced candidate for client display.
type CandidateResponse struct {
	UserID        int     `json:"user_id"`
	Name          string  `json:"name"`
	Age           int     `json:"age"`
	Score         float64 `json:"score"`
	DistanceMiles int     `json:"distance_miles"`
}

// FindMatches runs the full pipeline for the requesting user and, on a
// full participant set, assembles a podcast group. Business outcomes
// (open group, insufficient candidates) pass through as sentinels.
func (uc *MatchUseCase) FindMatches(ctx context.Context, userID int, req *FindMatchesRequest) (*domain.PodcastGroup, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	strategy := matching.StrategyVector
	if req.Strategy == string(matching.StrategyLLM) {
		strategy = matching.StrategyLLM
	}

	n := user.Subscription.Plan.Capacity()
	participants, err := uc.selector.Select(ctx, user, req.Answers, n, strategy)
	if err != nil {
		return nil, err
	}

	return uc.podcasts.CreateGroup(ctx, user, participants)
}

// Candidates lists filtered candidates without creating anything, for the
// client's browse view.
func (uc *MatchUseCase) Candidates(ctx context.Context, userID, topK int) ([]CandidateResponse, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if topK <= 0 || topK > 50 {
		topK = 10
	}

	candidates, err := uc.selector.FilteredCandidates(ctx, user, topK, matching.StrategyVector)
	if err != nil {
		return nil, err
	}

	responses := make([]CandidateResponse, 0, len(candidates))
	for _, c := range candidates {
		responses = append(responses, CandidateResponse{
			UserID:        c.UserID,
			Name:          c.Metadata.Name,
			Age:           c.Metadata.Age,
			Score:         c.Score,
			DistanceMiles: c.DistanceMiles,
		})
	}
	return responses, nil
}
