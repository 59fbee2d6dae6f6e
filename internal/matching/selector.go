package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/podlove/podlove-backend/internal/config"
	"github.com/podlove/podlove-backend/internal/domain"
	"github.com/podlove/podlove-backend/internal/embedding"
	"github.com/podlove/podlove-backend/internal/infrastructure/metrics"
	"github.com/podlove/podlove-backend/internal/vector"
)

// Strategy picks how filtered candidates are scored before selection.
type Strategy string

const (
	// StrategyVector ranks candidates by their raw similarity score.
	StrategyVector Strategy = "vector"
	// StrategyLLM re-scores a bounded prefix of candidates with the
	// compatibility model and selects among that prefix only.
	StrategyLLM Strategy = "llm"
)

// Embedder produces the query vector for the primary user.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// PairScorer produces a 0-100 compatibility score for two positional
// answer sets. Errors on this path degrade to a zero score.
type PairScorer interface {
	ScorePair(ctx context.Context, answersA, answersB []string) (float64, error)
}

// AnswerSource loads a candidate's stored compatibility answers.
type AnswerSource interface {
	CompatibilityAnswers(ctx context.Context, userID int) ([]string, error)
}

// OpenGroupChecker reports whether a user already has a non-terminal
// podcast group.
type OpenGroupChecker interface {
	HasOpenGroup(ctx context.Context, userID int) (bool, error)
}

// Selector runs the full candidate pipeline and picks exactly N
// participants, or reports why it could not.
type Selector struct {
	embedder Embedder
	index    vector.Index
	scorer   PairScorer
	answers  AnswerSource
	groups   OpenGroupChecker
	cfg      config.MatchingConfig
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

func NewSelector(
	embedder Embedder,
	index vector.Index,
	scorer PairScorer,
	answers AnswerSource,
	groups OpenGroupChecker,
	cfg config.MatchingConfig,
	log zerolog.Logger,
	m *metrics.Metrics,
) *Selector {
	return &Selector{
		embedder: embedder,
		index:    index,
		scorer:   scorer,
		answers:  answers,
		groups:   groups,
		cfg:      cfg,
		log:      log.With().Str("component", "selector").Logger(),
		metrics:  m,
	}
}

// scored pairs a candidate with its strategy-dependent selection score.
type scored struct {
	Candidate
	selectionScore float64
}

// Select picks exactly n distinct participants for the primary user, or
// returns domain.ErrInsufficientCandidates with an empty result. A
// partial-but-nonzero participant list is never returned.
func (s *Selector) Select(ctx context.Context, primary *domain.User, answers []string, n int, strategy Strategy) ([]domain.Participant, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: match count must be positive", domain.ErrInvalidInput)
	}

	open, err := s.groups.HasOpenGroup(ctx, primary.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check open groups: %w", err)
	}
	if open {
		return nil, domain.ErrOpenGroupExists
	}

	if len(answers) == 0 {
		answers = primary.CompatibilityAnswers
	}

	candidates, err := s.FilteredCandidates(ctx, primary, s.cfg.TopK, strategy)
	if err != nil {
		return nil, err
	}

	ranked := s.rank(ctx, candidates, answers, strategy)

	// Dedupe by user id, keeping the best-ranked occurrence. The primary
	// user was already excluded during filtering; re-check defensively.
	seen := make(map[int]struct{}, len(ranked))
	participants := make([]domain.Participant, 0, n)
	for _, c := range ranked {
		if c.UserID == primary.ID {
			continue
		}
		if _, dup := seen[c.UserID]; dup {
			continue
		}
		seen[c.UserID] = struct{}{}
		participants = append(participants, domain.Participant{
			UserID: c.UserID,
			Score:  c.selectionScore,
		})
		if len(participants) == n {
			break
		}
	}

	if len(participants) < n {
		s.log.Info().
			Int("user_id", primary.ID).
			Int("wanted", n).
			Int("available", len(participants)).
			Msg("insufficient candidates for match")
		return nil, domain.ErrInsufficientCandidates
	}

	s.metrics.MatchesSelected.Inc()
	return participants, nil
}

// FilteredCandidates queries the index with the user's preference filter,
// oversampling to absorb filtering attrition, and returns at most topK
// filtered candidates ready for scoring.
func (s *Selector) FilteredCandidates(ctx context.Context, primary *domain.User, topK int, strategy Strategy) ([]Candidate, error) {
	text := embedding.BuildProfileText(primary)
	if text == "" {
		return nil, domain.ErrEmptyProfileText
	}
	values, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query profile: %w", err)
	}

	matches, err := s.index.Query(ctx, values, BuildPreferenceFilter(primary), topK*OversampleFactor)
	if err != nil {
		s.metrics.VectorQueryFailures.Inc()
		return nil, fmt.Errorf("failed to query vector index: %w", err)
	}

	minScore := s.cfg.MinScore
	if strategy == StrategyLLM {
		minScore = s.cfg.MinScoreRefined
	}

	return FilterCandidates(primary, matches, topK, FilterOptions{
		ApplyScoreFilter:    true,
		MinScore:            minScore,
		ApplyDistanceFilter: true,
		DefaultMaxDistance:  s.cfg.DefaultMaxDistance,
	}), nil
}

// rank assigns selection scores per strategy and sorts descending, ties
// broken by candidate id for determinism.
func (s *Selector) rank(ctx context.Context, candidates []Candidate, answers []string, strategy Strategy) []scored {
	var ranked []scored

	switch strategy {
	case StrategyLLM:
		limit := s.cfg.LLMScoreLimit
		if limit <= 0 || limit > len(candidates) {
			limit = len(candidates)
		}
		// Only the top prefix is worth an external model call; selection
		// happens among that prefix.
		for _, c := range candidates[:limit] {
			score := s.scorePair(ctx, answers, c)
			ranked = append(ranked, scored{Candidate: c, selectionScore: score})
		}
	default:
		for _, c := range candidates {
			ranked = append(ranked, scored{Candidate: c, selectionScore: c.Score})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].selectionScore != ranked[j].selectionScore {
			return ranked[i].selectionScore > ranked[j].selectionScore
		}
		return ranked[i].UserID < ranked[j].UserID
	})
	return ranked
}

// scorePair loads the candidate's answers and asks the compatibility
// model for a score. Every failure degrades to zero so one bad candidate
// or model response never blocks the batch.
func (s *Selector) scorePair(ctx context.Context, answers []string, c Candidate) float64 {
	candidateAnswers, err := s.answers.CompatibilityAnswers(ctx, c.UserID)
	if err != nil {
		s.metrics.ScoringFailures.Inc()
		s.log.Warn().Err(err).Int("candidate_id", c.UserID).Msg("failed to load candidate answers")
		return 0
	}
	score, err := s.scorer.ScorePair(ctx, answers, candidateAnswers)
	if err != nil {
		s.metrics.ScoringFailures.Inc()
		s.log.Warn().Err(err).Int("candidate_id", c.UserID).Msg("compatibility scoring failed, using zero")
		return 0
	}
	return score
}
