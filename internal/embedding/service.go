// Package embedding keeps the vector index in sync with user profiles.
// The index is a derived projection: sync failures are logged and counted
// but never fail the profile workflow that triggered them.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/podlove/podlove-backend/internal/config"
	"github.com/podlove/podlove-backend/internal/domain"
	"github.com/podlove/podlove-backend/internal/infrastructure/metrics"
	"github.com/podlove/podlove-backend/internal/vector"
)

// Embedder turns profile text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Service struct {
	embedder Embedder
	index    vector.Index
	cfg      config.VectorConfig
	log      zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(
	embedder Embedder,
	index vector.Index,
	cfg config.VectorConfig,
	log zerolog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		log:      log.With().Str("component", "embedding").Logger(),
		metrics:  m,
		now:      time.Now,
	}
}

// BuildRecord bundles the user's embedding vector with the metadata
// snapshot the index filters on.
func (s *Service) BuildRecord(ctx context.Context, user *domain.User) (vector.Record, error) {
	text := BuildProfileText(user)
	if text == "" {
		return vector.Record{}, domain.ErrEmptyProfileText
	}

	values, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return vector.Record{}, fmt.Errorf("failed to generate embedding: %w", err)
	}

	return vector.Record{
		ID:     user.ID,
		Values: values,
		Metadata: vector.Metadata{
			Name:            user.Name,
			Gender:          string(user.Gender),
			Age:             user.Age(s.now()),
			BodyType:        string(user.BodyType),
			Ethnicity:       string(user.Ethnicity),
			Latitude:        user.Location.Lat,
			Longitude:       user.Location.Lon,
			IsPodcastActive: user.IsPodcastActive,
		},
	}, nil
}

// Sync refreshes the user's index entry. The returned error is for the
// caller's telemetry only; profile saves succeed regardless.
func (s *Service) Sync(ctx context.Context, user *domain.User) error {
	rec, err := s.BuildRecord(ctx, user)
	if err != nil {
		s.metrics.EmbeddingSyncFailures.Inc()
		s.log.Warn().Err(err).Int("user_id", user.ID).Msg("embedding build failed")
		return err
	}
	if err := s.index.Upsert(ctx, rec); err != nil {
		s.metrics.EmbeddingSyncFailures.Inc()
		s.log.Warn().Err(err).Int("user_id", user.ID).Msg("embedding upsert failed")
		return err
	}
	return nil
}

// SetActive mirrors a podcast-flag change into the index without
// re-embedding. Group assembly and finish call this so the matching
// filter sees membership changes before the next profile sync.
func (s *Service) SetActive(ctx context.Context, userID int, active bool) error {
	if err := s.index.SetActive(ctx, userID, active); err != nil {
		s.metrics.EmbeddingSyncFailures.Inc()
		s.log.Warn().Err(err).Int("user_id", userID).Bool("active", active).Msg("embedding flag update failed")
		return err
	}
	return nil
}

// Remove drops the user's index entry, e.g. on account deletion.
func (s *Service) Remove(ctx context.Context, userID int) error {
	if err := s.index.Delete(ctx, userID); err != nil {
		s.metrics.EmbeddingSyncFailures.Inc()
		s.log.Warn().Err(err).Int("user_id", userID).Msg("embedding delete failed")
		return err
	}
	return nil
}

// SyncAll re-embeds a set of users in fixed-size batches with a delay
// between batches to respect the embedding model's rate limits. Per-user
// failures are logged and skipped; the batch run always completes.
// Returns the number of users successfully synced.
func (s *Service) SyncAll(ctx context.Context, users []*domain.User) int {
	batchSize := s.cfg.SyncBatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	concurrency := s.cfg.SyncConcurrency
	if concurrency <= 0 {
		concurrency = batchSize
	}

	synced := 0
	for start := 0; start < len(users); start += batchSize {
		end := start + batchSize
		if end > len(users) {
			end = len(users)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		results := make([]bool, end-start)
		for i, user := range users[start:end] {
			i, user := i, user
			g.Go(func() error {
				if err := s.Sync(gctx, user); err == nil {
					results[i] = true
				}
				// Sync already logged and counted the failure.
				return nil
			})
		}
		_ = g.Wait()

		for _, ok := range results {
			if ok {
				synced++
			}
		}

		if end < len(users) && s.cfg.SyncBatchDelay > 0 {
			select {
			case <-ctx.Done():
				return synced
			case <-time.After(s.cfg.SyncBatchDelay):
			}
		}
	}

	s.log.Info().Int("synced", synced).Int("total", len(users)).Msg("embedding batch sync finished")
	return synced
}
