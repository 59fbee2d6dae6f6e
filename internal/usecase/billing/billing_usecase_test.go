package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/podlove/podlove-backend/internal/config"
	"github.com/podlove/podlove-backend/internal/domain"
	"github.com/podlove/podlove-backend/internal/infrastructure/metrics"
	"github.com/podlove/podlove-backend/internal/matching"
	"github.com/podlove/podlove-backend/internal/realtime"
	"github.com/podlove/podlove-backend/internal/usecase/podcast"
	"github.com/podlove/podlove-backend/internal/vector"
)

type fakeUserRepo struct {
	users         map[int]*domain.User
	subscriptions map[int]domain.Subscription
	active        map[int]bool
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	f := &fakeUserRepo{
		users:         map[int]*domain.User{},
		subscriptions: map[int]domain.Subscription{},
		active:        map[int]bool{},
	}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(context.Context, *domain.User) error { return nil }

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(context.Context, string) (*domain.User, error) { return nil, nil }
func (f *fakeUserRepo) Update(context.Context, *domain.User) error               { return nil }
func (f *fakeUserRepo) Delete(context.Context, int) error                        { return nil }
func (f *fakeUserRepo) ListComplete(context.Context) ([]*domain.User, error)     { return nil, nil }

func (f *fakeUserRepo) CompatibilityAnswers(context.Context, int) ([]string, error) {
	return []string{"an answer"}, nil
}

func (f *fakeUserRepo) UpdateSubscription(_ context.Context, userID int, sub domain.Subscription) error {
	f.subscriptions[userID] = sub
	return nil
}

func (f *fakeUserRepo) SetPodcastActive(_ context.Context, userID int, active bool) error {
	f.active[userID] = active
	return nil
}

type fakePodcastRepo struct {
	groups  map[int]*domain.PodcastGroup
	nextID  int
	hasOpen bool
}

func newFakePodcastRepo() *fakePodcastRepo {
	return &fakePodcastRepo{groups: map[int]*domain.PodcastGroup{}, nextID: 1}
}

func (f *fakePodcastRepo) Create(_ context.Context, group *domain.PodcastGroup) error {
	group.ID = f.nextID
	f.nextID++
	cp := *group
	f.groups[group.ID] = &cp
	return nil
}

func (f *fakePodcastRepo) GetByID(_ context.Context, id int) (*domain.PodcastGroup, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	return g, nil
}

func (f *fakePodcastRepo) GetOpenByPrimaryUser(context.Context, int) (*domain.PodcastGroup, error) {
	return nil, domain.ErrGroupNotFound
}

func (f *fakePodcastRepo) HasOpenGroup(context.Context, int) (bool, error) {
	return f.hasOpen, nil
}

func (f *fakePodcastRepo) GetUserGroups(context.Context, int, int, int) ([]*domain.PodcastGroup, error) {
	return nil, nil
}
func (f *fakePodcastRepo) MarkRequested(context.Context, int) error { return nil }
func (f *fakePodcastRepo) SetSchedule(context.Context, int, domain.Schedule, domain.Schedule) error {
	return nil
}
func (f *fakePodcastRepo) StartWhereScheduleMatches(context.Context, int, domain.Schedule) error {
	return nil
}
func (f *fakePodcastRepo) SetRecording(context.Context, int, string) error { return nil }

type fakeTxManager struct{}

func (fakeTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.5, 0.5}, nil
}

type fakeIndex struct {
	matches []vector.Match
	active  map[int]bool
}

func (f *fakeIndex) Upsert(context.Context, vector.Record) error { return nil }
func (f *fakeIndex) Delete(context.Context, int) error           { return nil }
func (f *fakeIndex) Exists(context.Context, int) (bool, error)   { return false, nil }
func (f *fakeIndex) SetActive(_ context.Context, id int, active bool) error {
	if f.active == nil {
		f.active = map[int]bool{}
	}
	f.active[id] = active
	return nil
}
func (f *fakeIndex) Query(context.Context, []float32, vector.Filter, int) ([]vector.Match, error) {
	return f.matches, nil
}

type fakeScorer struct{}

func (fakeScorer) ScorePair(context.Context, []string, []string) (float64, error) {
	return 75, nil
}

func candidateMatch(id int) vector.Match {
	lat, lon := 40.7, -74.0
	return vector.Match{
		ID:    id,
		Score: 0.9,
		Metadata: vector.Metadata{
			Age:       30,
			Latitude:  &lat,
			Longitude: &lon,
		},
	}
}

func newTestBilling(users *fakeUserRepo, podcasts *fakePodcastRepo, matches []vector.Match) *BillingUseCase {
	cfg := config.MatchingConfig{
		TopK:               10,
		MinScore:           0.1,
		MinScoreRefined:    0.3,
		DefaultMaxDistance: 100,
		LLMScoreLimit:      5,
	}
	m := metrics.New()
	index := &fakeIndex{matches: matches}
	selector := matching.NewSelector(
		fakeEmbedder{},
		index,
		fakeScorer{},
		users,
		podcasts,
		cfg,
		zerolog.Nop(),
		m,
	)
	podcastUC := podcast.NewPodcastUseCase(podcasts, users, fakeTxManager{}, realtime.NewMemoryRegistry(), index, m, zerolog.Nop())
	return NewBillingUseCase(users, selector, podcastUC, fakeTxManager{}, zerolog.Nop())
}

func payer(id int) *domain.User {
	lat, lon := 40.7128, -74.006
	return &domain.User{
		ID:                   id,
		Bio:                  "Looking for a podcast crew.",
		Location:             domain.Location{Lat: &lat, Lon: &lon},
		CompatibilityAnswers: []string{"an answer"},
		Subscription:         domain.Subscription{Plan: domain.PlanStarter},
	}
}

func TestHandleSubscriptionPaidAssemblesGroup(t *testing.T) {
	t.Parallel()

	users := newFakeUserRepo(payer(1))
	podcasts := newFakePodcastRepo()
	uc := newTestBilling(users, podcasts, []vector.Match{
		candidateMatch(2), candidateMatch(3), candidateMatch(4),
	})

	out, err := uc.HandleSubscriptionPaid(context.Background(), &SubscriptionPaidEvent{
		UserID: 1, Plan: "SEEKER", Fee: 19.99,
	})
	if err != nil {
		t.Fatalf("HandleSubscriptionPaid() error = %v", err)
	}
	if !out.Matched || out.Group == nil {
		t.Fatalf("expected a matched outcome, got %+v", out)
	}
	// Seeker capacity fills exactly three seats.
	if len(out.Group.Participants) != 3 {
		t.Errorf("group size = %d, want 3", len(out.Group.Participants))
	}
	if out.Group.Status != domain.StatusNotScheduled {
		t.Errorf("group status = %s, want %s", out.Group.Status, domain.StatusNotScheduled)
	}
	if out.Subscription.Plan != domain.PlanSeeker || out.Subscription.SpotlightsLeft != 2 {
		t.Errorf("unexpected subscription %+v", out.Subscription)
	}
	if got := users.subscriptions[1]; got.Plan != domain.PlanSeeker {
		t.Errorf("persisted plan = %s, want SEEKER", got.Plan)
	}
	if !users.active[1] {
		t.Error("primary user must be flagged podcast-active")
	}
	for _, p := range out.Group.Participants {
		if !users.active[p.UserID] {
			t.Errorf("participant %d must be flagged podcast-active", p.UserID)
		}
	}
}

func TestHandleSubscriptionPaidInsufficientCandidates(t *testing.T) {
	t.Parallel()

	users := newFakeUserRepo(payer(1))
	podcasts := newFakePodcastRepo()
	// Two candidates cannot fill Seeker's three seats.
	uc := newTestBilling(users, podcasts, []vector.Match{
		candidateMatch(2), candidateMatch(3),
	})

	out, err := uc.HandleSubscriptionPaid(context.Background(), &SubscriptionPaidEvent{
		UserID: 1, Plan: "SEEKER", Fee: 19.99,
	})
	if err != nil {
		t.Fatalf("HandleSubscriptionPaid() error = %v", err)
	}
	if out.Matched || out.Group != nil {
		t.Fatalf("expected no group, got %+v", out)
	}
	if out.Reason != "insufficient_candidates" {
		t.Errorf("reason = %q, want insufficient_candidates", out.Reason)
	}
	// The payment still counts: the subscription commits without a group.
	if got := users.subscriptions[1]; got.Plan != domain.PlanSeeker {
		t.Errorf("persisted plan = %s, want SEEKER", got.Plan)
	}
	if len(podcasts.groups) != 0 {
		t.Error("no group should be persisted")
	}
}

func TestHandleSubscriptionPaidOpenGroup(t *testing.T) {
	t.Parallel()

	users := newFakeUserRepo(payer(1))
	podcasts := newFakePodcastRepo()
	podcasts.hasOpen = true
	uc := newTestBilling(users, podcasts, []vector.Match{
		candidateMatch(2), candidateMatch(3), candidateMatch(4),
	})

	out, err := uc.HandleSubscriptionPaid(context.Background(), &SubscriptionPaidEvent{
		UserID: 1, Plan: "ELITE", Fee: 29.99,
	})
	if err != nil {
		t.Fatalf("HandleSubscriptionPaid() error = %v", err)
	}
	if out.Matched {
		t.Fatal("open group must block matching")
	}
	if out.Reason != "open_group_exists" {
		t.Errorf("reason = %q, want open_group_exists", out.Reason)
	}
	if got := users.subscriptions[1]; got.Plan != domain.PlanElite {
		t.Errorf("persisted plan = %s, want ELITE", got.Plan)
	}
}

func TestHandleSubscriptionPaidInvalidPlan(t *testing.T) {
	t.Parallel()

	users := newFakeUserRepo(payer(1))
	uc := newTestBilling(users, newFakePodcastRepo(), nil)

	_, err := uc.HandleSubscriptionPaid(context.Background(), &SubscriptionPaidEvent{
		UserID: 1, Plan: "PLATINUM", Fee: 99,
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if len(users.subscriptions) != 0 {
		t.Error("invalid plan must not touch the subscription")
	}
}

func TestHandleSubscriptionPaidUnknownUser(t *testing.T) {
	t.Parallel()

	uc := newTestBilling(newFakeUserRepo(), newFakePodcastRepo(), nil)
	_, err := uc.HandleSubscriptionPaid(context.Background(), &SubscriptionPaidEvent{
		UserID: 42, Plan: "STARTER",
	})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("error = %v, want ErrUserNotFound", err)
	}
}
