package podcast

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/podlove/podlove-backend/internal/domain"
	"github.com/podlove/podlove-backend/internal/infrastructure/metrics"
	"github.com/podlove/podlove-backend/internal/realtime"
)

type fakeUserRepo struct {
	active map[int]bool
	err    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{active: map[int]bool{}}
}

func (f *fakeUserRepo) Create(context.Context, *domain.User) error               { return nil }
func (f *fakeUserRepo) GetByID(context.Context, int) (*domain.User, error)       { return nil, nil }
func (f *fakeUserRepo) GetByEmail(context.Context, string) (*domain.User, error) { return nil, nil }
func (f *fakeUserRepo) Update(context.Context, *domain.User) error               { return nil }
func (f *fakeUserRepo) Delete(context.Context, int) error                        { return nil }
func (f *fakeUserRepo) ListComplete(context.Context) ([]*domain.User, error)     { return nil, nil }
func (f *fakeUserRepo) CompatibilityAnswers(context.Context, int) ([]string, error) {
	return nil, nil
}
func (f *fakeUserRepo) UpdateSubscription(context.Context, int, domain.Subscription) error {
	return nil
}

func (f *fakeUserRepo) SetPodcastActive(_ context.Context, userID int, active bool) error {
	if f.err != nil {
		return f.err
	}
	f.active[userID] = active
	return nil
}

type fakePodcastRepo struct {
	groups map[int]*domain.PodcastGroup
	nextID int

	createErr error
}

func newFakePodcastRepo() *fakePodcastRepo {
	return &fakePodcastRepo{groups: map[int]*domain.PodcastGroup{}, nextID: 1}
}

func (f *fakePodcastRepo) Create(_ context.Context, group *domain.PodcastGroup) error {
	if f.createErr != nil {
		return f.createErr
	}
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
	cp := *g
	return &cp, nil
}

func (f *fakePodcastRepo) GetOpenByPrimaryUser(_ context.Context, userID int) (*domain.PodcastGroup, error) {
	for _, g := range f.groups {
		if g.PrimaryUserID == userID && !g.Status.Terminal() {
			cp := *g
			return &cp, nil
		}
	}
	return nil, domain.ErrGroupNotFound
}

func (f *fakePodcastRepo) HasOpenGroup(_ context.Context, userID int) (bool, error) {
	for _, g := range f.groups {
		if g.PrimaryUserID == userID && !g.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePodcastRepo) GetUserGroups(_ context.Context, userID, limit, _ int) ([]*domain.PodcastGroup, error) {
	var out []*domain.PodcastGroup
	for _, g := range f.groups {
		if g.PrimaryUserID == userID || g.HasParticipant(userID) {
			cp := *g
			out = append(out, &cp)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakePodcastRepo) MarkRequested(_ context.Context, id int) error {
	g, ok := f.groups[id]
	if !ok || g.Status != domain.StatusNotScheduled {
		return domain.ErrGroupNotFound
	}
	g.Status = domain.StatusReqScheduled
	for i := range g.Participants {
		g.Participants[i].IsRequest = true
	}
	return nil
}

func (f *fakePodcastRepo) SetSchedule(_ context.Context, id int, prev, next domain.Schedule) error {
	g, ok := f.groups[id]
	if !ok {
		return domain.ErrGroupNotFound
	}
	if !g.Schedule.Equal(prev) {
		return domain.ErrScheduleMismatch
	}
	if g.Status != domain.StatusNotScheduled && g.Status != domain.StatusReqScheduled {
		return domain.ErrInvalidTransition
	}
	g.Schedule = next
	g.Status = domain.StatusScheduled
	return nil
}

func (f *fakePodcastRepo) StartWhereScheduleMatches(_ context.Context, id int, schedule domain.Schedule) error {
	g, ok := f.groups[id]
	if !ok || g.Status != domain.StatusScheduled || !g.Schedule.Equal(schedule) {
		return domain.ErrGroupNotFound
	}
	g.Status = domain.StatusPlaying
	return nil
}

func (f *fakePodcastRepo) SetRecording(_ context.Context, id int, url string) error {
	g, ok := f.groups[id]
	if !ok || g.Status != domain.StatusPlaying {
		return domain.ErrGroupNotFound
	}
	g.RecordingURL = &url
	g.Status = domain.StatusFinished
	return nil
}

type fakeTxManager struct {
	calls int
}

func (f *fakeTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeActivityMarker struct {
	active map[int]bool
	err    error
}

func newFakeActivityMarker() *fakeActivityMarker {
	return &fakeActivityMarker{active: map[int]bool{}}
}

func (f *fakeActivityMarker) SetActive(_ context.Context, userID int, active bool) error {
	if f.err != nil {
		return f.err
	}
	f.active[userID] = active
	return nil
}

func newTestUseCase() (*PodcastUseCase, *fakePodcastRepo, *fakeUserRepo, *fakeTxManager) {
	uc, podcastRepo, userRepo, txm, _ := newTestUseCaseWithMarker()
	return uc, podcastRepo, userRepo, txm
}

func newTestUseCaseWithMarker() (*PodcastUseCase, *fakePodcastRepo, *fakeUserRepo, *fakeTxManager, *fakeActivityMarker) {
	podcastRepo := newFakePodcastRepo()
	userRepo := newFakeUserRepo()
	txm := &fakeTxManager{}
	marker := newFakeActivityMarker()
	uc := NewPodcastUseCase(podcastRepo, userRepo, txm, realtime.NewMemoryRegistry(), marker, metrics.New(), zerolog.Nop())
	return uc, podcastRepo, userRepo, txm, marker
}

func seekerUser(id int) *domain.User {
	return &domain.User{
		ID:           id,
		Subscription: domain.Subscription{Plan: domain.PlanSeeker, Status: domain.SubscriptionActive},
	}
}

func participants(ids ...int) []domain.Participant {
	out := make([]domain.Participant, len(ids))
	for i, id := range ids {
		out[i] = domain.Participant{UserID: id, Score: 50}
	}
	return out
}

func TestCreateGroup(t *testing.T) {
	t.Parallel()

	uc, _, userRepo, txm := newTestUseCase()

	group, err := uc.CreateGroup(context.Background(), seekerUser(1), participants(2, 3, 4))
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	if group.Status != domain.StatusNotScheduled {
		t.Errorf("new group status = %s, want %s", group.Status, domain.StatusNotScheduled)
	}
	if group.RoomCode == "" {
		t.Error("new group must carry a room code")
	}
	if !userRepo.active[1] {
		t.Error("primary user must be flagged podcast-active")
	}
	if txm.calls != 1 {
		t.Errorf("expected 1 transaction, got %d", txm.calls)
	}
}

func TestCreateGroupFlagsAllMembers(t *testing.T) {
	t.Parallel()

	uc, _, userRepo, _, marker := newTestUseCaseWithMarker()

	_, err := uc.CreateGroup(context.Background(), seekerUser(1), participants(2, 3, 4))
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	// Participants leave the matching pool with the primary user, both in
	// the user table and in the vector index.
	for _, id := range []int{1, 2, 3, 4} {
		if !userRepo.active[id] {
			t.Errorf("user %d not flagged podcast-active", id)
		}
		if !marker.active[id] {
			t.Errorf("user %d not flagged podcast-active in the index", id)
		}
	}
}

func TestCreateGroupSurvivesIndexFlagFailure(t *testing.T) {
	t.Parallel()

	uc, _, userRepo, _, marker := newTestUseCaseWithMarker()
	marker.err = errors.New("index down")

	group, err := uc.CreateGroup(context.Background(), seekerUser(1), participants(2, 3, 4))
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	if group.ID == 0 {
		t.Error("group must be persisted despite the index failure")
	}
	if !userRepo.active[2] {
		t.Error("participant flag must be set despite the index failure")
	}
}

func TestCreateGroupCapacityMismatch(t *testing.T) {
	t.Parallel()

	uc, repo, _, _ := newTestUseCase()

	// Seeker capacity is 3; two participants must be rejected.
	_, err := uc.CreateGroup(context.Background(), seekerUser(1), participants(2, 3))
	if !errors.Is(err, domain.ErrCapacityMismatch) {
		t.Fatalf("CreateGroup() error = %v, want ErrCapacityMismatch", err)
	}
	if len(repo.groups) != 0 {
		t.Error("no group should be persisted on capacity mismatch")
	}
}

func TestCreateGroupRejectsSelfAndDuplicates(t *testing.T) {
	t.Parallel()

	uc, _, _, _ := newTestUseCase()

	_, err := uc.CreateGroup(context.Background(), seekerUser(1), participants(1, 2, 3))
	if !errors.Is(err, domain.ErrSelfMatch) {
		t.Errorf("self match error = %v, want ErrSelfMatch", err)
	}

	_, err = uc.CreateGroup(context.Background(), seekerUser(1), participants(2, 2, 3))
	if !errors.Is(err, domain.ErrDuplicateParticipant) {
		t.Errorf("duplicate error = %v, want ErrDuplicateParticipant", err)
	}
}

func TestSendRequest(t *testing.T) {
	t.Parallel()

	uc, repo, _, _ := newTestUseCase()
	group, err := uc.CreateGroup(context.Background(), seekerUser(1), participants(2, 3, 4))
	if err != nil {
		t.Fatal(err)
	}

	got, err := uc.SendRequest(context.Background(), 1, group.ID)
	if err != nil {
		t.Fatalf("SendRequest() error = %v", err)
	}
	if got.Status != domain.StatusReqScheduled {
		t.Errorf("status = %s, want %s", got.Status, domain.StatusReqScheduled)
	}
	for _, p := range got.Participants {
		if !p.IsRequest {
			t.Errorf("participant %d request flag not set", p.UserID)
		}
	}

	// Only the primary user may send the request.
	if _, err := uc.SendRequest(context.Background(), 2, group.ID); !errors.Is(err, domain.ErrNotGroupPrimary) {
		t.Errorf("non-primary error = %v, want ErrNotGroupPrimary", err)
	}

	// The transition only exists out of NotScheduled; a repeat is rejected
	// before touching the repository.
	if _, err := uc.SendRequest(context.Background(), 1, group.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("repeated request error = %v, want ErrInvalidTransition", err)
	}
	_ = repo
}

func TestSetSchedule(t *testing.T) {
	t.Parallel()

	uc, _, _, _ := newTestUseCase()
	group, err := uc.CreateGroup(context.Background(), seekerUser(1), participants(2, 3, 4))
	if err != nil {
		t.Fatal(err)
	}

	next := ScheduleRequest{Date: "2026-09-01", Day: "Tuesday", Time: "19:00"}
	got, err := uc.SetSchedule(context.Background(), group.ID, &SetScheduleRequest{Next: next})
	if err != nil {
		t.Fatalf("SetSchedule() error = %v", err)
	}
	if got.Status != domain.StatusScheduled {
		t.Errorf("status = %s, want %s", got.Status, domain.StatusScheduled)
	}
	if got.Schedule.Time != "19:00" {
		t.Errorf("schedule time = %q, want 19:00", got.Schedule.Time)
	}

	// A stale previous schedule must not overwrite the stored one.
	stale := &SetScheduleRequest{
		Previous: ScheduleRequest{Date: "2026-01-01", Day: "Thursday", Time: "10:00"},
		Next:     ScheduleRequest{Date: "2026-09-02", Day: "Wednesday", Time: "20:00"},
	}
	if _, err := uc.SetSchedule(context.Background(), group.ID, stale); !errors.Is(err, domain.ErrScheduleMismatch) {
		t.Errorf("stale update error = %v, want ErrScheduleMismatch", err)
	}
}

func TestSetScheduleRejectsPartialSchedule(t *testing.T) {
	t.Parallel()

	uc, _, _, _ := newTestUseCase()
	req := &SetScheduleRequest{Next: ScheduleRequest{Date: "2026-09-01"}}
	if _, err := uc.SetSchedule(context.Background(), 1, req); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("partial schedule error = %v, want ErrInvalidInput", err)
	}
}

func TestStartPodcast(t *testing.T) {
	t.Parallel()

	uc, repo, _, _ := newTestUseCase()
	group, err := uc.CreateGroup(context.Background(), seekerUser(1), participants(2, 3, 4))
	if err != nil {
		t.Fatal(err)
	}
	next := ScheduleRequest{Date: "2026-09-01", Day: "Tuesday", Time: "19:00"}
	if _, err := uc.SetSchedule(context.Background(), group.ID, &SetScheduleRequest{Next: next}); err != nil {
		t.Fatal(err)
	}

	// A schedule differing in any field reports not-found and mutates
	// nothing.
	wrong := ScheduleRequest{Date: "2026-09-01", Day: "Tuesday", Time: "20:00"}
	if _, err := uc.StartPodcast(context.Background(), group.ID, &wrong); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Fatalf("mismatched start error = %v, want ErrGroupNotFound", err)
	}
	if repo.groups[group.ID].Status != domain.StatusScheduled {
		t.Errorf("status after failed start = %s, want %s", repo.groups[group.ID].Status, domain.StatusScheduled)
	}

	got, err := uc.StartPodcast(context.Background(), group.ID, &next)
	if err != nil {
		t.Fatalf("StartPodcast() error = %v", err)
	}
	if got.Status != domain.StatusPlaying {
		t.Errorf("status = %s, want %s", got.Status, domain.StatusPlaying)
	}
}

func TestUpdateRecording(t *testing.T) {
	t.Parallel()

	uc, repo, userRepo, _, marker := newTestUseCaseWithMarker()
	group, err := uc.CreateGroup(context.Background(), seekerUser(1), participants(2, 3, 4))
	if err != nil {
		t.Fatal(err)
	}
	next := ScheduleRequest{Date: "2026-09-01", Day: "Tuesday", Time: "19:00"}
	if _, err := uc.SetSchedule(context.Background(), group.ID, &SetScheduleRequest{Next: next}); err != nil {
		t.Fatal(err)
	}
	if _, err := uc.StartPodcast(context.Background(), group.ID, &next); err != nil {
		t.Fatal(err)
	}

	// Non-primary callers are rejected.
	if _, err := uc.UpdateRecording(context.Background(), 2, group.ID, "https://cdn.example.com/ep1.mp3"); !errors.Is(err, domain.ErrNotGroupPrimary) {
		t.Fatalf("non-primary error = %v, want ErrNotGroupPrimary", err)
	}

	got, err := uc.UpdateRecording(context.Background(), 1, group.ID, "https://cdn.example.com/ep1.mp3")
	if err != nil {
		t.Fatalf("UpdateRecording() error = %v", err)
	}
	if got.Status != domain.StatusFinished {
		t.Errorf("status = %s, want %s", got.Status, domain.StatusFinished)
	}
	if got.RecordingURL == nil || *got.RecordingURL != "https://cdn.example.com/ep1.mp3" {
		t.Error("recording url not stored")
	}
	// Everyone involved re-enters the matching pool, in the user table
	// and in the vector index alike.
	for _, id := range []int{1, 2, 3, 4} {
		if userRepo.active[id] {
			t.Errorf("user %d still flagged podcast-active after finish", id)
		}
		if marker.active[id] {
			t.Errorf("user %d still flagged podcast-active in the index after finish", id)
		}
	}
	_ = repo
}
