package workers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	dbadapter "newsdesk/internal/adapters/database"
	"newsdesk/internal/core/moderation"
	postEntity "newsdesk/internal/core/post"
	"newsdesk/internal/core/user"
	notificationPort "newsdesk/internal/ports/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// --- fakes ---

type fakeModerator struct {
	mu       sync.Mutex
	verdicts map[string]moderation.Verdict
	errs     map[string]error
	raw      map[string]string
	empty    map[string]bool
	panics   map[string]bool
	calls    []string
}

func newFakeModerator() *fakeModerator {
	return &fakeModerator{
		verdicts: map[string]moderation.Verdict{},
		errs:     map[string]error{},
		raw:      map[string]string{},
		empty:    map[string]bool{},
		panics:   map[string]bool{},
	}
}

func (m *fakeModerator) Moderate(ctx context.Context, text, promptOverride string) (*moderation.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, text)
	if m.panics[text] {
		panic("moderator exploded")
	}
	if m.empty[text] {
		return nil, nil
	}
	if err, ok := m.errs[text]; ok {
		return nil, err
	}
	if raw, ok := m.raw[text]; ok {
		v := moderation.ParseVerdict(raw)
		return &v, nil
	}
	if v, ok := m.verdicts[text]; ok {
		return &v, nil
	}
	return &moderation.Verdict{IsApproved: true}, nil
}

func (m *fakeModerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type fakeNotifier struct {
	mu     sync.Mutex
	result bool
	got    []notificationPort.Rejection
}

func (n *fakeNotifier) NotifyRejection(ctx context.Context, r notificationPort.Rejection) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, r)
	return n.result
}

type failingSelectRepo struct {
	*dbadapter.PostRepositoryDatabase
}

func (r failingSelectRepo) SelectPendingModeration(ctx context.Context, limit int) ([]*postEntity.Post, error) {
	return nil, errors.New("db gone")
}

// --- fixture ---

type workerFixture struct {
	worker    *AutoPublishWorker
	posts     *dbadapter.PostRepositoryDatabase
	users     *dbadapter.UserRepositoryDatabase
	moderator *fakeModerator
	notifier  *fakeNotifier
	now       time.Time
	hookCalls int
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&user.User{}, &postEntity.Post{}))

	f := &workerFixture{
		posts:     dbadapter.NewPostRepositoryDatabase(db),
		users:     dbadapter.NewUserRepositoryDatabase(db),
		moderator: newFakeModerator(),
		notifier:  &fakeNotifier{result: true},
		now:       time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.worker = NewAutoPublishWorker(f.posts, f.users, f.moderator, f.notifier, zaptest.NewLogger(t))
	f.worker.Now = func() time.Time { return f.now }
	f.worker.OnPublish(func() { f.hookCalls++ })
	return f
}

func (f *workerFixture) scheduled(t *testing.T, text, clientKey string, publishAt time.Time) *postEntity.Post {
	t.Helper()
	p := &postEntity.Post{Text: text, PublishAt: &publishAt}
	if clientKey != "" {
		key := clientKey
		p.ClientKey = &key
	}
	created, err := f.posts.Create(context.Background(), p)
	require.NoError(t, err)
	return created
}

func (f *workerFixture) reload(t *testing.T, p *postEntity.Post) *postEntity.Post {
	t.Helper()
	got, err := f.posts.FindByID(context.Background(), p.ID.String())
	require.NoError(t, err)
	return got
}

func (f *workerFixture) tick(t *testing.T) TickResult {
	t.Helper()
	res, err := f.worker.Tick(context.Background())
	require.NoError(t, err)
	return res
}

// --- phase 1 ---

func TestTick_RejectionDivertsToWarningAndNotifies(t *testing.T) {
	f := newWorkerFixture(t)
	key := "u1"
	_, err := f.users.Create(context.Background(), &user.User{Name: "o", Username: "owner", Email: "owner@example.com", Password: "x", ClientKey: &key, AutoPublishEnabled: true})
	require.NoError(t, err)

	p := f.scheduled(t, "bad article", "u1", f.now.Add(-time.Minute))
	f.moderator.verdicts["bad article"] = moderation.Verdict{IsApproved: false, Reason: "off-topic"}

	res := f.tick(t)
	assert.Equal(t, TickResult{Rejected: 1}, res)

	got := f.reload(t, p)
	assert.Equal(t, postEntity.StatusWarning, got.Status)
	assert.Equal(t, "off-topic", got.ModerationReason)
	assert.Nil(t, got.PublishAt)
	assert.NotNil(t, got.ModerationCheckedAt)
	assert.Nil(t, got.PubDate)

	require.Len(t, f.notifier.got, 1)
	assert.Equal(t, notificationPort.Rejection{
		PostID:    p.ID.String(),
		PostText:  "bad article",
		UserEmail: "owner@example.com",
		Reason:    "off-topic",
	}, f.notifier.got[0])

	// پست رد شده هرگز در فاز انتشار انتخاب نمی‌شود
	f.now = f.now.Add(24 * time.Hour)
	assert.Equal(t, TickResult{}, f.tick(t))
	assert.Equal(t, postEntity.StatusWarning, f.reload(t, p).Status)
	assert.Equal(t, 0, f.hookCalls)
	assert.Len(t, f.notifier.got, 1)
}

func TestTick_NonJSONModelOutputIsRejection(t *testing.T) {
	f := newWorkerFixture(t)
	p := f.scheduled(t, "weird", "", f.now.Add(time.Hour))
	f.moderator.raw["weird"] = "sorry, cannot process"

	f.tick(t)

	got := f.reload(t, p)
	assert.Equal(t, postEntity.StatusWarning, got.Status)
	assert.Equal(t, "Invalid JSON response from moderation LLM", got.ModerationReason)
	assert.Nil(t, got.PublishAt)
	require.Len(t, f.notifier.got, 1)
	assert.Equal(t, "Unknown", f.notifier.got[0].UserEmail)
}

func TestTick_ModerationErrorStallsDraft(t *testing.T) {
	f := newWorkerFixture(t)
	publishAt := f.now.Add(-time.Minute)
	p := f.scheduled(t, "flaky", "u9", publishAt)
	f.moderator.errs["flaky"] = errors.New("dial tcp: connection refused")

	res := f.tick(t)
	assert.Equal(t, TickResult{Errored: 1}, res)

	got := f.reload(t, p)
	assert.Equal(t, postEntity.StatusDraft, got.Status)
	require.NotNil(t, got.ModerationCheckedAt)
	assert.True(t, strings.HasPrefix(got.ModerationReason, "Moderation error: "))
	assert.Contains(t, got.ModerationReason, "connection refused")
	require.NotNil(t, got.PublishAt)
	assert.True(t, got.PublishAt.Equal(publishAt))
	assert.Empty(t, f.notifier.got)

	// نه retry می‌شود و نه منتشر
	f.now = f.now.Add(time.Hour)
	assert.Equal(t, TickResult{}, f.tick(t))
	assert.Equal(t, postEntity.StatusDraft, f.reload(t, p).Status)
	assert.Equal(t, 1, f.moderator.callCount())
	assert.Equal(t, 0, f.hookCalls)
}

func TestTick_ApprovedAndDuePublishesInSameTick(t *testing.T) {
	f := newWorkerFixture(t)
	p := f.scheduled(t, "good", "", f.now.Add(-time.Minute))
	f.moderator.verdicts["good"] = moderation.Verdict{IsApproved: true}

	res := f.tick(t)
	assert.Equal(t, TickResult{Approved: 1, Published: 1}, res)

	got := f.reload(t, p)
	assert.Equal(t, postEntity.StatusPublished, got.Status)
	assert.Equal(t, "Approved", got.ModerationReason)
	require.NotNil(t, got.PubDate)
	assert.True(t, got.PubDate.Equal(f.now))
	assert.Equal(t, 1, f.hookCalls)
}

func TestTick_FutureDeadlineWaits(t *testing.T) {
	f := newWorkerFixture(t)
	p := f.scheduled(t, "later", "", f.now.Add(10*time.Minute))
	f.moderator.verdicts["later"] = moderation.Verdict{IsApproved: true, Reason: "looks fine"}

	assert.Equal(t, TickResult{Approved: 1}, f.tick(t))
	got := f.reload(t, p)
	assert.Equal(t, postEntity.StatusDraft, got.Status)
	assert.Equal(t, "looks fine", got.ModerationReason)

	f.now = f.now.Add(5 * time.Minute)
	assert.Equal(t, TickResult{}, f.tick(t))
	assert.Equal(t, postEntity.StatusDraft, f.reload(t, p).Status)

	f.now = f.now.Add(6 * time.Minute)
	assert.Equal(t, TickResult{Published: 1}, f.tick(t))
	assert.Equal(t, postEntity.StatusPublished, f.reload(t, p).Status)

	// moderation فقط یک بار انجام شد
	assert.Equal(t, 1, f.moderator.callCount())
	assert.Equal(t, 1, f.hookCalls)
}

func TestTick_ErroredPostIsNotRemoderated(t *testing.T) {
	f := newWorkerFixture(t)
	p := f.scheduled(t, "flaky", "", f.now.Add(time.Hour))
	f.moderator.errs["flaky"] = errors.New("timeout")

	for i := 0; i < 3; i++ {
		f.tick(t)
	}
	assert.Equal(t, 1, f.moderator.callCount())
	assert.Equal(t, postEntity.StatusDraft, f.reload(t, p).Status)
}

func TestTick_EmptyVerdictIsRecordedOnce(t *testing.T) {
	f := newWorkerFixture(t)
	publishAt := f.now.Add(-time.Minute)
	p := f.scheduled(t, "silent", "", publishAt)
	f.moderator.empty["silent"] = true

	assert.Equal(t, TickResult{Errored: 1}, f.tick(t))
	for i := 0; i < 2; i++ {
		f.now = f.now.Add(time.Minute)
		assert.Equal(t, TickResult{}, f.tick(t))
	}

	got := f.reload(t, p)
	assert.Equal(t, 1, f.moderator.callCount())
	assert.Equal(t, postEntity.StatusDraft, got.Status)
	require.NotNil(t, got.ModerationCheckedAt)
	assert.Equal(t, "Moderation error: empty verdict", got.ModerationReason)
	assert.Equal(t, 0, f.hookCalls)
}

func TestTick_ModeratorPanicIsRecordedOnce(t *testing.T) {
	f := newWorkerFixture(t)
	p := f.scheduled(t, "explosive", "", f.now.Add(-time.Minute))
	other := f.scheduled(t, "fine", "", f.now.Add(time.Hour))
	f.moderator.panics["explosive"] = true

	// panic یک پست بقیه batch را متوقف نمی‌کند
	assert.Equal(t, TickResult{Approved: 1, Errored: 1}, f.tick(t))
	for i := 0; i < 2; i++ {
		f.now = f.now.Add(time.Minute)
		assert.Equal(t, TickResult{}, f.tick(t))
	}

	got := f.reload(t, p)
	assert.Equal(t, 2, f.moderator.callCount())
	assert.Equal(t, postEntity.StatusDraft, got.Status)
	require.NotNil(t, got.ModerationCheckedAt)
	assert.True(t, strings.HasPrefix(got.ModerationReason, "Moderation error: panic: "))
	assert.Contains(t, got.ModerationReason, "moderator exploded")
	assert.Equal(t, "Approved", f.reload(t, other).ModerationReason)
	assert.Equal(t, 0, f.hookCalls)
}

func TestTick_ApprovalReasonLookingLikeErrorStillPublishes(t *testing.T) {
	f := newWorkerFixture(t)
	p := f.scheduled(t, "odd", "", f.now.Add(-time.Minute))
	f.moderator.verdicts["odd"] = moderation.Verdict{IsApproved: true, Reason: "Moderation error: none found"}

	assert.Equal(t, TickResult{Approved: 1, Published: 1}, f.tick(t))

	got := f.reload(t, p)
	assert.Equal(t, postEntity.StatusPublished, got.Status)
	assert.Equal(t, "Approved: Moderation error: none found", got.ModerationReason)
	assert.Equal(t, 1, f.hookCalls)
}

func TestTick_NoEligibleRowsIsNoop(t *testing.T) {
	f := newWorkerFixture(t)
	unscheduled, err := f.posts.Create(context.Background(), &postEntity.Post{Text: "manual"})
	require.NoError(t, err)
	before := f.reload(t, unscheduled)

	assert.Equal(t, TickResult{}, f.tick(t))
	after := f.reload(t, unscheduled)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Nil(t, after.ModerationCheckedAt)
	assert.Equal(t, 0, f.moderator.callCount())
	assert.Empty(t, f.notifier.got)
	assert.Equal(t, 0, f.hookCalls)
}

func TestTick_BatchLimitAndIndependentFailures(t *testing.T) {
	f := newWorkerFixture(t)
	for i := 0; i < 7; i++ {
		f.scheduled(t, "post-"+string(rune('a'+i)), "", f.now.Add(time.Duration(i+1)*time.Hour))
	}
	f.moderator.errs["post-a"] = errors.New("boom")
	f.moderator.verdicts["post-b"] = moderation.Verdict{IsApproved: false, Reason: "spam"}

	res := f.tick(t)
	assert.Equal(t, TickResult{Approved: 3, Rejected: 1, Errored: 1}, res)
	assert.Equal(t, DefaultModerationBatch, f.moderator.callCount())

	res = f.tick(t)
	assert.Equal(t, TickResult{Approved: 2}, res)
	assert.Equal(t, 7, f.moderator.callCount())
}

func TestTick_PublishBatchLimit(t *testing.T) {
	f := newWorkerFixture(t)
	checked := f.now.Add(-time.Hour)
	for i := 0; i < 12; i++ {
		at := f.now.Add(-time.Duration(i+1) * time.Minute)
		_, err := f.posts.Create(context.Background(), &postEntity.Post{Text: "x", PublishAt: &at, ModerationCheckedAt: &checked})
		require.NoError(t, err)
	}

	assert.Equal(t, TickResult{Published: DefaultPublishBatch}, f.tick(t))
	assert.Equal(t, TickResult{Published: 2}, f.tick(t))
	assert.Equal(t, 12, f.hookCalls)
}

func TestTick_PubDateNeverOverwritten(t *testing.T) {
	f := newWorkerFixture(t)
	firstPub := f.now.Add(-72 * time.Hour)
	checked := f.now.Add(-time.Hour)
	at := f.now.Add(-time.Minute)
	p, err := f.posts.Create(context.Background(), &postEntity.Post{Text: "x", PublishAt: &at, ModerationCheckedAt: &checked, PubDate: &firstPub})
	require.NoError(t, err)

	assert.Equal(t, TickResult{Published: 1}, f.tick(t))
	got := f.reload(t, p)
	require.NotNil(t, got.PubDate)
	assert.True(t, got.PubDate.Equal(firstPub))
}

func TestTick_NotificationFallbacks(t *testing.T) {
	f := newWorkerFixture(t)
	f.notifier.result = false // شکست ارسال نباید روی نتیجه اثر بگذارد
	noOwner := f.scheduled(t, "orphan", "ghost-key", f.now.Add(time.Hour))
	f.moderator.verdicts["orphan"] = moderation.Verdict{IsApproved: false}

	assert.Equal(t, TickResult{Rejected: 1}, f.tick(t))
	got := f.reload(t, noOwner)
	assert.Equal(t, postEntity.StatusWarning, got.Status)
	assert.Equal(t, rejectedFallback, got.ModerationReason)
	require.Len(t, f.notifier.got, 1)
	assert.Equal(t, "ghost-key", f.notifier.got[0].UserEmail)
}

func TestTick_NilNotifierAndHook(t *testing.T) {
	f := newWorkerFixture(t)
	f.worker.Notifier = nil
	f.worker.OnPublish(nil)
	f.scheduled(t, "bad", "", f.now.Add(time.Hour))
	f.scheduled(t, "good", "", f.now.Add(-time.Hour))
	f.moderator.verdicts["bad"] = moderation.Verdict{IsApproved: false, Reason: "nope"}

	res := f.tick(t)
	assert.Equal(t, TickResult{Approved: 1, Rejected: 1, Published: 1}, res)
}

func TestTick_SelectErrorIsReturned(t *testing.T) {
	f := newWorkerFixture(t)
	f.worker.PostRepo = failingSelectRepo{f.posts}

	_, err := f.worker.Tick(context.Background())
	assert.Error(t, err)

	// خطای tick در سطح بالا گرفته می‌شود و panic نمی‌کند
	assert.NotPanics(t, func() { f.worker.safeTick(context.Background()) })
}

// --- lifecycle ---

func TestStartStop_Lifecycle(t *testing.T) {
	f := newWorkerFixture(t)
	f.scheduled(t, "first", "", f.now.Add(time.Hour))

	// Stop بدون Start امن است
	assert.NotPanics(t, f.worker.Stop)

	f.worker.Start(context.Background(), time.Hour)
	assert.True(t, f.worker.Running())
	f.worker.Start(context.Background(), time.Hour) // no-op

	// tick فوری هنگام شروع
	assert.Eventually(t, func() bool { return f.moderator.callCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	f.worker.Stop()
	assert.False(t, f.worker.Running())
	f.worker.Stop()

	// بعد از Stop هیچ tick جدیدی اجرا نمی‌شود
	f.scheduled(t, "second", "", f.now.Add(time.Hour))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.moderator.callCount())

	// وابستگی‌ها آزاد شده‌اند و worker دوباره شروع نمی‌شود
	assert.Nil(t, f.worker.PostRepo)
	assert.Nil(t, f.worker.UserRepo)
	assert.Nil(t, f.worker.Moderator)
	assert.Nil(t, f.worker.Notifier)
	_, err := f.worker.Tick(context.Background())
	assert.ErrorIs(t, err, ErrStopped)

	f.worker.Start(context.Background(), time.Hour)
	assert.False(t, f.worker.Running())
	assert.Equal(t, 1, f.moderator.callCount())
}

func TestStart_TicksOnInterval(t *testing.T) {
	f := newWorkerFixture(t)
	f.worker.Start(context.Background(), 20*time.Millisecond)
	defer f.worker.Stop()

	f.scheduled(t, "arrives-later", "", f.now.Add(time.Hour))
	assert.Eventually(t, func() bool { return f.moderator.callCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestStart_ContextCancelStopsLoop(t *testing.T) {
	f := newWorkerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.worker.Start(ctx, 10*time.Millisecond)
	cancel()

	assert.Eventually(t, func() bool { return !f.worker.Running() }, 2*time.Second, 10*time.Millisecond)
	assert.NotPanics(t, f.worker.Stop)
}
