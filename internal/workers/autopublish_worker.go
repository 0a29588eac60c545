package workers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"newsdesk/internal/core/moderation"
	postEntity "newsdesk/internal/core/post"
	moderationPort "newsdesk/internal/ports/moderation"
	notificationPort "newsdesk/internal/ports/notification"
	postPort "newsdesk/internal/ports/post"
	userPort "newsdesk/internal/ports/user"

	"go.uber.org/zap"
)

const (
	DefaultInterval        = 60 * time.Second
	DefaultModerationBatch = 5
	DefaultPublishBatch    = 10

	unknownOwner     = "Unknown"
	rejectedFallback = "Rejected by moderation"
)

// ErrStopped بعد از Stop وابستگی‌ها آزاد شده‌اند
var ErrStopped = errors.New("auto-publish worker stopped")

// TickResult شمارش نتایج یک tick
type TickResult struct {
	Approved  int
	Rejected  int
	Errored   int
	Published int
}

// AutoPublishWorker moderates scheduled drafts and publishes them once
// publish_at has passed. All state lives in the post table; a single
// active instance is assumed.
type AutoPublishWorker struct {
	PostRepo        postPort.PostRepository
	UserRepo        userPort.UserRepository
	Moderator       moderationPort.Moderator
	Notifier        notificationPort.Notifier
	Logger          *zap.Logger
	ModerationBatch int
	PublishBatch    int
	Now             func() time.Time

	onPublish func()

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func NewAutoPublishWorker(
	postRepo postPort.PostRepository,
	userRepo userPort.UserRepository,
	moderator moderationPort.Moderator,
	notifier notificationPort.Notifier,
	logger *zap.Logger,
) *AutoPublishWorker {
	return &AutoPublishWorker{
		PostRepo:        postRepo,
		UserRepo:        userRepo,
		Moderator:       moderator,
		Notifier:        notifier,
		Logger:          logger,
		ModerationBatch: DefaultModerationBatch,
		PublishBatch:    DefaultPublishBatch,
		Now:             func() time.Time { return time.Now().UTC() },
	}
}

// OnPublish registers the feed invalidation hook, called once per published post.
func (w *AutoPublishWorker) OnPublish(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onPublish = fn
}

func (w *AutoPublishWorker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Start یک tick فوری اجرا می‌کند و بعد هر interval تکرار می‌شود.
// فراخوانی دوباره در حال اجرا نادیده گرفته می‌شود.
func (w *AutoPublishWorker) Start(ctx context.Context, interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		w.Logger.Warn("⚠️ AutoPublishWorker already running")
		return
	}
	if w.PostRepo == nil || w.Moderator == nil {
		w.Logger.Warn("⚠️ AutoPublishWorker has no dependencies, not starting")
		return
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	w.running = true
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.run(ctx, interval, w.stop, w.done)

	w.Logger.Info("🚀 AutoPublishWorker started", zap.Duration("interval", interval))
}

// Stop prevents future ticks, waits for an in-flight tick to finish and
// then drops the repositories, moderator, notifier and publish hook.
// A stopped worker cannot be started again. Safe to call when the worker
// was never started.
func (w *AutoPublishWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stop)
	done := w.done
	w.running = false
	w.mu.Unlock()

	<-done

	// حلقه تمام شده؛ پاک کردن وابستگی‌ها race ندارد
	w.mu.Lock()
	w.PostRepo = nil
	w.UserRepo = nil
	w.Moderator = nil
	w.Notifier = nil
	w.onPublish = nil
	w.mu.Unlock()

	w.Logger.Info("🛑 AutoPublishWorker stopped")
}

func (w *AutoPublishWorker) run(ctx context.Context, interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	// لغو ctx نباید tick در حال اجرا را نیمه‌کاره رها کند
	tickCtx := context.WithoutCancel(ctx)

	w.safeTick(tickCtx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			w.Logger.Info("🛑 AutoPublishWorker context cancelled")
			w.mu.Lock()
			if w.done == done {
				w.running = false
			}
			w.mu.Unlock()
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			w.safeTick(tickCtx)
		}
	}
}

func (w *AutoPublishWorker) safeTick(ctx context.Context) {
	started := time.Now()
	defer func() {
		tickDuration.Observe(time.Since(started).Seconds())
		if rec := recover(); rec != nil {
			tickErrorsTotal.Inc()
			w.Logger.Error("❌ AutoPublishWorker tick panicked", zap.Any("panic", rec))
		}
	}()

	res, err := w.Tick(ctx)
	if err != nil {
		tickErrorsTotal.Inc()
		w.Logger.Error("❌ AutoPublishWorker tick failed", zap.Error(err))
		return
	}
	if res != (TickResult{}) {
		w.Logger.Info("✅ AutoPublishWorker tick done",
			zap.Int("approved", res.Approved),
			zap.Int("rejected", res.Rejected),
			zap.Int("errored", res.Errored),
			zap.Int("published", res.Published),
		)
	}
}

// Tick runs the moderation sweep and then the publish sweep, so a post
// approved here can be published in the same tick.
func (w *AutoPublishWorker) Tick(ctx context.Context) (TickResult, error) {
	var res TickResult
	if w.PostRepo == nil || w.Moderator == nil {
		return res, ErrStopped
	}
	if err := w.moderatePending(ctx, &res); err != nil {
		return res, err
	}
	if err := w.publishDue(ctx, &res); err != nil {
		return res, err
	}
	return res, nil
}

// moderatePending فاز ۱: بررسی پست‌های زمان‌بندی شده‌ای که هنوز moderation نشده‌اند
func (w *AutoPublishWorker) moderatePending(ctx context.Context, res *TickResult) error {
	posts, err := w.PostRepo.SelectPendingModeration(ctx, w.batch(w.ModerationBatch, DefaultModerationBatch))
	if err != nil {
		return fmt.Errorf("select pending moderation: %w", err)
	}

	for _, p := range posts {
		switch w.moderateOne(ctx, p) {
		case outcomeApproved:
			res.Approved++
		case outcomeRejected:
			res.Rejected++
		case outcomeError:
			res.Errored++
		}
	}
	return nil
}

func (w *AutoPublishWorker) moderateOne(ctx context.Context, p *postEntity.Post) (outcome string) {
	postID := p.ID.String()
	defer func() {
		if rec := recover(); rec != nil {
			w.Logger.Error("❌ Moderation of post panicked", zap.String("postID", postID), zap.Any("panic", rec))
			outcome = w.recordPanic(ctx, postID, rec)
		}
	}()

	w.Logger.Info("➡ Moderating post", zap.String("postID", postID))
	verdict, modErr := w.Moderator.Moderate(ctx, p.Text, "")
	if modErr == nil && verdict == nil {
		modErr = errors.New("empty verdict")
	}
	now := w.Now()

	if modErr != nil {
		return w.recordModerationError(ctx, postID, modErr, now)
	}

	if verdict.IsApproved {
		reason := verdict.Reason
		if reason == "" {
			reason = moderation.ApprovedReason
		}
		// دلیلی که شبیه خطا باشد پست را برای همیشه از فاز انتشار بیرون می‌گذارد
		if strings.HasPrefix(reason, moderation.ErrorReasonPrefix) {
			reason = moderation.ApprovedReason + ": " + reason
		}
		if err := w.PostRepo.UpdateFields(ctx, postID, map[string]interface{}{
			"moderation_checked_at": now,
			"moderation_reason":     reason,
			"updated_at":            now,
		}); err != nil {
			w.Logger.Error("❌ Could not record approval", zap.String("postID", postID), zap.Error(err))
			return ""
		}
		moderationsTotal.WithLabelValues(outcomeApproved).Inc()
		w.Logger.Info("✅ Post approved", zap.String("postID", postID), zap.String("reason", reason))
		return outcomeApproved
	}

	reason := verdict.Reason
	if reason == "" {
		reason = rejectedFallback
	}
	if err := w.PostRepo.UpdateFields(ctx, postID, map[string]interface{}{
		"status":                postEntity.StatusWarning,
		"moderation_checked_at": now,
		"moderation_reason":     reason,
		"publish_at":            nil,
		"updated_at":            now,
	}); err != nil {
		w.Logger.Error("❌ Could not record rejection", zap.String("postID", postID), zap.Error(err))
		return ""
	}
	moderationsTotal.WithLabelValues(outcomeRejected).Inc()
	w.Logger.Warn("🚫 Post rejected", zap.String("postID", postID), zap.String("reason", reason))

	w.notifyRejection(ctx, p, reason)
	return outcomeRejected
}

// recordModerationError بدون retry: moderation_checked_at ست می‌شود تا پست
// دوباره انتخاب نشود و پیشوند خطا آن را از فاز انتشار کنار می‌گذارد.
func (w *AutoPublishWorker) recordModerationError(ctx context.Context, postID string, modErr error, now time.Time) string {
	fields := map[string]interface{}{
		"moderation_checked_at": now,
		"moderation_reason":     moderation.ErrorReasonPrefix + modErr.Error(),
		"updated_at":            now,
	}
	if err := w.PostRepo.UpdateFields(ctx, postID, fields); err != nil {
		w.Logger.Error("❌ Could not record moderation error", zap.String("postID", postID), zap.Error(err))
		return ""
	}
	moderationsTotal.WithLabelValues(outcomeError).Inc()
	w.Logger.Warn("⚠️ Moderation failed, post left as draft", zap.String("postID", postID), zap.Error(modErr))
	return outcomeError
}

// recordPanic best effort؛ اگر ثبت هم panic کند پست در tick بعدی دوباره بررسی می‌شود
func (w *AutoPublishWorker) recordPanic(ctx context.Context, postID string, rec interface{}) (outcome string) {
	defer func() {
		if again := recover(); again != nil {
			w.Logger.Error("❌ Could not record moderation panic", zap.String("postID", postID), zap.Any("panic", again))
			outcome = ""
		}
	}()
	return w.recordModerationError(ctx, postID, fmt.Errorf("panic: %v", rec), w.Now())
}

// notifyRejection best effort؛ شکست فقط لاگ می‌شود
func (w *AutoPublishWorker) notifyRejection(ctx context.Context, p *postEntity.Post, reason string) {
	if w.Notifier == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			w.Logger.Error("❌ Rejection notification panicked", zap.String("postID", p.ID.String()), zap.Any("panic", rec))
		}
	}()

	sent := w.Notifier.NotifyRejection(ctx, notificationPort.Rejection{
		PostID:    p.ID.String(),
		PostText:  p.Text,
		UserEmail: w.ownerEmail(ctx, p),
		Reason:    reason,
	})
	notificationsTotal.WithLabelValues(strconv.FormatBool(sent)).Inc()
	if !sent {
		w.Logger.Warn("⚠️ Rejection notification not sent", zap.String("postID", p.ID.String()))
	}
}

// ownerEmail: ایمیل مالک، در غیر این صورت خود client_key، در غیر این صورت "Unknown"
func (w *AutoPublishWorker) ownerEmail(ctx context.Context, p *postEntity.Post) string {
	key := p.ClientKeyValue()
	if key == "" {
		return unknownOwner
	}
	if w.UserRepo != nil {
		owner, err := w.UserRepo.FindByClientKey(ctx, key)
		if err != nil {
			w.Logger.Warn("⚠️ Could not resolve owner email", zap.String("clientKey", key), zap.Error(err))
		} else if owner != nil && owner.Email != "" {
			return owner.Email
		}
	}
	return key
}

// publishDue فاز ۲: انتشار پست‌های تایید شده‌ای که موعدشان رسیده
func (w *AutoPublishWorker) publishDue(ctx context.Context, res *TickResult) error {
	now := w.Now()
	posts, err := w.PostRepo.SelectPendingPublish(ctx, now, w.batch(w.PublishBatch, DefaultPublishBatch))
	if err != nil {
		return fmt.Errorf("select pending publish: %w", err)
	}

	for _, p := range posts {
		postID := p.ID.String()
		ok, err := w.PostRepo.MarkPublished(ctx, postID, now)
		if err != nil {
			w.Logger.Error("❌ Could not publish post", zap.String("postID", postID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		res.Published++
		publishedTotal.Inc()
		w.Logger.Info("📰 Post auto-published", zap.String("postID", postID))
		w.firePublishHook(postID)
	}
	return nil
}

func (w *AutoPublishWorker) firePublishHook(postID string) {
	w.mu.Lock()
	hook := w.onPublish
	w.mu.Unlock()
	if hook == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			w.Logger.Error("❌ Publish hook panicked", zap.String("postID", postID), zap.Any("panic", rec))
		}
	}()
	hook()
}

func (w *AutoPublishWorker) batch(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
