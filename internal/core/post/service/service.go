package postapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	postEntity "newsdesk/internal/core/post"
	postPort "newsdesk/internal/ports/post"
	userPort "newsdesk/internal/ports/user"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

var ErrEmptyText = errors.New("post text is required")

type PostService struct {
	PostRepository postPort.PostRepository
	UserRepository userPort.UserRepository // برای پیدا کردن مالک از روی client_key
	Logger         *zap.Logger

	// DelayHours فاصله پیش‌فرض تا انتشار خودکار
	DelayHours int
	Now        func() time.Time

	invalidateFeed func()
}

func NewPostService(
	postRepo postPort.PostRepository,
	userRepo userPort.UserRepository,
	delayHours int,
	logger *zap.Logger,
) *PostService {
	if delayHours <= 0 {
		delayHours = DefaultDelayHours
	}
	return &PostService{
		PostRepository: postRepo,
		UserRepository: userRepo,
		Logger:         logger,
		DelayHours:     delayHours,
		Now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetFeedInvalidator hook called after an editor publishes, archives or deletes a published post.
func (s *PostService) SetFeedInvalidator(fn func()) {
	s.invalidateFeed = fn
}

// CreatePost ذخیره پست ingestion به صورت draft و زمان‌بندی انتشار خودکار در صورت فعال بودن برای مالک
func (s *PostService) CreatePost(ctx context.Context, in postPort.CreatePostInput) (*postPort.CreatePostResult, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, ErrEmptyText
	}

	p := &postEntity.Post{
		ID:         uuid.Must(uuid.NewV4()),
		Title:      strings.TrimSpace(in.Title),
		Text:       in.Text,
		CoverImage: in.CoverImage,
		Status:     postEntity.StatusDraft,
	}
	if key := strings.TrimSpace(in.ClientKey); key != "" {
		p.ClientKey = &key
	}

	created, err := s.PostRepository.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	s.Logger.Info("📝 Created post", zap.String("postID", created.ID.String()), zap.String("clientKey", created.ClientKeyValue()))

	result := &postPort.CreatePostResult{Post: postPort.ToDTO(created)}
	if created.ClientKey == nil {
		return result, nil
	}

	owner, err := s.UserRepository.FindByClientKey(ctx, *created.ClientKey)
	if err != nil {
		// پست ساخته شده؛ خطای lookup فقط زمان‌بندی را لغو می‌کند
		s.Logger.Warn("⚠️ Could not resolve post owner", zap.String("clientKey", *created.ClientKey), zap.Error(err))
		return result, nil
	}
	if owner == nil || !owner.AutoPublishEnabled {
		return result, nil
	}

	publishAt, err := s.ScheduleAutoPublish(ctx, created.ID.String(), s.DelayHours)
	if err != nil {
		s.Logger.Error("❌ Could not schedule auto-publish", zap.String("postID", created.ID.String()), zap.Error(err))
		return result, nil
	}

	result.AutoPublishScheduled = true
	result.PublishAt = &publishAt
	result.Post.PublishAt = &publishAt
	return result, nil
}

func (s *PostService) GetPost(ctx context.Context, id string) (*postPort.PostDTO, error) {
	p, err := s.PostRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return postPort.ToDTO(p), nil
}

func (s *PostService) ListPosts(ctx context.Context, status string, page, limit int) (*postPort.PostListDTO, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	posts, total, err := s.PostRepository.List(ctx, postEntity.Status(status), (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	items := make([]*postPort.PostDTO, 0, len(posts))
	for _, p := range posts {
		items = append(items, postPort.ToDTO(p))
	}
	return &postPort.PostListDTO{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *PostService) UpdatePost(ctx context.Context, id string, in postPort.UpdatePostInput) (*postPort.PostDTO, error) {
	fields := map[string]interface{}{}
	if in.Title != nil {
		fields["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Text != nil {
		if strings.TrimSpace(*in.Text) == "" {
			return nil, ErrEmptyText
		}
		fields["text"] = *in.Text
	}
	if in.CoverImage != nil {
		fields["cover_image"] = *in.CoverImage
	}
	if len(fields) == 0 {
		return s.GetPost(ctx, id)
	}

	p, err := s.PostRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	fields["updated_at"] = s.Now()
	if err := s.PostRepository.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	// محتوای فید عوض شده
	if p.Status == postEntity.StatusPublished {
		s.feedChanged()
	}
	return s.GetPost(ctx, id)
}

// PublishPost انتشار دستی توسط ویراستار
func (s *PostService) PublishPost(ctx context.Context, id string) (*postPort.PostDTO, error) {
	p, err := s.PostRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !postEntity.CanTransition(p.Status, postEntity.StatusPublished) {
		return nil, fmt.Errorf("%w: %s -> %s", postEntity.ErrInvalidTransition, p.Status, postEntity.StatusPublished)
	}

	ok, err := s.PostRepository.MarkPublished(ctx, id, s.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, postEntity.ErrInvalidTransition
	}
	s.Logger.Info("✅ Post published by editor", zap.String("postID", id))
	s.feedChanged()

	return s.GetPost(ctx, id)
}

func (s *PostService) ArchivePost(ctx context.Context, id string) (*postPort.PostDTO, error) {
	p, err := s.PostRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !postEntity.CanTransition(p.Status, postEntity.StatusArchived) {
		return nil, fmt.Errorf("%w: %s -> %s", postEntity.ErrInvalidTransition, p.Status, postEntity.StatusArchived)
	}

	if err := s.PostRepository.UpdateFields(ctx, id, map[string]interface{}{
		"status":     postEntity.StatusArchived,
		"updated_at": s.Now(),
	}); err != nil {
		return nil, err
	}
	if p.Status == postEntity.StatusPublished {
		s.feedChanged()
	}
	return s.GetPost(ctx, id)
}

func (s *PostService) DeletePost(ctx context.Context, id string) error {
	p, err := s.PostRepository.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.PostRepository.Delete(ctx, id); err != nil {
		return err
	}
	if p.Status == postEntity.StatusPublished {
		s.feedChanged()
	}
	return nil
}

func (s *PostService) feedChanged() {
	if s.invalidateFeed != nil {
		s.invalidateFeed()
	}
}
