package postapp

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const DefaultDelayHours = 6

// ScheduleAutoPublish stamps publish_at = now + delayHours on the post and
// returns the deadline. delayHours <= 0 means DefaultDelayHours. Calling it
// again simply overwrites publish_at.
func (s *PostService) ScheduleAutoPublish(ctx context.Context, postID string, delayHours int) (time.Time, error) {
	if delayHours <= 0 {
		delayHours = DefaultDelayHours
	}
	publishAt := s.Now().Add(time.Duration(delayHours) * time.Hour)

	if err := s.PostRepository.UpdateFields(ctx, postID, map[string]interface{}{
		"publish_at": publishAt,
	}); err != nil {
		return time.Time{}, fmt.Errorf("schedule auto-publish for %s: %w", postID, err)
	}

	s.Logger.Info("⏰ Auto-publish scheduled", zap.String("postID", postID), zap.Time("publishAt", publishAt))
	return publishAt, nil
}
