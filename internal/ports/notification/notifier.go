package notification

import "context"

// Rejection اطلاعات ارسالی برای اعلان رد شدن پست
type Rejection struct {
	PostID    string
	PostText  string
	UserEmail string
	Reason    string
}

// Notifier is best effort: failures are logged by the implementation and
// reported as false, never as an error.
type Notifier interface {
	NotifyRejection(ctx context.Context, r Rejection) bool
}
