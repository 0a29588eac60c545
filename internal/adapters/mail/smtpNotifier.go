package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"newsdesk/internal/ports/notification"

	"go.uber.org/zap"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// To گیرنده اعلان‌ها؛ اگر خالی باشد به ایمیل مالک پست ارسال می‌شود
	To string
}

func (c Config) configured() bool {
	return c.Host != "" && c.From != ""
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier ارسال ایمیل اعلان رد شدن پست
type SMTPNotifier struct {
	cfg    Config
	logger *zap.Logger
	send   sendFunc
}

func NewSMTPNotifier(cfg Config, logger *zap.Logger) *SMTPNotifier {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPNotifier{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// NotifyRejection never returns an error; every failure is logged and reported as false.
func (n *SMTPNotifier) NotifyRejection(ctx context.Context, r notification.Rejection) (sent bool) {
	defer func() {
		if rec := recover(); rec != nil {
			n.logger.Error("❌ Rejection notification panicked", zap.Any("panic", rec), zap.String("postID", r.PostID))
			sent = false
		}
	}()

	if !n.cfg.configured() {
		n.logger.Warn("⚠️ SMTP not configured, skipping rejection notification", zap.String("postID", r.PostID))
		return false
	}

	to := n.cfg.To
	if to == "" && strings.Contains(r.UserEmail, "@") {
		to = r.UserEmail
	}
	if to == "" {
		n.logger.Warn("⚠️ No recipient for rejection notification", zap.String("postID", r.PostID))
		return false
	}

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))

	if err := n.send(addr, auth, n.cfg.From, []string{to}, buildRejectionMessage(n.cfg.From, to, r)); err != nil {
		n.logger.Error("❌ Failed to send rejection notification", zap.String("postID", r.PostID), zap.Error(err))
		return false
	}

	n.logger.Info("📧 Rejection notification sent", zap.String("postID", r.PostID), zap.String("to", to))
	return true
}

func buildRejectionMessage(from, to string, r notification.Rejection) []byte {
	preview := []rune(r.PostText)
	if len(preview) > 500 {
		preview = append(preview[:500], []rune("...")...)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Post %s rejected by moderation\r\n", r.PostID)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "Post ID: %s\r\n", r.PostID)
	fmt.Fprintf(&b, "Author: %s\r\n", r.UserEmail)
	fmt.Fprintf(&b, "Reason: %s\r\n\r\n", r.Reason)
	b.WriteString(string(preview))
	b.WriteString("\r\n")
	return []byte(b.String())
}
