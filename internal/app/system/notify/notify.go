// internal/app/system/notify/notify.go
//
// Package notify fans portal events out to subscribers as in-app
// notifications and queued emails.
package notify

import (
	"context"
	"fmt"
	"strings"

	notificationstore "github.com/dalemusser/fiiportal/internal/app/store/notifications"
	subscriberstore "github.com/dalemusser/fiiportal/internal/app/store/subscribers"
	"github.com/dalemusser/fiiportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/fiiportal/internal/app/system/mailer"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"go.uber.org/zap"
)

// batchSize bounds one InsertMany.
const batchSize = 500

// Enqueuer accepts emails for asynchronous delivery.
type Enqueuer interface {
	Enqueue(e mailer.Email) bool
}

// Counter observes created notifications.
type Counter interface {
	Notified(n int)
}

// Result summarizes one fan-out.
type Result struct {
	Notified int `json:"notified"`
	Emailed  int `json:"emailed"`
}

// Notifier writes notifications and queues emails.
type Notifier struct {
	Subs     *subscriberstore.Store
	Notes    *notificationstore.Store
	Mail     Enqueuer // nil disables email
	Counter  Counter  // may be nil
	SiteName string
	BaseURL  string
	Log      *zap.Logger
}

// Link returns the absolute portal URL for a path.
func (n *Notifier) Link(path string) string {
	return strings.TrimRight(n.BaseURL, "/") + path
}

// Message is the content of one fan-out.
type Message struct {
	Type    string
	Kind    string // "video", "report" or "" in emails
	Title   string
	Message string
	Link    string
	Email   bool
}

// ContentPublished announces a newly published video or report to every
// subscriber. Opted-in subscribers with an email also get an email.
func (n *Notifier) ContentPublished(ctx context.Context, kind string, id, title, summary string) (Result, error) {
	m := Message{Kind: kind, Title: title, Email: true}
	switch kind {
	case models.TargetVideo:
		m.Type = models.NotificationNewVideo
		m.Message = "Novo vídeo publicado"
		m.Link = n.Link("/videos/" + id)
	case models.TargetReport:
		m.Type = models.NotificationNewReport
		m.Message = "Novo relatório publicado"
		m.Link = n.Link("/reports/" + id)
	default:
		return Result{}, fmt.Errorf("notify: unknown content kind %q", kind)
	}
	if s := htmlsanitize.PlainText(summary); s != "" {
		m.Message = truncate(s, 200)
	}
	return n.FanOut(ctx, m)
}

// FanOut sends m to every subscriber.
func (n *Notifier) FanOut(ctx context.Context, m Message) (Result, error) {
	var res Result
	batch := make([]models.Notification, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		created, err := n.Notes.CreateMany(ctx, batch)
		res.Notified += created
		n.count(created)
		batch = batch[:0]
		return err
	}

	err := n.Subs.Each(ctx, func(s models.Subscriber) error {
		batch = append(batch, n.notification(s.UserID, m))
		if m.Email && n.email(s, m) {
			res.Emailed++
		}
		if len(batch) == batchSize {
			return flush()
		}
		return nil
	})
	if ferr := flush(); err == nil {
		err = ferr
	}
	if err != nil {
		return res, fmt.Errorf("notify: fan-out: %w", err)
	}
	n.Log.Info("notifications sent",
		zap.String("type", m.Type),
		zap.String("title", m.Title),
		zap.Int("notified", res.Notified),
		zap.Int("emailed", res.Emailed))
	return res, nil
}

// ToUser sends m to a single member. The email goes out only when the
// member is a subscriber who opted in.
func (n *Notifier) ToUser(ctx context.Context, userID string, m Message) (Result, error) {
	var res Result
	if _, err := n.Notes.Create(ctx, n.notification(userID, m)); err != nil {
		return res, fmt.Errorf("notify: %w", err)
	}
	res.Notified = 1
	n.count(1)
	if m.Email {
		if s, err := n.Subs.GetByUserID(ctx, userID); err == nil && n.email(s, m) {
			res.Emailed = 1
		}
	}
	return res, nil
}

// Reply tells a comment author that someone answered them. Replies to
// oneself are ignored.
func (n *Notifier) Reply(ctx context.Context, parent, reply models.Comment, link string) error {
	if parent.UserID == reply.UserID {
		return nil
	}
	_, err := n.ToUser(ctx, parent.UserID, Message{
		Type:    models.NotificationReply,
		Title:   reply.UserName + " respondeu ao seu comentário",
		Message: truncate(reply.Content, 200),
		Link:    link,
	})
	return err
}

func (n *Notifier) notification(userID string, m Message) models.Notification {
	return models.Notification{
		UserID:  userID,
		Type:    m.Type,
		Title:   m.Title,
		Message: m.Message,
		Link:    m.Link,
	}
}

func (n *Notifier) email(s models.Subscriber, m Message) bool {
	if n.Mail == nil || !s.EmailOptIn || s.Email == "" {
		return false
	}
	e := mailer.BuildContentEmail(s.Email, mailer.ContentEmailData{
		SiteName: n.SiteName,
		Kind:     m.Kind,
		Title:    m.Title,
		Summary:  m.Message,
		Link:     m.Link,
		Name:     s.Name,
	})
	return n.Mail.Enqueue(e)
}

func (n *Notifier) count(c int) {
	if n.Counter != nil {
		n.Counter.Notified(c)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max-1])) + "…"
}
