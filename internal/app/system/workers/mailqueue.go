// internal/app/system/workers/mailqueue.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/fiiportal/internal/app/system/mailer"
	"go.uber.org/zap"
)

// MailObserver is told about every send attempt (metrics).
type MailObserver interface {
	MailSent(ok bool)
}

// MailQueue sends emails on a background goroutine so request handlers
// never wait on the mail provider.
type MailQueue struct {
	sender   mailer.Sender
	log      *zap.Logger
	obs      MailObserver
	timeout  time.Duration
	queue    chan mailer.Email
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	// mu orders Enqueue against Stop: once stopped is set no send can land,
	// so the drain in run sees every accepted email.
	mu      sync.Mutex
	stopped bool
}

// NewMailQueue creates a queue holding up to size pending emails. Each send
// gets its own timeout.
func NewMailQueue(sender mailer.Sender, size int, timeout time.Duration, obs MailObserver, logger *zap.Logger) *MailQueue {
	if size <= 0 {
		size = 256
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &MailQueue{
		sender:  sender,
		log:     logger,
		obs:     obs,
		timeout: timeout,
		queue:   make(chan mailer.Email, size),
		stopCh:  make(chan struct{}),
	}
}

// Start begins the send loop.
func (q *MailQueue) Start() {
	q.wg.Add(1)
	go q.run()
	q.log.Info("mail queue started", zap.Int("capacity", cap(q.queue)))
}

// Stop drains what is already queued, then returns.
func (q *MailQueue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()

	q.stopOnce.Do(func() { close(q.stopCh) })
	q.wg.Wait()
	q.log.Info("mail queue stopped")
}

// Enqueue adds e without blocking. It returns false and logs a warning when
// the queue is full or stopped.
func (q *MailQueue) Enqueue(e mailer.Email) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		q.log.Warn("mail queue stopped, email dropped", zap.String("to", e.To))
		return false
	}
	select {
	case q.queue <- e:
		return true
	default:
		q.log.Warn("mail queue full, email dropped",
			zap.String("to", e.To),
			zap.String("subject", e.Subject))
		return false
	}
}

// Len reports how many emails are waiting.
func (q *MailQueue) Len() int { return len(q.queue) }

func (q *MailQueue) run() {
	defer q.wg.Done()
	for {
		select {
		case e := <-q.queue:
			q.send(e)
		case <-q.stopCh:
			for {
				select {
				case e := <-q.queue:
					q.send(e)
				default:
					return
				}
			}
		}
	}
}

func (q *MailQueue) send(e mailer.Email) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	err := q.sender.Send(ctx, e)
	if q.obs != nil {
		q.obs.MailSent(err == nil)
	}
	if err != nil {
		q.log.Error("send email failed",
			zap.String("to", e.To),
			zap.String("subject", e.Subject),
			zap.Error(err))
	}
}
