package services

import (
	"context"
	"errors"
	"log/slog"
)

const mailBufferSize = 50

// ErrMailQueueFull is returned when the outbound queue cannot take another message.
var ErrMailQueueFull = errors.New("mail queue full")

type resetMail struct {
	to       string
	resetURL string
}

// MailQueue hands reset mails to a background worker so the request that asked
// for a reset returns in the same time whether or not a mail goes out.
type MailQueue struct {
	next   Mailer
	logger *slog.Logger
	queue  chan resetMail
}

func NewMailQueue(next Mailer, logger *slog.Logger) *MailQueue {
	return &MailQueue{
		next:   next,
		logger: logger,
		queue:  make(chan resetMail, mailBufferSize),
	}
}

// SendPasswordReset queues the message and returns without waiting for delivery.
func (q *MailQueue) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	select {
	case q.queue <- resetMail{to: to, resetURL: resetURL}:
		return nil
	default:
		q.logger.Warn("Mail queue full, dropping reset mail", "to", to)
		return ErrMailQueueFull
	}
}

func (q *MailQueue) Start(ctx context.Context) {
	q.logger.Info("Mail worker started")
	for {
		select {
		case m := <-q.queue:
			q.deliver(ctx, m)
		case <-ctx.Done():
			// Deliver what is already queued.
			flushCtx := context.WithoutCancel(ctx)
			for {
				select {
				case m := <-q.queue:
					q.deliver(flushCtx, m)
				default:
					q.logger.Info("Mail worker stopping")
					return
				}
			}
		}
	}
}

func (q *MailQueue) deliver(ctx context.Context, m resetMail) {
	if err := q.next.SendPasswordReset(ctx, m.to, m.resetURL); err != nil {
		q.logger.Error("Failed to send reset email", "to", m.to, "error", err)
	}
}
