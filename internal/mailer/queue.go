package mailer

import (
	"context"
	"encoding/json"

	"github.com/mernauth/authserver/internal/mq"
)

// QueueSender publishes mail jobs to a queue instead of sending them
// inline. A mail worker consumes the queue and delivers over SMTP.
type QueueSender struct {
	mq    *mq.MQ
	queue string
}

// NewQueueSender constructs a QueueSender publishing to the named queue.
func NewQueueSender(q *mq.MQ, queue string) *QueueSender {
	return &QueueSender{mq: q, queue: queue}
}

// Send enqueues the email as a JSON job.
func (s *QueueSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	data, err := json.Marshal(Job{To: to, Subject: subject, HTMLBody: htmlBody})
	if err != nil {
		return err
	}
	_, err = s.mq.Publish(ctx, s.queue, data)
	return err
}

// Consume subscribes to the queue and delivers each job with the given
// mailer. It blocks until ctx is done.
func Consume(ctx context.Context, q *mq.MQ, queue string, delivery Mailer) error {
	return q.Subscribe(ctx, queue, func(ctx context.Context, msg mq.Message) error {
		var job Job
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			// Malformed jobs are dropped, not retried.
			return nil
		}
		return delivery.Send(ctx, job.To, job.Subject, job.HTMLBody)
	})
}
