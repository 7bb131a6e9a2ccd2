package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teshub/teshub-api/pkg/jobs"
	"github.com/teshub/teshub-api/pkg/mailer"
)

type mailPayload struct {
	To      string
	Subject string
	Body    string
}

// MailService delivers outbound mail through the background queue so
// request handlers never block on SMTP.
type MailService struct {
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewMailService wires the sender behind a worker queue.
func NewMailService(sender mailer.Sender, workers int, metrics *MetricsService, logger *zap.Logger) *MailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(mailPayload)
		if !ok {
			return fmt.Errorf("unexpected mail payload type %T", job.Payload)
		}
		return sender.Send(payload.To, payload.Subject, payload.Body)
	}
	queue := jobs.NewQueue("mail", handler, jobs.QueueConfig{
		Workers: workers,
		Logger:  logger,
	})
	return &MailService{queue: queue, metrics: metrics, logger: logger}
}

// Start launches the delivery workers.
func (s *MailService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *MailService) Stop() {
	s.queue.Stop()
}

// Enqueue schedules one message for delivery.
func (s *MailService) Enqueue(to, subject, body string) error {
	if err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "mail",
		Payload: mailPayload{To: to, Subject: subject, Body: body},
	}); err != nil {
		return err
	}
	s.metrics.RecordMailEnqueued()
	return nil
}
