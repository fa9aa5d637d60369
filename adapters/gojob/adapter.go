package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-billing/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

// RetryPolicy bounds queue retry behavior so a failing job cannot loop
// forever.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// Normalize enforces the policy bounds for a nack at the given attempt.
func (p RetryPolicy) Normalize(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.Disposition == "" {
		out.Disposition = queue.NackDispositionRetry
	}
	if out.Disposition == queue.NackDispositionRetry && p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		if p.DeadLetterOnMax {
			out.Disposition = queue.NackDispositionDeadLetter
		} else {
			out.Disposition = queue.NackDispositionFailed
		}
	}
	if out.Disposition != queue.NackDispositionRetry {
		out.Delay = 0
	}
	return out
}

// ToExecutionMessage maps a billing job request onto the go-job execution
// contract. The account id, when present, becomes part of the idempotency
// key so the queue collapses duplicate submissions for the same account.
func ToExecutionMessage(request core.JobRequest) *job.ExecutionMessage {
	return &job.ExecutionMessage{
		JobID:          strings.TrimSpace(request.Name),
		Parameters:     copyAnyMap(request.Payload),
		IdempotencyKey: idempotencyKey(request),
		DedupPolicy:    job.DeduplicationPolicy("drop"),
	}
}

// FromExecutionMessage maps a go-job message back to the billing contract.
func FromExecutionMessage(msg *job.ExecutionMessage) core.JobRequest {
	if msg == nil {
		return core.JobRequest{}
	}
	return core.JobRequest{
		Name:    strings.TrimSpace(msg.JobID),
		Payload: copyAnyMap(msg.Parameters),
	}
}

func idempotencyKey(request core.JobRequest) string {
	accountID, _ := request.Payload["account_id"].(string)
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return ""
	}
	return strings.TrimSpace(request.Name) + ":" + accountID
}

// SubmitterAdapter satisfies core.JobSubmitter over a go-job enqueuer.
type SubmitterAdapter struct {
	enqueuer queue.Enqueuer
}

func NewSubmitterAdapter(enqueuer queue.Enqueuer) *SubmitterAdapter {
	return &SubmitterAdapter{enqueuer: enqueuer}
}

func (a *SubmitterAdapter) Submit(ctx context.Context, request core.JobRequest) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if strings.TrimSpace(request.Name) == "" {
		return fmt.Errorf("gojob: job name is required")
	}
	if _, err := a.enqueuer.Enqueue(ctx, ToExecutionMessage(request)); err != nil {
		return fmt.Errorf("gojob: enqueue %q: %w", request.Name, err)
	}
	return nil
}

// HandlerFunc processes one job payload. Returning an error nacks the
// delivery under the consumer's retry policy.
type HandlerFunc func(ctx context.Context, payload map[string]any) error

// Consumer drains a go-job queue and dispatches deliveries to registered
// billing handlers by job name.
type Consumer struct {
	dequeuer queue.Dequeuer
	policy   RetryPolicy
	logger   glog.Logger
	handlers map[string]HandlerFunc
	attempts map[string]int
}

func NewConsumer(dequeuer queue.Dequeuer, policy RetryPolicy, logger glog.Logger) *Consumer {
	return &Consumer{
		dequeuer: dequeuer,
		policy:   policy,
		logger:   logger,
		handlers: map[string]HandlerFunc{},
		attempts: map[string]int{},
	}
}

func (c *Consumer) Register(jobName string, handler HandlerFunc) error {
	if c == nil {
		return fmt.Errorf("gojob: consumer is not configured")
	}
	jobName = strings.TrimSpace(jobName)
	if jobName == "" {
		return fmt.Errorf("gojob: job name is required")
	}
	if handler == nil {
		return fmt.Errorf("gojob: handler is required")
	}
	if _, exists := c.handlers[jobName]; exists {
		return fmt.Errorf("gojob: handler already registered for %q", jobName)
	}
	c.handlers[jobName] = handler
	return nil
}

// Run drains the queue until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil || c.dequeuer == nil {
		return fmt.Errorf("gojob: dequeuer is not configured")
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delivery, err := c.dequeuer.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		c.ProcessDelivery(ctx, delivery)
	}
}

// ProcessDelivery dispatches a single delivery. Unknown job names are
// dead-lettered immediately; handler failures nack under the retry policy.
func (c *Consumer) ProcessDelivery(ctx context.Context, delivery queue.Delivery) {
	if c == nil || delivery == nil {
		return
	}
	msg := delivery.Message()
	if msg == nil {
		_ = delivery.Nack(ctx, queue.NackOptions{Disposition: queue.NackDispositionDeadLetter, Reason: "empty delivery"})
		return
	}

	jobName := strings.TrimSpace(msg.JobID)
	handler, ok := c.handlers[jobName]
	if !ok {
		c.logError("unknown job", "job", jobName)
		_ = delivery.Nack(ctx, queue.NackOptions{Disposition: queue.NackDispositionDeadLetter, Reason: "no handler for " + jobName})
		return
	}

	attemptKey := c.attemptKey(msg, jobName)
	c.attempts[attemptKey]++
	attempt := c.attempts[attemptKey]

	if err := handler(ctx, copyAnyMap(msg.Parameters)); err != nil {
		c.logError("job failed", "job", jobName, "attempt", attempt, "error", err)
		opts := c.policy.Normalize(queue.NackOptions{Disposition: queue.NackDispositionRetry, Reason: err.Error()}, attempt)
		_ = delivery.Nack(ctx, opts)
		return
	}

	delete(c.attempts, attemptKey)
	if err := delivery.Ack(ctx); err != nil {
		c.logError("job ack failed", "job", jobName, "error", err)
	}
}

func (c *Consumer) attemptKey(msg *job.ExecutionMessage, jobName string) string {
	if key := strings.TrimSpace(msg.IdempotencyKey); key != "" {
		return key
	}
	return jobName
}

func (c *Consumer) logError(message string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Error(message, args...)
}

// LoggingHook reports worker lifecycle events through the billing logger.
type LoggingHook struct {
	logger glog.Logger
}

func NewLoggingHook(logger glog.Logger) *LoggingHook {
	return &LoggingHook{logger: logger}
}

func (h *LoggingHook) OnStart(_ context.Context, event worker.Event) {
	if h == nil || h.logger == nil {
		return
	}
	h.logger.Debug("job started", "job", eventJobID(event))
}

func (h *LoggingHook) OnSuccess(_ context.Context, event worker.Event) {
	if h == nil || h.logger == nil {
		return
	}
	h.logger.Info("job completed", "job", eventJobID(event), "duration", event.Duration)
}

func (h *LoggingHook) OnFailure(_ context.Context, event worker.Event) {
	if h == nil || h.logger == nil {
		return
	}
	h.logger.Error("job failed", "job", eventJobID(event), "attempt", event.Attempt, "error", event.Err)
}

func (h *LoggingHook) OnRetry(_ context.Context, event worker.Event) {
	if h == nil || h.logger == nil {
		return
	}
	h.logger.Warn("job retry scheduled",
		"job", eventJobID(event),
		"attempt", event.Attempt,
		"delay", event.Delay,
		"error", event.Err,
	)
}

func eventJobID(event worker.Event) string {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	if message == nil {
		return ""
	}
	return message.JobID
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var (
	_ core.JobSubmitter = (*SubmitterAdapter)(nil)
	_ worker.Hook       = (*LoggingHook)(nil)
)
