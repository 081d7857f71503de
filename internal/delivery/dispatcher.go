// Package delivery posts webhook messages into conversations in the background,
// after the webhook request has been answered.
package delivery

import (
	"context"
	"sync"
	"time"

	"webhook-gateway/internal/activity"
	"webhook-gateway/internal/bot"
	"webhook-gateway/internal/common/errors"
	"webhook-gateway/internal/common/logging"
	"webhook-gateway/internal/metrics"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 100

	deliveryTimeout = 30 * time.Second
)

var (
	// ErrQueueFull is returned when no queue slot freed up before the caller gave up
	ErrQueueFull = errors.UnavailableError("Too many pending deliveries, try again later")
	// ErrClosed is returned once Shutdown has been called
	ErrClosed = errors.UnavailableError("The server is shutting down")
)

// Sender delivers activities into conversations
type Sender interface {
	Send(ctx context.Context, addr bot.Address, a *activity.Activity) (*bot.ResourceResponse, error)
}

// Job is one message to deliver
type Job struct {
	WebhookID string
	RequestID string
	Address   bot.Address
	Message   *activity.Activity
}

// Dispatcher runs a fixed number of workers over a bounded queue. A failed
// delivery is logged and dropped.
type Dispatcher struct {
	sender  Sender
	workers int
	queue   chan Job
	done    chan struct{}
	logger  logging.Logger

	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a dispatcher. Call Start to run the workers.
func New(sender Sender, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		sender:  sender,
		workers: workers,
		queue:   make(chan Job, queueSize),
		done:    make(chan struct{}),
		logger:  logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "delivery"}),
	}
}

// Start launches the workers
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.work()
		}
		d.logger.Info("Delivery workers started",
			logging.Field{Key: "workers", Value: d.workers},
			logging.Field{Key: "queue_size", Value: cap(d.queue)},
		)
	})
}

// Submit queues job, waiting for a free slot until ctx ends
func (d *Dispatcher) Submit(ctx context.Context, job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- job:
		metrics.DeliveryQueueDepth.Inc()
		return nil
	case <-d.done:
		return ErrClosed
	case <-ctx.Done():
		d.logger.WithContext(ctx).Warn("Delivery queue is full",
			logging.Field{Key: "webhook_id", Value: job.WebhookID},
		)
		return ErrQueueFull
	}
}

// Pending returns the number of queued jobs
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Shutdown stops accepting jobs and waits until the queued ones are delivered
// or ctx ends
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.closeOnce.Do(func() {
		// Release submitters blocked on a full queue before taking the write lock
		close(d.done)
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.queue)
	})
	// Workers that never started would leave the queue undrained
	d.Start()

	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		d.logger.Info("Delivery workers stopped")
		return nil
	case <-ctx.Done():
		d.logger.Warn("Shutdown interrupted with deliveries pending",
			logging.Field{Key: "pending", Value: len(d.queue)},
		)
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for job := range d.queue {
		metrics.DeliveryQueueDepth.Dec()
		d.deliver(job)
	}
}

func (d *Dispatcher) deliver(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	if job.RequestID != "" {
		ctx = logging.ContextWithRequestID(ctx, job.RequestID)
	}

	start := time.Now()
	_, err := d.sender.Send(ctx, job.Address, job.Message)
	metrics.Deliveries.WithLabelValues("webhook", metrics.Result(err)).Inc()

	logger := d.logger.WithContext(ctx).WithFields(
		logging.Field{Key: "webhook_id", Value: job.WebhookID},
		logging.Field{Key: "duration", Value: time.Since(start)},
	)
	if err != nil {
		logger.Error("Webhook delivery failed", err)
		return
	}
	logger.Debug("Webhook message delivered")
}
