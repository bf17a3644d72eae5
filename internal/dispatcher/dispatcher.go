// Package dispatcher delivers alert events to the remote collector without
// ever blocking the scan cadence. Events flow through a bounded queue drained
// by an independent goroutine; delivery uses one JSON POST per event with
// exponential backoff retries. The queue-full policy is evict-oldest: when
// the queue is full the oldest undelivered event is written to the fallback
// log and removed, so a dead collector can never stall scanning.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aegis-sec/aegisfim/internal/config"
	"github.com/aegis-sec/aegisfim/internal/models"
)

// Dispatcher owns the alert queue and the delivery worker.
type Dispatcher struct {
	cfg      config.AlertsConfig
	logger   zerolog.Logger
	client   *http.Client
	retry    *RetryHandler
	fallback *FallbackLog

	queue chan models.AlertEvent

	mu     sync.Mutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher; Start must be called before events are
// drained.
func NewDispatcher(cfg config.AlertsConfig, logger zerolog.Logger) (*Dispatcher, error) {
	fallback, err := NewFallbackLog(cfg.FallbackLogPath, logger)
	if err != nil {
		return nil, err
	}

	instanceLogger := logger.With().Str("component", "AlertDispatcher").Logger()
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		cfg:    cfg,
		logger: instanceLogger,
		client: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSecs) * time.Second,
		},
		retry:    NewRetryHandler(cfg.Retry, instanceLogger),
		fallback: fallback,
		queue:    make(chan models.AlertEvent, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start launches the delivery worker.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
	d.logger.Info().
		Int("queue_size", d.cfg.QueueSize).
		Str("collector_url", d.cfg.CollectorURL).
		Msg("Alert dispatcher started")
}

// Enqueue adds an event to the delivery queue. When the queue is full the
// oldest undelivered event is evicted to the fallback log first, so Enqueue
// never blocks the caller.
func (d *Dispatcher) Enqueue(ev models.AlertEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return models.ErrQueueClosed
	}

	for {
		select {
		case d.queue <- ev:
			return nil
		default:
		}

		// Queue full: evict the oldest event, then retry the send. The
		// worker may race us for the receive, in which case space opened
		// up anyway.
		select {
		case oldest := <-d.queue:
			d.fallback.Record(oldest, DropReasonEvicted)
		default:
		}
	}
}

// Stop closes the queue and waits for the worker to drain every remaining
// event (each still gets its delivery attempts). Enqueue fails with
// ErrQueueClosed afterwards.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	if err := d.fallback.Close(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to close fallback log")
	}
	d.logger.Info().Msg("Alert dispatcher stopped")
}

// Abort cancels in-flight backoff waits before stopping; remaining events are
// dropped to the fallback log with reason "shutdown" instead of being
// delivered.
func (d *Dispatcher) Abort() {
	d.cancel()
	d.Stop()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for ev := range d.queue {
		if d.ctx.Err() != nil {
			d.fallback.Record(ev, DropReasonShutdown)
			continue
		}
		d.deliver(ev)
	}
}

// deliver attempts delivery with retries; on exhaustion the event is recorded
// in the fallback log and dropped.
func (d *Dispatcher) deliver(ev models.AlertEvent) {
	if d.cfg.CollectorURL == "" {
		d.fallback.Record(ev, DropReasonNoCollector)
		return
	}

	for attempt := 0; ; attempt++ {
		err := d.post(ev)
		if err == nil {
			d.logger.Debug().
				Str("path", ev.Path).
				Str("event_type", string(ev.Type)).
				Int("attempt", attempt+1).
				Msg("Alert delivered")
			return
		}

		if attempt >= d.retry.MaxRetries() {
			d.logger.Error().Err(err).
				Str("path", ev.Path).
				Int("attempts", attempt+1).
				Msg("Alert delivery retries exhausted")
			d.fallback.Record(ev, DropReasonRetriesExhausted)
			return
		}

		if waitErr := d.retry.WaitForRetry(d.ctx, attempt, ev.Path); waitErr != nil {
			d.fallback.Record(ev, DropReasonShutdown)
			return
		}
	}
}

// post sends one event as a single JSON payload. Any 2xx response counts as
// the collector's acknowledgment; anything else is a delivery failure.
func (d *Dispatcher) post(ev models.AlertEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	req, err := http.NewRequestWithContext(d.ctx, http.MethodPost, d.cfg.CollectorURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build collector request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("collector request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned status %d", resp.StatusCode)
	}
	return nil
}
