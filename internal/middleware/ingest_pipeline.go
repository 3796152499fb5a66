package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CardPulse/internal/domain/models"
	domrepo "CardPulse/internal/domain/repository"
)

// Ingester is the minimal downstream interface the pipeline needs.
type Ingester interface {
	Ingest(ctx context.Context, obs *models.PriceObservation) (models.IngestStats, error)
}

// IngestPipeline is a middleware between the observation feed and the
// snapshot store. It filters obviously malformed records, throttles
// per-venue bursts from misbehaving scrapers, and buffers when the
// downstream store is unavailable.
type IngestPipeline struct {
	ing      Ingester
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.PriceObservation
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-venue last accepted time
	// optional normalization hook
	transform func(*models.PriceObservation) *models.PriceObservation
}

type PipelineOption func(*IngestPipeline)

// WithMaxRPS sets the max accepted observations per second per venue.
func WithMaxRPS(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the retry buffer size used when downstream fails.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a normalization hook applied before validation.
func WithTransform(fn func(*models.PriceObservation) *models.PriceObservation) PipelineOption {
	return func(p *IngestPipeline) { p.transform = fn }
}

// NewIngestPipeline creates a new pipeline.
func NewIngestPipeline(ing Ingester, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		ing:      ing,
		metrics:  metrics,
		maxRPS:   50,   // default throttle per venue
		bufSize:  2000, // default buffer
		bufCh:    make(chan *models.PriceObservation, 2000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.PriceObservation, p.bufSize)
	}
	return p
}

// Start launches background flushing of buffered observations.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case obs := <-p.bufCh:
				if obs == nil {
					continue
				}
				if _, err := p.ing.Ingest(ctx, obs); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- obs:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards an observation downstream,
// buffering on errors. The downstream ingest owns the skip+count
// semantics for bad prices; the pipeline only rejects records that
// cannot be attributed at all.
func (p *IngestPipeline) Process(ctx context.Context, obs *models.PriceObservation) error {
	start := time.Now()
	if err := validateObservation(obs); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		obs = p.transform(obs)
		if err := validateObservation(obs); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.allow(obs.VenueID, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if _, err := p.ing.Ingest(ctx, obs); err != nil {
		p.metrics.RecordError("pipeline_ingest")
		// buffer non-blocking
		select {
		case p.bufCh <- obs:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateObservation(obs *models.PriceObservation) error {
	if obs == nil {
		return fmt.Errorf("observation nil")
	}
	if obs.CardID == "" {
		return fmt.Errorf("card_id empty")
	}
	if obs.VenueID == "" {
		return fmt.Errorf("venue_id empty")
	}
	if obs.Time.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	return nil
}

func (p *IngestPipeline) allow(venue string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[venue]
	if last.IsZero() {
		p.lastSeen[venue] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[venue] = now
	return true
}
