package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/yieldprophet-runner/internal/domain"
	"github.com/couchcryptid/yieldprophet-runner/internal/observability"
	"github.com/couchcryptid/yieldprophet-runner/internal/weather"
)

// BatchExtractor reads up to batchSize raw job messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns one job message into the records to publish for it.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error)
}

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline orchestrates the extract-transform-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int

	// loopBackOff paces retries of failed extracts and loads.
	loopBackOff backoff.BackOff
	// newRetryBackOff bounds retries of a job whose weather provider is unreachable.
	newRetryBackOff func() backoff.BackOff
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:       e,
		transformer:     t,
		loader:          l,
		logger:          logger,
		metrics:         metrics,
		batchSize:       batchSize,
		loopBackOff:     newLoopBackOff(),
		newRetryBackOff: newTransientBackOff,
	}
}

// SetRetryBackOff replaces the policy used to retry jobs that hit a
// transient weather provider failure.
func (p *Pipeline) SetRetryBackOff(fn func() backoff.BackOff) {
	p.newRetryBackOff = fn
}

// CheckReadiness returns nil if the pipeline has processed at least one message,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any messages yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	p.loopBackOff.Reset()

	loaded, ok := p.transformAndLoad(ctx, rawBatch)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// transformAndLoad builds every job in the batch, loads the resulting
// records and commits offsets. A job that fails is replaced by its
// status=error record. Returns the number of loaded records and false if the
// pipeline should stop.
func (p *Pipeline) transformAndLoad(ctx context.Context, rawBatch []domain.RawEvent) (int, bool) {
	outBatch := make([]domain.OutputEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		outs, err := p.transform(ctx, raw)
		if err != nil {
			if ctx.Err() != nil {
				return 0, false
			}
			jobID := jobIDOf(raw)
			p.logger.Error("job failed, publishing error record",
				"error", err,
				"job_id", jobID,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			outBatch = append(outBatch, domain.ErrorEvent(jobID, err))
			continue
		}
		outBatch = append(outBatch, outs...)
	}

	if len(outBatch) == 0 {
		p.commitAll(ctx, rawBatch)
		return 0, true
	}

	for {
		err := p.loader.LoadBatch(ctx, outBatch)
		if err == nil {
			break
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(outBatch))
		if !p.backoffOrStop(ctx) {
			return 0, false
		}
	}
	p.loopBackOff.Reset()

	p.metrics.MessagesProduced.Add(float64(len(outBatch)))
	p.commitAll(ctx, rawBatch)
	return len(outBatch), true
}

// transform runs the transformer, retrying while the weather provider is
// unreachable.
func (p *Pipeline) transform(ctx context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error) {
	var outs []domain.OutputEvent
	op := func() error {
		var err error
		outs, err = p.transformer.Transform(ctx, raw)
		if err != nil && !errors.Is(err, weather.ErrDataSourceUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		p.logger.Warn("weather provider unavailable, retrying job",
			"error", err,
			"job_id", jobIDOf(raw),
			"retry_in", wait,
		)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(p.newRetryBackOff(), ctx), notify); err != nil {
		return nil, err
	}
	return outs, nil
}

// backoffOrStop sleeps for the next loop backoff interval. Returns false if
// the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	return retry.SleepWithContext(ctx, p.loopBackOff.NextBackOff())
}

func (p *Pipeline) commitAll(ctx context.Context, raws []domain.RawEvent) {
	for _, raw := range raws {
		p.commitOffset(ctx, raw)
	}
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// jobIDOf identifies a message's job without decoding it.
func jobIDOf(raw domain.RawEvent) string {
	if id := raw.Headers[domain.HeaderJobID]; id != "" {
		return id
	}
	return string(raw.Key)
}

// newLoopBackOff starts at 200ms, grows to 5s and never gives up.
func newLoopBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// newTransientBackOff retries a job for up to two minutes.
func newTransientBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 15 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	return b
}
