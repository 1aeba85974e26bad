// Package pipeline runs the tracking loop: extract detected-object frames,
// accumulate per-type track records, and flush them to the sink whenever the
// write gate opens.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-track-service/internal/domain"
	"github.com/couchcryptid/storm-track-service/internal/observability"
	"github.com/couchcryptid/storm-track-service/internal/options"
)

// BatchExtractor reads up to batchSize raw frames from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawFrame, error)
}

// Flusher writes flush events to the destination.
type Flusher interface {
	FlushBatch(ctx context.Context, events []domain.OutputEvent) error
}

// FlushPayload is the JSON body of one flush event: every record accumulated
// for an object type since the previous persistence event.
type FlushPayload struct {
	ObjectType  string               `json:"object_type"`
	WindowStart time.Time            `json:"window_start"`
	FlushedAt   time.Time            `json:"flushed_at"`
	Records     []domain.TrackRecord `json:"records"`
}

// objectConfig pairs an object type with its gate options. The gate value
// is passed to domain.ShouldWrite as-is, so it may be a structured
// options.ObjectOptions or a loosely-typed mapping.
type objectConfig struct {
	name string
	gate any
}

// Tracker orchestrates the extract-accumulate-flush loop.
type Tracker struct {
	extractor BatchExtractor
	flusher   Flusher
	objects   []objectConfig
	logger    *slog.Logger
	metrics   *observability.Metrics

	states map[string]*domain.TrackState
	seen   *dedupeCache
	ready  atomic.Bool

	batchSize int
}

// New creates a Tracker with the given stages and observability. One
// TrackState is created per object type in opts; frames mentioning unknown
// object types are logged and skipped.
func New(e BatchExtractor, f Flusher, opts options.TrackOptions, logger *slog.Logger, metrics *observability.Metrics, batchSize, dedupeSize int) *Tracker {
	states := make(map[string]*domain.TrackState)
	var objects []objectConfig
	for _, level := range opts.Levels {
		for _, obj := range level.Objects {
			states[obj.Name] = &domain.TrackState{Name: obj.Name}
			objects = append(objects, objectConfig{name: obj.Name, gate: obj})
		}
	}
	return &Tracker{
		extractor: e,
		flusher:   f,
		objects:   objects,
		logger:    logger,
		metrics:   metrics,
		states:    states,
		seen:      newDedupeCache(dedupeSize),
		batchSize: batchSize,
	}
}

// State returns the tracking state for an object type, for inspection in
// tests and readiness decisions.
func (t *Tracker) State(name string) (*domain.TrackState, bool) {
	s, ok := t.states[name]
	return s, ok
}

// CheckReadiness returns nil if the tracker has processed at least one
// frame, or an error describing why the service is not yet ready.
func (t *Tracker) CheckReadiness(_ context.Context) error {
	if !t.ready.Load() {
		return errors.New("tracker has not processed any frames yet")
	}
	return nil
}

// Run executes the tracking loop until the context is cancelled or a
// configuration error makes further progress meaningless.
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.Info("tracker started", "batch_size", t.batchSize, "object_types", len(t.objects))
	t.metrics.PipelineRunning.Set(1)
	defer t.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during Kafka outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("tracker stopping", "reason", ctx.Err())
			return nil
		default:
		}

		cont, err := t.processBatch(ctx, &backoff, maxBackoff)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}

// processBatch runs one extract-accumulate-flush cycle. Returns false when
// the tracker should stop, and a non-nil error only for fatal conditions
// (missing write interval).
func (t *Tracker) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) (bool, error) {
	rawBatch, err := t.extractor.ExtractBatch(ctx, t.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		t.logger.Error("extract batch failed", "error", err)
		return t.backoffOrStop(ctx, backoff, maxBackoff), nil
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil, nil
	}

	t.metrics.FramesConsumed.Add(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	for _, raw := range rawBatch {
		if err := t.handleFrame(ctx, raw); err != nil {
			var cfgErr *domain.ConfigurationError
			if errors.As(err, &cfgErr) {
				// No default is substituted for a missing interval; the run
				// halts so the operator can fix the options.
				t.logger.Error("tracking halted", "error", err)
				return false, err
			}
			t.logger.Error("handle frame failed", "error", err,
				"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
			return t.backoffOrStop(ctx, backoff, maxBackoff), nil
		}
		t.commitOffset(ctx, raw)
		t.ready.Store(true)
	}

	return true, nil
}

// handleFrame parses one raw frame, appends its records to the per-type
// states, and flushes every state whose write gate opens at the frame time.
// Unparseable frames are skipped, not returned as errors.
func (t *Tracker) handleFrame(ctx context.Context, raw domain.RawFrame) error {
	frame, err := domain.ParseRawFrame(raw)
	if err != nil {
		t.logger.Warn("parse failed, skipping frame",
			"error", err,
			"topic", raw.Topic,
			"partition", raw.Partition,
			"offset", raw.Offset,
		)
		t.metrics.ParseErrors.Inc()
		return nil
	}

	if t.seen.contains(frame.ID) {
		t.logger.Debug("duplicate frame dropped", "frame_id", frame.ID)
		t.metrics.DuplicateFrames.Inc()
		return nil
	}

	for _, record := range domain.BuildRecords(frame) {
		state, ok := t.states[record.ObjectType]
		if !ok {
			t.logger.Warn("no options for object type, dropping record",
				"object_type", record.ObjectType, "frame_id", frame.ID)
			continue
		}
		state.Append(record)
	}

	// The gate is consulted for every configured type at every frame time,
	// so a type that stopped appearing in frames still flushes its tail.
	for _, obj := range t.objects {
		if err := t.maybeFlush(ctx, frame.Time, t.states[obj.name], obj.gate); err != nil {
			return err
		}
	}

	t.seen.add(frame.ID)
	return nil
}

// maybeFlush consults the write gate for one object type and flushes its
// accumulated records when the gate is open. The state's timestamp advances
// only after the flush succeeds; a failed flush leaves the gate open so the
// next frame retries.
func (t *Tracker) maybeFlush(ctx context.Context, frameTime time.Time, state *domain.TrackState, gateOpts any) error {
	write, err := domain.ShouldWrite(frameTime, state, gateOpts)
	if err != nil {
		return err
	}
	if !write {
		return nil
	}

	t.metrics.GateOpens.WithLabelValues(state.Name).Inc()

	if len(state.Records) == 0 {
		// Nothing accumulated in this window; advance the baseline so the
		// next window is measured from here.
		state.MarkWritten(frameTime)
		return nil
	}

	start := time.Now()
	event, err := buildFlushEvent(state, frameTime)
	if err != nil {
		return err
	}

	if err := t.flusher.FlushBatch(ctx, []domain.OutputEvent{event}); err != nil {
		t.logger.Error("flush failed", "error", err,
			"object_type", state.Name, "records", len(state.Records))
		t.metrics.FlushErrors.Inc()
		return fmt.Errorf("flush %s records: %w", state.Name, err)
	}

	t.metrics.RecordsFlushed.Add(float64(len(state.Records)))
	t.metrics.FlushBatchSize.Observe(float64(len(state.Records)))
	t.metrics.FlushDuration.Observe(time.Since(start).Seconds())
	t.logger.Info("flushed track records",
		"object_type", state.Name,
		"records", len(state.Records),
		"window_start", state.LastWriteTime,
		"frame_time", frameTime,
	)

	state.MarkWritten(frameTime)
	return nil
}

// buildFlushEvent serializes a state's accumulated records into one sink event.
func buildFlushEvent(state *domain.TrackState, frameTime time.Time) (domain.OutputEvent, error) {
	payload := FlushPayload{
		ObjectType:  state.Name,
		WindowStart: state.LastWriteTime,
		FlushedAt:   frameTime,
		Records:     state.Records,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("serialize flush payload: %w", err)
	}
	return domain.OutputEvent{
		Key:   []byte(state.Name),
		Value: data,
		Headers: map[string]string{
			"object_type":  state.Name,
			"record_count": strconv.Itoa(len(state.Records)),
			"flushed_at":   frameTime.UTC().Format(time.RFC3339),
		},
	}, nil
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the tracker should stop.
func (t *Tracker) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the frame offset if a commit function is available.
func (t *Tracker) commitOffset(ctx context.Context, raw domain.RawFrame) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		t.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
