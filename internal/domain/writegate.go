package domain

import (
	"fmt"
	"time"
)

// WriteIntervalKey is the mapping key consulted when options are supplied as
// a loosely-typed map rather than a structured value.
const WriteIntervalKey = "write_interval"

// IntervalOptions is the structured-access path for resolving the write
// interval. Option types implement it; the gate checks for it before falling
// back to key-based lookup.
type IntervalOptions interface {
	// WriteIntervalHours returns the configured interval in whole hours.
	WriteIntervalHours() int
}

// ConfigurationError reports that the write interval could not be resolved
// from the supplied options by either access path.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %q not found in options", e.Key)
}

// TrackState is the per-object-type mutable record carried through the
// tracking run. One instance per object type per worker; it is not safe for
// concurrent use.
type TrackState struct {
	// Name identifies the object type, e.g. "cell" or "anvil".
	Name string

	// LastWriteTime is the time of the last persistence event, truncated to
	// the hour. The zero value means no write has happened yet; ShouldWrite
	// initializes it on first use.
	LastWriteTime time.Time

	// Records accumulated since the last flush.
	Records []TrackRecord
}

// Append adds records accumulated from a frame.
func (s *TrackState) Append(records ...TrackRecord) {
	s.Records = append(s.Records, records...)
}

// MarkWritten advances LastWriteTime to t truncated to the hour and clears
// the accumulated records. Callers invoke it only after a successful write;
// ShouldWrite never advances the timestamp itself, so a failed flush leaves
// the gate open for the next frame.
func (s *TrackState) MarkWritten(t time.Time) {
	s.LastWriteTime = t.Truncate(time.Hour)
	s.Records = nil
}

// ShouldWrite reports whether the accumulated results for state should be
// flushed at the given time.
//
// On the first call for a state, LastWriteTime is initialized to now
// truncated to the start of its containing hour; initialization alone does
// not open the gate. The write interval is resolved from opts: structured
// access via [IntervalOptions] first, then key-based lookup under
// [WriteIntervalKey] for map values. If neither path yields an interval, a
// *ConfigurationError is returned.
//
// A now earlier than LastWriteTime (replayed or out-of-order data) yields
// false, not an error. An interval of zero or fewer hours opens the gate on
// every call after initialization.
func ShouldWrite(now time.Time, state *TrackState, opts any) (bool, error) {
	if state.LastWriteTime.IsZero() {
		state.LastWriteTime = now.Truncate(time.Hour)
	}

	interval, err := writeIntervalHours(opts)
	if err != nil {
		return false, err
	}

	elapsed := now.Sub(state.LastWriteTime)
	return elapsed >= time.Duration(interval)*time.Hour, nil
}

// writeIntervalHours resolves the interval from structured options or a
// generic mapping. Mapping values may be int, int64, or float64 to tolerate
// JSON- and YAML-decoded options.
func writeIntervalHours(opts any) (int, error) {
	switch o := opts.(type) {
	case IntervalOptions:
		return o.WriteIntervalHours(), nil
	case map[string]int:
		if v, ok := o[WriteIntervalKey]; ok {
			return v, nil
		}
	case map[string]any:
		switch v := o[WriteIntervalKey].(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			return int(v), nil
		}
	}
	return 0, &ConfigurationError{Key: WriteIntervalKey}
}
