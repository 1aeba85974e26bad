package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// ParseRawFrame deserializes a RawFrame's value into a Frame.
// It expects the flat JSON produced by the detection service.
func ParseRawFrame(raw RawFrame) (Frame, error) {
	var rec FrameRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Frame{}, fmt.Errorf("parse raw frame: %w", err)
	}
	if rec.Dataset == "" {
		return Frame{}, fmt.Errorf("parse raw frame: missing dataset")
	}

	frameTime, err := parseFrameTime(raw.Timestamp, rec.Time)
	if err != nil {
		return Frame{}, err
	}

	return Frame{
		ID:         generateFrameID(rec.Dataset, frameTime, rec.Sequence),
		Dataset:    rec.Dataset,
		Time:       frameTime,
		Sequence:   rec.Sequence,
		Objects:    rec.Objects,
		RawPayload: raw.Value,
	}, nil
}

// BuildRecords expands a frame into one TrackRecord per object summary,
// stamped with the current processing time.
func BuildRecords(frame Frame) []TrackRecord {
	if len(frame.Objects) == 0 {
		return nil
	}
	records := make([]TrackRecord, len(frame.Objects))
	for i, obj := range frame.Objects {
		records[i] = TrackRecord{
			FrameID:     frame.ID,
			ObjectType:  obj.Type,
			Time:        frame.Time,
			Geo:         obj.Geo,
			AreaKM2:     obj.AreaKM2,
			MaxDBZ:      obj.MaxDBZ,
			USpeed:      obj.USpeed,
			VSpeed:      obj.VSpeed,
			Severity:    classifySeverity(obj.MaxDBZ),
			Dataset:     frame.Dataset,
			ProcessedAt: clock.Now().UTC(),
		}
	}
	return records
}

// parseFrameTime parses the frame's RFC 3339 grid time, falling back to the
// Kafka message timestamp when the field is absent.
func parseFrameTime(fallback time.Time, value string) (time.Time, error) {
	if value == "" {
		if fallback.IsZero() {
			return time.Time{}, fmt.Errorf("parse raw frame: no grid time available")
		}
		return fallback.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse grid time %q: %w", value, err)
	}
	return t.UTC(), nil
}

// classifySeverity maps maximum reflectivity to the four-level scale.
// 40 dBZ is the conventional convective threshold.
func classifySeverity(maxDBZ float64) string {
	switch {
	case maxDBZ < 30:
		return "minor"
	case maxDBZ < 40:
		return "moderate"
	case maxDBZ < 50:
		return "severe"
	default:
		return "extreme"
	}
}

// generateFrameID produces a deterministic ID from the frame's key fields.
// Replaying the same frame yields the same ID, so downstream consumers and
// the in-process dedupe cache can treat duplicates as no-ops.
func generateFrameID(dataset string, t time.Time, sequence int) string {
	input := fmt.Sprintf("%s|%s|%d", dataset, t.UTC().Format(time.RFC3339), sequence)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	return fmt.Sprintf("%s-%s", dataset, short)
}
