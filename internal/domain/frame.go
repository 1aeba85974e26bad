package domain

import (
	"context"
	"time"
)

// FrameRecord represents the flat JSON structure produced by the detection
// service: one grid time, one summary per detected object.
type FrameRecord struct {
	Dataset  string          `json:"dataset"`             // e.g. "cpol", "gridrad", "synthetic"
	Time     string          `json:"time"`                // grid time, RFC 3339
	Sequence int             `json:"sequence"`            // position in the detection run
	Objects  []ObjectSummary `json:"objects,omitempty"`   // empty when no objects were detected
	GridStep int             `json:"grid_step,omitempty"` // minutes between grids, informational
}

// RawFrame represents an unprocessed message from the source topic.
type RawFrame struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat,omitempty"`
	Lon float64 `json:"lon,omitempty"`
}

// ObjectSummary describes one detected object at a single grid time.
type ObjectSummary struct {
	Type    string  `json:"type"` // "cell", "anvil", or "mcs"
	Geo     Geo     `json:"geo"`
	AreaKM2 float64 `json:"area_km2"`
	MaxDBZ  float64 `json:"max_dbz"`
	USpeed  float64 `json:"u_ms,omitempty"` // eastward motion, m/s
	VSpeed  float64 `json:"v_ms,omitempty"` // northward motion, m/s
}

// Frame is the domain-rich representation after parsing.
type Frame struct {
	ID       string          `json:"id"`
	Dataset  string          `json:"dataset"`
	Time     time.Time       `json:"time"`
	Sequence int             `json:"sequence"`
	Objects  []ObjectSummary `json:"objects,omitempty"`

	RawPayload []byte `json:"-"`
}

// TrackRecord is one accumulated observation of an object type, destined for
// the sink topic once the write gate opens.
type TrackRecord struct {
	FrameID     string    `json:"frame_id"`
	ObjectType  string    `json:"object_type"`
	Time        time.Time `json:"time"`
	Geo         Geo       `json:"geo"`
	AreaKM2     float64   `json:"area_km2"`
	MaxDBZ      float64   `json:"max_dbz"`
	USpeed      float64   `json:"u_ms,omitempty"`
	VSpeed      float64   `json:"v_ms,omitempty"`
	Severity    string    `json:"severity,omitempty"`
	Dataset     string    `json:"dataset"`
	ProcessedAt time.Time `json:"processed_at"`
}

// OutputEvent is the serialized form destined for the sink topic: one flush
// of accumulated records for a single object type.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
