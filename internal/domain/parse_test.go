package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRawFrame(t *testing.T) {
	envelope := time.Date(2005, 11, 13, 12, 0, 0, 0, time.UTC)

	t.Run("frame with objects", func(t *testing.T) {
		data := []byte(`{"dataset":"cpol","time":"2005-11-13T12:10:00Z","sequence":3,` +
			`"objects":[{"type":"cell","geo":{"lat":-12.25,"lon":131.04},"area_km2":240,"max_dbz":47.5,"u_ms":5.5,"v_ms":-2.0}]}`)
		raw := RawFrame{Value: data, Timestamp: envelope}

		frame, err := ParseRawFrame(raw)
		require.NoError(t, err)

		assert.Equal(t, "cpol", frame.Dataset)
		assert.Equal(t, time.Date(2005, 11, 13, 12, 10, 0, 0, time.UTC), frame.Time)
		assert.Equal(t, 3, frame.Sequence)
		require.Len(t, frame.Objects, 1)
		assert.Equal(t, "cell", frame.Objects[0].Type)
		assert.Equal(t, -12.25, frame.Objects[0].Geo.Lat)
		assert.Equal(t, 47.5, frame.Objects[0].MaxDBZ)
		assert.True(t, strings.HasPrefix(frame.ID, "cpol-"))
		assert.Equal(t, data, frame.RawPayload)
	})

	t.Run("missing grid time falls back to message timestamp", func(t *testing.T) {
		data := []byte(`{"dataset":"gridrad","sequence":0}`)
		frame, err := ParseRawFrame(RawFrame{Value: data, Timestamp: envelope})
		require.NoError(t, err)
		assert.Equal(t, envelope, frame.Time)
	})

	t.Run("deterministic ID under replay", func(t *testing.T) {
		data := []byte(`{"dataset":"cpol","time":"2005-11-13T12:10:00Z","sequence":3}`)
		a, err := ParseRawFrame(RawFrame{Value: data})
		require.NoError(t, err)
		b, err := ParseRawFrame(RawFrame{Value: data})
		require.NoError(t, err)
		assert.Equal(t, a.ID, b.ID)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseRawFrame(RawFrame{Value: []byte(`{not json`), Timestamp: envelope})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse raw frame")
	})

	t.Run("missing dataset", func(t *testing.T) {
		_, err := ParseRawFrame(RawFrame{Value: []byte(`{"time":"2005-11-13T12:00:00Z"}`), Timestamp: envelope})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dataset")
	})

	t.Run("invalid grid time", func(t *testing.T) {
		_, err := ParseRawFrame(RawFrame{Value: []byte(`{"dataset":"cpol","time":"12:00"}`), Timestamp: envelope})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "grid time")
	})
}

func TestBuildRecords(t *testing.T) {
	fixed := time.Date(2005, 11, 13, 12, 15, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	defer SetClock(nil)

	frame := Frame{
		ID:      "cpol-abc",
		Dataset: "cpol",
		Time:    time.Date(2005, 11, 13, 12, 10, 0, 0, time.UTC),
		Objects: []ObjectSummary{
			{Type: "cell", Geo: Geo{Lat: -12.25, Lon: 131.04}, AreaKM2: 240, MaxDBZ: 47.5},
			{Type: "anvil", Geo: Geo{Lat: -12.30, Lon: 131.10}, AreaKM2: 900, MaxDBZ: 28},
		},
	}

	records := BuildRecords(frame)
	require.Len(t, records, 2)

	assert.Equal(t, "cpol-abc", records[0].FrameID)
	assert.Equal(t, "cell", records[0].ObjectType)
	assert.Equal(t, "severe", records[0].Severity)
	assert.Equal(t, fixed, records[0].ProcessedAt)

	assert.Equal(t, "anvil", records[1].ObjectType)
	assert.Equal(t, "minor", records[1].Severity)
}

func TestBuildRecords_EmptyFrame(t *testing.T) {
	assert.Nil(t, BuildRecords(Frame{ID: "cpol-abc", Dataset: "cpol"}))
}

func TestClassifySeverity(t *testing.T) {
	cases := []struct {
		dbz  float64
		want string
	}{
		{12, "minor"},
		{29.9, "minor"},
		{30, "moderate"},
		{39.9, "moderate"},
		{40, "severe"},
		{49.9, "severe"},
		{50, "extreme"},
		{62, "extreme"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifySeverity(tc.dbz), "dbz=%v", tc.dbz)
	}
}
