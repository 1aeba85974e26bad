// Package domain models tracked storm objects and the write-interval gate
// that decides when accumulated tracking results are persisted.
//
// # Data Source
//
// Frames originate from an upstream detection service that scans gridded
// radar reflectivity volumes (CPOL, GridRad, or synthetic test grids),
// labels contiguous convective regions, and publishes one message per grid
// time to the Kafka source topic. Each frame carries a summary of every
// detected object: type (cell, anvil, mcs), centroid coordinates, area,
// and maximum reflectivity. Detection and matching happen upstream; this
// service only accumulates and persists the summaries.
//
// # Tracking State and the Write Gate
//
// Results are not written per frame. Each object type carries a
// [TrackState] holding the records accumulated since the last persistence
// event plus the time of that event, truncated to the hour. [ShouldWrite]
// compares the current frame time against the stored timestamp and a
// configured interval in whole hours:
//
//	elapsed = frame time - last write time
//	write when elapsed >= interval
//
// The gate initializes LastWriteTime on first use (truncated to the start
// of its containing hour) and never advances it afterwards. Advancing is
// the caller's job, via [TrackState.MarkWritten], and must happen together
// with the actual write so a failed flush is retried on the next frame
// rather than silently skipped.
//
// Frame times may run backwards when historical data is replayed out of
// order. The gate treats negative elapsed time as "not yet", not as an
// error.
//
// # Severity Classification
//
// Records carry a four-level severity derived from maximum reflectivity,
// following the usual convective thresholds (40 dBZ marks convection in
// Steiner-style classification):
//
//	<30 dBZ minor | <40 dBZ moderate | <50 dBZ severe | >=50 dBZ extreme
//
// # ID Generation
//
// Frame IDs are deterministic SHA-256 hashes of dataset|time|sequence.
// Replayed frames hash to the same ID, which lets the pipeline drop
// duplicates without distributed coordination. See [generateFrameID].
package domain
