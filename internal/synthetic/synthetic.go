// Package synthetic generates artificial storm-object frames for tests and
// fixtures. Cells advect along a fixed heading at constant speed; each cell
// sheds a larger, weaker anvil displaced downwind. The numbers are not
// meteorology, just plausible inputs with known motion that tests can assert
// against.
package synthetic

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/storm-track-service/internal/domain"
)

// mean earth radius derived degree lengths, km per degree
const kmPerDegLat = 111.32

// Cell is a seed object with position and motion at the start time.
type Cell struct {
	CenterLat float64
	CenterLon float64
	// RadiusKM is the horizontal radius of the cell.
	RadiusKM float64
	// Intensity is the peak reflectivity in dBZ.
	Intensity float64
	// Direction the cell is moving, radians clockwise from north.
	Direction float64
	// Speed in metres per second.
	Speed float64
}

// DefaultCells returns the seed cells of the standard test scenario: two
// cells near Darwin moving east-southeast, matching the radar domain the
// tracking toolkit uses for its demos.
func DefaultCells() []Cell {
	return []Cell{
		{CenterLat: -12.25, CenterLon: 131.04, RadiusKM: 20, Intensity: 50, Direction: math.Pi / 4, Speed: 10},
		{CenterLat: -12.60, CenterLon: 131.30, RadiusKM: 15, Intensity: 43, Direction: math.Pi / 3, Speed: 8},
	}
}

// Generator produces frames for a synthetic dataset.
type Generator struct {
	Dataset string
	Cells   []Cell
	// Anvils controls whether each cell also emits an anvil summary.
	Anvils bool
}

// NewGenerator returns a generator over the default cells with anvils on.
func NewGenerator() *Generator {
	return &Generator{Dataset: "synthetic", Cells: DefaultCells(), Anvils: true}
}

// Frames generates one frame per step in [start, end). Step must be
// positive.
func (g *Generator) Frames(start, end time.Time, step time.Duration) ([]domain.Frame, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("synthetic frames: end %s not after start %s", end, start)
	}
	if step <= 0 {
		return nil, fmt.Errorf("synthetic frames: step must be positive, got %s", step)
	}

	var frames []domain.Frame
	sequence := 0
	for t := start; t.Before(end); t = t.Add(step) {
		frames = append(frames, g.frameAt(t, start, sequence))
		sequence++
	}
	return frames, nil
}

// FrameAt generates the single frame for time t given the run start.
func (g *Generator) FrameAt(t, start time.Time) domain.Frame {
	sequence := int(t.Sub(start) / time.Minute)
	return g.frameAt(t, start, sequence)
}

func (g *Generator) frameAt(t, start time.Time, sequence int) domain.Frame {
	elapsed := t.Sub(start).Seconds()

	var objects []domain.ObjectSummary
	for _, cell := range g.Cells {
		lat, lon := displace(cell, elapsed)
		u, v := components(cell)

		objects = append(objects, domain.ObjectSummary{
			Type:    "cell",
			Geo:     domain.Geo{Lat: lat, Lon: lon},
			AreaKM2: area(cell.RadiusKM),
			MaxDBZ:  cell.Intensity,
			USpeed:  u,
			VSpeed:  v,
		})

		if g.Anvils {
			// Anvil trails downwind: triple the radius, well below the
			// convective threshold, centered half a radius behind the cell.
			trailLat, trailLon := offset(lat, lon, cell.Direction+math.Pi, cell.RadiusKM/2)
			objects = append(objects, domain.ObjectSummary{
				Type:    "anvil",
				Geo:     domain.Geo{Lat: trailLat, Lon: trailLon},
				AreaKM2: area(cell.RadiusKM * 3),
				MaxDBZ:  cell.Intensity - 25,
				USpeed:  u,
				VSpeed:  v,
			})
		}
	}

	return domain.Frame{
		ID:       fmt.Sprintf("%s-%06d", g.Dataset, sequence),
		Dataset:  g.Dataset,
		Time:     t.UTC(),
		Sequence: sequence,
		Objects:  objects,
	}
}

// Records converts frames to wire-format records for fixture files.
func Records(frames []domain.Frame) []domain.FrameRecord {
	records := make([]domain.FrameRecord, len(frames))
	for i, f := range frames {
		records[i] = domain.FrameRecord{
			Dataset:  f.Dataset,
			Time:     f.Time.Format(time.RFC3339),
			Sequence: f.Sequence,
			Objects:  f.Objects,
		}
	}
	return records
}

// displace moves the cell from its seed position along its heading for the
// elapsed seconds, on a flat-earth approximation. Fine for the few hundred
// km a test scenario covers.
func displace(cell Cell, elapsedSeconds float64) (lat, lon float64) {
	distanceKM := cell.Speed * elapsedSeconds / 1000
	return offset(cell.CenterLat, cell.CenterLon, cell.Direction, distanceKM)
}

func offset(lat, lon, direction, distanceKM float64) (float64, float64) {
	dLat := distanceKM * math.Cos(direction) / kmPerDegLat
	dLon := distanceKM * math.Sin(direction) / (kmPerDegLat * math.Cos(lat*math.Pi/180))
	return lat + dLat, lon + dLon
}

// components resolves the heading and speed into eastward/northward m/s.
func components(cell Cell) (u, v float64) {
	return cell.Speed * math.Sin(cell.Direction), cell.Speed * math.Cos(cell.Direction)
}

func area(radiusKM float64) float64 {
	return math.Round(math.Pi * radiusKM * radiusKM)
}
