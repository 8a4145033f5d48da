// Package trajectory turns planned paths into timed trajectories and predicts the
// motion of dynamic obstacles.
package trajectory

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/godbrigero/napoleon/pkg/grid"
)

const (
	timeSearchSamples = 100
	maxSamples        = 100000
)

// TimedVector is a key feature of a path together with the time (in seconds) at which
// it is reached
type TimedVector struct {
	Position    r2.Vec
	Direction   r2.Vec
	TimeToReach float64
}

// TimedPath times a sequence of key features with a trapezoidal velocity profile and
// interpolates between them with a Catmull-Rom spline.
type TimedPath struct {
	keys      []TimedVector
	totalTime float64
	ready     bool
	maxSpeed  float64
	accel     float64
}

func NewTimedPath(maxSpeed, accel float64) (*TimedPath, error) {
	if !(maxSpeed > 0) || math.IsInf(maxSpeed, 0) {
		return nil, eris.Errorf("max speed must be positive, got %g", maxSpeed)
	}
	if !(accel > 0) || math.IsInf(accel, 0) {
		return nil, eris.Errorf("acceleration must be positive, got %g", accel)
	}

	return &TimedPath{maxSpeed: maxSpeed, accel: accel}, nil
}

// FromCells builds a timed path through the centers of the given cells
func FromCells(g *grid.HybridGrid, cells []grid.Cell, maxSpeed, accel float64) (*TimedPath, error) {
	path, err := NewTimedPath(maxSpeed, accel)
	if err != nil {
		return nil, err
	}

	for idx, c := range cells {
		pos := g.ToMeters(c)
		direction := r2.Vec{}
		if idx+1 < len(cells) {
			next := g.ToMeters(cells[idx+1])
			direction = r2.Vec{X: next[0] - pos[0], Y: next[1] - pos[1]}
		} else if idx > 0 {
			prev := g.ToMeters(cells[idx-1])
			direction = r2.Vec{X: pos[0] - prev[0], Y: pos[1] - prev[1]}
		}

		path.AddKeyFeature(r2.Vec{X: pos[0], Y: pos[1]}, direction)
	}

	path.ComputeSpline()
	return path, nil
}

// TimeToTravel returns the seconds needed to cover distance starting and ending at
// rest
func (p *TimedPath) TimeToTravel(distance float64) float64 {
	tAccel := p.maxSpeed / p.accel
	dAccel := 0.5 * p.accel * tAccel * tAccel

	if distance < 2*dAccel {
		return 2 * math.Sqrt(distance/p.accel)
	}

	return 2*tAccel + (distance-2*dAccel)/p.maxSpeed
}

// AddKeyFeature appends a point to the path. ComputeSpline has to be called again
// before sampling.
func (p *TimedPath) AddKeyFeature(position, direction r2.Vec) {
	t := 0.0
	if len(p.keys) > 0 {
		last := p.keys[len(p.keys)-1]
		t = last.TimeToReach + p.TimeToTravel(r2.Norm(r2.Sub(position, last.Position)))
	}

	p.keys = append(p.keys, TimedVector{Position: position, Direction: direction, TimeToReach: t})
	p.ready = false
}

// ComputeSpline prepares the path for sampling. Paths with fewer than two key
// features can't be sampled.
func (p *TimedPath) ComputeSpline() {
	if len(p.keys) < 2 {
		return
	}

	p.totalTime = p.keys[len(p.keys)-1].TimeToReach
	p.ready = true
}

func (p *TimedPath) TotalTime() float64 { return p.totalTime }

func (p *TimedPath) KeyFeatures() []TimedVector {
	result := make([]TimedVector, len(p.keys))
	copy(result, p.keys)
	return result
}

func (p *TimedPath) key(idx int) r2.Vec {
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.keys) {
		idx = len(p.keys) - 1
	}

	return p.keys[idx].Position
}

func catmullRom(p0, p1, p2, p3 r2.Vec, u float64) r2.Vec {
	u2 := u * u
	u3 := u2 * u

	c0 := -0.5*u3 + u2 - 0.5*u
	c1 := 1.5*u3 - 2.5*u2 + 1
	c2 := -1.5*u3 + 2*u2 + 0.5*u
	c3 := 0.5*u3 - 0.5*u2

	return r2.Add(
		r2.Add(r2.Scale(c0, p0), r2.Scale(c1, p1)),
		r2.Add(r2.Scale(c2, p2), r2.Scale(c3, p3)),
	)
}

// PositionAt samples the spline. It returns false outside of [0, TotalTime] or when
// the spline has not been computed.
func (p *TimedPath) PositionAt(t float64) (r2.Vec, bool) {
	if !p.ready || t < 0 || t > p.totalTime {
		return r2.Vec{}, false
	}

	// Find the segment [keys[idx], keys[idx+1]] containing t.
	idx := 0
	for idx < len(p.keys)-2 && p.keys[idx+1].TimeToReach <= t {
		idx++
	}

	start := p.keys[idx].TimeToReach
	span := p.keys[idx+1].TimeToReach - start
	if span <= 0 {
		return p.keys[idx+1].Position, true
	}

	u := (t - start) / span
	return catmullRom(p.key(idx-1), p.key(idx), p.key(idx+1), p.key(idx+2), u), true
}

// TimeAtPosition returns the time of the sample closest to pos
func (p *TimedPath) TimeAtPosition(pos r2.Vec) (float64, bool) {
	if !p.ready {
		return 0, false
	}

	dt := p.totalTime / timeSearchSamples
	minDist := math.MaxFloat64
	best := 0.0
	for i := 0; i <= timeSearchSamples; i++ {
		t := float64(i) * dt
		if t > p.totalTime {
			t = p.totalTime
		}

		sample, ok := p.PositionAt(t)
		if !ok {
			continue
		}

		dist := r2.Norm(r2.Sub(sample, pos))
		if dist < minDist {
			minDist = dist
			best = t
		}
	}

	return best, true
}

// Sample is one point of a sampled trajectory
type Sample struct {
	Time float64 `json:"time" yaml:"time"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
}

// Sample evaluates the path every dt seconds; the last sample is always at TotalTime.
// dt is raised if it would produce more than maxSamples samples.
func (p *TimedPath) Sample(dt float64) []Sample {
	if !p.ready || !(dt > 0) {
		return nil
	}

	if p.totalTime/dt > maxSamples {
		dt = p.totalTime / maxSamples
	}

	var result []Sample
	for i := 0; ; i++ {
		t := float64(i) * dt
		if t >= p.totalTime {
			break
		}

		pos, _ := p.PositionAt(t)
		result = append(result, Sample{Time: t, X: pos.X, Y: pos.Y})
	}

	pos, _ := p.PositionAt(p.totalTime)
	return append(result, Sample{Time: p.totalTime, X: pos.X, Y: pos.Y})
}
