package trajectory

import (
	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/godbrigero/napoleon/pkg/grid"
)

// DynamicObject is a moving obstacle (another robot, a game piece). Velocity is in
// m/s, acceleration in m/s², times are given in milliseconds.
type DynamicObject struct {
	transform    *mat.Dense
	Velocity     r2.Vec
	Acceleration r2.Vec
	// VarianceCoef scales the avoidance distance with the object's speed
	VarianceCoef float64
}

func NewDynamicObject(direction, center, velocity, acceleration r2.Vec, varianceCoef float64) *DynamicObject {
	return &DynamicObject{
		transform:    TransformationMatrix(direction, center),
		Velocity:     velocity,
		Acceleration: acceleration,
		VarianceCoef: varianceCoef,
	}
}

func (o *DynamicObject) Position() r2.Vec {
	return Translation(o.transform)
}

// Transform returns a copy of the current transformation matrix
func (o *DynamicObject) Transform() *mat.Dense {
	return mat.DenseCopyOf(o.transform)
}

// TransformAt predicts the transform timeMs milliseconds from now (constant
// acceleration, orientation unchanged)
func (o *DynamicObject) TransformAt(timeMs float64) *mat.Dense {
	result := mat.DenseCopyOf(o.transform)
	position := o.EstimatePosition(timeMs)
	result.Set(0, 2, position.X)
	result.Set(1, 2, position.Y)

	return result
}

// EstimatePosition is p + v*t + a*t²/2 with t in seconds
func (o *DynamicObject) EstimatePosition(timeMs float64) r2.Vec {
	seconds := timeMs / 1000
	return r2.Add(
		r2.Add(o.Position(), r2.Scale(seconds, o.Velocity)),
		r2.Scale(0.5*seconds*seconds, o.Acceleration),
	)
}

func (o *DynamicObject) avoidDistance() float64 {
	return o.VarianceCoef * r2.Norm(o.Velocity)
}

// IsPointInRange reports whether p is closer than VarianceCoef*|velocity|
func (o *DynamicObject) IsPointInRange(p r2.Vec) bool {
	return r2.Norm(r2.Sub(o.Position(), p)) < o.avoidDistance()
}

// IsPointInFront reports whether p is ahead of the object along its velocity, within
// the avoidance distance and within the same distance sideways
func (o *DynamicObject) IsPointInFront(p r2.Vec) bool {
	speed := r2.Norm(o.Velocity)
	if speed == 0 {
		return false
	}

	heading := r2.Unit(o.Velocity)
	offset := r2.Sub(p, o.Position())
	signed := r2.Dot(heading, offset)
	lateral := r2.Norm(r2.Sub(offset, r2.Scale(signed, heading)))
	limit := o.avoidDistance()

	return signed > 0 && r2.Norm(offset) < limit && lateral < limit
}

// Project adds the predicted positions of every object over the horizon as hybrid
// objects to g. Positions are converted from meters (relative to the grid center)
// into cells.
func Project(g *grid.HybridGrid, objects []*DynamicObject, horizonMs, stepMs float64) int {
	if stepMs <= 0 {
		stepMs = horizonMs
	}

	center := g.Center()
	square := g.SquareSizeMeters()
	count := 0
	for _, obj := range objects {
		for t := 0.0; t <= horizonMs; t += stepMs {
			pos := obj.EstimatePosition(t)
			g.AddHybridObject(orb.Point{
				float64(center.X) + pos.X/square,
				float64(center.Y) + pos.Y/square,
			})
			count++

			if stepMs <= 0 {
				break
			}
		}
	}

	return count
}
