package trajectory

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
)

const poseFloats = 6

// Pose is a 2D translation plus rotation
type Pose struct {
	Translation r2.Vec
	Rotation    *mat.Dense
}

// NewPose creates a pose rotated by heading radians (counter-clockwise)
func NewPose(x, y, heading float64) Pose {
	sin, cos := math.Sincos(heading)
	return Pose{
		Translation: r2.Vec{X: x, Y: y},
		Rotation: mat.NewDense(2, 2, []float64{
			cos, -sin,
			sin, cos,
		}),
	}
}

// Heading returns the rotation angle in radians
func (p Pose) Heading() float64 {
	return math.Atan2(p.Rotation.At(1, 0), p.Rotation.At(0, 0))
}

// Flatten returns [x, y, m11, m12, m21, m22]
func (p Pose) Flatten() []float64 {
	return []float64{
		p.Translation.X,
		p.Translation.Y,
		p.Rotation.At(0, 0),
		p.Rotation.At(0, 1),
		p.Rotation.At(1, 0),
		p.Rotation.At(1, 1),
	}
}

func FlattenPoses(poses []Pose) []float64 {
	result := make([]float64, 0, len(poses)*poseFloats)
	for _, pose := range poses {
		result = append(result, pose.Flatten()...)
	}

	return result
}

// ParsePoses is the inverse of FlattenPoses
func ParsePoses(values []float64) ([]Pose, error) {
	if len(values)%poseFloats != 0 {
		return nil, eris.Errorf("expected a multiple of %d values but got %d", poseFloats, len(values))
	}

	result := make([]Pose, len(values)/poseFloats)
	for idx := range result {
		chunk := values[idx*poseFloats : (idx+1)*poseFloats]
		result[idx] = Pose{
			Translation: r2.Vec{X: chunk[0], Y: chunk[1]},
			Rotation:    mat.NewDense(2, 2, []float64{chunk[2], chunk[3], chunk[4], chunk[5]}),
		}
	}

	return result, nil
}

// PosesAlong samples a timed path every dt seconds, facing along the direction of travel
//
// A path with a single key feature yields one pose at that key, facing its direction.
func PosesAlong(path *TimedPath, dt float64) []Pose {
	if len(path.keys) == 1 {
		key := path.keys[0]
		heading := 0.0
		if key.Direction.X != 0 || key.Direction.Y != 0 {
			heading = math.Atan2(key.Direction.Y, key.Direction.X)
		}
		return []Pose{NewPose(key.Position.X, key.Position.Y, heading)}
	}

	samples := path.Sample(dt)
	result := make([]Pose, len(samples))
	heading := 0.0
	for idx, s := range samples {
		if idx+1 < len(samples) {
			next := samples[idx+1]
			if next.X != s.X || next.Y != s.Y {
				heading = math.Atan2(next.Y-s.Y, next.X-s.X)
			}
		}

		result[idx] = NewPose(s.X, s.Y, heading)
	}

	return result
}
