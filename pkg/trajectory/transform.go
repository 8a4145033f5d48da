package trajectory

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
)

// TransformationMatrix builds the 3x3 homogeneous transform of an object facing
// direction at center. The first row holds the right vector, the second the forward
// vector; the last column the translation. A zero direction yields the identity.
func TransformationMatrix(direction, center r2.Vec) *mat.Dense {
	if r2.Norm(direction) == 0 {
		return mat.NewDense(3, 3, []float64{
			1, 0, 0,
			0, 1, 0,
			0, 0, 1,
		})
	}

	forward := r2.Unit(direction)
	right := r2.Vec{X: forward.Y, Y: -forward.X}

	return mat.NewDense(3, 3, []float64{
		right.X, right.Y, center.X,
		forward.X, forward.Y, center.Y,
		0, 0, 1,
	})
}

// RotationMatrix extracts the 2x2 rotation part: its rows are the first two columns
// of t
func RotationMatrix(t mat.Matrix) *mat.Dense {
	return mat.NewDense(2, 2, []float64{
		t.At(0, 0), t.At(1, 0),
		t.At(0, 1), t.At(1, 1),
	})
}

// GlobalDirection is the forward direction of t in world coordinates
func GlobalDirection(t mat.Matrix) r2.Vec {
	var result mat.VecDense
	result.MulVec(RotationMatrix(t), mat.NewVecDense(2, []float64{t.At(0, 0), t.At(1, 0)}))

	return r2.Vec{X: result.AtVec(0), Y: result.AtVec(1)}
}

// Translation returns the position stored in t
func Translation(t mat.Matrix) r2.Vec {
	return r2.Vec{X: t.At(0, 2), Y: t.At(1, 2)}
}

// DistanceInFront projects p onto the forward direction of t. Negative values are
// behind the object.
func DistanceInFront(t mat.Matrix, p r2.Vec) float64 {
	return r2.Dot(GlobalDirection(t), r2.Sub(p, Translation(t)))
}
