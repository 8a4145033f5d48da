package grid

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
)

// ErrInvalidInput is matched by every *InvalidInputError
var ErrInvalidInput = eris.New("invalid grid input")

// InvalidInputError reports the first field that failed validation
type InvalidInputError struct {
	Field  string
	Reason string
}

var _ error = (*InvalidInputError)(nil)

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid grid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Validate checks the constraints NewDescriptor leaves unenforced: positive sizes, a
// finite positive cell size and obstacles inside [0, size).
func (d Descriptor) Validate() error {
	if d.sizeX <= 0 {
		return &InvalidInputError{Field: "size_x", Reason: fmt.Sprintf("must be positive, got %d", d.sizeX)}
	}

	if d.sizeY <= 0 {
		return &InvalidInputError{Field: "size_y", Reason: fmt.Sprintf("must be positive, got %d", d.sizeY)}
	}

	if math.IsNaN(d.squareSizeMeters) || math.IsInf(d.squareSizeMeters, 0) || d.squareSizeMeters <= 0 {
		return &InvalidInputError{Field: "square_size_meters", Reason: fmt.Sprintf("must be a positive number, got %g", d.squareSizeMeters)}
	}

	for idx, c := range d.staticObstacles {
		if c.X < 0 || c.X >= d.sizeX || c.Y < 0 || c.Y >= d.sizeY {
			return &InvalidInputError{
				Field:  fmt.Sprintf("static_obstacles[%d]", idx),
				Reason: fmt.Sprintf("%s is outside of %dx%d", c, d.sizeX, d.sizeY),
			}
		}
	}

	return nil
}

// NewValidatedDescriptor is the strict variant of NewDescriptor
func NewValidatedDescriptor(sizeX, sizeY int, squareSizeMeters float64, staticObstacles []Cell) (Descriptor, error) {
	d := NewDescriptor(sizeX, sizeY, squareSizeMeters, staticObstacles)
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}

	return d, nil
}
