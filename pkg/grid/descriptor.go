// Package grid describes the occupancy grids used by the path finder: a plain value
// descriptor (dimensions, cell size, static obstacles), the hybrid grid built on top of
// it and the file formats used to store both.
package grid

import "fmt"

// Cell addresses a single grid square
type Cell struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

// Add returns the cell offset by o
func (c Cell) Add(o Cell) Cell {
	return Cell{X: c.X + o.X, Y: c.Y + o.Y}
}

// Descriptor is the immutable description of a rectangular grid. It is safe to share
// between goroutines once constructed.
type Descriptor struct {
	sizeX            int
	sizeY            int
	squareSizeMeters float64
	staticObstacles  []Cell
}

// NewDescriptor never fails; nothing is validated here. Use NewValidatedDescriptor or
// Descriptor.Validate when the input comes from an untrusted source.
func NewDescriptor(sizeX, sizeY int, squareSizeMeters float64, staticObstacles []Cell) Descriptor {
	obstacles := make([]Cell, len(staticObstacles))
	copy(obstacles, staticObstacles)

	return Descriptor{
		sizeX:            sizeX,
		sizeY:            sizeY,
		squareSizeMeters: squareSizeMeters,
		staticObstacles:  obstacles,
	}
}

func (d Descriptor) SizeX() int { return d.sizeX }

func (d Descriptor) SizeY() int { return d.sizeY }

func (d Descriptor) SquareSizeMeters() float64 { return d.squareSizeMeters }

// StaticObstacles returns a copy of the obstacle list in construction order
func (d Descriptor) StaticObstacles() []Cell {
	result := make([]Cell, len(d.staticObstacles))
	copy(result, d.staticObstacles)
	return result
}

// GridSize returns the total number of cells
func (d Descriptor) GridSize() int {
	return d.sizeX * d.sizeY
}

// GridSizeMeters only scales the width (size_x). Whether size_y was meant to be part
// of this is still open, so the value is kept as the grid tooling has always reported it.
func (d Descriptor) GridSizeMeters() float64 {
	return float64(d.sizeX) * d.squareSizeMeters
}

// GridSizePixels is an alias of GridSize kept for callers that think in pixels.
func (d Descriptor) GridSizePixels() int {
	return d.GridSize()
}

func (d Descriptor) String() string {
	return fmt.Sprintf("<Grid %dx%d @ %gm, %d obstacles>", d.sizeX, d.sizeY, d.squareSizeMeters, len(d.staticObstacles))
}
