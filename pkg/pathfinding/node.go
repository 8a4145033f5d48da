package pathfinding

import (
	"container/heap"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/godbrigero/napoleon/pkg/grid"
)

// NodePickStyle decides which neighbours are expanded from a node
type NodePickStyle int

const (
	// All expands the 8 surrounding cells
	All NodePickStyle = iota
	// Sides expands only the 4 orthogonal cells
	Sides
)

func (s NodePickStyle) String() string {
	switch s {
	case All:
		return "all"
	case Sides:
		return "sides"
	default:
		return "unknown"
	}
}

// ParseNodePickStyle accepts "all" or "sides" (case-insensitive)
func ParseNodePickStyle(value string) (NodePickStyle, error) {
	switch strings.ToLower(value) {
	case "all", "":
		return All, nil
	case "sides":
		return Sides, nil
	}

	return All, eris.Errorf("unknown node pick style %q (expected all or sides)", value)
}

// Offsets lists the neighbour offsets scaled by stepSize
func (s NodePickStyle) Offsets(stepSize int) []grid.Cell {
	if s == Sides {
		return []grid.Cell{
			{X: -stepSize, Y: 0},
			{X: stepSize, Y: 0},
			{X: 0, Y: -stepSize},
			{X: 0, Y: stepSize},
		}
	}

	offsets := make([]grid.Cell, 0, 8)
	for x := -1; x <= 1; x++ {
		for y := -1; y <= 1; y++ {
			if x == 0 && y == 0 {
				continue
			}
			offsets = append(offsets, grid.Cell{X: x * stepSize, Y: y * stepSize})
		}
	}
	return offsets
}

func distance(a, b grid.Cell) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

type node struct {
	cell  grid.Cell
	g     float64
	f     float64
	seq   int
	index int
}

// openSet is a min-heap on f; seq breaks ties in insertion order so results are
// deterministic.
type openSet []*node

var _ heap.Interface = (*openSet)(nil)

func (s openSet) Len() int { return len(s) }

func (s openSet) Less(i, j int) bool {
	if s[i].f == s[j].f {
		return s[i].seq < s[j].seq
	}
	return s[i].f < s[j].f
}

func (s openSet) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
	s[i].index = i
	s[j].index = j
}

func (s *openSet) Push(x interface{}) {
	item := x.(*node)
	item.index = len(*s)
	*s = append(*s, item)
}

func (s *openSet) Pop() interface{} {
	old := *s
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*s = old[:n-1]
	return item
}
