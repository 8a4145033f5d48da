// Package pathfinding plans collision free routes through a grid.HybridGrid.
package pathfinding

import (
	"container/heap"
	"context"
	"math"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"

	"github.com/godbrigero/napoleon/pkg/grid"
	"github.com/godbrigero/napoleon/pkg/nplog"
)

var (
	// ErrNoPath is returned when the end can't be reached from the start
	ErrNoPath = eris.New("no path found")
	// ErrSearchLimit is returned when Options.MaxExpansions was exhausted
	ErrSearchLimit = eris.New("search limit reached")
)

const ctxCheckInterval = 256

// RadiusSearch controls how hybrid objects near a candidate node affect the search.
// All distances are in cells.
type RadiusSearch struct {
	RadiusSquared float64
	// AbsoluteDiscard drops every node with a hybrid object inside the radius
	AbsoluteDiscard bool
	// AvgDistanceMinDiscardThreshold drops nodes whose objects are closer than this on average
	AvgDistanceMinDiscardThreshold float64
	// AvgDistanceCost is the extra cost of a node whose objects sit right on top of it.
	// It fades linearly to 0 at the edge of the radius.
	AvgDistanceCost float64
}

// NewRadiusSearch sizes the search radius after the robot's footprint
func NewRadiusSearch(robotWidth, robotHeight float64, absoluteDiscard bool, avgDistanceMinDiscardThreshold, avgDistanceCost float64) RadiusSearch {
	return RadiusSearch{
		RadiusSquared:                  robotWidth*robotWidth + robotHeight*robotHeight,
		AbsoluteDiscard:                absoluteDiscard,
		AvgDistanceMinDiscardThreshold: avgDistanceMinDiscardThreshold,
		AvgDistanceCost:                avgDistanceCost,
	}
}

func (r RadiusSearch) Radius() float64 {
	return math.Sqrt(r.RadiusSquared)
}

// penalty returns the extra cost for c and whether c has to be discarded
func (r RadiusSearch) penalty(g *grid.HybridGrid, c grid.Cell) (float64, bool) {
	radius := r.Radius()
	neighbours := g.NearestHybrid(c, radius)
	if len(neighbours) == 0 {
		return 0, false
	}

	if r.AbsoluteDiscard {
		return 0, true
	}

	total := 0.0
	for _, item := range neighbours {
		total += item.Distance
	}
	avg := total / float64(len(neighbours))

	if avg < r.AvgDistanceMinDiscardThreshold {
		return 0, true
	}

	return r.AvgDistanceCost * (1 - avg/radius), false
}

type Options struct {
	Style    NodePickStyle
	StepSize int
	// Radius enables hybrid object avoidance when set
	Radius *RadiusSearch
	// Clearance keeps the path this many cells (square) away from static obstacles
	Clearance int
	// MaxExpansions limits the number of expanded nodes, 0 means unlimited
	MaxExpansions int
}

// AStar is a grid A* planner. It is safe to run several searches concurrently on the
// same planner as long as nobody mutates the grid's static obstacles meanwhile.
type AStar struct {
	grid *grid.HybridGrid
	opts Options
}

func NewAStar(g *grid.HybridGrid, opts Options) *AStar {
	if opts.StepSize < 1 {
		opts.StepSize = 1
	}

	return &AStar{grid: g, opts: opts}
}

func (a *AStar) Options() Options { return a.opts }

func (a *AStar) blocked(c grid.Cell) bool {
	if a.grid.IsOutsideGrid(c) || a.grid.IsObstructed(c) {
		return true
	}

	return a.opts.Clearance > 0 && a.grid.IsObstructionInRadius(c, a.opts.Clearance)
}

// cost of entering c (excluding the travelled distance); false discards c
func (a *AStar) cost(c grid.Cell) (float64, bool) {
	extra := 0.0
	if a.opts.Radius != nil {
		penalty, discard := a.opts.Radius.penalty(a.grid, c)
		if discard {
			return 0, false
		}
		extra += penalty
	}

	field, dist, ok := a.grid.NearestUncertaintyField(orb.Point{float64(c.X), float64(c.Y)})
	if ok {
		extra += grid.UncertaintyFieldCostRamping(field.Radius-dist, field.Radius, field.Intensity)
	}

	return extra, true
}

func (a *AStar) neighbours(c, end grid.Cell) []grid.Cell {
	offsets := a.opts.Style.Offsets(a.opts.StepSize)
	result := make([]grid.Cell, 0, len(offsets)+1)
	for _, offset := range offsets {
		result = append(result, c.Add(offset))
	}

	// With steps larger than one cell the lattice can miss the end entirely.
	if a.opts.StepSize > 1 {
		dx := end.X - c.X
		dy := end.Y - c.Y
		if dx < 0 {
			dx = -dx
		}
		if dy < 0 {
			dy = -dy
		}

		near := dx <= a.opts.StepSize && dy <= a.opts.StepSize
		if a.opts.Style == Sides {
			near = (dx == 0 || dy == 0) && dx+dy <= a.opts.StepSize
		}
		if near && c != end {
			result = append(result, end)
		}
	}

	return result
}

// Path returns the cells from start to end (both included)
func (a *AStar) Path(ctx context.Context, start, end grid.Cell) ([]grid.Cell, error) {
	if a.grid.IsOutsideGrid(start) {
		return nil, eris.Wrapf(ErrNoPath, "start %s is outside of the grid", start)
	}
	if a.grid.IsOutsideGrid(end) || a.grid.IsObstructed(end) {
		return nil, eris.Wrapf(ErrNoPath, "end %s is not reachable", end)
	}

	if start == end {
		return []grid.Cell{start}, nil
	}

	open := &openSet{}
	closed := make(map[grid.Cell]bool)
	gScores := map[grid.Cell]float64{start: 0}
	parents := make(map[grid.Cell]grid.Cell)
	seq := 0

	heap.Push(open, &node{cell: start, g: 0, f: distance(start, end), seq: seq})
	expanded := 0

	for open.Len() > 0 {
		current := heap.Pop(open).(*node)
		if closed[current.cell] {
			continue
		}

		if current.cell == end {
			nplog.Log(ctx).Debug().
				Int("expanded", expanded).
				Float64("cost", current.g).
				Msg("Path found")
			return reconstruct(parents, start, end), nil
		}

		closed[current.cell] = true
		expanded++

		if expanded%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "path search cancelled")
			}
		}
		if a.opts.MaxExpansions > 0 && expanded > a.opts.MaxExpansions {
			return nil, eris.Wrapf(ErrSearchLimit, "expanded %d nodes", expanded)
		}

		for _, next := range a.neighbours(current.cell, end) {
			// The end is checked once up front and is exempt from the clearance rule.
			if closed[next] || (next != end && a.blocked(next)) {
				continue
			}

			extra, ok := a.cost(next)
			if !ok {
				continue
			}

			tentative := current.g + distance(current.cell, next) + extra
			if known, found := gScores[next]; found && tentative >= known {
				continue
			}

			gScores[next] = tentative
			parents[next] = current.cell
			seq++
			heap.Push(open, &node{cell: next, g: tentative, f: tentative + distance(next, end), seq: seq})
		}
	}

	return nil, eris.Wrapf(ErrNoPath, "from %s to %s", start, end)
}

func reconstruct(parents map[grid.Cell]grid.Cell, start, end grid.Cell) []grid.Cell {
	result := []grid.Cell{end}
	for current := end; current != start; {
		current = parents[current]
		result = append(result, current)
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}

// Length sums the Euclidean length of path in meters
func Length(path []grid.Cell, squareSizeMeters float64) float64 {
	total := 0.0
	for idx := 1; idx < len(path); idx++ {
		total += distance(path[idx-1], path[idx])
	}

	return total * squareSizeMeters
}
