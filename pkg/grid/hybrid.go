package grid

import (
	"math"
	"sort"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
	pointTolerance   = 1e-6
)

// UncertaintyField marks a circular area the planner should avoid in proportion to
// its intensity
type UncertaintyField struct {
	Center    orb.Point
	Radius    float64
	Intensity float64
}

// Neighbour is a hybrid object returned by a range query
type Neighbour struct {
	Item     int
	Point    orb.Point
	Distance float64
}

type hybridObject struct {
	id    int
	point orb.Point
}

func (o *hybridObject) Bounds() rtreego.Rect {
	return rtreego.Point{o.point[0], o.point[1]}.ToRect(pointTolerance)
}

type fieldEntry struct {
	id    int
	field UncertaintyField
}

func (f *fieldEntry) Bounds() rtreego.Rect {
	radius := f.field.Radius
	if radius <= 0 {
		return rtreego.Point{f.field.Center[0], f.field.Center[1]}.ToRect(pointTolerance)
	}

	return rtreego.Point{f.field.Center[0], f.field.Center[1]}.ToRect(radius)
}

// HybridGrid combines the static obstacles of a Descriptor with dynamic ("hybrid")
// objects and uncertainty fields that change while the robot moves. The grid is
// centered on (centerX, centerY); see IsOutsideGrid for the exact bounds.
//
// Static obstacles are kept in a bitmap over the in-bounds cells. Hybrid objects and
// uncertainty fields live in R-trees so range queries stay cheap when they are
// replaced every control cycle.
type HybridGrid struct {
	sizeX            int
	sizeY            int
	centerX          int
	centerY          int
	squareSizeMeters float64

	staticLock sync.RWMutex
	static     *bitset.BitSet

	lock           sync.RWMutex
	hybridObjects  *rtreego.Rtree
	hybridCount    int
	fields         []*fieldEntry
	fieldIndex     *rtreego.Rtree
	maxFieldRadius float64
}

// NewRawHybridGrid creates an empty grid without any obstacles
func NewRawHybridGrid(sizeX, sizeY int, squareSizeMeters float64, centerX, centerY int) *HybridGrid {
	cells := 0
	if sizeX > 0 && sizeY > 0 {
		cells = sizeX * sizeY
	}

	return &HybridGrid{
		sizeX:            sizeX,
		sizeY:            sizeY,
		centerX:          centerX,
		centerY:          centerY,
		squareSizeMeters: squareSizeMeters,
		static:           bitset.New(uint(cells)),
		hybridObjects:    rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren),
		fieldIndex:       rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren),
	}
}

// NewHybridGrid builds a grid from a descriptor. Obstacles outside of the grid are
// silently dropped.
func NewHybridGrid(d Descriptor, centerX, centerY int) *HybridGrid {
	grid := NewRawHybridGrid(d.sizeX, d.sizeY, d.squareSizeMeters, centerX, centerY)
	for _, obstacle := range d.staticObstacles {
		grid.PushStaticObstacle(obstacle)
	}

	return grid
}

func (g *HybridGrid) SquareSizeMeters() float64 { return g.squareSizeMeters }

func (g *HybridGrid) Center() Cell { return Cell{X: g.centerX, Y: g.centerY} }

func (g *HybridGrid) Size() (int, int) { return g.sizeX, g.sizeY }

// Descriptor converts the grid back into its value form. The obstacles are returned in
// row-major order.
func (g *HybridGrid) Descriptor() Descriptor {
	return NewDescriptor(g.sizeX, g.sizeY, g.squareSizeMeters, g.StaticObstacles())
}

func (g *HybridGrid) minCorner() (int, int) {
	return g.centerX - g.sizeX/2, g.centerY - g.sizeY/2
}

// IsOutsideGrid reports whether c lies outside of
// [center-size/2, center+size/2) on either axis.
func (g *HybridGrid) IsOutsideGrid(c Cell) bool {
	halfX := g.sizeX / 2
	halfY := g.sizeY / 2

	return c.X < g.centerX-halfX ||
		c.X >= g.centerX+halfX ||
		c.Y < g.centerY-halfY ||
		c.Y >= g.centerY+halfY
}

func (g *HybridGrid) index(c Cell) uint {
	minX, minY := g.minCorner()
	return uint((c.X - minX) + (c.Y-minY)*g.sizeX)
}

func (g *HybridGrid) cell(idx uint) Cell {
	minX, minY := g.minCorner()
	return Cell{X: int(idx)%g.sizeX + minX, Y: int(idx)/g.sizeX + minY}
}

// PushStaticObstacle marks c as blocked. Cells outside of the grid can't be stored and
// return false.
func (g *HybridGrid) PushStaticObstacle(c Cell) bool {
	if g.IsOutsideGrid(c) {
		return false
	}

	g.staticLock.Lock()
	defer g.staticLock.Unlock()

	g.static.Set(g.index(c))
	return true
}

func (g *HybridGrid) IsObstructed(c Cell) bool {
	if g.IsOutsideGrid(c) {
		return false
	}

	g.staticLock.RLock()
	defer g.staticLock.RUnlock()

	return g.static.Test(g.index(c))
}

// StaticObstacles lists every blocked cell in row-major order
func (g *HybridGrid) StaticObstacles() []Cell {
	g.staticLock.RLock()
	defer g.staticLock.RUnlock()

	result := make([]Cell, 0, g.static.Count())
	for idx, ok := g.static.NextSet(0); ok; idx, ok = g.static.NextSet(idx + 1) {
		result = append(result, g.cell(idx))
	}

	return result
}

func (g *HybridGrid) StaticObstacleCount() int {
	g.staticLock.RLock()
	defer g.staticLock.RUnlock()

	return int(g.static.Count())
}

// ObstructionsInRadius returns the blocked cells in the square of half-width radius
// around c
func (g *HybridGrid) ObstructionsInRadius(c Cell, radius int) []Cell {
	var result []Cell
	for i := -radius; i <= radius; i++ {
		for j := -radius; j <= radius; j++ {
			check := c.Add(Cell{X: i, Y: j})
			if g.IsObstructed(check) {
				result = append(result, check)
			}
		}
	}

	return result
}

func (g *HybridGrid) IsObstructionInRadius(c Cell, radius int) bool {
	for i := -radius; i <= radius; i++ {
		for j := -radius; j <= radius; j++ {
			if g.IsObstructed(c.Add(Cell{X: i, Y: j})) {
				return true
			}
		}
	}

	return false
}

// ToMeters converts a cell into a position in meters relative to the grid center
func (g *HybridGrid) ToMeters(c Cell) orb.Point {
	return orb.Point{
		float64(c.X-g.centerX) * g.squareSizeMeters,
		float64(c.Y-g.centerY) * g.squareSizeMeters,
	}
}

// * Hybrid objects

func (g *HybridGrid) AddHybridObject(p orb.Point) {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.hybridObjects.Insert(&hybridObject{id: g.hybridCount, point: p})
	g.hybridCount++
}

func (g *HybridGrid) ClearHybridObjects() {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.hybridObjects = rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren)
	g.hybridCount = 0
}

func (g *HybridGrid) HybridObjectCount() int {
	g.lock.RLock()
	defer g.lock.RUnlock()

	return g.hybridCount
}

// NearestHybrid returns all hybrid objects within dist (Euclidean, in cells) of c,
// nearest first
func (g *HybridGrid) NearestHybrid(c Cell, dist float64) []Neighbour {
	return g.NearestHybridPoint(orb.Point{float64(c.X), float64(c.Y)}, dist)
}

func (g *HybridGrid) NearestHybridPoint(p orb.Point, dist float64) []Neighbour {
	if dist <= 0 || math.IsNaN(dist) {
		return nil
	}

	query, err := rtreego.NewRect(rtreego.Point{p[0] - dist, p[1] - dist}, []float64{2 * dist, 2 * dist})
	if err != nil {
		return nil
	}

	g.lock.RLock()
	candidates := g.hybridObjects.SearchIntersect(query)
	g.lock.RUnlock()

	result := make([]Neighbour, 0, len(candidates))
	for _, item := range candidates {
		obj := item.(*hybridObject)
		d := planar.Distance(p, obj.point)
		if d <= dist {
			result = append(result, Neighbour{Item: obj.id, Point: obj.point, Distance: d})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Distance == result[j].Distance {
			return result[i].Item < result[j].Item
		}
		return result[i].Distance < result[j].Distance
	})
	return result
}

// * Uncertainty fields

func (g *HybridGrid) AddUncertaintyField(center orb.Point, radius, intensity float64) {
	g.lock.Lock()
	defer g.lock.Unlock()

	if radius > g.maxFieldRadius {
		g.maxFieldRadius = radius
	}

	entry := &fieldEntry{
		id:    len(g.fields) + 1,
		field: UncertaintyField{Center: center, Radius: radius, Intensity: intensity},
	}
	g.fields = append(g.fields, entry)
	g.fieldIndex.Insert(entry)
}

func (g *HybridGrid) ClearUncertaintyFields() {
	g.lock.Lock()
	defer g.lock.Unlock()

	g.fields = nil
	g.fieldIndex = rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren)
	g.maxFieldRadius = 0
}

func (g *HybridGrid) MaxFieldRadius() float64 {
	g.lock.RLock()
	defer g.lock.RUnlock()

	return g.maxFieldRadius
}

// NearestUncertaintyField returns the field with the closest center among those whose
// radius covers p, together with the distance to that center.
func (g *HybridGrid) NearestUncertaintyField(p orb.Point) (UncertaintyField, float64, bool) {
	g.lock.RLock()
	candidates := g.fieldIndex.SearchIntersect(rtreego.Point{p[0], p[1]}.ToRect(pointTolerance))
	g.lock.RUnlock()

	var (
		best     *fieldEntry
		bestDist = math.Inf(1)
	)
	for _, item := range candidates {
		entry := item.(*fieldEntry)
		d := planar.Distance(p, entry.field.Center)
		if d > entry.field.Radius {
			continue
		}

		if best == nil || d < bestDist || (d == bestDist && entry.id < best.id) {
			best = entry
			bestDist = d
		}
	}

	if best == nil {
		return UncertaintyField{}, 0, false
	}
	return best.field, bestDist, true
}

// UncertaintyFieldCostRamping eases the cost quadratically: 0 at distanceCur == 0 and
// the full intensity at distanceCur == distanceField.
func UncertaintyFieldCostRamping(distanceCur, distanceField, intensity float64) float64 {
	if distanceField == 0 {
		return intensity
	}

	ratio := distanceCur / distanceField
	eased := 1 - (1-ratio)*(1-ratio)
	return eased * intensity
}
