package grid

import (
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHybridBounds(t *testing.T) {
	g := NewRawHybridGrid(10, 10, 1, 5, 5)

	assert.False(t, g.IsOutsideGrid(Cell{X: 0, Y: 0}))
	assert.False(t, g.IsOutsideGrid(Cell{X: 9, Y: 9}))
	assert.True(t, g.IsOutsideGrid(Cell{X: 10, Y: 0}))
	assert.True(t, g.IsOutsideGrid(Cell{X: -1, Y: 0}))
	assert.True(t, g.IsOutsideGrid(Cell{X: 0, Y: 10}))
}

func TestHybridDropsOutsideObstacles(t *testing.T) {
	d := NewDescriptor(10, 10, 1, []Cell{{X: 1, Y: 1}, {X: 11, Y: 0}, {X: 3, Y: 9}})
	g := NewHybridGrid(d, 5, 5)

	assert.Equal(t, 2, g.StaticObstacleCount())
	assert.True(t, g.IsObstructed(Cell{X: 1, Y: 1}))
	assert.True(t, g.IsObstructed(Cell{X: 3, Y: 9}))
	assert.False(t, g.IsObstructed(Cell{X: 11, Y: 0}))
	assert.False(t, g.PushStaticObstacle(Cell{X: 20, Y: 20}))
	assert.Equal(t, []Cell{{X: 1, Y: 1}, {X: 3, Y: 9}}, g.StaticObstacles())
}

func TestHybridOffsetCenter(t *testing.T) {
	g := NewRawHybridGrid(4, 4, 0.5, 0, 0)

	require.True(t, g.PushStaticObstacle(Cell{X: -2, Y: -2}))
	require.True(t, g.PushStaticObstacle(Cell{X: 1, Y: 1}))
	assert.False(t, g.PushStaticObstacle(Cell{X: 2, Y: 0}))

	assert.Equal(t, []Cell{{X: -2, Y: -2}, {X: 1, Y: 1}}, g.StaticObstacles())
	assert.Equal(t, orb.Point{0.5, 0.5}, g.ToMeters(Cell{X: 1, Y: 1}))
	assert.Equal(t, Cell{X: 0, Y: 0}, g.Center())
}

func TestHybridDescriptorRoundTrip(t *testing.T) {
	d := NewDescriptor(6, 4, 0.2, []Cell{{X: 5, Y: 3}, {X: 0, Y: 0}})
	g := NewHybridGrid(d, 3, 2)

	back := g.Descriptor()
	assert.Equal(t, 24, back.GridSize())
	assert.Equal(t, []Cell{{X: 0, Y: 0}, {X: 5, Y: 3}}, back.StaticObstacles())
}

func TestHybridOddSizeLosesLastRow(t *testing.T) {
	g := NewRawHybridGrid(3, 3, 1, 1, 1)

	assert.False(t, g.IsOutsideGrid(Cell{X: 0, Y: 0}))
	assert.True(t, g.IsOutsideGrid(Cell{X: 2, Y: 2}))
}

func TestObstructionsInRadius(t *testing.T) {
	g := NewRawHybridGrid(10, 10, 1, 5, 5)
	g.PushStaticObstacle(Cell{X: 4, Y: 4})
	g.PushStaticObstacle(Cell{X: 6, Y: 6})
	g.PushStaticObstacle(Cell{X: 8, Y: 8})

	found := g.ObstructionsInRadius(Cell{X: 5, Y: 5}, 1)
	assert.ElementsMatch(t, []Cell{{X: 4, Y: 4}, {X: 6, Y: 6}}, found)
	assert.True(t, g.IsObstructionInRadius(Cell{X: 5, Y: 5}, 1))
	assert.False(t, g.IsObstructionInRadius(Cell{X: 1, Y: 8}, 2))
}

func TestNearestHybrid(t *testing.T) {
	g := NewRawHybridGrid(10, 10, 1, 5, 5)
	g.AddHybridObject(orb.Point{5, 5})
	g.AddHybridObject(orb.Point{7, 5})
	g.AddHybridObject(orb.Point{9, 9})

	result := g.NearestHybrid(Cell{X: 5, Y: 5}, 2)
	require.Len(t, result, 2)
	assert.Equal(t, 0, result[0].Item)
	assert.Equal(t, 0.0, result[0].Distance)
	assert.Equal(t, 1, result[1].Item)
	assert.Equal(t, 2.0, result[1].Distance)

	assert.Nil(t, g.NearestHybrid(Cell{X: 5, Y: 5}, 0))
	assert.Equal(t, 3, g.HybridObjectCount())

	g.ClearHybridObjects()
	assert.Empty(t, g.NearestHybrid(Cell{X: 5, Y: 5}, 100))
	assert.Equal(t, 0, g.HybridObjectCount())
}

func TestUncertaintyFields(t *testing.T) {
	g := NewRawHybridGrid(10, 10, 1, 5, 5)
	g.AddUncertaintyField(orb.Point{2, 2}, 3, 10)
	g.AddUncertaintyField(orb.Point{4, 2}, 1, 5)

	field, dist, ok := g.NearestUncertaintyField(orb.Point{3.5, 2})
	require.True(t, ok)
	assert.Equal(t, 5.0, field.Intensity)
	assert.InDelta(t, 0.5, dist, 1e-9)

	field, _, ok = g.NearestUncertaintyField(orb.Point{1, 2})
	require.True(t, ok)
	assert.Equal(t, 10.0, field.Intensity)

	_, _, ok = g.NearestUncertaintyField(orb.Point{9, 9})
	assert.False(t, ok)
	assert.Equal(t, 3.0, g.MaxFieldRadius())

	g.ClearUncertaintyFields()
	_, _, ok = g.NearestUncertaintyField(orb.Point{2, 2})
	assert.False(t, ok)
	assert.Equal(t, 0.0, g.MaxFieldRadius())
}

func TestUncertaintyFieldCostRamping(t *testing.T) {
	assert.Equal(t, 0.0, UncertaintyFieldCostRamping(0, 4, 10))
	assert.Equal(t, 10.0, UncertaintyFieldCostRamping(4, 4, 10))
	assert.InDelta(t, 7.5, UncertaintyFieldCostRamping(2, 4, 10), 1e-9)
	assert.Equal(t, 3.0, UncertaintyFieldCostRamping(1, 0, 3))
}

func TestHybridConcurrentAccess(t *testing.T) {
	g := NewRawHybridGrid(50, 50, 1, 25, 25)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				g.AddHybridObject(orb.Point{float64(i), float64(j)})
				g.NearestHybrid(Cell{X: i, Y: j}, 3)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 400, g.HybridObjectCount())
}

func TestStaticObstaclesConcurrentAccess(t *testing.T) {
	g := NewRawHybridGrid(40, 40, 1, 20, 20)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 40; j++ {
				g.PushStaticObstacle(Cell{X: i, Y: j})
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 40; j++ {
				g.IsObstructed(Cell{X: i, Y: j})
				g.StaticObstacles()
				g.StaticObstacleCount()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 320, g.StaticObstacleCount())
	assert.Len(t, g.StaticObstacles(), 320)
}
