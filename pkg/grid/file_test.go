package grid

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "square_size_meters": 0.25,
  "grid_width_squares": 8,
  "grid_height_squares": 4,
  "walls": [[0, 0], [7, 3], [2, 1]]
}`

func TestDecodeJSON(t *testing.T) {
	f, err := Decode(strings.NewReader(sampleJSON), FormatJSON)
	require.NoError(t, err)

	d, err := f.Descriptor()
	require.NoError(t, err)
	assert.Equal(t, 32, d.GridSize())
	assert.Equal(t, 2.0, d.GridSizeMeters())
	assert.Equal(t, []Cell{{X: 0, Y: 0}, {X: 7, Y: 3}, {X: 2, Y: 1}}, d.StaticObstacles())

	center, err := f.CenterCell()
	require.NoError(t, err)
	assert.Equal(t, Cell{X: 4, Y: 2}, center)

	g, err := f.Hybrid()
	require.NoError(t, err)
	assert.Equal(t, 3, g.StaticObstacleCount())
}

func TestDecodeYAML(t *testing.T) {
	doc := `
square_size_meters: 1.5
grid_width_squares: 3
grid_height_squares: 3
walls:
  - [1, 1]
center: [1, 1]
`
	f, err := Decode(strings.NewReader(doc), FormatYAML)
	require.NoError(t, err)

	center, err := f.CenterCell()
	require.NoError(t, err)
	assert.Equal(t, Cell{X: 1, Y: 1}, center)

	g, err := f.Hybrid()
	require.NoError(t, err)
	assert.True(t, g.IsObstructed(Cell{X: 1, Y: 1}))
}

func TestDecodeRejectsBadWalls(t *testing.T) {
	f, err := Decode(strings.NewReader(`{"grid_width_squares": 2, "grid_height_squares": 2, "walls": [[1]]}`), FormatJSON)
	require.NoError(t, err)

	_, err = f.Descriptor()
	assert.Error(t, err)

	_, err = Decode(strings.NewReader("{"), FormatJSON)
	assert.Error(t, err)
}

func TestFormatForPath(t *testing.T) {
	cases := map[string]struct {
		format      Format
		compression string
	}{
		"field.json":       {FormatJSON, ""},
		"dir/FIELD.YAML":   {FormatYAML, ""},
		"field.yml.xz":     {FormatYAML, ".xz"},
		"field.json.br":    {FormatJSON, ".br"},
		"/abs/a.b.json.xz": {FormatJSON, ".xz"},
	}

	for path, expected := range cases {
		format, compression, err := FormatForPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, expected.format, format, path)
		assert.Equal(t, expected.compression, compression, path)
	}

	_, _, err := FormatForPath("field.txt")
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	d := NewDescriptor(6, 4, 0.5, []Cell{{X: 1, Y: 2}, {X: 5, Y: 3}})
	original := FileFromDescriptor(d, &Cell{X: 3, Y: 2})

	dir := t.TempDir()
	for _, name := range []string{"g.json", "g.yaml", "g.json.br", "g.yaml.xz"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Save(path, original), name)

		loaded, err := Load(path)
		require.NoError(t, err, name)
		if diff := cmp.Diff(original, loaded); diff != "" {
			t.Errorf("%s: round trip mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestFlattenCells(t *testing.T) {
	cells := []Cell{{X: 1, Y: 2}, {X: 3, Y: 4}}
	flat := FlattenCells(cells)
	assert.Equal(t, []int{1, 2, 3, 4}, flat)

	back, err := UnflattenCells(flat)
	require.NoError(t, err)
	assert.Equal(t, cells, back)

	_, err = UnflattenCells([]int{1, 2, 3})
	assert.Error(t, err)
	assert.Empty(t, FlattenCells(nil))
}
