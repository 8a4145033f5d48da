package grid

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/rotisserie/eris"
	"github.com/ulikunitz/xz"
	"gopkg.in/yaml.v3"
)

// Format names a grid document encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// File is the on-disk form of a grid ("annotations" file). Walls are [x, y] pairs.
type File struct {
	SquareSizeMeters float64 `json:"square_size_meters" yaml:"square_size_meters"`
	Width            int     `json:"grid_width_squares" yaml:"grid_width_squares"`
	Height           int     `json:"grid_height_squares" yaml:"grid_height_squares"`
	Walls            [][]int `json:"walls" yaml:"walls"`
	Center           []int   `json:"center,omitempty" yaml:"center,omitempty"`
}

// FileFromDescriptor builds a document for d. A nil center means "middle of the grid".
func FileFromDescriptor(d Descriptor, center *Cell) File {
	f := File{
		SquareSizeMeters: d.squareSizeMeters,
		Width:            d.sizeX,
		Height:           d.sizeY,
		Walls:            make([][]int, len(d.staticObstacles)),
	}

	for idx, c := range d.staticObstacles {
		f.Walls[idx] = []int{c.X, c.Y}
	}

	if center != nil {
		f.Center = []int{center.X, center.Y}
	}
	return f
}

// Cells converts the walls into cells
func (f File) Cells() ([]Cell, error) {
	result := make([]Cell, len(f.Walls))
	for idx, wall := range f.Walls {
		if len(wall) != 2 {
			return nil, eris.Errorf("wall #%d has %d coordinates, expected 2", idx, len(wall))
		}

		result[idx] = Cell{X: wall[0], Y: wall[1]}
	}

	return result, nil
}

// CenterCell returns the explicit center or (width/2, height/2)
func (f File) CenterCell() (Cell, error) {
	switch len(f.Center) {
	case 0:
		return Cell{X: f.Width / 2, Y: f.Height / 2}, nil
	case 2:
		return Cell{X: f.Center[0], Y: f.Center[1]}, nil
	}

	return Cell{}, eris.Errorf("center has %d coordinates, expected 2", len(f.Center))
}

func (f File) Descriptor() (Descriptor, error) {
	cells, err := f.Cells()
	if err != nil {
		return Descriptor{}, err
	}

	return NewDescriptor(f.Width, f.Height, f.SquareSizeMeters, cells), nil
}

func (f File) Hybrid() (*HybridGrid, error) {
	d, err := f.Descriptor()
	if err != nil {
		return nil, err
	}

	center, err := f.CenterCell()
	if err != nil {
		return nil, err
	}

	return NewHybridGrid(d, center.X, center.Y), nil
}

// FormatForPath derives the document format and compression from the file name, e.g.
// "field.yaml.xz" -> (FormatYAML, ".xz")
func FormatForPath(path string) (Format, string, error) {
	name := strings.ToLower(filepath.Base(path))
	compression := ""
	for _, suffix := range []string{".br", ".xz"} {
		if strings.HasSuffix(name, suffix) {
			compression = suffix
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}

	switch filepath.Ext(name) {
	case ".json":
		return FormatJSON, compression, nil
	case ".yaml", ".yml":
		return FormatYAML, compression, nil
	}

	return "", "", eris.Errorf("unsupported grid file %s (expected .json, .yaml or .yml, optionally with .br or .xz)", path)
}

func getDecompressor(compression string, r io.Reader) (io.Reader, error) {
	switch compression {
	case "":
		return r, nil
	case ".br":
		return brotli.NewReader(r), nil
	case ".xz":
		reader, err := xz.NewReader(r)
		if err != nil {
			return nil, eris.Wrap(err, "failed to open xz stream")
		}
		return reader, nil
	}

	return nil, eris.Errorf("compression %s not supported", compression)
}

// Decode reads a grid document in the given format
func Decode(r io.Reader, format Format) (File, error) {
	var f File
	data, err := io.ReadAll(r)
	if err != nil {
		return f, eris.Wrap(err, "failed to read grid document")
	}

	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &f)
	case FormatYAML:
		err = yaml.Unmarshal(data, &f)
	default:
		return f, eris.Errorf("unknown grid format %q", format)
	}

	if err != nil {
		return f, eris.Wrapf(err, "failed to parse %s grid document", format)
	}
	return f, nil
}

// Encode writes f in the given format
func Encode(w io.Writer, f File, format Format) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(f, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	case FormatYAML:
		data, err = yaml.Marshal(f)
	default:
		return eris.Errorf("unknown grid format %q", format)
	}

	if err != nil {
		return eris.Wrapf(err, "failed to encode %s grid document", format)
	}

	_, err = w.Write(data)
	return err
}

// Load reads a grid file; the format and compression are picked by its suffix
func Load(path string) (File, error) {
	format, compression, err := FormatForPath(path)
	if err != nil {
		return File{}, err
	}

	handle, err := os.Open(path)
	if err != nil {
		return File{}, eris.Wrapf(err, "failed to load grid configuration from file %s", path)
	}
	defer handle.Close()

	reader, err := getDecompressor(compression, handle)
	if err != nil {
		return File{}, err
	}

	f, err := Decode(reader, format)
	if err != nil {
		return f, eris.Wrapf(err, "failed to load grid configuration from file %s", path)
	}
	return f, nil
}

// Save writes f to path, compressing it if the name ends in .br or .xz
func Save(path string, f File) error {
	format, compression, err := FormatForPath(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	switch compression {
	case "":
		err = Encode(&buf, f, format)
	case ".br":
		writer := brotli.NewWriter(&buf)
		err = Encode(writer, f, format)
		if err == nil {
			err = writer.Close()
		}
	case ".xz":
		var writer *xz.Writer
		writer, err = xz.NewWriter(&buf)
		if err == nil {
			err = Encode(writer, f, format)
			if err == nil {
				err = writer.Close()
			}
		}
	}

	if err != nil {
		return eris.Wrapf(err, "failed to encode %s", path)
	}

	err = os.WriteFile(path, buf.Bytes(), 0660)
	if err != nil {
		return eris.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// FlattenCells converts cells into the flat [x0, y0, x1, y1, ...] layout
func FlattenCells(cells []Cell) []int {
	result := make([]int, 0, len(cells)*2)
	for _, c := range cells {
		result = append(result, c.X, c.Y)
	}

	return result
}

// UnflattenCells is the inverse of FlattenCells
func UnflattenCells(flat []int) ([]Cell, error) {
	if len(flat)%2 != 0 {
		return nil, eris.Errorf("expected an even number of coordinates but got %d", len(flat))
	}

	result := make([]Cell, len(flat)/2)
	for idx := range result {
		result[idx] = Cell{X: flat[idx*2], Y: flat[idx*2+1]}
	}

	return result, nil
}
