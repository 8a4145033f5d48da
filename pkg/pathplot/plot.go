// Package pathplot renders a grid and a planned path into an image.
package pathplot

import (
	"fmt"
	"image/color"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/godbrigero/napoleon/pkg/grid"
)

var (
	obstacleColor = color.RGBA{A: 255}
	pathColor     = color.RGBA{B: 255, A: 255}
	startColor    = color.RGBA{G: 180, A: 255}
	endColor      = color.RGBA{R: 220, A: 255}
)

func cellsToXYs(cells []grid.Cell) plotter.XYs {
	result := make(plotter.XYs, len(cells))
	for idx, c := range cells {
		result[idx] = plotter.XY{X: float64(c.X), Y: float64(c.Y)}
	}

	return result
}

func scatter(cells []grid.Cell, shape draw.GlyphDrawer, c color.Color, radius vg.Length) (*plotter.Scatter, error) {
	s, err := plotter.NewScatter(cellsToXYs(cells))
	if err != nil {
		return nil, err
	}

	s.GlyphStyle.Shape = shape
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = radius
	return s, nil
}

// Build creates the plot: obstacles as filled squares, the path as a line with the
// start and end highlighted
func Build(g *grid.HybridGrid, path []grid.Cell) (*plot.Plot, error) {
	sizeX, sizeY := g.Size()
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Grid %dx%d (%gm squares)", sizeX, sizeY, g.SquareSizeMeters())
	p.X.Label.Text = "X (cells)"
	p.Y.Label.Text = "Y (cells)"
	p.Add(plotter.NewGrid())

	if obstacles := g.StaticObstacles(); len(obstacles) > 0 {
		s, err := scatter(obstacles, draw.BoxGlyph{}, obstacleColor, vg.Points(3))
		if err != nil {
			return nil, eris.Wrap(err, "failed to plot obstacles")
		}
		p.Add(s)
		p.Legend.Add("obstacles", s)
	}

	if len(path) > 0 {
		if len(path) > 1 {
			line, err := plotter.NewLine(cellsToXYs(path))
			if err != nil {
				return nil, eris.Wrap(err, "failed to plot path")
			}
			line.Color = pathColor
			line.Width = vg.Points(2)
			p.Add(line)
			p.Legend.Add("path", line)
		}

		start, err := scatter(path[:1], draw.CircleGlyph{}, startColor, vg.Points(5))
		if err != nil {
			return nil, eris.Wrap(err, "failed to plot start")
		}
		end, err := scatter(path[len(path)-1:], draw.CircleGlyph{}, endColor, vg.Points(5))
		if err != nil {
			return nil, eris.Wrap(err, "failed to plot end")
		}
		p.Add(start, end)
		p.Legend.Add("start", start)
		p.Legend.Add("end", end)
	}

	p.Legend.Top = true
	return p, nil
}

// Save renders the plot to file; the image format follows the file extension
func Save(g *grid.HybridGrid, path []grid.Cell, file string) error {
	p, err := Build(g, path)
	if err != nil {
		return err
	}

	if err := p.Save(8*vg.Inch, 8*vg.Inch, file); err != nil {
		return eris.Wrapf(err, "failed to save plot %s", file)
	}
	return nil
}
