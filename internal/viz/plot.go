package viz

import (
	"errors"
	"fmt"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/torasim/internal/plasma"
)

var ErrNoData = errors.New("viz: nothing to plot")

// PlotProfile renders the cell values of channel c as an ASCII chart.
func PlotProfile(values []float64, c plasma.Channel, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(2),
		asciigraph.Caption(fmt.Sprintf("%s [%s] vs rho", c, channelUnit(c))),
	)
}

// PlotTemperatures draws Ti and Te on one ASCII chart.
func PlotTemperatures(p plasma.CoreProfiles, width, height int) string {
	ti, te := p.TempIon.Value(), p.TempEl.Value()
	if len(ti) == 0 {
		return ""
	}
	return asciigraph.PlotMany([][]float64{ti, te},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(asciigraph.Red, asciigraph.Blue),
		asciigraph.Caption("Ti (red), Te (blue) [keV] vs rho"),
	)
}

// PlotTrace renders a time trace, e.g. the accepted step sizes.
func PlotTrace(values []float64, caption string, width, height int) string {
	if len(values) < 2 {
		return ""
	}
	return asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// SaveProfilePlot writes the rows of channel c, one line per time, to path.
// The image format follows the extension (png, svg or pdf).
func SaveProfilePlot(path string, rho []float64, rows [][]float64, times []float64, c plasma.Channel) error {
	if len(rows) == 0 || len(rows) != len(times) {
		return ErrNoData
	}
	p := plot.New()
	p.Title.Text = c.String()
	p.X.Label.Text = "rho"
	p.Y.Label.Text = fmt.Sprintf("%s [%s]", c, channelUnit(c))
	p.Add(plotter.NewGrid())

	for i, values := range rows {
		if len(values) != len(rho) {
			return fmt.Errorf("viz: profile has %d cells, grid has %d", len(values), len(rho))
		}
		pts := make(plotter.XYs, len(rho))
		for j := range rho {
			pts[j].X, pts[j].Y = rho[j], values[j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("t=%.3g s", times[i]), line)
	}
	p.Legend.Top = true
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// Snapshots picks up to n evenly spaced indices from a history of length
// total, always including the first and last.
func Snapshots(total, n int) []int {
	if total <= 0 || n <= 0 {
		return nil
	}
	if n >= total {
		idx := make([]int, total)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	if n == 1 {
		return []int{total - 1}
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i * (total - 1) / (n - 1)
	}
	return idx
}
