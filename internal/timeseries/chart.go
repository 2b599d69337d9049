package timeseries

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// ChartWidth and ChartHeight are the default chart size.
const (
	ChartWidth  = 8 * vg.Inch
	ChartHeight = 4 * vg.Inch
)

// WritePNG renders the series as a line chart. The x axis is hours since
// the start of the series.
func (ts TimeSeries) WritePNG(w io.Writer, title string) error {
	if ts.Len() == 0 {
		return fmt.Errorf("timeseries chart: empty series")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "hours from " + ts.Start.String()
	p.Y.Label.Text = ts.Units

	pts := make(plotter.XYs, ts.Len())
	for i, v := range ts.Values {
		pts[i].X = ts.DateTimes[i].Sub(ts.Start).TotalHours()
		pts[i].Y = v
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("timeseries chart: %w", err)
	}
	p.Add(line, plotter.NewGrid())

	c := vgimg.New(ChartWidth, ChartHeight)
	p.Draw(draw.New(c))
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("timeseries chart: %w", err)
	}
	return nil
}
