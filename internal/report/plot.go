package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// PlotInsertionIndices renders a histogram of live-point insertion
// indices against the uniform density expected under correct sampling
// (spec's insertion-index diagnostic), saved as a PNG.
func PlotInsertionIndices(path string, indices []int, nlive int) error {
	if len(indices) == 0 {
		return nil
	}

	values := make(plotter.Values, len(indices))
	for i, idx := range indices {
		values[i] = float64(idx)
	}

	p, err := plot.New()
	if err != nil {
		return fmt.Errorf("report: new plot: %w", err)
	}
	p.Title.Text = "Insertion index distribution"
	p.X.Label.Text = "index"
	p.Y.Label.Text = "count"

	hist, err := plotter.NewHist(values, 50)
	if err != nil {
		return fmt.Errorf("report: build histogram: %w", err)
	}
	hist.Normalize(float64(len(indices)))
	uniform := plotter.NewFunction(func(float64) float64 { return float64(len(indices)) / float64(nlive) })
	p.Add(hist, uniform)
	p.Add(plotter.NewGrid())

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// PlotStateTrace renders logL and logZ against iteration as companion
// line plots (spec's state-trace diagnostic), saved as a PNG.
func PlotStateTrace(path string, iterations []int, logLs, logZs []float64) error {
	n := len(iterations)
	if n == 0 {
		return nil
	}

	logLPts := make(plotter.XYs, n)
	logZPts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		logLPts[i] = plotter.XY{X: float64(iterations[i]), Y: logLs[i]}
		logZPts[i] = plotter.XY{X: float64(iterations[i]), Y: logZs[i]}
	}

	p, err := plot.New()
	if err != nil {
		return fmt.Errorf("report: new plot: %w", err)
	}
	p.Title.Text = "Sampler state trace"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "log value"

	logLLine, err := plotter.NewLine(logLPts)
	if err != nil {
		return fmt.Errorf("report: build logL line: %w", err)
	}
	logZLine, err := plotter.NewLine(logZPts)
	if err != nil {
		return fmt.Errorf("report: build logZ line: %w", err)
	}
	logZLine.LineStyle.Color = plotutil.SoftColors[2]

	p.Add(logLLine, logZLine, plotter.NewGrid())
	p.Legend.Add("logL_min", logLLine)
	p.Legend.Add("logZ", logZLine)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
