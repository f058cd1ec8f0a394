// Package chart renders the evaluation charts with gonum/plot. The image
// format follows the file extension (png, jpg, tif, svg, pdf, eps).
package chart

import (
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	_ "gonum.org/v1/plot/vg/vgeps"
	_ "gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgpdf"
	_ "gonum.org/v1/plot/vg/vgsvg"

	"github.com/YuminosukeSato/carprice/core/model"
	"github.com/YuminosukeSato/carprice/dataset"
	"github.com/YuminosukeSato/carprice/pkg/errors"
)

// Default output files.
const (
	DefaultRegressionFile = "regression_plot.png"
	DefaultLossFile       = "loss_plot.png"
	DefaultEvolutionFile  = "evolution_plot.png"
)

// DefaultFrames is the number of iterations drawn by Evolution.
const DefaultFrames = 6

// linePoints is the number of points sampled along a regression line.
const linePoints = 100

var (
	dataColor       = color.RGBA{B: 255, A: 255}
	regressionColor = color.RGBA{R: 255, A: 255}
	lossColor       = color.RGBA{G: 128, A: 255}
)

// Regression draws the samples and the fitted line over [0, 1.1 × max mileage].
func Regression(path string, s *dataset.Samples, c model.Coefficients) error {
	if err := checkSamples("chart.Regression", s); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = "Linear Regression Fit"
	p.X.Label.Text = "Mileage"
	p.Y.Label.Text = "Price"

	scatter, err := samplesScatter(s)
	if err != nil {
		return err
	}
	line, err := regressionLine(s, c, regressionColor)
	if err != nil {
		return err
	}
	p.Add(scatter, line)
	p.Legend.Add("Data", scatter)
	p.Legend.Add("Regression", line)

	return save(path, 8*vg.Inch, 6*vg.Inch, [][]*plot.Plot{{p}})
}

// Loss draws the training loss against the iteration number.
func Loss(path string, t *model.Trace) error {
	if err := checkTrace("chart.Loss", t); err != nil {
		return err
	}
	p, err := lossPlot(t, nil)
	if err != nil {
		return err
	}
	p.Title.Text = "Evolution of Loss During Training"
	return save(path, 8*vg.Inch, 6*vg.Inch, [][]*plot.Plot{{p}})
}

// Evolution draws how training progressed: the regression line at frames
// evenly spaced iterations over the samples, above the loss curve with the
// same iterations marked.
func Evolution(path string, s *dataset.Samples, t *model.Trace, frames int) error {
	if err := checkSamples("chart.Evolution", s); err != nil {
		return err
	}
	if err := checkTrace("chart.Evolution", t); err != nil {
		return err
	}
	if frames < 1 {
		return errors.NewValidationError("frames", "must be at least 1", frames)
	}
	idx := FrameIndices(t.Len(), frames)

	top := plot.New()
	top.Title.Text = "Linear Regression Evolution"
	top.X.Label.Text = "Mileage"
	top.Y.Label.Text = "Price"
	scatter, err := samplesScatter(s)
	if err != nil {
		return err
	}
	top.Add(scatter)
	top.Legend.Add("Data", scatter)
	for k, i := range idx {
		line, err := regressionLine(s, t.Coefficients(i), shade(k, len(idx)))
		if err != nil {
			return err
		}
		top.Add(line)
		top.Legend.Add("Iteration "+strconv.Itoa(i), line)
	}

	bottom, err := lossPlot(t, idx)
	if err != nil {
		return err
	}
	bottom.Title.Text = "Loss evolution"

	return save(path, 8*vg.Inch, 10*vg.Inch, [][]*plot.Plot{{top}, {bottom}})
}

// FrameIndices returns up to frames iteration indices spread evenly over
// [0, n-1]. The first and last iterations are always included.
func FrameIndices(n, frames int) []int {
	if n <= 0 || frames <= 0 {
		return nil
	}
	if frames > n {
		frames = n
	}
	if frames == 1 {
		return []int{n - 1}
	}
	idx := make([]int, 0, frames)
	for k := 0; k < frames; k++ {
		i := k * (n - 1) / (frames - 1)
		if len(idx) > 0 && idx[len(idx)-1] == i {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

func lossPlot(t *model.Trace, marks []int) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Mean Squared Error"

	pts := make(plotter.XYs, t.Len())
	for i, l := range t.Loss {
		pts[i].X = float64(i)
		pts[i].Y = l
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, "loss line")
	}
	line.LineStyle.Color = lossColor
	p.Add(line)
	p.Legend.Add("Loss", line)

	if len(marks) > 0 {
		mpts := make(plotter.XYs, len(marks))
		for k, i := range marks {
			mpts[k].X = float64(i)
			mpts[k].Y = t.Loss[i]
		}
		sc, err := plotter.NewScatter(mpts)
		if err != nil {
			return nil, errors.Wrap(err, "loss markers")
		}
		sc.GlyphStyle.Color = regressionColor
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
	}
	return p, nil
}

func samplesScatter(s *dataset.Samples) (*plotter.Scatter, error) {
	pts := make(plotter.XYs, s.Len())
	for i := range pts {
		pts[i].X = s.Mileage[i]
		pts[i].Y = s.Price[i]
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, errors.Wrap(err, "sample scatter")
	}
	sc.GlyphStyle.Color = dataColor
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	return sc, nil
}

func regressionLine(s *dataset.Samples, c model.Coefficients, col color.Color) (*plotter.Line, error) {
	lo := min(0, 1.1*floats.Min(s.Mileage))
	hi := max(0, 1.1*s.MaxMileage())
	if lo == hi {
		hi = lo + 1
	}
	xs := floats.Span(make([]float64, linePoints), lo, hi)

	pts := make(plotter.XYs, linePoints)
	for i, x := range xs {
		pts[i].X = x
		pts[i].Y = c.Predict(x)
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, "regression line")
	}
	line.LineStyle.Color = col
	line.LineStyle.Width = vg.Points(1.5)
	return line, nil
}

// shade fades from light to full red across the frames.
func shade(k, n int) color.Color {
	if n <= 1 {
		return regressionColor
	}
	a := 64 + uint8(191*k/(n-1))
	return color.NRGBA{R: 255, A: a}
}

func save(path string, w, h vg.Length, plots [][]*plot.Plot) (err error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		return errors.NewValueError("chart.save", "output path has no extension: "+path)
	}
	c, err := draw.NewFormattedCanvas(w, h, format)
	if err != nil {
		return errors.Wrapf(err, "unsupported chart format %q", format)
	}

	// 描画中のpanicはPanicErrorとして返す
	err = errors.SafeExecute("chart.save", func() error {
		dc := draw.New(c)
		if len(plots) == 1 && len(plots[0]) == 1 {
			plots[0][0].Draw(dc)
		} else {
			tiles := draw.Tiles{
				Rows:      len(plots),
				Cols:      len(plots[0]),
				PadX:      vg.Millimeter,
				PadY:      5 * vg.Millimeter,
				PadTop:    2 * vg.Millimeter,
				PadBottom: 2 * vg.Millimeter,
				PadLeft:   2 * vg.Millimeter,
				PadRight:  2 * vg.Millimeter,
			}
			canvases := plot.Align(plots, tiles, dc)
			for i := range plots {
				for j := range plots[i] {
					plots[i][j].Draw(canvases[i][j])
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	if _, err := c.WriteTo(f); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

func checkSamples(op string, s *dataset.Samples) error {
	if s == nil || s.Len() == 0 {
		return errors.NewModelError(op, "no samples", errors.ErrEmptyData)
	}
	if len(s.Mileage) != len(s.Price) {
		return errors.NewDimensionError(op, len(s.Mileage), len(s.Price), 0)
	}
	return nil
}

func checkTrace(op string, t *model.Trace) error {
	if t == nil {
		return errors.NewModelError(op, "no trace", errors.ErrEmptyData)
	}
	return t.Validate()
}
