package sim

import (
	"image/color"
	"math"

	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/kalman/sigma"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// NewTrajectoryPlot creates new plot of the simulation from the three data sources:
// truth:    true system states
// measure:  measurement values
// filtered: filter estimates
// Every source stores x and y coordinates in the first two columns of its rows.
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * either of the supplied data matrices is nil
// * either of the supplied data matrices does not have at least 2 columns
// * gonum plot fails to be created
func NewTrajectoryPlot(truth, measure, filtered *mat.Dense) (*plot.Plot, error) {
	if truth == nil || measure == nil || filtered == nil {
		return nil, errors.New("invalid data supplied")
	}

	_, ct := truth.Dims()
	_, cm := measure.Dims()
	_, cf := filtered.Dims()

	if ct < 2 || cm < 2 || cf < 2 {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "plot data columns: %d, %d, %d", ct, cm, cf)
	}

	p := plot.New()

	p.Title.Text = "Simulation"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	// Make a line plotter for true states
	truthLine, err := plotter.NewLine(makePoints(truth))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create truth line")
	}
	truthLine.LineStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
	truthLine.LineStyle.Width = vg.Points(1)

	p.Add(truthLine)
	p.Legend.Add("truth", truthLine)

	// Make a scatter plotter for measurement data
	measScatter, err := plotter.NewScatter(makePoints(measure))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create measurement scatter")
	}
	measScatter.GlyphStyle.Color = color.RGBA{G: 255, A: 128}
	measScatter.GlyphStyle.Radius = vg.Points(2)

	p.Add(measScatter)
	p.Legend.Add("measurement", measScatter)

	// Make a scatter plotter for filter data
	filterScatter, err := plotter.NewScatter(makePoints(filtered))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create filter scatter")
	}
	filterScatter.GlyphStyle.Color = color.RGBA{R: 169, G: 169, B: 169, A: 255}
	filterScatter.Shape = draw.CrossGlyph{}
	filterScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(filterScatter)
	p.Legend.Add("filtered", filterScatter)

	return p, nil
}

// Ellipse returns n points of the nsigma confidence ellipse of the position
// stored in the first two elements of estimate est.
func Ellipse(est filter.Estimate, nsigma float64, n int) (plotter.XYs, error) {
	if n < 3 {
		return nil, errors.Errorf("invalid number of ellipse points: %d", n)
	}

	if est.Val().Len() < 2 {
		return nil, errors.Wrap(filter.ErrDimensionMismatch, "estimate has no position")
	}

	cov := est.Cov()
	pos := mat.NewSymDense(2, []float64{
		cov.At(0, 0), cov.At(0, 1),
		cov.At(1, 0), cov.At(1, 1),
	})

	S, err := sigma.Sqrt(pos)
	if err != nil {
		return nil, err
	}

	mx, my := est.Val().AtVec(0), est.Val().AtVec(1)

	pts := make(plotter.XYs, n+1)
	for i := range pts {
		s, c := math.Sincos(2 * math.Pi * float64(i) / float64(n))
		pts[i].X = mx + nsigma*(S.At(0, 0)*c+S.At(0, 1)*s)
		pts[i].Y = my + nsigma*(S.At(1, 0)*c+S.At(1, 1)*s)
	}

	return pts, nil
}

// AddEllipses adds 2-sigma position ellipses of every k-th estimate in ests to plot p.
func AddEllipses(p *plot.Plot, ests []filter.Estimate, every int) error {
	if every <= 0 {
		every = 1
	}

	for i := 0; i < len(ests); i += every {
		pts, err := Ellipse(ests[i], 2, 36)
		if err != nil {
			return errors.Wrapf(err, "estimate %d", i)
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "estimate %d", i)
		}
		line.LineStyle.Color = color.RGBA{B: 200, A: 128}
		line.LineStyle.Width = vg.Points(0.5)

		p.Add(line)
	}

	return nil
}

// Means returns the means of estimates ests stored in rows
func Means(ests []filter.Estimate) *mat.Dense {
	if len(ests) == 0 {
		return &mat.Dense{}
	}

	m := mat.NewDense(len(ests), ests[0].Val().Len(), nil)
	for i, est := range ests {
		m.SetRow(i, mat.Col(nil, 0, est.Val()))
	}

	return m
}

// PolarToXY converts range and bearing measured from (ox, oy) stored in the first two columns of m rows
// into planar x and y coordinates stored in rows of the returned matrix.
func PolarToXY(m *mat.Dense, ox, oy float64) *mat.Dense {
	r, c := m.Dims()
	if r == 0 || c < 2 {
		return &mat.Dense{}
	}

	xy := mat.NewDense(r, 2, nil)
	for i := 0; i < r; i++ {
		sin, cos := math.Sincos(m.At(i, 1))
		xy.Set(i, 0, ox+m.At(i, 0)*cos)
		xy.Set(i, 1, oy+m.At(i, 0)*sin)
	}

	return xy
}

func makePoints(m *mat.Dense) plotter.XYs {
	r, _ := m.Dims()
	pts := make(plotter.XYs, r)
	for i := 0; i < r; i++ {
		pts[i].X = m.At(i, 0)
		pts[i].Y = m.At(i, 1)
	}

	return pts
}
