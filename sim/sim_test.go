package sim

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/estimate"
	"github.com/vse-go/go-filter/internal/logging"
	"github.com/vse-go/go-filter/kalman"
	"github.com/vse-go/go-filter/matrix"
	"github.com/vse-go/go-filter/model"
	"github.com/vse-go/go-filter/noise"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	cv   filter.MotionModel
	pos  *model.LinearOutput
	x0   *estimate.Base
	q, r *mat.SymDense
)

func setup() {
	cv, _ = model.New(model.CV, 1.0)
	pos, _ = model.Position(4)

	x0, _ = estimate.NewBaseWithCov(mat.NewVecDense(4, []float64{0, 0, 1, 1}), matrix.Eye(4))

	q = mat.NewSymDense(4, nil)
	for i := 0; i < 4; i++ {
		q.SetSym(i, i, 0.01)
	}
	r = mat.NewSymDense(2, []float64{0.1, 0, 0, 0.1})
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

func TestStateSample(t *testing.T) {
	assert := assert.New(t)

	g := NewGenerator(42)

	n := 5000
	xs := make([]float64, n)
	vxs := make([]float64, n)
	for i := 0; i < n; i++ {
		x, err := g.StateSample(x0, cv, nil, q)
		assert.NoError(err)
		xs[i] = x.AtVec(0)
		vxs[i] = x.AtVec(2)
	}

	// x = px + vx: mean 1, variance 2 + 0.01
	assert.InDelta(1.0, stat.Mean(xs, nil), 0.1)
	assert.InDelta(2.01, stat.Variance(xs, nil), 0.2)
	// full covariance is used: px and vx are correlated after propagation
	assert.InDelta(1.0, stat.Covariance(xs, vxs, nil), 0.1)

	// degenerate state and no noise is deterministic
	point, _ := estimate.NewBase(mat.NewVecDense(4, []float64{0, 0, 1, 1}))
	x, err := g.StateSample(point, cv, nil, nil)
	assert.NoError(err)
	assert.InDeltaSlice([]float64{1, 1, 1, 1}, x.RawVector().Data, 1e-12)

	// invalid noise
	_, err = g.StateSample(x0, cv, nil, mat.NewSymDense(2, nil))
	assert.True(errors.Is(err, filter.ErrDimensionMismatch))

	// invalid covariance
	bad, _ := estimate.NewBaseWithCov(mat.NewVecDense(4, nil), mat.NewDiagDense(4, []float64{1, -1, 1, 1}))
	_, err = g.StateSample(bad, cv, nil, q)
	assert.True(errors.Is(err, filter.ErrInvalidCovariance))
}

func TestMeasurementSample(t *testing.T) {
	assert := assert.New(t)

	g := NewGenerator(7)

	n := 5000
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		y, err := g.MeasurementSample(x0, pos, r)
		assert.NoError(err)
		assert.Equal(2, y.Len())
		ys[i] = y.AtVec(1)
	}

	assert.InDelta(0.0, stat.Mean(ys, nil), 0.1)
	assert.InDelta(1.1, stat.Variance(ys, nil), 0.1)

	// seeded generators are reproducible
	a, err := NewGenerator(1).MeasurementSample(x0, pos, r)
	assert.NoError(err)
	b, err := NewGenerator(1).MeasurementSample(x0, pos, r)
	assert.NoError(err)
	assert.True(mat.Equal(a, b))
}

func TestTrajectory(t *testing.T) {
	assert := assert.New(t)

	g := NewGenerator(3)

	traj, err := g.Trajectory(x0, cv, nil, q, pos, r, 20)
	assert.NoError(err)
	assert.Equal(20, traj.Len())

	_, c := traj.Measurements.Dims()
	assert.Equal(2, c)

	_, err = g.Trajectory(x0, cv, nil, q, pos, r, 0)
	assert.Error(err)
}

func TestTrajectorySingularNoise(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// white acceleration noise enters position only through velocity
	G := mat.NewDense(4, 2, []float64{0.5, 0, 0, 0.5, 1, 0, 0, 1})
	gg := &mat.Dense{}
	gg.Mul(G, G.T())
	qs := matrix.Symmetrize(gg)

	traj, err := NewGenerator(5).Trajectory(x0, cv, nil, qs, pos, r, 30)
	require.NoError(err)
	assert.Equal(30, traj.Len())

	qn, err := noise.FromCov(qs, 1)
	require.NoError(err)
	rn, err := noise.FromCov(r, 1)
	require.NoError(err)

	f, err := kalman.New(kalman.UKF, cv, pos, qn, rn)
	require.NoError(err)

	ests, stats, err := Filter(f, x0, nil, traj, nil)
	require.NoError(err)
	assert.Equal(0, stats.Skipped)
	assert.True(matrix.IsPSD(ests[len(ests)-1].Cov(), matrix.SymTol))
}

func TestFilterEvaluate(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	traj, err := NewGenerator(11).Trajectory(x0, cv, nil, q, pos, r, 50)
	require.NoError(err)

	qn, err := noise.NewGaussianWithSeed(make([]float64, 4), q, 1)
	require.NoError(err)
	rn, err := noise.NewGaussianWithSeed(make([]float64, 2), r, 1)
	require.NoError(err)

	f, err := kalman.New(kalman.KF, cv, pos, qn, rn)
	require.NoError(err)

	ests, fstats, err := Filter(f, x0, nil, traj, logging.NewTestLogger())
	require.NoError(err)
	assert.Equal(0, fstats.Skipped)
	assert.Len(ests, 50)

	// consistent filter: innovations match their covariance
	assert.InDelta(1.0, fstats.ANIS, 0.5)
	assert.LessOrEqual(fstats.Outliers, 5)
	assert.Less(fstats.LogLikelihood, 0.0)

	stats, err := Evaluate(traj.Truth, ests)
	assert.NoError(err)
	// filtered position error is below measurement noise
	assert.Less(stats.RMSE, 0.5)
	assert.Greater(stats.ANEES, 0.0)

	_, err = Evaluate(traj.Truth, ests[:10])
	assert.True(errors.Is(err, filter.ErrDimensionMismatch))
}

func TestMonteCarlo(t *testing.T) {
	assert := assert.New(t)

	run := func(ctx context.Context, i int, g *Generator) (RunStats, error) {
		traj, err := g.Trajectory(x0, cv, nil, q, pos, r, 30)
		if err != nil {
			return RunStats{}, err
		}

		f, err := kalman.New(kalman.CKF, cv, pos, nil, nil)
		if err != nil {
			return RunStats{}, err
		}

		ests := make([]filter.Estimate, traj.Len())
		est := filter.Estimate(x0)
		for k := range ests {
			pred, err := kalman.Predict(est, cv, nil, q, f.Variant())
			if err != nil {
				return RunStats{}, err
			}
			est, err = kalman.Update(pred, traj.Measurements.RowView(k), pos, r, f.Variant())
			if err != nil {
				return RunStats{}, err
			}
			ests[k] = est
		}

		return Evaluate(traj.Truth, ests)
	}

	stats, err := MonteCarlo(context.Background(), 8, 3, 100, run, logging.NewTestLogger())
	assert.NoError(err)
	assert.Len(stats, 8)
	for i, s := range stats {
		assert.Equal(i, s.Run)
	}

	// runs are independent of scheduling
	again, err := MonteCarlo(context.Background(), 8, 1, 100, run, nil)
	assert.NoError(err)
	assert.Equal(stats, again)

	sum := Summary(stats)
	assert.Greater(sum.RMSE, 0.0)
	assert.Greater(sum.ANEES, 0.0)
	assert.Equal(RunStats{}, Summary(nil))

	// consistent filter has ANEES close to 1
	a := make([]float64, len(stats))
	for i, s := range stats {
		a[i] = s.ANEES
	}
	assert.InDelta(1.0, floats.Sum(a)/float64(len(a)), 0.5)

	failing := func(ctx context.Context, i int, g *Generator) (RunStats, error) {
		return RunStats{}, errors.New("boom")
	}
	_, err = MonteCarlo(context.Background(), 4, 2, 1, failing, nil)
	assert.Error(err)

	_, err = MonteCarlo(context.Background(), 0, 2, 1, run, nil)
	assert.Error(err)
}

func TestPlot(t *testing.T) {
	assert := assert.New(t)

	truth := mat.NewDense(3, 4, nil)
	measure := mat.NewDense(3, 2, nil)

	ests := []filter.Estimate{x0, x0, x0}

	plt, err := NewTrajectoryPlot(truth, measure, Means(ests))
	assert.NotNil(plt)
	assert.NoError(err)

	assert.NoError(AddEllipses(plt, ests, 2))

	plt, err = NewTrajectoryPlot(nil, nil, nil)
	assert.Nil(plt)
	assert.Error(err)

	plt, err = NewTrajectoryPlot(mat.NewDense(3, 1, nil), measure, truth)
	assert.Nil(plt)
	assert.Error(err)

	pts, err := Ellipse(x0, 1, 4)
	assert.NoError(err)
	assert.Len(pts, 5)
	// unit covariance gives unit circle
	assert.InDelta(1.0, pts[0].X, 1e-12)
	assert.InDelta(0.0, pts[0].Y, 1e-12)
	assert.InDelta(0.0, pts[1].X, 1e-12)
	assert.InDelta(1.0, pts[1].Y, 1e-12)

	_, err = Ellipse(x0, 1, 2)
	assert.Error(err)
}

func TestPolarToXY(t *testing.T) {
	assert := assert.New(t)

	m := mat.NewDense(2, 2, []float64{
		2, 0,
		1, math.Pi / 2,
	})

	xy := PolarToXY(m, 0, 0)
	assert.InDeltaSlice([]float64{2, 0}, xy.RawRowView(0), 1e-12)
	assert.InDeltaSlice([]float64{0, 1}, xy.RawRowView(1), 1e-12)

	xy = PolarToXY(m, -1, 3)
	assert.InDeltaSlice([]float64{1, 3}, xy.RawRowView(0), 1e-12)
	assert.InDeltaSlice([]float64{-1, 4}, xy.RawRowView(1), 1e-12)

	assert.True(PolarToXY(mat.NewDense(2, 1, nil), 0, 0).IsEmpty())
}
