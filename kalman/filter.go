package kalman

import (
	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/estimate"
	"github.com/vse-go/go-filter/noise"
	"gonum.org/v1/gonum/mat"
)

// Filter is a Kalman filter of a given variant bound to motion and measurement models and their noise.
// Filter holds no estimate: callers thread the estimate through Predict, Update and Run.
type Filter struct {
	// v is filter variant
	v Variant
	// motion is state transition model
	motion filter.MotionModel
	// meas is measurement model
	meas filter.MeasurementModel
	// q is state noise a.k.a. process noise
	q filter.Noise
	// r is output noise a.k.a. measurement noise
	r filter.Noise
	// opts are update options
	opts Options
}

// New creates new Filter and returns it.
// It accepts the following parameters:
//   - v:      filter variant
//   - motion: state transition model
//   - meas:   measurement model
//   - q:      state a.k.a. process noise
//   - r:      output a.k.a. measurement noise
//
// It returns error if either of the following conditions is met:
//   - unknown filter variant is given
//   - KF is requested for nonlinear models
//   - model dimensions disagree or are not positive
//   - noise covariance is neither empty nor matches the model dimensions
func New(v Variant, motion filter.MotionModel, meas filter.MeasurementModel, q, r filter.Noise, opts ...Option) (*Filter, error) {
	if err := v.Valid(); err != nil {
		return nil, err
	}

	if motion == nil || meas == nil {
		return nil, errors.Wrap(filter.ErrUnsupportedModel, "nil model")
	}

	if v == KF {
		if _, ok := motion.(filter.LinearMotion); !ok {
			return nil, errors.Wrap(filter.ErrUnsupportedModel, "KF requires linear motion model")
		}
		if _, ok := meas.(filter.LinearMeasurement); !ok {
			return nil, errors.Wrap(filter.ErrUnsupportedModel, "KF requires linear measurement model")
		}
	}

	nx, _ := motion.Dims()
	mx, ny := meas.Dims()
	if nx <= 0 || ny <= 0 || nx != mx {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "invalid model dimensions: [%d x %d], measurement state: %d", nx, ny, mx)
	}

	var err error
	if q, err = checkNoise(q, nx); err != nil {
		return nil, errors.Wrap(err, "invalid state noise")
	}

	if r, err = checkNoise(r, ny); err != nil {
		return nil, errors.Wrap(err, "invalid output noise")
	}

	return &Filter{
		v:      v,
		motion: motion,
		meas:   meas,
		q:      q,
		r:      r,
		opts:   newOptions(opts...),
	}, nil
}

func checkNoise(n filter.Noise, dim int) (filter.Noise, error) {
	if n == nil {
		return noise.NewNone()
	}

	if d := n.Cov().SymmetricDim(); d != 0 && d != dim {
		return nil, errors.Wrapf(filter.ErrDimensionMismatch, "noise dimension: %d != %d", d, dim)
	}

	return n, nil
}

// Predict returns the prediction of estimate x given control input u.
func (f *Filter) Predict(x filter.Estimate, u mat.Vector) (filter.Estimate, error) {
	return predict(x, f.motion, u, f.q.Cov(), f.v)
}

// Update corrects predicted estimate x using measurement z.
// If the innovation covariance can not be inverted it returns x together with filter.ErrSingularInnovationCovariance.
func (f *Filter) Update(x filter.Estimate, z mat.Vector) (filter.Estimate, *estimate.Innovation, error) {
	return update(x, z, f.meas, f.r.Cov(), f.v, f.opts)
}

// Run runs one step of the filter for given estimate x, input u and measurement z and returns the corrected estimate.
func (f *Filter) Run(x filter.Estimate, u, z mat.Vector) (filter.Estimate, *estimate.Innovation, error) {
	pred, err := f.Predict(x, u)
	if err != nil {
		return nil, nil, err
	}

	return f.Update(pred, z)
}

// Variant returns filter variant
func (f *Filter) Variant() Variant {
	return f.v
}

// Motion returns filter motion model
func (f *Filter) Motion() filter.MotionModel {
	return f.motion
}

// Measurement returns filter measurement model
func (f *Filter) Measurement() filter.MeasurementModel {
	return f.meas
}

// StateNoise returns state noise
func (f *Filter) StateNoise() filter.Noise {
	return f.q
}

// OutputNoise returns output noise
func (f *Filter) OutputNoise() filter.Noise {
	return f.r
}
