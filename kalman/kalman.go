package kalman

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/estimate"
	"github.com/vse-go/go-filter/kalman/ekf"
	"github.com/vse-go/go-filter/kalman/gain"
	"github.com/vse-go/go-filter/kalman/kf"
	"github.com/vse-go/go-filter/kalman/sigma"
	"github.com/vse-go/go-filter/kalman/ukf"
	"gonum.org/v1/gonum/mat"
)

// Variant is Kalman filter variant
type Variant int

const (
	// KF is linear Kalman filter
	KF Variant = iota
	// EKF is Extended Kalman filter
	EKF
	// UKF is Unscented Kalman filter
	UKF
	// CKF is Cubature Kalman filter
	CKF
)

var variantNames = map[Variant]string{
	KF:  "KF",
	EKF: "EKF",
	UKF: "UKF",
	CKF: "CKF",
}

// Variants returns all supported filter variants
func Variants() []Variant {
	return []Variant{KF, EKF, UKF, CKF}
}

// ParseVariant parses filter variant from s. Parsing is case insensitive.
// It returns filter.ErrInvalidVariant if s does not name a supported variant.
func ParseVariant(s string) (Variant, error) {
	for v, name := range variantNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return v, nil
		}
	}

	return 0, errors.Wrapf(filter.ErrInvalidVariant, "%q", s)
}

// String implements the Stringer interface.
func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}

	return "Variant(" + strconv.Itoa(int(v)) + ")"
}

// Valid returns error if v is not a supported filter variant
func (v Variant) Valid() error {
	if _, ok := variantNames[v]; !ok {
		return errors.Wrapf(filter.ErrInvalidVariant, "%d", int(v))
	}

	return nil
}

// Generator returns sigma point generator of the variant.
// It returns filter.ErrInvalidVariant if v is not a sigma point filter.
func (v Variant) Generator() (sigma.Generator, error) {
	switch v {
	case UKF:
		return sigma.Unscented, nil
	case CKF:
		return sigma.Cubature, nil
	}

	return nil, errors.Wrapf(filter.ErrInvalidVariant, "%s does not use sigma points", v)
}

// Options configure filter update
type Options struct {
	// MaxCond is innovation covariance condition number limit
	MaxCond float64
	// Iterations is the number of EKF update iterations
	Iterations int
}

// Option is functional filter option
type Option func(*Options)

// WithMaxCond sets innovation covariance condition number limit
func WithMaxCond(c float64) Option {
	return func(o *Options) {
		o.MaxCond = c
	}
}

// WithIterations sets the number of EKF update relinearizations.
// Values larger than 1 turn EKF into iterated EKF; other variants ignore it.
func WithIterations(n int) Option {
	return func(o *Options) {
		o.Iterations = n
	}
}

func newOptions(opts ...Option) Options {
	o := Options{
		MaxCond:    gain.DefaultMaxCond,
		Iterations: 1,
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}

// Predict propagates prior estimate through motion model m given control input u and
// process noise covariance q using filter variant v and returns the predicted estimate.
// u may be nil if m has no control input; q may be nil if there is no process noise.
// It returns filter.ErrInvalidVariant if v is unknown and filter.ErrUnsupportedModel
// if KF is requested with a nonlinear motion model.
func Predict(prior filter.Estimate, m filter.MotionModel, u mat.Vector, q mat.Symmetric, v Variant) (filter.Estimate, error) {
	if err := v.Valid(); err != nil {
		return nil, err
	}

	return predict(prior, m, u, q, v)
}

// Update corrects predicted estimate pred using measurement z, measurement model m and
// measurement noise covariance r using filter variant v and returns the corrected estimate.
// If the innovation covariance can not be inverted it returns pred together with
// filter.ErrSingularInnovationCovariance so the caller may keep the prediction.
func Update(pred filter.Estimate, z mat.Vector, m filter.MeasurementModel, r mat.Symmetric, v Variant, opts ...Option) (filter.Estimate, error) {
	est, _, err := UpdateWithInnovation(pred, z, m, r, v, opts...)

	return est, err
}

// UpdateWithInnovation works like Update and also returns the innovation of the update.
func UpdateWithInnovation(pred filter.Estimate, z mat.Vector, m filter.MeasurementModel, r mat.Symmetric, v Variant, opts ...Option) (filter.Estimate, *estimate.Innovation, error) {
	if err := v.Valid(); err != nil {
		return nil, nil, err
	}

	return update(pred, z, m, r, v, newOptions(opts...))
}

// Run runs one predict and update cycle of filter variant v and returns the corrected estimate.
// The variant is validated once before the cycle. If the innovation covariance can not be
// inverted it returns the predicted estimate together with filter.ErrSingularInnovationCovariance.
func Run(prior filter.Estimate, motion filter.MotionModel, u mat.Vector, q mat.Symmetric,
	z mat.Vector, meas filter.MeasurementModel, r mat.Symmetric, v Variant, opts ...Option) (filter.Estimate, error) {
	if err := v.Valid(); err != nil {
		return nil, err
	}

	pred, err := predict(prior, motion, u, q, v)
	if err != nil {
		return nil, err
	}

	est, _, err := update(pred, z, meas, r, v, newOptions(opts...))

	return est, err
}

// SigmaPoints generates sigma points of filter variant v for Gaussian estimate state.
// It returns filter.ErrInvalidVariant if v does not use sigma points.
func SigmaPoints(state filter.Estimate, v Variant) (*sigma.Points, error) {
	gen, err := v.Generator()
	if err != nil {
		return nil, err
	}

	if state == nil {
		return nil, errors.Wrap(filter.ErrDimensionMismatch, "nil estimate")
	}

	return gen(state.Val(), state.Cov())
}

func predict(prior filter.Estimate, m filter.MotionModel, u mat.Vector, q mat.Symmetric, v Variant) (filter.Estimate, error) {
	var (
		est *estimate.Base
		err error
	)

	switch v {
	case KF:
		lin, ok := m.(filter.LinearMotion)
		if !ok {
			return nil, errors.Wrap(filter.ErrUnsupportedModel, "KF requires linear motion model")
		}
		est, err = kf.Predict(prior, lin, u, q)
	case EKF:
		est, err = ekf.Predict(prior, m, u, q)
	default:
		gen, _ := v.Generator()
		est, err = ukf.Predict(prior, m, u, q, gen)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "%s predict", v)
	}

	return est, nil
}

func update(pred filter.Estimate, z mat.Vector, m filter.MeasurementModel, r mat.Symmetric, v Variant, o Options) (filter.Estimate, *estimate.Innovation, error) {
	var (
		est *estimate.Base
		inn *estimate.Innovation
		err error
	)

	switch v {
	case KF:
		lin, ok := m.(filter.LinearMeasurement)
		if !ok {
			return nil, nil, errors.Wrap(filter.ErrUnsupportedModel, "KF requires linear measurement model")
		}
		est, inn, err = kf.Update(pred, z, lin, r, o.MaxCond)
	case EKF:
		if o.Iterations > 1 {
			est, inn, err = ekf.UpdateIterated(pred, z, m, r, o.Iterations, o.MaxCond)
		} else {
			est, inn, err = ekf.Update(pred, z, m, r, o.MaxCond)
		}
	default:
		gen, _ := v.Generator()
		est, inn, err = ukf.Update(pred, z, m, r, gen, o.MaxCond)
	}

	if err != nil {
		if errors.Is(err, filter.ErrSingularInnovationCovariance) {
			return pred, nil, errors.Wrapf(err, "%s update", v)
		}
		return nil, nil, errors.Wrapf(err, "%s update", v)
	}

	return est, inn, nil
}
