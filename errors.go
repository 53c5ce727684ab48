package filter

import "github.com/pkg/errors"

var (
	// ErrInvalidVariant is returned when an unsupported filter variant is requested
	ErrInvalidVariant = errors.New("invalid filter variant")
	// ErrDimensionMismatch is returned when mean, covariance, noise or model shapes disagree
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidCovariance is returned when a covariance matrix is not symmetric positive semi-definite
	ErrInvalidCovariance = errors.New("invalid covariance")
	// ErrSingularInnovationCovariance is returned when innovation covariance can not be inverted
	ErrSingularInnovationCovariance = errors.New("singular innovation covariance")
	// ErrUnsupportedModel is returned when a filter variant can not drive the supplied model
	ErrUnsupportedModel = errors.New("unsupported model")
)
