package ekf

import (
	"github.com/pkg/errors"
	filter "github.com/vse-go/go-filter"
	"github.com/vse-go/go-filter/estimate"
	"github.com/vse-go/go-filter/kalman/gain"
	"gonum.org/v1/gonum/mat"
)

// UpdateIterated corrects predicted estimate pred using measurement z in n Gauss-Newton iterations.
// In every iteration the measurement function is relinearized around the latest corrected mean xi:
//
//	H = dh/dx(xi)
//	x = x + K*(z - h(xi) - H*(x - xi))
//
// The covariance is corrected in Joseph form using the gain and Jacobian of the last iteration.
// UpdateIterated with n = 1 is equivalent to Update.
// It returns error if n is not positive.
func UpdateIterated(pred filter.Estimate, z mat.Vector, m filter.MeasurementModel, r mat.Symmetric, n int, maxCond float64) (*estimate.Base, *estimate.Innovation, error) {
	if n <= 0 {
		return nil, nil, errors.Errorf("invalid number of update iterations: %d", n)
	}

	if err := checkEstimate(pred, m); err != nil {
		return nil, nil, err
	}

	var (
		est *estimate.Base
		inn *estimate.Innovation
	)

	xi := pred.Val()

	// iterate n number of iterations and keep updating xi
	for i := 0; i < n; i++ {
		y, err := m.Observe(xi)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to observe system output")
		}

		H, err := m.OutputJacobian(xi)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to calculate observation Jacobian")
		}

		// h(xi) + H*(x - xi)
		dx := &mat.VecDense{}
		dx.SubVec(pred.Val(), xi)
		yLin := &mat.VecDense{}
		yLin.MulVec(H, dx)
		yLin.AddVec(yLin, y)

		est, inn, err = gain.CorrectJoseph(pred, z, gain.Align(m, z, yLin), H, r, maxCond)
		if err != nil {
			return nil, nil, err
		}

		xi = est.Val()
	}

	return est, inn, nil
}
