package estimate

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Innovation is the measurement residual of a filter update together with
// its covariance and the Kalman gain used to correct the state.
type Innovation struct {
	// Residual is the difference between actual and predicted measurement
	Residual *mat.VecDense
	// Cov is innovation covariance S
	Cov *mat.SymDense
	// Gain is Kalman gain K
	Gain *mat.Dense
}

// NIS returns normalised innovation squared: v' * inv(S) * v.
// It returns error if S can not be factorized.
func (inn *Innovation) NIS() (float64, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(inn.Cov); !ok {
		return 0, mat.ErrSingular
	}

	x := &mat.VecDense{}
	if err := chol.SolveVecTo(x, inn.Residual); err != nil {
		return 0, err
	}

	return mat.Dot(inn.Residual, x), nil
}

// LogLikelihood returns log density of the residual under N(0, S).
// It returns error if S can not be factorized.
func (inn *Innovation) LogLikelihood() (float64, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(inn.Cov); !ok {
		return 0, mat.ErrSingular
	}

	n := inn.Residual.Len()
	v := make([]float64, n)
	for i := range v {
		v[i] = inn.Residual.AtVec(i)
	}

	return distmv.NormalLogProb(v, make([]float64, n), &chol), nil
}
