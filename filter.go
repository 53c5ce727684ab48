package filter

import "gonum.org/v1/gonum/mat"

// Propagator propagates internal state of the system to the next step
type Propagator interface {
	// Propagate returns the next system state given state x and control input u.
	// u may be nil when the system has no control input.
	Propagate(x, u mat.Vector) (mat.Vector, error)
}

// Observer observes external state (output) of the system
type Observer interface {
	// Observe returns the system output for state x
	Observe(x mat.Vector) (mat.Vector, error)
}

// MotionModel is a state transition model of a dynamical system
type MotionModel interface {
	// Propagator is system propagator
	Propagator
	// StateJacobian returns the Jacobian of the propagation evaluated at x and u
	StateJacobian(x, u mat.Vector) (mat.Matrix, error)
	// Dims returns state and control input dimensions
	Dims() (nx, nu int)
}

// MeasurementModel is an observation model of a dynamical system
type MeasurementModel interface {
	// Observer is system observer
	Observer
	// OutputJacobian returns the Jacobian of the observation evaluated at x
	OutputJacobian(x mat.Vector) (mat.Matrix, error)
	// Dims returns state and output dimensions
	Dims() (nx, ny int)
}

// ResidualModel is a measurement model whose outputs do not subtract linearly, e.g. angles
type ResidualModel interface {
	// Residual returns a - b folded into the output domain of the model
	Residual(a, b mat.Vector) *mat.VecDense
}

// LinearMotion is a motion model driven by static propagation matrices:
//
//	x[n+1] = A*x[n] + B*u[n]
type LinearMotion interface {
	// MotionModel is a state transition model
	MotionModel
	// SystemMatrix returns state propagation matrix A
	SystemMatrix() mat.Matrix
	// ControlMatrix returns state propagation control matrix B.
	// It returns nil if the model has no control input.
	ControlMatrix() mat.Matrix
}

// LinearMeasurement is a measurement model driven by a static observation matrix:
//
//	y[n] = H*x[n]
type LinearMeasurement interface {
	// MeasurementModel is an observation model
	MeasurementModel
	// OutputMatrix returns observation matrix H
	OutputMatrix() mat.Matrix
}

// Estimate is a Gaussian estimate of the system state
type Estimate interface {
	// Val returns estimate mean
	Val() mat.Vector
	// Cov returns estimate covariance
	Cov() mat.Symmetric
}

// Noise is dynamical system noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset() error
}
