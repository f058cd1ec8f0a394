package linear

import (
	"github.com/YuminosukeSato/carprice/pkg/log"
)

// Default hyperparameters of GDRegressor.
const (
	DefaultLearningRate = 0.01
	DefaultMaxIter      = 100000
	DefaultLossTol      = 1e-9
	DefaultGradTol      = 1e-6
)

// Option is a function that configures GDRegressor
type Option func(*GDRegressor)

// WithLearningRate sets the fixed step size used in standardized space
func WithLearningRate(rate float64) Option {
	return func(r *GDRegressor) {
		r.learningRate = rate
	}
}

// WithMaxIter sets the iteration cap
func WithMaxIter(n int) Option {
	return func(r *GDRegressor) {
		r.maxIter = n
	}
}

// WithLossTol sets the loss-delta convergence threshold. Training stops when
// the loss changes by less than tol between two iterations. Zero disables
// the test.
func WithLossTol(tol float64) Option {
	return func(r *GDRegressor) {
		r.lossTol = tol
	}
}

// WithGradTol sets the gradient-magnitude convergence threshold. Training
// stops when both gradients are below tol in absolute value. Zero disables
// the test.
func WithGradTol(tol float64) Option {
	return func(r *GDRegressor) {
		r.gradTol = tol
	}
}

// WithCallbacks appends callbacks run after every iteration
func WithCallbacks(callbacks ...Callback) Option {
	return func(r *GDRegressor) {
		r.callbacks = append(r.callbacks, callbacks...)
	}
}

// WithLogger sets the logger; by default the process-wide logger is used
func WithLogger(logger log.Logger) Option {
	return func(r *GDRegressor) {
		r.logger = logger
	}
}
