package linear

import (
	"github.com/YuminosukeSato/carprice/pkg/log"
)

// CallbackEnv describes the iteration that just finished. Coefficients are
// de-standardized; loss and gradients are in standardized units.
type CallbackEnv struct {
	Iteration int
	Theta0    float64
	Theta1    float64
	Loss      float64
	Grad0     float64
	Grad1     float64

	// StopTraining may be set by a callback to end training after this
	// iteration with status Stopped.
	StopTraining bool
}

// Callback is a function called after every iteration. A non-nil error
// aborts training.
type Callback func(env *CallbackEnv) error

// LogEvaluation logs progress at debug level every period iterations.
func LogEvaluation(logger log.Logger, period int) Callback {
	if period < 1 {
		period = 1
	}
	return func(env *CallbackEnv) error {
		if env.Iteration%period == 0 {
			logger.Debug("Training progress",
				log.IterationKey, env.Iteration,
				log.LossKey, env.Loss,
				log.Theta0Key, env.Theta0,
				log.Theta1Key, env.Theta1,
				log.Grad0Key, env.Grad0,
				log.Grad1Key, env.Grad1,
			)
		}
		return nil
	}
}

// StopAfter requests a stop once n iterations have run. It is meant for
// inspecting the early part of a run.
func StopAfter(n int) Callback {
	return func(env *CallbackEnv) error {
		if env.Iteration+1 >= n {
			env.StopTraining = true
		}
		return nil
	}
}
