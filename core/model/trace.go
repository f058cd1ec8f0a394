package model

import (
	"fmt"

	"github.com/YuminosukeSato/carprice/pkg/errors"
)

// TracePoint is one iteration of a training run: de-standardized coefficients
// and the loss in standardized units.
type TracePoint struct {
	Iteration int
	Theta0    float64
	Theta1    float64
	Loss      float64
}

// Trace is the append-only per-iteration log of a training run. The three
// sequences are index-correlated and always have the same length; use Append
// rather than writing the slices directly.
type Trace struct {
	Theta0 []float64 `json:"theta0"`
	Theta1 []float64 `json:"theta1"`
	Loss   []float64 `json:"loss"`
}

// NewTrace returns an empty trace with room for capacity iterations.
func NewTrace(capacity int) *Trace {
	if capacity < 0 {
		capacity = 0
	}
	return &Trace{
		Theta0: make([]float64, 0, capacity),
		Theta1: make([]float64, 0, capacity),
		Loss:   make([]float64, 0, capacity),
	}
}

// Append records one iteration.
func (t *Trace) Append(theta0, theta1, loss float64) {
	t.Theta0 = append(t.Theta0, theta0)
	t.Theta1 = append(t.Theta1, theta1)
	t.Loss = append(t.Loss, loss)
}

// Len returns the number of recorded iterations.
func (t *Trace) Len() int {
	return len(t.Loss)
}

// At returns iteration i as a record.
func (t *Trace) At(i int) TracePoint {
	return TracePoint{Iteration: i, Theta0: t.Theta0[i], Theta1: t.Theta1[i], Loss: t.Loss[i]}
}

// Last returns the final recorded iteration; ok is false for an empty trace.
func (t *Trace) Last() (TracePoint, bool) {
	if t.Len() == 0 {
		return TracePoint{}, false
	}
	return t.At(t.Len() - 1), true
}

// Coefficients returns the coefficients recorded at iteration i.
func (t *Trace) Coefficients(i int) Coefficients {
	return Coefficients{Theta0: t.Theta0[i], Theta1: t.Theta1[i]}
}

// Validate checks that the three sequences have equal, non-zero length and
// hold only finite values.
func (t *Trace) Validate() error {
	if len(t.Theta0) != len(t.Theta1) || len(t.Theta0) != len(t.Loss) {
		return errors.NewValueError("Trace.Validate",
			fmt.Sprintf("inconsistent lengths: theta0=%d theta1=%d loss=%d", len(t.Theta0), len(t.Theta1), len(t.Loss)))
	}
	if t.Len() == 0 {
		return errors.NewModelError("Trace.Validate", "empty trace", errors.ErrEmptyData)
	}
	seqs := []struct {
		name string
		seq  []float64
	}{{"theta0", t.Theta0}, {"theta1", t.Theta1}, {"loss", t.Loss}}
	for _, s := range seqs {
		if i := errors.FirstNonFinite(s.seq); i >= 0 {
			return errors.NewValueError("Trace.Validate",
				fmt.Sprintf("non-finite %s at iteration %d: %v", s.name, i, s.seq[i]))
		}
	}
	return nil
}
