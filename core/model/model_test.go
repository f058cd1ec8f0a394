package model

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/carprice/pkg/errors"
)

func TestCoefficientsPredict(t *testing.T) {
	c := Coefficients{Theta0: 8000, Theta1: -0.02}
	// 8000 - 0.02*50000 is exact in binary floating point
	require.Equal(t, 7000.0, c.Predict(50000))
	require.Equal(t, 8000.0, c.Predict(0))
}

func TestCoefficientsValidate(t *testing.T) {
	require.NoError(t, Coefficients{Theta0: 1, Theta1: -1}.Validate())

	err := Coefficients{Theta0: math.NaN()}.Validate()
	var valueErr *errors.ValueError
	require.True(t, errors.As(err, &valueErr))

	require.Error(t, Coefficients{Theta1: math.Inf(-1)}.Validate())
}

func TestTraceAppendKeepsLengthsEqual(t *testing.T) {
	tr := NewTrace(4)
	for i := 0; i < 10; i++ {
		tr.Append(float64(i), -float64(i), 1/float64(i+1))
	}

	assert.Equal(t, 10, tr.Len())
	assert.Len(t, tr.Theta0, 10)
	assert.Len(t, tr.Theta1, 10)
	assert.Len(t, tr.Loss, 10)

	p := tr.At(3)
	assert.Equal(t, TracePoint{Iteration: 3, Theta0: 3, Theta1: -3, Loss: 0.25}, p)

	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, 9, last.Iteration)
	assert.Equal(t, Coefficients{Theta0: 9, Theta1: -9}, tr.Coefficients(9))
	require.NoError(t, tr.Validate())
}

func TestTraceValidate(t *testing.T) {
	tests := []struct {
		name  string
		trace *Trace
	}{
		{"empty", NewTrace(0)},
		{"unequal", &Trace{Theta0: []float64{1, 2}, Theta1: []float64{1}, Loss: []float64{1, 2}}},
		{"nan loss", &Trace{Theta0: []float64{1}, Theta1: []float64{1}, Loss: []float64{math.NaN()}}},
		{"inf theta", &Trace{Theta0: []float64{math.Inf(1)}, Theta1: []float64{1}, Loss: []float64{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.trace.Validate())
		})
	}

	_, ok := NewTrace(0).Last()
	assert.False(t, ok)
}

func TestTraceValidateReportsFirstSequence(t *testing.T) {
	nan := math.NaN()
	tr := &Trace{Theta0: []float64{1, nan}, Theta1: []float64{nan, 1}, Loss: []float64{nan, nan}}
	for i := 0; i < 20; i++ {
		err := tr.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-finite theta0 at iteration 1")
	}

	tr.Theta0[1] = 2
	assert.Contains(t, tr.Validate().Error(), "non-finite theta1 at iteration 0")
}

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	require.False(t, s.IsFitted())

	err := s.RequireFitted("GDRegressor", "Predict")
	var notFitted *errors.NotFittedError
	require.True(t, errors.As(err, &notFitted))
	assert.Equal(t, "Predict", notFitted.Method)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.SetFitted(24)
			_ = s.IsFitted()
		}()
	}
	wg.Wait()

	require.NoError(t, s.RequireFitted("GDRegressor", "Predict"))
	assert.Equal(t, 24, s.NSamples())

	s.Reset()
	assert.False(t, s.IsFitted())
	assert.Zero(t, s.NSamples())
}
