package linear

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
)

var (
	twoPointMileage = []float64{0, 100000}
	twoPointPrice   = []float64{10000, 0}
)

func quietRegressor(opts ...Option) *GDRegressor {
	opts = append([]Option{WithLogger(log.NewTestLogger(log.LevelError))}, opts...)
	return NewGDRegressor(opts...)
}

// captureWarnings は errors.Warn に渡された警告を記録する
func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var mu sync.Mutex
	warnings := &[]error{}
	errors.SetZerologWarnFunc(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		*warnings = append(*warnings, w)
	})
	t.Cleanup(func() { errors.SetZerologWarnFunc(nil) })
	return warnings
}

func noisyLine(n int, seed int64) (x, y []float64) {
	rng := rand.New(rand.NewSource(seed))
	x = make([]float64, n)
	y = make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = 20000 + rng.Float64()*200000
		y[i] = 9000 - 0.025*x[i] + rng.NormFloat64()*300
	}
	return x, y
}

func TestGDRegressorTwoPoints(t *testing.T) {
	reg := quietRegressor()
	res, err := reg.Fit(twoPointMileage, twoPointPrice)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if res.Status != Converged {
		t.Errorf("Status = %v, want converged", res.Status)
	}
	if math.Abs(res.Coefficients.Theta1-(-0.1)) > 1e-4 {
		t.Errorf("theta1 = %v, want about -0.1", res.Coefficients.Theta1)
	}
	if math.Abs(res.Coefficients.Theta0-10000) > 5 {
		t.Errorf("theta0 = %v, want about 10000", res.Coefficients.Theta0)
	}
	if res.Iterations < 100 || res.Iterations > 2000 {
		t.Errorf("Iterations = %d, expected a few hundred", res.Iterations)
	}

	coef, err := reg.Coefficients()
	if err != nil {
		t.Fatalf("Coefficients() error = %v", err)
	}
	if coef != res.Coefficients {
		t.Errorf("Coefficients() = %v, want %v", coef, res.Coefficients)
	}

	pred, err := reg.Predict([]float64{50000})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if math.Abs(pred[0]-5000) > 5 {
		t.Errorf("Predict(50000) = %v, want about 5000", pred[0])
	}

	score, err := reg.Score(twoPointMileage, twoPointPrice)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if score < 0.9999 {
		t.Errorf("Score() = %v, want about 1", score)
	}
}

func TestGDRegressorTrace(t *testing.T) {
	x, y := noisyLine(200, 7)
	res, err := quietRegressor().Fit(x, y)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	tr := res.Trace
	if err := tr.Validate(); err != nil {
		t.Fatalf("trace invalid: %v", err)
	}
	if tr.Len() != res.Iterations {
		t.Errorf("trace length %d != iterations %d", tr.Len(), res.Iterations)
	}
	if len(tr.Theta0) != len(tr.Theta1) || len(tr.Theta1) != len(tr.Loss) {
		t.Errorf("unequal trace lengths: %d %d %d", len(tr.Theta0), len(tr.Theta1), len(tr.Loss))
	}
	if got := tr.Coefficients(tr.Len() - 1); got != res.Coefficients {
		t.Errorf("last trace entry %v != result %v", got, res.Coefficients)
	}
	if tr.Loss[len(tr.Loss)-1] != res.FinalLoss {
		t.Errorf("FinalLoss = %v, want %v", res.FinalLoss, tr.Loss[len(tr.Loss)-1])
	}

	for i := 1; i < tr.Len(); i++ {
		if tr.Loss[i] > tr.Loss[i-1]+1e-12 {
			t.Fatalf("loss increased at iteration %d: %v -> %v", i, tr.Loss[i-1], tr.Loss[i])
		}
	}
}

func TestGDRegressorMatchesLeastSquares(t *testing.T) {
	x, y := noisyLine(500, 42)
	alpha, beta := stat.LinearRegression(x, y, nil, false)

	tests := []struct {
		name string
		opts []Option
		eps  float64
	}{
		{name: "default tolerances", eps: 1e-3},
		{name: "tight gradient tolerance", opts: []Option{WithLossTol(0), WithGradTol(1e-10)}, eps: 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := quietRegressor(tt.opts...).Fit(x, y)
			if err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			if res.Status != Converged {
				t.Fatalf("Status = %v", res.Status)
			}
			if rel := math.Abs((res.Coefficients.Theta1 - beta) / beta); rel > tt.eps {
				t.Errorf("theta1 = %v, least squares %v (rel err %g)", res.Coefficients.Theta1, beta, rel)
			}
			if rel := math.Abs((res.Coefficients.Theta0 - alpha) / alpha); rel > tt.eps {
				t.Errorf("theta0 = %v, least squares %v (rel err %g)", res.Coefficients.Theta0, alpha, rel)
			}
		})
	}
}

func TestGDRegressorDivergence(t *testing.T) {
	reg := quietRegressor()
	if _, err := reg.Fit(twoPointMileage, twoPointPrice); err != nil {
		t.Fatalf("first Fit() error = %v", err)
	}

	reg.learningRate = 10
	res, err := reg.Fit(twoPointMileage, twoPointPrice)
	if err == nil {
		t.Fatalf("expected divergence, got %+v", res)
	}
	if res != nil {
		t.Error("no result must be returned on divergence")
	}

	var divErr *errors.DivergenceError
	if !errors.As(err, &divErr) {
		t.Fatalf("expected DivergenceError, got %T: %v", err, err)
	}
	if divErr.Iteration <= 0 || divErr.LearningRate != 10 {
		t.Errorf("DivergenceError = %+v", divErr)
	}
	var numErr *errors.NumericalInstabilityError
	if !errors.As(err, &numErr) {
		t.Error("expected the numerical instability cause to be wrapped")
	}

	if reg.IsFitted() {
		t.Error("a diverged fit must clear the fitted state")
	}
	if _, err := reg.Coefficients(); err == nil {
		t.Error("Coefficients() must fail after divergence")
	}
}

func TestGDRegressorDegenerateInput(t *testing.T) {
	tests := []struct {
		name    string
		mileage []float64
		price   []float64
		feature string
	}{
		{"constant price", []float64{10000, 20000, 30000}, []float64{5000, 5000, 5000}, "price"},
		{"constant mileage", []float64{42000, 42000}, []float64{3000, 4000}, "mileage"},
		{"single sample", []float64{42000}, []float64{3000}, "mileage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quietRegressor().Fit(tt.mileage, tt.price)
			var degErr *errors.DegenerateInputError
			if !errors.As(err, &degErr) {
				t.Fatalf("expected DegenerateInputError, got %v", err)
			}
			if degErr.Feature != tt.feature {
				t.Errorf("Feature = %q, want %q", degErr.Feature, tt.feature)
			}
		})
	}
}

func TestGDRegressorInvalidSamples(t *testing.T) {
	reg := quietRegressor()

	_, err := reg.Fit([]float64{1, 2}, []float64{1})
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("length mismatch: got %v", err)
	}

	_, err = reg.Fit(nil, nil)
	if !errors.Is(err, errors.ErrEmptyData) || !errors.As(err, new(*errors.ValueError)) {
		t.Errorf("empty data: got %v", err)
	}

	_, err = reg.Fit([]float64{1, math.NaN()}, []float64{1, 2})
	var valErr *errors.ValueError
	if !errors.As(err, &valErr) {
		t.Errorf("NaN mileage: got %v", err)
	}

	_, err = reg.Fit([]float64{1, 2}, []float64{1, math.Inf(1)})
	if !errors.As(err, &valErr) {
		t.Errorf("Inf price: got %v", err)
	}
}

func TestGDRegressorValidation(t *testing.T) {
	tests := []struct {
		name  string
		opt   Option
		param string
	}{
		{"zero learning rate", WithLearningRate(0), "learning_rate"},
		{"negative learning rate", WithLearningRate(-0.1), "learning_rate"},
		{"NaN learning rate", WithLearningRate(math.NaN()), "learning_rate"},
		{"zero max iter", WithMaxIter(0), "max_iter"},
		{"negative loss tol", WithLossTol(-1), "loss_tol"},
		{"infinite grad tol", WithGradTol(math.Inf(1)), "grad_tol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quietRegressor(tt.opt).Fit(twoPointMileage, twoPointPrice)
			var vErr *errors.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.ParamName != tt.param {
				t.Errorf("ParamName = %q, want %q", vErr.ParamName, tt.param)
			}
		})
	}
}

func TestGDRegressorMaxIterReached(t *testing.T) {
	warnings := captureWarnings(t)

	res, err := quietRegressor(WithMaxIter(10)).Fit(twoPointMileage, twoPointPrice)
	if err != nil {
		t.Fatalf("MaxIterReached must not be an error: %v", err)
	}
	if res.Status != MaxIterReached {
		t.Errorf("Status = %v, want max_iter_reached", res.Status)
	}
	if res.Iterations != 10 || res.Trace.Len() != 10 {
		t.Errorf("Iterations = %d, trace = %d, want 10", res.Iterations, res.Trace.Len())
	}

	if len(*warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(*warnings))
	}
	var cw *errors.ConvergenceWarning
	if !errors.As((*warnings)[0], &cw) || cw.Iterations != 10 {
		t.Errorf("unexpected warning %v", (*warnings)[0])
	}
}

func TestGDRegressorCallbacks(t *testing.T) {
	t.Run("stop after", func(t *testing.T) {
		var seen []int
		record := func(env *CallbackEnv) error {
			seen = append(seen, env.Iteration)
			return nil
		}
		res, err := quietRegressor(WithCallbacks(record, StopAfter(5))).Fit(twoPointMileage, twoPointPrice)
		if err != nil {
			t.Fatalf("Fit() error = %v", err)
		}
		if res.Status != Stopped || res.Iterations != 5 {
			t.Errorf("Status = %v after %d iterations, want stopped after 5", res.Status, res.Iterations)
		}
		if len(seen) != 5 || seen[0] != 0 || seen[4] != 4 {
			t.Errorf("callback iterations = %v", seen)
		}
	})

	t.Run("error aborts", func(t *testing.T) {
		sentinel := errors.New("abort")
		cb := func(env *CallbackEnv) error {
			if env.Iteration == 3 {
				return sentinel
			}
			return nil
		}
		reg := quietRegressor(WithCallbacks(cb))
		_, err := reg.Fit(twoPointMileage, twoPointPrice)
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected the callback error, got %v", err)
		}
		if reg.IsFitted() {
			t.Error("aborted fit must not mark the model fitted")
		}
	})

	t.Run("panic is recovered", func(t *testing.T) {
		cb := func(env *CallbackEnv) error { panic("boom") }
		_, err := quietRegressor(WithCallbacks(cb)).Fit(twoPointMileage, twoPointPrice)
		var pErr *errors.PanicError
		if !errors.As(err, &pErr) {
			t.Fatalf("expected PanicError, got %v", err)
		}
		if pErr.Operation != "GDRegressor.Fit" {
			t.Errorf("Operation = %q", pErr.Operation)
		}
	})

	t.Run("log evaluation", func(t *testing.T) {
		logger := log.NewTestLogger(log.LevelDebug)
		_, err := NewGDRegressor(
			WithLogger(logger),
			WithMaxIter(20),
			WithCallbacks(LogEvaluation(logger, 10)),
		).Fit(twoPointMileage, twoPointPrice)
		if err != nil {
			t.Fatalf("Fit() error = %v", err)
		}
		if got := logger.Count("debug"); got != 2 {
			t.Errorf("expected 2 progress records, got %d", got)
		}
	})
}

func TestGDRegressorLogging(t *testing.T) {
	logger := log.NewTestLogger(log.LevelInfo)
	if _, err := NewGDRegressor(WithLogger(logger)).Fit(twoPointMileage, twoPointPrice); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if !logger.ContainsMessage("Training started") || !logger.ContainsMessage("Training completed") {
		t.Errorf("missing training records:\n%s", logger.String())
	}
	if !logger.ContainsField(log.StatusKey, "converged") {
		t.Error("status field not logged")
	}

	logger.Clear()
	_, err := NewGDRegressor(WithLogger(logger), WithLearningRate(10)).Fit(twoPointMileage, twoPointPrice)
	if err == nil {
		t.Fatal("expected divergence")
	}
	if logger.Count("error") != 1 {
		t.Errorf("expected one error record:\n%s", logger.String())
	}
}

func TestGDRegressorNotFitted(t *testing.T) {
	reg := NewGDRegressor()
	var nfErr *errors.NotFittedError

	if _, err := reg.Predict([]float64{1}); !errors.As(err, &nfErr) {
		t.Errorf("Predict: expected NotFittedError, got %v", err)
	}
	if _, err := reg.Score([]float64{1}, []float64{1}); !errors.As(err, &nfErr) {
		t.Errorf("Score: expected NotFittedError, got %v", err)
	}
	if _, err := reg.Coefficients(); !errors.As(err, &nfErr) {
		t.Errorf("Coefficients: expected NotFittedError, got %v", err)
	}
	if reg.Result() != nil {
		t.Error("Result() must be nil before Fit")
	}
}

func TestGDRegressorIndependentInstances(t *testing.T) {
	x, y := noisyLine(300, 3)
	want, err := quietRegressor().Fit(x, y)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	const workers = 8
	results := make([]*Result, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = quietRegressor().Fit(x, y)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if results[i].Coefficients != want.Coefficients || results[i].Iterations != want.Iterations {
			t.Errorf("worker %d: got %v after %d iterations, want %v after %d",
				i, results[i].Coefficients, results[i].Iterations, want.Coefficients, want.Iterations)
		}
	}
}

func TestStatusString(t *testing.T) {
	for s, want := range map[Status]string{
		Running:        "running",
		Converged:      "converged",
		MaxIterReached: "max_iter_reached",
		Stopped:        "stopped",
		Status(9):      "Status(9)",
	} {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}

func BenchmarkGDRegressorFit(b *testing.B) {
	x, y := noisyLine(1000, 1)
	reg := quietRegressor()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := reg.Fit(x, y); err != nil {
			b.Fatal(err)
		}
	}
}
