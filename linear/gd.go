// Package linear は走行距離から価格を予測する単回帰モデルを提供する
package linear

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/carprice/core/model"
	"github.com/YuminosukeSato/carprice/metrics"
	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
	"github.com/YuminosukeSato/carprice/preprocessing"
)

const (
	modelName     = "GDRegressor"
	algorithmName = "gradient descent"

	// traceCapHint は履歴スライスの初期容量の上限
	traceCapHint = 4096
)

// Status は学習の終了状態
type Status int

const (
	// Running は学習中。Fitが返すResultがこの状態になることはない
	Running Status = iota
	// Converged は損失の変化量または勾配が閾値を下回って終了した
	Converged
	// MaxIterReached は反復回数の上限に達して終了した（エラーではない）
	MaxIterReached
	// Stopped はコールバックの要求で終了した
	Stopped
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Converged:
		return "converged"
	case MaxIterReached:
		return "max_iter_reached"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result は1回の学習の結果
type Result struct {
	// Coefficients は元の単位に戻した最終係数
	Coefficients model.Coefficients
	// Trace は反復ごとの係数（元の単位）と損失（標準化空間）
	Trace *model.Trace
	// Status は終了状態
	Status Status
	// Iterations は実行した反復回数。Trace.Len() と等しい
	Iterations int
	// Scaling は学習時の標準化パラメータ
	Scaling preprocessing.Scaling
	// FinalLoss は最後の反復の損失（標準化空間の平均二乗誤差）
	FinalLoss float64
}

// GDRegressor は標準化した走行距離と価格に対してバッチ勾配降下法で
// price ≈ theta0 + theta1 × mileage を学習する
type GDRegressor struct {
	state *model.StateManager

	learningRate float64
	maxIter      int
	lossTol      float64
	gradTol      float64
	callbacks    []Callback
	logger       log.Logger

	coef   model.Coefficients
	result *Result
}

// NewGDRegressor は新しいGDRegressorを作成する
//
// 使用例:
//
//	reg := linear.NewGDRegressor(
//	    linear.WithLearningRate(0.05),
//	    linear.WithMaxIter(5000),
//	)
//	res, err := reg.Fit(km, price)
func NewGDRegressor(opts ...Option) *GDRegressor {
	r := &GDRegressor{
		state:        model.NewStateManager(),
		learningRate: DefaultLearningRate,
		maxIter:      DefaultMaxIter,
		lossTol:      DefaultLossTol,
		gradTol:      DefaultGradTol,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fit は走行距離と価格のサンプルでモデルを学習する
//
// 反復上限に達した場合はエラーではなく、Status が MaxIterReached の結果を返し
// ConvergenceWarning を発生させる。NaN/Infが発生した場合は DivergenceError を返し、
// 以前の学習結果は破棄される
func (r *GDRegressor) Fit(mileage, price []float64) (res *Result, err error) {
	defer errors.Recover(&err, "GDRegressor.Fit")

	logger := r.log()

	if err := r.validateParams(); err != nil {
		return nil, err
	}
	if err := validateSamples(mileage, price); err != nil {
		return nil, err
	}

	r.state.Reset()
	r.result = nil

	xs := preprocessing.NewStandardizer("mileage")
	x, err := xs.FitTransform(mileage)
	if err != nil {
		return nil, err
	}
	ys := preprocessing.NewStandardizer("price")
	y, err := ys.FitTransform(price)
	if err != nil {
		return nil, err
	}
	scaling, err := preprocessing.NewScaling(xs, ys)
	if err != nil {
		return nil, err
	}

	logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, len(mileage),
		log.LearningRateKey, r.learningRate,
		log.MaxIterKey, r.maxIter,
		log.LossTolKey, r.lossTol,
		log.GradTolKey, r.gradTol,
	)
	start := time.Now()

	res, err = r.descend(x, y, scaling)
	if err != nil {
		logger.Error("Training failed", err,
			log.OperationKey, log.OperationFit,
			log.DurationMsKey, time.Since(start),
		)
		return nil, err
	}

	logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.StatusKey, res.Status.String(),
		log.IterationKey, res.Iterations,
		log.LossKey, res.FinalLoss,
		log.Theta0Key, res.Coefficients.Theta0,
		log.Theta1Key, res.Coefficients.Theta1,
		log.DurationMsKey, time.Since(start),
	)

	if res.Status == MaxIterReached {
		errors.Warn(errors.NewConvergenceWarning(algorithmName, res.Iterations,
			fmt.Sprintf("loss still changing after %d iterations; consider a larger max_iter or learning rate", res.Iterations)))
	}

	r.coef = res.Coefficients
	r.result = res
	r.state.SetFitted(len(mileage))
	return res, nil
}

// descend は標準化空間で勾配降下を実行する。x と y は標準化済み
func (r *GDRegressor) descend(x, y []float64, sc preprocessing.Scaling) (*Result, error) {
	n := float64(len(x))
	residuals := make([]float64, len(x))
	trace := model.NewTrace(min(r.maxIter, traceCapHint))

	var theta0, theta1 float64
	prevLoss := math.Inf(1)
	status := Running

	var loss float64
	for iter := 0; iter < r.maxIter && status == Running; iter++ {
		// 残差 = theta0 + theta1*x - y
		for i := range x {
			residuals[i] = theta0 + theta1*x[i] - y[i]
		}
		grad0 := floats.Sum(residuals) / n
		grad1 := floats.Dot(residuals, x) / n
		loss = floats.Dot(residuals, residuals) / n

		// 2つのパラメータを同時に更新する
		theta0 -= r.learningRate * grad0
		theta1 -= r.learningRate * grad1

		if err := errors.CheckNumericalStability("gradient step",
			[]float64{grad0, grad1, theta0, theta1, loss}, iter); err != nil {
			return nil, errors.NewDivergenceError(algorithmName, r.learningRate, iter, err)
		}

		coef := sc.Destandardize(theta0, theta1)
		if err := errors.CheckNumericalStability("destandardize",
			[]float64{coef.Theta0, coef.Theta1}, iter); err != nil {
			return nil, errors.NewDivergenceError(algorithmName, r.learningRate, iter, err)
		}
		trace.Append(coef.Theta0, coef.Theta1, loss)

		env := CallbackEnv{
			Iteration: iter,
			Theta0:    coef.Theta0,
			Theta1:    coef.Theta1,
			Loss:      loss,
			Grad0:     grad0,
			Grad1:     grad1,
		}
		for _, cb := range r.callbacks {
			if err := cb(&env); err != nil {
				return nil, errors.Wrapf(err, "callback aborted training at iteration %d", iter)
			}
		}

		switch {
		case r.converged(prevLoss, loss, grad0, grad1):
			status = Converged
		case env.StopTraining:
			status = Stopped
		}
		prevLoss = loss
	}
	if status == Running {
		status = MaxIterReached
	}

	last, _ := trace.Last()
	return &Result{
		Coefficients: trace.Coefficients(last.Iteration),
		Trace:        trace,
		Status:       status,
		Iterations:   trace.Len(),
		Scaling:      sc,
		FinalLoss:    loss,
	}, nil
}

// converged は損失の変化量、または両方の勾配の大きさで収束を判定する。
// 閾値が0の判定は無効
func (r *GDRegressor) converged(prevLoss, loss, grad0, grad1 float64) bool {
	if r.lossTol > 0 && math.Abs(prevLoss-loss) < r.lossTol {
		return true
	}
	return r.gradTol > 0 && math.Abs(grad0) < r.gradTol && math.Abs(grad1) < r.gradTol
}

func (r *GDRegressor) validateParams() error {
	if !errors.IsFinite(r.learningRate) || r.learningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be a positive finite number", r.learningRate)
	}
	if r.maxIter < 1 {
		return errors.NewValidationError("max_iter", "must be at least 1", r.maxIter)
	}
	if !errors.IsFinite(r.lossTol) || r.lossTol < 0 {
		return errors.NewValidationError("loss_tol", "must be a non-negative finite number", r.lossTol)
	}
	if !errors.IsFinite(r.gradTol) || r.gradTol < 0 {
		return errors.NewValidationError("grad_tol", "must be a non-negative finite number", r.gradTol)
	}
	return nil
}

func validateSamples(mileage, price []float64) error {
	if len(mileage) != len(price) {
		return errors.NewDimensionError("GDRegressor.Fit", len(mileage), len(price), 0)
	}
	if len(mileage) == 0 {
		return errors.WrapValueError("GDRegressor.Fit", "no samples", errors.ErrEmptyData)
	}
	if i := errors.FirstNonFinite(mileage); i >= 0 {
		return errors.NewValueError("GDRegressor.Fit", fmt.Sprintf("mileage[%d] is not finite: %v", i, mileage[i]))
	}
	if i := errors.FirstNonFinite(price); i >= 0 {
		return errors.NewValueError("GDRegressor.Fit", fmt.Sprintf("price[%d] is not finite: %v", i, price[i]))
	}
	return nil
}

func (r *GDRegressor) log() log.Logger {
	if r.logger != nil {
		return r.logger
	}
	return log.GetLoggerWithName("linear.gd").With(log.ModelNameKey, modelName)
}

// IsFitted は学習済みかどうかを返す
func (r *GDRegressor) IsFitted() bool {
	return r.state.IsFitted()
}

// Coefficients は元の単位の学習済み係数を返す
func (r *GDRegressor) Coefficients() (model.Coefficients, error) {
	if err := r.state.RequireFitted(modelName, "Coefficients"); err != nil {
		return model.Coefficients{}, err
	}
	return r.coef, nil
}

// Result は最後に成功した学習の結果を返す。未学習の場合はnil
func (r *GDRegressor) Result() *Result {
	return r.result
}

// Predict は走行距離ごとの予測価格を返す
func (r *GDRegressor) Predict(mileage []float64) ([]float64, error) {
	if err := r.state.RequireFitted(modelName, "Predict"); err != nil {
		return nil, err
	}
	pred := metrics.Predict(r.coef, mileage)
	if pred.IsEmpty() {
		return []float64{}, nil
	}
	return mat.Col(nil, 0, pred), nil
}

// Score は決定係数（R²）を返す
func (r *GDRegressor) Score(mileage, price []float64) (float64, error) {
	if err := r.state.RequireFitted(modelName, "Score"); err != nil {
		return 0, err
	}
	if len(mileage) != len(price) {
		return 0, errors.NewDimensionError("GDRegressor.Score", len(mileage), len(price), 0)
	}
	if len(price) == 0 {
		return 0, errors.NewModelError("GDRegressor.Score", "empty data", errors.ErrEmptyData)
	}
	yTrue := mat.NewVecDense(len(price), append([]float64(nil), price...))
	return metrics.R2Score(yTrue, metrics.Predict(r.coef, mileage))
}

// String はモデルの文字列表現を返す
func (r *GDRegressor) String() string {
	if !r.state.IsFitted() {
		return fmt.Sprintf("GDRegressor(learning_rate=%g, max_iter=%d)", r.learningRate, r.maxIter)
	}
	return fmt.Sprintf("GDRegressor(learning_rate=%g, max_iter=%d, %s)", r.learningRate, r.maxIter, r.coef)
}

var _ model.Regressor = (*GDRegressor)(nil)
