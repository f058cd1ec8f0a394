// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// 学習・推定・評価の各ツールが返すエラーを分類し、スタックトレース付きの構造化エラーとして扱います。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("carprice-warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler は警告ハンドラを設定します。
// ConvergenceWarningなどの警告の処理方法を制御できます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nilを渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが利用可能な場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// ConvergenceWarning は最適化アルゴリズムが収束しなかった場合に発生する警告です。
// 学習は失敗扱いにならず、その時点の係数が返されます。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter or adjusting the learning rate.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しいConvergenceWarningを作成します。
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// UndefinedMetricWarning は評価指標が計算できない場合に発生する警告です。
// 例えば、価格の分散が0のときのR²など。
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // この条件で返される値
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning は新しいUndefinedMetricWarningを作成します。
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` や `Transform` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("carprice: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの長さが期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("carprice: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
// 学習率や反復回数などのハイパーパラメータの不正値を示します。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("carprice: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
// 例えば、走行距離として数値でない文字列が渡された場合など。
type ValueError struct {
	Op      string
	Message string
	Err     error
}

func (e *ValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("carprice: %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("carprice: %s: %s", e.Op, e.Message)
}

func (e *ValueError) Unwrap() error {
	return e.Err
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// WrapValueError は原因となるエラー（ErrEmptyDataなど）を保持したValueErrorを作成します。
func WrapValueError(op, message string, cause error) error {
	return errors.WithStack(&ValueError{Op: op, Message: message, Err: cause})
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("carprice: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("carprice: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// ===========================================================================
//
//	学習データ・成果物に関するエラー型
//
// ===========================================================================

// InputError はサンプルデータの読み込みに失敗した場合のエラーです。
// ファイルの欠落、必須列の欠落、数値でない値、フィルタ後の空データなどを示します。
type InputError struct {
	Source string // 入力元（ファイルパスなど）
	Row    int    // 問題のある行番号（1始まり、ヘッダを含む）。不明な場合は0
	Column string // 問題のある列名（オプション）
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	msg := fmt.Sprintf("carprice: invalid input %q: %s", e.Source, e.Reason)
	if e.Column != "" && e.Row > 0 {
		msg = fmt.Sprintf("carprice: invalid input %q at row %d, column %q: %s", e.Source, e.Row, e.Column, e.Reason)
	} else if e.Column != "" {
		msg = fmt.Sprintf("carprice: invalid input %q, column %q: %s", e.Source, e.Column, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InputError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("source", e.Source).
		Int("row", e.Row).
		Str("column", e.Column).
		Str("reason", e.Reason).
		Str("type", "InputError")
}

// NewInputError は新しいInputErrorを作成し、スタックトレースを付与します。
func NewInputError(source, reason string, err error) error {
	return errors.WithStack(&InputError{Source: source, Reason: reason, Err: err})
}

// NewInputCellError は特定のセルに起因するInputErrorを作成します。
func NewInputCellError(source string, row int, column, reason string, err error) error {
	return errors.WithStack(&InputError{Source: source, Row: row, Column: column, Reason: reason, Err: err})
}

// DegenerateInputError は列の分散が0のため標準化できない場合のエラーです。
// 一時的な失敗ではなく、データセットがこのモデル形式を支えられないことを示します。
// 値がすべて等しい場合はStdが0、平均に比べて標準偏差が小さすぎる場合はValueが平均、Stdがその標準偏差です。
type DegenerateInputError struct {
	Feature string  // 問題のある列（"mileage", "price"など）
	Value   float64 // 定数値、またはほぼ定数の列の平均
	Std     float64 // 母標準偏差（定数列では0）
}

func (e *DegenerateInputError) Error() string {
	feature := "input"
	if e.Feature != "" {
		feature = e.Feature
	}
	if e.Std == 0 {
		return fmt.Sprintf("carprice: degenerate input: %s has zero variance (every value is %g)", feature, e.Value)
	}
	return fmt.Sprintf("carprice: degenerate input: %s has near-zero variance (std %g around mean %g)", feature, e.Std, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DegenerateInputError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("feature", e.Feature).
		Float64("value", e.Value).
		Float64("std", e.Std).
		Str("type", "DegenerateInputError")
}

// NewDegenerateInputError はすべての値がvalueに等しい列のDegenerateInputErrorを作成します。
func NewDegenerateInputError(feature string, value float64) error {
	return errors.WithStack(&DegenerateInputError{Feature: feature, Value: value})
}

// NewNearDegenerateInputError は平均に比べて標準偏差が小さすぎて標準化できない列のエラーを作成します。
func NewNearDegenerateInputError(feature string, mean, std float64) error {
	return errors.WithStack(&DegenerateInputError{Feature: feature, Value: mean, Std: std})
}

// DivergenceError は勾配降下の途中でNaNやInfが発生した場合のエラーです。
// 主に学習率が大きすぎることが原因です。このエラーが返された場合、係数は保存されません。
type DivergenceError struct {
	Algorithm    string
	LearningRate float64
	Iteration    int
	Err          error // *NumericalInstabilityError
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("carprice: %s diverged at iteration %d with learning rate %g: %v",
		e.Algorithm, e.Iteration, e.LearningRate, e.Err)
}

func (e *DivergenceError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DivergenceError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("algorithm", e.Algorithm).
		Float64("learning_rate", e.LearningRate).
		Int("iteration", e.Iteration).
		Str("type", "DivergenceError")
}

// NewDivergenceError は数値不安定エラーをDivergenceErrorで包みます。
func NewDivergenceError(algorithm string, learningRate float64, iteration int, cause error) error {
	return errors.WithStack(&DivergenceError{
		Algorithm:    algorithm,
		LearningRate: learningRate,
		Iteration:    iteration,
		Err:          cause,
	})
}

// InvalidStateError は保存済みの係数・履歴ファイルが欠落または破損している場合のエラーです。
type InvalidStateError struct {
	Artifact string // "coefficients" or "trace"
	Path     string
	Reason   string
	Err      error
}

func (e *InvalidStateError) Error() string {
	msg := fmt.Sprintf("carprice: invalid %s artifact %q: %s", e.Artifact, e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidStateError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvalidStateError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("artifact", e.Artifact).
		Str("path", e.Path).
		Str("reason", e.Reason).
		Str("type", "InvalidStateError")
}

// NewInvalidStateError は新しいInvalidStateErrorを作成し、スタックトレースを付与します。
func NewInvalidStateError(artifact, path, reason string, err error) error {
	return errors.WithStack(&InvalidStateError{Artifact: artifact, Path: path, Reason: reason, Err: err})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	数値計算のエラー型
//
// ===========================================================================

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaN、Inf、オーバーフローなどを検出します。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "gradient", "loss", "destandardize"）
	Values    []float64 // 問題のある値
	Iteration int       // 発生したイテレーション番号
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("carprice: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrArtifactNotFound は保存済みの成果物が存在しない場合のエラーです。
	ErrArtifactNotFound = New("artifact not found")
)
