// Package preprocessing は学習前のデータ変換を提供する
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/carprice/core/model"
	"github.com/YuminosukeSato/carprice/pkg/errors"
)

// degenerateRelTol 以下の相対標準偏差（std/|mean|）は平均計算の丸め誤差と区別できないため、
// ほぼ定数の列としてDegenerateInputErrorにする
const degenerateRelTol = 1e-12

// Standardizer は1次元データを平均0、標準偏差1に変換する標準化器
// 標準偏差は母標準偏差（n で割る）を使う
type Standardizer struct {
	state *model.StateManager

	// Name はエラーメッセージに使う列名（"mileage", "price"など）
	Name string

	mean float64
	std  float64
}

// NewStandardizer は新しいStandardizerを作成する
//
// 使用例:
//
//	s := preprocessing.NewStandardizer("mileage")
//	z, err := s.FitTransform(km)
func NewStandardizer(name string) *Standardizer {
	return &Standardizer{
		state: model.NewStateManager(),
		Name:  name,
	}
}

// Fit は訓練データから平均と母標準偏差を計算する
//
// 戻り値:
//   - error: 空データ（ErrEmptyDataをラップ）・非有限値・統計量のオーバーフローの場合はValueError、
//     分散0またはほぼ0の場合はDegenerateInputError
func (s *Standardizer) Fit(x []float64) error {
	if len(x) == 0 {
		return errors.WrapValueError("Standardizer.Fit", s.label()+" is empty", errors.ErrEmptyData)
	}
	if i := errors.FirstNonFinite(x); i >= 0 {
		return errors.NewValueError("Standardizer.Fit",
			fmt.Sprintf("%s contains a non-finite value at index %d: %v", s.label(), i, x[i]))
	}

	if floats.Min(x) == floats.Max(x) {
		// 定数列は標準化できない（ゼロ除算でNaN/Infの係数になる）
		s.state.Reset()
		return errors.NewDegenerateInputError(s.Name, x[0])
	}

	mean, std := stat.PopMeanStdDev(x, nil)
	if !errors.IsFinite(mean) || !errors.IsFinite(std) {
		s.state.Reset()
		return errors.NewValueError("Standardizer.Fit",
			fmt.Sprintf("%s statistics overflow float64 (mean %v, std %v)", s.label(), mean, std))
	}
	if std == 0 || std <= degenerateRelTol*math.Abs(mean) {
		s.state.Reset()
		return errors.NewNearDegenerateInputError(s.Name, mean, std)
	}

	s.mean = mean
	s.std = std
	s.state.SetFitted(len(x))
	return nil
}

// Mean は学習済みの平均を返す
func (s *Standardizer) Mean() float64 { return s.mean }

// Std は学習済みの母標準偏差を返す
func (s *Standardizer) Std() float64 { return s.std }

// IsFitted は学習済みかどうかを返す
func (s *Standardizer) IsFitted() bool { return s.state.IsFitted() }

// Transform は z = (x - mean) / std を計算した新しいスライスを返す
func (s *Standardizer) Transform(x []float64) ([]float64, error) {
	if err := s.state.RequireFitted("Standardizer", "Transform"); err != nil {
		return nil, err
	}
	z := make([]float64, len(x))
	copy(z, x)
	floats.AddConst(-s.mean, z)
	floats.Scale(1/s.std, z)
	return z, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *Standardizer) FitTransform(x []float64) ([]float64, error) {
	if err := s.Fit(x); err != nil {
		return nil, err
	}
	return s.Transform(x)
}

// InverseTransform は x = z * std + mean で元のスケールに戻す
func (s *Standardizer) InverseTransform(z []float64) ([]float64, error) {
	if err := s.state.RequireFitted("Standardizer", "InverseTransform"); err != nil {
		return nil, err
	}
	x := make([]float64, len(z))
	copy(x, z)
	floats.Scale(s.std, x)
	floats.AddConst(s.mean, x)
	return x, nil
}

func (s *Standardizer) label() string {
	if s.Name == "" {
		return "input"
	}
	return s.Name
}

// String は標準化器の文字列表現を返す
func (s *Standardizer) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("Standardizer(%s)", s.label())
	}
	return fmt.Sprintf("Standardizer(%s, mean=%g, std=%g)", s.label(), s.mean, s.std)
}

// Scaling は説明変数（走行距離）と目的変数（価格）の標準化パラメータ
type Scaling struct {
	MeanX float64 `json:"mean_mileage"`
	StdX  float64 `json:"std_mileage"`
	MeanY float64 `json:"mean_price"`
	StdY  float64 `json:"std_price"`
}

// NewScaling は学習済みの2つの標準化器からScalingを作る
func NewScaling(x, y *Standardizer) (Scaling, error) {
	if err := x.state.RequireFitted("Standardizer", "NewScaling"); err != nil {
		return Scaling{}, err
	}
	if err := y.state.RequireFitted("Standardizer", "NewScaling"); err != nil {
		return Scaling{}, err
	}
	return Scaling{MeanX: x.mean, StdX: x.std, MeanY: y.mean, StdY: y.std}, nil
}

// Destandardize は標準化空間で学習した切片・傾きを元の単位に戻す
//
//	theta1 = slope * (std_y / std_x)
//	theta0 = intercept * std_y + mean_y - theta1 * mean_x
func (sc Scaling) Destandardize(intercept, slope float64) model.Coefficients {
	theta1 := slope * (sc.StdY / sc.StdX)
	theta0 := intercept*sc.StdY + sc.MeanY - theta1*sc.MeanX
	return model.Coefficients{Theta0: theta0, Theta1: theta1}
}

// Standardize は元の単位の係数を標準化空間に写す（Destandardizeの逆写像）
func (sc Scaling) Standardize(c model.Coefficients) (intercept, slope float64) {
	slope = c.Theta1 * (sc.StdX / sc.StdY)
	intercept = (c.Theta0 + c.Theta1*sc.MeanX - sc.MeanY) / sc.StdY
	return intercept, slope
}
