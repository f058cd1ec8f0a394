package metrics

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/carprice/core/model"
	"github.com/YuminosukeSato/carprice/core/parallel"
	"github.com/YuminosukeSato/carprice/pkg/errors"
)

// parallelThreshold 以下の件数では逐次処理で予測する
const parallelThreshold = 1000

// Predict は係数を各走行距離に適用した予測価格ベクトルを返す
func Predict(c model.Coefficients, mileage []float64) *mat.VecDense {
	if len(mileage) == 0 {
		return &mat.VecDense{}
	}
	pred := mat.NewVecDense(len(mileage), nil)
	parallel.ParallelizeWithThreshold(len(mileage), parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			pred.SetVec(i, c.Predict(mileage[i]))
		}
	})
	return pred
}

// Report は元の単位で計算した評価指標
type Report struct {
	N    int
	MSE  float64
	RMSE float64
	MAE  float64
	R2   float64 // 価格の分散が0の場合はNaN
}

// Evaluate は係数をサンプルに適用してMSE、RMSE、MAE、R²を計算する
func Evaluate(c model.Coefficients, mileage, price []float64) (Report, error) {
	if len(mileage) != len(price) {
		return Report{}, errors.NewDimensionError("Evaluate", len(mileage), len(price), 0)
	}
	if len(price) == 0 {
		return Report{}, errors.NewModelError("Evaluate", "empty data", errors.ErrEmptyData)
	}

	yTrue := mat.NewVecDense(len(price), append([]float64(nil), price...))
	yPred := Predict(c, mileage)

	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return Report{}, err
	}
	// 係数が大きすぎると予測がオーバーフローする
	if err := errors.CheckScalar("Evaluate.mse", mse, 0); err != nil {
		return Report{}, err
	}
	mae, err := MAE(yTrue, yPred)
	if err != nil {
		return Report{}, err
	}
	r2, err := R2Score(yTrue, yPred)
	if err != nil {
		return Report{}, err
	}

	return Report{N: len(price), MSE: mse, RMSE: math.Sqrt(mse), MAE: mae, R2: r2}, nil
}

// MarshalZerologObject はzerologのイベントに評価指標を追加する
func (r Report) MarshalZerologObject(e *zerolog.Event) {
	e.Int("n", r.N).
		Float64("mse", r.MSE).
		Float64("rmse", r.RMSE).
		Float64("mae", r.MAE).
		Float64("r2_score", r.R2)
}

// String は評価ツールが表示する形式で指標を返す
func (r Report) String() string {
	return fmt.Sprintf("Mean Squared Error: %v\nRoot Mean Squared Error: %v\nMean Absolute Error: %v\nR-squared: %v",
		r.MSE, r.RMSE, r.MAE, r.R2)
}
