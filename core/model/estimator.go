package model

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は走行距離ごとの価格を予測する
	Predict(mileage []float64) ([]float64, error)
}

// Scorer は決定係数を計算できるモデルのインターフェース
type Scorer interface {
	// Score は決定係数（R²）を計算する
	Score(mileage, price []float64) (float64, error)
}

// Regressor は学習済みの単回帰モデル
type Regressor interface {
	Predictor
	Scorer
	// Coefficients は元の単位の係数を返す
	Coefficients() (Coefficients, error)
}
