// Package carprice estimates the price of a used car from its mileage with a
// univariate linear model trained by batch gradient descent.
//
// The model is price ≈ theta0 + theta1 × mileage. Training standardizes both
// columns, runs fixed-step gradient descent in standardized space and maps
// the coefficients back to original units, recording every iteration.
//
// # Tools
//
// Three commands share their settings through the config package (flags,
// CARPRICE_* environment variables and an optional .env file):
//
//	go run ./cmd/train                   # data.csv -> thetas.json, theta_history.json
//	go run ./cmd/estimate -mileage 50000 # prints "Estimated price: ..."
//	go run ./cmd/evaluate                # metrics + regression/loss/evolution charts
//
// # Quick Start
//
// The packages can also be used directly:
//
//	samples, err := dataset.Load("data.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reg := linear.NewGDRegressor(linear.WithLearningRate(0.01))
//	res, err := reg.Fit(samples.Mileage, samples.Price)
//	if err != nil {
//	    log.Fatal(err) // DegenerateInputError, DivergenceError, ...
//	}
//	fmt.Println(res.Status, res.Coefficients)
//
//	st := store.New(store.DefaultThetaPath, store.DefaultTracePath)
//	_ = st.Save(res.Coefficients)
//	_ = st.SaveTrace(res.Trace)
//
// # Packages
//
//   - dataset: CSV sample loader
//   - preprocessing: Standardizer and the de-standardization mapping
//   - linear: gradient descent engine, options and callbacks
//   - store: coefficient and trace artifacts (JSON, optional zstd)
//   - estimate: applies coefficients to a mileage value
//   - metrics: MSE, RMSE, MAE, R² and the evaluation report
//   - chart: gonum/plot charts
//   - config: tool configuration
//   - core/model: coefficient and trace types, fitted-state bookkeeping
//   - core/parallel: parallel processing utilities
//   - pkg/errors, pkg/log: error taxonomy and structured logging
//
// # Performance
//
// Training is a single-threaded loop over two reused slices; per-sample
// prediction during evaluation is parallelized for more than 1000 rows.
package carprice
