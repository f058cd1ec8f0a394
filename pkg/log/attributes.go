// Standard attribute keys for the training, estimation and evaluation logs.
//
// Keys follow a hierarchical naming convention ("model.name",
// "data.samples") so log lines from the three tools can be filtered together.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the model type, e.g. "GDRegressor".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "estimate", "evaluate", "load", "save"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	// Examples: "linear.gd", "store", "dataset"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"

	// StatusKey records the terminal state of a training run.
	StatusKey = "training.status"
)

// Data Shape and Source
const (
	// SamplesKey indicates the number of samples kept for training.
	SamplesKey = "data.samples"

	// DroppedKey indicates the number of rows dropped for missing values.
	DroppedKey = "data.dropped"

	// SourceKey is the path of the dataset or artifact being read or written.
	SourceKey = "data.source"

	// ColumnKey names a dataset column.
	ColumnKey = "data.column"

	// MeanKey and StdKey describe a standardized column.
	MeanKey = "data.mean"
	StdKey  = "data.std"
)

// Performance and Training Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// LossKey records the loss (mean squared error in standardized units).
	LossKey = "metrics.loss"

	// MSEKey, RMSEKey, MAEKey and R2ScoreKey are evaluation metrics in original units.
	MSEKey     = "metrics.mse"
	RMSEKey    = "metrics.rmse"
	MAEKey     = "metrics.mae"
	R2ScoreKey = "metrics.r2_score"

	// IterationKey records the current iteration number during gradient descent.
	IterationKey = "training.iteration"

	// Theta0Key and Theta1Key record coefficients in original units.
	Theta0Key = "model.theta0"
	Theta1Key = "model.theta1"

	// Grad0Key and Grad1Key record the standardized-space gradients.
	Grad0Key = "training.grad0"
	Grad1Key = "training.grad1"
)

// Prediction Context
const (
	// MileageKey is the mileage value handed to the estimator.
	MileageKey = "preds.mileage"

	// PriceKey is the estimated price.
	PriceKey = "preds.price"
)

// Error and Warning Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// SuggestionKey provides a hint for resolving an issue.
	// Example: "Lower the learning rate"
	SuggestionKey = "error.suggestion"
)

// Hyperparameters
const (
	// LearningRateKey records the learning rate for gradient descent.
	LearningRateKey = "hyperparams.learning_rate"

	// MaxIterKey records the iteration cap.
	MaxIterKey = "hyperparams.max_iter"

	// LossTolKey and GradTolKey record the convergence thresholds.
	LossTolKey = "hyperparams.loss_tol"
	GradTolKey = "hyperparams.grad_tol"
)

// Standard attribute values.
const (
	OperationFit      = "fit"
	OperationPredict  = "predict"
	OperationEstimate = "estimate"
	OperationEvaluate = "evaluate"
	OperationLoad     = "load"
	OperationSave     = "save"
	OperationRender   = "render"

	PhaseTraining      = "training"
	PhaseInference     = "inference"
	PhaseEvaluation    = "evaluation"
	PhasePreprocessing = "preprocessing"
)
