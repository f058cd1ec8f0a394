// Package estimate applies trained coefficients to a mileage value.
package estimate

import (
	"strconv"
	"strings"

	"github.com/YuminosukeSato/carprice/core/model"
	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
)

// DefaultCoefficients are written when no coefficient artifact exists yet,
// and used in memory when the artifact cannot be read, so an untrained
// estimator predicts 0 for every mileage.
var DefaultCoefficients = model.Coefficients{Theta0: 0, Theta1: 0}

// Estimate returns theta0 + theta1 × mileage.
func Estimate(c model.Coefficients, mileage float64) float64 {
	return c.Predict(mileage)
}

// ParseMileage parses a user-supplied mileage. Empty, non-numeric and
// non-finite input is rejected; negative values are accepted.
func ParseMileage(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.NewValueError("ParseMileage", "mileage is empty")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.NewValueError("ParseMileage", "mileage must be a number, got "+strconv.Quote(s))
	}
	if !errors.IsFinite(v) {
		return 0, errors.NewValueError("ParseMileage", "mileage must be finite, got "+strconv.Quote(s))
	}
	return v, nil
}

// CoefficientSource loads coefficients, creating def when none are stored.
type CoefficientSource interface {
	LoadOrInit(def model.Coefficients) (model.Coefficients, bool, error)
}

// Estimator predicts prices from stored coefficients.
type Estimator struct {
	source CoefficientSource
	logger log.Logger

	coef      model.Coefficients
	loaded    bool
	created   bool
	defaulted bool
}

// New returns an Estimator reading coefficients from source.
func New(source CoefficientSource) *Estimator {
	return &Estimator{source: source, logger: log.GetLoggerWithName("estimate")}
}

// WithLogger replaces the logger and returns e.
func (e *Estimator) WithLogger(logger log.Logger) *Estimator {
	e.logger = logger
	return e
}

// Load reads the coefficients, writing DefaultCoefficients first if the
// artifact does not exist. An artifact that exists but is invalid is left
// untouched and DefaultCoefficients are used instead.
func (e *Estimator) Load() (model.Coefficients, error) {
	c, created, err := e.source.LoadOrInit(DefaultCoefficients)
	var stateErr *errors.InvalidStateError
	switch {
	case err == nil:
	case errors.As(err, &stateErr):
		e.logger.Warn("Invalid coefficient artifact, using defaults",
			log.OperationKey, log.OperationLoad,
			log.ErrAttrKey, err,
		)
		c, created = DefaultCoefficients, false
		e.defaulted = true
	default:
		return model.Coefficients{}, err
	}
	if err == nil {
		e.defaulted = false
	}
	e.coef, e.loaded, e.created = c, true, created
	e.logger.Info("Coefficients loaded",
		log.OperationKey, log.OperationLoad,
		log.Theta0Key, c.Theta0,
		log.Theta1Key, c.Theta1,
	)
	return c, nil
}

// Created reports whether the last Load wrote the default coefficients.
func (e *Estimator) Created() bool {
	return e.created
}

// Defaulted reports whether the last Load fell back to DefaultCoefficients
// because the stored artifact was invalid.
func (e *Estimator) Defaulted() bool {
	return e.defaulted
}

// Coefficients returns the loaded coefficients.
func (e *Estimator) Coefficients() (model.Coefficients, error) {
	if !e.loaded {
		return model.Coefficients{}, errors.NewNotFittedError("Estimator", "Coefficients")
	}
	return e.coef, nil
}

// Estimate predicts the price for mileage. Load must have been called.
func (e *Estimator) Estimate(mileage float64) (float64, error) {
	if !e.loaded {
		return 0, errors.NewNotFittedError("Estimator", "Estimate")
	}
	price := Estimate(e.coef, mileage)
	e.logger.Debug("Price estimated",
		log.OperationKey, log.OperationEstimate,
		log.PhaseKey, log.PhaseInference,
		log.MileageKey, mileage,
		log.PriceKey, price,
	)
	return price, nil
}

// EstimateString parses s as a mileage and estimates its price.
func (e *Estimator) EstimateString(s string) (float64, error) {
	mileage, err := ParseMileage(s)
	if err != nil {
		return 0, err
	}
	return e.Estimate(mileage)
}
