package model

import (
	"fmt"

	"github.com/YuminosukeSato/carprice/pkg/errors"
)

// Coefficients is the fitted affine relation price ≈ Theta0 + Theta1 × mileage,
// always in original (not standardized) units.
type Coefficients struct {
	Theta0 float64 `json:"theta0"`
	Theta1 float64 `json:"theta1"`
}

// Predict applies the coefficients to one mileage value.
func (c Coefficients) Predict(mileage float64) float64 {
	return c.Theta0 + c.Theta1*mileage
}

// Validate returns a ValueError if either coefficient is NaN or Inf.
func (c Coefficients) Validate() error {
	if !errors.IsFinite(c.Theta0) || !errors.IsFinite(c.Theta1) {
		return errors.NewValueError("Coefficients.Validate",
			fmt.Sprintf("coefficients must be finite (theta0=%v, theta1=%v)", c.Theta0, c.Theta1))
	}
	return nil
}

func (c Coefficients) String() string {
	return fmt.Sprintf("theta0=%g theta1=%g", c.Theta0, c.Theta1)
}
