/*
This file contains common utility functions for converting engine amounts,
particularly lossy sdkmath.Int to float64 conversions for metrics and views.
*/

package utils

import (
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrAmountNil      = errors.New("amount is nil")
	ErrAmountNegative = errors.New("amount is negative")
	ErrNotFinite      = errors.New("value is not finite")
)

// IntToFloat64 converts an sdkmath.Int to float64 for display and metrics.
// The conversion is lossy above 2^53; callers must never feed the result back
// into accounting math.
func IntToFloat64(amount sdkmath.Int) (float64, error) {
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}

	result, err := sdkmath.LegacyNewDecFromInt(amount).Float64()
	if err != nil {
		return 0, fmt.Errorf("converting %s: %w", amount.String(), err)
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, result)
	}

	return result, nil
}

// IntToFloat64OrZero is IntToFloat64 for observational paths where a bad
// value should degrade to zero instead of failing the operation.
func IntToFloat64OrZero(amount sdkmath.Int) float64 {
	result, err := IntToFloat64(amount)
	if err != nil {
		return 0
	}
	return result
}
