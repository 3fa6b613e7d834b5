package engine

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	ErrDivisionByZero  = errors.New("division by zero")
	ErrOverflow        = errors.New("result out of range")
	ErrUnknownOperator = errors.New("unknown operator")
)

// decimalPlaces bounds every computed value to hide binary float artifacts
// such as 0.1 + 0.2 = 0.30000000000000004.
const decimalPlaces = 10

// Calculate applies op to the decimal operands a and b. The result is
// rounded to ten decimal places.
func Calculate(a, b string, op Operator) (float64, error) {
	x, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, fmt.Errorf("parse operand %q: %w", a, err)
	}

	y, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return 0, fmt.Errorf("parse operand %q: %w", b, err)
	}

	var result float64

	switch op {
	case OpAdd:
		result = x + y
	case OpSubtract:
		result = x - y
	case OpMultiply:
		result = x * y
	case OpDivide:
		if y == 0 {
			return 0, fmt.Errorf("%s %s %s: %w", a, op, b, ErrDivisionByZero)
		}
		result = x / y
	default:
		return 0, fmt.Errorf("operator %d: %w", op, ErrUnknownOperator)
	}

	if math.IsInf(result, 0) || math.IsNaN(result) {
		return 0, fmt.Errorf("%s %s %s: %w", a, op, b, ErrOverflow)
	}

	return roundDecimal(result), nil
}

func roundDecimal(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', decimalPlaces, 64), 64)
	if err != nil {
		return v
	}
	if r == 0 {
		// Drop negative zero.
		return 0
	}
	return r
}

// parseOperand reads an operand literal. Operands are valid by
// construction, so a parse failure degrades to zero.
func parseOperand(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// rawString is the full-precision literal kept in State.Current.
func rawString(v float64) string {
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
