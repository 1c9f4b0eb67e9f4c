package conditions

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukex/crate/pkg/models"
	"github.com/spf13/cast"
)

// Parameter keys understood by the built-in condition kinds.
const (
	ParamThreshold  = "threshold"
	ParamDuration   = "duration"
	ParamHandler    = "handler"
	ParamExpression = "expression"
)

var (
	ErrMissingParameter = errors.New("missing condition parameter")
	ErrInvalidParameter = errors.New("invalid condition parameter")
	ErrUnknownCondition = errors.New("unsupported condition type")
	ErrUnknownPredicate = errors.New("unknown custom condition handler")
)

func threshold(condition models.Condition) (float64, error) {
	raw, ok := condition.Parameters[ParamThreshold]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingParameter, ParamThreshold)
	}

	value, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidParameter, ParamThreshold, err)
	}

	return value, nil
}

// duration accepts a number of seconds or a Go duration string ("90s", "1h").
func duration(condition models.Condition) (time.Duration, error) {
	raw, ok := condition.Parameters[ParamDuration]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingParameter, ParamDuration)
	}

	if s, isString := raw.(string); isString {
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
	}

	seconds, err := cast.ToFloat64E(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidParameter, ParamDuration, raw)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

func stringParam(condition models.Condition, key string) (string, error) {
	raw, ok := condition.Parameters[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: %s", ErrMissingParameter, key)
	}

	value, err := cast.ToStringE(raw)
	if err != nil || value == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidParameter, key)
	}

	return value, nil
}
