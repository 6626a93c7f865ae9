package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Condition is a parsed alert rule expression: heart_beat <op> <threshold>.
type Condition struct {
	Field     string
	Op        string
	Threshold float64
}

// ParseCondition parses expressions such as "heart_beat > 180".
func ParseCondition(s string) (Condition, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return Condition{}, fmt.Errorf("condition %q: want \"heart_beat <op> <number>\"", s)
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field != "heart_beat" {
		return Condition{}, fmt.Errorf("condition %q: unknown field %q", s, field)
	}
	switch op {
	case ">", ">=", "<", "<=", "==":
	default:
		return Condition{}, fmt.Errorf("condition %q: unknown operator %q", s, op)
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return Condition{}, fmt.Errorf("condition %q: threshold: %w", s, err)
	}
	return Condition{Field: field, Op: op, Threshold: threshold}, nil
}

// Match reports whether v satisfies the condition.
func (c Condition) Match(v float64) bool {
	switch c.Op {
	case ">":
		return v > c.Threshold
	case ">=":
		return v >= c.Threshold
	case "<":
		return v < c.Threshold
	case "<=":
		return v <= c.Threshold
	case "==":
		return v == c.Threshold
	default:
		return false
	}
}
