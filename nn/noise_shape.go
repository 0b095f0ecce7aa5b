package nn

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Dim is one axis of a NoiseShape: a positive static size, or Runtime.
type Dim int

// Runtime marks an axis whose size is taken from the input at call time.
const Runtime Dim = 0

// NoiseShape is the shape of a dropout mask before it is broadcast against
// the input. Axes of size 1 share one keep/drop decision.
type NoiseShape []Dim

// Shape builds a NoiseShape from sizes; sizes <= 0 become Runtime.
func Shape(sizes ...int) NoiseShape {
	out := make(NoiseShape, len(sizes))
	for i, s := range sizes {
		if s > 0 {
			out[i] = Dim(s)
		}
	}
	return out
}

// ParseNoiseShape parses a comma separated list such as "1,?,8". The tokens
// "?", "_", "none" and "null" denote Runtime axes.
func ParseNoiseShape(s string) (NoiseShape, error) {
	s = strings.Trim(strings.TrimSpace(s), "()[]")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make(NoiseShape, 0, len(parts))
	for _, part := range parts {
		tok := strings.ToLower(strings.TrimSpace(part))
		switch tok {
		case "?", "_", "none", "null":
			out = append(out, Runtime)
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("noise shape axis %q: %w", part, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("noise shape axis %d must be positive", n)
		}
		out = append(out, Dim(n))
	}
	return out, nil
}

func (s NoiseShape) Clone() NoiseShape {
	if s == nil {
		return nil
	}
	return append(NoiseShape(nil), s...)
}

// Resolve substitutes Runtime axes with the matching size of inputShape.
// A Runtime axis past the input's rank resolves to 1; the rank mismatch is
// left for the broadcast to reject.
func (s NoiseShape) Resolve(inputShape []int) []int {
	if s == nil {
		return nil
	}
	out := make([]int, len(s))
	for axis, d := range s {
		switch {
		case d != Runtime:
			out[axis] = int(d)
		case axis < len(inputShape):
			out[axis] = inputShape[axis]
		default:
			out[axis] = 1
		}
	}
	return out
}

func (s NoiseShape) Equal(other NoiseShape) bool {
	if (s == nil) != (other == nil) || len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

func (s NoiseShape) String() string {
	if s == nil {
		return "None"
	}
	parts := make([]string, len(s))
	for i, d := range s {
		if d == Runtime {
			parts[i] = "?"
		} else {
			parts[i] = strconv.Itoa(int(d))
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// values renders the shape as a list of ints with nil for Runtime axes, the
// form stored in layer configs.
func (s NoiseShape) values() []any {
	out := make([]any, len(s))
	for i, d := range s {
		if d != Runtime {
			out[i] = int(d)
		}
	}
	return out
}

func (s NoiseShape) configValue() any {
	if s == nil {
		return nil
	}
	return s.values()
}

func (s NoiseShape) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	return json.Marshal(s.values())
}

func (s *NoiseShape) UnmarshalJSON(data []byte) error {
	var raw []*int
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("noise shape: %w", err)
	}
	shape, err := fromOptional(raw)
	if err != nil {
		return err
	}
	*s = shape
	return nil
}

func (s NoiseShape) MarshalYAML() (any, error) {
	if s == nil {
		return nil, nil
	}
	return s.values(), nil
}

func (s *NoiseShape) UnmarshalYAML(node *yaml.Node) error {
	var raw []*int
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("noise shape: %w", err)
	}
	shape, err := fromOptional(raw)
	if err != nil {
		return err
	}
	*s = shape
	return nil
}

func fromOptional(raw []*int) (NoiseShape, error) {
	if raw == nil {
		return nil, nil
	}
	out := make(NoiseShape, len(raw))
	for i, v := range raw {
		if v == nil {
			continue
		}
		if *v <= 0 {
			return nil, fmt.Errorf("noise shape axis %d must be positive, got %d", i, *v)
		}
		out[i] = Dim(*v)
	}
	return out, nil
}

// noiseShapeFromConfig accepts the list forms produced by GetConfig and by
// the JSON/YAML decoders.
func noiseShapeFromConfig(v any) (NoiseShape, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case NoiseShape:
		return val.Clone(), nil
	case []int:
		return fromInts(val)
	case []*int:
		return fromOptional(val)
	case []any:
		out := make(NoiseShape, len(val))
		for i, item := range val {
			if item == nil {
				continue
			}
			n, err := toInt64(item)
			if err != nil {
				return nil, fmt.Errorf("noise shape axis %d: %w", i, err)
			}
			if n <= 0 {
				return nil, fmt.Errorf("noise shape axis %d must be positive, got %d", i, n)
			}
			out[i] = Dim(n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("noise shape: unsupported type %T", v)
	}
}

func fromInts(sizes []int) (NoiseShape, error) {
	out := make(NoiseShape, len(sizes))
	for i, n := range sizes {
		if n <= 0 {
			return nil, fmt.Errorf("noise shape axis %d must be positive, got %d", i, n)
		}
		out[i] = Dim(n)
	}
	return out, nil
}

var errNotInteger = errors.New("expected integer")

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("%w, got %v", errNotInteger, n)
		}
		return int64(n), nil
	case interface{ Int64() (int64, error) }:
		return n.Int64()
	default:
		return 0, fmt.Errorf("%w, got %T", errNotInteger, v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case interface{ Float64() (float64, error) }:
		return n.Float64()
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
