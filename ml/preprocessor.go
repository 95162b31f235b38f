package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// NumericColumn is standardised as (x - Mean) / Scale.
type NumericColumn struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Scale  float64 `json:"scale"`
}

// CategoricalColumn is one-hot encoded in Categories order.
type CategoricalColumn struct {
	Column     string   `json:"column"`
	Categories []string `json:"categories"`
}

type PreprocessorSpec struct {
	Numeric       []NumericColumn     `json:"numeric"`
	Categorical   []CategoricalColumn `json:"categorical"`
	HandleUnknown string              `json:"handle_unknown,omitempty"`
}

// Preprocessor turns a raw Row into the numeric vector the estimator was
// fitted on: numeric columns first, then one block per categorical column.
type Preprocessor struct {
	numeric       []NumericColumn
	categorical   []CategoricalColumn
	ignoreUnknown bool
	width         int
}

func NewPreprocessor(spec PreprocessorSpec) (*Preprocessor, error) {
	if len(spec.Numeric)+len(spec.Categorical) == 0 {
		return nil, fmt.Errorf("%w: preprocessor has no columns", ErrInvalidArtifact)
	}
	seen := make(map[string]bool)
	width := 0
	for _, col := range spec.Numeric {
		if seen[col.Column] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidArtifact, col.Column)
		}
		if col.Scale <= 0 {
			return nil, fmt.Errorf("%w: column %q has non-positive scale", ErrInvalidArtifact, col.Column)
		}
		seen[col.Column] = true
		width++
	}
	for _, col := range spec.Categorical {
		if seen[col.Column] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidArtifact, col.Column)
		}
		if len(col.Categories) == 0 {
			return nil, fmt.Errorf("%w: column %q has no categories", ErrInvalidArtifact, col.Column)
		}
		seen[col.Column] = true
		width += len(col.Categories)
	}
	return &Preprocessor{
		numeric:       spec.Numeric,
		categorical:   spec.Categorical,
		ignoreUnknown: spec.HandleUnknown == "ignore",
		width:         width,
	}, nil
}

// Width is the length of every transformed vector.
func (p *Preprocessor) Width() int {
	return p.width
}

// Columns lists the input columns the preprocessor reads.
func (p *Preprocessor) Columns() []string {
	names := make([]string, 0, len(p.numeric)+len(p.categorical))
	for _, col := range p.numeric {
		names = append(names, col.Column)
	}
	for _, col := range p.categorical {
		names = append(names, col.Column)
	}
	return names
}

// Transform encodes a row. Columns the preprocessor does not know are ignored.
func (p *Preprocessor) Transform(row Row) ([]float64, error) {
	out := make([]float64, p.width)
	i := 0
	for _, col := range p.numeric {
		raw, ok := row[col.Column]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrSchemaMismatch, col.Column)
		}
		x, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %v", ErrSchemaMismatch, col.Column, err)
		}
		out[i] = (x - col.Mean) / col.Scale
		i++
	}
	for _, col := range p.categorical {
		raw, ok := row[col.Column]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrSchemaMismatch, col.Column)
		}
		value, err := toCategory(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %v", ErrSchemaMismatch, col.Column, err)
		}
		hit := -1
		for j, category := range col.Categories {
			if category == value {
				hit = j
				break
			}
		}
		if hit < 0 && !p.ignoreUnknown {
			return nil, fmt.Errorf("%w: column %q: unknown category %q", ErrSchemaMismatch, col.Column, value)
		}
		if hit >= 0 {
			out[i+hit] = 1
		}
		i += len(col.Categories)
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	var x float64
	switch val := v.(type) {
	case float64:
		x = val
	case float32:
		x = float64(val)
	case int:
		x = float64(val)
	case int64:
		x = float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, err
		}
		x = f
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("could not convert %q to float", val)
		}
		x = f
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("value %v is not finite", x)
	}
	return x, nil
}

func toCategory(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		if val {
			return "True", nil
		}
		return "False", nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case json.Number:
		return val.String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
