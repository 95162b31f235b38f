package patient

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Model column names.
const (
	ColumnAge               = "age"
	ColumnSex               = "sex"
	ColumnChestPain         = "cp"
	ColumnRestingBP         = "trestbps"
	ColumnCholesterol       = "chol"
	ColumnFastingBloodSugar = "fbs"
	ColumnRestECG           = "restecg"
	ColumnMaxHeartRate      = "thalch"
	ColumnExerciseAngina    = "exang"
	ColumnOldpeak           = "oldpeak"
	ColumnSlope             = "slope"
	ColumnMajorVessels      = "ca"
	ColumnThal              = "thal"
)

type FieldKind string

const (
	KindSlider FieldKind = "slider"
	KindSelect FieldKind = "select"
)

// Field describes one form control and the domain it enforces.
type Field struct {
	Name    string    `json:"name"`
	Label   string    `json:"label"`
	Kind    FieldKind `json:"kind"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Step    float64   `json:"step"`
	Default string    `json:"default"`
	Options []string  `json:"options,omitempty"`
	// Group is the form column (1-3) the control is laid out in.
	Group int `json:"group"`
}

var fields = []Field{
	{Name: ColumnAge, Label: "Age (years)", Kind: KindSlider, Min: 29, Max: 77, Step: 1, Default: "54", Group: 1},
	{Name: ColumnSex, Label: "Sex", Kind: KindSelect, Options: []string{string(SexMale), string(SexFemale)}, Group: 1},
	{Name: ColumnChestPain, Label: "Chest Pain Type", Kind: KindSelect, Options: []string{
		string(ChestPainTypicalAngina), string(ChestPainAtypicalAngina), string(ChestPainNonAnginal), string(ChestPainAsymptomatic),
	}, Group: 1},
	{Name: ColumnRestingBP, Label: "Resting Blood Pressure (mm Hg)", Kind: KindSlider, Min: 94, Max: 180, Step: 1, Default: "131", Group: 1},
	{Name: ColumnCholesterol, Label: "Serum Cholesterol (mg/dl)", Kind: KindSlider, Min: 126, Max: 500, Step: 1, Default: "246", Group: 1},

	{Name: ColumnFastingBloodSugar, Label: "Fasting Blood Sugar > 120 mg/dl", Kind: KindSelect, Options: []string{
		string(FastingBloodSugarTrue), string(FastingBloodSugarFalse),
	}, Group: 2},
	{Name: ColumnRestECG, Label: "Resting ECG", Kind: KindSelect, Options: []string{
		string(RestECGNormal), string(RestECGSTTWave), string(RestECGLVHypertrophy),
	}, Group: 2},
	{Name: ColumnMaxHeartRate, Label: "Max Heart Rate Achieved", Kind: KindSlider, Min: 71, Max: 202, Step: 1, Default: "149", Group: 2},
	{Name: ColumnExerciseAngina, Label: "Exercise Induced Angina", Kind: KindSelect, Options: []string{
		string(ExerciseAnginaYes), string(ExerciseAnginaNo),
	}, Group: 2},
	{Name: ColumnOldpeak, Label: "ST Depression by Exercise", Kind: KindSlider, Min: 0, Max: 6.2, Step: 0.1, Default: "1.0", Group: 2},

	{Name: ColumnSlope, Label: "Slope of ST Segment", Kind: KindSelect, Options: []string{
		string(SlopeUpsloping), string(SlopeFlat), string(SlopeDownsloping),
	}, Group: 3},
	{Name: ColumnMajorVessels, Label: "Number of Major Vessels (0-3)", Kind: KindSelect, Options: []string{"0", "1", "2", "3"}, Group: 3},
	{Name: ColumnThal, Label: "Thalassemia", Kind: KindSelect, Options: []string{
		string(ThalNormal), string(ThalFixedDefect), string(ThalReversibleDefect),
	}, Group: 3},
}

func init() {
	for i := range fields {
		if fields[i].Kind == KindSelect && fields[i].Default == "" {
			fields[i].Default = fields[i].Options[0]
		}
	}
}

// Fields returns the control schema in display order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Columns returns the model column names in display order.
func Columns() []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Lookup returns the field with the given column name.
func Lookup(name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Decimals is the number of fractional digits the field's step allows.
func (f Field) Decimals() int {
	if f.Kind != KindSlider || f.Step >= 1 {
		return 0
	}
	return int(math.Round(-math.Log10(f.Step)))
}

func (f Field) integral() bool {
	return f.Kind == KindSlider && f.Step >= 1
}

// parse converts raw text into the field's value and checks the domain.
func (f Field) parse(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch f.Kind {
	case KindSlider:
		if f.integral() {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%q is not a whole number", raw)
			}
			return n, f.check(n)
		}
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		return x, f.check(x)
	default:
		return raw, f.check(raw)
	}
}

func (f Field) check(v any) error {
	switch f.Kind {
	case KindSlider:
		var x float64
		switch val := v.(type) {
		case int:
			x = float64(val)
		case float64:
			x = val
		default:
			return fmt.Errorf("unexpected value type %T", v)
		}
		if math.IsNaN(x) || x < f.Min || x > f.Max {
			return fmt.Errorf("must be between %s and %s", f.format(f.Min), f.format(f.Max))
		}
		if f.Step > 0 && !onStep(x-f.Min, f.Step) {
			return fmt.Errorf("must be a multiple of %s", f.format(f.Step))
		}
		return nil
	default:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("unexpected value type %T", v)
		}
		for _, opt := range f.Options {
			if s == opt {
				return nil
			}
		}
		return fmt.Errorf("must be one of %s", strings.Join(f.Options, ", "))
	}
}

func (f Field) format(x float64) string {
	return strconv.FormatFloat(x, 'f', f.Decimals(), 64)
}

// snapOldpeak rounds to the 0.1 step so 0.30000000000000004 displays and
// encodes as 0.3, and folds -0 into 0.
func snapOldpeak(x float64) float64 {
	x = math.Round(x*10) / 10
	if x == 0 {
		return 0
	}
	return x
}

func onStep(offset, step float64) bool {
	n := offset / step
	return math.Abs(n-math.Round(n)) < 1e-6
}

// assign stores raw into the matching record field.
func (f Field) assign(r *Record, raw string) error {
	v, err := f.parse(raw)
	if err != nil {
		return err
	}
	switch f.Name {
	case ColumnAge:
		r.Age = v.(int)
	case ColumnSex:
		r.Sex = Sex(v.(string))
	case ColumnChestPain:
		r.ChestPain = ChestPainType(v.(string))
	case ColumnRestingBP:
		r.RestingBP = v.(int)
	case ColumnCholesterol:
		r.Cholesterol = v.(int)
	case ColumnFastingBloodSugar:
		r.FastingBloodSugar = FastingBloodSugar(v.(string))
	case ColumnRestECG:
		r.RestECG = RestECG(v.(string))
	case ColumnMaxHeartRate:
		r.MaxHeartRate = v.(int)
	case ColumnExerciseAngina:
		r.ExerciseAngina = ExerciseAngina(v.(string))
	case ColumnOldpeak:
		r.Oldpeak = snapOldpeak(v.(float64))
	case ColumnSlope:
		r.Slope = Slope(v.(string))
	case ColumnMajorVessels:
		r.MajorVessels = v.(string)
	case ColumnThal:
		r.Thal = Thal(v.(string))
	default:
		return errors.New("unknown field")
	}
	return nil
}
