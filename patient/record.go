// Package patient defines the patient attribute record collected by the form
// and the control schema that bounds every field.
package patient

import (
	"fmt"
	"strconv"
)

type Sex string

const (
	SexMale   Sex = "Male"
	SexFemale Sex = "Female"
)

type ChestPainType string

const (
	ChestPainTypicalAngina  ChestPainType = "Typical Angina"
	ChestPainAtypicalAngina ChestPainType = "Atypical Angina"
	ChestPainNonAnginal     ChestPainType = "Non-anginal Pain"
	ChestPainAsymptomatic   ChestPainType = "Asymptomatic"
)

// FastingBloodSugar reports whether fasting blood sugar exceeds 120 mg/dl.
type FastingBloodSugar string

const (
	FastingBloodSugarTrue  FastingBloodSugar = "True"
	FastingBloodSugarFalse FastingBloodSugar = "False"
)

type RestECG string

const (
	RestECGNormal        RestECG = "Normal"
	RestECGSTTWave       RestECG = "ST-T Wave Abnormality"
	RestECGLVHypertrophy RestECG = "Left Ventricular Hypertrophy"
)

type ExerciseAngina string

const (
	ExerciseAnginaYes ExerciseAngina = "Yes"
	ExerciseAnginaNo  ExerciseAngina = "No"
)

type Slope string

const (
	SlopeUpsloping   Slope = "Upsloping"
	SlopeFlat        Slope = "Flat"
	SlopeDownsloping Slope = "Downsloping"
)

type Thal string

const (
	ThalNormal           Thal = "Normal"
	ThalFixedDefect      Thal = "Fixed Defect"
	ThalReversibleDefect Thal = "Reversible Defect"
)

// Record is one patient's raw attribute set. Values stay in the categorical
// form the classifier was trained on; no encoding happens here.
type Record struct {
	Age               int               `json:"age"`
	Sex               Sex               `json:"sex"`
	ChestPain         ChestPainType     `json:"cp"`
	RestingBP         int               `json:"trestbps"`
	Cholesterol       int               `json:"chol"`
	FastingBloodSugar FastingBloodSugar `json:"fbs"`
	RestECG           RestECG           `json:"restecg"`
	MaxHeartRate      int               `json:"thalch"`
	ExerciseAngina    ExerciseAngina    `json:"exang"`
	Oldpeak           float64           `json:"oldpeak"`
	Slope             Slope             `json:"slope"`
	MajorVessels      string            `json:"ca"`
	Thal              Thal              `json:"thal"`
}

// Default returns the record every control starts at.
func Default() Record {
	var r Record
	for _, f := range Fields() {
		// defaults always sit inside their own domain
		_ = f.assign(&r, f.Default)
	}
	return r
}

// Row returns the record keyed by model column name.
func (r Record) Row() map[string]any {
	return map[string]any{
		ColumnAge:               r.Age,
		ColumnSex:               string(r.Sex),
		ColumnChestPain:         string(r.ChestPain),
		ColumnRestingBP:         r.RestingBP,
		ColumnCholesterol:       r.Cholesterol,
		ColumnFastingBloodSugar: string(r.FastingBloodSugar),
		ColumnRestECG:           string(r.RestECG),
		ColumnMaxHeartRate:      r.MaxHeartRate,
		ColumnExerciseAngina:    string(r.ExerciseAngina),
		ColumnOldpeak:           snapOldpeak(r.Oldpeak),
		ColumnSlope:             string(r.Slope),
		ColumnMajorVessels:      r.MajorVessels,
		ColumnThal:              string(r.Thal),
	}
}

// Cell is one column of the displayed record table.
type Cell struct {
	Column string
	Value  string
}

// Cells returns the record in column order, formatted for display.
func (r Record) Cells() []Cell {
	row := r.Row()
	cells := make([]Cell, 0, len(row))
	for _, name := range Columns() {
		cells = append(cells, Cell{Column: name, Value: formatValue(row[name])})
	}
	return cells
}

// Validate checks every field against its domain.
func (r Record) Validate() error {
	row := r.Row()
	verr := &ValidationError{}
	for _, f := range Fields() {
		if err := f.check(row[f.Name]); err != nil {
			verr.add(f.Name, err.Error())
		}
	}
	return verr.orNil()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'f', 1, 64)
	case int:
		return strconv.Itoa(val)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
