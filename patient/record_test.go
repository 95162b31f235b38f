package patient

import (
	"errors"
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	rec := Default()

	assert.Equal(t, 54, rec.Age)
	assert.Equal(t, SexMale, rec.Sex)
	assert.Equal(t, ChestPainTypicalAngina, rec.ChestPain)
	assert.Equal(t, 131, rec.RestingBP)
	assert.Equal(t, 246, rec.Cholesterol)
	assert.Equal(t, FastingBloodSugarTrue, rec.FastingBloodSugar)
	assert.Equal(t, RestECGNormal, rec.RestECG)
	assert.Equal(t, 149, rec.MaxHeartRate)
	assert.Equal(t, ExerciseAnginaYes, rec.ExerciseAngina)
	assert.InDelta(t, 1.0, rec.Oldpeak, 1e-9)
	assert.Equal(t, SlopeUpsloping, rec.Slope)
	assert.Equal(t, "0", rec.MajorVessels)
	assert.Equal(t, ThalNormal, rec.Thal)
	require.NoError(t, rec.Validate())
}

func TestFromFormEmptyIsDefault(t *testing.T) {
	rec, err := FromForm(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, Default(), rec)
}

func TestFromFormScenario(t *testing.T) {
	values := url.Values{
		"age":      {"54"},
		"sex":      {"Male"},
		"cp":       {"Typical Angina"},
		"trestbps": {"131"},
		"chol":     {"246"},
		"fbs":      {"False"},
		"restecg":  {"Normal"},
		"thalch":   {"149"},
		"exang":    {"No"},
		"oldpeak":  {"1.0"},
		"slope":    {"Upsloping"},
		"ca":       {"0"},
		"thal":     {"Normal"},
	}
	rec, err := FromForm(values)
	require.NoError(t, err)

	assert.Equal(t, FastingBloodSugarFalse, rec.FastingBloodSugar)
	assert.Equal(t, ExerciseAnginaNo, rec.ExerciseAngina)
	assert.Equal(t, values.Encode(), rec.Values().Encode())
}

func TestFromFormDomainErrors(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
	}{
		{"age below range", "age", "28"},
		{"age above range", "age", "78"},
		{"age not integral", "age", "54.5"},
		{"cholesterol above range", "chol", "501"},
		{"oldpeak above range", "oldpeak", "6.3"},
		{"oldpeak off step", "oldpeak", "1.05"},
		{"oldpeak not a number", "oldpeak", "abc"},
		{"unknown sex", "sex", "Other"},
		{"vessels as number out of set", "ca", "4"},
		{"thal lower case", "thal", "normal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := FromForm(url.Values{tt.field: {tt.value}})
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.NotEmpty(t, verr.For(tt.field))
			assert.Len(t, verr.Errors, 1)
			assert.NoError(t, rec.Validate(), "rejected fields keep their default")
		})
	}
}

func TestFromFormBoundaries(t *testing.T) {
	rec, err := FromForm(url.Values{
		"age":     {"29"},
		"thalch":  {"202"},
		"oldpeak": {"6.2"},
		"chol":    {"126"},
	})
	require.NoError(t, err)
	assert.Equal(t, 29, rec.Age)
	assert.Equal(t, 202, rec.MaxHeartRate)
	assert.InDelta(t, 6.2, rec.Oldpeak, 1e-9)
	assert.Equal(t, 126, rec.Cholesterol)
}

func TestFromFormNegativeZeroOldpeak(t *testing.T) {
	rec, err := FromForm(url.Values{"oldpeak": {"-0.0"}})
	require.NoError(t, err)
	assert.False(t, math.Signbit(rec.Oldpeak))
	assert.Equal(t, "0.0", rec.Values().Get("oldpeak"))

	// records decoded elsewhere are folded on the way out too
	rec.Oldpeak = math.Copysign(0, -1)
	assert.False(t, math.Signbit(rec.Row()["oldpeak"].(float64)))
	assert.Equal(t, "0.0", rec.Cells()[9].Value)
}

func TestRecordValidate(t *testing.T) {
	rec := Default()
	rec.RestingBP = 200
	rec.Slope = "Sideways"

	err := rec.Validate()
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.NotEmpty(t, verr.For("trestbps"))
	assert.NotEmpty(t, verr.For("slope"))
	assert.Empty(t, verr.For("age"))
}

func TestRowIsRaw(t *testing.T) {
	row := Default().Row()

	require.Len(t, row, len(Columns()))
	assert.Equal(t, 54, row["age"])
	assert.Equal(t, "Male", row["sex"])
	assert.Equal(t, "0", row["ca"])
	assert.Equal(t, 1.0, row["oldpeak"])
	for _, name := range Columns() {
		_, ok := row[name]
		assert.True(t, ok, "missing column %s", name)
	}
}

func TestFieldsSchema(t *testing.T) {
	fs := Fields()
	require.Len(t, fs, 13)

	groups := map[int]int{}
	for _, f := range fs {
		groups[f.Group]++
		if f.Kind == KindSelect {
			assert.Equal(t, f.Options[0], f.Default, f.Name)
		}
	}
	assert.Equal(t, map[int]int{1: 5, 2: 5, 3: 3}, groups)

	oldpeak, ok := Lookup("oldpeak")
	require.True(t, ok)
	assert.Equal(t, 1, oldpeak.Decimals())

	fs[0].Label = "mutated"
	again, _ := Lookup("age")
	assert.Equal(t, "Age (years)", again.Label)
}
