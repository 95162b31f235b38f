package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"heartpredict/patient"
	"heartpredict/predictor"
)

type fakePredictor struct {
	result predictor.Result
	err    error
	calls  int
	last   patient.Record
}

func (f *fakePredictor) Predict(ctx context.Context, rec patient.Record) (predictor.Result, error) {
	f.calls++
	f.last = rec
	return f.result, f.err
}

func diseaseResult() predictor.Result {
	return predictor.Result{
		ID:            "7d1f3c1e-0000-4000-8000-000000000001",
		Label:         predictor.Disease,
		Probabilities: predictor.Probabilities{NoDisease: 0.3, Disease: 0.7},
	}
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHandlePredict(t *testing.T) {
	fake := &fakePredictor{result: diseaseResult()}
	rec := patient.Default()
	rec.FastingBloodSugar = patient.FastingBloodSugarFalse
	rec.ExerciseAngina = patient.ExerciseAnginaNo

	w := serve(NewApp(fake, nil), postForm("/predict", rec.Values()))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if fake.calls != 1 {
		t.Fatalf("expected one prediction, got %d", fake.calls)
	}
	if fake.last != rec {
		t.Fatalf("model saw %+v, want %+v", fake.last, rec)
	}
	body := w.Body.String()
	for _, want := range []string{
		"Prediction Result",
		"⚠️ You are likely to have heart disease.",
		"Probability of No Heart Disease: <strong>0.30</strong>",
		"Probability of Heart Disease: <strong>0.70</strong>",
		"<svg ",
		"<title>Heart Disease: 0.70</title>",
		"<td>False</td>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHandlePredictNoDisease(t *testing.T) {
	fake := &fakePredictor{result: predictor.Result{
		Label:         predictor.NoDisease,
		Probabilities: predictor.Probabilities{NoDisease: 0.8, Disease: 0.2},
	}}
	w := serve(NewApp(fake, nil), postForm("/predict", url.Values{}))

	if !strings.Contains(w.Body.String(), "✅ You are not likely to have heart disease.") {
		t.Fatal("missing negative message")
	}
	if fake.last != patient.Default() {
		t.Fatal("empty submission must predict on the defaults")
	}
}

func TestHandlePredictLocale(t *testing.T) {
	req := postForm("/predict", url.Values{})
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.5")
	w := serve(NewApp(&fakePredictor{result: diseaseResult()}, nil), req)

	if !strings.Contains(w.Body.String(), "<strong>0,70</strong>") {
		t.Fatalf("expected German decimal separator: %s", w.Body.String())
	}
}

func TestHandlePredictInferenceFailure(t *testing.T) {
	fake := &fakePredictor{err: &predictor.InferenceError{Op: "predict", Err: errors.New("columns are missing: {'thal'}")}}
	values := url.Values{"age": {"63"}}

	w := serve(NewApp(fake, nil), postForm("/predict", values))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "prediction error: predict: columns are missing") {
		t.Fatalf("error not shown: %s", body)
	}
	if !strings.Contains(body, `value="63"`) {
		t.Fatal("form lost the submitted record")
	}
	if strings.Contains(body, "Prediction Result") {
		t.Fatal("no result may be shown after a failure")
	}

	// the next request goes through
	fake.err, fake.result = nil, diseaseResult()
	w = serve(NewApp(fake, nil), postForm("/predict", values))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after recovery, got %d", w.Code)
	}
}

func TestHandlePredictValidation(t *testing.T) {
	fake := &fakePredictor{result: diseaseResult()}
	w := serve(NewApp(fake, nil), postForm("/predict", url.Values{"age": {"200"}, "thal": {"Unknown"}}))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if fake.calls != 0 {
		t.Fatal("invalid input must not reach the model")
	}
	if strings.Count(w.Body.String(), `class="field-error"`) != 2 {
		t.Fatalf("expected two field errors: %s", w.Body.String())
	}
}

func TestAPIPredict(t *testing.T) {
	fake := &fakePredictor{result: diseaseResult()}
	body := `{"age": 63, "sex": "Female", "oldpeak": 2.3, "ca": "2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(body))
	w := serve(NewApp(fake, nil), req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	want := patient.Default()
	want.Age, want.Sex, want.Oldpeak, want.MajorVessels = 63, patient.SexFemale, 2.3, "2"
	if fake.last != want {
		t.Fatalf("model saw %+v, want %+v", fake.last, want)
	}

	var payload struct {
		ID            string                  `json:"id"`
		Label         int                     `json:"label"`
		Outcome       string                  `json:"outcome"`
		Message       string                  `json:"message"`
		Probabilities predictor.Probabilities `json:"probabilities"`
		Chart         struct {
			Bars []struct {
				Outcome     string  `json:"outcome"`
				Probability float64 `json:"probability"`
			} `json:"bars"`
			YMax float64 `json:"y_max"`
		} `json:"chart"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload.Label != 1 || payload.Outcome != "Heart Disease" {
		t.Fatalf("unexpected label: %+v", payload)
	}
	if payload.Probabilities.Disease != 0.7 || payload.Probabilities.NoDisease != 0.3 {
		t.Fatalf("unexpected probabilities: %+v", payload.Probabilities)
	}
	if len(payload.Chart.Bars) != 2 || payload.Chart.Bars[0].Outcome != "No Heart Disease" || payload.Chart.YMax != 1 {
		t.Fatalf("unexpected chart: %+v", payload.Chart)
	}
}

func TestAPIPredictErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		kind   string
	}{
		{"malformed", `{"age":`, nil, http.StatusBadRequest, "bad_request"},
		{"unknown field", `{"weight": 80}`, nil, http.StatusBadRequest, "bad_request"},
		{"out of domain", `{"trestbps": 300}`, nil, http.StatusUnprocessableEntity, "validation"},
		{"bad category", `{"cp": "Sharp"}`, nil, http.StatusUnprocessableEntity, "validation"},
		{"inference", `{}`, &predictor.InferenceError{Op: "predict_proba", Err: errors.New("boom")}, http.StatusInternalServerError, "inference_failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakePredictor{result: diseaseResult(), err: tt.err}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(tt.body))
			w := serve(NewApp(fake, nil), req)

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			var payload errorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if payload.Error != tt.kind || payload.Details == "" {
				t.Fatalf("unexpected error body: %+v", payload)
			}
			if tt.kind == "validation" && len(payload.Fields) != 1 {
				t.Fatalf("expected one field error: %+v", payload.Fields)
			}
		})
	}
}
