package http

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/message"

	"heartpredict/chart"
	"heartpredict/patient"
	"heartpredict/predictor"
)

const pageTitle = "Heart Disease Prediction"

type pageData struct {
	Title  string
	Halted string
	Groups [][]control
	Table  []patient.Cell
	// Invalid is set when the submitted form failed domain checks.
	Invalid      bool
	PredictError string
	Result       *resultView
}

// control is one form input with its current value.
type control struct {
	patient.Field
	Value string
	Error string
}

func (c control) Slider() bool { return c.Kind == patient.KindSlider }

type resultView struct {
	Disease   bool
	Message   string
	NoDisease string
	DiseaseP  string
	Chart     template.HTML
}

func newPage(rec patient.Record, verr *patient.ValidationError) *pageData {
	values := map[string]string{}
	for _, cell := range rec.Cells() {
		values[cell.Column] = cell.Value
	}

	data := &pageData{Title: pageTitle, Table: rec.Cells(), Invalid: verr != nil}
	for _, f := range patient.Fields() {
		c := control{Field: f, Value: values[f.Name]}
		if verr != nil {
			c.Error = verr.For(f.Name)
		}
		for len(data.Groups) < f.Group {
			data.Groups = append(data.Groups, nil)
		}
		data.Groups[f.Group-1] = append(data.Groups[f.Group-1], c)
	}
	return data
}

func newResultView(p *message.Printer, result predictor.Result) (*resultView, error) {
	var svg strings.Builder
	if err := chart.FromResult(result).SVG(&svg); err != nil {
		return nil, err
	}
	return &resultView{
		Disease:   result.Label == predictor.Disease,
		Message:   result.Label.Message(),
		NoDisease: formatProbability(p, result.Probabilities.NoDisease),
		DiseaseP:  formatProbability(p, result.Probabilities.Disease),
		// the chart escapes every string it embeds
		Chart: template.HTML(svg.String()),
	}, nil
}

func (a *App) renderHalted(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusServiceUnavailable, &pageData{Title: pageTitle, Halted: a.halted.Error()})
}

// handleIndex renders the form. Query parameters pre-fill it, which is how
// the Update button refreshes the input table without running the model.
func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	if a.halted != nil {
		a.renderHalted(w, r)
		return
	}

	rec, err := patient.FromForm(r.URL.Query())
	var verr *patient.ValidationError
	if errors.As(err, &verr) {
		a.render(w, r, http.StatusUnprocessableEntity, newPage(rec, verr))
		return
	}
	a.render(w, r, http.StatusOK, newPage(rec, nil))
}

func (a *App) handlePredict(w http.ResponseWriter, r *http.Request) {
	if a.halted != nil {
		a.renderHalted(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	rec, err := patient.FromForm(r.PostForm)
	var verr *patient.ValidationError
	if errors.As(err, &verr) {
		a.countFailure("validation")
		a.render(w, r, http.StatusUnprocessableEntity, newPage(rec, verr))
		return
	}

	data := newPage(rec, nil)
	result, err := a.predict(r.Context(), rec)
	if err != nil {
		a.logger.Warn("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		data.PredictError = err.Error()
		a.render(w, r, http.StatusInternalServerError, data)
		return
	}

	data.Result, err = newResultView(printerFor(r), result)
	if err != nil {
		data.PredictError = err.Error()
		a.render(w, r, http.StatusInternalServerError, data)
		return
	}
	a.render(w, r, http.StatusOK, data)
}
