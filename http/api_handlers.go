package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"heartpredict/chart"
	"heartpredict/patient"
	"heartpredict/predictor"
)

type errorResponse struct {
	Error   string               `json:"error"`
	Details string               `json:"details"`
	Fields  []patient.FieldError `json:"fields,omitempty"`
}

type schemaResponse struct {
	Fields  []patient.Field `json:"fields"`
	Default patient.Record  `json:"default"`
}

type predictResponse struct {
	predictor.Result
	Outcome string         `json:"outcome"`
	Message string         `json:"message"`
	Input   patient.Record `json:"input"`
	Chart   chart.Chart    `json:"chart"`
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.halted != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  a.halted.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleSchema(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, schemaResponse{Fields: patient.Fields(), Default: patient.Default()})
}

// handleAPIPredict accepts a JSON record; omitted fields take their default.
func (a *App) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	if a.halted != nil {
		writeError(w, http.StatusServiceUnavailable, "missing_artifact", a.halted.Error())
		return
	}

	rec := patient.Default()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "bad_request", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return
	}

	if err := rec.Validate(); err != nil {
		a.countFailure("validation")
		resp := errorResponse{Error: "validation", Details: err.Error()}
		var verr *patient.ValidationError
		if errors.As(err, &verr) {
			resp.Fields = verr.Errors
		}
		respondJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	result, err := a.predict(r.Context(), rec)
	if err != nil {
		a.logger.Warn("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "inference_failure", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, predictResponse{
		Result:  result,
		Outcome: result.Label.String(),
		Message: result.Label.Message(),
		Input:   rec,
		Chart:   chart.FromResult(result),
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, kind, details string) {
	respondJSON(w, status, errorResponse{Error: kind, Details: details})
}
