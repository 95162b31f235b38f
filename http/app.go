package http

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"go.uber.org/zap"

	"heartpredict/monitoring"
	"heartpredict/predictor"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pages = template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))

// App serves the prediction form and the JSON API. When the model could not
// be loaded the App is halted: every page reports the load error and no
// inference is attempted.
type App struct {
	predictor predictor.Predictor
	halted    error
	metrics   *monitoring.MetricsCollector
	logger    *zap.Logger
}

func NewApp(p predictor.Predictor, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{predictor: p, metrics: newMetrics(p == nil), logger: logger}
}

// NewHaltedApp serves only the error that stopped the model from loading.
func NewHaltedApp(cause error, logger *zap.Logger) *App {
	a := NewApp(nil, logger)
	a.halted = cause
	return a
}

// Halted returns the load error, nil when the model is available.
func (a *App) Halted() error {
	return a.halted
}

func (a *App) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", a.handleIndex)
	mux.HandleFunc("POST /predict", a.handlePredict)
	mux.HandleFunc("GET /api/v1/schema", a.handleSchema)
	mux.HandleFunc("POST /api/v1/predict", a.handleAPIPredict)
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("GET /api/v1/metrics", a.handleMetrics)
	mux.HandleFunc("GET /metrics", a.handlePrometheus)

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
}

func (a *App) render(w http.ResponseWriter, r *http.Request, status int, data *pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, "page.html", data); err != nil {
		a.logger.Error("render page",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
	}
}
