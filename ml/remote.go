package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type RemoteSpec struct {
	URL     string `json:"url"`
	Timeout string `json:"timeout,omitempty"`
}

// Remote forwards raw rows to an inference service that owns the model.
type Remote struct {
	url        string
	classes    []int
	httpClient *http.Client
}

type remoteRequest struct {
	Columns Row `json:"columns"`
}

type remoteResponse struct {
	Label         int       `json:"label"`
	Probabilities []float64 `json:"probabilities"`
}

func newRemote(artifact *Artifact, opts LoadOptions) (*Remote, error) {
	spec := artifact.Remote
	timeout := 30 * time.Second
	if opts.RemoteTimeout > 0 {
		timeout = opts.RemoteTimeout
	}
	if spec.Timeout != "" {
		d, err := time.ParseDuration(spec.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: remote timeout: %v", ErrInvalidArtifact, err)
		}
		timeout = d
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Remote{
		url:        strings.TrimRight(spec.URL, "/"),
		classes:    artifact.Classes,
		httpClient: client,
	}, nil
}

func (m *Remote) Classes() []int {
	return append([]int(nil), m.classes...)
}

func (m *Remote) Predict(ctx context.Context, row Row) (int, error) {
	label, _, err := m.PredictWithProba(ctx, row)
	return label, err
}

func (m *Remote) PredictProba(ctx context.Context, row Row) ([]float64, error) {
	_, proba, err := m.PredictWithProba(ctx, row)
	return proba, err
}

// PredictWithProba makes a single request and checks that the returned
// label is the most probable class.
func (m *Remote) PredictWithProba(ctx context.Context, row Row) (int, []float64, error) {
	resp, err := m.call(ctx, row)
	if err != nil {
		return 0, nil, err
	}
	if len(resp.Probabilities) != len(m.classes) {
		return 0, nil, fmt.Errorf("remote model returned %d probabilities, want %d", len(resp.Probabilities), len(m.classes))
	}
	idx := -1
	for i, c := range m.classes {
		if c == resp.Label {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, nil, fmt.Errorf("remote model returned unknown label %d", resp.Label)
	}
	if resp.Probabilities[idx] < resp.Probabilities[argmax(resp.Probabilities)] {
		return 0, nil, fmt.Errorf("remote model label %d disagrees with probabilities %v", resp.Label, resp.Probabilities)
	}
	return resp.Label, resp.Probabilities, nil
}

func (m *Remote) call(ctx context.Context, row Row) (*remoteResponse, error) {
	body, err := json.Marshal(remoteRequest{Columns: row})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call remote model: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote model returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var out remoteResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
