package classifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"DeSynth/pkg/models"
)

// maxResponseBytes bounds what a model server may send back
const maxResponseBytes = 1 << 20

// RemoteConfig describes one model served over HTTP
type RemoteConfig struct {
	Model            string        // Model id sent with every request
	URL              string        // Endpoint accepting POSTed remoteRequest bodies
	Timeout          time.Duration // Per-request timeout
	Rate             float64       // Requests per second, 0 for unlimited
	Burst            int           // Limiter burst
	FailureThreshold uint32        // Consecutive failures that open the breaker
	OpenTimeout      time.Duration // How long the breaker stays open
}

// DefaultRemoteConfig returns conservative client settings for a model endpoint
func DefaultRemoteConfig(model, url string) RemoteConfig {
	return RemoteConfig{
		Model:            model,
		URL:              url,
		Timeout:          30 * time.Second,
		Rate:             5,
		Burst:            5,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

type remoteRequest struct {
	Model string `json:"model"`
	Image []byte `json:"image"`
}

type remoteResponse struct {
	Model      string   `json:"model"`
	Confidence *float64 `json:"confidence"`
	Prediction string   `json:"prediction"`
}

// Remote is a Backend calling a model server over HTTP, behind a rate limiter and a
// circuit breaker
type Remote struct {
	cfg     RemoteConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[models.Vote]
}

// NewRemote creates a remote backend. A nil client gets one with cfg.Timeout.
func NewRemote(cfg RemoteConfig, client *http.Client) *Remote {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	r := &Remote{cfg: cfg, client: client}
	if cfg.Rate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), max(1, cfg.Burst))
	}

	threshold := max(1, cfg.FailureThreshold)
	r.breaker = gobreaker.NewCircuitBreaker[models.Vote](gobreaker.Settings{
		Name:        "classifier-" + cfg.Model,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	return r
}

// Name returns the model id
func (r *Remote) Name() string { return r.cfg.Model }

// State reports the circuit breaker state for monitoring
func (r *Remote) State() string { return r.breaker.State().String() }

// Classify posts the image to the model server
func (r *Remote) Classify(ctx context.Context, data []byte) (models.Vote, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return models.Vote{}, fmt.Errorf("model %s: %w", r.cfg.Model, err)
		}
	}
	vote, err := r.breaker.Execute(func() (models.Vote, error) {
		return r.post(ctx, data)
	})
	if err != nil {
		return models.Vote{}, fmt.Errorf("model %s: %w", r.cfg.Model, err)
	}
	return vote, nil
}

func (r *Remote) post(ctx context.Context, data []byte) (models.Vote, error) {
	body, err := json.Marshal(remoteRequest{Model: r.cfg.Model, Image: data})
	if err != nil {
		return models.Vote{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return models.Vote{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return models.Vote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.Vote{}, fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}

	var out remoteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return models.Vote{}, fmt.Errorf("decode response: %w", err)
	}
	if out.Confidence == nil {
		return models.Vote{}, fmt.Errorf("response carries no confidence")
	}

	vote := NewVote(r.cfg.Model, *out.Confidence)
	if out.Prediction != "" {
		vote.Prediction = models.Prediction(out.Prediction)
	}
	if err := ValidateVote(vote); err != nil {
		return models.Vote{}, err
	}
	return vote, nil
}
