package sampler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/riverbyte/capacity-engine/internal/logger"
	"github.com/riverbyte/capacity-engine/pkg/models"
)

type HTTPSource struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
}

type HTTPSourceConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &HTTPSource{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint: cfg.Endpoint,
		timeout:  timeout,
	}
}

// metricResponse matches the payload served by the pool simulator and any
// compatible metric backend.
type metricResponse struct {
	PoolID  string `json:"pool_id"`
	Metric  string `json:"metric"`
	Samples []struct {
		Timestamp string  `json:"timestamp"`
		Value     float64 `json:"value"`
	} `json:"samples"`
}

func (s *HTTPSource) GetMetric(ctx context.Context, poolID string, metric models.MetricName, since, until time.Time) ([]models.MetricSample, error) {
	url := fmt.Sprintf("%s/pools/%s/metrics/%s?since=%d&until=%d",
		s.endpoint, poolID, metric, since.Unix(), until.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrSourceFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrPoolNotFound
	case http.StatusServiceUnavailable:
		// The backend tells unavailable apart from empty; so do we.
		return nil, ErrMetricUnavailable
	default:
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrSourceFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrSourceFailed, err)
	}

	var mr metricResponse
	if err := json.Unmarshal(body, &mr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	samples := make([]models.MetricSample, 0, len(mr.Samples))
	for _, raw := range mr.Samples {
		ts, err := time.Parse(time.RFC3339, raw.Timestamp)
		if err != nil {
			logger.WithPool(poolID).Debugf("Skipping sample with bad timestamp %q", raw.Timestamp)
			continue
		}
		samples = append(samples, models.MetricSample{
			Timestamp: ts,
			PoolID:    poolID,
			Metric:    metric,
			Value:     raw.Value,
		})
	}

	return samples, nil
}

func (s *HTTPSource) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/health", s.endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

func (s *HTTPSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
