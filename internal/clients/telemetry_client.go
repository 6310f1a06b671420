package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"satellite-telemetry/internal/models"
	"satellite-telemetry/internal/pagination"
	"satellite-telemetry/internal/service"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

type ListParams struct {
	Page        int
	Size        int
	SatelliteID string
	Status      string
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Size > 0 {
		q.Set("size", strconv.Itoa(p.Size))
	}
	if p.SatelliteID != "" {
		q.Set("satelliteId", p.SatelliteID)
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	return q
}

type TelemetryClient interface {
	Create(ctx context.Context, req service.CreateTelemetryRequest) (*models.Telemetry, error)
	List(ctx context.Context, params ListParams) (*pagination.Page[models.Telemetry], error)
	Get(ctx context.Context, id uint) (*models.Telemetry, error)
	Delete(ctx context.Context, id uint) error
}

type telemetryClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewTelemetryClient talks to the collection endpoint, e.g. http://localhost:8080/telemetry.
func NewTelemetryClient(baseURL string, timeout time.Duration) TelemetryClient {
	return &telemetryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        200,
				MaxIdleConnsPerHost: 200,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

func (c *telemetryClient) do(ctx context.Context, method, target string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Satellite-Telemetry-Client/1.0")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}

func (c *telemetryClient) recordURL(id uint) string {
	return fmt.Sprintf("%s/%d", c.baseURL, id)
}

func (c *telemetryClient) Create(ctx context.Context, req service.CreateTelemetryRequest) (*models.Telemetry, error) {
	var record models.Telemetry
	if err := c.do(ctx, http.MethodPost, c.baseURL, req, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *telemetryClient) List(ctx context.Context, params ListParams) (*pagination.Page[models.Telemetry], error) {
	target := c.baseURL
	if q := params.values().Encode(); q != "" {
		target += "?" + q
	}

	var page pagination.Page[models.Telemetry]
	if err := c.do(ctx, http.MethodGet, target, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *telemetryClient) Get(ctx context.Context, id uint) (*models.Telemetry, error) {
	var record models.Telemetry
	if err := c.do(ctx, http.MethodGet, c.recordURL(id), nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *telemetryClient) Delete(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, c.recordURL(id), nil, nil)
}
