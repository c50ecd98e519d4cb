package connectors

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"errortrail/src/model"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

const (
	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = 200 * time.Millisecond
	defaultRetryMaxBackoff = 2 * time.Second
)

// ErrorsClient reads captured errors from a remote errortrail server.
type ErrorsClient struct {
	baseURL string
	route   string
	http    *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == http.StatusTooManyRequests {
		return true
	}
	if code == http.StatusRequestTimeout {
		return true
	}
	return false
}

func NewErrorsClient(config Config) *ErrorsClient {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:9898"
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)
	if config.User != "" {
		httpClient.SetBasicAuth(config.User, config.Password)
	}

	return &ErrorsClient{
		baseURL: baseURL,
		route:   normalizeRoute(config.Route),
		http:    httpClient,
	}
}

func normalizeRoute(route string) string {
	route = "/" + strings.Trim(strings.TrimSpace(route), "/")
	if route == "/" {
		return "/errors"
	}
	return route
}

// ListErrors fetches the most recent errors. A limit below 1 leaves the
// choice to the server.
func (c *ErrorsClient) ListErrors(ctx context.Context, limit int) ([]model.ErrorRecordResponse, error) {
	var records []model.ErrorRecordResponse

	req := c.http.R().SetContext(ctx).SetResult(&records)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}

	resp, err := req.Get(c.route)
	if err != nil {
		return nil, fmt.Errorf("list errors: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list errors: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return records, nil
}

// GetError fetches one error. A 404 is reported as found == false.
func (c *ErrorsClient) GetError(ctx context.Context, id uint) (*model.ErrorRecordResponse, bool, error) {
	var record model.ErrorRecordResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&record).
		SetPathParam("id", strconv.FormatUint(uint64(id), 10)).
		Get(c.route + "/{id}")
	if err != nil {
		return nil, false, fmt.Errorf("get error %d: %w", id, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.IsError() {
		return nil, false, fmt.Errorf("get error %d: status %d: %s", id, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return &record, true, nil
}
