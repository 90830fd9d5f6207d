/*
Copyright 2025 Vidforge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package provider wraps the external video-generation service. Two guards
// are layered around every call: an exponential-backoff retry for transient
// failures, and a circuit breaker that treats one full retry sequence as a
// single success or failure.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/vidforge/vidforge/config"
	"github.com/vidforge/vidforge/internal/apierror"
	"github.com/vidforge/vidforge/internal/request"
	"github.com/vidforge/vidforge/model"
)

// Status is the fixed four-value vocabulary every provider status maps onto.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// SubmitResult is the provider's answer to a generation request.
type SubmitResult struct {
	CorrelationID  string
	ProviderStatus string
}

// PollResult is a normalized status-poll response.
type PollResult struct {
	Status       Status
	Progress     int
	VideoURL     string
	ThumbnailURL string
	Error        string
}

type submitRequest struct {
	Prompt      string `json:"prompt"`
	Duration    int    `json:"duration"`
	Quality     string `json:"quality"`
	AspectRatio string `json:"aspect_ratio"`
	ImageURL    string `json:"image_url,omitempty"`
	CallbackURL string `json:"callback_url"`
}

type providerResponse struct {
	ID           string `json:"id"`
	TaskID       string `json:"task_id"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	VideoURL     string `json:"video_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Error        string `json:"error"`
	Message      string `json:"message"`
}

// Client is an injectable provider client. Each instance owns its breaker
// state, so tests and multi-tenant setups can hold isolated instances.
type Client struct {
	conf       config.ProviderConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewClient builds a Client from configuration. Passing a nil httpClient
// installs one with the configured request timeout.
func NewClient(conf config.ProviderConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(conf.TimeoutSec) * time.Second}
	}
	failures := uint32(conf.BreakerFailures)
	if failures == 0 {
		failures = 3
	}
	cooldown := time.Duration(conf.BreakerCooldownSec) * time.Second
	if cooldown == 0 {
		cooldown = 30 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "generation-provider",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})
	return &Client{conf: conf, httpClient: httpClient, breaker: breaker}
}

// Submit validates the parameters locally and posts the generation request.
// Bad input never reaches the provider. When the provider accepts the
// request but returns no identifiable correlation id, a placeholder id is
// synthesized so the in-flight request is never lost.
func (c *Client) Submit(ctx context.Context, params model.GenerationParams) (*SubmitResult, error) {
	if err := params.Validate(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "invalid generation parameters", err.Error())
	}
	if c.conf.CallbackUrl == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "callback URL is required", nil)
	}
	if _, err := url.ParseRequestURI(c.conf.CallbackUrl); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "callback URL is malformed", err.Error())
	}

	body := submitRequest{
		Prompt:      params.Prompt,
		Duration:    params.Duration,
		Quality:     params.Quality,
		AspectRatio: params.AspectRatio,
		ImageURL:    params.ImageURL,
		CallbackURL: c.conf.CallbackUrl,
	}

	resp, err := c.call(ctx, http.MethodPost, "/v1/generations", body)
	if err != nil {
		return nil, err
	}

	correlationID := resp.ID
	if correlationID == "" {
		correlationID = resp.TaskID
	}
	if correlationID == "" {
		correlationID = model.GenerateUUIDWithSuffix("pending")
		logrus.Warnf("provider accepted a generation request without a correlation id, synthesized %s", correlationID)
	}
	return &SubmitResult{CorrelationID: correlationID, ProviderStatus: resp.Status}, nil
}

// PollStatus fetches the provider's view of one task and maps its native
// vocabulary onto the fixed four-value one. Unrecognized states map to
// pending, never to a terminal state.
func (c *Client) PollStatus(ctx context.Context, correlationID string) (*PollResult, error) {
	resp, err := c.call(ctx, http.MethodGet, "/v1/generations/"+url.PathEscape(correlationID), nil)
	if err != nil {
		return nil, err
	}

	progress := resp.Progress
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return &PollResult{
		Status:       NormalizeStatus(resp.Status),
		Progress:     progress,
		VideoURL:     resp.VideoURL,
		ThumbnailURL: resp.ThumbnailURL,
		Error:        resp.Error,
	}, nil
}

// NormalizeStatus maps a provider status string onto the fixed vocabulary.
// Unknown values are treated as pending: never assume failure, and never
// assume success, on a state this code has not seen before.
func NormalizeStatus(providerStatus string) Status {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "completed", "complete", "succeeded", "success", "succeed", "finished", "done":
		return StatusCompleted
	case "failed", "fail", "error", "errored", "rejected", "canceled", "cancelled", "timeout":
		return StatusFailed
	case "processing", "in_progress", "running", "generating", "rendering", "started":
		return StatusProcessing
	case "pending", "queued", "submitted", "accepted", "waiting", "created":
		return StatusPending
	default:
		return StatusPending
	}
}

// call runs one logical provider call: the retrying HTTP exchange wrapped in
// the circuit breaker, so a full retry sequence counts once toward tripping.
func (c *Client) call(ctx context.Context, method, path string, body interface{}) (*providerResponse, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.callWithRetry(ctx, method, path, body)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, apierror.NewAPIError(apierror.ErrProviderUnavailable, "generation provider circuit is open", err.Error())
		}
		return nil, err
	}
	return result.(*providerResponse), nil
}

// callWithRetry retries the exchange on transient conditions (connection
// errors, timeouts, 5xx, 429) with exponential backoff plus jitter, sleeping
// synchronously between attempts. Every other condition fails immediately.
func (c *Client) callWithRetry(ctx context.Context, method, path string, body interface{}) (*providerResponse, error) {
	operation := func() (*providerResponse, error) {
		return c.doRequest(ctx, method, path, body)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.Multiplier = 2
	bo.MaxInterval = 10 * time.Second
	bo.RandomizationFactor = 0.1

	// Config defaulting already rejects non-positive retry budgets; guard
	// again here so a hand-built config cannot wrap to a huge uint64.
	maxRetries := uint64(3)
	if c.conf.MaxRetries > 0 {
		maxRetries = uint64(c.conf.MaxRetries)
	}

	resp, err := backoff.RetryWithData(operation, backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx))
	if err != nil {
		if apiErr, ok := err.(apierror.APIError); ok {
			return nil, apiErr
		}
		return nil, apierror.NewAPIError(apierror.ErrProviderUnavailable, "generation provider unreachable", err.Error())
	}
	return resp, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*providerResponse, error) {
	var payload io.Reader
	if body != nil {
		buf, err := request.ToJsonReq(body)
		if err != nil {
			return nil, backoff.Permanent(apierror.NewAPIError(apierror.ErrInternalServer, "failed to encode provider request", err.Error()))
		}
		payload = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.conf.BaseUrl, "/")+path, payload)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.conf.ApiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.conf.ApiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection refused/reset, DNS failure, timeout: retryable.
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode >= 400 {
		var pr providerResponse
		_ = json.Unmarshal(raw, &pr)
		message := pr.Error
		if message == "" {
			message = pr.Message
		}
		if message == "" {
			message = strings.TrimSpace(string(raw))
		}
		return nil, backoff.Permanent(apierror.NewAPIError(apierror.ErrProviderRejected,
			fmt.Sprintf("provider rejected the request with status %d", resp.StatusCode), message))
	}

	var pr providerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, backoff.Permanent(apierror.NewAPIError(apierror.ErrProviderRejected, "provider returned a malformed response", err.Error()))
	}
	return &pr, nil
}
