/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carverauto/threatmesh/pkg/models"
)

const defaultRequestTimeout = 10 * time.Second

var (
	// ErrUnreachable wraps transport failures: the peer could not be
	// contacted or did not answer in time.
	ErrUnreachable = errors.New("peer unreachable")

	// ErrUnexpectedStatus wraps non-2xx answers.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrNotRecognized is returned when a discover answer is not an Edge Agent identity.
	ErrNotRecognized = errors.New("response is not an edge identity")

	ErrInvalidBaseURL = errors.New("invalid base URL")
)

// Client talks to an Edge Agent or the Aggregator. Every call carries its
// own timeout on top of the caller's context.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient accepts "http://host:port" or a bare "host:port".
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: http.DefaultClient,
		timeout:    defaultRequestTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Discover asks the peer for its identity.
func (c *Client) Discover(ctx context.Context) (*models.DiscoverResponse, error) {
	var resp models.DiscoverResponse

	if err := c.do(ctx, http.MethodGet, PathDiscover, nil, &resp); err != nil {
		return nil, err
	}

	if !resp.Recognized() {
		return nil, ErrNotRecognized
	}

	return &resp, nil
}

// FetchBlockList returns the active blocked addresses.
func (c *Client) FetchBlockList(ctx context.Context) ([]string, error) {
	var resp models.BlockListResponse

	if err := c.do(ctx, http.MethodGet, PathBlockList, nil, &resp); err != nil {
		return nil, err
	}

	if resp.Data == nil {
		return []string{}, nil
	}

	return resp.Data, nil
}

// SubmitReport delivers Monitor counters to an Edge Agent.
func (c *Client) SubmitReport(ctx context.Context, report *models.ClientReport) error {
	return c.do(ctx, http.MethodPost, PathReport, report, nil)
}

// SubmitTelemetry pushes an Edge bundle to the Aggregator.
func (c *Client) SubmitTelemetry(ctx context.Context, bundle *models.TelemetryBundle) error {
	return c.do(ctx, http.MethodPost, PathReport, bundle, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUnreachable, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("%w: %s %s returned %d: %s",
			ErrUnexpectedStatus, method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return nil
}

// IsUnreachable reports whether err means the peer could not be contacted,
// as opposed to answering with an error.
func IsUnreachable(err error) bool {
	if errors.Is(err, ErrUnreachable) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr)
}
