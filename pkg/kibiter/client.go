// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package kibiter is the REST client for the search backend that stores
// the dashboards: index aliases, the navigation menu document, the
// dashboard title and the UI settings. Two incompatible resource-path
// families exist depending on the backend generation; generation
// detection and the Schema strategy in generation.go pick the right one
// per call.
//
// The client is synchronous and single-threaded by design: every call is
// a blocking request-response and the engine never issues two operations
// for the same run concurrently.
package kibiter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/panelops/panelops/pkg/logging"
)

// ErrNoBackendURL is returned when a client is constructed without a URL.
var ErrNoBackendURL = errors.New("backend url must not be empty")

// StatusError is a non-2xx response from the backend. Callers classify
// it with errors.As and IsNotFound.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a backend 404. During alias creation
// this means the target index has not been produced by the upstream
// pipeline yet, which is a warning rather than a failure.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Client talks to one backend base URL. Construct one per backend side
// (raw collection store, enriched store, UI endpoint).
type Client struct {
	baseURL string
	http    *http.Client
	log     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport, mainly for tests and custom
// timeouts. Timeouts are owned by the transport, not by this package.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger attaches a logger; Default() is used otherwise.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrNoBackendURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.Default()
	}
	return c, nil
}

// BaseURL returns the backend base URL the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues a GET for resource and decodes the response into out when
// out is non-nil.
func (c *Client) Get(ctx context.Context, resource string, out any) error {
	return c.do(ctx, http.MethodGet, resource, nil, nil, out)
}

// GetWithBody issues a GET carrying a JSON body. The backend's search
// endpoints accept query documents on GET.
func (c *Client) GetWithBody(ctx context.Context, resource string, body, out any) error {
	return c.do(ctx, http.MethodGet, resource, nil, body, out)
}

// Post writes body as JSON to resource.
func (c *Client) Post(ctx context.Context, resource string, body, out any) error {
	return c.do(ctx, http.MethodPost, resource, nil, body, out)
}

// PostWithHeaders is Post with additional request headers. The UI
// settings endpoint requires a version header on writes.
func (c *Client) PostWithHeaders(ctx context.Context, resource string, headers map[string]string, body, out any) error {
	return c.do(ctx, http.MethodPost, resource, headers, body, out)
}

// Put writes body as JSON to resource.
func (c *Client) Put(ctx context.Context, resource string, body, out any) error {
	return c.do(ctx, http.MethodPut, resource, nil, body, out)
}

// Delete removes resource. A 404 surfaces as a StatusError; callers that
// treat removal as best-effort classify it with IsNotFound.
func (c *Client) Delete(ctx context.Context, resource string) error {
	return c.do(ctx, http.MethodDelete, resource, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, resource string, headers map[string]string, body, out any) error {
	url := c.baseURL
	if resource != "" {
		url += "/" + resource
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	// Mandatory on generation 6, harmless on earlier generations.
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &StatusError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response from %s: %w", url, err)
		}
	}
	return nil
}
