// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

// apiClient provides HTTP access to a running xiaozhu server.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(addr string, hc *http.Client) *apiClient {
	return &apiClient{baseURL: "http://" + addr, http: hc}
}

// getJSON performs a GET request and decodes the JSON response into dest.
func (c *apiClient) getJSON(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return xzerr.Wrap(err, xzerr.CodeCLIInputInvalid, "building request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if isDialError(err) {
			return xzerr.Wrapf(err, xzerr.CodeCLIServerDown, "server at %s is not running", c.baseURL)
		}
		return xzerr.Wrap(err, xzerr.CodeCLISetupFailure, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return xzerr.New(xzerr.CodeCLISetupFailure,
			fmt.Sprintf("server returned status %d: %s", resp.StatusCode, string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return xzerr.Wrap(err, xzerr.CodeCLISetupFailure, "invalid response")
	}
	return nil
}

func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
