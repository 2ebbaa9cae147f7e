// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package provider

import (
	"context"
	"io"
	"net/http"
	"strings"

	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

const googleModelsURL = "https://generativelanguage.googleapis.com/v1beta/models"

// CheckConnection makes a lightweight call to the models endpoint of the
// given provider kind to confirm the endpoint is reachable and the key is
// accepted. baseURL overrides the kind's default endpoint.
func CheckConnection(ctx context.Context, client *http.Client, kind Kind, baseURL, key string) error {
	if key == "" {
		return xzerr.New(xzerr.CodeProviderKeyInvalid, "api key is empty")
	}

	var (
		url     string
		headers = map[string]string{}
	)
	switch kind {
	case KindOpenAI:
		if baseURL == "" {
			return xzerr.New(xzerr.CodeProviderKeyInvalid, "base url is required for openai-compatible providers")
		}
		url = strings.TrimRight(baseURL, "/") + "/models"
		headers["Authorization"] = "Bearer " + key
	case KindAnthropic:
		if baseURL == "" {
			baseURL = "https://api.anthropic.com"
		}
		url = strings.TrimRight(baseURL, "/") + "/v1/models"
		headers["x-api-key"] = key
		headers["anthropic-version"] = "2023-06-01"
	case KindGoogle:
		url = googleModelsURL
		if baseURL != "" {
			url = strings.TrimRight(baseURL, "/") + "/v1beta/models"
		}
		headers["x-goog-api-key"] = key
	default:
		return xzerr.Errorf(xzerr.CodeProviderKeyInvalid, "unknown provider kind: %s", kind)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return xzerr.Wrapf(err, xzerr.CodeProviderKeyCheckFailed, "building connection check request")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return xzerr.Wrapf(err, xzerr.CodeProviderKeyCheckFailed, "checking %s connection", kind)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return xzerr.Errorf(xzerr.CodeProviderKeyInvalid, "invalid %s API key (HTTP %d)", kind, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return xzerr.Errorf(xzerr.CodeProviderKeyCheckFailed, "%s connection check failed (HTTP %d)", kind, resp.StatusCode)
	}
	return nil
}
