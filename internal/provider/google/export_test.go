// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package google

import (
	"google.golang.org/genai"

	"github.com/xiaozhu-dev/xiaozhu/internal/provider"
)

// ConvertMessages exposes convertMessages for white-box testing.
var ConvertMessages = convertMessages

// BuildConfig exposes buildConfig for white-box testing.
var BuildConfig = func(req provider.ChatRequest) *genai.GenerateContentConfig {
	return buildConfig(req)
}
