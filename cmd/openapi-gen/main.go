// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

// Command openapi-gen writes the HTTP API's OpenAPI document.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xiaozhu-dev/xiaozhu/internal/agent"
	"github.com/xiaozhu-dev/xiaozhu/internal/server"
	"github.com/xiaozhu-dev/xiaozhu/internal/store"
	"github.com/xiaozhu-dev/xiaozhu/internal/weather"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec registers every route against in-memory collaborators and
// extracts the document huma builds from the Go types. No handler runs.
func generateSpec() ([]byte, error) {
	router := agent.NewRouter(nil, weather.NewHistoryCache(), nil)
	svc, err := server.NewServices(router, store.NewMemoryStore().Sessions())
	if err != nil {
		return nil, err
	}

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, svc)
	if err != nil {
		return nil, xzerr.Wrap(err, xzerr.CodeCLISetupFailure, "creating server")
	}
	defer srv.Close()

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}
