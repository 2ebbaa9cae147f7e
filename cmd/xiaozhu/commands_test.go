// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaozhu-dev/xiaozhu/internal/career"
	"github.com/xiaozhu-dev/xiaozhu/internal/conversation"
	"github.com/xiaozhu-dev/xiaozhu/internal/secrets"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

func TestRootCommand_Help(t *testing.T) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"--help"})

	require.NoError(t, root.Execute())
	for _, want := range []string{"xiaozhu", "serve", "chat", "weather", "history", "session", "config", "status", "version", "--data-dir", "--verbose"} {
		assert.Contains(t, buf.String(), want)
	}
}

func TestVersionCommand(t *testing.T) {
	e := newTestEnv(t)
	out := e.mustRun("", "version")
	assert.Contains(t, out, "xiaozhu dev")
}

func TestRoot_MissingConfigFile(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetArgs([]string{"--config", "/nonexistent/xiaozhu.yaml", "history", "list"})

	err := root.Execute()
	require.Error(t, err)
	assert.True(t, xzerr.HasCode(err, xzerr.CodeConfigLoadReadFailure))
}

func TestChat_OneShotWeatherThenHistory(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun("", "chat", "--plain", "北京天气怎么样")
	assert.Contains(t, out, "北京：晴，25°C（体感 27°C），湿度 40%")

	e.mustRun("", "chat", "--plain", "上海的天气")
	e.mustRun("", "chat", "--plain", "北京")

	out = e.mustRun("", "history", "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "北京"), "most recent first: %q", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "上海"))

	out = e.mustRun("", "history", "top")
	assert.Equal(t, "北京 (2 queries)\n", out)

	out = e.mustRun("", "history", "clear")
	assert.Equal(t, "Cleared 2 entries.\n", out)
	out = e.mustRun("", "history", "list")
	assert.Equal(t, "No weather queries yet.\n", out)
}

func TestChat_WeatherFallsBackToMostFrequentCity(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("", "weather", "杭州")

	out := e.mustRun("", "chat", "--plain", "今天天气怎么样")
	assert.Contains(t, out, "杭州：晴")
}

func TestChat_OneShotGeneral(t *testing.T) {
	e := newTestEnv(t)
	out := e.mustRun("", "chat", "--plain", "--session", "work", "你是谁")
	assert.Equal(t, "你好，我是小助。\n", out)

	out = e.mustRun("", "session", "show", "work")
	assert.Contains(t, out, "Session:  work")
	assert.Contains(t, out, "[user]")
	assert.Contains(t, out, "你是谁")
	assert.Contains(t, out, "[assistant]")
	assert.Contains(t, out, "你好，我是小助。")
}

func TestChat_NoProviderFailsGeneralQuestions(t *testing.T) {
	e := newTestEnv(t)
	content := strings.ReplaceAll(testConfig, "provider: deepseek\n  api_key: sk-test-abcdefgh12345678",
		"provider: openai\n  api_key: \"\"")
	content = strings.ReplaceAll(content, "%DATA%", filepath.Join(e.dir, "data"))
	require.NoError(t, os.WriteFile(e.cfgPath, []byte(content), 0o600))
	e.wire.model = nil

	_, err := e.run("", "chat", "--plain", "讲个笑话")
	require.Error(t, err)
	assert.True(t, xzerr.HasCode(err, xzerr.CodeProviderUnavailable))
	assert.True(t, xzerr.IsUpstreamFailure(err))

	out := e.mustRun("", "chat", "--plain", "深圳天气")
	assert.Contains(t, out, "深圳：晴")
}

func TestChat_REPLInterview(t *testing.T) {
	e := newTestEnv(t)
	e.wire.model = fakeModel{parts: []string{"## 执行摘要\n", "建议深耕后端。"}}

	stdin := "职业规划\n" +
		"我今年28岁，本科计算机专业\n" +
		"对人工智能感兴趣\n" +
		"熟悉Go和Python\n" +
		"5年后端开发经验\n" +
		"三年内成为技术负责人\n" +
		"希望在杭州工作\n" +
		"/quit\n"
	out := e.mustRun(stdin, "chat", "--plain", "--session", "plan")

	assert.Contains(t, out, "欢迎使用职业规划服务")
	assert.Contains(t, out, "**问题 1/6**")
	assert.Contains(t, out, "**问题 6/6**")
	assert.Contains(t, out, "✅ 信息收集完成！")
	assert.Contains(t, out, "建议深耕后端。")

	out = e.mustRun("", "session", "list")
	assert.Contains(t, out, "plan")
	assert.Contains(t, out, string(career.StatusCompleted))
}

func TestChat_REPLCancelAndCommands(t *testing.T) {
	e := newTestEnv(t)

	stdin := "职业规划\n我今年25岁\n/cancel\n/bogus\n/help\n/quit\n"
	out := e.mustRun(stdin, "chat", "--plain", "--session", "quit-early")

	assert.Contains(t, out, "**问题 2/6**")
	assert.Contains(t, out, conversation.CancelReply)
	assert.Contains(t, out, "未知命令 /bogus")
	assert.Contains(t, out, "/history")

	out = e.mustRun("", "session", "show", "quit-early")
	assert.Contains(t, out, string(career.StatusCancelled))
}

func TestChat_REPLCancelByMessage(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun("职业规划\n取消\n", "chat", "--plain", "--session", "s1")
	assert.Contains(t, out, conversation.CancelReply)

	out = e.mustRun("", "session", "show", "s1")
	assert.Contains(t, out, string(career.StatusCancelled))
}

func TestChat_InvalidSessionID(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.run("", "chat", "--session", "bad id", "hi")
	require.Error(t, err)
	assert.True(t, xzerr.IsInvalidInput(err))
}

func TestWeatherCommand_JSON(t *testing.T) {
	e := newTestEnv(t)
	out := e.mustRun("", "weather", "--json", "成都")

	var body struct {
		Weather struct {
			City string `json:"city"`
		} `json:"weather"`
		Summary string `json:"summary"`
		History struct {
			QueryCount int `json:"query_count"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "成都", body.Weather.City)
	assert.Equal(t, "成都：晴，25°C（体感 27°C），湿度 40%", body.Summary)
	assert.Equal(t, 1, body.History.QueryCount)
}

func TestWeatherCommand_Plain(t *testing.T) {
	e := newTestEnv(t)
	out := e.mustRun("", "weather", "--plain", "西安")
	assert.Equal(t, "西安：晴，25°C（体感 27°C），湿度 40%\n2026-10-18 周日 15~26°C 晴\n", out)
}

func TestWeatherCommand_UnknownCity(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.run("", "weather", "亚特兰蒂斯")
	require.Error(t, err)
	assert.True(t, xzerr.IsNotFound(err))

	out := e.mustRun("", "history", "list")
	assert.Equal(t, "No weather queries yet.\n", out)
}

func TestSessionCommands(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun("", "session", "list")
	assert.Equal(t, "No sessions found\n", out)

	e.mustRun("", "chat", "--plain", "--session", "alpha", "你好")
	out = e.mustRun("", "session", "list")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, string(career.StatusNotStarted))

	out = e.mustRun("", "session", "delete", "alpha")
	assert.Equal(t, "Deleted session alpha\n", out)

	_, err := e.run("", "session", "show", "alpha")
	require.Error(t, err)
	assert.True(t, xzerr.IsNotFound(err))
}

func TestConfigShow_MasksKey(t *testing.T) {
	e := newTestEnv(t)
	out := e.mustRun("", "config", "show")

	assert.Contains(t, out, "# "+e.cfgPath)
	assert.NotContains(t, out, "sk-test-abcdefgh12345678")
	assert.Contains(t, out, "provider: deepseek")
	assert.Contains(t, out, "https://api.deepseek.com/v1")
}

func TestConfigPresets(t *testing.T) {
	e := newTestEnv(t)
	out := e.mustRun("", "config", "presets")
	for _, name := range []string{"openai", "deepseek", "qwen", "anthropic", "google", "custom"} {
		assert.Contains(t, out, name)
	}
}

func TestConfigInit(t *testing.T) {
	e := newTestEnv(t)
	path := filepath.Join(e.dir, "out", "xiaozhu.yaml")

	out := e.mustRun("", "config", "init", "--path", path)
	assert.Equal(t, "Wrote "+path+"\n", out)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out = e.mustRun("", "config", "init", "--path", path)
	assert.Contains(t, out, "already exists")

	out = e.mustRun("", "config", "init", "--path", path, "--force")
	assert.Equal(t, "Wrote "+path+"\n", out)
}

func TestConfigSetKey(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun("sk-from-stdin-000000\n", "config", "set-key", "Qwen")
	uri := secrets.APIKeyURI("qwen")
	assert.Contains(t, out, uri)

	stored, err := e.secrets.Retrieve(secrets.DefaultService, secrets.APIKeyName("qwen"))
	require.NoError(t, err)
	assert.Equal(t, "sk-from-stdin-000000", stored)

	raw, err := os.ReadFile(e.cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "provider: qwen")
	assert.Contains(t, string(raw), uri)

	// show keeps the reference instead of the resolved key.
	out = e.mustRun("", "config", "show")
	assert.Contains(t, out, uri)
	assert.NotContains(t, out, "sk-from-stdin-000000")
}

func TestConfigSetKey_Errors(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.run("", "config", "set-key", "nope", "sk-x")
	require.Error(t, err)
	assert.True(t, xzerr.IsNotFound(err))

	_, err = e.run("   \n", "config", "set-key", "openai")
	require.Error(t, err)
	assert.True(t, xzerr.IsInvalidInput(err))
}

func TestConfigKeysAndDeleteKey(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun("", "config", "keys")
	assert.Contains(t, out, "No API keys stored.")

	e.mustRun("", "config", "set-key", "deepseek", "sk-deepseek-000000")
	e.mustRun("", "config", "set-key", "qwen", "sk-qwen-0000000000")

	out = e.mustRun("", "config", "keys")
	assert.Contains(t, out, "PROVIDER")
	assert.Regexp(t, `deepseek\s+keyring://xiaozhu/deepseek-api-key\s*\n`, out)
	assert.Regexp(t, `qwen\s+keyring://xiaozhu/qwen-api-key\s+\*`, out)

	out = e.mustRun("", "config", "delete-key", "deepseek")
	assert.Contains(t, out, "Removed deepseek key from keyring")
	assert.NotContains(t, out, "Cleared model.api_key")

	out = e.mustRun("", "config", "delete-key", "qwen")
	assert.Contains(t, out, "Cleared model.api_key in "+e.cfgPath)
	raw, err := os.ReadFile(e.cfgPath)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), secrets.APIKeyURI("qwen"))

	out = e.mustRun("", "config", "keys")
	assert.Contains(t, out, "No API keys stored.")

	_, err = e.run("", "config", "delete-key", "qwen")
	require.Error(t, err)
	assert.True(t, xzerr.IsNotFound(err))
}

func TestConfigCheck(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	e := newTestEnv(t)
	content := strings.ReplaceAll(testConfig, "%DATA%", filepath.Join(e.dir, "data"))
	content = strings.Replace(content, "api_key: sk-test-abcdefgh12345678",
		"api_key: sk-test-abcdefgh12345678\n  base_url: "+srv.URL+"/v1", 1)
	require.NoError(t, os.WriteFile(e.cfgPath, []byte(content), 0o600))

	out := e.mustRun("", "config", "check")
	assert.Contains(t, out, "ok")
	assert.Equal(t, "Bearer sk-test-abcdefgh12345678", gotAuth)
}

func TestStatusCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case "/api/v1/providers":
			_, _ = w.Write([]byte(`{"presets":[],"statuses":[{"available":true,"provider":"deepseek"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := newTestEnv(t)
	addr := strings.TrimPrefix(srv.URL, "http://")
	out := e.mustRun("", "status", "--address", addr)
	assert.Contains(t, out, "小助 at "+addr+": ok")
	assert.Contains(t, out, "deepseek: available")
}

func TestStatusCommand_ServerDown(t *testing.T) {
	e := newTestEnv(t)
	out := e.mustRun("", "status", "--address", "127.0.0.1:1")
	assert.Contains(t, out, "is not running")
}

func TestNewLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	logger, err := newLogger(buf, "debug", "json")
	require.NoError(t, err)
	logger.Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	logger, err = newLogger(buf, "warn", "text")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = newLogger(buf, "loud", "text")
	require.Error(t, err)
	_, err = newLogger(buf, "info", "xml")
	require.Error(t, err)
}
