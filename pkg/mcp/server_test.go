package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/argus-ai/argus/pkg/config"
	"github.com/argus-ai/argus/pkg/dispatch"
	"github.com/argus-ai/argus/pkg/models"
	"github.com/argus-ai/argus/pkg/provider"
	"github.com/argus-ai/argus/pkg/registry"
)

func authErr() error { return &provider.Error{Status: 401, Body: "bad key"} }

// fakeCaller scripts per-model call results. Each call against a model pops
// the next scripted error; nil means success.
type fakeCaller struct {
	mu      sync.Mutex
	scripts map[string][]error
	calls   map[string]int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		scripts: make(map[string][]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeCaller) script(model string, errs ...error) {
	f.scripts[model] = errs
}

func (f *fakeCaller) Complete(_ context.Context, m registry.Model, _ models.Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.calls[m.ID]
	f.calls[m.ID] = n + 1

	script := f.scripts[m.ID]
	if n < len(script) && script[n] != nil {
		return "", script[n]
	}
	return "verdict from " + m.ID, nil
}

// fakeStatter implements CacheStatter for testing.
type fakeStatter struct {
	stats models.CacheStats
}

func (f *fakeStatter) Stats() (models.CacheStats, error) { return f.stats, nil }

func testServer(t *testing.T, caller *fakeCaller, cache CacheStatter) *Server {
	t.Helper()
	t.Setenv("MCP_TEST_KEY_A", "secret")
	t.Setenv("MCP_TEST_KEY_B", "secret")
	reg, err := registry.New(&config.Config{
		DefaultModel: "alpha",
		Models: []config.ModelConfig{
			{ID: "alpha", Name: "Alpha", Provider: "zai", APIKeyEnv: "MCP_TEST_KEY_A", TimeoutSeconds: 5},
			{ID: "beta", Name: "Beta", Provider: "openrouter", APIKeyEnv: "MCP_TEST_KEY_B", TimeoutSeconds: 5},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	policy := dispatch.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	d := dispatch.New(reg, nil, caller, policy)
	return New(d, reg, cache, "test")
}

func sendAndReceive(t *testing.T, srv *Server, req Request) Response {
	t.Helper()
	line, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	line = append(line, '\n')

	var out bytes.Buffer
	if err := srv.Run(context.Background(), bytes.NewReader(line), &out); err != nil {
		t.Fatal(err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, out.String())
	}
	return resp
}

func callTool(t *testing.T, srv *Server, name, args string) ToolCallResult {
	t.Helper()
	params, err := json.Marshal(ToolCallParams{Name: name, Arguments: json.RawMessage(args)})
	if err != nil {
		t.Fatal(err)
	}
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "tools/call",
		Params:  params,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected rpc error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolCallResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Content) == 0 {
		t.Fatal("expected content")
	}
	return result
}

func TestInitialize(t *testing.T) {
	srv := testServer(t, newFakeCaller(), nil)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "initialize",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result InitializeResult
	json.Unmarshal(data, &result)

	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocol version = %s, want 2024-11-05", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "argus" {
		t.Errorf("server name = %s, want argus", result.ServerInfo.Name)
	}
}

func TestToolsList(t *testing.T) {
	srv := testServer(t, newFakeCaller(), nil)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`2`),
		Method:  "tools/list",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolsListResult
	json.Unmarshal(data, &result)

	if len(result.Tools) != 6 {
		t.Errorf("got %d tools, want 6", len(result.Tools))
	}

	names := make(map[string]bool)
	for _, tool := range result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{
		"verify_code", "list_models", "set_default_model",
		"cache_stats", "retry_with_fallback", "diagnose",
	} {
		if !names[want] {
			t.Errorf("missing tool: %s", want)
		}
	}
}

func TestUnknownTool(t *testing.T) {
	srv := testServer(t, newFakeCaller(), nil)
	result := callTool(t, srv, "no_such_tool", `{}`)
	if !result.IsError {
		t.Error("expected error result for unknown tool")
	}
}

func TestVerifyCodeSuccess(t *testing.T) {
	srv := testServer(t, newFakeCaller(), nil)
	result := callTool(t, srv, "verify_code",
		`{"code":"package main","file_path":"main.go","task_context":"hello world"}`)

	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Content[0].Text)
	}
	text := result.Content[0].Text
	if !strings.Contains(text, "verdict from alpha") {
		t.Errorf("expected verdict, got: %s", text)
	}
	if !strings.Contains(text, "model: alpha") {
		t.Errorf("expected model header, got: %s", text)
	}
}

func TestVerifyCodeValidation(t *testing.T) {
	srv := testServer(t, newFakeCaller(), nil)

	// No code, diff or files.
	result := callTool(t, srv, "verify_code", `{"task_context":"something"}`)
	if !result.IsError {
		t.Error("expected validation error without any input")
	}

	// No task context.
	result = callTool(t, srv, "verify_code", `{"code":"x = 1"}`)
	if !result.IsError {
		t.Error("expected validation error without task_context")
	}
}

func TestVerifyCodeFallback(t *testing.T) {
	caller := newFakeCaller()
	caller.script("alpha", authErr())
	srv := testServer(t, caller, nil)

	result := callTool(t, srv, "verify_code",
		`{"code":"x = 1","file_path":"a.py","task_context":"test"}`)

	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Content[0].Text)
	}
	if !strings.Contains(result.Content[0].Text, "verdict from beta") {
		t.Errorf("expected fallback verdict, got: %s", result.Content[0].Text)
	}
}

func TestVerifyCodeAllFailedAndRetry(t *testing.T) {
	caller := newFakeCaller()
	caller.script("alpha", authErr())
	caller.script("beta", authErr())
	srv := testServer(t, caller, nil)

	result := callTool(t, srv, "verify_code",
		`{"code":"x = 1","file_path":"a.py","task_context":"test","use_fallback":false}`)
	if !result.IsError {
		t.Fatal("expected error result when every model fails")
	}
	if !strings.Contains(result.Content[0].Text, "alpha") {
		t.Errorf("expected failed model in output, got: %s", result.Content[0].Text)
	}
	if !strings.Contains(result.Content[0].Text, "call id: ") {
		t.Errorf("expected correlation id in error output, got: %s", result.Content[0].Text)
	}

	// Scripts are exhausted, so the retry succeeds.
	result = callTool(t, srv, "retry_with_fallback", `{}`)
	if result.IsError {
		t.Fatalf("retry failed: %s", result.Content[0].Text)
	}
	if !strings.Contains(result.Content[0].Text, "verdict from") {
		t.Errorf("expected verdict after retry, got: %s", result.Content[0].Text)
	}

	// The stored request was cleared by the successful retry.
	result = callTool(t, srv, "retry_with_fallback", `{}`)
	if !result.IsError || !strings.Contains(result.Content[0].Text, "No failed verification") {
		t.Errorf("expected no-retry message, got: %s", result.Content[0].Text)
	}
}

func TestRetryWithoutFailure(t *testing.T) {
	srv := testServer(t, newFakeCaller(), nil)
	result := callTool(t, srv, "retry_with_fallback", `{}`)
	if !result.IsError {
		t.Error("expected error when nothing failed yet")
	}
}

func TestListModels(t *testing.T) {
	srv := testServer(t, newFakeCaller(), nil)
	result := callTool(t, srv, "list_models", `{}`)

	text := result.Content[0].Text
	for _, want := range []string{"alpha", "beta", "available", "* default model"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got: %s", want, text)
		}
	}
}

func TestSetDefaultModel(t *testing.T) {
	caller := newFakeCaller()
	srv := testServer(t, caller, nil)

	result := callTool(t, srv, "set_default_model", `{"model":"beta"}`)
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Content[0].Text)
	}
	if !strings.Contains(result.Content[0].Text, "beta") {
		t.Errorf("expected confirmation, got: %s", result.Content[0].Text)
	}

	// The new default is the first model tried.
	verify := callTool(t, srv, "verify_code",
		`{"code":"x = 1","file_path":"a.py","task_context":"test"}`)
	if !strings.Contains(verify.Content[0].Text, "verdict from beta") {
		t.Errorf("expected beta verdict, got: %s", verify.Content[0].Text)
	}
}

func TestSetDefaultModelUnknown(t *testing.T) {
	srv := testServer(t, newFakeCaller(), nil)
	result := callTool(t, srv, "set_default_model", `{"model":"nope"}`)
	if !result.IsError {
		t.Error("expected error for unknown model")
	}
}

func TestCacheStatsNotConfigured(t *testing.T) {
	srv := testServer(t, newFakeCaller(), nil)
	result := callTool(t, srv, "cache_stats", `{}`)
	if !strings.Contains(result.Content[0].Text, "not configured") {
		t.Errorf("expected 'not configured', got: %s", result.Content[0].Text)
	}
}

func TestCacheStats(t *testing.T) {
	cache := &fakeStatter{stats: models.CacheStats{TotalEntries: 42, Hits: 10, Misses: 5, Evictions: 3}}
	srv := testServer(t, newFakeCaller(), cache)
	result := callTool(t, srv, "cache_stats", `{}`)

	text := result.Content[0].Text
	if !strings.Contains(text, "42") || !strings.Contains(text, "66.7%") {
		t.Errorf("unexpected cache stats output: %s", text)
	}
}

func TestDiagnose(t *testing.T) {
	caller := newFakeCaller()
	caller.script("alpha", authErr())
	srv := testServer(t, caller, nil)

	// Generate one failure so the recent log is non-empty.
	callTool(t, srv, "verify_code",
		`{"code":"x = 1","file_path":"a.py","task_context":"test"}`)

	result := callTool(t, srv, "diagnose", `{}`)
	text := result.Content[0].Text
	for _, want := range []string{"MCP_TEST_KEY_A", "MCP_TEST_KEY_B", "alpha", "permanent", "connected", "call="} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got: %s", want, text)
		}
	}
}

func TestDiagnoseReportsConnectionFailure(t *testing.T) {
	caller := newFakeCaller()
	caller.script("beta", authErr())
	srv := testServer(t, caller, nil)

	result := callTool(t, srv, "diagnose", `{}`)
	text := result.Content[0].Text
	if !strings.Contains(text, "failed: ") || !strings.Contains(text, "401") {
		t.Errorf("expected beta connection failure in output, got: %s", text)
	}
	if !strings.Contains(text, "connected") {
		t.Errorf("expected alpha to report connected, got: %s", text)
	}
}

func TestParseError(t *testing.T) {
	srv := testServer(t, newFakeCaller(), nil)

	var out bytes.Buffer
	if err := srv.Run(context.Background(), strings.NewReader("{not json}\n"), &out); err != nil {
		t.Fatal(err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Errorf("expected parse error, got: %+v", resp.Error)
	}
}
