package kit

import (
	"context"
	"errors"
	"testing"
)

func TestChain_Order(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				order = append(order, name+"_before")
				resp, err := next(ctx, req)
				order = append(order, name+"_after")
				return resp, err
			}
		}
	}

	base := func(_ context.Context, _ any) (any, error) {
		order = append(order, "endpoint")
		return "ok", nil
	}

	chained := Chain(mw("a"), mw("b"), mw("c"))(base)
	resp, err := chained(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp != "ok" {
		t.Fatalf("response: got %v", resp)
	}

	expected := []string{"a_before", "b_before", "c_before", "endpoint", "c_after", "b_after", "a_after"}
	if len(order) != len(expected) {
		t.Fatalf("order length: got %d, want %d", len(order), len(expected))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Fatalf("order[%d]: got %q, want %q", i, order[i], v)
		}
	}
}

func TestChain_ErrorPropagation(t *testing.T) {
	errFail := errors.New("fail")
	base := func(_ context.Context, _ any) (any, error) {
		return nil, errFail
	}

	noop := func(next Endpoint) Endpoint { return next }
	chained := Chain(noop)(base)

	_, err := chained(context.Background(), nil)
	if !errors.Is(err, errFail) {
		t.Fatalf("error: got %v, want %v", err, errFail)
	}
}

func TestContext_Transport_Default(t *testing.T) {
	ctx := context.Background()
	if v := GetTransport(ctx); v != "mcp_stdio" {
		t.Fatalf("default transport: got %q, want 'mcp_stdio'", v)
	}
}

func TestContext_Transport_Set(t *testing.T) {
	ctx := WithTransport(context.Background(), "mcp_http")
	if v := GetTransport(ctx); v != "mcp_http" {
		t.Fatalf("transport: got %q", v)
	}
}

func TestContext_RequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req_abc")
	if v := GetRequestID(ctx); v != "req_abc" {
		t.Fatalf("request_id: got %q", v)
	}
}

func TestContext_ToolName(t *testing.T) {
	ctx := WithToolName(context.Background(), "batch_generate_word_document")
	if v := GetToolName(ctx); v != "batch_generate_word_document" {
		t.Fatalf("tool name: got %q", v)
	}
}

func TestContext_EmptyDefaults(t *testing.T) {
	ctx := context.Background()
	if v := GetRequestID(ctx); v != "" {
		t.Fatalf("request_id default: got %q", v)
	}
	if v := GetSessionID(ctx); v != "" {
		t.Fatalf("session_id default: got %q", v)
	}
	if v := GetToolName(ctx); v != "" {
		t.Fatalf("tool_name default: got %q", v)
	}
}

func TestContextTags(t *testing.T) {
	ctx := context.Background()

	if got := GetTransport(ctx); got != "mcp_stdio" {
		t.Errorf("default transport = %q, want mcp_stdio", got)
	}
	if got := GetRequestID(ctx); got != "" {
		t.Errorf("default request id = %q, want empty", got)
	}

	ctx = WithTransport(ctx, "mcp_http")
	ctx = WithRequestID(ctx, "req_1")
	ctx = WithSessionID(ctx, "sess_9")
	ctx = WithToolName(ctx, "process_file")

	if got := GetTransport(ctx); got != "mcp_http" {
		t.Errorf("transport = %q", got)
	}
	if got := GetRequestID(ctx); got != "req_1" {
		t.Errorf("request id = %q", got)
	}
	if got := GetSessionID(ctx); got != "sess_9" {
		t.Errorf("session id = %q", got)
	}
	if got := GetToolName(ctx); got != "process_file" {
		t.Errorf("tool name = %q", got)
	}
}
