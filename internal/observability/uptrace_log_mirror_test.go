package observability

import (
	"errors"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
)

func TestShouldSkipUptraceLog(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		args []any
		want bool
	}{
		{name: "health probe", msg: "http request", args: []any{"method", "GET", "path", "/healthz"}, want: true},
		{name: "api request", msg: "http request", args: []any{"path", "/v1/franchises"}, want: false},
		{name: "duplicate inbox message", msg: "skip duplicate inbox message", want: true},
		{name: "path on another event", msg: "outbox relay pass finished", args: []any{"path", "/healthz"}, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := shouldSkipUptraceLog(tc.msg, tc.args); got != tc.want {
				t.Fatalf("shouldSkipUptraceLog()=%v want %v", got, tc.want)
			}
		})
	}
}

func TestBuildOTelLogAttributes(t *testing.T) {
	attrs := buildOTelLogAttributes([]any{"document_type", "team-season", "attempt", uint8(2), "published", int32(5), "payload"})
	if len(attrs) != 4 {
		t.Fatalf("expected 4 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "document_type" || attrs[0].Value.AsString() != "team-season" {
		t.Fatalf("unexpected document_type attribute")
	}
	if attrs[1].Value.AsInt64() != 2 || attrs[2].Value.AsInt64() != 5 {
		t.Fatalf("unexpected numeric attributes")
	}
	if attrs[3].Key != "payload" || attrs[3].Value.Kind() != otellog.KindEmpty {
		t.Fatalf("unexpected payload attribute")
	}
}

func TestToOTelLogValue(t *testing.T) {
	v := toOTelLogValue(map[string]any{
		"claimed":   3,
		"published": []int{1, 2},
		"elapsed":   1500 * time.Millisecond,
	}, 0)
	if v.Kind() != otellog.KindMap {
		t.Fatalf("expected map value, got %s", v.Kind())
	}
	items := v.AsMap()
	if len(items) != 3 || items[0].Key != "claimed" || items[1].Value.AsString() != "1.5s" {
		t.Fatalf("unexpected map items %v", items)
	}
	if got := toOTelLogValue(errors.New("boom"), 0).AsString(); got != "boom" {
		t.Fatalf("unexpected error value %q", got)
	}
	var missing *int
	if toOTelLogValue(missing, 0).Kind() != otellog.KindEmpty {
		t.Fatalf("expected nil pointer to be empty")
	}
}
