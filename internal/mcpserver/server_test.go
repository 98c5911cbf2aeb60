package mcpserver_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/shifra/internal/alarm"
	clockmock "github.com/MrWong99/shifra/internal/alarm/mock"
	"github.com/MrWong99/shifra/internal/interpreter"
	"github.com/MrWong99/shifra/internal/mcpserver"
	"github.com/MrWong99/shifra/internal/observe"
	capmock "github.com/MrWong99/shifra/pkg/capability/mock"
	kvmock "github.com/MrWong99/shifra/pkg/kv/mock"
)

var epoch = time.Date(2026, 3, 14, 10, 15, 0, 0, time.UTC)

type fixture struct {
	rec     *capmock.Recorder
	sched   *alarm.Scheduler
	server  *mcpserver.Server
	session *mcp.ClientSession
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	metrics, err := observe.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader())))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	clk := clockmock.NewClock(epoch)
	rec := &capmock.Recorder{}
	sched := alarm.NewScheduler(alarm.NewRepository(kvmock.New()), rec.Set(),
		alarm.WithClock(clk), alarm.WithMetrics(metrics))
	t.Cleanup(sched.Stop)
	interp := interpreter.New(rec.Set(), sched,
		interpreter.WithClock(clk.Now),
		interpreter.WithLocation(time.UTC),
		interpreter.WithMetrics(metrics),
	)
	srv := mcpserver.New(interp, rec.Set(), sched, "test", mcpserver.WithLocation(time.UTC))

	ct, st := mcp.NewInMemoryTransports()
	if _, err := srv.MCP().Connect(ctx, st, nil); err != nil {
		t.Fatalf("server Connect: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client Connect: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })

	return &fixture{rec: rec, sched: sched, server: srv, session: session}
}

func call[T any](t *testing.T, s *mcp.ClientSession, name string, args map[string]any) (T, string) {
	t.Helper()
	var out T
	res, err := s.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if res.IsError {
		t.Fatalf("CallTool(%s) returned a tool error: %+v", name, res.Content)
	}
	raw, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode structured content %s: %v", raw, err)
	}
	var text string
	if len(res.Content) > 0 {
		if tc, ok := res.Content[0].(*mcp.TextContent); ok {
			text = tc.Text
		}
	}
	return out, text
}

func TestTools_Listed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	var names []string
	for tool, err := range f.session.Tools(context.Background(), nil) {
		if err != nil {
			t.Fatalf("Tools: %v", err)
		}
		names = append(names, tool.Name)
	}
	want := []string{"handle_command", "list_alarms", "resolve_destination"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("tools mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleCommand_OpenSite(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	out, text := call[mcpserver.CommandOutput](t, f.session, "handle_command", map[string]any{"text": "open example.com"})

	want := mcpserver.CommandOutput{
		Rule:     interpreter.RuleOpenSite,
		Spoken:   []string{"Opening example.com"},
		Opened:   []string{"https://example.com"},
		Fallback: []string{"https://example.com", "https://www.google.com/search?q=example.com"},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if text != "Opening example.com" {
		t.Errorf("text = %q", text)
	}

	// The regular capabilities still see the effects.
	if got := f.rec.Opened(); len(got) != 1 || got[0] != "https://example.com" {
		t.Errorf("recorder opened %v", got)
	}
}

func TestHandleCommand_SetAlarmThenList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	out, _ := call[mcpserver.CommandOutput](t, f.session, "handle_command", map[string]any{"text": "set alarm in 10 minutes for tea"})
	if out.Rule != interpreter.RuleSetAlarm {
		t.Fatalf("rule = %q, want %q", out.Rule, interpreter.RuleSetAlarm)
	}

	list, text := call[mcpserver.ListAlarmsOutput](t, f.session, "list_alarms", map[string]any{})
	if len(list.Alarms) != 1 {
		t.Fatalf("alarms = %+v, want one", list.Alarms)
	}
	a := list.Alarms[0]
	if a.When != "2026-03-14T10:25:00Z" || a.Label != "tea" {
		t.Errorf("alarm = %+v", a)
	}
	if a.ID != f.sched.List()[0].ID {
		t.Errorf("id = %d, want %d", a.ID, f.sched.List()[0].ID)
	}
	if text != "1 alarm pending." {
		t.Errorf("text = %q", text)
	}
}

func TestListAlarms_Empty(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	list, text := call[mcpserver.ListAlarmsOutput](t, f.session, "list_alarms", map[string]any{})
	if len(list.Alarms) != 0 || text != "No alarms set." {
		t.Errorf("got %+v / %q", list, text)
	}
}

func TestResolveDestination_NoSideEffects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	out, text := call[mcpserver.ResolveOutput](t, f.session, "resolve_destination", map[string]any{"phrase": "play lofi beats on spotify"})

	if out.Kind != "service" {
		t.Errorf("kind = %q, want service", out.Kind)
	}
	if len(out.Candidates) == 0 || text != out.Candidates[0] {
		t.Errorf("text %q does not match primary of %v", text, out.Candidates)
	}
	if calls := f.rec.Calls(); len(calls) != 0 {
		t.Errorf("resolve_destination produced effects: %+v", calls)
	}
}

func TestHandler_ServesStreamableHTTP(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	srv := httptest.NewServer(f.server.Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := mcp.NewClient(&mcp.Implementation{Name: "http-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: srv.URL}, nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "handle_command", Arguments: map[string]any{"text": "hello"}})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if tc, ok := res.Content[0].(*mcp.TextContent); !ok || tc.Text != interpreter.ReplyHello {
		t.Errorf("content = %+v, want hello reply", res.Content)
	}
}
