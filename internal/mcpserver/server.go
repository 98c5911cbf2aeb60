// Package mcpserver exposes the assistant to MCP clients over streamable
// HTTP.
//
// Three tools are registered:
//
//   - handle_command runs an utterance through the interpreter exactly as if
//     it had been spoken and reports what the assistant said and opened
//   - resolve_destination previews where a phrase would navigate, without
//     side effects
//   - list_alarms returns the pending alarms
package mcpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/shifra/internal/alarm"
	"github.com/MrWong99/shifra/internal/interpreter"
	"github.com/MrWong99/shifra/internal/observe"
	"github.com/MrWong99/shifra/internal/resolver"
	"github.com/MrWong99/shifra/pkg/capability"
)

// Alarms lists pending alarms.
type Alarms interface {
	List() []alarm.Alarm
}

// Server wraps an MCP server bound to one interpreter.
type Server struct {
	srv    *mcp.Server
	interp *interpreter.Interpreter
	caps   capability.Set
	alarms Alarms
	loc    *time.Location
}

// Option configures a [Server].
type Option func(*Server)

// WithLocation sets the zone alarm times are reported in. Defaults to
// time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) { s.loc = loc }
}

// New registers the tools. Effects of handle_command go to caps in addition
// to being captured for the tool result; pass the capabilities the
// interpreter normally uses so connected browsers still react.
func New(interp *interpreter.Interpreter, caps capability.Set, alarms Alarms, version string, opts ...Option) *Server {
	s := &Server{
		srv:    mcp.NewServer(&mcp.Implementation{Name: "shifra", Version: version}, nil),
		interp: interp,
		caps:   caps,
		alarms: alarms,
		loc:    time.Local,
	}
	for _, o := range opts {
		o(s)
	}

	mcp.AddTool(s.srv, &mcp.Tool{
		Name:        "handle_command",
		Description: "Run a spoken-style command such as \"set alarm in 5 minutes\" or \"open github\" and report what the assistant did.",
	}, s.handleCommand)
	mcp.AddTool(s.srv, &mcp.Tool{
		Name:        "resolve_destination",
		Description: "Show which URLs a phrase such as \"play lofi on spotify\" would open, without opening them.",
	}, s.resolveDestination)
	mcp.AddTool(s.srv, &mcp.Tool{
		Name:        "list_alarms",
		Description: "List pending alarms in creation order.",
	}, s.listAlarms)
	return s
}

// MCP returns the underlying server, for callers that connect their own
// transport.
func (s *Server) MCP() *mcp.Server { return s.srv }

// Handler returns the streamable HTTP endpoint.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.srv }, nil)
}

// CommandInput is the argument of handle_command.
type CommandInput struct {
	Text string `json:"text" jsonschema:"the utterance to interpret"`
}

// CommandOutput reports the effects of one command.
type CommandOutput struct {
	Rule     string   `json:"rule"`
	Spoken   []string `json:"spoken"`
	Opened   []string `json:"opened,omitempty"`
	Fallback []string `json:"fallback,omitempty"`
}

func (s *Server) handleCommand(ctx context.Context, _ *mcp.CallToolRequest, in CommandInput) (*mcp.CallToolResult, CommandOutput, error) {
	rec := &capture{}
	interp := s.interp.WithCapabilities(capability.Join(s.caps, rec.set()))

	rule := interp.HandleCommand(observe.ContextWithSource(ctx, "mcp"), in.Text)
	out := rec.output(rule)
	return textResult(joinSpoken(out.Spoken)), out, nil
}

// ResolveInput is the argument of resolve_destination.
type ResolveInput struct {
	Phrase string `json:"phrase" jsonschema:"the destination phrase, for example \"open github\""`
}

// ResolveOutput describes a resolution.
type ResolveOutput struct {
	Kind         string   `json:"kind"`
	Cleaned      string   `json:"cleaned"`
	Label        string   `json:"label,omitempty"`
	Candidates   []string `json:"candidates"`
	Announcement string   `json:"announcement,omitempty"`
}

func (s *Server) resolveDestination(_ context.Context, _ *mcp.CallToolRequest, in ResolveInput) (*mcp.CallToolResult, ResolveOutput, error) {
	res := resolver.Resolve(in.Phrase)
	out := ResolveOutput{
		Kind:         res.Kind.String(),
		Cleaned:      res.Cleaned,
		Label:        res.Label,
		Candidates:   res.Candidates,
		Announcement: res.Announcement,
	}
	if out.Candidates == nil {
		out.Candidates = []string{}
	}
	summary := res.Announcement
	if p := res.Primary(); p != "" {
		summary = p
	}
	return textResult(summary), out, nil
}

// ListAlarmsInput is the empty argument of list_alarms.
type ListAlarmsInput struct{}

// AlarmView is one alarm as reported to MCP clients.
type AlarmView struct {
	ID    int64  `json:"id"`
	When  string `json:"when"`
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// ListAlarmsOutput is the result of list_alarms.
type ListAlarmsOutput struct {
	Alarms []AlarmView `json:"alarms"`
}

func (s *Server) listAlarms(_ context.Context, _ *mcp.CallToolRequest, _ ListAlarmsInput) (*mcp.CallToolResult, ListAlarmsOutput, error) {
	pending := s.alarms.List()
	out := ListAlarmsOutput{Alarms: make([]AlarmView, 0, len(pending))}
	for _, a := range pending {
		out.Alarms = append(out.Alarms, AlarmView{
			ID:    a.ID,
			When:  a.Time().In(s.loc).Format(time.RFC3339),
			Label: a.Label,
			URL:   a.URL,
		})
	}
	summary := "No alarms set."
	if n := len(out.Alarms); n == 1 {
		summary = "1 alarm pending."
	} else if n > 1 {
		summary = strconv.Itoa(n) + " alarms pending."
	}
	return textResult(summary), out, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}
