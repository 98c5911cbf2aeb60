// Package console runs the assistant in a terminal. Each input line is one
// utterance; effects are printed instead of spoken or opened.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/MrWong99/shifra/internal/observe"
	"github.com/MrWong99/shifra/pkg/capability"
)

// Commands handles utterances.
type Commands interface {
	HandleCommand(ctx context.Context, text string) string
}

// Compile-time interface checks.
var (
	_ capability.Speaker          = (*Printer)(nil)
	_ capability.Notifier         = (*Printer)(nil)
	_ capability.Opener           = (*Printer)(nil)
	_ capability.FallbackRenderer = (*Printer)(nil)
)

// Printer writes capability calls to w, one line each.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Set returns a capability.Set backed by p.
func (p *Printer) Set() capability.Set {
	return capability.Set{Speaker: p, Notifier: p, Opener: p, Renderer: p}
}

func (p *Printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Printer) Speak(_ context.Context, u capability.Utterance) {
	p.printf("shifra> %s", u.Text)
}

func (p *Printer) Notify(_ context.Context, title, body string) {
	p.printf("[%s] %s", title, body)
}

func (p *Printer) Open(_ context.Context, url string, _ bool) {
	p.printf("open: %s", url)
}

func (p *Printer) RenderFallback(_ context.Context, label string, urls []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "links for %q:\n", label)
	for i, u := range urls {
		fmt.Fprintf(p.w, "  %d. %s\n", i+1, u)
	}
}

// Run reads utterances from r until EOF or ctx is cancelled. Blank lines are
// skipped; "exit" and "quit" end the loop.
func Run(ctx context.Context, r io.Reader, cmds Commands) error {
	ctx, cancel := context.WithCancel(observe.ContextWithSource(ctx, "console"))
	defer cancel()

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-errc; err != nil {
					return fmt.Errorf("console: read input: %w", err)
				}
				return nil
			}
			line = strings.TrimSpace(line)
			switch strings.ToLower(line) {
			case "":
				continue
			case "exit", "quit":
				slog.Info("console: exit requested")
				return nil
			}
			cmds.HandleCommand(ctx, line)
		}
	}
}
