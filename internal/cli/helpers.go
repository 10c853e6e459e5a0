package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/taskup/internal/presentation/tui"
	"github.com/aretw0/taskup/pkg/ports"
	"github.com/muesli/termenv"
)

// SignalContext is cancelled on SIGINT or SIGTERM and remembers the signal.
type SignalContext struct {
	context.Context
	Cancel func()

	mu  sync.Mutex
	sig os.Signal
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{Context: ctx, Cancel: cancel}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			sc.mu.Lock()
			sc.sig = sig
			sc.mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()
	return sc
}

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sig
}

// ConsoleNotifier prints notices to w, colored by kind when w is a terminal.
func ConsoleNotifier(w io.Writer) ports.Notifier {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	colors := map[ports.NoticeKind]string{
		ports.NoticeSuccess: "#22c55e",
		ports.NoticeInfo:    "#38bdf8",
		ports.NoticeWarning: "#f59e0b",
		ports.NoticeError:   "#ef4444",
	}
	return ports.NotifierFunc(func(kind ports.NoticeKind, message string) {
		tag := out.String(fmt.Sprintf("[%s]", kind)).Foreground(p.Color(colors[kind])).Bold()
		fmt.Fprintf(w, "%s %s\n", tag, message)
	})
}

// printMarkdown renders md and writes it to w.
func printMarkdown(w io.Writer, render tui.Renderer, md string) error {
	if render == nil {
		render = tui.Plain
	}
	out, err := render(md)
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
