// Package device is the boundary to the graphics backend. The presentation
// kernel drives a Device synchronously, once per frame, after it has read the
// scene snapshot for that frame.
package device

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/specialistvlad/tricore/internal/scene"
)

// Frame is everything the backend needs to draw one frame.
type Frame struct {
	Number uint64
	// Version is the snapshot port version Scene was read at.
	Version uint64
	Scene   scene.Snapshot
	Lines   []string
}

// Command kinds understood by the built-in devices.
const (
	CommandResize = "resize"
	CommandTitle  = "title"
)

// Command is a control request for the backend. Commands with the same Key
// coalesce while queued.
type Command struct {
	Kind   string
	Target string
	Width  int
	Height int
	Text   string
}

// Key returns the coalescing key: kind and target.
func (c Command) Key() string { return c.Kind + ":" + c.Target }

// Device is a graphics backend. All methods are called from the presentation
// thread only.
type Device interface {
	Present(ctx context.Context, f Frame) error
	Apply(c Command) error
	Close() error
}

// Kinds of device Open can create.
const (
	KindNull     = "null"
	KindTerminal = "terminal"
	KindSocketIO = "socketio"
)

// Options configure Open.
type Options struct {
	Kind   string
	URL    string
	Out    io.Writer
	Width  int
	Height int
}

// Open creates the device named by opts.Kind.
func Open(ctx context.Context, opts Options) (Device, error) {
	switch opts.Kind {
	case "", KindNull:
		return &Null{}, nil
	case KindTerminal:
		return NewTerminal(opts.Out, opts.Width), nil
	case KindSocketIO:
		return DialSocketIO(ctx, opts.URL)
	}
	return nil, fmt.Errorf("unknown device kind %q", opts.Kind)
}

// Canvas collects the text lines modules want drawn on the current frame.
// It belongs to the presentation thread and is reset every frame.
type Canvas struct {
	lines []string
}

// Printf adds a line.
func (c *Canvas) Printf(format string, args ...any) {
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}

// Lines returns a copy of the collected lines.
func (c *Canvas) Lines() []string {
	return append([]string(nil), c.lines...)
}

// Reset drops every line.
func (c *Canvas) Reset() { c.lines = c.lines[:0] }

// Null is a device that draws nothing and remembers what it was given. It is
// safe to inspect from other goroutines.
type Null struct {
	mu       sync.Mutex
	frames   uint64
	last     Frame
	commands []Command
	closed   bool
}

func (n *Null) Present(_ context.Context, f Frame) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.frames++
	n.last = f
	return nil
}

func (n *Null) Apply(c Command) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.commands = append(n.commands, c)
	return nil
}

func (n *Null) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

// Frames returns how many frames were presented.
func (n *Null) Frames() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.frames
}

// Last returns the most recently presented frame.
func (n *Null) Last() Frame {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

// Commands returns the applied commands in order.
func (n *Null) Commands() []Command {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Command(nil), n.commands...)
}

// Closed reports whether Close was called.
func (n *Null) Closed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}
