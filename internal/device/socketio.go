package device

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/specialistvlad/tricore/internal/ctxlog"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Events emitted by the socket.io mirror.
const (
	EventFrame   = "frame"
	EventCommand = "command"
)

// wireFrame is the msgpack payload of a frame event.
type wireFrame struct {
	Number  uint64       `msgpack:"n"`
	Version uint64       `msgpack:"v"`
	Sim     uint64       `msgpack:"sim"`
	Input   uint64       `msgpack:"in"`
	Bodies  [][3]float64 `msgpack:"b"`
	Lines   []string     `msgpack:"l,omitempty"`
}

func encodeFrame(f Frame) ([]byte, error) {
	w := wireFrame{
		Number:  f.Number,
		Version: f.Version,
		Sim:     f.Scene.Frame,
		Input:   f.Scene.Input,
		Bodies:  make([][3]float64, len(f.Scene.Bodies)),
		Lines:   f.Lines,
	}
	for i, b := range f.Scene.Bodies {
		w.Bodies[i] = [3]float64{b.Position.X, b.Position.Y, b.Position.Z}
	}
	return msgpack.Marshal(&w)
}

// SocketIO mirrors presented frames to a socket.io server. Frames are sent
// as volatile events: while disconnected they are dropped, never queued.
type SocketIO struct {
	io        *socket.Socket
	connected atomic.Bool
	sent      atomic.Uint64
}

// DialSocketIO starts connecting to rawURL, whose path selects the namespace
// endpoint. It does not wait for the connection to come up.
func DialSocketIO(ctx context.Context, rawURL string) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("device", KindSocketIO, "url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("device URL %q needs a scheme and host", rawURL)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	namespace := parsedURL.Path
	if namespace == "" {
		namespace = "/"
	}
	d := &SocketIO{io: manager.Socket(namespace, opts)}

	d.io.On(types.EventName("connect"), func(...any) {
		d.connected.Store(true)
		logger.Info("Frame mirror connected", "sid", d.io.Id())
	})
	d.io.On(types.EventName("disconnect"), func(...any) {
		d.connected.Store(false)
		logger.Warn("Frame mirror disconnected")
	})
	d.io.On(types.EventName("connect_error"), func(errs ...any) {
		logger.Warn("Frame mirror connection failed", "error", errs)
	})

	d.io.Connect()
	return d, nil
}

func (d *SocketIO) Present(_ context.Context, f Frame) error {
	if !d.connected.Load() {
		return nil
	}
	payload, err := encodeFrame(f)
	if err != nil {
		return fmt.Errorf("encoding frame %d: %w", f.Number, err)
	}
	if err := d.io.Volatile().Emit(EventFrame, payload); err != nil {
		return fmt.Errorf("emitting frame %d: %w", f.Number, err)
	}
	d.sent.Add(1)
	return nil
}

func (d *SocketIO) Apply(c Command) error {
	payload, err := msgpack.Marshal(&c)
	if err != nil {
		return fmt.Errorf("encoding command %s: %w", c.Key(), err)
	}
	return d.io.Emit(EventCommand, payload)
}

func (d *SocketIO) Close() error {
	d.io.Disconnect()
	return nil
}

// Sent returns how many frames were emitted.
func (d *SocketIO) Sent() uint64 { return d.sent.Load() }
