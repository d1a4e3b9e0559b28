package device

import (
	"context"

	"github.com/faiface/mainthread"
)

// mainThreadDevice forwards every call to the process main thread.
type mainThreadDevice struct {
	d Device
}

// OnMainThread wraps d so its methods run on the main OS thread, for
// backends that must be driven from there. The process must be running
// inside mainthread.Run, otherwise calls block forever.
func OnMainThread(d Device) Device {
	return &mainThreadDevice{d: d}
}

func (m *mainThreadDevice) Present(ctx context.Context, f Frame) error {
	return mainthread.CallErr(func() error { return m.d.Present(ctx, f) })
}

func (m *mainThreadDevice) Apply(c Command) error {
	return mainthread.CallErr(func() error { return m.d.Apply(c) })
}

func (m *mainThreadDevice) Close() error {
	return mainthread.CallErr(m.d.Close)
}
