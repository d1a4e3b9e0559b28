// Package commands is the control-thread module that sends the configured
// window setup to the presentation device.
package commands

import (
	"errors"

	"github.com/specialistvlad/tricore/internal/channels"
	"github.com/specialistvlad/tricore/internal/config"
	"github.com/specialistvlad/tricore/internal/device"
	"github.com/specialistvlad/tricore/internal/kernel"
	"github.com/specialistvlad/tricore/internal/lifecycle"
	"github.com/specialistvlad/tricore/internal/metadata"
	"github.com/specialistvlad/tricore/internal/services"
	"github.com/specialistvlad/tricore/internal/threadctx"
)

// Key is the module key used in configuration.
const Key = "commands"

// Target is the device target the startup commands address.
const Target = "window"

// Module declares the commands module.
var Module = metadata.Declare(metadata.Options[Commands]{
	Key:      Key,
	Affinity: lifecycle.Control,
	New:      New,
})

// Settings are read from the module's configuration block.
type Settings struct {
	Title string `cty:"title"`
}

// Commands enqueues a resize for the configured device size and a title
// command when the control kernel starts.
type Commands struct {
	settings Settings
	queue    *channels.ControlQueue[string, device.Command]
	sent     int
}

// New decodes settings.
func New(tc *threadctx.Context) (*Commands, error) {
	c := &Commands{settings: Settings{Title: "tricore"}}
	if err := config.DecodeModule(tc.Services(), Key, &c.settings); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Commands) Load(tc *threadctx.Context) error {
	links, err := services.Get[*kernel.Links](tc.Services())
	if err != nil {
		return err
	}
	c.queue = links.Commands
	return nil
}

func (c *Commands) Start(tc *threadctx.Context) error {
	var pending []device.Command
	if m, ok := services.TryGet[*config.Model](tc.Services()); ok && m.Device.Width > 0 && m.Device.Height > 0 {
		pending = append(pending, device.Command{
			Kind: device.CommandResize, Target: Target, Width: m.Device.Width, Height: m.Device.Height,
		})
	}
	if c.settings.Title != "" {
		pending = append(pending, device.Command{Kind: device.CommandTitle, Target: Target, Text: c.settings.Title})
	}

	for _, cmd := range pending {
		err := c.queue.Enqueue(cmd)
		if errors.Is(err, channels.ErrQueueFull) {
			tc.Logger().Warn("Control queue full, dropping command.", "command", cmd.Key())
			continue
		}
		if err != nil {
			return err
		}
		c.sent++
	}
	tc.Logger().Debug("Startup commands queued.", "count", c.sent)
	return nil
}

// Sent returns how many commands were queued.
func (c *Commands) Sent() int { return c.sent }
