package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/specialistvlad/tricore/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, exit, err := Parse(nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, &app.Config{LogFormat: "text", LogLevel: "info"}, cfg)
}

func TestParse_AllFlags(t *testing.T) {
	cfg, _, err := Parse([]string{
		"-role", "SERVER",
		"-tick-rate", "120",
		"-duration", "3s",
		"-device", "socketio",
		"-device-url", "http://localhost:9000",
		"-healthcheck-port", "8080",
		"-log-format", "JSON",
		"-log-level", "debug",
		"runtime.hcl",
	}, &bytes.Buffer{})
	require.NoError(t, err)

	want := &app.Config{
		ConfigPath:      "runtime.hcl",
		Role:            "server",
		TickRate:        120,
		Device:          "socketio",
		DeviceURL:       "http://localhost:9000",
		HealthcheckPort: 8080,
		Duration:        3 * time.Second,
		LogFormat:       "json",
		LogLevel:        "debug",
	}
	assert.Equal(t, want, cfg)
}

func TestParse_ConfigFlagShorthand(t *testing.T) {
	cfg, _, err := Parse([]string{"-c", "rt.yaml"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "rt.yaml", cfg.ConfigPath)
}

func TestParse_Help(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse([]string{"-h"}, out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "CONFIG_PATH")
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"-nope"}, "flag provided but not defined"},
		{"bad log format", []string{"-log-format", "xml"}, "invalid log-format"},
		{"bad log level", []string{"-log-level", "trace"}, "invalid log-level"},
		{"bad role", []string{"-role", "observer"}, `unknown role "observer"`},
		{"negative tick rate", []string{"-tick-rate", "-5"}, "tick rate"},
		{"two paths", []string{"a.hcl", "b.hcl"}, "at most one"},
		{"flag and argument", []string{"-config", "a.hcl", "b.hcl"}, "both as a flag"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, exit, err := Parse(tc.args, &bytes.Buffer{})
			assert.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}
