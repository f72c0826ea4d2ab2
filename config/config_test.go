package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
[kernel]
tick_hz = 250
time_slice = 4

[tasks.pingpong]
enabled = false
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if c.Kernel.TickHz != 250 || c.Kernel.TimeSlice != 4 {
		t.Fatalf("kernel = %+v, want tick_hz 250, time_slice 4", c.Kernel)
	}
	if c.Kernel.Priorities != Default().Kernel.Priorities {
		t.Fatalf("priorities = %d, want default %d", c.Kernel.Priorities, Default().Kernel.Priorities)
	}
	if c.Tasks.PingPong.Enabled {
		t.Fatal("tasks.pingpong.enabled = true, want false")
	}
	if !c.Tasks.Blinky.Enabled {
		t.Fatal("tasks.blinky.enabled = false, want default true")
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		invalid bool
	}{
		{"unknown key", "[kernel]\nturbo = true\n", false},
		{"bad syntax", "[kernel\n", false},
		{"zero tick rate", "[kernel]\ntick_hz = 0\n", true},
		{"priority out of range", "[logger]\npriority = 16\n", true},
		{"idle priority", "[tasks.sigdemo]\npriority = 0\n", true},
		{"inherit too low", "[tasks.inherit]\npriority = 2\n", true},
		{"monitor without period", "[monitor]\nperiod_ticks = 0\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse() error = nil, want error")
			}
			if got := errors.Is(err, ErrInvalid); got != tt.invalid {
				t.Fatalf("errors.Is(%v, ErrInvalid) = %v, want %v", err, got, tt.invalid)
			}
		})
	}
}

func TestDisabledTaskIsNotValidated(t *testing.T) {
	c := Default()
	c.Tasks.SigDemo = Task{}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestEncodeLoadRoundTrip(t *testing.T) {
	c := Default()
	c.Kernel.TickHz = 500
	c.Host.Headless = true

	data, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !strings.Contains(string(data), "tick_hz = 500") {
		t.Fatalf("Encode() output lacks tick_hz:\n%s", data)
	}

	path := filepath.Join(t.TempDir(), "ember.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != c {
		t.Fatalf("Load() = %+v, want %+v", got, c)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load() error = %v, want os.ErrNotExist", err)
	}
}
