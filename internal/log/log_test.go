package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Output: &buf, Prefix: "test"})

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	l.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") {
		t.Error("debug message should be filtered at warn level")
	}
	if strings.Contains(out, "info message") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "warn message") {
		t.Error("warn message should pass at warn level")
	}
	if !strings.Contains(out, "error message") {
		t.Error("error message should pass at warn level")
	}
}

func TestFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf})

	l.WithField("session", "abc123").Info("opened")

	out := buf.String()
	if !strings.Contains(out, "session=abc123") {
		t.Errorf("output missing field, got: %s", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf})

	l.WithComponent("pty").Error("spawn failed")

	out := buf.String()
	if !strings.Contains(out, "component=pty") {
		t.Errorf("output missing component field, got: %s", out)
	}
	if !strings.Contains(out, "[ERROR]") {
		t.Errorf("output missing level tag, got: %s", out)
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(Config{Level: LevelDebug, Output: &buf})
	_ = parent.WithField("child", true)

	parent.Info("plain")

	if strings.Contains(buf.String(), "child=") {
		t.Error("parent logger picked up child field")
	}
}

func TestFormatArgs(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf, Prefix: "ox"})

	l.Info("resized to %dx%d", 30, 100)

	if !strings.Contains(buf.String(), "resized to 30x100") {
		t.Errorf("format args not applied, got: %s", buf.String())
	}
}

func TestNullDiscards(t *testing.T) {
	// Must not panic, must not write anywhere.
	Null.Debug("x")
	Null.Info("x")
	Null.Warn("x")
	Null.Error("x")
	Null.WithField("k", "v").Error("x")
}
