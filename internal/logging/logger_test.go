package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerDefaults(t *testing.T) {
	logger := NewLogger(nil)
	if logger == nil {
		t.Fatal("NewLogger(nil) returned nil")
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	logger.Debug("debug message")
	logger.Info("info message")
	if buf.Len() != 0 {
		t.Errorf("expected debug/info to be filtered out, got: %s", buf.String())
	}

	logger.Warn("warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Errorf("expected warn message to appear, got: %s", buf.String())
	}
}

func TestLoggerFormatArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	logger.Info("tick", "cycle", 42, "busy", true)
	output := buf.String()
	if !strings.Contains(output, "cycle=42") || !strings.Contains(output, "busy=true") {
		t.Errorf("expected key=value pairs in output, got: %s", output)
	}
}

func TestNamedLoggersAreIndependentlyLeveled(t *testing.T) {
	var gluonBuf, muonBuf bytes.Buffer
	gluon := Named("gluon-test")
	muon := Named("muon-test")
	gluon.SetOutput(&gluonBuf)
	muon.SetOutput(&muonBuf)
	gluon.SetLevel(LevelDebug)
	muon.SetLevel(LevelError)

	gluon.Debug("orchestrator detail")
	muon.Debug("execution detail")

	if !strings.Contains(gluonBuf.String(), "orchestrator detail") {
		t.Errorf("expected gluon logger to emit at debug level, got: %s", gluonBuf.String())
	}
	if muonBuf.Len() != 0 {
		t.Errorf("expected muon logger to suppress debug, got: %s", muonBuf.String())
	}
}

func TestNamedReturnsSameInstance(t *testing.T) {
	a := Named("same")
	b := Named("same")
	if a != b {
		t.Error("expected Named to return the same instance for repeated calls with the same name")
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	cases := []struct {
		v    uint64
		want LogLevel
	}{
		{0, LevelError},
		{1, LevelWarn},
		{2, LevelInfo},
		{3, LevelDebug},
		{100, LevelDebug},
	}
	for _, c := range cases {
		if got := LevelFromVerbosity(c.v); got != c.want {
			t.Errorf("LevelFromVerbosity(%d) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))

	Debug("debug message")
	if !strings.Contains(buf.String(), "debug message") {
		t.Errorf("expected debug message, got: %s", buf.String())
	}

	buf.Reset()
	Error("error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Errorf("expected error message, got: %s", buf.String())
	}
}
