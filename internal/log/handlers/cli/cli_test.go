package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/apex/log"
	"github.com/fatih/color"
)

func TestEscapeAwareRuneCountInString(t *testing.T) {
	var bold = color.New(color.Bold)
	var myColor = color.New(color.FgBlue)

	s := myColor.Sprintf("•ABC%s%s", bold.Sprintf("DEF"), "\x1B[00;38;5;244m\x1B[m\x1B[00;38;5;33mGHI\x1B[0m")
	count := EscapeAwareRuneCountInString(s)
	if count != 10 {
		t.Errorf("Count was incorrect, got: %d, want: %d.", count, 10)
	}
}

func TestRightPad(t *testing.T) {
	if s := RightPad("tor", 6); s != "tor   " {
		t.Fatalf("unexpected string: %q", s)
	}
	if s := RightPad("torch", 2); s != "torch" {
		t.Fatalf("unexpected string: %q", s)
	}
}

func TestHandler(t *testing.T) {
	t.Run("default log", func(t *testing.T) {
		w := &bytes.Buffer{}
		logger := &log.Logger{Handler: New(w), Level: log.DebugLevel}
		logger.WithField("pid", 1234).Info("launcher: tor child process")
		out := w.String()
		if !strings.Contains(out, "launcher: tor child process") {
			t.Fatal("missing message", out)
		}
		if !strings.Contains(out, "pid") || !strings.Contains(out, "1234") {
			t.Fatal("missing field", out)
		}
	})

	t.Run("table log", func(t *testing.T) {
		w := &bytes.Buffer{}
		logger := &log.Logger{Handler: New(w), Level: log.DebugLevel}
		logger.WithFields(log.Fields{
			"type":     "table",
			"strategy": "forked",
			"version":  "tor 0.4.8.13",
		}).Info("summary")
		out := w.String()
		if !strings.HasPrefix(out, "┏") {
			t.Fatal("expected a table", out)
		}
		if strings.Contains(out, "type") {
			t.Fatal("the type field should not be printed", out)
		}
		if !strings.Contains(out, "tor 0.4.8.13") {
			t.Fatal("missing version", out)
		}
	})
}
