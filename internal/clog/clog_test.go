package clog

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want LogLevel
	}{
		{"CRITICAL", CRITICAL},
		{"C", CRITICAL},
		{"ERROR", ERROR},
		{"0", ERROR},
		{"WARNING", WARNING},
		{"NOTICE", NOTICE},
		{"INFO", INFO},
		{"DEBUG", DEBUG},
		{"TRACE", TRACE},
		{"T", TRACE},
	}
	for _, c := range cases {
		got, err := ParseLevel(c.in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseLevelInvalid(t *testing.T) {
	if _, err := ParseLevel("bogus"); err == nil {
		t.Error("expected an error for an unrecognized level name")
	}
}

func TestLevelChar(t *testing.T) {
	if got := DEBUG.Char(); got != "D" {
		t.Errorf("DEBUG.Char() = %q, want %q", got, "D")
	}
	if got := LogLevel(99).Char(); got != "?" {
		t.Errorf("unknown level Char() = %q, want %q", got, "?")
	}
}

func TestPackageLoggerGating(t *testing.T) {
	var buf bytes.Buffer
	SetFormatter(NewStringFormatter(&buf))

	p := NewPackageLogger("clogtest")
	p.SetLevel(WARNING)

	if !p.LevelAt(ERROR) {
		t.Error("LevelAt(ERROR) should hold at WARNING level")
	}
	if p.LevelAt(INFO) {
		t.Error("LevelAt(INFO) should not hold at WARNING level")
	}

	p.Infof("this should not appear")
	if buf.Len() != 0 {
		t.Errorf("expected nothing logged below the configured level, got %q", buf.String())
	}

	p.Warningf("disk at %d%%", 90)
	if !strings.Contains(buf.String(), "disk at 90%") {
		t.Errorf("expected formatted message in output, got %q", buf.String())
	}
	if !strings.HasPrefix(buf.String(), "clogtest: ") {
		t.Errorf("expected package name prefix, got %q", buf.String())
	}
}

func TestNewPackageLoggerIsShared(t *testing.T) {
	a := NewPackageLogger("clogtest-shared")
	b := NewPackageLogger("clogtest-shared")
	a.SetLevel(TRACE)
	if !b.LevelAt(TRACE) {
		t.Error("expected SetLevel on one handle to be visible through another handle for the same package")
	}
}

func TestStringFormatterAddsTrailingNewline(t *testing.T) {
	var buf bytes.Buffer
	f := NewStringFormatter(&buf)
	f.Format("pkg", INFO, "no newline here")
	if buf.String() != "pkg: no newline here\n" {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	f.Format("", INFO, "already has one\n")
	if buf.String() != "already has one\n" {
		t.Errorf("got %q", buf.String())
	}
}
