package ux

import (
	"io"
	"os"
	"strings"
	"testing"
)

// captureOutput runs fn with stdout and stderr redirected and returns what
// it printed to each.
func captureOutput(t *testing.T, fn func()) (stdout, stderr string) {
	t.Helper()
	origOut, origErr := os.Stdout, os.Stderr
	outR, outW, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout, os.Stderr = outW, errW
	defer func() { os.Stdout, os.Stderr = origOut, origErr }()

	fn()
	outW.Close()
	errW.Close()
	outBytes, _ := io.ReadAll(outR)
	errBytes, _ := io.ReadAll(errR)
	return string(outBytes), string(errBytes)
}

func TestIconRenderPlain(t *testing.T) {
	SetPlain(true)
	defer SetPlain(false)

	if got := IconSuccess.Render(); got != "✓" {
		t.Errorf("plain Render() = %q, want bare icon", got)
	}
}

func TestIconRenderStyled(t *testing.T) {
	SetPlain(false)
	// Styled output must still contain the glyph whatever the escape codes.
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending, IconArrow} {
		if got := icon.Render(); !strings.Contains(got, string(icon)) {
			t.Errorf("Render() = %q, missing glyph %q", got, string(icon))
		}
	}
}

func TestSetPlainToggle(t *testing.T) {
	SetPlain(true)
	if !Plain() {
		t.Error("Plain() = false after SetPlain(true)")
	}
	SetPlain(false)
	if Plain() {
		t.Error("Plain() = true after SetPlain(false)")
	}
}

func TestBoxPlain(t *testing.T) {
	SetPlain(true)
	defer SetPlain(false)

	stdout, _ := captureOutput(t, func() {
		Box("ollama", "all gpu prerequisite checks passed")
	})
	if stdout != "ollama: all gpu prerequisite checks passed\n" {
		t.Errorf("Box() plain output = %q", stdout)
	}
}

func TestWarningBoxPlain(t *testing.T) {
	SetPlain(true)
	defer SetPlain(false)

	_, stderr := captureOutput(t, func() {
		WarningBox("Destructive operation", "data volumes will be removed")
	})
	if stderr != "WARN Destructive operation: data volumes will be removed\n" {
		t.Errorf("WarningBox() plain output = %q", stderr)
	}
}

func TestBoxStyledContainsContent(t *testing.T) {
	SetPlain(false)

	stdout, _ := captureOutput(t, func() {
		Box("title", "content line")
	})
	if !strings.Contains(stdout, "content line") {
		t.Errorf("Box() styled output missing content: %q", stdout)
	}
}

func TestIndent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"single line", "abc", 2, "  abc"},
		{"multi line", "a\nb", 2, "  a\n  b"},
		{"empty lines untouched", "a\n\nb", 1, " a\n\n b"},
		{"empty string", "", 4, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Indent(tt.in, tt.n); got != tt.want {
				t.Errorf("Indent(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}
