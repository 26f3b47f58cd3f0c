package prompt

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestInteractiveConfirmerApprove(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"exact yes", "yes\n", true},
		{"with spaces", "  yes  \n", true},
		{"uppercase YES declines", "YES\n", false},
		{"mixed Yes declines", "Yes\n", false},
		{"bare y declines", "y\n", false},
		{"uppercase Y declines", "Y\n", false},
		{"empty input declines", "\n", false},
		{"no declines", "no\n", false},
		{"random text declines", "absolutely\n", false},
		{"yes with trailing text declines", "yes please\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := strings.NewReader(tt.input)
			writer := &bytes.Buffer{}
			p := NewInteractiveConfirmerWithIO(reader, writer)

			got, err := p.Confirm(context.Background(), "Remove all volumes?")
			if err != nil {
				t.Fatalf("Confirm() unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Confirm() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestInteractiveConfirmerShowsMessageAndToken(t *testing.T) {
	reader := strings.NewReader("yes\n")
	writer := &bytes.Buffer{}
	p := NewInteractiveConfirmerWithIO(reader, writer)

	_, _ = p.Confirm(context.Background(), "Remove all volumes?")

	output := writer.String()
	if !strings.Contains(output, "Remove all volumes?") {
		t.Errorf("prompt not displayed in output: %q", output)
	}
	if !strings.Contains(output, `"yes"`) {
		t.Errorf("confirmation token hint missing from output: %q", output)
	}
}

func TestInteractiveConfirmerEOFDeclines(t *testing.T) {
	p := NewInteractiveConfirmerWithIO(strings.NewReader(""), &bytes.Buffer{})

	got, err := p.Confirm(context.Background(), "Continue?")
	if err != nil {
		t.Fatalf("Confirm() unexpected error: %v", err)
	}
	if got {
		t.Error("Confirm() = true, want false on EOF")
	}
}

func TestInteractiveConfirmerContextCancelled(t *testing.T) {
	p := NewInteractiveConfirmerWithIO(strings.NewReader("yes\n"), &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Confirm(ctx, "Continue?")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Confirm() error = %v, want context.Canceled", err)
	}
}

func TestStaticConfirmer(t *testing.T) {
	t.Run("approve", func(t *testing.T) {
		writer := &bytes.Buffer{}
		p := &StaticConfirmer{Approve: true, Out: writer}

		got, err := p.Confirm(context.Background(), "Remove all volumes?")
		if err != nil {
			t.Fatalf("Confirm() unexpected error: %v", err)
		}
		if !got {
			t.Error("Confirm() = false, want true")
		}
		if !strings.Contains(writer.String(), "auto-confirmed") {
			t.Errorf("missing auto-confirmation note: %q", writer.String())
		}
	})

	t.Run("decline", func(t *testing.T) {
		writer := &bytes.Buffer{}
		p := &StaticConfirmer{Approve: false, Out: writer}

		got, err := p.Confirm(context.Background(), "Remove all volumes?")
		if err != nil {
			t.Fatalf("Confirm() unexpected error: %v", err)
		}
		if got {
			t.Error("Confirm() = true, want false")
		}
		if !strings.Contains(writer.String(), "declined") {
			t.Errorf("missing decline note: %q", writer.String())
		}
	})
}

func TestMockConfirmerRecordsMessages(t *testing.T) {
	p := &MockConfirmer{
		ConfirmFunc: func(ctx context.Context, message string) (bool, error) {
			return true, nil
		},
	}

	_, _ = p.Confirm(context.Background(), "first?")
	_, _ = p.Confirm(context.Background(), "second?")

	if len(p.Messages) != 2 || p.Messages[0] != "first?" || p.Messages[1] != "second?" {
		t.Errorf("Messages = %v, want [first? second?]", p.Messages)
	}
}
