// Package prompt gates destructive operations behind explicit operator
// confirmation.
//
// # Description
//
// A Confirmer answers one question: did the operator approve this
// destructive action? Declining is a normal outcome, not an error; errors
// are reserved for a broken prompt channel or a cancelled context.
//
// Interactive confirmation deliberately requires the full word "yes". A
// stray "y" typed into the wrong terminal should never delete data.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// ConfirmToken is the exact reply an interactive operator must type to
// approve a destructive action. Anything else declines.
const ConfirmToken = "yes"

// Confirmer asks the operator to approve a destructive action.
type Confirmer interface {
	// Confirm presents message and reports whether the operator approved.
	// A false return with nil error means the operator declined.
	Confirm(ctx context.Context, message string) (bool, error)
}

// InteractiveConfirmer reads the operator's answer from a terminal.
type InteractiveConfirmer struct {
	in  io.Reader
	out io.Writer
}

// NewInteractiveConfirmer creates a confirmer bound to stdin/stdout.
func NewInteractiveConfirmer() *InteractiveConfirmer {
	return NewInteractiveConfirmerWithIO(os.Stdin, os.Stdout)
}

// NewInteractiveConfirmerWithIO creates a confirmer with explicit streams.
// Tests use this to feed canned input.
func NewInteractiveConfirmerWithIO(in io.Reader, out io.Writer) *InteractiveConfirmer {
	return &InteractiveConfirmer{in: in, out: out}
}

// Confirm prints message and waits for a line of input. Only the literal
// reply "yes" (surrounding whitespace ignored) approves; "YES" and "Yes"
// decline like everything else. EOF declines.
func (p *InteractiveConfirmer) Confirm(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintf(p.out, "%s\nType %q to continue: ", message, ConfirmToken)

	reader := bufio.NewReader(p.in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}

	return strings.TrimSpace(line) == ConfirmToken, nil
}

// StaticConfirmer answers every confirmation the same way without
// consulting the operator. Approve=true backs the --yes flag; Approve=false
// backs scripted runs where destructive actions must always decline.
type StaticConfirmer struct {
	// Approve is the fixed answer.
	Approve bool

	// Out, when set, receives a note about the auto-answered prompt so
	// scripted logs still show what was skipped.
	Out io.Writer
}

// Confirm returns the fixed answer.
func (p *StaticConfirmer) Confirm(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.Out != nil {
		if p.Approve {
			fmt.Fprintf(p.Out, "%s\nauto-confirmed (--yes)\n", message)
		} else {
			fmt.Fprintf(p.Out, "%s\ndeclined (non-interactive run)\n", message)
		}
	}
	return p.Approve, nil
}

// MockConfirmer is a test double.
type MockConfirmer struct {
	// ConfirmFunc handles the call. Panics if unset.
	ConfirmFunc func(ctx context.Context, message string) (bool, error)

	// Messages records every prompt shown, in order.
	Messages []string
}

// Confirm records the message and delegates to ConfirmFunc.
func (p *MockConfirmer) Confirm(ctx context.Context, message string) (bool, error) {
	p.Messages = append(p.Messages, message)
	if p.ConfirmFunc == nil {
		panic("MockConfirmer.Confirm called but ConfirmFunc not set")
	}
	return p.ConfirmFunc(ctx, message)
}

var (
	_ Confirmer = (*InteractiveConfirmer)(nil)
	_ Confirmer = (*StaticConfirmer)(nil)
	_ Confirmer = (*MockConfirmer)(nil)
)
