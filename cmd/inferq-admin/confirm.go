package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var errAborted = errors.New("aborted by user")

type confirmOptions interface {
	IsDryRun() bool
	IsYes() bool
	GetTarget() string
	GetWarning() string
}

// answerer is implemented by confirmations that demand a specific typed answer instead of y/N.
type answerer interface {
	ExpectedAnswer() string
}

func confirmAction(opts confirmOptions, action string) error {
	return confirm(os.Stdin, os.Stdout, opts, action)
}

func confirm(in io.Reader, out io.Writer, opts confirmOptions, action string) error {
	if opts.IsDryRun() || opts.IsYes() {
		return nil
	}

	if err := writef(out, "%s\nAbout to %s for %s.\n", opts.GetWarning(), action, opts.GetTarget()); err != nil {
		return fmt.Errorf("print confirmation message: %w", err)
	}

	expected := ""
	if a, ok := opts.(answerer); ok {
		expected = a.ExpectedAnswer()
	}
	prompt := "Continue? [y/N]: "
	if expected != "" {
		prompt = fmt.Sprintf("Type %q to continue: ", expected)
	}
	if err := write(out, prompt); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}

	resp, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && resp == "" {
		return errAborted
	}
	resp = strings.TrimSpace(resp)
	if expected != "" {
		if resp == expected {
			return nil
		}
		return errAborted
	}
	switch strings.ToLower(resp) {
	case "y", "yes":
		return nil
	default:
		return errAborted
	}
}
