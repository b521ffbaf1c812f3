package main

import (
	"fmt"
	"io"
	"time"
)

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func write(w io.Writer, args ...any) error {
	_, err := fmt.Fprint(w, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}

// renderTTL formats a Redis TTL reply. go-redis passes the -1 (no expiry) and
// -2 (missing key) sentinels through unscaled, older servers report them in seconds.
func renderTTL(d time.Duration) string {
	switch d {
	case -1, -1 * time.Second:
		return "no expiry"
	case -2, -2 * time.Second:
		return "key missing"
	default:
		return d.Round(time.Millisecond).String()
	}
}
