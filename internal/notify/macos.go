// Package notify sends desktop notifications about planning results.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Sender delivers one notification.
type Sender func(title, message string) error

// Default is the sender for the current platform. Outside macOS it does
// nothing.
func Default() Sender {
	if runtime.GOOS == "darwin" {
		return Send
	}
	return func(string, string) error { return nil }
}

// Send sends a macOS notification via osascript with sound.
func Send(title, message string) error {
	title = escapeAppleScript(title)
	message = escapeAppleScript(message)

	script := fmt.Sprintf(
		`display notification %q with title %q sound name "default"`,
		message, title,
	)

	cmd := exec.Command("osascript", "-e", script)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Outcome is what a notification reports about one solve.
type Outcome struct {
	Problem  string
	Solved   bool
	Steps    int
	Makespan float64
	Reason   string // failure reason or error text
}

// Format renders the title and message for an outcome.
func Format(o Outcome) (string, string) {
	if o.Solved {
		return "tplanner: " + o.Problem + " solved",
			fmt.Sprintf("%d steps, makespan %.3f", o.Steps, o.Makespan)
	}
	msg := "no plan found"
	if o.Reason != "" {
		msg += " (" + o.Reason + ")"
	}
	return "tplanner: " + o.Problem + " failed", msg
}

// Report formats o and hands it to send.
func Report(send Sender, o Outcome) error {
	if send == nil {
		return nil
	}
	title, msg := Format(o)
	return send(title, msg)
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
