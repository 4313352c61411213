package notify

import (
	"errors"
	"testing"
)

func TestEscapeAppleScript(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hello", "hello"},
		{`say "hello"`, `say \"hello\"`},
		{`path\to\file`, `path\\to\\file`},
		{`"quote" and \backslash`, `\"quote\" and \\backslash`},
		{"", ""},
	}
	for _, tt := range tests {
		got := escapeAppleScript(tt.input)
		if got != tt.want {
			t.Errorf("escapeAppleScript(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name      string
		in        Outcome
		wantTitle string
		wantMsg   string
	}{
		{"solved", Outcome{Problem: "simple-delivery", Solved: true, Steps: 4, Makespan: 4.003},
			"tplanner: simple-delivery solved", "4 steps, makespan 4.003"},
		{"failed with reason", Outcome{Problem: "p", Reason: "node_budget"},
			"tplanner: p failed", "no plan found (node_budget)"},
		{"failed", Outcome{Problem: "p"}, "tplanner: p failed", "no plan found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, msg := Format(tt.in)
			if title != tt.wantTitle || msg != tt.wantMsg {
				t.Errorf("Format() = (%q, %q), want (%q, %q)", title, msg, tt.wantTitle, tt.wantMsg)
			}
		})
	}
}

func TestReport(t *testing.T) {
	var gotTitle, gotMsg string
	send := func(title, msg string) error {
		gotTitle, gotMsg = title, msg
		return nil
	}
	if err := Report(send, Outcome{Problem: "p", Solved: true, Steps: 1}); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if gotTitle != "tplanner: p solved" || gotMsg != "1 steps, makespan 0.000" {
		t.Errorf("sent (%q, %q)", gotTitle, gotMsg)
	}

	boom := errors.New("boom")
	if err := Report(func(string, string) error { return boom }, Outcome{}); !errors.Is(err, boom) {
		t.Errorf("Report should return the sender error, got %v", err)
	}
	if err := Report(nil, Outcome{}); err != nil {
		t.Errorf("nil sender should be a no-op, got %v", err)
	}
}
