package tool

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// maxArgLen is the hard cap, in characters, on any single string argument.
const maxArgLen = 1000

// unsafeChars are flagged when seen in input. Detection is log-only: the
// request proceeds, and callers must not assume such input is blocked.
const unsafeChars = `<>&"'`

// Validate rejects oversized string arguments and logs a warning for ones
// containing markup-sensitive characters.
func Validate() Stage {
	return func(_ context.Context, req *Request) *Result {
		for _, arg := range req.StringArgs {
			if utf8.RuneCountInString(arg) > maxArgLen {
				return &Result{Text: "Error: Input too long"}
			}
			if strings.ContainsAny(arg, unsafeChars) {
				slog.Warn("potentially unsafe input detected", "tool", req.Tool)
			}
		}
		return nil
	}
}
