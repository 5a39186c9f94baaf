package bridge

import (
	"os/exec"
	"regexp"
	"strings"
)

// commandNamePattern is the "simple command name validation" of spec.md
// §4.7: "[A-Za-z0-9_-]+, anything else rejected before spawn".
var commandNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// wellKnownLaunchers skip the PATH existence check (spec.md §4.7:
// "Well-known launchers (npx, node, npm) skip the existence check") since
// they resolve/download their target lazily at spawn time.
var wellKnownLaunchers = map[string]bool{
	"npx":  true,
	"node": true,
	"npm":  true,
}

// badStartupPatterns are stderr substrings that indicate a starting bridge
// has failed even if the process has not yet exited, per spec.md §4.7
// "starting -> failed".
var badStartupPatterns = []string{
	"could not determine executable",
	"npm error",
	"command not found",
	"enoent",
}

// MatchesFailurePattern reports whether stderr output contains one of the
// known-bad startup patterns.
func MatchesFailurePattern(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, p := range badStartupPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// validateCommand rejects anything that is not a simple command token
// before a stdio bridge is spawned, per spec.md §4.7.
func validateCommand(command string) error {
	if !commandNamePattern.MatchString(command) {
		return (&Diagnostic{
			Command: command,
			Message: "invalid command name (must match [A-Za-z0-9_-]+): " + command,
		}).asError()
	}
	return nil
}

func (d *Diagnostic) asError() error { return diagnosticError{d} }

type diagnosticError struct{ d *Diagnostic }

func (e diagnosticError) Error() string { return e.d.Message }

// checkCommandExists verifies the stdio entry's command binary exists in
// PATH, per spec.md §4.7, unless it is a well-known launcher. It also
// produces the diagnostic hints the spec requires: whether the binary is
// available under a different name, and whether a local sibling project's
// package name suggests the cwd form should be used instead.
func checkCommandExists(command string, cwd string, localPackageNames func(cwd string) []string) *Diagnostic {
	if wellKnownLaunchers[command] {
		return nil
	}
	if err := validateCommand(command); err != nil {
		return &Diagnostic{Command: command, Message: err.Error()}
	}
	if _, err := exec.LookPath(command); err == nil {
		return nil
	}

	diag := &Diagnostic{
		Command: command,
		Message: "Command '" + command + "' not found",
	}

	if alt := findSimilarGlobalBinary(command); alt != "" {
		diag.GlobalBinaryHint = "use the binary directly: '" + alt + "' appears to provide the same tool"
	}
	if localPackageNames != nil {
		for _, name := range localPackageNames(cwd) {
			if strings.EqualFold(name, command) {
				diag.CwdFormHint = "a local sibling project named '" + name + "' matches; consider the cwd form"
				break
			}
		}
	}
	return diag
}

// findSimilarGlobalBinary looks in PATH for a binary named command+"-cli",
// command+"-mcp" or "mcp-"+command, in that order (a cheap heuristic for
// "is this tool available under a different name").
func findSimilarGlobalBinary(command string) string {
	for _, candidate := range []string{command + "-cli", command + "-mcp", "mcp-" + command} {
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
