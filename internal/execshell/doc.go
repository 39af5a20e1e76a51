// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with zap logging and lifecycle
// notifications, and OSCommandRunner is the os/exec backed default. Git config
// values are redacted from every message the package produces because the
// credential rewrite passes secrets through them.
package execshell
