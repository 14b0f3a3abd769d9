package migrate

import (
	"fmt"
	"io"
	"os"
	"strings"

	"acctmove-cli/internal/panel"
)

// Transport is the remote channel to the source host.
type Transport interface {
	Run(name string, args ...string) (string, error)
	Download(remotePath, localPath string) error
}

// DatabaseMigrator discovers and moves an account's databases.
type DatabaseMigrator interface {
	Discover(username string) ([]string, error)
	Migrate(username string, databases []string) error
}

// Workflow carries everything a single migration run needs. One
// Workflow serves exactly one domain; artifacts live in per-run
// directories on both hosts so concurrent runs against different
// domains cannot collide on fixed names.
type Workflow struct {
	// Source is the SSH channel to the source host.
	Source Transport
	// Local runs commands on the destination host.
	Local panel.Runner
	// Layout locates the panel utilities on both hosts.
	Layout panel.Layout
	// Databases performs database migration during sync runs.
	Databases DatabaseMigrator

	// Domain identifies the account being migrated.
	Domain string
	// SourceHost, SSHUser, and SSHPort describe the source for
	// tools that open their own connections, like rsync.
	SourceHost string
	SSHUser    string
	SSHPort    string

	// Cleanup removes the local artifact after a successful import.
	Cleanup bool
	// WorkDir is the local per-run directory. Created on demand
	// when empty.
	WorkDir string
	// Out receives status lines.
	Out io.Writer
}

func (w *Workflow) out() io.Writer {
	if w.Out == nil {
		return os.Stdout
	}
	return w.Out
}

func (w *Workflow) status(format string, args ...any) {
	fmt.Fprintf(w.out(), format+"\n", args...)
}

// workDir returns the local per-run directory, creating it on first
// use.
func (w *Workflow) workDir() (string, error) {
	if w.WorkDir != "" {
		return w.WorkDir, nil
	}
	dir, err := os.MkdirTemp("", "acctmove-")
	if err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}
	w.WorkDir = dir
	return dir, nil
}

// remoteWorkDir creates a unique temporary directory on the source
// host.
func (w *Workflow) remoteWorkDir() (string, error) {
	out, err := w.Source.Run("mktemp", "-d", "/tmp/acctmove.XXXXXX")
	if err != nil {
		return "", fmt.Errorf("%w: mktemp on source: %v", ErrRemoteExecution, err)
	}
	dir := strings.TrimSpace(out)
	if dir == "" {
		return "", fmt.Errorf("%w: mktemp on source returned no path", ErrRemoteExecution)
	}
	return dir, nil
}

// resolveSourceUsername maps the domain to its account username on the
// source host.
func (w *Workflow) resolveSourceUsername() (string, error) {
	resolver := panel.NewResolver(w.Source, w.Layout)
	username, err := resolver.Username(w.Domain)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIdentityResolution, err)
	}
	return username, nil
}

// PrimaryAddress returns the destination's outbound IPv4 address, the
// one its default route uses toward a well-known external host. New
// accounts are bound to it during import.
func (w *Workflow) PrimaryAddress() (string, error) {
	out, err := w.Local.Run("ip", "-4", "route", "get", "1.1.1.1")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetworkDiscovery, err)
	}

	fields := strings.Fields(out)
	for i, field := range fields {
		if field == "src" && i+1 < len(fields) {
			return fields[i+1], nil
		}
	}
	return "", fmt.Errorf("%w: no src address in route output", ErrNetworkDiscovery)
}
