package panel

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a command from an explicit argument list and returns
// its standard output. The SSH client satisfies it for the source host;
// LocalRunner covers the destination host, where this tool runs. The
// matching logic above either channel is identical.
type Runner interface {
	Run(name string, args ...string) (string, error)
}

// LocalRunner executes commands on the destination host directly.
type LocalRunner struct{}

// Run executes a local command and returns its standard output.
func (LocalRunner) Run(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.String(), fmt.Errorf("local %s failed: %w: %s", name, err, msg)
		}
		return stdout.String(), fmt.Errorf("local %s failed: %w", name, err)
	}
	return stdout.String(), nil
}
