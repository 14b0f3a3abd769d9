package panel

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUsernameNotFound is returned when neither the account listing nor
// the metadata tree associates a username with the domain.
var ErrUsernameNotFound = errors.New("no account found for domain")

// Resolver determines the system username behind a domain. It works on
// either host depending on the Runner it is given.
type Resolver struct {
	runner Runner
	layout Layout
}

// NewResolver creates a resolver over the given execution channel.
func NewResolver(runner Runner, layout Layout) *Resolver {
	return &Resolver{runner: runner, layout: layout}
}

// Username resolves the account username for a domain. The account
// listing is consulted first; if the domain does not appear there, the
// per-account metadata tree is scanned. A line whose second field
// equals the domain exactly wins over a line that merely mentions it.
func (r *Resolver) Username(domain string) (string, error) {
	if user, err := r.fromListing(domain); err == nil && user != "" {
		return user, nil
	}

	user, err := r.fromUserdata(domain)
	if err != nil {
		return "", err
	}
	if user == "" {
		return "", fmt.Errorf("%w: %s", ErrUsernameNotFound, domain)
	}
	return user, nil
}

// fromListing scans the panel account listing for the domain.
func (r *Resolver) fromListing(domain string) (string, error) {
	out, err := r.runner.Run(r.layout.ListCommand)
	if err != nil {
		return "", err
	}

	var substring string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) > 1 && fields[1] == domain {
			return fields[0], nil
		}
		if substring == "" && strings.Contains(line, domain) {
			substring = fields[0]
		}
	}
	return substring, nil
}

// fromUserdata scans the per-account metadata tree for a file that
// mentions the domain. The username is the path segment directly under
// the tree root. First match wins.
func (r *Resolver) fromUserdata(domain string) (string, error) {
	out, err := r.runner.Run("grep", "-rls", "--", domain, r.layout.UserdataDir)
	if err != nil {
		// grep exits non-zero when nothing matches; treat that as
		// an empty result, not a channel failure.
		if strings.TrimSpace(out) == "" {
			return "", nil
		}
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if user := usernameFromPath(r.layout.UserdataDir, line); user != "" {
			return user, nil
		}
	}
	return "", nil
}

// usernameFromPath derives the account name segment from a metadata
// file path, e.g. /var/cpanel/userdata/bob/example.com -> bob.
func usernameFromPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) == 0 || parts[0] == "." {
		return ""
	}
	return parts[0]
}
