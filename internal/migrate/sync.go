package migrate

import (
	"fmt"
	"path/filepath"
)

// SyncExcludes are the path patterns never copied during a sync run:
// logs, caches, sessions, temp directories, and WordPress cache and
// firewall state that must be rebuilt on the destination anyway.
var SyncExcludes = []string{
	"*/logs/*",
	"*/log/*",
	"*/cache/*",
	"*/tmp/*",
	"*/temp/*",
	"*.log",
	"*/error_log",
	"*/access_log",
	"*/session/*",
	"*/sessions/*",
	"*/.cache/*",
	"*/wp-content/cache/*",
	"*/wp-content/w3tc-config/*",
	"*/wp-content/wflogs/*",
}

// RunSync pulls the account's home directory and databases into an
// account that already exists here. The file pass is one-way and
// additive: source files overwrite destination files, but files that
// exist only on the destination are kept.
func (w *Workflow) RunSync() error {
	username, err := w.resolveSourceUsername()
	if err != nil {
		return err
	}
	w.status("Resolved account username: %s", username)

	home := filepath.Join(w.Layout.HomeDir, username)
	if _, err := w.Local.Run("test", "-d", home); err != nil {
		return fmt.Errorf("%w: %s does not exist on this host; run a structure-only migration first", ErrPrecondition, home)
	}

	w.status("Synchronizing %s from %s...", home, w.SourceHost)
	if err := w.rsyncHome(username, home); err != nil {
		return err
	}

	w.status("Discovering databases for %s...", username)
	databases, err := w.Databases.Discover(username)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteExecution, err)
	}

	if err := w.Databases.Migrate(username, databases); err != nil {
		return err
	}

	w.status("Sync migration for %s complete", w.Domain)
	return nil
}

// rsyncHome mirrors the account home tree from the source, compressed
// in transit, applying the fixed exclusion set. No --delete: the
// mirror never removes destination-only files.
func (w *Workflow) rsyncHome(username, home string) error {
	args := []string{
		"-az",
		"-e", fmt.Sprintf("ssh -p %s -o BatchMode=yes -o StrictHostKeyChecking=no", w.SSHPort),
	}
	for _, pattern := range SyncExcludes {
		args = append(args, "--exclude="+pattern)
	}
	args = append(args,
		fmt.Sprintf("%s@%s:%s/", w.SSHUser, w.SourceHost, home),
		home+"/",
	)

	if _, err := w.Local.Run("rsync", args...); err != nil {
		return fmt.Errorf("%w: rsync: %v", ErrTransfer, err)
	}
	return nil
}
