package migrate

import (
	"fmt"
	"os"
	"path/filepath"
)

// RunStructure re-creates the account on this host from a
// structure-only export: no home directory data, no databases. The
// export archive exists on at most one host at any time once the
// workflow finishes, success or failure.
func (w *Workflow) RunStructure() error {
	address, err := w.PrimaryAddress()
	if err != nil {
		return err
	}
	w.status("Destination primary address: %s", address)

	username, err := w.resolveSourceUsername()
	if err != nil {
		return err
	}
	w.status("Resolved account username: %s", username)

	remoteDir, err := w.remoteWorkDir()
	if err != nil {
		return err
	}

	w.status("Exporting account structure for %s on %s...", w.Domain, w.SourceHost)
	if _, err := w.Source.Run(w.Layout.ExportCommand, "--skiphomedir", username, remoteDir); err != nil {
		w.removeRemote(remoteDir)
		return fmt.Errorf("%w: account export: %v", ErrRemoteExecution, err)
	}

	archiveName := fmt.Sprintf("cpmove-%s.tar.gz", username)
	remoteArtifact := filepath.Join(remoteDir, archiveName)

	localDir, err := w.workDir()
	if err != nil {
		return err
	}
	localArtifact := filepath.Join(localDir, archiveName)

	w.status("Transferring %s...", archiveName)
	if err := w.Source.Download(remoteArtifact, localArtifact); err != nil {
		// The source copy must never be left behind when the
		// transfer fails, even though the workflow aborts.
		w.removeRemote(remoteDir)
		os.Remove(localArtifact)
		return fmt.Errorf("%w: %v", ErrTransfer, err)
	}

	// The remote copy is never needed again once it is here.
	w.removeRemote(remoteDir)

	w.status("Importing account with IP binding %s...", address)
	if _, err := w.Local.Run(w.Layout.ImportCommand, "--force", "--ip="+address, localArtifact); err != nil {
		os.Remove(localArtifact)
		return fmt.Errorf("%w: %v", ErrImport, err)
	}

	if w.Cleanup {
		os.Remove(localArtifact)
	} else {
		w.status("Artifact retained for inspection: %s", localArtifact)
	}

	w.status("Structure migration for %s complete", w.Domain)
	return nil
}

// removeRemote deletes a path on the source host. Best-effort: at this
// point a cleanup failure only leaves a stray temp file behind.
func (w *Workflow) removeRemote(path string) {
	if _, err := w.Source.Run("rm", "-rf", "--", path); err != nil {
		w.status("Warning: could not remove %s on source: %v", path, err)
	}
}
