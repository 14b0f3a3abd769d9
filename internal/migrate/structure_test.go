package migrate

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"acctmove-cli/internal/panel"
)

const routeOutput = "1.1.1.1 via 198.51.100.1 dev eth0 src 203.0.113.5 uid 0\n"

// fakeTransport fakes the SSH channel to the source host.
type fakeTransport struct {
	runs        []string
	outputs     map[string]string // command name -> stdout
	runErr      map[string]error  // command name -> error
	downloadErr error
	downloads   int
}

func (f *fakeTransport) Run(name string, args ...string) (string, error) {
	f.runs = append(f.runs, strings.Join(append([]string{name}, args...), " "))
	if err, ok := f.runErr[name]; ok {
		return "", err
	}
	return f.outputs[name], nil
}

func (f *fakeTransport) Download(remotePath, localPath string) error {
	f.downloads++
	if f.downloadErr != nil {
		return f.downloadErr
	}
	return os.WriteFile(localPath, []byte("archive"), 0600)
}

// fakeLocal fakes destination-side command execution.
type fakeLocal struct {
	runs    []string
	outputs map[string]string
	runErr  map[string]error
}

func (f *fakeLocal) Run(name string, args ...string) (string, error) {
	f.runs = append(f.runs, strings.Join(append([]string{name}, args...), " "))
	if err, ok := f.runErr[name]; ok {
		return "", err
	}
	return f.outputs[name], nil
}

func newStructureWorkflow(t *testing.T, source *fakeTransport, local *fakeLocal) *Workflow {
	t.Helper()
	layout := panel.DefaultLayout()
	if source.outputs == nil {
		source.outputs = map[string]string{}
	}
	if _, ok := source.outputs[layout.ListCommand]; !ok {
		source.outputs[layout.ListCommand] = "bob example.com\n"
	}
	if _, ok := source.outputs["mktemp"]; !ok {
		source.outputs["mktemp"] = "/tmp/acctmove.x1y2z3\n"
	}
	if local.outputs == nil {
		local.outputs = map[string]string{}
	}
	if _, ok := local.outputs["ip"]; !ok {
		local.outputs["ip"] = routeOutput
	}
	return &Workflow{
		Source:     source,
		Local:      local,
		Layout:     layout,
		Domain:     "example.com",
		SourceHost: "h1",
		SSHUser:    "root",
		SSHPort:    "22",
		Cleanup:    true,
		WorkDir:    t.TempDir(),
		Out:        io.Discard,
	}
}

func calledWithPrefix(calls []string, prefix string) bool {
	for _, call := range calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

func TestRunStructure_SuccessWithCleanup(t *testing.T) {
	source := &fakeTransport{}
	local := &fakeLocal{}
	w := newStructureWorkflow(t, source, local)

	if err := w.RunStructure(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	layout := w.Layout
	if !calledWithPrefix(source.runs, layout.ExportCommand+" --skiphomedir bob /tmp/acctmove.x1y2z3") {
		t.Errorf("Expected a structure-only export for bob, got %v", source.runs)
	}
	if source.downloads != 1 {
		t.Errorf("Expected exactly one artifact download, got %d", source.downloads)
	}
	if !calledWithPrefix(source.runs, "rm -rf -- /tmp/acctmove.x1y2z3") {
		t.Errorf("Expected the remote work directory to be removed, got %v", source.runs)
	}
	if !calledWithPrefix(local.runs, layout.ImportCommand+" --force --ip=203.0.113.5 ") {
		t.Errorf("Expected an import bound to the primary address, got %v", local.runs)
	}

	// Cleanup enabled: no artifact remains on either host.
	artifact := filepath.Join(w.WorkDir, "cpmove-bob.tar.gz")
	if _, err := os.Stat(artifact); !os.IsNotExist(err) {
		t.Errorf("Expected local artifact to be removed on success with cleanup enabled")
	}
}

func TestRunStructure_NoCleanupRetainsArtifact(t *testing.T) {
	source := &fakeTransport{}
	local := &fakeLocal{}
	w := newStructureWorkflow(t, source, local)
	w.Cleanup = false

	if err := w.RunStructure(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	artifact := filepath.Join(w.WorkDir, "cpmove-bob.tar.gz")
	if _, err := os.Stat(artifact); err != nil {
		t.Errorf("Expected local artifact to be retained for inspection: %v", err)
	}
}

func TestRunStructure_AddressDiscoveryFailure(t *testing.T) {
	source := &fakeTransport{}
	local := &fakeLocal{runErr: map[string]error{"ip": errors.New("exit status 2")}}
	w := newStructureWorkflow(t, source, local)

	err := w.RunStructure()
	if !errors.Is(err, ErrNetworkDiscovery) {
		t.Fatalf("Expected ErrNetworkDiscovery, got %v", err)
	}
	if len(source.runs) != 0 {
		t.Errorf("Expected no source commands after address discovery failure, got %v", source.runs)
	}
}

func TestRunStructure_ExportFailureSkipsTransfer(t *testing.T) {
	layout := panel.DefaultLayout()
	source := &fakeTransport{runErr: map[string]error{layout.ExportCommand: errors.New("pkgacct failed")}}
	local := &fakeLocal{}
	w := newStructureWorkflow(t, source, local)

	err := w.RunStructure()
	if !errors.Is(err, ErrRemoteExecution) {
		t.Fatalf("Expected ErrRemoteExecution, got %v", err)
	}
	if source.downloads != 0 {
		t.Errorf("Expected no transfer attempt after export failure")
	}
}

func TestRunStructure_TransferFailureCleansRemoteCopy(t *testing.T) {
	source := &fakeTransport{downloadErr: errors.New("connection reset")}
	local := &fakeLocal{}
	w := newStructureWorkflow(t, source, local)

	err := w.RunStructure()
	if !errors.Is(err, ErrTransfer) {
		t.Fatalf("Expected ErrTransfer, got %v", err)
	}

	if !calledWithPrefix(source.runs, "rm -rf -- /tmp/acctmove.x1y2z3") {
		t.Errorf("Expected the remote copy to be deleted after transfer failure, got %v", source.runs)
	}
	artifact := filepath.Join(w.WorkDir, "cpmove-bob.tar.gz")
	if _, statErr := os.Stat(artifact); !os.IsNotExist(statErr) {
		t.Errorf("Expected no local artifact after transfer failure")
	}
	if calledWithPrefix(local.runs, w.Layout.ImportCommand) {
		t.Errorf("Expected no import attempt after transfer failure, got %v", local.runs)
	}
}

func TestRunStructure_ImportFailureRemovesLocalArtifact(t *testing.T) {
	layout := panel.DefaultLayout()
	source := &fakeTransport{}
	local := &fakeLocal{runErr: map[string]error{layout.ImportCommand: errors.New("restorepkg failed")}}
	w := newStructureWorkflow(t, source, local)

	err := w.RunStructure()
	if !errors.Is(err, ErrImport) {
		t.Fatalf("Expected ErrImport, got %v", err)
	}

	artifact := filepath.Join(w.WorkDir, "cpmove-bob.tar.gz")
	if _, statErr := os.Stat(artifact); !os.IsNotExist(statErr) {
		t.Errorf("Expected local artifact to be deleted before exit on import failure")
	}
}

func TestRunStructure_IdentityResolutionFailure(t *testing.T) {
	layout := panel.DefaultLayout()
	source := &fakeTransport{
		outputs: map[string]string{layout.ListCommand: "alice alice.net\n"},
		runErr:  map[string]error{"grep": errors.New("exit status 1")},
	}
	local := &fakeLocal{}
	w := newStructureWorkflow(t, source, local)

	err := w.RunStructure()
	if !errors.Is(err, ErrIdentityResolution) {
		t.Fatalf("Expected ErrIdentityResolution, got %v", err)
	}
	if source.downloads != 0 {
		t.Errorf("Expected no further workflow steps after resolution failure")
	}
}

func TestPrimaryAddress_ParsesSrcField(t *testing.T) {
	local := &fakeLocal{outputs: map[string]string{"ip": routeOutput}}
	w := &Workflow{Local: local, Out: io.Discard}

	address, err := w.PrimaryAddress()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if address != "203.0.113.5" {
		t.Errorf("Expected 203.0.113.5, got %s", address)
	}
}

func TestPrimaryAddress_NoSrcField(t *testing.T) {
	local := &fakeLocal{outputs: map[string]string{"ip": "unreachable\n"}}
	w := &Workflow{Local: local, Out: io.Discard}

	if _, err := w.PrimaryAddress(); !errors.Is(err, ErrNetworkDiscovery) {
		t.Errorf("Expected ErrNetworkDiscovery, got %v", err)
	}
}
