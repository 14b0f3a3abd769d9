package panel

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeRunner maps a command name to canned output or an error.
type fakeRunner struct {
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) Run(name string, args ...string) (string, error) {
	f.calls = append(f.calls, strings.Join(append([]string{name}, args...), " "))
	if err, ok := f.errs[name]; ok {
		return f.outputs[name], err
	}
	return f.outputs[name], nil
}

func TestResolver_Username_FromListing(t *testing.T) {
	layout := DefaultLayout()
	runner := &fakeRunner{outputs: map[string]string{
		layout.ListCommand: "alice alice.example.com\nbob example.com\ncarol sub.example.com.net\n",
	}}

	user, err := NewResolver(runner, layout).Username("example.com")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if user != "bob" {
		t.Errorf("Expected username 'bob', got '%s'", user)
	}
}

func TestResolver_Username_ExactFieldBeatsSubstring(t *testing.T) {
	layout := DefaultLayout()
	// carol's domain merely contains the search string and appears
	// first; bob's matches exactly and must win.
	runner := &fakeRunner{outputs: map[string]string{
		layout.ListCommand: "carol myexample.com\nbob example.com\n",
	}}

	user, err := NewResolver(runner, layout).Username("example.com")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if user != "bob" {
		t.Errorf("Expected exact match 'bob' to win, got '%s'", user)
	}
}

func TestResolver_Username_SubstringFirstMatchWins(t *testing.T) {
	layout := DefaultLayout()
	runner := &fakeRunner{outputs: map[string]string{
		layout.ListCommand: "carol shop.example.com\ndave blog.example.com\n",
	}}

	user, err := NewResolver(runner, layout).Username("example.com")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if user != "carol" {
		t.Errorf("Expected first substring match 'carol', got '%s'", user)
	}
}

func TestResolver_Username_FallbackToUserdata(t *testing.T) {
	layout := DefaultLayout()
	runner := &fakeRunner{outputs: map[string]string{
		layout.ListCommand: "alice alice.example.com\n",
		"grep":             fmt.Sprintf("%s/bob/example.com\n%s/bob/cache\n", layout.UserdataDir, layout.UserdataDir),
	}}

	user, err := NewResolver(runner, layout).Username("example.com")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if user != "bob" {
		t.Errorf("Expected fallback username 'bob', got '%s'", user)
	}
}

func TestResolver_Username_NotFound(t *testing.T) {
	layout := DefaultLayout()
	runner := &fakeRunner{
		outputs: map[string]string{layout.ListCommand: "alice alice.example.com\n"},
		errs:    map[string]error{"grep": errors.New("exit status 1")},
	}

	_, err := NewResolver(runner, layout).Username("missing.example.com")
	if !errors.Is(err, ErrUsernameNotFound) {
		t.Errorf("Expected ErrUsernameNotFound, got %v", err)
	}
}

func TestResolver_Username_ListingErrorStillFallsBack(t *testing.T) {
	layout := DefaultLayout()
	runner := &fakeRunner{
		outputs: map[string]string{"grep": layout.UserdataDir + "/bob/example.com\n"},
		errs:    map[string]error{layout.ListCommand: errors.New("exit status 127")},
	}

	user, err := NewResolver(runner, layout).Username("example.com")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if user != "bob" {
		t.Errorf("Expected fallback username 'bob', got '%s'", user)
	}
}

func TestUsernameFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/var/cpanel/userdata/bob/example.com", "bob"},
		{"/var/cpanel/userdata/bob", "bob"},
		{"/var/cpanel/userdata", ""},
		{"/etc/passwd", ""},
	}

	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			if got := usernameFromPath("/var/cpanel/userdata", test.path); got != test.expected {
				t.Errorf("Expected username %q for %q, got %q", test.expected, test.path, got)
			}
		})
	}
}
