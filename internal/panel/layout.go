package panel

// Layout describes where the control panel keeps its utilities and
// account metadata. The defaults match a cPanel-style install; every
// path can be overridden through configuration so the tool works on
// forks that relocate the scripts.
type Layout struct {
	// ListCommand prints one line per account, first token the
	// system username.
	ListCommand string
	// UserdataDir is the per-account metadata tree used as the
	// fallback lookup when the listing omits a domain.
	UserdataDir string
	// ExportCommand produces a single archive for one account.
	ExportCommand string
	// ImportCommand restores such an archive on this host.
	ImportCommand string
	// HomeDir is the parent of account home directories.
	HomeDir string
}

// DefaultLayout returns the stock panel paths.
func DefaultLayout() Layout {
	return Layout{
		ListCommand:   "/usr/local/cpanel/scripts/list_accounts",
		UserdataDir:   "/var/cpanel/userdata",
		ExportCommand: "/usr/local/cpanel/scripts/pkgacct",
		ImportCommand: "/usr/local/cpanel/scripts/restorepkg",
		HomeDir:       "/home",
	}
}
