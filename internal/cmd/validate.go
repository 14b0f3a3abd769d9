package cmd

import (
	"fmt"

	"acctmove-cli/internal/migrate"
)

// Migration methods.
const (
	MethodStructureOnly = "structure-only"
	MethodSync          = "sync"
)

// request holds the validated migration parameters. Built once at
// startup and immutable afterwards.
type request struct {
	source string
	port   int
	domain string
	method string
}

// validate rejects bad or missing parameters before any network
// activity takes place.
func (r *request) validate() error {
	if r.source == "" {
		return fmt.Errorf("%w: --source is required", migrate.ErrValidation)
	}
	if r.domain == "" {
		return fmt.Errorf("%w: --domain is required", migrate.ErrValidation)
	}
	if r.method == "" {
		return fmt.Errorf("%w: --method is required", migrate.ErrValidation)
	}
	if r.method != MethodStructureOnly && r.method != MethodSync {
		return fmt.Errorf("%w: unknown method %q (expected %q or %q)",
			migrate.ErrValidation, r.method, MethodStructureOnly, MethodSync)
	}
	if r.port <= 0 || r.port > 65535 {
		return fmt.Errorf("%w: invalid port %d", migrate.ErrValidation, r.port)
	}
	return nil
}
