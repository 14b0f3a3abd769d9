package migrate

import "errors"

// Every failure in a workflow is terminal for the invocation. These
// sentinels classify where in the chain it happened; callers match
// with errors.Is. The only non-terminal failures are the best-effort
// user/grant replication steps inside the database migrator, which
// warn and continue.
var (
	// ErrValidation marks bad or missing invocation parameters.
	ErrValidation = errors.New("invalid invocation")
	// ErrConnectivity marks a failed initial SSH probe.
	ErrConnectivity = errors.New("connectivity check failed")
	// ErrRemoteExecution marks a required remote command failure.
	ErrRemoteExecution = errors.New("remote command failed")
	// ErrIdentityResolution marks a domain with no resolvable account.
	ErrIdentityResolution = errors.New("could not resolve account username")
	// ErrNetworkDiscovery marks a destination with no usable address.
	ErrNetworkDiscovery = errors.New("could not determine primary address")
	// ErrTransfer marks a failed artifact or file copy.
	ErrTransfer = errors.New("transfer failed")
	// ErrImport marks a failed account import on the destination.
	ErrImport = errors.New("account import failed")
	// ErrPrecondition marks a sync attempted before structure.
	ErrPrecondition = errors.New("precondition not met")
)
