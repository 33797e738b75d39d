package models

import (
	"errors"
	"fmt"
)

var (
	// ErrControlPlaneConflict means the profile is already running; recover via a status lookup
	ErrControlPlaneConflict = errors.New("control plane: profile already running")
	// ErrControlPlaneDenied means another actor holds the profile; terminal, never retried
	ErrControlPlaneDenied = errors.New("control plane: profile in use by another actor")
	// ErrControlPlaneTransient covers every other control-plane fault
	ErrControlPlaneTransient = errors.New("control plane: transient failure")

	ErrExtractionTimeout   = errors.New("session extraction timed out")
	ErrFormNotFound        = errors.New("login form not found")
	ErrTwoFactorUnresolved = errors.New("two-factor verification unresolved")
	ErrAPIPartialFailure   = errors.New("api partial failure")
	ErrSessionConsumed     = errors.New("harvested session already consumed")
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrReportNotFound      = errors.New("report not found")
	// ErrRunActive means a batch run is already executing in this process
	ErrRunActive = errors.New("a batch run is already in progress")
)

// NetworkFaultKind names a classified browser transport failure
type NetworkFaultKind string

const (
	NetworkFaultProxyDead         NetworkFaultKind = "proxy_dead"
	NetworkFaultTimeout           NetworkFaultKind = "timeout"
	NetworkFaultConnectionRefused NetworkFaultKind = "connection_refused"
	NetworkFaultDNS               NetworkFaultKind = "dns_failure"
)

// NetworkFaultError is a transport fault observed by the browser
type NetworkFaultError struct {
	Kind   NetworkFaultKind
	Detail string
}

func (e *NetworkFaultError) Error() string {
	return fmt.Sprintf("network fault (%s): %s", e.Kind, e.Detail)
}

// IsTerminal reports whether err must bypass retries
func IsTerminal(err error) bool {
	return errors.Is(err, ErrControlPlaneDenied)
}
