package webhooks

// Outcome is the closed result set of precondition verification. Everything
// but OutcomeProceed is an expected, frequent way for processing to end and
// must not be treated as an error by callers.
type Outcome int

const (
	OutcomeProceed Outcome = iota
	OutcomeRateLimited
	OutcomeResourceGone
	OutcomeAccessRevoked
	OutcomeAlreadyInstalled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProceed:
		return "proceed"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeResourceGone:
		return "resource_gone"
	case OutcomeAccessRevoked:
		return "access_revoked"
	case OutcomeAlreadyInstalled:
		return "already_installed"
	default:
		return "unknown"
	}
}

type InstallStatus int

const (
	InstallSucceeded InstallStatus = iota
	InstallRateLimited
	// InstallFailed means the provider accepted the call but returned no
	// hook id. Nothing is persisted beyond the failure marker; the caller
	// decides how to surface it.
	InstallFailed
)

func (s InstallStatus) String() string {
	switch s {
	case InstallSucceeded:
		return "succeeded"
	case InstallRateLimited:
		return "rate_limited"
	case InstallFailed:
		return "failed"
	default:
		return "unknown"
	}
}
