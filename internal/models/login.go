package models

// LoginState is a state of the login state machine
type LoginState int

const (
	LoginStateStart LoginState = iota
	LoginStateNavigating
	LoginStateAlreadyAuthenticated
	LoginStateFormVisible
	LoginStateSubmitting
	LoginStateAwaitingTwoFactor
	LoginStateAuthenticated
	LoginStateTwoFactorPendingManual
	LoginStateFailed
)

var loginStateNames = map[LoginState]string{
	LoginStateStart:                  "start",
	LoginStateNavigating:             "navigating",
	LoginStateAlreadyAuthenticated:   "already_authenticated",
	LoginStateFormVisible:            "form_visible",
	LoginStateSubmitting:             "submitting",
	LoginStateAwaitingTwoFactor:      "awaiting_two_factor",
	LoginStateAuthenticated:          "authenticated",
	LoginStateTwoFactorPendingManual: "two_factor_pending_manual",
	LoginStateFailed:                 "failed",
}

func (s LoginState) String() string {
	if name, ok := loginStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the machine stops in this state
func (s LoginState) Terminal() bool {
	switch s {
	case LoginStateAlreadyAuthenticated, LoginStateAuthenticated, LoginStateTwoFactorPendingManual, LoginStateFailed:
		return true
	}
	return false
}

// LoginOutcomeKind tags a LoginOutcome
type LoginOutcomeKind string

const (
	LoginSuccess           LoginOutcomeKind = "success"
	LoginAlreadyLoggedIn   LoginOutcomeKind = "already_logged_in"
	LoginTwoFactorRequired LoginOutcomeKind = "two_factor_required"
	LoginFailed            LoginOutcomeKind = "failed"
)

// LoginOutcome is the structured result of a single login attempt
type LoginOutcome struct {
	Kind          LoginOutcomeKind `json:"kind"`
	Message       string           `json:"message"`
	CodeSubmitted bool             `json:"code_submitted"` // A TOTP code was entered but confirmation was not observed
	LowConfidence bool             `json:"low_confidence"` // Landed somewhere that is neither login nor a known authenticated area
	Trace         []LoginState     `json:"-"`
}

// Success is true for every outcome except Failed.
// A pending two-factor prompt is a defined terminal state, not an error.
func (o LoginOutcome) Success() bool {
	return o.Kind != LoginFailed
}

// RequiresTwoFactor reports whether a human (or a later retry) must finish two-factor entry
func (o LoginOutcome) RequiresTwoFactor() bool {
	return o.Kind == LoginTwoFactorRequired
}

// LoginResult is the public result of a login request
type LoginResult struct {
	ProfileID   string           `json:"profile_id"`
	Success     bool             `json:"success"`
	Requires2FA bool             `json:"requires_2fa"`
	Kind        LoginOutcomeKind `json:"kind"`
	Message     string           `json:"message"`
}

// NewLoginResult flattens an outcome for callers
func NewLoginResult(profileID string, outcome LoginOutcome) LoginResult {
	return LoginResult{
		ProfileID:   profileID,
		Success:     outcome.Success(),
		Requires2FA: outcome.RequiresTwoFactor(),
		Kind:        outcome.Kind,
		Message:     outcome.Message,
	}
}
