// Package login drives a browser profile through the seller portal login.
package login

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/common"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
)

const actionTimeout = 10 * time.Second

// Config holds the automaton's target and timing settings
type Config struct {
	LoginURL           string
	LoginPath          string
	AuthenticatedPaths []string

	NavigationTimeout time.Duration
	FormTimeout       time.Duration
	TwoFactorTimeout  time.Duration
	RedirectTimeout   time.Duration
	PollInterval      time.Duration

	TypingDelayMin time.Duration
	TypingDelayMax time.Duration
	FieldPauseMin  time.Duration
	FieldPauseMax  time.Duration
}

// NewConfig builds the automaton config from application config
func NewConfig(c *common.Config) Config {
	return Config{
		LoginURL:           c.Target.LoginURL,
		LoginPath:          c.Target.LoginPath,
		AuthenticatedPaths: c.Target.AuthenticatedPaths,
		NavigationTimeout:  c.Login.NavigationTimeout.D(),
		FormTimeout:        c.Login.FormTimeout.D(),
		TwoFactorTimeout:   c.Login.TwoFactorTimeout.D(),
		RedirectTimeout:    c.Login.RedirectTimeout.D(),
		PollInterval:       500 * time.Millisecond,
		TypingDelayMin:     c.Login.TypingDelayMin.D(),
		TypingDelayMax:     c.Login.TypingDelayMax.D(),
		FieldPauseMin:      c.Login.FieldPauseMin.D(),
		FieldPauseMax:      c.Login.FieldPauseMax.D(),
	}
}

// Automaton runs one login attempt per call. It holds no per-attempt state.
type Automaton struct {
	config Config
	totp   interfaces.TOTPProvider
	logger arbor.ILogger
}

func NewAutomaton(config Config, totp interfaces.TOTPProvider, logger arbor.ILogger) *Automaton {
	if config.PollInterval <= 0 {
		config.PollInterval = 500 * time.Millisecond
	}
	return &Automaton{config: config, totp: totp, logger: logger}
}

// attempt carries the state of a single Run
type attempt struct {
	page   interfaces.Page
	creds  *models.Credentials
	state  models.LoginState
	trace  []models.LoginState
	logger arbor.ILogger
}

func (r *attempt) enter(state models.LoginState) {
	r.logger.Debug().
		Str("from", r.state.String()).
		Str("to", state.String()).
		Msg("Login state transition")
	r.state = state
	r.trace = append(r.trace, state)
}

func (r *attempt) finish(state models.LoginState, kind models.LoginOutcomeKind, message string) models.LoginOutcome {
	r.enter(state)
	return models.LoginOutcome{Kind: kind, Message: message, Trace: r.trace}
}

func (r *attempt) fail(message string) models.LoginOutcome {
	return r.finish(models.LoginStateFailed, models.LoginFailed, message)
}

// Run drives page through the login flow. It never panics and never returns
// an error; every failure is a Failed outcome. The caller owns the browser connection.
func (a *Automaton) Run(ctx context.Context, page interfaces.Page, creds *models.Credentials) (outcome models.LoginOutcome) {
	run := &attempt{
		page:   page,
		creds:  creds,
		state:  models.LoginStateStart,
		trace:  []models.LoginState{models.LoginStateStart},
		logger: a.logger.WithCorrelationId(creds.ProfileID),
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = run.fail(common.PanicError(r).Error())
		}
	}()

	// Navigating
	run.enter(models.LoginStateNavigating)
	navCtx, cancel := context.WithTimeout(ctx, a.config.NavigationTimeout)
	err := page.Navigate(navCtx, a.config.LoginURL)
	cancel()
	if err != nil {
		return run.fail(fmt.Sprintf("navigation failed: %v", err))
	}

	if a.isAuthenticated(a.location(ctx, page)) {
		return run.finish(models.LoginStateAlreadyAuthenticated, models.LoginAlreadyLoggedIn, "Already logged in")
	}

	formCtx, cancel := context.WithTimeout(ctx, a.config.FormTimeout)
	err = page.WaitVisible(formCtx, emailSelector)
	cancel()
	if err != nil {
		// A slow redirect may land on an authenticated page after the wait started
		if a.isAuthenticated(a.location(ctx, page)) {
			return run.finish(models.LoginStateAlreadyAuthenticated, models.LoginAlreadyLoggedIn, "Already logged in")
		}
		return run.fail(models.ErrFormNotFound.Error())
	}

	// FormVisible
	run.enter(models.LoginStateFormVisible)
	if err := a.typeField(ctx, page, emailSelector, creds.Email); err != nil {
		return run.fail(fmt.Sprintf("email entry failed: %v", err))
	}
	if err := common.SleepContext(ctx, common.Jitter(a.config.FieldPauseMin, a.config.FieldPauseMax)); err != nil {
		return run.fail(err.Error())
	}
	if err := a.typeField(ctx, page, passwordSelector, creds.Password); err != nil {
		return run.fail(fmt.Sprintf("password entry failed: %v", err))
	}

	// Submitting
	run.enter(models.LoginStateSubmitting)
	strategy, err := a.submit(ctx, page)
	if err != nil {
		return run.fail(fmt.Sprintf("submit failed: %v", err))
	}
	run.logger.Debug().Str("strategy", strategy).Msg("Login form submitted")

	if a.waitForTwoFactor(ctx, page) {
		run.enter(models.LoginStateAwaitingTwoFactor)
		return a.completeTwoFactor(ctx, run)
	}

	return a.inspectFinalLocation(ctx, run)
}

func (a *Automaton) completeTwoFactor(ctx context.Context, run *attempt) models.LoginOutcome {
	if !run.creds.HasTOTP() {
		return run.finish(models.LoginStateTwoFactorPendingManual, models.LoginTwoFactorRequired,
			"Two-factor verification required: no TOTP secret configured, enter the code manually in the browser window")
	}

	code, ok := a.totp.Code(ctx, run.creds.TOTPSecret)
	if !ok {
		return run.finish(models.LoginStateTwoFactorPendingManual, models.LoginTwoFactorRequired,
			"Two-factor verification required: could not obtain a TOTP code, enter it manually in the browser window")
	}

	page := run.page
	if err := a.typeField(ctx, page, twoFactorSelector, code); err != nil {
		return run.fail(fmt.Sprintf("%v: code entry failed: %v", models.ErrTwoFactorUnresolved, err))
	}
	if _, err := a.submitTwoFactor(ctx, page); err != nil {
		return run.fail(fmt.Sprintf("%v: code submit failed: %v", models.ErrTwoFactorUnresolved, err))
	}

	if a.waitForRedirect(ctx, page) {
		return run.finish(models.LoginStateAuthenticated, models.LoginSuccess, "Logged in with two-factor code")
	}

	// The code may be correct but slow to confirm
	outcome := run.finish(models.LoginStateTwoFactorPendingManual, models.LoginTwoFactorRequired,
		"Two-factor code submitted, verify manually in the browser window")
	outcome.CodeSubmitted = true
	return outcome
}

func (a *Automaton) inspectFinalLocation(ctx context.Context, run *attempt) models.LoginOutcome {
	location := a.location(ctx, run.page)

	if a.isAuthenticated(location) {
		return run.finish(models.LoginStateAuthenticated, models.LoginSuccess, "Logged in")
	}

	if a.isLoginPage(location) {
		message := a.scrapeError(ctx, run.page)
		if message == "" {
			message = "login rejected: still on login page"
		}
		return run.fail(message)
	}

	outcome := run.finish(models.LoginStateAuthenticated, models.LoginSuccess,
		fmt.Sprintf("Left the login page for %s, assuming logged in", pathOf(location)))
	outcome.LowConfidence = true
	return outcome
}

// typeField focuses, clears, then types value one character at a time
func (a *Automaton) typeField(ctx context.Context, page interfaces.Page, selector, value string) error {
	stepCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	if err := page.Focus(stepCtx, selector); err != nil {
		return err
	}
	if err := page.Clear(stepCtx, selector); err != nil {
		return err
	}

	for _, ch := range value {
		keyCtx, cancelKey := context.WithTimeout(ctx, actionTimeout)
		err := page.SendKeys(keyCtx, selector, string(ch))
		cancelKey()
		if err != nil {
			return err
		}
		if err := common.SleepContext(ctx, common.Jitter(a.config.TypingDelayMin, a.config.TypingDelayMax)); err != nil {
			return err
		}
	}
	return nil
}

// submit tries each strategy in order and returns the name of the one that fired
func (a *Automaton) submit(ctx context.Context, page interfaces.Page) (string, error) {
	stepCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	for _, selector := range submitButtonSelectors {
		if clicked, err := clickIfPresent(stepCtx, page, selector); err != nil {
			return "", err
		} else if clicked {
			return selector, nil
		}
	}

	var clicked bool
	if err := page.Evaluate(stepCtx, clickLoginTextScript, &clicked); err == nil && clicked {
		return "text:log in", nil
	}

	if clicked, err := clickIfPresent(stepCtx, page, genericSubmitSelector); err != nil {
		return "", err
	} else if clicked {
		return genericSubmitSelector, nil
	}

	if err := page.PressEnter(stepCtx, passwordSelector); err != nil {
		return "", err
	}
	return "enter", nil
}

func (a *Automaton) submitTwoFactor(ctx context.Context, page interfaces.Page) (string, error) {
	stepCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	if clicked, err := clickIfPresent(stepCtx, page, genericSubmitSelector); err != nil {
		return "", err
	} else if clicked {
		return genericSubmitSelector, nil
	}
	if err := page.PressEnter(stepCtx, twoFactorSelector); err != nil {
		return "", err
	}
	return "enter", nil
}

func clickIfPresent(ctx context.Context, page interfaces.Page, selector string) (bool, error) {
	exists, err := page.Exists(ctx, selector)
	if err != nil || !exists {
		return false, nil
	}
	if err := page.Click(ctx, selector); err != nil {
		return false, err
	}
	return true, nil
}

// waitForTwoFactor polls for the code input. It gives up early when the
// page has already moved to an authenticated area.
func (a *Automaton) waitForTwoFactor(ctx context.Context, page interfaces.Page) bool {
	waitCtx, cancel := context.WithTimeout(ctx, a.config.TwoFactorTimeout)
	defer cancel()

	for {
		if found, err := page.Exists(waitCtx, twoFactorSelector); err == nil && found {
			return true
		}
		if a.isAuthenticated(a.location(waitCtx, page)) {
			return false
		}
		if err := common.SleepContext(waitCtx, a.config.PollInterval); err != nil {
			return false
		}
	}
}

func (a *Automaton) waitForRedirect(ctx context.Context, page interfaces.Page) bool {
	waitCtx, cancel := context.WithTimeout(ctx, a.config.RedirectTimeout)
	defer cancel()

	for {
		if a.isAuthenticated(a.location(waitCtx, page)) {
			return true
		}
		if err := common.SleepContext(waitCtx, a.config.PollInterval); err != nil {
			return false
		}
	}
}

func (a *Automaton) location(ctx context.Context, page interfaces.Page) string {
	stepCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	location, err := page.Location(stepCtx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		a.logger.Debug().Err(err).Msg("Failed to read location")
	}
	return location
}

// scrapeError returns the first visible error message in the page, if any
func (a *Automaton) scrapeError(ctx context.Context, page interfaces.Page) string {
	stepCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	html, err := page.HTML(stepCtx)
	if err != nil || html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var message string
	doc.Find(errorSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		message = strings.Join(strings.Fields(s.Text()), " ")
		return message == ""
	})
	return message
}

func (a *Automaton) isAuthenticated(location string) bool {
	path := pathOf(location)
	if path == "" || a.isLoginPage(location) {
		return false
	}
	for _, prefix := range a.config.AuthenticatedPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (a *Automaton) isLoginPage(location string) bool {
	return strings.HasPrefix(pathOf(location), a.config.LoginPath)
}

func pathOf(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	return u.Path
}
