package login

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/sellersync/internal/common"
	"github.com/ternarybob/sellersync/internal/interfaces"
	"github.com/ternarybob/sellersync/internal/models"
	"github.com/ternarybob/sellersync/internal/services/profiles"
	"github.com/ternarybob/sellersync/internal/services/slots"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// stopTimeout bounds the cleanup stop after a failed login
const stopTimeout = 15 * time.Second

// Service performs interactive logins in visible profile windows.
// Profiles are left running after a successful or two-factor outcome so a person
// can finish any manual step; every other exit stops the profile. At most
// MaxSlots logins run at once across all callers.
type Service struct {
	windows     *semaphore.Weighted
	credentials interfaces.CredentialStore
	controller  interfaces.ProfileController
	connector   interfaces.BrowserConnector
	allocator   *slots.Allocator
	automaton   *Automaton
	events      interfaces.EventService
	logger      arbor.ILogger
}

func NewService(
	credentials interfaces.CredentialStore,
	controller interfaces.ProfileController,
	connector interfaces.BrowserConnector,
	allocator *slots.Allocator,
	automaton *Automaton,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		windows:     semaphore.NewWeighted(int64(allocator.MaxSlots())),
		credentials: credentials,
		controller:  controller,
		connector:   connector,
		allocator:   allocator,
		automaton:   automaton,
		events:      events,
		logger:      logger,
	}
}

// resolve finds credentials by profile ID, then by case-insensitive name
func (s *Service) resolve(ref string) *models.Credentials {
	if creds := s.credentials.GetByProfileID(ref); creds != nil {
		return creds
	}
	return s.credentials.GetByName(ref)
}

// Login logs into the profile identified by ref (profile ID or name)
func (s *Service) Login(ctx context.Context, ref string) (result models.LoginResult) {
	creds := s.resolve(ref)
	if creds == nil {
		return models.LoginResult{
			ProfileID: ref,
			Kind:      models.LoginFailed,
			Message:   fmt.Sprintf("%v for %q", models.ErrCredentialsNotFound, ref),
		}
	}

	logger := s.logger.WithCorrelationId(creds.ProfileID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("panic", fmt.Sprintf("%v", r)).Msg("Login panicked")
			result = failed(creds.ProfileID, common.PanicError(r).Error())
		}
		s.publish(ctx, result)
	}()

	if err := s.windows.Acquire(ctx, 1); err != nil {
		return failed(creds.ProfileID, fmt.Sprintf("login cancelled: %v", err))
	}
	defer s.windows.Release(1)

	keepOpen := false
	stop := func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		s.controller.Stop(stopCtx, creds.ProfileID)
	}

	handle, err := profiles.Acquire(ctx, s.controller, logger, creds.ProfileID)
	if err != nil {
		if errors.Is(err, models.ErrControlPlaneDenied) {
			return failed(creds.ProfileID, "profile is in use by another user")
		}
		stop()
		return failed(creds.ProfileID, fmt.Sprintf("failed to start profile: %v", err))
	}
	defer func() {
		if !keepOpen {
			logger.Debug().Msg("Stopping profile after failed login")
			stop()
		}
	}()

	slot := s.allocator.Acquire()
	defer slot.Release()

	session, err := s.connector.Connect(ctx, handle)
	if err != nil {
		return failed(creds.ProfileID, fmt.Sprintf("failed to connect to browser: %v", err))
	}
	defer func() {
		if err := session.Disconnect(); err != nil {
			logger.Warn().Err(err).Msg("Browser disconnect failed")
		}
	}()

	page, err := session.FirstPage(ctx)
	if err != nil {
		return failed(creds.ProfileID, fmt.Sprintf("failed to open page: %v", err))
	}

	if err := session.SetWindowBounds(ctx, slot.Bounds()); err != nil {
		logger.Debug().Err(err).Int("slot", slot.Index()).Msg("Failed to position window")
	}

	logger.Info().
		Int("slot", slot.Index()).
		Int("port", handle.DebugPort).
		Msg("Starting login")

	outcome := s.automaton.Run(ctx, page, creds)

	logger.Info().
		Str("kind", string(outcome.Kind)).
		Bool("low_confidence", outcome.LowConfidence).
		Bool("code_submitted", outcome.CodeSubmitted).
		Msg(outcome.Message)

	keepOpen = outcome.Kind != models.LoginFailed
	return models.NewLoginResult(creds.ProfileID, outcome)
}

// LoginMany runs logins concurrently, bounded like Login. Results follow input order.
func (s *Service) LoginMany(ctx context.Context, refs []string) []models.LoginResult {
	results := make([]models.LoginResult, len(refs))

	var g errgroup.Group
	g.SetLimit(s.allocator.MaxSlots())

	for i, ref := range refs {
		g.Go(func() error {
			results[i] = s.Login(ctx, ref)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Service) publish(ctx context.Context, result models.LoginResult) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: interfaces.EventLoginCompleted, Payload: result}); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to publish login event")
	}
}

func failed(profileID, message string) models.LoginResult {
	return models.LoginResult{
		ProfileID: profileID,
		Kind:      models.LoginFailed,
		Message:   message,
	}
}
