package iam

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/auth"
	"github.com/terraconstructs/hrconsole/internal/config"
	"github.com/terraconstructs/hrconsole/internal/db/models"
	"github.com/terraconstructs/hrconsole/internal/repository"
	"github.com/terraconstructs/hrconsole/internal/telemetry"
)

const tracerName = "hrapi/services/iam"

// MinPasswordLength is enforced on sign-up and admin user creation.
const MinPasswordLength = 6

// iamService implements the Service interface.
type iamService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	roles    RoleReader

	events         *EventBus
	authenticators []Authenticator
	metrics        *telemetry.AuthMetrics

	sessionTTL  time.Duration
	timeout     time.Duration
	enumeration bool
	pageSize    int
	now         func() time.Time
}

// IAMServiceDependencies contains all dependencies for IAM service construction.
type IAMServiceDependencies struct {
	Users    repository.UserRepository
	Sessions repository.SessionRepository
	Roles    RoleReader
	// Events defaults to a fresh bus.
	Events *EventBus
	// Metrics is optional.
	Metrics *telemetry.AuthMetrics
}

// IAMServiceConfig contains configuration for IAM service construction.
type IAMServiceConfig struct {
	Config *config.Config
}

// NewIAMService creates a new IAM service with all dependencies.
func NewIAMService(deps IAMServiceDependencies, cfg IAMServiceConfig) (Service, error) {
	if deps.Users == nil || deps.Sessions == nil || deps.Roles == nil {
		return nil, fmt.Errorf("iam: users, sessions and roles are required")
	}
	if cfg.Config == nil {
		return nil, fmt.Errorf("iam: config is required")
	}
	events := deps.Events
	if events == nil {
		events = NewEventBus()
	}

	svc := &iamService{
		users:       deps.Users,
		sessions:    deps.Sessions,
		roles:       deps.Roles,
		events:      events,
		metrics:     deps.Metrics,
		sessionTTL:  cfg.Config.Auth.SessionDuration,
		timeout:     cfg.Config.RemoteCallTimeout,
		enumeration: cfg.Config.Directory.Enumeration,
		pageSize:    cfg.Config.Directory.PageSize,
		now:         time.Now,
	}
	svc.authenticators = []Authenticator{
		NewSessionAuthenticator(deps.Users, deps.Sessions, deps.Roles, svc.timeout),
	}
	return svc, nil
}

func (s *iamService) call(ctx context.Context, op string, fn func(context.Context) error) error {
	return apperr.Call(ctx, s.timeout, op, repository.IsNotFound, fn)
}

func (s *iamService) Events() *EventBus { return s.events }

// =========================================================================
// Authentication service
// =========================================================================

func (s *iamService) SignUp(ctx context.Context, email, password, name string) (*models.User, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.SignUp")
	defer span.End()

	user, err := s.createUser(ctx, "iam.SignUp", email, password, name, true)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String(telemetry.AttrPrincipalID, user.ID))
	return user, nil
}

func (s *iamService) SignIn(ctx context.Context, email, password string, meta ClientMeta) (*SignInResult, error) {
	const op = "iam.SignIn"
	start := s.now()
	ctx, span := telemetry.StartSpan(ctx, tracerName, op)
	defer span.End()

	res, err := s.signIn(ctx, op, email, password, meta)
	if s.metrics != nil {
		s.metrics.RecordAuth(ctx, "password", err == nil, float64(s.now().Sub(start).Milliseconds()))
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String(telemetry.AttrPrincipalID, res.Principal.ID),
		attribute.String(telemetry.AttrPrincipalRole, string(res.Principal.Role)),
	)
	return res, nil
}

func (s *iamService) signIn(ctx context.Context, op, email, password string, meta ClientMeta) (*SignInResult, error) {
	email = normalizeEmail(email)

	var user *models.User
	err := s.call(ctx, op, func(ctx context.Context) error {
		var err error
		user, err = s.users.GetByEmail(ctx, email)
		return err
	})
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil, apperr.Unauthenticated(op, "invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if user.DisabledAt != nil {
		return nil, apperr.Unauthenticated(op, "account is disabled")
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Unauthenticated(op, "invalid email or password")
	}

	token, tokenHash, err := auth.GenerateBearerToken()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindRemoteUnavailable, op, err)
	}
	now := s.now().UTC()
	session := &models.Session{
		UserID:     user.ID,
		TokenHash:  tokenHash,
		ExpiresAt:  auth.CalculateExpiry(now, s.sessionTTL),
		CreatedAt:  now,
		LastUsedAt: now,
	}
	if meta.UserAgent != "" {
		session.UserAgent = &meta.UserAgent
	}
	if meta.IPAddress != "" {
		session.IPAddress = &meta.IPAddress
	}

	err = s.call(ctx, op, func(ctx context.Context) error {
		if err := s.sessions.Create(ctx, session); err != nil {
			return err
		}
		return s.users.UpdateLastLogin(ctx, user.ID)
	})
	if err != nil {
		return nil, err
	}

	principal := &Principal{ID: user.ID, Email: user.Email, Name: user.Name, SessionID: session.ID}

	// Subscribers (the identity resolver) run the sign-in grant before we
	// read the role back.
	if err := s.events.Publish(ctx, Event{Kind: EventSignedIn, ClientID: session.ID, Principal: principal}); err != nil {
		_ = s.sessions.Revoke(context.WithoutCancel(ctx), session.ID)
		return nil, classifyHandlerError(op, err)
	}

	role, err := s.roles.EffectiveRole(ctx, user.ID)
	if err != nil {
		_ = s.sessions.Revoke(context.WithoutCancel(ctx), session.ID)
		return nil, err
	}
	principal.Role = role

	return &SignInResult{Session: session, Token: token, Principal: principal}, nil
}

func (s *iamService) SignOut(ctx context.Context, token string) error {
	const op = "iam.SignOut"
	if token == "" {
		return apperr.Unauthenticated(op, "no session")
	}

	var session *models.Session
	err := s.call(ctx, op, func(ctx context.Context) error {
		var err error
		session, err = s.sessions.GetByTokenHash(ctx, auth.HashBearerToken(token))
		if err != nil {
			return err
		}
		return s.sessions.Revoke(ctx, session.ID)
	})
	if apperr.KindOf(err) == apperr.KindNotFound {
		return apperr.Unauthenticated(op, "no session")
	}
	if err != nil {
		return err
	}

	ev := Event{Kind: EventSignedOut, ClientID: session.ID}
	var user *models.User
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		user, err = s.users.GetByID(ctx, session.UserID)
		return err
	})
	switch apperr.KindOf(err) {
	case "":
		ev.Principal = &Principal{ID: user.ID, Email: user.Email, Name: user.Name, SessionID: session.ID}
	case apperr.KindNotFound:
		// owner deleted; the event goes out without a principal
	default:
		return err
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		return classifyHandlerError(op, err)
	}
	return nil
}

func (s *iamService) GetCurrentSession(ctx context.Context, token string) (*Principal, error) {
	const op = "iam.GetCurrentSession"
	ctx, span := telemetry.StartSpan(ctx, tracerName, op)
	defer span.End()

	if token == "" {
		return nil, apperr.Unauthenticated(op, "no session")
	}

	var (
		session *models.Session
		user    *models.User
		lookErr error
	)
	a := NewSessionAuthenticator(s.users, s.sessions, s.roles, s.timeout)
	err := s.call(ctx, op, func(ctx context.Context) error {
		session, user, lookErr = a.lookup(ctx, token)
		// store failures surface as errors; invalid sessions are handled below
		if lookErr != nil && !isInvalidSession(lookErr) {
			return lookErr
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if lookErr != nil {
		ev := Event{Kind: EventSessionMissing}
		if session != nil {
			ev.ClientID = session.ID
		}
		telemetry.AddEvent(span, "session.missing", attribute.String("reason", lookErr.Error()))
		if err := s.events.Publish(ctx, ev); err != nil {
			return nil, classifyHandlerError(op, err)
		}
		return nil, apperr.Unauthenticated(op, lookErr.Error())
	}

	principal := &Principal{ID: user.ID, Email: user.Email, Name: user.Name, SessionID: session.ID}
	if err := s.events.Publish(ctx, Event{Kind: EventSessionRestored, ClientID: session.ID, Principal: principal}); err != nil {
		return nil, classifyHandlerError(op, err)
	}

	role, err := s.roles.EffectiveRole(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	principal.Role = role
	span.SetAttributes(attribute.String(telemetry.AttrPrincipalID, principal.ID))
	return principal, nil
}

// =========================================================================
// Request authentication
// =========================================================================

// AuthenticateRequest tries all registered authenticators in order, each
// under the remote call timeout. An authenticator returning (nil, nil) found
// no credentials and the next one is tried. Rejected credentials end the
// search as Unauthenticated; store failures keep their kind, expiry
// included. No credentials at all yields (nil, nil).
func (s *iamService) AuthenticateRequest(ctx context.Context, req AuthRequest) (*Principal, error) {
	const op = "iam.AuthenticateRequest"
	ctx, span := telemetry.StartSpan(ctx, tracerName, op,
		attribute.Int("authenticator_count", len(s.authenticators)),
	)
	defer span.End()

	for i, authenticator := range s.authenticators {
		var (
			principal *Principal
			rejected  error
		)
		err := s.call(ctx, op, func(ctx context.Context) error {
			var err error
			principal, err = authenticator.Authenticate(ctx, req)
			if err != nil && isInvalidSession(err) {
				rejected = err
				return nil
			}
			return err
		})
		if err == nil && rejected != nil {
			err = apperr.Wrap(apperr.KindUnauthenticated, op, rejected)
		}
		if err != nil {
			telemetry.AddEvent(span, "authentication.failed",
				attribute.Int("authenticator_index", i),
				attribute.String("error", err.Error()),
			)
			telemetry.RecordError(span, err)
			return nil, err
		}
		if principal != nil {
			span.SetAttributes(
				attribute.String(telemetry.AttrPrincipalID, principal.ID),
				attribute.String(telemetry.AttrPrincipalRole, string(principal.Role)),
			)
			return principal, nil
		}
	}

	telemetry.AddEvent(span, "authentication.no_credentials")
	return nil, nil
}

// =========================================================================
// Directory
// =========================================================================

func (s *iamService) ListUsers(ctx context.Context, offset, limit int) ([]models.User, error) {
	const op = "iam.ListUsers"
	if !s.enumeration {
		return nil, apperr.AccessDenied(op, "directory enumeration is disabled")
	}
	if limit <= 0 || limit > s.pageSize {
		limit = s.pageSize
	}
	if offset < 0 {
		offset = 0
	}

	var users []models.User
	err := s.call(ctx, op, func(ctx context.Context) error {
		var err error
		users, err = s.users.List(ctx, offset, limit)
		return err
	})
	return users, err
}

func (s *iamService) ListAllUsers(ctx context.Context) ([]models.User, error) {
	var all []models.User
	for offset := 0; ; offset += s.pageSize {
		page, err := s.ListUsers(ctx, offset, s.pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < s.pageSize {
			return all, nil
		}
	}
}

func (s *iamService) CreateUser(ctx context.Context, email, password, name string) (*models.User, error) {
	return s.createUser(ctx, "iam.CreateUser", email, password, name, password != "")
}

func (s *iamService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user *models.User
	err := s.call(ctx, "iam.GetUserByID", func(ctx context.Context) error {
		var err error
		user, err = s.users.GetByID(ctx, id)
		return err
	})
	return user, err
}

func (s *iamService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user *models.User
	err := s.call(ctx, "iam.GetUserByEmail", func(ctx context.Context) error {
		var err error
		user, err = s.users.GetByEmail(ctx, normalizeEmail(email))
		return err
	})
	return user, err
}

func (s *iamService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	var n int64
	err := s.call(ctx, "iam.PurgeExpiredSessions", func(ctx context.Context) error {
		var err error
		n, err = s.sessions.DeleteExpired(ctx, s.now().UTC())
		return err
	})
	return n, err
}

func (s *iamService) createUser(ctx context.Context, op, email, password, name string, requirePassword bool) (*models.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, apperr.ValidationFailed(op, "a valid email address is required")
	}
	if requirePassword && len(password) < MinPasswordLength {
		return nil, apperr.ValidationFailed(op, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	var hash string
	if password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidationFailed, op, err)
		}
		hash = string(b)
	}
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	user := &models.User{Email: email, Name: name, PasswordHash: hash}
	err := s.call(ctx, op, func(ctx context.Context) error {
		return s.users.Create(ctx, user)
	})
	if apperr.KindOf(err) == apperr.KindValidationFailed {
		return nil, apperr.ValidationFailed(op, "a principal with this email already exists")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isInvalidSession reports whether err means "credentials are not valid"
// rather than "the store failed".
func isInvalidSession(err error) bool {
	return repository.IsNotFound(err) ||
		errors.Is(err, auth.ErrSessionExpired) ||
		errors.Is(err, auth.ErrSessionRevoked) ||
		errors.Is(err, auth.ErrIdentityDisabled)
}

// classifyHandlerError keeps the kind of a typed subscriber failure.
func classifyHandlerError(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return &apperr.Error{Kind: ae.Kind, Op: op, Err: err}
	}
	return apperr.Wrap(apperr.KindRemoteUnavailable, op, err)
}
