package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/catalog-admin/internal/metrics"
	"github.com/iyhunko/catalog-admin/internal/model"
	"github.com/iyhunko/catalog-admin/internal/repository"
)

// ErrNoProfile is returned by a RoleResolver that refuses principals without a
// profile record.
var ErrNoProfile = errors.New("principal has no profile")

// RoleResolver resolves the console role of an account.
type RoleResolver interface {
	ResolveRole(ctx context.Context, principalID uuid.UUID) (model.Role, error)
}

// Principal is a signed-in account with its resolved role.
type Principal struct {
	ID    uuid.UUID  `json:"id"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

// IsSuperAdmin reports whether the principal holds the superadmin role.
func (p *Principal) IsSuperAdmin() bool {
	return p != nil && p.Role == model.RoleSuperAdmin
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	Principal *Principal `json:"principal"`
}

// Service is the session adapter used by the HTTP layer.
type Service struct {
	provider Provider
	users    repository.Repository
	roles    RoleResolver
	events   *Broadcaster
}

// NewService creates a Service. users stores profile records.
func NewService(provider Provider, users repository.Repository, roles RoleResolver, events *Broadcaster) *Service {
	return &Service{
		provider: provider,
		users:    users,
		roles:    roles,
		events:   events,
	}
}

func (s *Service) resolve(ctx context.Context, op Op, creds *Credentials) (*Principal, error) {
	role, err := s.roles.ResolveRole(ctx, creds.AccountID)
	if err != nil {
		if errors.Is(err, ErrNoProfile) {
			return nil, &Error{Kind: KindNoAccess, Op: op, Err: err}
		}
		return nil, &Error{Kind: KindUnknown, Op: op, Err: fmt.Errorf("failed to resolve role: %w", err)}
	}
	return &Principal{ID: creds.AccountID, Email: creds.Email, Role: role}, nil
}

// SignIn authenticates with email and password and resolves the role.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	creds, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		idErr := translate(OpSignIn, err)
		metrics.SignIns.WithLabelValues(idErr.Kind.String()).Inc()
		slog.Warn("sign-in failed", slog.String("kind", idErr.Kind.String()), slog.Any("err", err))
		return nil, idErr
	}

	principal, err := s.resolve(ctx, OpSignIn, creds)
	if err != nil {
		metrics.SignIns.WithLabelValues(KindOf(err).String()).Inc()
		return nil, err
	}

	metrics.SignIns.WithLabelValues("success").Inc()
	s.events.Publish(StateChange{Kind: SignedIn, AccountID: principal.ID, Principal: principal})
	slog.Info("principal signed in", slog.String("principal_id", principal.ID.String()), slog.String("role", string(principal.Role)))

	return &Session{Token: creds.Token, ExpiresAt: creds.ExpiresAt, Principal: principal}, nil
}

// SignOut revokes the principal's sessions.
func (s *Service) SignOut(ctx context.Context, principal *Principal) error {
	if err := s.provider.Revoke(ctx, principal.ID); err != nil {
		return translate(OpSignOut, err)
	}
	s.events.Publish(StateChange{Kind: SignedOut, AccountID: principal.ID, Principal: principal, Reason: ReasonSignOut})
	return nil
}

// Authenticate verifies a session token. A token the provider no longer
// accepts for a known account publishes a SignedOut change.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	creds, err := s.provider.Verify(ctx, token)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) && pe.AccountID != uuid.Nil {
			s.events.Publish(StateChange{Kind: SignedOut, AccountID: pe.AccountID, Reason: ReasonInvalidated})
		}
		idErr := translate(OpAuthenticate, err)
		if idErr.Kind == KindNotFound || idErr.Kind == KindWrongCredential {
			idErr.Kind = KindUnauthenticated
		}
		return nil, idErr
	}

	return s.resolve(ctx, OpAuthenticate, creds)
}

// ProvisionAdmin creates an admin account and its profile. Account creation and
// the profile write are separate steps: when only the first succeeds the new
// principal is returned together with a *ProvisionError.
func (s *Service) ProvisionAdmin(ctx context.Context, email, password string, createdBy *Principal) (*Principal, error) {
	accountID, err := s.provider.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, translate(OpProvision, err)
	}

	principal := &Principal{ID: accountID, Email: email, Role: model.RoleAdmin}
	profile := &model.User{ID: accountID, Email: email, Role: model.RoleAdmin}
	if createdBy != nil {
		creator := createdBy.ID
		profile.CreatedBy = &creator
	}

	if _, err := s.users.Create(ctx, profile); err != nil {
		metrics.OrphanAccounts.Inc()
		slog.Error("admin account created without profile",
			slog.String("account_id", accountID.String()),
			slog.String("email", email),
			slog.Any("err", err))
		return principal, &ProvisionError{AccountID: accountID, Email: email, AccountCreated: true, Err: err}
	}

	slog.Info("admin provisioned", slog.String("account_id", accountID.String()), slog.String("email", email))
	return principal, nil
}

// ListAdmins returns the profiles holding the admin role.
func (s *Service) ListAdmins(ctx context.Context) ([]*model.User, error) {
	query := repository.NewQuery().With(repository.RoleField, string(model.RoleAdmin))
	query.Limit = repository.MaxPaginationLimit

	var admins []*model.User
	for {
		resources, err := s.users.List(ctx, *query)
		if err != nil {
			return nil, fmt.Errorf("failed to list admins: %w", err)
		}
		for _, res := range resources {
			user, ok := res.(*model.User)
			if !ok {
				return nil, repository.ErrInvalidType
			}
			admins = append(admins, user)
		}
		if len(resources) < query.Limit {
			return admins, nil
		}
		last := admins[len(admins)-1]
		query.Paginator = repository.NextPage(last.ID, last.CreatedAt)
	}
}

// EnsureSuperAdmin makes sure an account with a superadmin profile exists for
// email. It is a no-op when email is empty.
func (s *Service) EnsureSuperAdmin(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}

	accountID, err := s.provider.LookupAccount(ctx, email)
	if err != nil {
		if KindOf(translate(OpProvision, err)) != KindNotFound {
			return fmt.Errorf("failed to look up super admin account: %w", err)
		}
		accountID, err = s.provider.CreateAccount(ctx, email, password)
		if err != nil {
			return fmt.Errorf("failed to create super admin account: %w", err)
		}
		slog.Info("super admin account created", slog.String("email", email))
	}

	_, err = s.users.FindByID(ctx, accountID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to load super admin profile: %w", err)
	}

	if _, err := s.users.Create(ctx, &model.User{ID: accountID, Email: email, Role: model.RoleSuperAdmin}); err != nil {
		return fmt.Errorf("failed to create super admin profile: %w", err)
	}
	slog.Info("super admin profile created", slog.String("account_id", accountID.String()))
	return nil
}
