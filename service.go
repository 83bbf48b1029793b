// Package authcore is an embeddable authentication core: memory-hard
// credential hashing, signed access/refresh token pairs with rotation and
// revocation, and OAuth2 authorization-code federation.
//
// The Service facade wires the subpackages together over a caller-supplied
// identity repository and revocation store. Hosts that need finer control
// can use the password, token, session, and oauth packages directly.
package authcore

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	autherr "github.com/skillsenselab/authcore/errors"
	"github.com/skillsenselab/authcore/identity"
	"github.com/skillsenselab/authcore/logger"
	"github.com/skillsenselab/authcore/oauth"
	"github.com/skillsenselab/authcore/password"
	"github.com/skillsenselab/authcore/secret"
	"github.com/skillsenselab/authcore/session"
	"github.com/skillsenselab/authcore/token"
)

// Service orchestrates registration, login, federation, and the token
// lifecycle. Safe for concurrent use.
type Service struct {
	hasher   *password.Hasher
	sessions *session.Manager
	repo     identity.Repository
	flows    map[string]*oauth.Flow

	clock      func() time.Time
	log        *logger.Logger
	httpClient *http.Client
	newID      func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.clock = now }
}

// WithLogger injects a logger. Defaults to a no-op logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithHTTPClient overrides the HTTP client used for provider calls.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) { s.httpClient = client }
}

// New creates a Service from a composed Config, an identity repository,
// and a revocation store.
func New(cfg *Config, repo identity.Repository, store session.RevocationStore, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, autherr.InvalidConfig("authcore", "config is required")
	}
	if repo == nil {
		return nil, autherr.InvalidConfig("authcore", "identity repository is required")
	}
	if store == nil {
		return nil, autherr.InvalidConfig("authcore", "revocation store is required")
	}
	c := *cfg
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, autherr.InvalidConfig("authcore", err.Error()).WithCause(err)
	}

	s := &Service{
		repo:  repo,
		clock: time.Now,
		log:   logger.Nop(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	hasher, err := password.NewHasher(c.Password)
	if err != nil {
		return nil, err
	}
	s.hasher = hasher

	codec, err := token.NewCodec(c.Token, token.WithClock(s.clock))
	if err != nil {
		return nil, err
	}
	sessions, err := session.NewManager(codec, store, c.Session,
		session.WithClock(s.clock), session.WithLogger(s.log))
	if err != nil {
		return nil, err
	}
	s.sessions = sessions

	s.flows = make(map[string]*oauth.Flow, len(c.Providers))
	for name, providerCfg := range c.Providers {
		flowOpts := []oauth.Option{oauth.WithClock(s.clock), oauth.WithLogger(s.log)}
		if s.httpClient != nil {
			flowOpts = append(flowOpts, oauth.WithHTTPClient(s.httpClient))
		}
		flow, err := oauth.NewFlow(providerCfg, repo, flowOpts...)
		if err != nil {
			return nil, err
		}
		s.flows[name] = flow
	}

	s.log.Info("auth service initialized", logger.Fields("config", c.Describe()))
	return s, nil
}

// Sessions exposes the underlying session manager for hosts that need
// direct access to revocation primitives.
func (s *Service) Sessions() *session.Manager { return s.sessions }

// Register creates a credentials identity and logs it in. The password is
// wiped before returning.
func (s *Service) Register(ctx context.Context, lookupKey string, pass *secret.Secret, displayName string) (*identity.Identity, *session.TokenPair, error) {
	defer pass.Wipe()
	if lookupKey == "" {
		return nil, nil, autherr.InvalidConfig("register", "lookup key is required")
	}

	rec, err := s.hasher.Hash(pass)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock()
	ident := &identity.Identity{
		ID:             s.newID(),
		LookupKey:      lookupKey,
		CredentialHash: rec.Encode(),
		DisplayName:    displayName,
		CreatedAt:      now,
	}
	if err := s.repo.Create(ctx, ident); err != nil {
		return nil, nil, err
	}

	pair, err := s.login(ctx, ident, "")
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("identity registered", logger.Fields("identity_id", ident.ID))
	return ident, pair, nil
}

// Login verifies credentials and issues a token pair. Unknown identities
// and wrong passwords produce the same INVALID_CREDENTIALS error, so a
// caller cannot probe which lookup keys exist.
func (s *Service) Login(ctx context.Context, lookupKey string, pass *secret.Secret) (*identity.Identity, *session.TokenPair, error) {
	defer pass.Wipe()

	ident, err := s.repo.FindByLookupKey(ctx, lookupKey)
	if err != nil {
		if autherr.CodeOf(err) == autherr.ErrCodeNotFound {
			return nil, nil, autherr.InvalidCredentials()
		}
		return nil, nil, err
	}
	if ident.CredentialHash == "" || !s.hasher.VerifyEncoded(pass, ident.CredentialHash) {
		return nil, nil, autherr.InvalidCredentials()
	}

	pair, err := s.login(ctx, ident, "")
	if err != nil {
		return nil, nil, err
	}
	return ident, pair, nil
}

// OAuthLoginURL starts the federated flow for the named provider. The
// returned FlowState must be persisted for the redirect round-trip.
func (s *Service) OAuthLoginURL(provider string) (string, *oauth.FlowState, error) {
	flow, err := s.flow(provider)
	if err != nil {
		return "", nil, err
	}
	return flow.Start()
}

// CompleteOAuthLogin finishes the federated flow and issues a token pair
// for the resolved identity.
func (s *Service) CompleteOAuthLogin(ctx context.Context, provider string, cb oauth.Callback, fs *oauth.FlowState) (*identity.Identity, *session.TokenPair, error) {
	flow, err := s.flow(provider)
	if err != nil {
		return nil, nil, err
	}
	ident, err := flow.Complete(ctx, cb, fs)
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.sessions.Issue(ctx, ident.ID, "")
	if err != nil {
		return nil, nil, err
	}
	return ident, pair, nil
}

// LinkProvider starts a linking flow for an already-authenticated
// identity; finish it with CompleteLinkProvider.
func (s *Service) LinkProvider(provider string) (string, *oauth.FlowState, error) {
	return s.OAuthLoginURL(provider)
}

// CompleteLinkProvider attaches the provider subject from the callback to
// the given identity.
func (s *Service) CompleteLinkProvider(ctx context.Context, provider, identityID string, cb oauth.Callback, fs *oauth.FlowState) (*identity.FederatedLink, error) {
	flow, err := s.flow(provider)
	if err != nil {
		return nil, err
	}
	return flow.CompleteLink(ctx, cb, fs, identityID)
}

// UnlinkProvider removes the identity's link for the provider. Removing
// the last authentication method is refused.
func (s *Service) UnlinkProvider(ctx context.Context, identityID, provider string) error {
	ident, err := s.repo.FindByID(ctx, identityID)
	if err != nil {
		return err
	}
	if ident.CredentialHash == "" {
		links, err := s.repo.ListFederatedLinks(ctx, identityID)
		if err != nil {
			return err
		}
		if len(links) <= 1 {
			return autherr.Conflict("Cannot remove the identity's only authentication method.")
		}
	}
	return s.repo.DeleteFederatedLink(ctx, provider, identityID)
}

// LinkedProviders lists the identity's federated links.
func (s *Service) LinkedProviders(ctx context.Context, identityID string) ([]identity.FederatedLink, error) {
	return s.repo.ListFederatedLinks(ctx, identityID)
}

// ChangePassword verifies the current password and replaces the stored
// hash. Every outstanding session is revoked; the returned pair is the
// only live one. An identity with no credential (federated-only) may set
// an initial password with an empty current password.
func (s *Service) ChangePassword(ctx context.Context, identityID string, current, next *secret.Secret) (*session.TokenPair, error) {
	defer current.Wipe()
	defer next.Wipe()

	ident, err := s.repo.FindByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if ident.CredentialHash != "" && !s.hasher.VerifyEncoded(current, ident.CredentialHash) {
		return nil, autherr.InvalidCredentials()
	}

	rec, err := s.hasher.Hash(next)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCredentialHash(ctx, identityID, rec.Encode()); err != nil {
		return nil, err
	}

	if err := s.sessions.RevokeSubject(ctx, identityID); err != nil {
		return nil, err
	}
	pair, err := s.sessions.Issue(ctx, identityID, "")
	if err != nil {
		return nil, err
	}
	s.log.Info("password changed", logger.Fields("identity_id", identityID))
	return pair, nil
}

// Refresh rotates a refresh token into a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*session.TokenPair, error) {
	return s.sessions.Refresh(ctx, refreshToken)
}

// ValidateAccessToken verifies an access token and returns its claims.
func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (*token.Claims, error) {
	return s.sessions.Validate(ctx, accessToken)
}

// IdentityFromToken validates an access token and loads its identity.
func (s *Service) IdentityFromToken(ctx context.Context, accessToken string) (*identity.Identity, error) {
	claims, err := s.sessions.Validate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, claims.Subject)
}

// Logout revokes the session chain of the presented token.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	return s.sessions.RevokeToken(ctx, tokenString)
}

// LogoutAll revokes every outstanding token for the identity.
func (s *Service) LogoutAll(ctx context.Context, identityID string) error {
	return s.sessions.RevokeSubject(ctx, identityID)
}

func (s *Service) flow(provider string) (*oauth.Flow, error) {
	flow, ok := s.flows[provider]
	if !ok {
		return nil, autherr.InvalidConfig("oauth", "provider "+provider+" is not configured")
	}
	return flow, nil
}

// login records the authentication and mints a pair.
func (s *Service) login(ctx context.Context, ident *identity.Identity, scope string) (*session.TokenPair, error) {
	if err := s.repo.TouchLastAuthenticated(ctx, ident.ID, s.clock()); err != nil {
		s.log.Warn("failed to record authentication time",
			logger.Fields("identity_id", ident.ID))
	}
	return s.sessions.Issue(ctx, ident.ID, scope)
}
