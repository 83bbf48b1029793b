// Package oauth drives the OAuth2 authorization-code grant against a
// configured provider and resolves the remote identity to a local one.
//
// Each attempt moves through Initiated → CodeExchangePending →
// {IdentityResolved | Failed}. Start builds the authorization URL with a
// fresh anti-forgery state and a PKCE S256 challenge; Complete validates
// the callback, exchanges the code, fetches the provider identity, and
// resolves it against the federated link table. Flow state is single-use.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	autherr "github.com/skillsenselab/authcore/errors"
	"github.com/skillsenselab/authcore/identity"
	"github.com/skillsenselab/authcore/logger"
)

// Callback carries the query parameters the provider appends to the
// redirect URI.
type Callback struct {
	Code  string
	State string

	// ErrorCode and ErrorDescription are set when the provider reports a
	// failure (e.g. the user denied consent) instead of a code.
	ErrorCode        string
	ErrorDescription string
}

// Flow runs the authorization-code grant for one provider. Safe for
// concurrent use; each attempt owns its own FlowState.
type Flow struct {
	cfg    Config
	repo   identity.Repository
	client *http.Client
	now    func() time.Time
	log    *logger.Logger
	newID  func() string
}

// Option configures a Flow.
type Option func(*Flow)

// WithHTTPClient overrides the HTTP client used for provider calls.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Flow) { f.client = client }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

// WithLogger injects a logger. Defaults to a no-op logger.
func WithLogger(log *logger.Logger) Option {
	return func(f *Flow) { f.log = log.WithComponent("oauth") }
}

// NewFlow creates a Flow for the configured provider.
func NewFlow(cfg *Config, repo identity.Repository, opts ...Option) (*Flow, error) {
	if cfg == nil {
		return nil, autherr.InvalidConfig("oauth", "config is required")
	}
	if repo == nil {
		return nil, autherr.InvalidConfig("oauth", "identity repository is required")
	}
	c := *cfg
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, autherr.InvalidConfig("oauth", err.Error()).WithCause(err)
	}
	f := &Flow{
		cfg:   c,
		repo:  repo,
		now:   time.Now,
		log:   logger.Nop(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: c.HTTPTimeout}
	}
	return f, nil
}

// Provider returns the configured provider name.
func (f *Flow) Provider() string { return f.cfg.Provider }

// Start builds the provider authorization URL with a fresh state value
// and, unless disabled, a PKCE S256 challenge. The returned FlowState must
// be persisted by the caller for the redirect round-trip and passed back
// to Complete.
func (f *Flow) Start() (string, *FlowState, error) {
	state, err := GenerateState()
	if err != nil {
		return "", nil, autherr.Backend(fmt.Errorf("oauth: generate state: %w", err))
	}

	now := f.now()
	fs := &FlowState{
		Provider:  f.cfg.Provider,
		State:     state,
		CreatedAt: now,
		ExpiresAt: now.Add(f.cfg.StateTTL),
	}

	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", f.cfg.ClientID)
	query.Set("redirect_uri", f.cfg.RedirectURI)
	query.Set("scope", strings.Join(f.cfg.Scopes, " "))
	query.Set("state", state)

	if !f.cfg.DisablePKCE {
		pkce, err := NewPKCE()
		if err != nil {
			return "", nil, autherr.Backend(fmt.Errorf("oauth: generate pkce: %w", err))
		}
		fs.CodeVerifier = pkce.CodeVerifier
		query.Set("code_challenge", pkce.CodeChallenge)
		query.Set("code_challenge_method", pkce.CodeChallengeMethod)
	}

	authURL, err := url.Parse(f.cfg.AuthURL)
	if err != nil {
		return "", nil, autherr.InvalidConfig("oauth", "invalid auth_url").WithCause(err)
	}
	authURL.RawQuery = query.Encode()

	f.log.Debug("authorization flow started", logger.Fields("provider", f.cfg.Provider))
	return authURL.String(), fs, nil
}

// Complete validates the callback against the stored flow state, exchanges
// the authorization code, fetches the provider identity, and resolves it
// to a local identity.
//
// The flow state is consumed before anything else happens, so a replayed
// callback fails with STATE_MISMATCH regardless of this call's outcome.
// State validation failures perform no provider calls and no writes.
func (f *Flow) Complete(ctx context.Context, cb Callback, fs *FlowState) (*identity.Identity, error) {
	remote, err := f.Authenticate(ctx, cb, fs)
	if err != nil {
		return nil, err
	}
	ident, err := f.resolveIdentity(ctx, remote)
	if err != nil {
		return nil, err
	}
	f.log.Info("federated login resolved",
		logger.Fields("provider", f.cfg.Provider, "identity_id", ident.ID))
	return ident, nil
}

// CompleteLink runs the same callback validation and exchange as Complete,
// but instead of resolving an identity it links the remote subject to the
// given, already-authenticated identity. The configured ConflictPolicy
// applies when the identity holds a link for this provider.
func (f *Flow) CompleteLink(ctx context.Context, cb Callback, fs *FlowState, identityID string) (*identity.FederatedLink, error) {
	remote, err := f.Authenticate(ctx, cb, fs)
	if err != nil {
		return nil, err
	}
	ident, err := f.repo.FindByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if err := f.attachLink(ctx, ident, remote); err != nil {
		return nil, err
	}
	return f.repo.FindFederatedLink(ctx, remote.Provider, remote.Subject)
}

// Authenticate consumes the flow state, validates the callback, exchanges
// the code, and returns the normalized remote identity without touching
// the repository.
func (f *Flow) Authenticate(ctx context.Context, cb Callback, fs *FlowState) (*RemoteIdentity, error) {
	if fs == nil || !fs.consume() {
		return nil, autherr.StateMismatch()
	}
	if !fs.matches(cb.State) {
		return nil, autherr.StateMismatch()
	}
	if f.now().After(fs.ExpiresAt) {
		return nil, autherr.StateExpired()
	}
	if cb.ErrorCode != "" {
		return nil, autherr.Provider("authorize", http.StatusBadRequest).
			WithDetail("provider_error", cb.ErrorCode).
			WithDetail("description", cb.ErrorDescription)
	}
	if cb.Code == "" {
		return nil, autherr.Provider("authorize", http.StatusBadRequest).
			WithDetail("provider_error", "missing authorization code")
	}

	token, err := f.exchangeCode(ctx, cb.Code, fs.CodeVerifier)
	if err != nil {
		return nil, err
	}
	return f.fetchRemoteIdentity(ctx, token.AccessToken)
}

type providerToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
	IDToken      string `json:"id_token"`
}

func (f *Flow) exchangeCode(ctx context.Context, code, codeVerifier string) (*providerToken, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", f.cfg.RedirectURI)
	form.Set("client_id", f.cfg.ClientID)
	form.Set("client_secret", f.cfg.ClientSecret)
	if codeVerifier != "" {
		form.Set("code_verifier", codeVerifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, autherr.ProviderUnreachable("token", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, autherr.ProviderUnreachable("token", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, autherr.Provider("token", resp.StatusCode)
	}

	var token providerToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, autherr.Provider("token", resp.StatusCode).WithCause(err)
	}
	if token.AccessToken == "" {
		return nil, autherr.Provider("token", resp.StatusCode).
			WithDetail("provider_error", "response carried no access token")
	}
	return &token, nil
}

func (f *Flow) fetchRemoteIdentity(ctx context.Context, accessToken string) (*RemoteIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, autherr.ProviderUnreachable("userinfo", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, autherr.ProviderUnreachable("userinfo", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, autherr.Provider("userinfo", resp.StatusCode)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, autherr.Provider("userinfo", resp.StatusCode).WithCause(err)
	}

	remote, err := normalizeRemoteIdentity(f.cfg.Provider, raw)
	if err != nil {
		return nil, autherr.Provider("userinfo", resp.StatusCode).WithCause(err)
	}
	return remote, nil
}

// resolveIdentity maps the remote identity onto a local one. Resolution
// order: an existing federated link wins; otherwise, when LinkByEmail is
// enabled, a provider-verified email matching an existing identity's
// lookup key attaches a new link to it; otherwise a fresh identity is
// provisioned when policy allows. An unverified email never reaches an
// existing account.
func (f *Flow) resolveIdentity(ctx context.Context, remote *RemoteIdentity) (*identity.Identity, error) {
	link, err := f.repo.FindFederatedLink(ctx, remote.Provider, remote.Subject)
	switch {
	case err == nil:
		ident, err := f.repo.FindByID(ctx, link.IdentityID)
		if err != nil {
			return nil, err
		}
		f.touch(ctx, ident)
		return ident, nil
	case autherr.CodeOf(err) == autherr.ErrCodeNotFound:
		// First login for this subject.
	default:
		return nil, err
	}

	if f.cfg.LinkByEmail && remote.Email != "" && remote.EmailVerified {
		existing, err := f.repo.FindByLookupKey(ctx, remote.Email)
		switch {
		case err == nil:
			if err := f.attachLink(ctx, existing, remote); err != nil {
				return nil, err
			}
			f.touch(ctx, existing)
			return existing, nil
		case autherr.CodeOf(err) == autherr.ErrCodeNotFound:
		default:
			return nil, err
		}
	}

	if !f.cfg.AutoProvision {
		return nil, autherr.AutoProvisionDisabled(remote.Provider)
	}
	return f.provision(ctx, remote)
}

// attachLink links the remote subject to an existing identity, applying
// the configured conflict policy when the identity already holds a link
// for the provider.
func (f *Flow) attachLink(ctx context.Context, ident *identity.Identity, remote *RemoteIdentity) error {
	link := &identity.FederatedLink{
		Provider:   remote.Provider,
		Subject:    remote.Subject,
		IdentityID: ident.ID,
		Email:      remote.Email,
		LinkedAt:   f.now(),
	}
	err := f.repo.CreateFederatedLink(ctx, link)
	if autherr.CodeOf(err) != autherr.ErrCodeConflict {
		return err
	}

	if f.cfg.OnConflict != ConflictRelink {
		return autherr.IdentityConflict(remote.Provider)
	}
	if err := f.repo.DeleteFederatedLink(ctx, remote.Provider, ident.ID); err != nil &&
		autherr.CodeOf(err) != autherr.ErrCodeNotFound {
		return err
	}
	if err := f.repo.CreateFederatedLink(ctx, link); err != nil {
		// The subject itself is claimed by a different identity; relinking
		// our own slot cannot resolve that.
		if autherr.CodeOf(err) == autherr.ErrCodeConflict {
			return autherr.IdentityConflict(remote.Provider)
		}
		return err
	}
	f.log.Warn("federated link replaced",
		logger.Fields("provider", remote.Provider, "identity_id", ident.ID))
	return nil
}

func (f *Flow) provision(ctx context.Context, remote *RemoteIdentity) (*identity.Identity, error) {
	lookupKey := remote.Email
	if lookupKey == "" {
		lookupKey = remote.Provider + ":" + remote.Subject
	}
	now := f.now()
	ident := &identity.Identity{
		ID:          f.newID(),
		LookupKey:   lookupKey,
		DisplayName: remote.DisplayName(),
		CreatedAt:   now,
	}
	if err := f.repo.Create(ctx, ident); err != nil {
		// The lookup key belongs to an existing account this login is not
		// allowed to attach to.
		if autherr.CodeOf(err) == autherr.ErrCodeConflict {
			return nil, autherr.IdentityConflict(remote.Provider)
		}
		return nil, err
	}
	if err := f.repo.CreateFederatedLink(ctx, &identity.FederatedLink{
		Provider:   remote.Provider,
		Subject:    remote.Subject,
		IdentityID: ident.ID,
		Email:      remote.Email,
		LinkedAt:   now,
	}); err != nil {
		// Do not leave a linkless, credentialless identity holding the
		// lookup key.
		if delErr := f.repo.Delete(ctx, ident.ID); delErr != nil {
			f.log.Error("cleanup of half-provisioned identity failed",
				logger.Fields("identity_id", ident.ID))
		}
		return nil, err
	}
	f.touch(ctx, ident)
	f.log.Info("identity auto-provisioned",
		logger.Fields("provider", remote.Provider, "identity_id", ident.ID))
	return ident, nil
}

// touch records the authentication time. Failures are logged, not fatal.
func (f *Flow) touch(ctx context.Context, ident *identity.Identity) {
	at := f.now()
	if err := f.repo.TouchLastAuthenticated(ctx, ident.ID, at); err != nil {
		f.log.Warn("failed to record authentication time",
			logger.Fields("identity_id", ident.ID))
		return
	}
	ident.LastAuthenticatedAt = at
}
