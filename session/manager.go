// Package session orchestrates the access/refresh token lifecycle:
// issuance, validation, rotation, and revocation.
//
// Each token pair moves through Issued → Active → {Rotated | Revoked |
// Expired}. Rotation is one-way: refreshing marks the presented refresh
// token rotated and mints a successor inheriting the same rotation chain.
// Presenting an already-rotated refresh token is treated as evidence of
// theft — the whole chain is revoked before the failure is surfaced.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	autherr "github.com/skillsenselab/authcore/errors"
	"github.com/skillsenselab/authcore/logger"
	"github.com/skillsenselab/authcore/token"
)

// TokenPair is one issuance: a short-lived access token and its long-lived
// refresh counterpart, sharing a rotation-chain id.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	ChainID          string
}

// Manager drives the token pair state machine over a codec and a
// revocation-state collaborator. Safe for concurrent use.
type Manager struct {
	codec *token.Codec
	store RevocationStore
	cfg   Config
	now   func() time.Time
	log   *logger.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger injects a logger. Defaults to a no-op logger.
func WithLogger(log *logger.Logger) Option {
	return func(m *Manager) { m.log = log.WithComponent("session") }
}

// NewManager creates a session manager.
func NewManager(codec *token.Codec, store RevocationStore, cfg *Config, opts ...Option) (*Manager, error) {
	if codec == nil {
		return nil, autherr.InvalidConfig("session", "token codec is required")
	}
	if store == nil {
		return nil, autherr.InvalidConfig("session", "revocation store is required")
	}
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, autherr.InvalidConfig("session", err.Error()).WithCause(err)
	}
	m := &Manager{codec: codec, store: store, cfg: c, now: time.Now, log: logger.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue mints a fresh access/refresh pair for the identity with a new
// rotation-chain id.
func (m *Manager) Issue(ctx context.Context, identityID, scope string) (*TokenPair, error) {
	if identityID == "" {
		return nil, fmt.Errorf("session: issue: identity id is required")
	}
	return m.mint(identityID, scope, uuid.NewString())
}

// Refresh rotates the presented refresh token: the token is atomically
// marked rotated and a successor pair is minted on the same chain.
//
// Reuse of an already-rotated token revokes the entire chain and returns a
// TOKEN_REUSE_DETECTED error — rotation is strictly single-use.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := m.codec.Decode(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != token.TypeRefresh {
		return nil, autherr.Token(autherr.ErrCodeTokenWrongType, "Refresh requires a refresh token.")
	}

	if err := m.checkRevocation(ctx, claims); err != nil {
		return nil, err
	}

	successorID := uuid.NewString()
	if err := m.store.MarkRotated(ctx, claims.ID, successorID); err != nil {
		if autherr.CodeOf(err) == autherr.ErrCodeConflict {
			// The token was already rotated: someone is replaying it.
			// Kill the whole chain before reporting.
			if revokeErr := m.store.MarkRevoked(ctx, claims.ChainID); revokeErr != nil {
				m.log.Error("chain revocation after reuse failed",
					logger.Fields("chain_id", claims.ChainID))
				return nil, autherr.Backend(revokeErr)
			}
			m.log.Warn("refresh token reuse detected, chain revoked",
				logger.Fields("chain_id", claims.ChainID, "subject", claims.Subject))
			return nil, autherr.TokenReuse(claims.ChainID)
		}
		return nil, autherr.Backend(err)
	}

	pair, err := m.mintWithIDs(claims.Subject, claims.Scope, claims.ChainID, uuid.NewString(), successorID)
	if err != nil {
		return nil, err
	}
	m.log.Debug("refresh token rotated",
		logger.Fields("chain_id", claims.ChainID, "subject", claims.Subject))
	return pair, nil
}

// Validate decodes and verifies an access token, then checks revocation
// state: the token id, its chain, and subject-wide revocation.
func (m *Manager) Validate(ctx context.Context, accessToken string) (*token.Claims, error) {
	claims, err := m.codec.Decode(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != token.TypeAccess {
		return nil, autherr.Token(autherr.ErrCodeTokenWrongType, "Validate requires an access token.")
	}
	if err := m.checkRevocation(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Revoke marks a token or chain id revoked. Idempotent: revoking twice is
// not an error.
func (m *Manager) Revoke(ctx context.Context, tokenOrChainID string) error {
	if tokenOrChainID == "" {
		return fmt.Errorf("session: revoke: id is required")
	}
	if err := m.store.MarkRevoked(ctx, tokenOrChainID); err != nil {
		return autherr.Backend(err)
	}
	return nil
}

// RevokeToken revokes the chain of the presented token (access or
// refresh), logging the session out. The token's signature must verify; an
// expired token is still accepted since revoking it is harmless and the
// chain may outlive it.
func (m *Manager) RevokeToken(ctx context.Context, tokenString string) error {
	claims, err := m.codec.Decode(tokenString)
	if err != nil {
		if autherr.CodeOf(err) != autherr.ErrCodeTokenExpired {
			return err
		}
		// Expired tokens cannot be decoded through the verifying path
		// again; the chain id is unavailable, so there is nothing to do.
		return nil
	}
	if claims.ChainID == "" {
		return m.Revoke(ctx, claims.ID)
	}
	return m.Revoke(ctx, claims.ChainID)
}

// RevokeSubject invalidates every outstanding token for the subject
// (logout-all). Tokens issued after this call are unaffected.
//
// The cutoff is truncated to whole seconds because issued-at claims
// round-trip the wire at second precision; a pair minted in the same
// instant as the cutoff stays valid.
func (m *Manager) RevokeSubject(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return fmt.Errorf("session: revoke subject: id is required")
	}
	if err := m.store.RevokeSubject(ctx, subjectID, m.now().Truncate(time.Second)); err != nil {
		return autherr.Backend(err)
	}
	return nil
}

func (m *Manager) checkRevocation(ctx context.Context, claims *token.Claims) error {
	for _, id := range []string{claims.ID, claims.ChainID} {
		if id == "" {
			continue
		}
		revoked, err := m.store.IsRevoked(ctx, id)
		if err != nil {
			return autherr.Backend(err)
		}
		if revoked {
			return autherr.TokenRevoked()
		}
	}
	revoked, err := m.store.IsSubjectRevoked(ctx, claims.Subject, claims.IssuedAt)
	if err != nil {
		return autherr.Backend(err)
	}
	if revoked {
		return autherr.TokenRevoked()
	}
	return nil
}

func (m *Manager) mint(identityID, scope, chainID string) (*TokenPair, error) {
	return m.mintWithIDs(identityID, scope, chainID, uuid.NewString(), uuid.NewString())
}

func (m *Manager) mintWithIDs(identityID, scope, chainID, accessID, refreshID string) (*TokenPair, error) {
	now := m.now()
	accessExpiry := now.Add(m.cfg.AccessTokenTTL)
	refreshExpiry := now.Add(m.cfg.RefreshTokenTTL)

	access, err := m.codec.Encode(&token.Claims{
		Subject:   identityID,
		TokenType: token.TypeAccess,
		ID:        accessID,
		ChainID:   chainID,
		Scope:     scope,
		IssuedAt:  now,
		ExpiresAt: accessExpiry,
	})
	if err != nil {
		return nil, err
	}

	refresh, err := m.codec.Encode(&token.Claims{
		Subject:   identityID,
		TokenType: token.TypeRefresh,
		ID:        refreshID,
		ChainID:   chainID,
		Scope:     scope,
		IssuedAt:  now,
		ExpiresAt: refreshExpiry,
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
		ChainID:          chainID,
	}, nil
}
