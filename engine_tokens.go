package goInvite

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goInvite/internal"
	"github.com/MrEthical07/goInvite/token"
)

// CreateToken registers a new invitation token. An empty Value requests a
// generated short alphanumeric value; generation retries on collision up to
// the configured limit and then fails with [ErrGenerationExhausted]. An
// explicit Value that is already taken fails with [ErrDuplicateToken].
func (e *Engine) CreateToken(ctx context.Context, req CreateTokenRequest) (*Token, error) {
	if e == nil || e.tokenStore == nil {
		return nil, ErrEngineNotReady
	}

	if req.Quota < 1 || req.Quota > e.config.Token.MaxQuota {
		return nil, ErrQuotaInvalid
	}
	if req.Value != "" {
		if len(req.Value) < e.config.Token.MinValueLength || len(req.Value) > e.config.Token.MaxValueLength {
			return nil, ErrTokenValueInvalid
		}
	}

	t := &Token{
		ID:         uuid.NewString(),
		Value:      req.Value,
		OwnerLabel: req.OwnerLabel,
		Quota:      req.Quota,
		Active:     true,
		CreatedAt:  time.Now(),
	}

	if t.Value != "" {
		if err := e.tokenStore.Create(ctx, t); err != nil {
			return nil, storeErr(err)
		}
	} else if err := e.createGenerated(ctx, t); err != nil {
		return nil, err
	}

	e.metricInc(MetricTokenCreated)
	e.emitAudit(ctx, auditEventTokenCreated, true, "", t.Value, "", nil, func() map[string]string {
		return map[string]string{
			"quota": strconv.Itoa(t.Quota),
			"owner": t.OwnerLabel,
		}
	})
	return t, nil
}

// createGenerated fills t.Value with fresh random values until one is free.
// Collisions are rare at reasonable lengths but the space at the default
// length is small enough that a retry loop is mandatory.
func (e *Engine) createGenerated(ctx context.Context, t *Token) error {
	for attempt := 0; attempt < e.config.Token.GenerationRetries; attempt++ {
		value, err := internal.NewTokenValue(e.config.Token.GeneratedLength)
		if err != nil {
			return err
		}
		t.Value = value

		err = e.tokenStore.Create(ctx, t)
		if err == nil {
			return nil
		}
		if !errors.Is(err, token.ErrDuplicate) {
			return storeErr(err)
		}
	}
	return ErrGenerationExhausted
}

// GetToken retrieves a token by its value.
func (e *Engine) GetToken(ctx context.Context, value string) (*Token, error) {
	if e == nil || e.tokenStore == nil {
		return nil, ErrEngineNotReady
	}

	t, err := e.tokenStore.GetByValue(ctx, value)
	if err != nil {
		return nil, storeErr(err)
	}
	return t, nil
}

// GetTokenByID retrieves a token by its opaque ID.
func (e *Engine) GetTokenByID(ctx context.Context, id string) (*Token, error) {
	if e == nil || e.tokenStore == nil {
		return nil, ErrEngineNotReady
	}

	t, err := e.tokenStore.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return t, nil
}

// ListTokens returns tokens ordered by creation time descending, optionally
// filtered by activity state.
func (e *Engine) ListTokens(ctx context.Context, filter TokenFilter) ([]*Token, error) {
	if e == nil || e.tokenStore == nil {
		return nil, ErrEngineNotReady
	}

	tokens, err := e.tokenStore.List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	if filter == TokenFilterAll {
		return tokens, nil
	}

	filtered := tokens[:0]
	for _, t := range tokens {
		if (filter == TokenFilterActive) == t.Active {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// UpdateToken applies a partial update. Nil fields are untouched. The store
// re-derives the exhaustion invariant after the update: setting Active to
// true on a token whose uses still meet its quota leaves it inactive, and
// raising the quota above the use counter is the only way to make an
// exhausted token consumable again.
func (e *Engine) UpdateToken(ctx context.Context, id string, req UpdateTokenRequest) (*Token, error) {
	if e == nil || e.tokenStore == nil {
		return nil, ErrEngineNotReady
	}

	if req.Quota != nil && (*req.Quota < 1 || *req.Quota > e.config.Token.MaxQuota) {
		return nil, ErrQuotaInvalid
	}

	t, err := e.tokenStore.Update(ctx, id, req.OwnerLabel, req.Quota, req.Active)
	if err != nil {
		return nil, storeErr(err)
	}

	e.metricInc(MetricTokenUpdated)
	e.emitAudit(ctx, auditEventTokenUpdated, true, "", t.Value, "", nil, nil)
	return t, nil
}

// ActivateToken flips a token back to active. It stays inactive when its
// quota is already spent; raise the quota first via [Engine.UpdateToken].
func (e *Engine) ActivateToken(ctx context.Context, id string) (*Token, error) {
	t, err := e.setTokenActive(ctx, id, true)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricTokenActivated)
	e.emitAudit(ctx, auditEventTokenActivated, true, "", t.Value, "", nil, nil)
	return t, nil
}

// DeactivateToken disables a token. In-flight credentials remain signed but
// Authorize rejects them once the token is inactive.
func (e *Engine) DeactivateToken(ctx context.Context, id string) (*Token, error) {
	t, err := e.setTokenActive(ctx, id, false)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricTokenDeactivated)
	e.emitAudit(ctx, auditEventTokenDeactivated, true, "", t.Value, "", nil, nil)
	return t, nil
}

func (e *Engine) setTokenActive(ctx context.Context, id string, active bool) (*Token, error) {
	if e == nil || e.tokenStore == nil {
		return nil, ErrEngineNotReady
	}

	t, err := e.tokenStore.Update(ctx, id, nil, nil, &active)
	if err != nil {
		return nil, storeErr(err)
	}
	return t, nil
}

// DeleteToken removes a token record permanently. The bound identity and its
// sessions are retained; without the token, Authorize rejects their
// credentials with [ErrTokenNotFound].
func (e *Engine) DeleteToken(ctx context.Context, id string) error {
	if e == nil || e.tokenStore == nil {
		return ErrEngineNotReady
	}

	t, err := e.tokenStore.GetByID(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if err := e.tokenStore.Delete(ctx, id); err != nil {
		return storeErr(err)
	}

	e.metricInc(MetricTokenDeleted)
	e.emitAudit(ctx, auditEventTokenDeleted, true, "", t.Value, "", nil, nil)
	return nil
}

// GetIdentity resolves the identity bound to a token value, or
// [ErrIdentityNotFound] when the token was never consumed.
func (e *Engine) GetIdentity(ctx context.Context, tokenValue string) (*Identity, error) {
	if e == nil || e.tokenStore == nil {
		return nil, ErrEngineNotReady
	}

	identity, err := e.tokenStore.GetIdentityByToken(ctx, tokenValue)
	if err != nil {
		return nil, storeErr(err)
	}
	return identity, nil
}
