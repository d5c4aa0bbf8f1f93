package apikey_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/plantops/trustkit/pkg/apikey"
	"github.com/plantops/trustkit/pkg/audit"
	"github.com/plantops/trustkit/pkg/limits"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc     *apikey.Service
	store   *apikey.MemoryStore
	trail   *audit.MemoryStorage
	reader  *audit.Reader
	orgID   uuid.UUID
	actorID uuid.UUID
	now     time.Time
}

func newFixture(t *testing.T, opts ...apikey.Option) *fixture {
	t.Helper()

	f := &fixture{
		store:   apikey.NewMemoryStore(),
		trail:   audit.NewMemoryStorage(),
		orgID:   uuid.New(),
		actorID: uuid.New(),
		now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.reader = audit.NewReader(f.trail)

	opts = append(opts, apikey.WithClock(func() time.Time { return f.now }))
	f.svc = apikey.NewService(f.store, audit.NewLogger(f.trail), opts...)
	return f
}

func (f *fixture) create(t *testing.T, scopes ...string) (apikey.Key, string) {
	t.Helper()

	key, plaintext, err := f.svc.Create(context.Background(), apikey.CreateParams{
		OrgID:     f.orgID,
		Name:      "ci key",
		Scopes:    scopes,
		CreatedBy: f.actorID,
	})
	require.NoError(t, err)
	return key, plaintext
}

func (f *fixture) auditedActions(t *testing.T) []audit.Action {
	t.Helper()

	entries, _, err := f.reader.Find(context.Background(), audit.Criteria{OrgID: f.orgID})
	require.NoError(t, err)
	actions := make([]audit.Action, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	return actions
}

func TestService_Create(t *testing.T) {
	t.Parallel()

	t.Run("plaintext format and single exposure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		key, plaintext := f.create(t, "plants:read")

		assert.True(t, strings.HasPrefix(plaintext, apikey.DefaultNamespace+"_"))
		assert.Len(t, key.KeyPrefix, apikey.PrefixLength)
		assert.Equal(t, plaintext[:apikey.PrefixLength], key.KeyPrefix)
		assert.Empty(t, key.KeyHash, "service must never expose the digest")
		assert.Equal(t, apikey.StatusActive, key.Status)

		// The digest stored is the digest of the returned plaintext.
		stored, err := f.store.GetByHash(context.Background(), apikey.HashKey(plaintext))
		require.NoError(t, err)
		assert.Equal(t, key.ID, stored.ID)

		assert.Equal(t, []audit.Action{audit.ActionAPIKeyCreated}, f.auditedActions(t))
	})

	t.Run("validation failures", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, _, err := f.svc.Create(context.Background(), apikey.CreateParams{
			OrgID: f.orgID, Name: "x", Scopes: nil, CreatedBy: f.actorID,
		})
		assert.ErrorIs(t, err, apikey.ErrValidation)

		_, _, err = f.svc.Create(context.Background(), apikey.CreateParams{
			OrgID: f.orgID, Name: "x", Scopes: []string{"rockets:launch"}, CreatedBy: f.actorID,
		})
		assert.ErrorIs(t, err, apikey.ErrValidation)

		_, _, err = f.svc.Create(context.Background(), apikey.CreateParams{
			OrgID: f.orgID, Name: "", Scopes: []string{"plants:read"}, CreatedBy: f.actorID,
		})
		assert.ErrorIs(t, err, apikey.ErrValidation)

		assert.Empty(t, f.auditedActions(t), "failed creations must not appear as created")
	})

	t.Run("expiry from days", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		key, _, err := f.svc.Create(context.Background(), apikey.CreateParams{
			OrgID: f.orgID, Name: "temp", Scopes: []string{"plants:read"},
			ExpiresInDays: 30, CreatedBy: f.actorID,
		})
		require.NoError(t, err)
		require.NotNil(t, key.ExpiresAt)
		assert.Equal(t, f.now.AddDate(0, 0, 30), *key.ExpiresAt)
	})

	t.Run("plan quota", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		// Rebuild the service with a starter-tier gate (ceiling: 2 keys)
		// counting keys through the store.
		counters := limits.NewRegistry()
		counters.Register(limits.ResourceAPIKeys, func(ctx context.Context, orgID uuid.UUID) (int64, error) {
			return f.store.CountByOrg(ctx, orgID)
		})
		gate, err := limits.NewService(nil, counters, func(ctx context.Context, orgID uuid.UUID) (limits.Tier, error) {
			return limits.TierStarter, nil
		})
		require.NoError(t, err)

		f.svc = apikey.NewService(f.store, audit.NewLogger(f.trail), apikey.WithQuotaGate(gate))

		for range 2 {
			f.create(t, "plants:read")
		}

		_, _, err = f.svc.Create(context.Background(), apikey.CreateParams{
			OrgID: f.orgID, Name: "third", Scopes: []string{"plants:read"}, CreatedBy: f.actorID,
		})
		require.ErrorIs(t, err, limits.ErrLimitExceeded)

		var limitErr *limits.LimitExceededError
		require.ErrorAs(t, err, &limitErr)
		assert.Equal(t, limits.ResourceAPIKeys, limitErr.Resource)
		assert.Equal(t, int64(2), limitErr.Limit)
	})
}

func TestService_Authorize(t *testing.T) {
	t.Parallel()

	t.Run("round trip and last used side effect", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, plaintext := f.create(t, "plants:read")

		key, err := f.svc.Authorize(context.Background(), plaintext, "plants:read")
		require.NoError(t, err)
		assert.Equal(t, f.orgID, key.OrgID)
		require.NotNil(t, key.LastUsedAt)
		assert.Equal(t, f.now, *key.LastUsedAt)
		assert.Empty(t, key.KeyHash)
	})

	t.Run("single character mutation fails", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, plaintext := f.create(t, "plants:read")

		mutated := []byte(plaintext)
		last := mutated[len(mutated)-1]
		if last == 'A' {
			mutated[len(mutated)-1] = 'B'
		} else {
			mutated[len(mutated)-1] = 'A'
		}

		_, err := f.svc.Authorize(context.Background(), string(mutated), "plants:read")
		assert.ErrorIs(t, err, apikey.ErrNotAuthorized)
	})

	t.Run("scope coverage", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, wildcard := f.create(t, "plants:*")
		_, global := f.create(t, "*")

		for _, scope := range []string{"plants:read", "plants:write"} {
			_, err := f.svc.Authorize(context.Background(), wildcard, scope)
			assert.NoError(t, err, scope)
		}
		_, err := f.svc.Authorize(context.Background(), wildcard, "analytics:read")
		assert.ErrorIs(t, err, apikey.ErrNotAuthorized)

		for _, scope := range []string{"plants:read", "analytics:read", "audit:read"} {
			_, err := f.svc.Authorize(context.Background(), global, scope)
			assert.NoError(t, err, scope)
		}
	})

	t.Run("failure modes are uniform but audited in detail", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		key, plaintext := f.create(t, "plants:read")

		require.NoError(t, f.svc.Revoke(context.Background(), f.orgID, key.ID, f.actorID))

		_, err := f.svc.Authorize(context.Background(), plaintext, "plants:read")
		assert.ErrorIs(t, err, apikey.ErrNotAuthorized)

		_, err = f.svc.Authorize(context.Background(), "ptk_completely-unknown", "plants:read")
		assert.ErrorIs(t, err, apikey.ErrNotAuthorized)

		entries, _, err := f.reader.Find(context.Background(), audit.Criteria{
			OrgID:   f.orgID,
			Actions: []audit.Action{audit.ActionAPIKeyAuthFailed},
		})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "revoked", entries[0].NewValue["reason"])
	})

	t.Run("expiry is a computed predicate", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, plaintext, err := f.svc.Create(context.Background(), apikey.CreateParams{
			OrgID: f.orgID, Name: "temp", Scopes: []string{"plants:read"},
			ExpiresInDays: 1, CreatedBy: f.actorID,
		})
		require.NoError(t, err)

		// Valid now.
		_, err = f.svc.Authorize(context.Background(), plaintext, "plants:read")
		require.NoError(t, err)

		// Two days later the same active row fails without any revoke.
		f.now = f.now.AddDate(0, 0, 2)
		_, err = f.svc.Authorize(context.Background(), plaintext, "plants:read")
		assert.ErrorIs(t, err, apikey.ErrNotAuthorized)

		stored, err := f.store.GetByHash(context.Background(), apikey.HashKey(plaintext))
		require.NoError(t, err)
		assert.Equal(t, apikey.StatusActive, stored.Status, "expiry must never be written to storage")
	})
}

func TestService_Revoke(t *testing.T) {
	t.Parallel()

	t.Run("sticky regardless of expiry", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		_, plaintext, err := f.svc.Create(context.Background(), apikey.CreateParams{
			OrgID: f.orgID, Name: "k", Scopes: []string{"plants:read"},
			ExpiresInDays: 365, CreatedBy: f.actorID,
		})
		require.NoError(t, err)

		stored, err := f.store.GetByHash(context.Background(), apikey.HashKey(plaintext))
		require.NoError(t, err)
		require.NoError(t, f.svc.Revoke(context.Background(), f.orgID, stored.ID, f.actorID))

		_, err = f.svc.Authorize(context.Background(), plaintext, "plants:read")
		assert.ErrorIs(t, err, apikey.ErrNotAuthorized)
	})

	t.Run("idempotency conflict", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		key, _ := f.create(t, "plants:read")

		require.NoError(t, f.svc.Revoke(context.Background(), f.orgID, key.ID, f.actorID))
		assert.ErrorIs(t, f.svc.Revoke(context.Background(), f.orgID, key.ID, f.actorID), apikey.ErrAlreadyRevoked)
		assert.ErrorIs(t, f.svc.Revoke(context.Background(), f.orgID, uuid.New(), f.actorID), apikey.ErrNotFound)
	})
}

func TestService_Update(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	key, _ := f.create(t, "plants:read")

	name := "renamed"
	updated, err := f.svc.Update(context.Background(), f.orgID, key.ID, apikey.UpdateParams{
		Name:   &name,
		Scopes: []string{"plants:*", "analytics:read"},
	}, f.actorID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, []string{"analytics:read", "plants:*"}, updated.Scopes)

	require.NoError(t, f.svc.Revoke(context.Background(), f.orgID, key.ID, f.actorID))

	_, err = f.svc.Update(context.Background(), f.orgID, key.ID, apikey.UpdateParams{Name: &name}, f.actorID)
	assert.ErrorIs(t, err, apikey.ErrKeyRevoked, "updates must be blocked once revoked")
}

func TestService_Delete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	key, _ := f.create(t, "plants:read")

	require.NoError(t, f.svc.Delete(context.Background(), f.orgID, key.ID, f.actorID))

	_, err := f.svc.Get(context.Background(), f.orgID, key.ID)
	assert.ErrorIs(t, err, apikey.ErrNotFound)

	// The audit entry preserves the prior state of the vanished row.
	entries, _, err := f.reader.Find(context.Background(), audit.Criteria{
		OrgID:   f.orgID,
		Actions: []audit.Action{audit.ActionAPIKeyDeleted},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ci key", entries[0].OldValue["name"])
	assert.Nil(t, entries[0].NewValue)

	assert.ErrorIs(t, f.svc.Delete(context.Background(), f.orgID, key.ID, f.actorID), apikey.ErrNotFound)
}

func TestService_ListNeverExposesSecrets(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.create(t, "plants:read")
	f.create(t, "documents:read")

	keys, err := f.svc.List(context.Background(), f.orgID)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	for _, key := range keys {
		assert.Empty(t, key.KeyHash)
		assert.Len(t, key.KeyPrefix, apikey.PrefixLength)
	}
}
