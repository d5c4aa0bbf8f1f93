package security_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/plantops/trustkit/pkg/apikey"
	"github.com/plantops/trustkit/pkg/audit"
	"github.com/plantops/trustkit/pkg/limits"
	"github.com/plantops/trustkit/pkg/ratelimit"
	"github.com/plantops/trustkit/pkg/totp"
	"github.com/plantops/trustkit/pkg/twofa"
	"github.com/plantops/trustkit/svc/security"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc    *security.Service
	trail  *audit.MemoryStorage
	reader *audit.Reader
	actor  security.Actor
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		trail: audit.NewMemoryStorage(),
		actor: security.Actor{
			UserID:    uuid.New(),
			OrgID:     uuid.New(),
			IP:        "203.0.113.7",
			UserAgent: "trustkit-test",
		},
		now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.reader = audit.NewReader(f.trail)
	clock := func() time.Time { return f.now }

	auditor := audit.NewLogger(f.trail, security.AuditExtractors()...)

	encKey, err := totp.GenerateEncryptionKey()
	require.NoError(t, err)
	twoFA, err := twofa.NewService(twofa.NewMemoryStore(), auditor, twofa.Config{
		Issuer:         "PlantOps",
		EncryptionKey:  encKey,
		RecoveryPepper: "test-pepper",
	}, twofa.WithClock(clock))
	require.NoError(t, err)

	keyStore := apikey.NewMemoryStore()
	keys := apikey.NewService(keyStore, auditor, apikey.WithClock(clock))

	counters := limits.NewRegistry()
	counters.Register(limits.ResourceAPIKeys, keys.Counter())
	gate, err := limits.NewService(nil, counters, func(ctx context.Context, orgID uuid.UUID) (limits.Tier, error) {
		return limits.TierPro, nil
	})
	require.NoError(t, err)

	throttle, err := ratelimit.NewWindow(
		ratelimit.NewMemoryStore().WithClock(clock), security.DefaultVerifyLimit)
	require.NoError(t, err)

	f.svc, err = security.New(security.Deps{
		TwoFA:    twoFA,
		Keys:     keys,
		Auditor:  auditor,
		Reader:   f.reader,
		Gate:     gate,
		Throttle: throttle,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) enroll(t *testing.T) (string, []string) {
	t.Helper()

	enrollment, err := f.svc.BeginTwoFactorSetup(context.Background(), f.actor, "user@example.com")
	require.NoError(t, err)

	code, err := totp.GenerateCode(enrollment.Secret, f.now)
	require.NoError(t, err)
	codes, err := f.svc.ConfirmTwoFactorSetup(context.Background(), f.actor, code)
	require.NoError(t, err)
	return enrollment.Secret, codes
}

func TestService_VerifyTwoFactor(t *testing.T) {
	t.Parallel()

	t.Run("totp code completes login", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		secret, _ := f.enroll(t)

		code, err := totp.GenerateCode(secret, f.now)
		require.NoError(t, err)
		require.NoError(t, f.svc.VerifyTwoFactor(context.Background(), f.actor, code))

		entries, _, err := f.svc.SecurityActivity(context.Background(), f.actor, audit.Criteria{})
		require.NoError(t, err)
		var sawLogin bool
		for _, e := range entries {
			if e.Action == audit.ActionLogin {
				sawLogin = true
			}
		}
		assert.True(t, sawLogin)
	})

	t.Run("recovery code is accepted as second factor", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, codes := f.enroll(t)

		require.NoError(t, f.svc.VerifyTwoFactor(context.Background(), f.actor, codes[0]))

		err := f.svc.VerifyTwoFactor(context.Background(), f.actor, codes[0])
		assert.ErrorIs(t, err, twofa.ErrInvalidCode, "recovery code must be one-time")
	})

	t.Run("attempts are throttled per user", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.enroll(t)

		for range security.DefaultVerifyLimit.Limit {
			err := f.svc.VerifyTwoFactor(context.Background(), f.actor, "000000")
			require.ErrorIs(t, err, twofa.ErrInvalidCode)
		}

		err := f.svc.VerifyTwoFactor(context.Background(), f.actor, "000000")
		assert.ErrorIs(t, err, security.ErrTooManyAttempts)

		// Another user from another address is unaffected.
		other := f.actor
		other.UserID = uuid.New()
		other.IP = "198.51.100.9"
		err = f.svc.VerifyTwoFactor(context.Background(), other, "000000")
		assert.NotErrorIs(t, err, security.ErrTooManyAttempts)
	})

	t.Run("attempts are throttled per client ip", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.enroll(t)

		// Burn the shared address's window across rotating user ids.
		for range security.DefaultVerifyLimit.Limit {
			attacker := f.actor
			attacker.UserID = uuid.New()
			err := f.svc.VerifyTwoFactor(context.Background(), attacker, "000000")
			require.NotErrorIs(t, err, security.ErrTooManyAttempts)
		}

		attacker := f.actor
		attacker.UserID = uuid.New()
		err := f.svc.VerifyTwoFactor(context.Background(), attacker, "000000")
		assert.ErrorIs(t, err, security.ErrTooManyAttempts)
	})

	t.Run("success clears the throttle window", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		secret, _ := f.enroll(t)

		for range security.DefaultVerifyLimit.Limit - 1 {
			require.Error(t, f.svc.VerifyTwoFactor(context.Background(), f.actor, "000000"))
		}

		code, err := totp.GenerateCode(secret, f.now)
		require.NoError(t, err)
		require.NoError(t, f.svc.VerifyTwoFactor(context.Background(), f.actor, code))

		// The run of failures is forgotten.
		for range security.DefaultVerifyLimit.Limit - 1 {
			err := f.svc.VerifyTwoFactor(context.Background(), f.actor, "000000")
			require.ErrorIs(t, err, twofa.ErrInvalidCode)
		}
	})
}

func TestService_APIKeys(t *testing.T) {
	t.Parallel()

	t.Run("create binds tenancy to the actor", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		key, plaintext, err := f.svc.CreateAPIKey(context.Background(), f.actor, apikey.CreateParams{
			Name:   "integration",
			Scopes: []string{"plants:read"},
			// A forged OrgID in the params must not stick.
			OrgID: uuid.New(),
		})
		require.NoError(t, err)
		assert.Equal(t, f.actor.OrgID, key.OrgID)
		assert.Equal(t, f.actor.UserID, key.CreatedBy)

		authed, err := f.svc.AuthenticateKey(context.Background(), plaintext, "plants:read")
		require.NoError(t, err)
		assert.Equal(t, key.ID, authed.ID)
	})

	t.Run("revoked key no longer authenticates", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		key, plaintext, err := f.svc.CreateAPIKey(context.Background(), f.actor, apikey.CreateParams{
			Name:   "short-lived",
			Scopes: []string{"plants:read"},
		})
		require.NoError(t, err)
		require.NoError(t, f.svc.RevokeAPIKey(context.Background(), f.actor, key.ID))

		_, err = f.svc.AuthenticateKey(context.Background(), plaintext, "plants:read")
		assert.ErrorIs(t, err, apikey.ErrNotAuthorized)
	})
}

func TestService_AuditTrail(t *testing.T) {
	t.Parallel()

	t.Run("export writes csv and records the export", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.enroll(t)

		var buf bytes.Buffer
		require.NoError(t, f.svc.ExportAuditTrail(context.Background(), f.actor, audit.Criteria{}, &buf))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		assert.Equal(t, "timestamp,actor,action,entity_type,entity_id,ip_address", lines[0])
		assert.GreaterOrEqual(t, len(lines), 2)

		entries, _, err := f.svc.AuditTrail(context.Background(), f.actor, audit.Criteria{
			Actions: []audit.Action{audit.ActionDataExported},
		})
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("context extractors stamp client details", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		ctx := security.WithActor(context.Background(), f.actor)
		f.enrollWithCtx(t, ctx)

		entries, _, err := f.svc.AuditTrail(ctx, f.actor, audit.Criteria{})
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		assert.Equal(t, "203.0.113.7", entries[0].IP)
		assert.Equal(t, "trustkit-test", entries[0].UserAgent)
	})
}

// enrollWithCtx mirrors enroll but threads the given context through so
// actor extractors fire.
func (f *fixture) enrollWithCtx(t *testing.T, ctx context.Context) {
	t.Helper()

	enrollment, err := f.svc.BeginTwoFactorSetup(ctx, f.actor, "user@example.com")
	require.NoError(t, err)
	code, err := totp.GenerateCode(enrollment.Secret, f.now)
	require.NoError(t, err)
	_, err = f.svc.ConfirmTwoFactorSetup(ctx, f.actor, code)
	require.NoError(t, err)
}

func TestService_Limits(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	// Pro tier admits 10 keys; usage starts at zero.
	require.NoError(t, f.svc.CheckLimit(context.Background(), f.actor, limits.ResourceAPIKeys))

	usage, err := f.svc.Usage(context.Background(), f.actor, limits.ResourceAPIKeys)
	require.NoError(t, err)
	assert.Zero(t, usage.Current)
	assert.Equal(t, int64(10), usage.Limit)
}
