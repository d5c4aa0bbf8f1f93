package twofa

import (
	"context"
	"errors"
	"time"

	"github.com/plantops/trustkit/pkg/audit"
	"github.com/plantops/trustkit/pkg/qrcode"
	"github.com/plantops/trustkit/pkg/totp"

	"github.com/google/uuid"
)

// DefaultPendingTTL bounds how long an unconfirmed enrollment stays
// confirmable. After that the secret is dead weight and setup starts over.
const DefaultPendingTTL = 30 * time.Minute

const qrSize = 256

// Service implements the two-factor enrollment and verification flows.
// Secrets are encrypted before they reach the store; every state change and
// every failed verification is written to the audit trail.
type Service struct {
	store      Store
	auditor    *audit.Logger
	issuer     string
	encKey     []byte
	pepper     []byte
	window     int
	pendingTTL time.Duration
	renderQR   func(content string, size int) (string, error)
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock, used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDriftWindow sets how many 30-second steps either side of now a code is
// accepted in. Zero disables drift tolerance.
func WithDriftWindow(window int) Option {
	return func(s *Service) {
		if window >= 0 {
			s.window = window
		}
	}
}

// WithPendingTTL overrides how long an unconfirmed setup remains valid.
func WithPendingTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.pendingTTL = ttl
		}
	}
}

// WithQRRenderer replaces the QR data-URI renderer.
func WithQRRenderer(render func(content string, size int) (string, error)) Option {
	return func(s *Service) {
		if render != nil {
			s.renderQR = render
		}
	}
}

// NewService creates the two-factor engine. The encryption key in cfg must
// be a base64-encoded 32-byte key; the pepper must be non-empty.
func NewService(store Store, auditor *audit.Logger, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.Join(ErrInvalidConfig, errors.New("store is required"))
	}
	if auditor == nil {
		return nil, errors.Join(ErrInvalidConfig, errors.New("auditor is required"))
	}
	if cfg.Issuer == "" {
		return nil, errors.Join(ErrInvalidConfig, errors.New("issuer is required"))
	}
	if cfg.RecoveryPepper == "" {
		return nil, errors.Join(ErrInvalidConfig, errors.New("recovery pepper is required"))
	}

	encKey, err := totp.DecodeEncryptionKey(cfg.EncryptionKey)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	s := &Service{
		store:      store,
		auditor:    auditor,
		issuer:     cfg.Issuer,
		encKey:     encKey,
		pepper:     []byte(cfg.RecoveryPepper),
		window:     totp.DefaultWindow,
		pendingTTL: DefaultPendingTTL,
		renderQR:   qrcode.GenerateDataURI,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Status returns the user's two-factor state. A user with no settings row is
// simply not enrolled; that is not an error.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (Status, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSettingsNotFound) {
			return Status{}, nil
		}
		return Status{}, errors.Join(ErrStoreFailed, err)
	}

	status := Status{
		Enabled:      settings.Enabled,
		PendingSetup: settings.setupActive(s.now().UTC()),
	}
	if settings.Enabled {
		remaining, err := s.store.CountRecoveryCodes(ctx, userID)
		if err != nil {
			return Status{}, errors.Join(ErrStoreFailed, err)
		}
		status.RecoveryCodesRemaining = remaining
	}
	return status, nil
}

// Setup begins enrollment: generates a fresh secret, stores it encrypted in
// pending state, and returns the material the user needs to register an
// authenticator. Calling Setup again before confirming replaces the pending
// secret. Nothing is binding until Confirm succeeds.
func (s *Service) Setup(ctx context.Context, orgID, userID uuid.UUID, accountName string) (Enrollment, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil && !errors.Is(err, ErrSettingsNotFound) {
		return Enrollment{}, errors.Join(ErrStoreFailed, err)
	}
	if settings.Enabled {
		return Enrollment{}, ErrAlreadyEnabled
	}

	secret, err := totp.GenerateSecretKey()
	if err != nil {
		return Enrollment{}, err
	}
	encrypted, err := totp.EncryptSecret(secret, s.encKey)
	if err != nil {
		return Enrollment{}, err
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.pendingTTL)
	if err := s.store.SaveSettings(ctx, Settings{
		UserID:           userID,
		OrgID:            orgID,
		Pending:          true,
		EncryptedSecret:  encrypted,
		PendingExpiresAt: &expiresAt,
		UpdatedAt:        now,
	}); err != nil {
		return Enrollment{}, errors.Join(ErrStoreFailed, err)
	}

	uri, err := totp.GenerateURI(totp.URIParams{
		Secret:      secret,
		AccountName: accountName,
		Issuer:      s.issuer,
	})
	if err != nil {
		return Enrollment{}, err
	}
	qr, err := s.renderQR(uri, qrSize)
	if err != nil {
		return Enrollment{}, err
	}

	return Enrollment{
		Secret:    secret,
		URI:       uri,
		QRCode:    qr,
		ExpiresAt: expiresAt,
	}, nil
}

// Confirm completes enrollment by proving the user's authenticator produces
// valid codes. On success two-factor becomes enabled and a fresh recovery
// code set is returned in plaintext, exactly once.
func (s *Service) Confirm(ctx context.Context, orgID, userID uuid.UUID, code string) ([]string, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSettingsNotFound) {
			return nil, ErrSetupNotStarted
		}
		return nil, errors.Join(ErrStoreFailed, err)
	}
	if settings.Enabled {
		return nil, ErrAlreadyEnabled
	}
	if !settings.Pending {
		return nil, ErrSetupNotStarted
	}

	now := s.now().UTC()
	if !settings.setupActive(now) {
		// The pending secret is dead; drop the row rather than leaving an
		// unconfirmable encrypted secret in storage.
		if err := s.store.DeleteSettings(ctx, userID); err != nil {
			return nil, errors.Join(ErrStoreFailed, err)
		}
		return nil, ErrSetupExpired
	}

	secret, err := totp.DecryptSecret(settings.EncryptedSecret, s.encKey)
	if err != nil {
		return nil, err
	}
	valid, err := totp.ValidateCodeAt(secret, code, now, s.window)
	if err != nil && !errors.Is(err, totp.ErrInvalidCodeFormat) {
		return nil, err
	}
	if !valid {
		s.recordFailure(ctx, orgID, userID, "invalid_code", "confirm")
		return nil, ErrInvalidCode
	}

	settings.Enabled = true
	settings.Pending = false
	settings.PendingExpiresAt = nil
	settings.EnabledAt = &now
	settings.UpdatedAt = now
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}

	codes, err := s.issueRecoveryCodes(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.auditor.Record(ctx, audit.ActionTwoFAEnabled,
		audit.WithOrg(orgID),
		audit.WithActor(userID),
		audit.WithEntity("user", userID.String()),
	); err != nil {
		return nil, err
	}
	return codes, nil
}

// Verify checks a TOTP code against the user's enabled secret, accepting
// codes one step either side of now for clock drift.
func (s *Service) Verify(ctx context.Context, orgID, userID uuid.UUID, code string) error {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSettingsNotFound) {
			return ErrNotEnabled
		}
		return errors.Join(ErrStoreFailed, err)
	}
	if !settings.Enabled {
		return ErrNotEnabled
	}

	secret, err := totp.DecryptSecret(settings.EncryptedSecret, s.encKey)
	if err != nil {
		return err
	}
	valid, err := totp.ValidateCodeAt(secret, code, s.now().UTC(), s.window)
	if err != nil && !errors.Is(err, totp.ErrInvalidCodeFormat) {
		return err
	}
	if !valid {
		s.recordFailure(ctx, orgID, userID, "invalid_code", "verify")
		return ErrInvalidCode
	}
	return nil
}

// VerifyRecoveryCode consumes a one-time recovery code. Consumption is a
// single conditional delete at the store, so a code can never verify twice
// even under concurrent submission.
func (s *Service) VerifyRecoveryCode(ctx context.Context, orgID, userID uuid.UUID, code string) error {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSettingsNotFound) {
			return ErrNotEnabled
		}
		return errors.Join(ErrStoreFailed, err)
	}
	if !settings.Enabled {
		return ErrNotEnabled
	}

	consumed, err := s.store.ConsumeRecoveryCode(ctx, userID, HashRecoveryCode(code, s.pepper))
	if err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	if consumed == 0 {
		s.recordFailure(ctx, orgID, userID, "invalid_recovery_code", "recovery")
		return ErrInvalidRecoveryCode
	}
	return nil
}

// RegenerateRecoveryCodes replaces the entire code set and returns the new
// plaintext codes. Requires a valid current TOTP code: possession of a
// session alone must not be enough to rotate recovery material.
func (s *Service) RegenerateRecoveryCodes(ctx context.Context, orgID, userID uuid.UUID, code string) ([]string, error) {
	if err := s.Verify(ctx, orgID, userID, code); err != nil {
		return nil, err
	}

	codes, err := s.issueRecoveryCodes(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.auditor.Record(ctx, audit.ActionTwoFARecovery,
		audit.WithOrg(orgID),
		audit.WithActor(userID),
		audit.WithEntity("user", userID.String()),
	); err != nil {
		return nil, err
	}
	return codes, nil
}

// Disable turns two-factor off after verifying either a current TOTP code or
// an unused recovery code. Settings and the remaining code set are removed.
func (s *Service) Disable(ctx context.Context, orgID, userID uuid.UUID, code string) error {
	if err := s.Verify(ctx, orgID, userID, code); err != nil {
		if !errors.Is(err, ErrInvalidCode) {
			return err
		}
		if err := s.VerifyRecoveryCode(ctx, orgID, userID, code); err != nil {
			return ErrInvalidCode
		}
	}

	if err := s.store.DeleteSettings(ctx, userID); err != nil {
		return errors.Join(ErrStoreFailed, err)
	}

	if _, err := s.auditor.Record(ctx, audit.ActionTwoFADisabled,
		audit.WithOrg(orgID),
		audit.WithActor(userID),
		audit.WithEntity("user", userID.String()),
	); err != nil {
		return err
	}
	return nil
}

// issueRecoveryCodes generates a full set and swaps it into the store,
// returning the plaintext codes.
func (s *Service) issueRecoveryCodes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	codes, err := GenerateRecoveryCodes(RecoveryCodeCount)
	if err != nil {
		return nil, err
	}

	hashes := make([]string, len(codes))
	for i, code := range codes {
		hashes[i] = HashRecoveryCode(code, s.pepper)
	}
	if err := s.store.ReplaceRecoveryCodes(ctx, userID, hashes); err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}
	return codes, nil
}

// recordFailure writes the failed attempt to the audit trail, best effort.
func (s *Service) recordFailure(ctx context.Context, orgID, userID uuid.UUID, reason, stage string) {
	_, _ = s.auditor.Record(ctx, audit.ActionTwoFAFailed,
		audit.WithOrg(orgID),
		audit.WithActor(userID),
		audit.WithEntity("user", userID.String()),
		audit.WithChange(nil, map[string]any{"reason": reason, "stage": stage}),
	)
}
