package security

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/plantops/trustkit/pkg/apikey"
	"github.com/plantops/trustkit/pkg/audit"
	"github.com/plantops/trustkit/pkg/limits"
	"github.com/plantops/trustkit/pkg/ratelimit"
	"github.com/plantops/trustkit/pkg/twofa"

	"github.com/google/uuid"
)

// ErrTooManyAttempts is returned when verification attempts exceed the
// throttle. The caller should surface the retry-after hint.
var ErrTooManyAttempts = errors.New("security: too many attempts, slow down")

// DefaultVerifyLimit throttles second-factor attempts per user: 5 tries per
// 5-minute window.
var DefaultVerifyLimit = ratelimit.Config{Limit: 5, Window: 5 * time.Minute}

// Service is the single entry point the rest of the platform talks to for
// trust and access decisions: two-factor flows, API key lifecycle and
// authentication, plan ceilings, and the audit trail.
type Service struct {
	twoFA    *twofa.Service
	keys     *apikey.Service
	auditor  *audit.Logger
	reader   *audit.Reader
	gate     *limits.Service
	throttle *ratelimit.Window
	log      *slog.Logger
}

// Deps lists the collaborators the facade composes. All fields are required
// except Log, which defaults to slog.Default().
type Deps struct {
	TwoFA    *twofa.Service
	Keys     *apikey.Service
	Auditor  *audit.Logger
	Reader   *audit.Reader
	Gate     *limits.Service
	Throttle *ratelimit.Window
	Log      *slog.Logger
}

// New wires the facade.
func New(deps Deps) (*Service, error) {
	if deps.TwoFA == nil || deps.Keys == nil || deps.Auditor == nil ||
		deps.Reader == nil || deps.Gate == nil || deps.Throttle == nil {
		return nil, errors.New("security: all collaborators are required")
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	return &Service{
		twoFA:    deps.TwoFA,
		keys:     deps.Keys,
		auditor:  deps.Auditor,
		reader:   deps.Reader,
		gate:     deps.Gate,
		throttle: deps.Throttle,
		log:      deps.Log,
	}, nil
}

// --- Two-factor flows ---

// TwoFactorStatus reports the actor's two-factor state.
func (s *Service) TwoFactorStatus(ctx context.Context, actor Actor) (twofa.Status, error) {
	return s.twoFA.Status(ctx, actor.UserID)
}

// BeginTwoFactorSetup starts enrollment for the actor.
func (s *Service) BeginTwoFactorSetup(ctx context.Context, actor Actor, accountName string) (twofa.Enrollment, error) {
	return s.twoFA.Setup(ctx, actor.OrgID, actor.UserID, accountName)
}

// ConfirmTwoFactorSetup completes enrollment and returns the one-time
// recovery codes.
func (s *Service) ConfirmTwoFactorSetup(ctx context.Context, actor Actor, code string) ([]string, error) {
	codes, err := s.twoFA.Confirm(ctx, actor.OrgID, actor.UserID, code)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "two-factor enabled", "user_id", actor.UserID)
	return codes, nil
}

// VerifyTwoFactor checks the actor's second factor, accepting either a TOTP
// code or an unused recovery code. Attempts are throttled per user and per
// client IP; a successful verification clears both throttle windows and is
// recorded as a completed login.
func (s *Service) VerifyTwoFactor(ctx context.Context, actor Actor, code string) error {
	throttleKeys := []string{"2fa:user:" + actor.UserID.String()}
	if actor.IP != "" {
		throttleKeys = append(throttleKeys, "2fa:ip:"+actor.IP)
	}
	for _, key := range throttleKeys {
		result, err := s.throttle.Allow(ctx, key)
		if err != nil {
			return err
		}
		if !result.Allowed {
			s.log.WarnContext(ctx, "two-factor attempts throttled",
				"user_id", actor.UserID, "ip", actor.IP, "retry_after", result.RetryAfter())
			return fmt.Errorf("%w: retry after %s", ErrTooManyAttempts, result.RetryAfter().Round(time.Second))
		}
	}

	err := s.twoFA.Verify(ctx, actor.OrgID, actor.UserID, code)
	if errors.Is(err, twofa.ErrInvalidCode) {
		if rerr := s.twoFA.VerifyRecoveryCode(ctx, actor.OrgID, actor.UserID, code); rerr != nil {
			return twofa.ErrInvalidCode
		}
		err = nil
	}
	if err != nil {
		return err
	}

	for _, key := range throttleKeys {
		if err := s.throttle.Reset(ctx, key); err != nil {
			s.log.WarnContext(ctx, "failed to reset throttle window", "error", err)
		}
	}
	if _, err := s.auditor.Record(ctx, audit.ActionLogin,
		audit.WithOrg(actor.OrgID),
		audit.WithActor(actor.UserID),
		audit.WithEntity("user", actor.UserID.String()),
	); err != nil {
		return err
	}
	return nil
}

// RegenerateRecoveryCodes rotates the actor's recovery code set.
func (s *Service) RegenerateRecoveryCodes(ctx context.Context, actor Actor, code string) ([]string, error) {
	return s.twoFA.RegenerateRecoveryCodes(ctx, actor.OrgID, actor.UserID, code)
}

// DisableTwoFactor turns the actor's second factor off.
func (s *Service) DisableTwoFactor(ctx context.Context, actor Actor, code string) error {
	return s.twoFA.Disable(ctx, actor.OrgID, actor.UserID, code)
}

// --- API key lifecycle ---

// CreateAPIKey creates a key for the actor's organization after the plan
// gate admits one more.
func (s *Service) CreateAPIKey(ctx context.Context, actor Actor, params apikey.CreateParams) (apikey.Key, string, error) {
	params.OrgID = actor.OrgID
	params.CreatedBy = actor.UserID
	return s.keys.Create(ctx, params)
}

// AuthenticateKey authorizes an inbound plaintext key for the required
// scope. All failures are uniform ErrNotAuthorized.
func (s *Service) AuthenticateKey(ctx context.Context, plaintext, requiredScope string) (apikey.Key, error) {
	return s.keys.Authorize(ctx, plaintext, requiredScope)
}

// RevokeAPIKey irreversibly disables a key.
func (s *Service) RevokeAPIKey(ctx context.Context, actor Actor, keyID uuid.UUID) error {
	return s.keys.Revoke(ctx, actor.OrgID, keyID, actor.UserID)
}

// UpdateAPIKey changes a key's name, scopes, or rate limit.
func (s *Service) UpdateAPIKey(ctx context.Context, actor Actor, keyID uuid.UUID, params apikey.UpdateParams) (apikey.Key, error) {
	return s.keys.Update(ctx, actor.OrgID, keyID, params, actor.UserID)
}

// DeleteAPIKey hard-removes a key.
func (s *Service) DeleteAPIKey(ctx context.Context, actor Actor, keyID uuid.UUID) error {
	return s.keys.Delete(ctx, actor.OrgID, keyID, actor.UserID)
}

// ListAPIKeys returns the organization's keys, digests omitted.
func (s *Service) ListAPIKeys(ctx context.Context, actor Actor) ([]apikey.Key, error) {
	return s.keys.List(ctx, actor.OrgID)
}

// --- Audit trail ---

// AuditTrail returns a filtered page of the organization's audit log with
// the total match count.
func (s *Service) AuditTrail(ctx context.Context, actor Actor, criteria audit.Criteria) ([]audit.Entry, int64, error) {
	criteria.OrgID = actor.OrgID
	return s.reader.Find(ctx, criteria)
}

// SecurityActivity returns the page restricted to security-relevant
// actions.
func (s *Service) SecurityActivity(ctx context.Context, actor Actor, criteria audit.Criteria) ([]audit.Entry, int64, error) {
	criteria.OrgID = actor.OrgID
	return s.reader.FindSecurity(ctx, criteria)
}

// ActorActivity returns one user's activity trail.
func (s *Service) ActorActivity(ctx context.Context, actor Actor, subjectID uuid.UUID, limit, offset int) ([]audit.Entry, int64, error) {
	return s.reader.FindByActor(ctx, actor.OrgID, subjectID, limit, offset)
}

// AuditActions enumerates the closed action taxonomy grouped by category,
// for populating filter UIs.
func (s *Service) AuditActions() map[audit.Category][]audit.Action {
	return audit.Actions()
}

// ExportAuditTrail streams the matching entries as CSV and records the
// export itself in the trail.
func (s *Service) ExportAuditTrail(ctx context.Context, actor Actor, criteria audit.Criteria, w io.Writer) error {
	criteria.OrgID = actor.OrgID
	if err := s.reader.ExportCSV(ctx, w, criteria); err != nil {
		return err
	}

	if _, err := s.auditor.Record(ctx, audit.ActionDataExported,
		audit.WithOrg(actor.OrgID),
		audit.WithActor(actor.UserID),
		audit.WithEntity("audit_log", actor.OrgID.String()),
	); err != nil {
		return err
	}
	return nil
}

// PurgeAuditTrail removes entries older than the retention period. Operator
// action; returns the number of rows removed.
func (s *Service) PurgeAuditTrail(ctx context.Context, actor Actor, retentionDays int) (int64, error) {
	purged, err := s.reader.Purge(ctx, actor.OrgID, retentionDays)
	if err != nil {
		return 0, err
	}
	s.log.InfoContext(ctx, "audit trail purged",
		"org_id", actor.OrgID, "retention_days", retentionDays, "purged", purged)
	return purged, nil
}

// --- Plan ceilings ---

// CheckLimit reports whether the organization may create one more instance
// of the resource.
func (s *Service) CheckLimit(ctx context.Context, actor Actor, res limits.Resource) error {
	return s.gate.CheckLimit(ctx, actor.OrgID, res)
}

// Usage returns current usage against the plan ceiling for a resource.
func (s *Service) Usage(ctx context.Context, actor Actor, res limits.Resource) (limits.UsageInfo, error) {
	return s.gate.GetUsage(ctx, actor.OrgID, res)
}

// PlanSatisfies reports whether the organization's tier meets the minimum
// among the allowed tiers, for feature gating.
func (s *Service) PlanSatisfies(ctx context.Context, actor Actor, allowed ...limits.Tier) (bool, error) {
	return s.gate.PlanSatisfies(ctx, actor.OrgID, allowed...)
}
