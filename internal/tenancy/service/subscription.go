package service

import (
	"time"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
)

// DefaultTrialLength is how long a trial organization stays active before
// requiring a paid plan.
const DefaultTrialLength = 14 * 24 * time.Hour

// SubscriptionPolicy derives an organization's entitlement state at a point
// in time. Evaluation is total and deterministic: it never errors and never
// touches the store, so callers can run it on every request.
type SubscriptionPolicy struct {
	// TrialLength overrides DefaultTrialLength when positive.
	TrialLength time.Duration
}

func (p SubscriptionPolicy) trialLength() time.Duration {
	if p.TrialLength <= 0 {
		return DefaultTrialLength
	}
	return p.TrialLength
}

// Evaluate computes the subscription status for org at now.
//
// The operator-owned organization is always active. Trial organizations are
// active while any of the trial window remains, with the remaining time
// rounded up to whole days for display. Paid plans pass through the
// externally reconciled billing status.
func (p SubscriptionPolicy) Evaluate(org domain.Organization, now time.Time) domain.SubscriptionStatus {
	status := domain.SubscriptionStatus{
		Plan:   org.Plan,
		Status: org.Status,
	}

	if org.IsOwner() {
		status.Active = true
		return status
	}

	if org.Plan == domain.PlanTrial {
		remaining := p.trialLength() - now.Sub(org.TrialStartedAt)
		if remaining > 0 {
			status.Active = true
			status.TrialDaysRemaining = int((remaining + 24*time.Hour - 1) / (24 * time.Hour))
		}
		return status
	}

	status.Active = org.Status == "active"
	return status
}
