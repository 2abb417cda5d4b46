package domain

// SubscriptionStatus is the derived entitlement state for an organization at
// a point in time. It is computed, never persisted.
type SubscriptionStatus struct {
	Active             bool
	Plan               Plan
	TrialDaysRemaining int

	// Status passes through the organization's externally reconciled billing
	// status.
	Status string
}
