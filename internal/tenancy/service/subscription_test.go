package service

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionEvaluate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	policy := SubscriptionPolicy{}

	t.Run("trial mid-window is active with days rounded up", func(t *testing.T) {
		org := domain.Organization{
			Plan:           domain.PlanTrial,
			Status:         "active",
			TrialStartedAt: now.Add(-10 * 24 * time.Hour),
		}

		status := policy.Evaluate(org, now)
		require.True(t, status.Active)
		require.Equal(t, 4, status.TrialDaysRemaining)
		require.Equal(t, domain.PlanTrial, status.Plan)
	})

	t.Run("partial day remaining still counts as one", func(t *testing.T) {
		org := domain.Organization{
			Plan:           domain.PlanTrial,
			TrialStartedAt: now.Add(-13*24*time.Hour - 23*time.Hour),
		}

		status := policy.Evaluate(org, now)
		require.True(t, status.Active)
		require.Equal(t, 1, status.TrialDaysRemaining)
	})

	t.Run("trial past the window is inactive", func(t *testing.T) {
		org := domain.Organization{
			Plan:           domain.PlanTrial,
			TrialStartedAt: now.Add(-15 * 24 * time.Hour),
		}

		status := policy.Evaluate(org, now)
		require.False(t, status.Active)
		require.Zero(t, status.TrialDaysRemaining)
	})

	t.Run("trial ending this instant is inactive", func(t *testing.T) {
		org := domain.Organization{
			Plan:           domain.PlanTrial,
			TrialStartedAt: now.Add(-14 * 24 * time.Hour),
		}

		require.False(t, policy.Evaluate(org, now).Active)
	})

	t.Run("owner organization bypasses all gating", func(t *testing.T) {
		org := domain.Organization{
			Plan:   domain.PlanOwner,
			Status: "canceled",
		}

		status := policy.Evaluate(org, now)
		require.True(t, status.Active)
		require.Zero(t, status.TrialDaysRemaining)
	})

	t.Run("paid plan follows the reconciled billing status", func(t *testing.T) {
		org := domain.Organization{Plan: domain.PlanBusiness, Status: "active"}
		require.True(t, policy.Evaluate(org, now).Active)

		org.Status = "past_due"
		require.False(t, policy.Evaluate(org, now).Active)
	})

	t.Run("configured trial length overrides the default", func(t *testing.T) {
		short := SubscriptionPolicy{TrialLength: 48 * time.Hour}
		org := domain.Organization{
			Plan:           domain.PlanTrial,
			TrialStartedAt: now.Add(-3 * 24 * time.Hour),
		}

		require.False(t, short.Evaluate(org, now).Active)
		require.True(t, policy.Evaluate(org, now).Active)
	})
}
