package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
	"github.com/aussiebroadwan/tenancy/internal/tenancy/store"
	"github.com/aussiebroadwan/tenancy/pkg/idx"
	"github.com/aussiebroadwan/tenancy/pkg/slogx"
)

// logActivity appends an audit event, best effort. A failed write is logged
// and swallowed; audit must never fail the operation that produced the event.
func logActivity(ctx context.Context, st store.Store, ev domain.ActivityEvent) {
	if ev.ID == "" {
		ev.ID = idx.New().String()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	if err := st.Activity().LogActivity(ctx, ev); err != nil {
		slogx.FromContext(ctx).Warn("failed to record activity event",
			slog.String("event_type", ev.Type),
			slog.String("org_id", ev.OrgID),
			slog.Any("error", err),
		)
	}
}
