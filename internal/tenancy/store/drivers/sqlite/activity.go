package sqlite

import (
	"context"
	"encoding/json"

	"github.com/aussiebroadwan/tenancy/internal/tenancy/domain"
)

type activityRepo struct {
	db dbtx
}

func (r *activityRepo) LogActivity(ctx context.Context, ev domain.ActivityEvent) error {
	payload := "{}"
	if len(ev.Payload) > 0 {
		raw, err := json.Marshal(ev.Payload)
		if err != nil {
			return err
		}
		payload = string(raw)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, event_type, actor_id, org_id, payload, at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Type, ev.ActorID, ev.OrgID, payload, ev.At,
	)
	return err
}
