package domain

import "time"

// ActivityEvent is a fire-and-forget audit record. Logging failures must
// never fail the operation that produced the event.
type ActivityEvent struct {
	ID      string
	Type    string
	ActorID string
	OrgID   string
	Payload map[string]string
	At      time.Time
}

// Well-known activity event types.
const (
	ActivityOrgCreated        = "org.created"
	ActivityOrgUpdated        = "org.updated"
	ActivityMemberJoined      = "member.joined"
	ActivityMemberRemoved     = "member.removed"
	ActivityMemberRoleChanged = "member.role_changed"
	ActivityInvitationSent    = "invitation.sent"
	ActivityInviteCodeCreated = "invite_code.created"
	ActivityInviteCodeRevoked = "invite_code.revoked"
	ActivityInviteCodeUsed    = "invite_code.used"
)
