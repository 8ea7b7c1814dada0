package types

import "time"

// Audit actions recorded by the service.
const (
	AuditUserRegistered = "user.registered"
	AuditUserLoggedIn   = "user.logged_in"
	AuditRoleChanged    = "user.role_changed"
	AuditStatusChanged  = "user.status_changed"
	AuditUsersExported  = "users.exported"
	AuditProfileUpdated = "user.profile_updated"
)

// AuditEvent is a security-relevant action published to the audit bus.
type AuditEvent struct {
	// ID is a random identifier assigned at publish time.
	ID string `json:"id"`

	// Action names what happened, e.g. "user.role_changed".
	Action string `json:"action"`

	// ActorID is the user who performed the action; zero for
	// unauthenticated actions such as registration.
	ActorID int64 `json:"actor_id,omitempty"`

	// SubjectID is the user the action was performed on.
	SubjectID int64 `json:"subject_id,omitempty"`

	// Detail carries action-specific fields. Never credentials.
	Detail map[string]string `json:"detail,omitempty"`

	// OccurredAt is the server time of the action.
	OccurredAt time.Time `json:"occurred_at"`
}
