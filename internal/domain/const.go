package domain

const (
	RequesterIdCtxKey   = "pg-requesterId"
	RequesterRoleCtxKey = "pg-requesterRole"
	RequestIdCtxKey     = "pg-requestId"
)

const (
	LprTokenHeader = "X-LPR-Token"
)

type Role string

const (
	RoleUser     Role = "user"
	RoleSecurity Role = "security"
	RoleAdmin    Role = "admin"
)

// Staff roles see every pass and may subscribe to live updates.
func (r Role) IsStaff() bool {
	return r == RoleSecurity || r == RoleAdmin
}

// Requester is the authenticated caller of a staff or resident endpoint.
type Requester struct {
	ID   uint
	Role Role
}

// live notification event names
const (
	NotifyConnected   = "connected"
	NotifyNewPass     = "new-pass"
	NotifyPassUpdated = "pass-updated"
	NotifyPassDeleted = "pass-deleted"
)

// Notification is the payload pushed to monitoring clients.
type Notification struct {
	Message string `json:"message"`
	PassID  uint   `json:"passId,omitempty"`
}
