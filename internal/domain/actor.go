package domain

// SubjectType distinguishes who performed an action.
type SubjectType string

const (
	SubjectTypeUser  SubjectType = "USER"
	SubjectTypeStaff SubjectType = "STAFF"
)

// SystemActorID is the sentinel identity used when the auto-close
// sweeper mutates a ticket.
const SystemActorID = "SYSTEM"

// AutoCloseReason is the fixed close reason recorded by the sweeper.
const AutoCloseReason = "auto-closed: inactivity"
