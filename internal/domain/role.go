package domain

// ModelRole is a logical model-consumer identity. Each role can be routed to
// a different provider/model without the consumer knowing.
type ModelRole string

const (
	// RoleRequestManager plans the turn: it classifies intent and proposes
	// tool calls.
	RoleRequestManager ModelRole = "request_manager"
	// RoleFinalizer drafts the user-facing answer from tool results.
	RoleFinalizer ModelRole = "finalizer"
)

// KnownRoles returns the closed role set.
func KnownRoles() []ModelRole {
	return []ModelRole{RoleRequestManager, RoleFinalizer}
}

// DomainQuote is the business-context qualifier used by the quoting flow.
// A Domain narrows a ModelRole's routing configuration; the empty string
// means "apply at role granularity".
const DomainQuote = "quote"
