package routing

// Reason explains why a routing pass stopped short of an agent
type Reason string

const (
	ReasonAmbiguousChannel Reason = "ambiguous_channel"
	ReasonChannelNotMapped Reason = "channel_not_mapped"
	ReasonEmptyMembership  Reason = "empty_membership"
	ReasonNoStrategy       Reason = "no_strategy"
	ReasonNoActiveUser     Reason = "no_active_user"
	ReasonUnknownChannel   Reason = "unknown_channel"
	ReasonStorageError     Reason = "storage_error"
)

// Outcome is the terminal state of one routing pass. The concrete types are
// FannedOut, Assigned, TeamOnly, DirectAssigned and Unassigned.
type Outcome interface {
	outcome()
	// Kind is a stable name for logs and API responses
	Kind() string
}

// FannedOut means the ticket was linked to every listed team and no agent was chosen
type FannedOut struct {
	TeamIDs []int64
}

// Assigned means one team and one of its members own the ticket
type Assigned struct {
	TeamID  int64
	AgentID int64
}

// TeamOnly means one team owns the ticket but no agent could be chosen
type TeamOnly struct {
	TeamID int64
	Reason Reason
}

// DirectAssigned means the workspace had no teams and an active user was picked directly
type DirectAssigned struct {
	AgentID int64
}

// Unassigned means nothing was recorded. The ticket waits in the unassigned queue.
type Unassigned struct {
	Reason Reason
}

func (FannedOut) outcome()      {}
func (Assigned) outcome()       {}
func (TeamOnly) outcome()       {}
func (DirectAssigned) outcome() {}
func (Unassigned) outcome()     {}

func (FannedOut) Kind() string      { return "fanned_out" }
func (Assigned) Kind() string       { return "assigned" }
func (TeamOnly) Kind() string       { return "team_only" }
func (DirectAssigned) Kind() string { return "direct_assigned" }
func (Unassigned) Kind() string     { return "unassigned" }

// Summary is the flat form of an outcome used in API responses
type Summary struct {
	Kind    string  `json:"kind"`
	TeamIDs []int64 `json:"team_ids"`
	AgentID *int64  `json:"agent_id"`
	Reason  Reason  `json:"reason,omitempty"`
}

// Describe flattens an outcome
func Describe(o Outcome) Summary {
	out := Summary{Kind: o.Kind(), TeamIDs: []int64{}}
	switch v := o.(type) {
	case FannedOut:
		out.TeamIDs = append(out.TeamIDs, v.TeamIDs...)
	case Assigned:
		out.TeamIDs = []int64{v.TeamID}
		agent := v.AgentID
		out.AgentID = &agent
	case TeamOnly:
		out.TeamIDs = []int64{v.TeamID}
		out.Reason = v.Reason
	case DirectAssigned:
		agent := v.AgentID
		out.AgentID = &agent
	case Unassigned:
		out.Reason = v.Reason
	}
	return out
}
