package teammodels

// RoutingStrategy names how a team picks an agent for a new ticket
type RoutingStrategy string

const (
	StrategyRoundRobin   RoutingStrategy = "round-robin"
	StrategyLoadBalanced RoutingStrategy = "load-balanced"
	StrategyNone         RoutingStrategy = "none"
)

// Team represents a team entity
type Team struct {
	ID              int64           `json:"team_id"`
	WorkspaceID     int64           `json:"workspace_id"`
	ClientID        int64           `json:"client_id"`
	Name            string          `json:"team_name"`
	RoutingStrategy RoutingStrategy `json:"routing_strategy"`
}

// TeamMember represents one row of user_teams_mapper. ID orders members by insertion.
type TeamMember struct {
	ID       int64 `json:"id"`
	TeamID   int64 `json:"team_id"`
	UserID   int64 `json:"user_id"`
	JoinedAt int64 `json:"joined_at"`
}
