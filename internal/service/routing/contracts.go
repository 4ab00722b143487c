package routing

import (
	"context"

	"github.com/nikhil/eaven-routing/internal/models"
	teammodels "github.com/nikhil/eaven-routing/internal/models/teams"
	ticketmodels "github.com/nikhil/eaven-routing/internal/models/tickets"
	usermodels "github.com/nikhil/eaven-routing/internal/models/users"
)

// TeamDirectory reads team rosters and membership
type TeamDirectory interface {
	ListTeams(ctx context.Context, workspaceID, clientID int64) ([]teammodels.Team, error)
	// ListMembers returns members in insertion order
	ListMembers(ctx context.Context, teamID int64) ([]teammodels.TeamMember, error)
}

// ChannelTeamLinkage reads which teams are bound to an inbound channel
type ChannelTeamLinkage interface {
	LinkedTeams(ctx context.Context, channelType models.ChannelType, channelRef string) ([]models.ChannelTeamLink, error)
	CountWorkspaceLinks(ctx context.Context, workspaceID, clientID int64) (int, error)
}

// WorkspaceRoutingPolicy reads the workspace restriction flag. A workspace
// without a settings row is reported as unrestricted, not as an error.
type WorkspaceRoutingPolicy interface {
	RoutingSetting(ctx context.Context, workspaceID, clientID int64) (models.WorkspaceRoutingSetting, error)
}

// UserDirectory finds a fallback agent for workspaces that have no teams
type UserDirectory interface {
	FirstActiveUser(ctx context.Context, workspaceID, clientID int64) (usermodels.User, bool, error)
}

// TicketHistory answers the questions assignment strategies ask about past tickets
type TicketHistory interface {
	// LatestAssignee returns the assignee of the newest non-deleted assigned
	// ticket in the whole workspace.
	LatestAssignee(ctx context.Context, workspaceID, clientID int64) (int64, bool, error)
	OpenTicketCounts(ctx context.Context, teamID int64) ([]ticketmodels.AssigneeCount, error)
}

// TicketWriter records routing decisions on a ticket
type TicketWriter interface {
	// LinkTeams inserts ticket/team links, ignoring ones that already exist
	LinkTeams(ctx context.Context, ticketID int64, teamIDs []int64) error
	SetAssignee(ctx context.Context, ticketID, userID int64) error
	Snapshot(ctx context.Context, ticketID int64) (ticketmodels.Snapshot, error)
}

// Notifier pushes events to realtime subscribers
type Notifier interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}
