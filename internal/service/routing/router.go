package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nikhil/eaven-routing/internal/logger"
	"github.com/nikhil/eaven-routing/internal/models"
	teammodels "github.com/nikhil/eaven-routing/internal/models/teams"
	ticketmodels "github.com/nikhil/eaven-routing/internal/models/tickets"
)

// EventNewTicket is the realtime event published for single-team routing
const EventNewTicket = "new_ticket"

// NotificationChannel is the realtime channel carrying a client's ticket events
func NotificationChannel(clientID int64) string {
	return fmt.Sprintf("notifications:client:%d", clientID)
}

// Dependencies are the collaborators a Router reads from and writes to
type Dependencies struct {
	Teams    TeamDirectory
	Channels ChannelTeamLinkage
	Policy   WorkspaceRoutingPolicy
	Users    UserDirectory
	History  TicketHistory
	Tickets  TicketWriter
	// Notifier may be nil, in which case nothing is published
	Notifier Notifier
}

// Router decides which team and agent own a newly created ticket
type Router struct {
	deps     Dependencies
	assigner *Assigner
	timeout  time.Duration
	log      *logger.Logger
}

// NewRouter wires a router. timeout bounds one routing pass; zero disables it.
func NewRouter(deps Dependencies, timeout time.Duration, log *logger.Logger) *Router {
	return &Router{
		deps:     deps,
		assigner: NewAssigner(deps.History, log),
		timeout:  timeout,
		log:      log,
	}
}

// Route runs the one-shot routing decision for ticket and records it. It
// never fails: lookup errors degrade to Unassigned so intake is never blocked.
// The pass is detached from ctx cancellation.
func (r *Router) Route(ctx context.Context, ticket ticketmodels.Ticket, channelType models.ChannelType) Outcome {
	ctx = context.WithoutCancel(ctx)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	log := r.log.WithTicket(ticket.ID, ticket.WorkspaceID, ticket.ClientID)

	outcome, err := r.decide(ctx, log, ticket, channelType)
	if err != nil {
		log.Error("Routing aborted, ticket left unassigned", "error", err)
		return Unassigned{Reason: ReasonStorageError}
	}

	log.Info("Ticket routed", "outcome", outcome.Kind(), "channel_type", channelType)
	return outcome
}

func (r *Router) decide(ctx context.Context, log *logger.Logger, ticket ticketmodels.Ticket, channelType models.ChannelType) (Outcome, error) {
	teams, err := r.deps.Teams.ListTeams(ctx, ticket.WorkspaceID, ticket.ClientID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	if len(teams) == 0 {
		return r.assignFirstActiveUser(ctx, log, ticket)
	}

	setting, err := r.deps.Policy.RoutingSetting(ctx, ticket.WorkspaceID, ticket.ClientID)
	if err != nil {
		return nil, fmt.Errorf("routing setting: %w", err)
	}
	if !setting.TicketRestriction {
		return r.fanOut(ctx, ticket, teams)
	}

	if _, err := models.ParseChannelType(string(channelType)); err != nil {
		log.Warn("Cannot route restricted ticket", "error", err)
		return Unassigned{Reason: ReasonUnknownChannel}, nil
	}

	linked, err := r.linkedTeamIDs(ctx, ticket, channelType)
	if err != nil {
		return nil, err
	}

	switch {
	case len(linked) == 1:
		team, ok := findTeam(teams, linked[0])
		if !ok {
			log.Warn("Channel is linked to a team outside the workspace", "team_id", linked[0])
			return Unassigned{Reason: ReasonChannelNotMapped}, nil
		}
		return r.assignTeam(ctx, log, ticket, team)

	case len(linked) > 1:
		log.Error("Ambiguous channel configuration, ticket left unassigned",
			"error", fmt.Errorf("%w: %v", ErrAmbiguousChannel, linked),
			"channel_ref", ticket.ChannelRef(channelType))
		return Unassigned{Reason: ReasonAmbiguousChannel}, nil
	}

	total, err := r.deps.Channels.CountWorkspaceLinks(ctx, ticket.WorkspaceID, ticket.ClientID)
	if err != nil {
		return nil, fmt.Errorf("count workspace links: %w", err)
	}
	if total > 0 {
		// Mappings exist for other channels, so do not guess for this one
		log.Info("Channel has no team mapping, ticket left unassigned", "channel_ref", ticket.ChannelRef(channelType))
		return Unassigned{Reason: ReasonChannelNotMapped}, nil
	}

	// No mapping has ever been configured, so the workspace behaves as open
	if len(teams) == 1 {
		return r.assignTeam(ctx, log, ticket, teams[0])
	}
	return r.fanOut(ctx, ticket, teams)
}

// linkedTeamIDs returns the distinct teams linked to the ticket's channel in
// link order. Channel refs are not unique across tenants, so links owned by
// another workspace are ignored.
func (r *Router) linkedTeamIDs(ctx context.Context, ticket ticketmodels.Ticket, channelType models.ChannelType) ([]int64, error) {
	channelRef := ticket.ChannelRef(channelType)
	if channelRef == "" {
		return nil, nil
	}
	links, err := r.deps.Channels.LinkedTeams(ctx, channelType, channelRef)
	if err != nil {
		return nil, fmt.Errorf("linked teams for %s %q: %w", channelType, channelRef, err)
	}

	seen := make(map[int64]struct{}, len(links))
	ids := make([]int64, 0, len(links))
	for _, l := range links {
		if l.WorkspaceID != ticket.WorkspaceID || l.ClientID != ticket.ClientID {
			continue
		}
		if _, dup := seen[l.TeamID]; dup {
			continue
		}
		seen[l.TeamID] = struct{}{}
		ids = append(ids, l.TeamID)
	}
	return ids, nil
}

func (r *Router) fanOut(ctx context.Context, ticket ticketmodels.Ticket, teams []teammodels.Team) (Outcome, error) {
	ids := make([]int64, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}
	if err := r.deps.Tickets.LinkTeams(ctx, ticket.ID, ids); err != nil {
		return nil, fmt.Errorf("link all teams: %w", err)
	}
	return FannedOut{TeamIDs: ids}, nil
}

// assignTeam picks the agent before writing anything, so a failed lookup
// leaves the ticket untouched. A failed write is different: once the team
// link is committed it is kept, and a failed assignee write downgrades the
// outcome to TeamOnly{storage_error} instead of unwinding the link.
func (r *Router) assignTeam(ctx context.Context, log *logger.Logger, ticket ticketmodels.Ticket, team teammodels.Team) (Outcome, error) {
	members, err := r.deps.Teams.ListMembers(ctx, team.ID)
	if err != nil {
		return nil, fmt.Errorf("list members of team %d: %w", team.ID, err)
	}

	var reason Reason
	agentID, err := r.assigner.Assign(ctx, team, members, ticket.ID)
	switch {
	case errors.Is(err, ErrEmptyMembership):
		reason = ReasonEmptyMembership
	case errors.Is(err, ErrNoStrategy):
		reason = ReasonNoStrategy
	case err != nil:
		return nil, err
	}

	if err := r.deps.Tickets.LinkTeams(ctx, ticket.ID, []int64{team.ID}); err != nil {
		return nil, fmt.Errorf("link team %d: %w", team.ID, err)
	}
	r.publishSnapshot(ctx, log, ticket)

	if reason != "" {
		return TeamOnly{TeamID: team.ID, Reason: reason}, nil
	}

	if err := r.deps.Tickets.SetAssignee(ctx, ticket.ID, agentID); err != nil {
		log.Error("Failed to record assignee, ticket stays with the team", "team_id", team.ID, "user_id", agentID, "error", err)
		return TeamOnly{TeamID: team.ID, Reason: ReasonStorageError}, nil
	}
	r.publishSnapshot(ctx, log, ticket)

	return Assigned{TeamID: team.ID, AgentID: agentID}, nil
}

func (r *Router) assignFirstActiveUser(ctx context.Context, log *logger.Logger, ticket ticketmodels.Ticket) (Outcome, error) {
	user, found, err := r.deps.Users.FirstActiveUser(ctx, ticket.WorkspaceID, ticket.ClientID)
	if err != nil {
		return nil, fmt.Errorf("first active user: %w", err)
	}
	if !found {
		log.Warn("Workspace has no teams and no active users")
		return Unassigned{Reason: ReasonNoActiveUser}, nil
	}
	if err := r.deps.Tickets.SetAssignee(ctx, ticket.ID, user.UserID); err != nil {
		return nil, fmt.Errorf("assign user %d: %w", user.UserID, err)
	}
	return DirectAssigned{AgentID: user.UserID}, nil
}

// publishSnapshot is fire-and-forget; failures are logged and never
// change the routing outcome.
func (r *Router) publishSnapshot(ctx context.Context, log *logger.Logger, ticket ticketmodels.Ticket) {
	if r.deps.Notifier == nil {
		return
	}
	snapshot, err := r.deps.Tickets.Snapshot(ctx, ticket.ID)
	if err != nil {
		log.Warn("Failed to build ticket snapshot, skipping publish", "error", err)
		return
	}
	channel := NotificationChannel(ticket.ClientID)
	if err := r.deps.Notifier.Publish(ctx, channel, EventNewTicket, snapshot); err != nil {
		log.Warn("Failed to publish ticket event", "channel", channel, "error", err)
	}
}

func findTeam(teams []teammodels.Team, id int64) (teammodels.Team, bool) {
	for _, t := range teams {
		if t.ID == id {
			return t, true
		}
	}
	return teammodels.Team{}, false
}
