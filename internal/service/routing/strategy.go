package routing

import (
	"context"
	"fmt"

	"github.com/nikhil/eaven-routing/internal/logger"
	teammodels "github.com/nikhil/eaven-routing/internal/models/teams"
)

// Strategy picks one member of a team for a new ticket. members is never empty.
type Strategy interface {
	Name() teammodels.RoutingStrategy
	Pick(ctx context.Context, team teammodels.Team, members []teammodels.TeamMember) (int64, error)
}

// StrategyFactory builds a strategy over the ticket history it consults
type StrategyFactory func(history TicketHistory, log *logger.Logger) Strategy

// compile-time type validation
var (
	_ Strategy = &RoundRobin{}
	_ Strategy = &LoadBalanced{}
)

var strategyFactories = map[teammodels.RoutingStrategy]StrategyFactory{
	teammodels.StrategyRoundRobin: func(h TicketHistory, _ *logger.Logger) Strategy {
		return NewRoundRobin(h)
	},
	teammodels.StrategyLoadBalanced: func(h TicketHistory, log *logger.Logger) Strategy {
		return NewLoadBalanced(h, log)
	},
}

// Assigner resolves a team's strategy by name and runs it
type Assigner struct {
	strategies map[teammodels.RoutingStrategy]Strategy
	log        *logger.Logger
}

// NewAssigner builds every registered strategy over the same history
func NewAssigner(history TicketHistory, log *logger.Logger) *Assigner {
	strategies := make(map[teammodels.RoutingStrategy]Strategy, len(strategyFactories))
	for name, factory := range strategyFactories {
		strategies[name] = factory(history, log)
	}
	return &Assigner{strategies: strategies, log: log}
}

// Assign selects exactly one member of team for ticketID. It returns
// ErrEmptyMembership or ErrNoStrategy when no selection is possible; any
// other error comes from a failed lookup.
func (a *Assigner) Assign(ctx context.Context, team teammodels.Team, members []teammodels.TeamMember, ticketID int64) (int64, error) {
	if len(members) == 0 {
		a.log.Warn("Team has no members, ticket stays with the team", "team_id", team.ID, "ticket_id", ticketID)
		return 0, ErrEmptyMembership
	}

	strategy, ok := a.strategies[team.RoutingStrategy]
	if !ok {
		a.log.Debug("Team routes without an agent strategy", "team_id", team.ID, "strategy", team.RoutingStrategy)
		return 0, ErrNoStrategy
	}

	userID, err := strategy.Pick(ctx, team, members)
	if err != nil {
		return 0, fmt.Errorf("%s pick for team %d: %w", strategy.Name(), team.ID, err)
	}

	a.log.Debug("Agent selected", "team_id", team.ID, "ticket_id", ticketID, "strategy", strategy.Name(), "user_id", userID)
	return userID, nil
}

// RoundRobin rotates through members in membership order, continuing after
// whoever received the most recent assigned ticket in the workspace.
//
// The previous assignee is looked up across the whole workspace, not just
// this team, so tickets assigned by other teams move the rotation.
type RoundRobin struct {
	history TicketHistory
}

func NewRoundRobin(history TicketHistory) *RoundRobin {
	return &RoundRobin{history: history}
}

func (s *RoundRobin) Name() teammodels.RoutingStrategy { return teammodels.StrategyRoundRobin }

func (s *RoundRobin) Pick(ctx context.Context, team teammodels.Team, members []teammodels.TeamMember) (int64, error) {
	if len(members) == 1 {
		return members[0].UserID, nil
	}

	previous, found, err := s.history.LatestAssignee(ctx, team.WorkspaceID, team.ClientID)
	if err != nil {
		return 0, fmt.Errorf("latest assignee: %w", err)
	}
	if !found {
		return members[0].UserID, nil
	}

	// An assignee who is no longer a member gives -1, restarting at index 0
	prevIndex := -1
	for i, m := range members {
		if m.UserID == previous {
			prevIndex = i
			break
		}
	}
	return members[(prevIndex+1)%len(members)].UserID, nil
}

// LoadBalanced picks the member with the fewest open tickets in the team.
// Ties go to the earliest member in membership order.
type LoadBalanced struct {
	history TicketHistory
	log     *logger.Logger
}

func NewLoadBalanced(history TicketHistory, log *logger.Logger) *LoadBalanced {
	return &LoadBalanced{history: history, log: log}
}

func (s *LoadBalanced) Name() teammodels.RoutingStrategy { return teammodels.StrategyLoadBalanced }

func (s *LoadBalanced) Pick(ctx context.Context, team teammodels.Team, members []teammodels.TeamMember) (int64, error) {
	counts, err := s.history.OpenTicketCounts(ctx, team.ID)
	if err != nil {
		s.log.Warn("Open ticket counts unavailable, falling back to first member", "team_id", team.ID, "error", err)
		return members[0].UserID, nil
	}

	load := make(map[int64]int, len(members))
	for _, m := range members {
		load[m.UserID] = 0
	}
	for _, c := range counts {
		// Agents who left the team may still hold its tickets
		if _, ok := load[c.AssignedTo]; ok {
			load[c.AssignedTo] = c.Count
		}
	}

	best := members[0].UserID
	for _, m := range members[1:] {
		if load[m.UserID] < load[best] {
			best = m.UserID
		}
	}
	return best, nil
}
