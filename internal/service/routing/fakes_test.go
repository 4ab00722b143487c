package routing

import (
	"context"
	"sync"

	"github.com/nikhil/eaven-routing/internal/models"
	teammodels "github.com/nikhil/eaven-routing/internal/models/teams"
	ticketmodels "github.com/nikhil/eaven-routing/internal/models/tickets"
	usermodels "github.com/nikhil/eaven-routing/internal/models/users"
)

// memStore is an in-memory stand-in for the MySQL services. Ticket/team
// links are a set, mirroring the UNIQUE(ticket_id, team_id) constraint.
type memStore struct {
	mu sync.Mutex

	teams      []teammodels.Team
	members    map[int64][]teammodels.TeamMember
	links      []models.ChannelTeamLink
	restricted map[int64]bool
	users      []usermodels.User

	// assignments in the order they were made; the last one is the latest
	assignments []int64
	openCounts  map[int64][]ticketmodels.AssigneeCount

	ticketTeams map[int64]map[int64]struct{}
	assignees   map[int64]int64

	// errs fails the named method
	errs map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		members:     map[int64][]teammodels.TeamMember{},
		restricted:  map[int64]bool{},
		openCounts:  map[int64][]ticketmodels.AssigneeCount{},
		ticketTeams: map[int64]map[int64]struct{}{},
		assignees:   map[int64]int64{},
		errs:        map[string]error{},
	}
}

func (s *memStore) addTeam(id int64, strategy teammodels.RoutingStrategy, userIDs ...int64) {
	s.teams = append(s.teams, teammodels.Team{
		ID: id, WorkspaceID: workspaceID, ClientID: clientID,
		Name: "team", RoutingStrategy: strategy,
	})
	for i, u := range userIDs {
		s.members[id] = append(s.members[id], teammodels.TeamMember{ID: int64(i + 1), TeamID: id, UserID: u})
	}
}

func (s *memStore) link(teamID int64, channelType models.ChannelType, ref string) {
	s.links = append(s.links, models.ChannelTeamLink{
		ID: int64(len(s.links) + 1), TeamID: teamID, WorkspaceID: workspaceID, ClientID: clientID,
		ChannelType: channelType, ChannelRef: ref,
	})
}

func (s *memStore) teamsOf(ticketID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, t := range s.teams {
		if _, ok := s.ticketTeams[ticketID][t.ID]; ok {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func (s *memStore) assigneeOf(ticketID int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.assignees[ticketID]
	return id, ok
}

func (s *memStore) ListTeams(_ context.Context, ws, client int64) ([]teammodels.Team, error) {
	if err := s.errs["ListTeams"]; err != nil {
		return nil, err
	}
	var out []teammodels.Team
	for _, t := range s.teams {
		if t.WorkspaceID == ws && t.ClientID == client {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) ListMembers(_ context.Context, teamID int64) ([]teammodels.TeamMember, error) {
	if err := s.errs["ListMembers"]; err != nil {
		return nil, err
	}
	return s.members[teamID], nil
}

func (s *memStore) LinkedTeams(_ context.Context, channelType models.ChannelType, ref string) ([]models.ChannelTeamLink, error) {
	if err := s.errs["LinkedTeams"]; err != nil {
		return nil, err
	}
	var out []models.ChannelTeamLink
	for _, l := range s.links {
		if l.ChannelType == channelType && l.ChannelRef == ref {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memStore) CountWorkspaceLinks(_ context.Context, ws, client int64) (int, error) {
	if err := s.errs["CountWorkspaceLinks"]; err != nil {
		return 0, err
	}
	n := 0
	for _, l := range s.links {
		if l.WorkspaceID == ws && l.ClientID == client {
			n++
		}
	}
	return n, nil
}

func (s *memStore) RoutingSetting(_ context.Context, ws, client int64) (models.WorkspaceRoutingSetting, error) {
	if err := s.errs["RoutingSetting"]; err != nil {
		return models.WorkspaceRoutingSetting{}, err
	}
	return models.WorkspaceRoutingSetting{WorkspaceID: ws, ClientID: client, TicketRestriction: s.restricted[ws]}, nil
}

func (s *memStore) FirstActiveUser(_ context.Context, ws, client int64) (usermodels.User, bool, error) {
	if err := s.errs["FirstActiveUser"]; err != nil {
		return usermodels.User{}, false, err
	}
	for _, u := range s.users {
		if u.WorkspaceID == ws && u.ClientID == client && u.IsActive {
			return u, true, nil
		}
	}
	return usermodels.User{}, false, nil
}

func (s *memStore) LatestAssignee(_ context.Context, _, _ int64) (int64, bool, error) {
	if err := s.errs["LatestAssignee"]; err != nil {
		return 0, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.assignments) == 0 {
		return 0, false, nil
	}
	return s.assignments[len(s.assignments)-1], true, nil
}

func (s *memStore) OpenTicketCounts(_ context.Context, teamID int64) ([]ticketmodels.AssigneeCount, error) {
	if err := s.errs["OpenTicketCounts"]; err != nil {
		return nil, err
	}
	return s.openCounts[teamID], nil
}

func (s *memStore) LinkTeams(_ context.Context, ticketID int64, teamIDs []int64) error {
	if err := s.errs["LinkTeams"]; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticketTeams[ticketID] == nil {
		s.ticketTeams[ticketID] = map[int64]struct{}{}
	}
	for _, id := range teamIDs {
		s.ticketTeams[ticketID][id] = struct{}{}
	}
	return nil
}

func (s *memStore) SetAssignee(_ context.Context, ticketID, userID int64) error {
	if err := s.errs["SetAssignee"]; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignees[ticketID] = userID
	s.assignments = append(s.assignments, userID)
	return nil
}

func (s *memStore) Snapshot(_ context.Context, ticketID int64) (ticketmodels.Snapshot, error) {
	if err := s.errs["Snapshot"]; err != nil {
		return ticketmodels.Snapshot{}, err
	}
	snap := ticketmodels.Snapshot{ID: ticketID, Subject: "help", Status: ticketmodels.StatusOpen}
	for _, id := range s.teamsOf(ticketID) {
		snap.Teams = append(snap.Teams, ticketmodels.TeamSummary{ID: id})
	}
	if agent, ok := s.assigneeOf(ticketID); ok {
		snap.AssignedTo = &ticketmodels.AgentSummary{ID: agent}
	}
	return snap, nil
}

type publishedEvent struct {
	Channel string
	Event   string
	Payload any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, channel, event string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{Channel: channel, Event: event, Payload: payload})
	return n.err
}

func (n *recordingNotifier) published() []publishedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]publishedEvent(nil), n.events...)
}
