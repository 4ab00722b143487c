package teamService

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nikhil/eaven-routing/internal/logger"
	teammodels "github.com/nikhil/eaven-routing/internal/models/teams"
)

// TeamService reads team rosters and membership
type TeamService struct {
	DB  *sql.DB
	Log *logger.Logger
}

// NewTeamService initializes a new team service
func NewTeamService(db *sql.DB, log *logger.Logger) *TeamService {
	return &TeamService{
		DB:  db,
		Log: log.Named("team-service"),
	}
}

// ListTeams returns every team of a workspace with its routing strategy
func (ts *TeamService) ListTeams(ctx context.Context, workspaceID, clientID int64) ([]teammodels.Team, error) {
	query := `
		SELECT t.team_id, t.workspace_id, t.client_id, t.team_name, t.routing_strategy
		FROM teams t
		WHERE t.workspace_id = ? AND t.client_id = ?
		ORDER BY t.team_id ASC
	`
	rows, err := ts.DB.QueryContext(ctx, query, workspaceID, clientID)
	if err != nil {
		ts.Log.Error("Failed to query teams", "error", err, "workspace_id", workspaceID)
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	var teams []teammodels.Team
	for rows.Next() {
		var t teammodels.Team
		var strategy sql.NullString
		if err := rows.Scan(&t.ID, &t.WorkspaceID, &t.ClientID, &t.Name, &strategy); err != nil {
			return nil, fmt.Errorf("scan team row: %w", err)
		}
		t.RoutingStrategy = teammodels.StrategyNone
		if strategy.Valid && strategy.String != "" {
			t.RoutingStrategy = teammodels.RoutingStrategy(strategy.String)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team rows: %w", err)
	}

	ts.Log.Debug("Teams fetched from database", "workspace_id", workspaceID, "count", len(teams))
	return teams, nil
}

// ListMembers returns a team's members in insertion order
func (ts *TeamService) ListMembers(ctx context.Context, teamID int64) ([]teammodels.TeamMember, error) {
	query := `
		SELECT tm.id, tm.team_id, tm.user_id, tm.joined_at
		FROM user_teams_mapper tm
		WHERE tm.team_id = ?
		ORDER BY tm.id ASC
	`
	rows, err := ts.DB.QueryContext(ctx, query, teamID)
	if err != nil {
		ts.Log.Error("Failed to query team members", "error", err, "team_id", teamID)
		return nil, fmt.Errorf("query team members: %w", err)
	}
	defer rows.Close()

	var members []teammodels.TeamMember
	for rows.Next() {
		var m teammodels.TeamMember
		if err := rows.Scan(&m.ID, &m.TeamID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member rows: %w", err)
	}
	return members, nil
}
