package channelService

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nikhil/eaven-routing/internal/logger"
	"github.com/nikhil/eaven-routing/internal/models"
)

// ChannelService reads channel to team mappings
type ChannelService struct {
	DB  *sql.DB
	Log *logger.Logger
}

// NewChannelService initializes a new channel service
func NewChannelService(db *sql.DB, log *logger.Logger) *ChannelService {
	return &ChannelService{
		DB:  db,
		Log: log.Named("channel-service"),
	}
}

// LinkedTeams returns the links bound to one chat widget or email channel
func (cs *ChannelService) LinkedTeams(ctx context.Context, channelType models.ChannelType, channelRef string) ([]models.ChannelTeamLink, error) {
	query := `
		SELECT l.id, l.team_id, l.workspace_id, l.client_id, l.channel_type, l.channel_ref
		FROM channel_team_links l
		WHERE l.channel_type = ? AND l.channel_ref = ?
		ORDER BY l.id ASC
	`
	rows, err := cs.DB.QueryContext(ctx, query, string(channelType), channelRef)
	if err != nil {
		cs.Log.Error("Failed to query channel links", "error", err, "channel_ref", channelRef)
		return nil, fmt.Errorf("query channel links: %w", err)
	}
	defer rows.Close()

	var links []models.ChannelTeamLink
	for rows.Next() {
		var l models.ChannelTeamLink
		var kind string
		if err := rows.Scan(&l.ID, &l.TeamID, &l.WorkspaceID, &l.ClientID, &kind, &l.ChannelRef); err != nil {
			return nil, fmt.Errorf("scan channel link row: %w", err)
		}
		l.ChannelType = models.ChannelType(kind)
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel link rows: %w", err)
	}
	return links, nil
}

// CountWorkspaceLinks counts every channel mapping configured in a workspace
func (cs *ChannelService) CountWorkspaceLinks(ctx context.Context, workspaceID, clientID int64) (int, error) {
	var total int
	query := `SELECT COUNT(*) FROM channel_team_links WHERE workspace_id = ? AND client_id = ?`
	if err := cs.DB.QueryRowContext(ctx, query, workspaceID, clientID).Scan(&total); err != nil {
		cs.Log.Error("Failed to count channel links", "error", err, "workspace_id", workspaceID)
		return 0, fmt.Errorf("count channel links: %w", err)
	}
	return total, nil
}
