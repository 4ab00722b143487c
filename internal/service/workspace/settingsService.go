package workspaceService

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nikhil/eaven-routing/internal/logger"
	"github.com/nikhil/eaven-routing/internal/models"
)

// SettingsService reads per-workspace routing configuration
type SettingsService struct {
	DB  *sql.DB
	Log *logger.Logger
}

func NewSettingsService(db *sql.DB, log *logger.Logger) *SettingsService {
	return &SettingsService{
		DB:  db,
		Log: log.Named("workspace-settings"),
	}
}

// RoutingSetting returns the workspace's restriction flag. A workspace without
// a settings row is unrestricted.
func (ss *SettingsService) RoutingSetting(ctx context.Context, workspaceID, clientID int64) (models.WorkspaceRoutingSetting, error) {
	setting := models.WorkspaceRoutingSetting{WorkspaceID: workspaceID, ClientID: clientID}

	query := `SELECT ticket_restriction FROM workspace_settings WHERE workspace_id = ? AND client_id = ?`
	err := ss.DB.QueryRowContext(ctx, query, workspaceID, clientID).Scan(&setting.TicketRestriction)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			ss.Log.Debug("No workspace settings row, treating as unrestricted", "workspace_id", workspaceID)
			return setting, nil
		}
		ss.Log.Error("Failed to query workspace settings", "error", err, "workspace_id", workspaceID)
		return models.WorkspaceRoutingSetting{}, fmt.Errorf("query workspace settings: %w", err)
	}
	return setting, nil
}
