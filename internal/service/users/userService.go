package userService

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nikhil/eaven-routing/internal/logger"
	usermodels "github.com/nikhil/eaven-routing/internal/models/users"
)

type UserService struct {
	DB  *sql.DB
	Log *logger.Logger
}

func NewUserService(db *sql.DB, log *logger.Logger) *UserService {
	return &UserService{
		DB:  db,
		Log: log.Named("user-service"),
	}
}

// FirstActiveUser returns whichever active user the store yields first. The
// query has no ORDER BY, so the choice is not stable.
func (us *UserService) FirstActiveUser(ctx context.Context, workspaceID, clientID int64) (usermodels.User, bool, error) {
	var user usermodels.User
	query := `
		SELECT user_id, workspace_id, client_id, email, first_name, last_name, is_active
		FROM users
		WHERE workspace_id = ? AND client_id = ? AND is_active = 1
		LIMIT 1
	`
	err := us.DB.QueryRowContext(ctx, query, workspaceID, clientID).Scan(
		&user.UserID, &user.WorkspaceID, &user.ClientID, &user.Email,
		&user.FirstName, &user.LastName, &user.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return usermodels.User{}, false, nil
		}
		us.Log.Error("Failed to query active user", "error", err, "workspace_id", workspaceID)
		return usermodels.User{}, false, fmt.Errorf("query active user: %w", err)
	}
	return user, true, nil
}
