package ticketService

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nikhil/eaven-routing/internal/logger"
	"github.com/nikhil/eaven-routing/internal/models"
	ticketmodels "github.com/nikhil/eaven-routing/internal/models/tickets"
	usermodels "github.com/nikhil/eaven-routing/internal/models/users"
)

// ErrTicketNotFound is returned when a ticket id does not exist or was deleted
var ErrTicketNotFound = errors.New("ticket not found")

// TicketService persists tickets and the routing decisions made about them
type TicketService struct {
	DB  *sql.DB
	Log *logger.Logger
}

func NewTicketService(db *sql.DB, log *logger.Logger) *TicketService {
	return &TicketService{
		DB:  db,
		Log: log.Named("ticket-service"),
	}
}

// Create inserts a new open ticket and fills in its id and creation time
func (ts *TicketService) Create(ctx context.Context, t *ticketmodels.Ticket) error {
	t.CreatedAt = time.Now().UTC().Unix()
	if t.Status == "" {
		t.Status = ticketmodels.StatusOpen
	}

	query := `
		INSERT INTO tickets (workspace_id, client_id, customer_id, subject, channel_type, widget_id, email_channel_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := ts.DB.ExecContext(ctx, query,
		t.WorkspaceID, t.ClientID, t.CustomerID, t.Subject, string(t.ChannelType),
		nullString(t.WidgetID), nullString(t.EmailChannelID), string(t.Status), t.CreatedAt,
	)
	if err != nil {
		ts.Log.Error("Failed to create ticket", "error", err)
		return fmt.Errorf("insert ticket: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("ticket id: %w", err)
	}
	t.ID = id
	return nil
}

// LinkTeams records ticket/team links. Existing links are left as they are,
// so repeating the call is harmless.
func (ts *TicketService) LinkTeams(ctx context.Context, ticketID int64, teamIDs []int64) error {
	if len(teamIDs) == 0 {
		return nil
	}

	placeholders := make([]string, len(teamIDs))
	args := make([]interface{}, 0, len(teamIDs)*2)
	for i, teamID := range teamIDs {
		placeholders[i] = "(?, ?)"
		args = append(args, ticketID, teamID)
	}
	query := `INSERT INTO ticket_teams (ticket_id, team_id) VALUES ` +
		strings.Join(placeholders, ", ") +
		` ON DUPLICATE KEY UPDATE team_id = team_id`

	if _, err := ts.DB.ExecContext(ctx, query, args...); err != nil {
		ts.Log.Error("Failed to link ticket to teams", "error", err, "ticket_id", ticketID, "team_ids", teamIDs)
		return fmt.Errorf("link ticket %d to teams: %w", ticketID, err)
	}
	return nil
}

// SetAssignee sets the agent responsible for a ticket
func (ts *TicketService) SetAssignee(ctx context.Context, ticketID, userID int64) error {
	query := `UPDATE tickets SET assigned_to = ? WHERE ticket_id = ?`
	result, err := ts.DB.ExecContext(ctx, query, userID, ticketID)
	if err != nil {
		ts.Log.Error("Failed to assign ticket", "error", err, "ticket_id", ticketID, "user_id", userID)
		return fmt.Errorf("assign ticket %d: %w", ticketID, err)
	}

	// MySQL reports 0 rows when the value is unchanged, so only a missing
	// row is treated as an error.
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		var exists bool
		if err := ts.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE ticket_id = ?)`, ticketID).Scan(&exists); err != nil {
			return fmt.Errorf("check ticket %d: %w", ticketID, err)
		}
		if !exists {
			return fmt.Errorf("assign ticket %d: %w", ticketID, ErrTicketNotFound)
		}
	}
	return nil
}

// LatestAssignee returns the assignee of the newest assigned, non-deleted
// ticket in the workspace. It deliberately looks across all teams.
func (ts *TicketService) LatestAssignee(ctx context.Context, workspaceID, clientID int64) (int64, bool, error) {
	var assignee int64
	query := `
		SELECT assigned_to
		FROM tickets
		WHERE workspace_id = ? AND client_id = ? AND assigned_to IS NOT NULL AND is_deleted = 0
		ORDER BY created_at DESC, ticket_id DESC
		LIMIT 1
	`
	err := ts.DB.QueryRowContext(ctx, query, workspaceID, clientID).Scan(&assignee)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("query latest assignee: %w", err)
	}
	return assignee, true, nil
}

// OpenTicketCounts counts open, non-deleted tickets per assignee within a team
func (ts *TicketService) OpenTicketCounts(ctx context.Context, teamID int64) ([]ticketmodels.AssigneeCount, error) {
	query := `
		SELECT t.assigned_to, COUNT(*)
		FROM tickets t
		JOIN ticket_teams tt ON tt.ticket_id = t.ticket_id
		WHERE tt.team_id = ? AND t.is_deleted = 0 AND t.status <> ? AND t.assigned_to IS NOT NULL
		GROUP BY t.assigned_to
	`
	rows, err := ts.DB.QueryContext(ctx, query, teamID, string(ticketmodels.StatusClosed))
	if err != nil {
		return nil, fmt.Errorf("query open ticket counts: %w", err)
	}
	defer rows.Close()

	var counts []ticketmodels.AssigneeCount
	for rows.Next() {
		var c ticketmodels.AssigneeCount
		if err := rows.Scan(&c.AssignedTo, &c.Count); err != nil {
			return nil, fmt.Errorf("scan open ticket count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open ticket counts: %w", err)
	}
	return counts, nil
}

// Snapshot builds the denormalized view of a ticket published to realtime subscribers
func (ts *TicketService) Snapshot(ctx context.Context, ticketID int64) (ticketmodels.Snapshot, error) {
	var (
		snap                    ticketmodels.Snapshot
		status                  string
		customerID, assignedTo  sql.NullInt64
		customerName, custEmail sql.NullString
		firstName, lastName     sql.NullString
	)
	query := `
		SELECT t.ticket_id, t.subject, t.status, t.created_at,
		       c.customer_id, c.name, c.email,
		       t.assigned_to, u.first_name, u.last_name
		FROM tickets t
		LEFT JOIN customers c ON c.customer_id = t.customer_id
		LEFT JOIN users u ON u.user_id = t.assigned_to
		WHERE t.ticket_id = ? AND t.is_deleted = 0
	`
	err := ts.DB.QueryRowContext(ctx, query, ticketID).Scan(
		&snap.ID, &snap.Subject, &status, &snap.CreatedAt,
		&customerID, &customerName, &custEmail,
		&assignedTo, &firstName, &lastName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ticketmodels.Snapshot{}, ErrTicketNotFound
		}
		return ticketmodels.Snapshot{}, fmt.Errorf("query ticket snapshot: %w", err)
	}

	snap.Status = ticketmodels.Status(status)
	snap.Customer = ticketmodels.CustomerSummary{
		ID:    customerID.Int64,
		Name:  customerName.String,
		Email: custEmail.String,
	}
	if assignedTo.Valid {
		agent := usermodels.User{FirstName: firstName.String, LastName: lastName.String}
		snap.AssignedTo = &ticketmodels.AgentSummary{ID: assignedTo.Int64, Name: agent.FullName()}
	}

	teamQuery := `
		SELECT tm.team_id, tm.team_name
		FROM ticket_teams tt
		JOIN teams tm ON tm.team_id = tt.team_id
		WHERE tt.ticket_id = ?
		ORDER BY tm.team_id ASC
	`
	rows, err := ts.DB.QueryContext(ctx, teamQuery, ticketID)
	if err != nil {
		return ticketmodels.Snapshot{}, fmt.Errorf("query snapshot teams: %w", err)
	}
	defer rows.Close()

	snap.Teams = []ticketmodels.TeamSummary{}
	for rows.Next() {
		var team ticketmodels.TeamSummary
		if err := rows.Scan(&team.ID, &team.Name); err != nil {
			return ticketmodels.Snapshot{}, fmt.Errorf("scan snapshot team: %w", err)
		}
		snap.Teams = append(snap.Teams, team)
	}
	if err := rows.Err(); err != nil {
		return ticketmodels.Snapshot{}, fmt.Errorf("iterate snapshot teams: %w", err)
	}
	return snap, nil
}

// ListUnassigned returns tickets with neither a team nor an agent, oldest
// first. This is the queue operators work through by hand.
func (ts *TicketService) ListUnassigned(ctx context.Context, workspaceID, clientID int64, limit, offset int) ([]ticketmodels.Ticket, error) {
	query := `
		SELECT t.ticket_id, t.workspace_id, t.client_id, t.customer_id, t.subject,
		       t.channel_type, t.widget_id, t.email_channel_id, t.status, t.created_at
		FROM tickets t
		WHERE t.workspace_id = ? AND t.client_id = ? AND t.is_deleted = 0
		  AND t.assigned_to IS NULL
		  AND NOT EXISTS (SELECT 1 FROM ticket_teams tt WHERE tt.ticket_id = t.ticket_id)
		ORDER BY t.created_at ASC
		LIMIT ? OFFSET ?
	`
	rows, err := ts.DB.QueryContext(ctx, query, workspaceID, clientID, limit, offset)
	if err != nil {
		ts.Log.Error("Failed to query unassigned tickets", "error", err, "workspace_id", workspaceID)
		return nil, fmt.Errorf("query unassigned tickets: %w", err)
	}
	defer rows.Close()

	tickets := []ticketmodels.Ticket{}
	for rows.Next() {
		var (
			t                 ticketmodels.Ticket
			channelType       string
			status            string
			widget, emailChan sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.WorkspaceID, &t.ClientID, &t.CustomerID, &t.Subject,
			&channelType, &widget, &emailChan, &status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan unassigned ticket: %w", err)
		}
		t.ChannelType = models.ChannelType(channelType)
		t.WidgetID = widget.String
		t.EmailChannelID = emailChan.String
		t.Status = ticketmodels.Status(status)
		t.TeamIDs = []int64{}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unassigned tickets: %w", err)
	}
	return tickets, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
