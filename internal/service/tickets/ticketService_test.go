package ticketService

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/eaven-routing/internal/logger"
	"github.com/nikhil/eaven-routing/internal/models"
	ticketmodels "github.com/nikhil/eaven-routing/internal/models/tickets"
)

func newMock(t *testing.T) (*TicketService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTicketService(db, logger.NewNop()), mock
}

func TestTicketService_Create(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectExec("INSERT INTO tickets").
		WithArgs(int64(7), int64(70), int64(3), "Printer on fire", "chat", "chat-widget-9", nil, "open", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	ticket := &ticketmodels.Ticket{
		WorkspaceID: 7, ClientID: 70, CustomerID: 3, Subject: "Printer on fire",
		ChannelType: models.ChannelChat, WidgetID: "chat-widget-9",
	}
	require.NoError(t, svc.Create(context.Background(), ticket))
	assert.Equal(t, int64(42), ticket.ID)
	assert.Equal(t, ticketmodels.StatusOpen, ticket.Status)
	assert.NotZero(t, ticket.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketService_LinkTeamsIsIdempotent(t *testing.T) {
	svc, mock := newMock(t)
	query := regexp.QuoteMeta("INSERT INTO ticket_teams (ticket_id, team_id) VALUES (?, ?), (?, ?) ON DUPLICATE KEY UPDATE team_id = team_id")

	mock.ExpectExec(query).WithArgs(int64(50), int64(1), int64(50), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	// Second pass hits the unique key and changes nothing
	mock.ExpectExec(query).WithArgs(int64(50), int64(1), int64(50), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, svc.LinkTeams(context.Background(), 50, []int64{1, 2}))
	require.NoError(t, svc.LinkTeams(context.Background(), 50, []int64{1, 2}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketService_LinkTeamsEmpty(t *testing.T) {
	svc, mock := newMock(t)

	require.NoError(t, svc.LinkTeams(context.Background(), 50, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketService_SetAssignee(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectExec("UPDATE tickets SET assigned_to").WithArgs(int64(202), int64(50)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.SetAssignee(context.Background(), 50, 202))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketService_SetAssigneeMissingTicket(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectExec("UPDATE tickets SET assigned_to").WithArgs(int64(202), int64(50)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs(int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := svc.SetAssignee(context.Background(), 50, 202)
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestTicketService_LatestAssignee(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery("SELECT assigned_to FROM tickets WHERE workspace_id = (.+) ORDER BY created_at DESC").
		WithArgs(int64(7), int64(70)).
		WillReturnRows(sqlmock.NewRows([]string{"assigned_to"}).AddRow(201))
	mock.ExpectQuery("SELECT assigned_to FROM tickets").
		WithArgs(int64(8), int64(80)).
		WillReturnRows(sqlmock.NewRows([]string{"assigned_to"}))

	got, found, err := svc.LatestAssignee(context.Background(), 7, 70)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(201), got)

	_, found, err = svc.LatestAssignee(context.Background(), 8, 80)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketService_OpenTicketCounts(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery("SELECT t.assigned_to, COUNT\\(\\*\\) FROM tickets t").
		WithArgs(int64(11), "closed").
		WillReturnRows(sqlmock.NewRows([]string{"assigned_to", "count"}).AddRow(201, 3).AddRow(202, 1))

	counts, err := svc.OpenTicketCounts(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, []ticketmodels.AssigneeCount{{AssignedTo: 201, Count: 3}, {AssignedTo: 202, Count: 1}}, counts)
}

func TestTicketService_OpenTicketCountsError(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery("SELECT t.assigned_to").WillReturnError(errors.New("lock wait timeout"))

	_, err := svc.OpenTicketCounts(context.Background(), 11)
	assert.ErrorContains(t, err, "lock wait timeout")
}

func TestTicketService_Snapshot(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM tickets t LEFT JOIN customers c").
		WithArgs(int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{
			"ticket_id", "subject", "status", "created_at",
			"customer_id", "name", "email",
			"assigned_to", "first_name", "last_name",
		}).AddRow(50, "Printer on fire", "open", 1700000000, 3, "Jo", "jo@client.io", 202, "Sam", "Lee"))
	mock.ExpectQuery("SELECT tm.team_id, tm.team_name FROM ticket_teams tt").
		WithArgs(int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"team_id", "team_name"}).AddRow(11, "Support"))

	snap, err := svc.Snapshot(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, "Printer on fire", snap.Subject)
	assert.Equal(t, ticketmodels.CustomerSummary{ID: 3, Name: "Jo", Email: "jo@client.io"}, snap.Customer)
	assert.Equal(t, []ticketmodels.TeamSummary{{ID: 11, Name: "Support"}}, snap.Teams)
	require.NotNil(t, snap.AssignedTo)
	assert.Equal(t, ticketmodels.AgentSummary{ID: 202, Name: "Sam Lee"}, *snap.AssignedTo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketService_SnapshotUnassigned(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM tickets t").
		WillReturnRows(sqlmock.NewRows([]string{
			"ticket_id", "subject", "status", "created_at",
			"customer_id", "name", "email",
			"assigned_to", "first_name", "last_name",
		}).AddRow(50, "Hello", "open", 1700000000, nil, nil, nil, nil, nil, nil))
	mock.ExpectQuery("SELECT tm.team_id").
		WillReturnRows(sqlmock.NewRows([]string{"team_id", "team_name"}))

	snap, err := svc.Snapshot(context.Background(), 50)
	require.NoError(t, err)
	assert.Nil(t, snap.AssignedTo)
	assert.Empty(t, snap.Teams)
}

func TestTicketService_SnapshotNotFound(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM tickets t").
		WillReturnRows(sqlmock.NewRows([]string{"ticket_id"}))

	_, err := svc.Snapshot(context.Background(), 50)
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestTicketService_ListUnassigned(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM tickets t (.+) NOT EXISTS").
		WithArgs(int64(7), int64(70), 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"ticket_id", "workspace_id", "client_id", "customer_id", "subject",
			"channel_type", "widget_id", "email_channel_id", "status", "created_at",
		}).AddRow(50, 7, 70, 3, "Refund", "email", nil, "support@acme", "open", 1700000000))

	tickets, err := svc.ListUnassigned(context.Background(), 7, 70, 20, 0)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, models.ChannelEmail, tickets[0].ChannelType)
	assert.Equal(t, "support@acme", tickets[0].EmailChannelID)
	assert.Empty(t, tickets[0].WidgetID)
	assert.Nil(t, tickets[0].AssignedTo)
	assert.NoError(t, mock.ExpectationsWereMet())
}
