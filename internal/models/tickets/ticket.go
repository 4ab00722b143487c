package ticketmodels

import (
	"github.com/nikhil/eaven-routing/internal/models"
)

type Status string

const (
	StatusOpen    Status = "open"
	StatusPending Status = "pending"
	StatusClosed  Status = "closed"
)

// Ticket is a customer support request. AssignedTo is nil until an agent is chosen.
type Ticket struct {
	ID             int64              `json:"ticket_id"`
	WorkspaceID    int64              `json:"workspace_id"`
	ClientID       int64              `json:"client_id"`
	CustomerID     int64              `json:"customer_id"`
	Subject        string             `json:"subject"`
	ChannelType    models.ChannelType `json:"channel_type"`
	WidgetID       string             `json:"widget_id,omitempty"`
	EmailChannelID string             `json:"email_channel_id,omitempty"`
	AssignedTo     *int64             `json:"assigned_to"`
	TeamIDs        []int64            `json:"team_ids"`
	Status         Status             `json:"status"`
	IsDeleted      bool               `json:"-"`
	CreatedAt      int64              `json:"created_at"`
}

// ChannelRef returns the identifier of the inbound channel for the given type:
// the widget id for chat, the email channel id for email.
func (t Ticket) ChannelRef(channelType models.ChannelType) string {
	switch channelType {
	case models.ChannelChat:
		return t.WidgetID
	case models.ChannelEmail:
		return t.EmailChannelID
	}
	return ""
}

// AssigneeCount is the number of open tickets held by one agent
type AssigneeCount struct {
	AssignedTo int64 `json:"assigned_to"`
	Count      int   `json:"count"`
}

type CustomerSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type TeamSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type AgentSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Snapshot is the denormalized ticket view pushed to realtime subscribers
type Snapshot struct {
	ID         int64           `json:"id"`
	Subject    string          `json:"subject"`
	Status     Status          `json:"status"`
	CreatedAt  int64           `json:"created_at"`
	Customer   CustomerSummary `json:"customer"`
	Teams      []TeamSummary   `json:"teams"`
	AssignedTo *AgentSummary   `json:"assigned_to"`
}
