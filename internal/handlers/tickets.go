package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/nikhil/eaven-routing/internal/logger"
	"github.com/nikhil/eaven-routing/internal/middleware"
	"github.com/nikhil/eaven-routing/internal/models"
	ticketmodels "github.com/nikhil/eaven-routing/internal/models/tickets"
	"github.com/nikhil/eaven-routing/internal/service/routing"
)

// TicketStore is the persistence the intake endpoints need
type TicketStore interface {
	Create(ctx context.Context, t *ticketmodels.Ticket) error
	ListUnassigned(ctx context.Context, workspaceID, clientID int64, limit, offset int) ([]ticketmodels.Ticket, error)
}

// TicketRouter decides ownership of a freshly created ticket
type TicketRouter interface {
	Route(ctx context.Context, ticket ticketmodels.Ticket, channelType models.ChannelType) routing.Outcome
}

type TicketHandler struct {
	store  TicketStore
	router TicketRouter
	log    *logger.Logger
}

func NewTicketHandler(store TicketStore, router TicketRouter, log *logger.Logger) *TicketHandler {
	return &TicketHandler{store: store, router: router, log: log.Named("ticket-handler")}
}

type CreateTicketRequest struct {
	CustomerID     int64  `json:"customer_id"`
	Subject        string `json:"subject"`
	ChannelType    string `json:"channel_type"`
	WidgetID       string `json:"widget_id"`
	EmailChannelID string `json:"email_channel_id"`
}

type CreateTicketResponse struct {
	Message   string              `json:"message"`
	RequestID string              `json:"request_id,omitempty"`
	Ticket    ticketmodels.Ticket `json:"ticket"`
	Routing   routing.Summary     `json:"routing"`
}

type UnassignedResponse struct {
	Tickets []ticketmodels.Ticket `json:"tickets"`
	Page    int                   `json:"page"`
	PerPage int                   `json:"per_page"`
}

// CreateTicket stores a ticket for the caller's workspace and routes it
// inline. Routing problems never fail the request; they show up in the
// returned routing summary instead.
func (h *TicketHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.CurrentIdentity(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	var req CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	req.Subject = strings.TrimSpace(req.Subject)
	if req.Subject == "" {
		respondWithError(w, http.StatusBadRequest, "Subject is required")
		return
	}
	if req.CustomerID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Customer ID is required")
		return
	}
	channelType, err := models.ParseChannelType(req.ChannelType)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	ticket := ticketmodels.Ticket{
		WorkspaceID:    identity.WorkspaceID,
		ClientID:       identity.ClientID,
		CustomerID:     req.CustomerID,
		Subject:        req.Subject,
		ChannelType:    channelType,
		WidgetID:       strings.TrimSpace(req.WidgetID),
		EmailChannelID: strings.TrimSpace(req.EmailChannelID),
		TeamIDs:        []int64{},
	}
	if ticket.ChannelRef(channelType) == "" {
		respondWithError(w, http.StatusBadRequest, "Channel reference is required for "+string(channelType))
		return
	}

	requestID := middleware.RequestID(r.Context())
	if err := h.store.Create(r.Context(), &ticket); err != nil {
		h.log.Error("Failed to create ticket", "error", err, "request_id", requestID)
		respondWithError(w, http.StatusInternalServerError, "Failed to create ticket")
		return
	}

	summary := routing.Describe(h.router.Route(r.Context(), ticket, channelType))
	ticket.TeamIDs = summary.TeamIDs
	ticket.AssignedTo = summary.AgentID

	h.log.Info("Ticket created",
		"ticket_id", ticket.ID,
		"workspace_id", ticket.WorkspaceID,
		"routing", summary.Kind,
		"request_id", requestID,
	)

	respondWithJSON(w, http.StatusCreated, CreateTicketResponse{
		Message:   "Ticket created successfully",
		RequestID: requestID,
		Ticket:    ticket,
		Routing:   summary,
	})
}

// ListUnassigned pages through the caller's tickets that routing left with
// no team and no agent
func (h *TicketHandler) ListUnassigned(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.CurrentIdentity(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	tickets, err := h.store.ListUnassigned(r.Context(), identity.WorkspaceID, identity.ClientID, perPage, offset)
	if err != nil {
		h.log.Error("Failed to list unassigned tickets", "error", err, "workspace_id", identity.WorkspaceID)
		respondWithError(w, http.StatusInternalServerError, "Failed to get tickets")
		return
	}

	respondWithJSON(w, http.StatusOK, UnassignedResponse{Tickets: tickets, Page: page, PerPage: perPage})
}
