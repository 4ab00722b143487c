package models

import "fmt"

// ChannelType is the inbound medium a ticket arrived through
type ChannelType string

const (
	ChannelChat  ChannelType = "chat"
	ChannelEmail ChannelType = "email"
)

// ParseChannelType validates a raw channel type
func ParseChannelType(raw string) (ChannelType, error) {
	switch ChannelType(raw) {
	case ChannelChat, ChannelEmail:
		return ChannelType(raw), nil
	}
	return "", fmt.Errorf("unknown channel type %q", raw)
}

// ChannelTeamLink binds an inbound channel (chat widget or email channel) to a team
type ChannelTeamLink struct {
	ID          int64       `json:"id"`
	TeamID      int64       `json:"team_id"`
	WorkspaceID int64       `json:"workspace_id"`
	ClientID    int64       `json:"client_id"`
	ChannelType ChannelType `json:"channel_type"`
	ChannelRef  string      `json:"channel_ref"`
}

// WorkspaceRoutingSetting says whether a workspace routes only through channel mappings
type WorkspaceRoutingSetting struct {
	WorkspaceID       int64 `json:"workspace_id"`
	ClientID          int64 `json:"client_id"`
	TicketRestriction bool  `json:"ticket_restriction"`
}
