package routing

import "errors"

var (
	// ErrAmbiguousChannel is logged when more than one team is linked to a channel
	ErrAmbiguousChannel = errors.New("channel linked to more than one team")
	// ErrEmptyMembership is returned by an assignment when the team has no members
	ErrEmptyMembership = errors.New("team has no members")
	// ErrNoStrategy is returned when a team's routing strategy selects no agent
	ErrNoStrategy = errors.New("team has no assignment strategy")
)
