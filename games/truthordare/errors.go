/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package truthordare

import "errors"

var (
	// ErrInvalidRosterSize is returned when a command would leave fewer than
	// MinPlayers players in the roster.
	ErrInvalidRosterSize = errors.New("roster must have at least 2 players")

	// ErrRosterTooSmall is an alias kept for callers that remove players.
	ErrRosterTooSmall = ErrInvalidRosterSize

	ErrRosterTooLarge = errors.New("roster is full")
	ErrScoresMismatch = errors.New("scores must be the same length as the roster")
	ErrPlayerIndex    = errors.New("player index out of range")
	ErrEmptyCorpus    = errors.New("prompt corpus must contain at least one truth and one dare")
	ErrUnknownMode    = errors.New("unknown mode")
)
