package domain

import "errors"

// Domain errors
var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrWrongPhase         = errors.New("invalid action for current phase")
	ErrAlreadyVoted       = errors.New("already voted this round")
	ErrNotEnoughPlayers   = errors.New("not enough players to start")
	ErrNoProposition      = errors.New("need at least one role proposition to start")
	ErrPlayerEliminated   = errors.New("player has been eliminated")
	ErrInvalidTarget      = errors.New("invalid vote target")
	ErrVotingIncomplete   = errors.New("not every alive player has voted")
	ErrInvalidTransition  = errors.New("invalid phase transition")
	ErrTransportFailure   = errors.New("send to connection failed")
	ErrCodeSpaceExhausted = errors.New("failed to generate unique match code")
	ErrMatchFull          = errors.New("match is full")
)
