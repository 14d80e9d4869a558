package game

import "errors"

// Failure taxonomy shared by engines, rooms and the server layer. All are
// synchronous results returned to the caller; none are retried internally.
var (
	// ErrValidation covers malformed input: bad bet amounts, unknown game
	// types, missing fields. Rejected before any state changes.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientFunds means the bet exceeds the available balance.
	// Nothing is deducted.
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrNotFound marks an unknown round, room or game id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState marks a transition the state machine forbids, e.g.
	// joining a room that is already playing or settling a settled round.
	// The existing state is left untouched.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrFairnessViolation means a recomputed digest or outcome does not
	// match the stored value. Possible tampering or an engine bug; it is
	// surfaced distinctly and never corrected silently.
	ErrFairnessViolation = errors.New("fairness verification failed")
)
