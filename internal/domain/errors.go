package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidRequest   = errors.New("invalid quote request")
	ErrNoEndpoint       = errors.New("no endpoint available")
	ErrNoQuote          = errors.New("no quotes available")
	ErrStaleQuote       = errors.New("quote is stale")
	ErrSimulationFailed = errors.New("simulation failed")
	ErrOngoingTx        = errors.New("transaction already in flight")
	ErrIncompleteTrace  = errors.New("trace identifiers incomplete")
	ErrDuplicateReport  = errors.New("report already submitted")
)
