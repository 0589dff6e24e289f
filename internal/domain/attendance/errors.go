package attendance

import "errors"

var (
	// Filter errors
	ErrFilterNotApplicable = errors.New("filter not yet applicable")
	ErrIncompleteDateRange = errors.New("date range needs both a start and an end date")
	ErrInvalidDateRange    = errors.New("date range end must not be before its start")
	ErrUnknownFilter       = errors.New("unknown categorical filter")
	ErrUnknownCriterion    = errors.New("unknown attendance criterion")
	ErrUnknownStatus       = errors.New("unknown shift status")
	ErrInvalidMonth        = errors.New("month must be between 1 and 12")

	// Fetch errors
	ErrFetchFailed   = errors.New("failed to load attendance page")
	ErrSuperseded    = errors.New("request superseded by a newer one")
	ErrFetcherClosed = errors.New("fetcher closed")
)
