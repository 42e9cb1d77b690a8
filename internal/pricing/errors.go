package pricing

import "errors"

// Fetch failures, in the order the response is validated.
//
//	if errors.Is(err, pricing.ErrNoSubscription) {
//	    // the home has no active contract, retrying today will not help
//	}
var (
	// ErrNoData is returned when the response carries no data object.
	ErrNoData = errors.New("pricing: no data")

	// ErrNoHomes is returned when the viewer has no (non-null) homes.
	ErrNoHomes = errors.New("pricing: no homes")

	// ErrNoSubscription is returned when the first home has no current subscription.
	ErrNoSubscription = errors.New("pricing: no current subscription")

	// ErrNoPriceInfo is returned when the subscription carries no price info.
	ErrNoPriceInfo = errors.New("pricing: no price info")

	// ErrMissingPrice is returned when an entry in tomorrow's list is null.
	ErrMissingPrice = errors.New("pricing: missing price")

	// ErrMissingTotal is returned when an entry has no total.
	ErrMissingTotal = errors.New("pricing: missing total")

	// ErrTooManyPrices is returned when more than 24 prices are delivered.
	ErrTooManyPrices = errors.New("pricing: more than 24 prices")

	// ErrRequestFailed wraps transport failures, non-2xx responses,
	// GraphQL errors and undecodable bodies.
	ErrRequestFailed = errors.New("pricing: request failed")
)
