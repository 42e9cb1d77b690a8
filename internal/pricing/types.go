package pricing

import "time"

// HoursPerDay bounds the number of points in a batch.
const HoursPerDay = 24

// PricePoint is one hourly price for the target day.
//
// The fetcher sets Price and Hour. Timestamp and Date are filled in when
// the point is written.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
	Hour      uint8
	Date      string
}

// Batch is the ordered set of prices for one target day.
// Points are in API delivery order and there are at most HoursPerDay of them.
type Batch struct {
	Date   string
	Points []PricePoint
}

// Len returns the number of points in the batch.
func (b Batch) Len() int {
	return len(b.Points)
}

// graphQLRequest is the body POSTed to the API.
type graphQLRequest struct {
	Query string `json:"query"`
}

// graphQLError is one entry of a GraphQL "errors" array.
type graphQLError struct {
	Message string `json:"message"`
}

// priceResponse mirrors the consumed part of the price query result.
// Pointers distinguish null from zero at every level that is validated.
type priceResponse struct {
	Data   *viewerData    `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type viewerData struct {
	Viewer struct {
		Homes []*home `json:"homes"`
	} `json:"viewer"`
}

type home struct {
	CurrentSubscription *subscription `json:"currentSubscription"`
}

type subscription struct {
	PriceInfo *priceInfo `json:"priceInfo"`
}

type priceInfo struct {
	Tomorrow []*price `json:"tomorrow"`
}

type price struct {
	Total    *float64 `json:"total"`
	StartsAt string   `json:"startsAt"`
}
