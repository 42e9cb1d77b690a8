// Package pricing fetches next-day hourly energy prices from the Tibber
// GraphQL API.
//
// A fetch is one POST of a fixed query with a bearer token. The response is
// checked in a fixed order and the first missing piece names the failure:
//
//	no data -> no homes -> no current subscription -> no price info
//	        -> missing price / missing total (per entry)
//
// Any of these aborts the whole fetch so a partial day is never written.
// Prices keep the order the API delivers them in and the hour of each
// point is its index. The client never retries; that is the scheduler's job.
package pricing
