// Package ledger records collection cycles in the collection_runs table.
//
// The ledger is the local history of what the daemon did each day: which
// date it targeted, how many attempts it took and how it ended. It never
// holds price data; that lives in the time-series store.
//
// Usage:
//
//	l := ledger.New(db.DB)
//	if err := l.Record(ctx, cycle); err != nil { ... }
//	recent, err := l.List(ctx, ledger.DefaultLimit)
//
// Rows are keyed by cycle ID, so recording the same cycle twice updates
// it in place. Timestamps are stored as fixed-width UTC strings and List
// returns the newest cycles first.
package ledger
