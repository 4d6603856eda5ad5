// Package sync fetches species from the remote catalog into the local cache.
//
// # Flows
//
// FetchAndCacheList pages through the basic list and fetches details one at a
// time. FetchGeneration fans out detail fetches for a generation's species,
// bounded by Options.Concurrency, and reuses cached records instead of
// calling the remote. FetchVersion resolves a game version to its regional
// pokedex and fetches details one at a time. Details is the cache-first read
// path for a single species.
//
// # Failure policy
//
// A flow fails when its initial listing call fails or when the local store
// fails. A failure on a single item (bad id, remote error, undecodable body)
// is logged and the item is dropped; Result.Dropped counts those items.
// Nothing is retried.
//
// Results of FetchGeneration are sorted by id whatever the completion order.
//
// # Run reporting
//
// Every flow moves Idle -> Fetching -> Success or Failed. Each transition is
// passed to Options.OnRun and the last run of every flow is kept for
// LastRuns.
package sync
