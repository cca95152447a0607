// Package reconcile merges sessionUpdates deltas into the normalized cache.
//
// Each delta carries a __typename (or a discriminator such as orderType) that
// selects how it is applied:
//
//	Session            merged in place, retained as a GC root
//	SessionUser        merged; new members join activeMembers and activeMemberIds
//	work order types   merged; new orders join the session's workOrders
//	scouting types     merged; new finds join the session's scouting
//	CrewShare          patched into the crewShares list of its work order
//	anything else      logged and ignored
//
// Updates are merged as {...existing, ...data}, with state taken from the
// aliased state field of the query (workOrderState, sessionUserState, ...)
// when present. A delta older than the cached record (strictly smaller
// updatedAt) is skipped. REMOVE evicts unconditionally and is followed by a
// garbage collection that prunes the dangling references.
//
// Crew shares have no record of their own. When a share arrives before its
// work order is cached, the reconciler leaves the cache untouched and parks
// the share in a bounded queue. Parked shares are retried after every batch
// and every full fetch, and dropped with a log line once they run out of
// attempts.
//
// The Watermark tracks the lastCheck cursor for the next delta query. It
// advances to the newest eventDate of each batch, or to the last full fetch
// when a batch is empty, and never moves backwards.
package reconcile
