// Package cache implements the normalized client-side cache that mirrors one
// mining session.
//
// # Overview
//
// Entities arrive from the API as nested JSON objects. The cache stores each
// identifiable entity as a standalone record under a canonical id and replaces
// nested occurrences with references:
//
//	Session:sess1
//	  activeMemberIds: ["u1", "u2"]
//	  activeMembers:   {items: [{__ref: SessionUser:sess1:u1}, ...]}
//	  workOrders:      {items: [{__ref: ShipMiningOrder:sess1:o1}, ...]}
//	  scouting:        {items: [{__ref: ShipClusterFind:sess1:f1}, ...]}
//
//	ShipMiningOrder:sess1:o1
//	  state:      "WORKING"
//	  crewShares: [{payeeScName: "pilot", share: 1, ...}]   (embedded, no policy)
//
// # Identity
//
// Policies map each __typename to its key fields. The id of a record is the
// typename followed by its key values, joined by ':'. When a payload omits
// __typename, a Discriminator (orderType, clusterType) picks the concrete
// variant, so every payload resolves to exactly one id and no multi-probe
// lookup is needed. Types without a policy (CrewShare) stay embedded in their
// parent record.
//
// # Port
//
// Port is the interface the reconciler and poller depend on. Memory is the
// in-process implementation:
//
//   - Read/Write/Modify/Evict operate on single records and copy on the way
//     in and out, so callers never share maps with the store.
//   - Batch holds the write lock for the whole callback. A record write and
//     the collection patch that makes it reachable land together.
//   - View holds the read lock so a projection sees one consistent state.
//   - WriteTree normalizes a full-fetch payload; a stored record with a
//     strictly newer updatedAt is left untouched.
//   - GC marks from retained roots, evicts unreachable records and prunes
//     dangling references out of lists.
//
// # Persistence
//
// Export and Import convert the cache to an Image. RedisPersister stores one
// Image per session (JSON encoded with sonic, 24h TTL) so a restart can render
// the last known state before the first fetch completes.
package cache
