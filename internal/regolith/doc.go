// Package regolith provides a GraphQL client for the mining session API.
//
// # Overview
//
// The client issues the two queries the poller needs:
//
//   - getSession: the full Session aggregate with its activeMembers,
//     workOrders and scouting collections. Each collection is paginated; the
//     client follows nextToken with a per-collection page query (at most 50
//     pages) and returns a single merged payload.
//   - getSessionUpdates: the delta records emitted since a watermark, given as
//     an epoch-millisecond string.
//
// Payloads are returned as cache.Fragment values rather than typed structs.
// The reconciler merges fields generically and the cache normalizes nested
// entities, so the client never needs to know every field the server sends.
//
// # Wire Format
//
// Requests are POSTed as {"operationName", "query", "variables"} and encoded
// with sonic. Integers decode as int64 so epoch-millisecond timestamps survive
// exactly. Every request carries a fresh X-Request-ID (uuid v4) and, when a
// token is configured, a Bearer Authorization header.
//
// Delta payloads alias the state field per union member (sessionUserState,
// workOrderState, ...) because GraphQL rejects overlapping fields with
// different enum types inside one selection.
//
// # Type Policies
//
// Policies returns the cache key fields for every concrete type and the
// orderType/clusterType discriminators used when a payload lacks
// __typename. CrewShare has no policy and stays embedded in its work order.
//
// # Error Handling
//
//   - Transport failures and non-2xx statuses are wrapped with context.
//   - A non-empty GraphQL errors array becomes *GraphQLError.
//   - A null session becomes ErrSessionNotFound.
//
// # Testing
//
// SessionFetcher is the seam the poller depends on; tests substitute a fake.
// The client itself is exercised against httptest servers.
package regolith
