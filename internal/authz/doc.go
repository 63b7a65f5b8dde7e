// Package authz carries the single authorization identity (Principal) bound
// to a request context. Identity issuance and verification happen in an
// external auth layer (see spec §1, Out of scope); this package only
// represents the principal the core trusts for the duration of one request
// or background task, and enforces that every context has at most one.
//
//   - Principal: System/User/APIKey/Test, set via NewSystemContext,
//     NewUserContext, NewAPIKeyContext, or WithPrincipal.
//   - Set-once: WithPrincipal rejects a second, conflicting principal on the
//     same context chain.
//   - Background tasks (the Background Queue, the stuck-processing sweep)
//     run under NewSystemContext since they act on no single user's behalf.
package authz
