// Package accounts provides user account primitives: a status lifecycle,
// generated record identifiers, Bun-backed repositories, and Fiber HTTP
// controllers.
//
// Status lifecycle:
//   - Users carry a UserStatus field covering active, inactive, suspended,
//     pending, locked, and deleted flows. Deleted is terminal; soft deletes
//     move a record there instead of erasing it.
//   - Transition and SoftDelete are pure functions that decide legality.
//     UserStateMachine layers persistence, hooks, and activity events on top;
//     invoke it with ActorRef metadata whenever an account changes state.
//
// Identifiers:
//   - Record ids have the shape PREFIX-yyyyMMddHHmmss-SUFFIX (see the idgen
//     subpackage) and are assigned at construction time via NewUser, never by
//     a persistence hook. Client-supplied ids are rejected at the HTTP layer.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the state machine
//     to describe lifecycle events. Sinks run best-effort (errors are logged)
//     so you can forward to a database or queue without blocking the caller.
package accounts
