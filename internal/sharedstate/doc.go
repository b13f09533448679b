// Package sharedstate owns the canonical patch registry of the process.
//
// Several copies of this package, compiled at different versions, can be
// linked into one process. They must all work on a single store. The first
// copy to call Open creates the store and publishes it through the discovery
// namespace together with a schema descriptor: the schema version, the
// concrete patch set and patch types, and the store itself. Later callers
// join that store.
//
// A joiner whose compiled types match the descriptor binds directly. Any other
// joiner builds an adapter: the methods named by the capability contract in
// package patch are resolved once from the descriptor into tables of
// reflect.Value handles, and thin wrapper types forward every call through
// those tables. A descriptor that lacks a field or operation, or exposes one
// with a different signature, is a fatal configuration error.
//
// # Concurrency
//
// Only the create-or-join decision is serialized across the process, by the
// discovery lock of the state name. The store map uses sync.Map so concurrent
// get-or-insert calls never lose an entry, and every patch set guards its own
// lists with its own mutex so that two targets never contend.
package sharedstate
