// Package events carries item lifecycle notifications from the service and
// the overdue sweeper to whoever is interested in them.
//
// Producers depend only on EventEmitter. InMemoryEventEmitter dispatches each
// event synchronously to its registered handlers; LogHandler writes an audit
// line per event.
package events
