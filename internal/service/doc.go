// Package service implements the item lifecycle engine: validation, the
// duplicate policy for open items, and the NOT_DONE/DONE/OVERDUE state
// machine. It depends only on the store.ItemStore contract, an injected
// clock and an event emitter.
package service
