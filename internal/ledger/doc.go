// Package ledger is the settlement engine of a group ledger. It records
// bills, aggregates unpaid shares into balances and settles them up.
//
// Writes that depend on the current balances run inside
// storage.Store.InGroupTx so that two settle-ups of the same group never
// commit the same debt twice. Events are published only after a write has
// committed, and a failed publish never fails the write.
package ledger
