// Package models defines the core domain models for settlewise.
//
// # Ledger Models
//
//   - Bill: a recorded group expense with a total and a payer
//   - BillShare: one participant's portion of a Bill
//   - UnpaidShare: read model joining an unpaid share to its bill's payer
//   - Transaction: a derived from→to payment produced by debt simplification
//   - Event: a structured notification broadcast to a group's listeners
//
// # Identity Models
//
//   - User: a registered account
//   - Group, GroupMember: who shares a ledger, and with which role
//
// # Design Principles
//
//  1. **Exact money**: every amount is a decimal.Decimal kept at 2 decimal places
//  2. **History is append-only**: settling up adds bills, it never rewrites old ones
//  3. **Soft deletes**: removed bills and shares keep their row with DeletedAt set
//  4. **IDs, not pointers**: relationships are expressed with ID strings
package models
