// Package bookkeeping provides the value types and rules of a double-entry
// ledger: commodities and exact money amounts, splits and transactions, the
// chart of accounts and the balances computed from it.
//
// The core functionalities include:
//   - Money: exact amounts rounded to the smallest fraction of their
//     commodity, with arithmetic that reports currency mismatches and
//     overflows instead of silently truncating.
//   - Transactions: ordered splits, each a debit or a credit of a non-negative
//     value, the per-commodity imbalance and its automatic correction.
//   - Balances: the balance of an account or of a tree of accounts over a time
//     interval, converted to a reporting commodity through known prices.
//   - Books: encoding and decoding of a whole book to and from JSONL.
//
// Recurring transactions are handled by the schedule package, storage by the
// store packages.
package bookkeeping
