// Package billing reconciles provider webhook events and local requests
// into account state: credit balances backed by an append-only ledger,
// subscription tiers with usage quotas, and repository access grants.
//
// Every balance mutation runs inside one transaction holding a per-account
// lock, so concurrent operations on the same account serialize and adjacent
// ledger rows always chain balance_after to balance_before.
package billing
