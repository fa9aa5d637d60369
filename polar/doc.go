// Package polar provides a typed HTTP client for the Polar billing API.
//
// A Client is constructed once from an immutable Config and owns one
// memoized client per API resource (customers, products, subscriptions,
// checkouts, orders, benefits). Transport failures caused by timeouts are
// retried with exponential backoff; HTTP error statuses are mapped to a
// fixed error taxonomy expressed as go-errors categories with POLAR_*
// text codes so callers can match on kind.
package polar
