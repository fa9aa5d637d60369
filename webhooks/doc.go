// Package webhooks receives provider callbacks, verifies their signatures,
// and routes typed events to registered handlers.
//
// The dispatcher is stateless per call and fails closed: an invalid
// signature rejects the delivery, malformed JSON is a bad-request signal,
// and handler failures are contained at the dispatch boundary as an
// internal-error signal instead of propagating. Duplicate deliveries are
// absorbed through an optional DeliveryLedger so reconciliation handlers
// can assume at-most-once invocation per delivery id.
package webhooks
