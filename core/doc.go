// Package core defines the domain model, store contracts, collaborator
// interfaces, and error envelope shared by the billing reconciliation
// packages. It holds no business logic of its own; the billing package
// drives mutations through the contracts declared here.
package core
