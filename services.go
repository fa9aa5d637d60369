package gobilling

import (
	"github.com/goliatone/go-billing/billing"
	"github.com/goliatone/go-billing/core"
)

type Config = core.Config

type ConfigProvider = core.ConfigProvider
type OptionsResolver = core.OptionsResolver

type StoreProvider = core.StoreProvider
type Mailer = core.Mailer
type AnalyticsSink = core.AnalyticsSink
type JobSubmitter = core.JobSubmitter
type CollaborationClient = core.CollaborationClient
type MetricsRecorder = core.MetricsRecorder

type ConsumeRequest = billing.ConsumeRequest
type AddRequest = billing.AddRequest
type RefundRequest = billing.RefundRequest
type GrantRequest = billing.GrantRequest

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// New assembles the billing runtime: stores, reconciliation services,
// webhook dispatchers, and the command/query surface.
func New(cfg Config, options ...Option) (*Billing, error) {
	return assemble(cfg, options...)
}

// Setup is an alias of New.
func Setup(cfg Config, options ...Option) (*Billing, error) {
	return assemble(cfg, options...)
}
