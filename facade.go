package gobilling

import (
	"context"
	"fmt"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-billing/adapters/gocommand"
	"github.com/goliatone/go-billing/adapters/gologger"
	"github.com/goliatone/go-billing/billing"
	billingcommand "github.com/goliatone/go-billing/command"
	"github.com/goliatone/go-billing/core"
	"github.com/goliatone/go-billing/polar"
	billingquery "github.com/goliatone/go-billing/query"
	sqlstore "github.com/goliatone/go-billing/store/sql"
	"github.com/goliatone/go-billing/webhooks"
)

// Billing is the assembled runtime: persistence-backed stores, the
// reconciliation services, both webhook dispatchers, and a ready-made
// command/query surface.
type Billing struct {
	config core.Config
	logger core.Logger

	stores    core.StoreProvider
	credits   *billing.Credits
	tiers     *billing.Tiers
	access    *billing.Access
	checkouts *billing.Checkouts
	handlers  *billing.Handlers

	polarClient      *polar.Client
	polarDispatcher  *webhooks.Dispatcher
	githubDispatcher *webhooks.Dispatcher

	commands Commands
	queries  Queries
}

type Commands struct {
	ConsumeCredits      *billingcommand.ConsumeCreditsCommand
	AddCredits          *billingcommand.AddCreditsCommand
	RefundCredits       *billingcommand.RefundCreditsCommand
	GrantWelcomeCredits *billingcommand.GrantWelcomeCreditsCommand
	GrantAccess         *billingcommand.GrantAccessCommand
	RevokeAccess        *billingcommand.RevokeAccessCommand
	ProcessWebhook      *billingcommand.ProcessWebhookCommand
}

type Queries struct {
	GetAccount         *billingquery.GetAccountQuery
	CreditHistory      *billingquery.CreditHistoryQuery
	ListUsageRecords   *billingquery.ListUsageRecordsQuery
	ListCreditPackages *billingquery.ListCreditPackagesQuery
	ListTiers          *billingquery.ListTiersQuery
	GetUsageQuota      *billingquery.GetUsageQuotaQuery
	ListAccessGrants   *billingquery.ListAccessGrantsQuery
}

type builder struct {
	logger            core.Logger
	loggerProvider    glog.LoggerProvider
	configProvider    core.ConfigProvider
	optionsResolver   core.OptionsResolver
	persistenceClient any
	stores            core.StoreProvider
	storeOptions      []sqlstore.FactoryOption

	mailer        core.Mailer
	analytics     core.AnalyticsSink
	jobs          core.JobSubmitter
	metrics       core.MetricsRecorder
	collaboration core.CollaborationClient

	polarClient   *polar.Client
	polarConfig   *polar.Config
	polarSecret   string
	githubSecret  string
	webhookLedger webhooks.DeliveryLedger
}

type Option func(*builder)

func WithLogger(logger core.Logger) Option {
	return func(b *builder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider glog.LoggerProvider) Option {
	return func(b *builder) {
		b.loggerProvider = provider
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *builder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *builder) {
		b.optionsResolver = resolver
	}
}

// WithPersistenceClient hands the facade a go-persistence-bun client (or a
// *bun.DB) to build its own store factory from.
func WithPersistenceClient(client any) Option {
	return func(b *builder) {
		b.persistenceClient = client
	}
}

// WithStoreProvider skips store construction entirely. Useful for tests.
func WithStoreProvider(stores core.StoreProvider) Option {
	return func(b *builder) {
		b.stores = stores
	}
}

func WithStoreFactoryOptions(options ...sqlstore.FactoryOption) Option {
	return func(b *builder) {
		b.storeOptions = append(b.storeOptions, options...)
	}
}

func WithMailer(mailer core.Mailer) Option {
	return func(b *builder) {
		b.mailer = mailer
	}
}

func WithAnalyticsSink(sink core.AnalyticsSink) Option {
	return func(b *builder) {
		b.analytics = sink
	}
}

func WithJobSubmitter(jobs core.JobSubmitter) Option {
	return func(b *builder) {
		b.jobs = jobs
	}
}

func WithMetricsRecorder(metrics core.MetricsRecorder) Option {
	return func(b *builder) {
		b.metrics = metrics
	}
}

func WithCollaborationClient(client core.CollaborationClient) Option {
	return func(b *builder) {
		b.collaboration = client
	}
}

func WithPolarClient(client *polar.Client) Option {
	return func(b *builder) {
		b.polarClient = client
	}
}

func WithPolarConfig(cfg polar.Config) Option {
	return func(b *builder) {
		b.polarConfig = &cfg
	}
}

// WithPolarWebhookSecret enables the provider-facing dispatcher.
func WithPolarWebhookSecret(secret string) Option {
	return func(b *builder) {
		b.polarSecret = secret
	}
}

// WithGitHubWebhookSecret enables the collaboration-facing dispatcher.
func WithGitHubWebhookSecret(secret string) Option {
	return func(b *builder) {
		b.githubSecret = secret
	}
}

// WithWebhookDeliveryLedger overrides the dedupe ledger. When unset the
// facade uses the store factory's webhook delivery store.
func WithWebhookDeliveryLedger(ledger webhooks.DeliveryLedger) Option {
	return func(b *builder) {
		b.webhookLedger = ledger
	}
}

func assemble(runtime Config, options ...Option) (*Billing, error) {
	b := builder{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&b)
	}

	cfg, err := core.ResolveConfig(context.Background(), b.configProvider, b.optionsResolver, runtime)
	if err != nil {
		return nil, err
	}

	_, logger := gologger.Resolve(cfg.ServiceName, b.loggerProvider, b.logger)

	stores := b.stores
	if stores == nil {
		if b.persistenceClient == nil {
			return nil, fmt.Errorf("billing: a store provider or persistence client is required")
		}
		factory := sqlstore.NewRepositoryFactory(b.storeOptions...)
		if _, err := factory.BuildStores(b.persistenceClient); err != nil {
			return nil, err
		}
		stores = factory
	}

	polarClient := b.polarClient
	if polarClient == nil && b.polarConfig != nil {
		polarClient, err = polar.NewClient(*b.polarConfig)
		if err != nil {
			return nil, err
		}
	}

	credits := billing.NewCredits(stores, cfg,
		creditsOptions(&b, gologger.ServiceLogger("billing.credits", b.loggerProvider, logger))...)
	tiers := billing.NewTiers(stores, cfg,
		tiersOptions(&b, gologger.ServiceLogger("billing.tiers", b.loggerProvider, logger))...)
	access := billing.NewAccess(stores, b.collaboration,
		accessOptions(&b, gologger.ServiceLogger("billing.access", b.loggerProvider, logger))...)
	handlers := billing.NewHandlers(credits, tiers, access, stores)

	var checkouts *billing.Checkouts
	if polarClient != nil {
		checkouts = billing.NewCheckouts(polarClient, stores, credits)
	}

	out := &Billing{
		config:      cfg,
		logger:      logger,
		stores:      stores,
		credits:     credits,
		tiers:       tiers,
		access:      access,
		checkouts:   checkouts,
		handlers:    handlers,
		polarClient: polarClient,
	}

	ledger := b.webhookLedger
	if ledger == nil {
		if f, ok := stores.(*sqlstore.RepositoryFactory); ok {
			ledger = f.WebhookDeliveryStore()
		}
	}

	if b.polarSecret != "" {
		out.polarDispatcher = newDispatcher(webhooks.NewPolarVerifier(b.polarSecret), ledger, logger)
		handlers.RegisterPolar(out.polarDispatcher)
	}
	if b.githubSecret != "" {
		out.githubDispatcher = newDispatcher(webhooks.NewGitHubVerifier(b.githubSecret), ledger, logger)
		handlers.RegisterGitHub(out.githubDispatcher)
	}

	dispatchers := map[string]billingcommand.WebhookDispatching{}
	if out.polarDispatcher != nil {
		dispatchers[webhooks.SourcePolar] = out.polarDispatcher
	}
	if out.githubDispatcher != nil {
		dispatchers[webhooks.SourceGitHub] = out.githubDispatcher
	}

	out.commands = Commands{
		ConsumeCredits:      billingcommand.NewConsumeCreditsCommand(credits),
		AddCredits:          billingcommand.NewAddCreditsCommand(credits),
		RefundCredits:       billingcommand.NewRefundCreditsCommand(credits),
		GrantWelcomeCredits: billingcommand.NewGrantWelcomeCreditsCommand(credits),
		GrantAccess:         billingcommand.NewGrantAccessCommand(access),
		RevokeAccess:        billingcommand.NewRevokeAccessCommand(access),
		ProcessWebhook:      billingcommand.NewProcessWebhookCommand(dispatchers),
	}
	out.queries = Queries{
		GetAccount:         billingquery.NewGetAccountQuery(stores.AccountStore()),
		CreditHistory:      billingquery.NewCreditHistoryQuery(credits),
		ListUsageRecords:   billingquery.NewListUsageRecordsQuery(stores.UsageRecordStore()),
		ListCreditPackages: billingquery.NewListCreditPackagesQuery(stores.CreditPackageStore()),
		ListTiers:          billingquery.NewListTiersQuery(stores.TierDefinitionStore()),
		GetUsageQuota:      billingquery.NewGetUsageQuotaQuery(stores.QuotaStore()),
		ListAccessGrants:   billingquery.NewListAccessGrantsQuery(stores.AccessStore()),
	}

	return out, nil
}

func newDispatcher(verifier webhooks.Verifier, ledger webhooks.DeliveryLedger, logger core.Logger) *webhooks.Dispatcher {
	opts := []webhooks.DispatcherOption{webhooks.WithLogger(logger)}
	if ledger != nil {
		opts = append(opts, webhooks.WithDeliveryLedger(ledger))
	}
	return webhooks.NewDispatcher(verifier, opts...)
}

func creditsOptions(b *builder, logger core.Logger) []billing.CreditsOption {
	out := []billing.CreditsOption{billing.WithCreditsLogger(logger)}
	if b.mailer != nil {
		out = append(out, billing.WithCreditsMailer(b.mailer))
	}
	if b.analytics != nil {
		out = append(out, billing.WithCreditsAnalytics(b.analytics))
	}
	if b.jobs != nil {
		out = append(out, billing.WithCreditsJobs(b.jobs))
	}
	if b.metrics != nil {
		out = append(out, billing.WithCreditsMetrics(b.metrics))
	}
	return out
}

func tiersOptions(b *builder, logger core.Logger) []billing.TiersOption {
	out := []billing.TiersOption{billing.WithTiersLogger(logger)}
	if b.mailer != nil {
		out = append(out, billing.WithTiersMailer(b.mailer))
	}
	if b.analytics != nil {
		out = append(out, billing.WithTiersAnalytics(b.analytics))
	}
	return out
}

func accessOptions(b *builder, logger core.Logger) []billing.AccessOption {
	out := []billing.AccessOption{billing.WithAccessLogger(logger)}
	if b.mailer != nil {
		out = append(out, billing.WithAccessMailer(b.mailer))
	}
	if b.analytics != nil {
		out = append(out, billing.WithAccessAnalytics(b.analytics))
	}
	return out
}

func (b *Billing) Config() Config {
	if b == nil {
		return Config{}
	}
	return b.config
}

func (b *Billing) Stores() core.StoreProvider {
	if b == nil {
		return nil
	}
	return b.stores
}

func (b *Billing) Credits() *billing.Credits {
	if b == nil {
		return nil
	}
	return b.credits
}

func (b *Billing) Tiers() *billing.Tiers {
	if b == nil {
		return nil
	}
	return b.tiers
}

func (b *Billing) Access() *billing.Access {
	if b == nil {
		return nil
	}
	return b.access
}

func (b *Billing) Checkouts() *billing.Checkouts {
	if b == nil {
		return nil
	}
	return b.checkouts
}

func (b *Billing) Handlers() *billing.Handlers {
	if b == nil {
		return nil
	}
	return b.handlers
}

func (b *Billing) PolarClient() *polar.Client {
	if b == nil {
		return nil
	}
	return b.polarClient
}

// PolarDispatcher is nil unless WithPolarWebhookSecret was supplied.
func (b *Billing) PolarDispatcher() *webhooks.Dispatcher {
	if b == nil {
		return nil
	}
	return b.polarDispatcher
}

// GitHubDispatcher is nil unless WithGitHubWebhookSecret was supplied.
func (b *Billing) GitHubDispatcher() *webhooks.Dispatcher {
	if b == nil {
		return nil
	}
	return b.githubDispatcher
}

func (b *Billing) Commands() Commands {
	if b == nil {
		return Commands{}
	}
	return b.commands
}

func (b *Billing) Queries() Queries {
	if b == nil {
		return Queries{}
	}
	return b.queries
}

// MountCommandSurface registers the assembled commands and queries on the
// adapter's registry and subscribes them to go-command's process-wide
// dispatcher. Queue resolvers and adapter.Initialize remain the caller's
// responsibility. The returned group unsubscribes everything on teardown.
func (b *Billing) MountCommandSurface(adapter *gocommand.RegistryAdapter) (gocommand.SubscriptionGroup, error) {
	if b == nil {
		return nil, fmt.Errorf("billing: runtime is not assembled")
	}
	if adapter == nil {
		return nil, fmt.Errorf("billing: registry adapter is required")
	}

	m := gocommand.NewMounter(adapter)
	gocommand.MountCommand(m, b.commands.ConsumeCredits)
	gocommand.MountCommand(m, b.commands.AddCredits)
	gocommand.MountCommand(m, b.commands.RefundCredits)
	gocommand.MountCommand(m, b.commands.GrantWelcomeCredits)
	gocommand.MountCommand(m, b.commands.GrantAccess)
	gocommand.MountCommand(m, b.commands.RevokeAccess)
	gocommand.MountCommand(m, b.commands.ProcessWebhook)
	gocommand.MountQuery(m, b.queries.GetAccount)
	gocommand.MountQuery(m, b.queries.CreditHistory)
	gocommand.MountQuery(m, b.queries.ListUsageRecords)
	gocommand.MountQuery(m, b.queries.ListCreditPackages)
	gocommand.MountQuery(m, b.queries.ListTiers)
	gocommand.MountQuery(m, b.queries.GetUsageQuota)
	gocommand.MountQuery(m, b.queries.ListAccessGrants)
	return m.Finish()
}
