package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// TxRunner exposes the atomicity boundary used by the credit service: every
// balance mutation and its ledger row commit or roll back together.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AccountStore interface {
	Get(ctx context.Context, id string) (Account, error)
	FindByCustomerID(ctx context.Context, polarCustomerID string) (Account, error)
	FindByGithubUsername(ctx context.Context, username string) (Account, error)
	Create(ctx context.Context, account Account) (Account, error)
	Update(ctx context.Context, account Account) (Account, error)
}

type LedgerStore interface {
	Append(ctx context.Context, entry LedgerEntry) (LedgerEntry, error)
	Get(ctx context.Context, id string) (LedgerEntry, error)
	// FindPurchaseByOrderID locates the purchase entry recorded for a
	// provider order, the idempotency key for order.completed events.
	FindPurchaseByOrderID(ctx context.Context, polarOrderID string) (LedgerEntry, error)
	// FindByTransactionID locates an entry by provider transaction id, the
	// idempotency key for refund.created events.
	FindByTransactionID(ctx context.Context, polarTransactionID string) (LedgerEntry, error)
	MarkRefunded(ctx context.Context, id string) error
	// ListByAccount returns entries in chronological order.
	ListByAccount(ctx context.Context, accountID string) ([]LedgerEntry, error)
}

type UsageRecordStore interface {
	Create(ctx context.Context, record UsageRecord) (UsageRecord, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]UsageRecord, error)
}

type AlertStore interface {
	Create(ctx context.Context, alert Alert) (Alert, error)
	// HasRecent reports whether an alert of the given type fired for the
	// account after the cutoff, used to suppress duplicate notifications.
	HasRecent(ctx context.Context, accountID string, alertType string, since time.Time) (bool, error)
	// DismissActive flips active alerts of the given types to dismissed and
	// returns how many rows changed.
	DismissActive(ctx context.Context, accountID string, alertTypes []string, at time.Time) (int, error)
}

type CreditPackageStore interface {
	Get(ctx context.Context, id string) (CreditPackage, error)
	List(ctx context.Context) ([]CreditPackage, error)
}

type SubscriptionStore interface {
	FindByPolarID(ctx context.Context, polarSubscriptionID string) (Subscription, error)
	Create(ctx context.Context, subscription Subscription) (Subscription, error)
	Update(ctx context.Context, subscription Subscription) (Subscription, error)
}

type TierDefinitionStore interface {
	Get(ctx context.Context, name string) (TierDefinition, error)
	FindByProductID(ctx context.Context, productID string) (TierDefinition, error)
	List(ctx context.Context) ([]TierDefinition, error)
	Save(ctx context.Context, definition TierDefinition) (TierDefinition, error)
}

type QuotaStore interface {
	GetByAccount(ctx context.Context, accountID string) (UsageQuota, error)
	Save(ctx context.Context, quota UsageQuota) (UsageQuota, error)
}

type RepositoryStore interface {
	Get(ctx context.Context, id string) (Repository, error)
	FindByGithubID(ctx context.Context, githubID string) (Repository, error)
	ListByPackage(ctx context.Context, packageID string) ([]Repository, error)
	ListByProduct(ctx context.Context, polarProductID string) ([]Repository, error)
}

type RepositoryPackageStore interface {
	Get(ctx context.Context, id string) (RepositoryPackage, error)
}

type AccessStore interface {
	Get(ctx context.Context, id string) (RepositoryAccess, error)
	FindByAccountAndRepository(ctx context.Context, accountID string, repositoryID string) (RepositoryAccess, error)
	ListByPurchaseReference(ctx context.Context, reference string) ([]RepositoryAccess, error)
	ListByOrderID(ctx context.Context, polarOrderID string) ([]RepositoryAccess, error)
	Save(ctx context.Context, access RepositoryAccess) (RepositoryAccess, error)
}

// StoreProvider is what a persistence factory hands the billing services.
type StoreProvider interface {
	AccountStore() AccountStore
	LedgerStore() LedgerStore
	UsageRecordStore() UsageRecordStore
	AlertStore() AlertStore
	CreditPackageStore() CreditPackageStore
	SubscriptionStore() SubscriptionStore
	TierDefinitionStore() TierDefinitionStore
	QuotaStore() QuotaStore
	RepositoryStore() RepositoryStore
	RepositoryPackageStore() RepositoryPackageStore
	AccessStore() AccessStore
	TxRunner() TxRunner
}

// MailMessage is a fire-and-forget notification request. Delivery is an
// external collaborator concern; failures are logged, never raised.
type MailMessage struct {
	Template string
	To       string
	Fields   map[string]any
}

type Mailer interface {
	Send(ctx context.Context, message MailMessage) error
}

type AnalyticsEvent struct {
	AccountID  string
	Name       string
	Properties map[string]any
}

type AnalyticsSink interface {
	Track(ctx context.Context, event AnalyticsEvent) error
}

// JobRequest is a deferred unit of work submitted to the job queue
// collaborator with at-least-once semantics.
type JobRequest struct {
	Name    string
	Payload map[string]any
}

type JobSubmitter interface {
	Submit(ctx context.Context, job JobRequest) error
}

// CollaborationClient manages repository collaborators on the hosting
// platform for the repository-access scenario.
type CollaborationClient interface {
	InviteCollaborator(ctx context.Context, repoFullName string, username string, permission string) error
	RemoveCollaborator(ctx context.Context, repoFullName string, username string) error
	IsCollaborator(ctx context.Context, repoFullName string, username string) (bool, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

var _ MetricsRecorder = NopMetricsRecorder{}
