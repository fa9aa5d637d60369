package core

import (
	"strings"
	"time"
)

// Tier names form a strict ladder; rank ordering decides whether a tier
// change counts as an upgrade.
const (
	TierFree       = "free"
	TierTrial      = "trial"
	TierStarter    = "starter"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

var tierRanks = map[string]int{
	TierFree:       0,
	TierStarter:    1,
	TierPro:        2,
	TierEnterprise: 3,
}

// TierRank returns the ladder position of a tier name. Unknown names
// (including the transient trial tier) rank with free.
func TierRank(tier string) int {
	return tierRanks[strings.TrimSpace(strings.ToLower(tier))]
}

// Account is the local owner of billing state: credit balance, current
// subscription tier, and provider/GitHub identity bindings.
type Account struct {
	ID                    string
	Email                 string
	PolarCustomerID       string
	GithubUsername        string
	CurrentTier           string
	TrialEndsAt           *time.Time
	CreditBalance         float64
	TotalCreditsConsumed  float64
	TotalCreditsPurchased float64
	AlertsEnabled         bool
	AutoRechargeEnabled   bool
	AutoRechargeThreshold float64
	AutoRechargePackageID string
	LastRechargeAt        *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (a Account) SufficientCredits(amount float64) bool {
	return a.CreditBalance >= amount
}

// Ledger entry types.
const (
	LedgerEntryConsumption = "consumption"
	LedgerEntryPurchase    = "purchase"
	LedgerEntryRefund      = "refund"
)

// Ledger entry statuses.
const (
	LedgerStatusCompleted = "completed"
	LedgerStatusRefunded  = "refunded"
)

// LedgerEntry is one immutable row of the balance-justifying audit log.
// Amount is signed: consumption and refund deductions are negative,
// purchases positive. BalanceAfter of one entry equals BalanceBefore of the
// chronologically next entry for the same account.
type LedgerEntry struct {
	ID                 string
	AccountID          string
	Type               string
	Status             string
	Amount             float64
	BalanceBefore      float64
	BalanceAfter       float64
	OperationType      string
	OperationID        string
	Description        string
	PackageID          string
	PolarOrderID       string
	PolarTransactionID string
	ReferenceID        string
	Metadata           map[string]any
	ProcessedAt        time.Time
	CreatedAt          time.Time
}

// UsageRecord captures one credit-consuming operation alongside its ledger
// entry.
type UsageRecord struct {
	ID              string
	AccountID       string
	LedgerEntryID   string
	OperationType   string
	OperationID     string
	CreditsConsumed float64
	Details         map[string]any
	StartedAt       time.Time
	CompletedAt     time.Time
	Status          string
}

// Alert types and statuses for credit balance monitoring.
const (
	AlertTypeLowBalance         = "low_balance"
	AlertTypeZeroBalance        = "zero_balance"
	AlertTypeAutoRechargeFailed = "auto_recharge_failed"

	AlertStatusActive    = "active"
	AlertStatusDismissed = "dismissed"
)

type Alert struct {
	ID             string
	AccountID      string
	Type           string
	Status         string
	TriggerBalance float64
	CurrentBalance float64
	Message        string
	Metadata       map[string]any
	TriggeredAt    time.Time
	DismissedAt    *time.Time
}

// CreditPackage is a purchasable bundle of credits sold as a provider
// product.
type CreditPackage struct {
	ID             string
	Name           string
	Credits        float64
	PriceCents     int64
	PolarProductID string
	Active         bool
}

// Subscription statuses mirror the provider's lifecycle vocabulary.
const (
	SubscriptionStatusIncomplete = "incomplete"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusActive     = "active"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCancelled  = "cancelled"
	SubscriptionStatusUnpaid     = "unpaid"
)

const (
	BillingIntervalMonthly = "monthly"
	BillingIntervalYearly  = "yearly"
)

type Subscription struct {
	ID                  string
	AccountID           string
	PolarSubscriptionID string
	PolarProductID      string
	Tier                string
	Status              string
	Amount              float64
	Currency            string
	BillingInterval     string
	CurrentPeriodStart  *time.Time
	CurrentPeriodEnd    *time.Time
	TrialStart          *time.Time
	TrialEnd            *time.Time
	CancelAtPeriodEnd   bool
	CancelledAt         *time.Time
	Metadata            map[string]any
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (s Subscription) Active() bool {
	return s.Status == SubscriptionStatusActive || s.Status == SubscriptionStatusTrialing
}

// InGracePeriod reports whether a cancelled subscription still covers the
// current period: cancel-at-period-end set and the period end in the future.
func (s Subscription) InGracePeriod(now time.Time) bool {
	return s.CancelAtPeriodEnd && s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.After(now)
}

// TierDefinition is the catalog row describing one subscription plan.
type TierDefinition struct {
	Name                  string
	DisplayName           string
	Description           string
	MonthlyPrice          float64
	YearlyPrice           float64
	PolarMonthlyProductID string
	PolarYearlyProductID  string
	ProjectsLimit         int64
	TeamMembersLimit      int64
	StorageLimitBytes     int64
	APICallsLimit         int64
	Features              map[string]bool
	Active                bool
	SortOrder             int
}

func (d TierDefinition) MatchesProduct(productID string) bool {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return false
	}
	return productID == d.PolarMonthlyProductID || productID == d.PolarYearlyProductID
}

// Quota resources tracked per account per calendar month.
const (
	QuotaResourceProjects    = "projects"
	QuotaResourceTeamMembers = "team_members"
	QuotaResourceStorage     = "storage_bytes"
	QuotaResourceAPICalls    = "api_calls"
)

// QuotaResources lists every tracked resource in a stable order.
var QuotaResources = []string{
	QuotaResourceProjects,
	QuotaResourceTeamMembers,
	QuotaResourceStorage,
	QuotaResourceAPICalls,
}

// UsageQuota carries an account's per-period usage counters and the limits
// replaced wholesale from the tier definition. A zero limit means unlimited.
type UsageQuota struct {
	AccountID          string
	Tier               string
	Used               map[string]int64
	Limits             map[string]int64
	FeaturesEnabled    map[string]bool
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	UpdatedAt          time.Time
}

func (q UsageQuota) used(resource string) int64 {
	if q.Used == nil {
		return 0
	}
	return q.Used[resource]
}

func (q UsageQuota) limit(resource string) int64 {
	if q.Limits == nil {
		return 0
	}
	return q.Limits[resource]
}

func (q UsageQuota) CanConsume(resource string, amount int64) bool {
	limit := q.limit(resource)
	if limit == 0 {
		return true
	}
	return q.used(resource)+amount <= limit
}

func (q UsageQuota) AtLimit(resource string) bool {
	limit := q.limit(resource)
	if limit == 0 {
		return false
	}
	return q.used(resource) >= limit
}

func (q UsageQuota) Remaining(resource string) int64 {
	limit := q.limit(resource)
	if limit == 0 {
		return -1 // unlimited
	}
	remaining := limit - q.used(resource)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (q UsageQuota) UsagePercent(resource string) float64 {
	limit := q.limit(resource)
	if limit == 0 {
		return 0
	}
	return float64(q.used(resource)) / float64(limit) * 100
}

func (q UsageQuota) FeatureEnabled(name string) bool {
	if q.FeaturesEnabled == nil {
		return false
	}
	return q.FeaturesEnabled[name]
}

// Repository is a purchasable GitHub repository in the access catalog.
type Repository struct {
	ID             string
	GithubID       string
	Name           string
	Owner          string
	FullName       string
	Private        bool
	Active         bool
	PolarProductID string
}

// RepositoryPackage bundles repositories sold together.
type RepositoryPackage struct {
	ID             string
	Name           string
	PolarProductID string
	RepositoryIDs  []string
	Active         bool
}

// Repository access lifecycle. A grant starts pending, moves to invited
// once the collaboration invitation is sent, and becomes active when the
// invitee accepts. Revocation is terminal for that grant instance;
// re-granting returns the row to pending rather than resurrecting history.
const (
	AccessStatusPending = "pending"
	AccessStatusInvited = "invited"
	AccessStatusActive  = "active"
	AccessStatusExpired = "expired"
	AccessStatusRevoked = "revoked"
)

const (
	AccessSourcePackage      = "package_purchase"
	AccessSourceIndividual   = "individual_purchase"
	AccessSourceSubscription = "subscription"
)

type RepositoryAccess struct {
	ID                   string
	AccountID            string
	RepositoryID         string
	Status               string
	AccessLevel          string
	ExpiresAt            *time.Time
	PurchaseReference    string
	PolarOrderID         string
	AccessSource         string
	GrantedAt            time.Time
	InvitationAcceptedAt *time.Time
	LastAccessedAt       *time.Time
	RevokedAt            *time.Time
	RevokedReason        string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (a RepositoryAccess) ActiveNow(now time.Time) bool {
	if a.Status != AccessStatusActive {
		return false
	}
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}
