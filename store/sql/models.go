package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-billing/core"
	"github.com/goliatone/go-billing/webhooks"
)

type accountRecord struct {
	bun.BaseModel `bun:"table:billing_accounts,alias:ba"`

	ID                    string     `bun:"id,pk"`
	Email                 string     `bun:"email,notnull"`
	PolarCustomerID       string     `bun:"polar_customer_id"`
	GithubUsername        string     `bun:"github_username"`
	CurrentTier           string     `bun:"current_tier,notnull"`
	TrialEndsAt           *time.Time `bun:"trial_ends_at,nullzero"`
	CreditBalance         float64    `bun:"credit_balance,notnull"`
	TotalCreditsConsumed  float64    `bun:"total_credits_consumed,notnull"`
	TotalCreditsPurchased float64    `bun:"total_credits_purchased,notnull"`
	AlertsEnabled         bool       `bun:"alerts_enabled,notnull"`
	AutoRechargeEnabled   bool       `bun:"auto_recharge_enabled,notnull"`
	AutoRechargeThreshold float64    `bun:"auto_recharge_threshold,notnull"`
	AutoRechargePackageID string     `bun:"auto_recharge_package_id"`
	LastRechargeAt        *time.Time `bun:"last_recharge_at,nullzero"`
	CreatedAt             time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt             time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newAccountRecord(account core.Account) *accountRecord {
	return &accountRecord{
		ID:                    account.ID,
		Email:                 account.Email,
		PolarCustomerID:       account.PolarCustomerID,
		GithubUsername:        account.GithubUsername,
		CurrentTier:           account.CurrentTier,
		TrialEndsAt:           cloneTimePointer(account.TrialEndsAt),
		CreditBalance:         account.CreditBalance,
		TotalCreditsConsumed:  account.TotalCreditsConsumed,
		TotalCreditsPurchased: account.TotalCreditsPurchased,
		AlertsEnabled:         account.AlertsEnabled,
		AutoRechargeEnabled:   account.AutoRechargeEnabled,
		AutoRechargeThreshold: account.AutoRechargeThreshold,
		AutoRechargePackageID: account.AutoRechargePackageID,
		LastRechargeAt:        cloneTimePointer(account.LastRechargeAt),
		CreatedAt:             account.CreatedAt,
		UpdatedAt:             account.UpdatedAt,
	}
}

func (r *accountRecord) toDomain() core.Account {
	if r == nil {
		return core.Account{}
	}
	return core.Account{
		ID:                    r.ID,
		Email:                 r.Email,
		PolarCustomerID:       r.PolarCustomerID,
		GithubUsername:        r.GithubUsername,
		CurrentTier:           r.CurrentTier,
		TrialEndsAt:           cloneTimePointer(r.TrialEndsAt),
		CreditBalance:         r.CreditBalance,
		TotalCreditsConsumed:  r.TotalCreditsConsumed,
		TotalCreditsPurchased: r.TotalCreditsPurchased,
		AlertsEnabled:         r.AlertsEnabled,
		AutoRechargeEnabled:   r.AutoRechargeEnabled,
		AutoRechargeThreshold: r.AutoRechargeThreshold,
		AutoRechargePackageID: r.AutoRechargePackageID,
		LastRechargeAt:        cloneTimePointer(r.LastRechargeAt),
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

type ledgerEntryRecord struct {
	bun.BaseModel `bun:"table:credit_ledger_entries,alias:cle"`

	ID                 string         `bun:"id,pk"`
	AccountID          string         `bun:"account_id,notnull"`
	EntryType          string         `bun:"entry_type,notnull"`
	Status             string         `bun:"status,notnull"`
	Amount             float64        `bun:"amount,notnull"`
	BalanceBefore      float64        `bun:"balance_before,notnull"`
	BalanceAfter       float64        `bun:"balance_after,notnull"`
	OperationType      string         `bun:"operation_type"`
	OperationID        string         `bun:"operation_id"`
	Description        string         `bun:"description"`
	PackageID          string         `bun:"package_id"`
	PolarOrderID       string         `bun:"polar_order_id"`
	PolarTransactionID string         `bun:"polar_transaction_id"`
	ReferenceID        string         `bun:"reference_id"`
	Metadata           map[string]any `bun:"metadata,type:jsonb"`
	ProcessedAt        time.Time      `bun:"processed_at,nullzero,notnull"`
	CreatedAt          time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func newLedgerEntryRecord(entry core.LedgerEntry) *ledgerEntryRecord {
	return &ledgerEntryRecord{
		ID:                 entry.ID,
		AccountID:          entry.AccountID,
		EntryType:          entry.Type,
		Status:             entry.Status,
		Amount:             entry.Amount,
		BalanceBefore:      entry.BalanceBefore,
		BalanceAfter:       entry.BalanceAfter,
		OperationType:      entry.OperationType,
		OperationID:        entry.OperationID,
		Description:        entry.Description,
		PackageID:          entry.PackageID,
		PolarOrderID:       entry.PolarOrderID,
		PolarTransactionID: entry.PolarTransactionID,
		ReferenceID:        entry.ReferenceID,
		Metadata:           copyAnyMap(entry.Metadata),
		ProcessedAt:        entry.ProcessedAt,
		CreatedAt:          entry.CreatedAt,
	}
}

func (r *ledgerEntryRecord) toDomain() core.LedgerEntry {
	if r == nil {
		return core.LedgerEntry{}
	}
	return core.LedgerEntry{
		ID:                 r.ID,
		AccountID:          r.AccountID,
		Type:               r.EntryType,
		Status:             r.Status,
		Amount:             r.Amount,
		BalanceBefore:      r.BalanceBefore,
		BalanceAfter:       r.BalanceAfter,
		OperationType:      r.OperationType,
		OperationID:        r.OperationID,
		Description:        r.Description,
		PackageID:          r.PackageID,
		PolarOrderID:       r.PolarOrderID,
		PolarTransactionID: r.PolarTransactionID,
		ReferenceID:        r.ReferenceID,
		Metadata:           copyAnyMap(r.Metadata),
		ProcessedAt:        r.ProcessedAt,
		CreatedAt:          r.CreatedAt,
	}
}

type usageRecordRow struct {
	bun.BaseModel `bun:"table:usage_records,alias:ur"`

	ID              string         `bun:"id,pk"`
	AccountID       string         `bun:"account_id,notnull"`
	LedgerEntryID   string         `bun:"ledger_entry_id"`
	OperationType   string         `bun:"operation_type,notnull"`
	OperationID     string         `bun:"operation_id"`
	CreditsConsumed float64        `bun:"credits_consumed,notnull"`
	Details         map[string]any `bun:"details,type:jsonb"`
	StartedAt       time.Time      `bun:"started_at,nullzero,notnull"`
	CompletedAt     time.Time      `bun:"completed_at,nullzero,notnull"`
	Status          string         `bun:"status,notnull"`
}

func newUsageRecordRow(record core.UsageRecord) *usageRecordRow {
	return &usageRecordRow{
		ID:              record.ID,
		AccountID:       record.AccountID,
		LedgerEntryID:   record.LedgerEntryID,
		OperationType:   record.OperationType,
		OperationID:     record.OperationID,
		CreditsConsumed: record.CreditsConsumed,
		Details:         copyAnyMap(record.Details),
		StartedAt:       record.StartedAt,
		CompletedAt:     record.CompletedAt,
		Status:          record.Status,
	}
}

func (r *usageRecordRow) toDomain() core.UsageRecord {
	if r == nil {
		return core.UsageRecord{}
	}
	return core.UsageRecord{
		ID:              r.ID,
		AccountID:       r.AccountID,
		LedgerEntryID:   r.LedgerEntryID,
		OperationType:   r.OperationType,
		OperationID:     r.OperationID,
		CreditsConsumed: r.CreditsConsumed,
		Details:         copyAnyMap(r.Details),
		StartedAt:       r.StartedAt,
		CompletedAt:     r.CompletedAt,
		Status:          r.Status,
	}
}

type alertRecord struct {
	bun.BaseModel `bun:"table:credit_alerts,alias:cal"`

	ID             string         `bun:"id,pk"`
	AccountID      string         `bun:"account_id,notnull"`
	AlertType      string         `bun:"alert_type,notnull"`
	Status         string         `bun:"status,notnull"`
	TriggerBalance float64        `bun:"trigger_balance"`
	CurrentBalance float64        `bun:"current_balance"`
	Message        string         `bun:"message"`
	Metadata       map[string]any `bun:"metadata,type:jsonb"`
	TriggeredAt    time.Time      `bun:"triggered_at,nullzero,notnull"`
	DismissedAt    *time.Time     `bun:"dismissed_at,nullzero"`
}

func newAlertRecord(alert core.Alert) *alertRecord {
	return &alertRecord{
		ID:             alert.ID,
		AccountID:      alert.AccountID,
		AlertType:      alert.Type,
		Status:         alert.Status,
		TriggerBalance: alert.TriggerBalance,
		CurrentBalance: alert.CurrentBalance,
		Message:        alert.Message,
		Metadata:       copyAnyMap(alert.Metadata),
		TriggeredAt:    alert.TriggeredAt,
		DismissedAt:    cloneTimePointer(alert.DismissedAt),
	}
}

func (r *alertRecord) toDomain() core.Alert {
	if r == nil {
		return core.Alert{}
	}
	return core.Alert{
		ID:             r.ID,
		AccountID:      r.AccountID,
		Type:           r.AlertType,
		Status:         r.Status,
		TriggerBalance: r.TriggerBalance,
		CurrentBalance: r.CurrentBalance,
		Message:        r.Message,
		Metadata:       copyAnyMap(r.Metadata),
		TriggeredAt:    r.TriggeredAt,
		DismissedAt:    cloneTimePointer(r.DismissedAt),
	}
}

type creditPackageRecord struct {
	bun.BaseModel `bun:"table:credit_packages,alias:cpk"`

	ID             string  `bun:"id,pk"`
	Name           string  `bun:"name,notnull"`
	Credits        float64 `bun:"credits,notnull"`
	PriceCents     int64   `bun:"price_cents,notnull"`
	PolarProductID string  `bun:"polar_product_id"`
	Active         bool    `bun:"active,notnull"`
}

func (r *creditPackageRecord) toDomain() core.CreditPackage {
	if r == nil {
		return core.CreditPackage{}
	}
	return core.CreditPackage{
		ID:             r.ID,
		Name:           r.Name,
		Credits:        r.Credits,
		PriceCents:     r.PriceCents,
		PolarProductID: r.PolarProductID,
		Active:         r.Active,
	}
}

type subscriptionRecord struct {
	bun.BaseModel `bun:"table:billing_subscriptions,alias:bs"`

	ID                  string         `bun:"id,pk"`
	AccountID           string         `bun:"account_id,notnull"`
	PolarSubscriptionID string         `bun:"polar_subscription_id,notnull"`
	PolarProductID      string         `bun:"polar_product_id"`
	Tier                string         `bun:"tier,notnull"`
	Status              string         `bun:"status,notnull"`
	Amount              float64        `bun:"amount,notnull"`
	Currency            string         `bun:"currency,notnull"`
	BillingInterval     string         `bun:"billing_interval,notnull"`
	CurrentPeriodStart  *time.Time     `bun:"current_period_start,nullzero"`
	CurrentPeriodEnd    *time.Time     `bun:"current_period_end,nullzero"`
	TrialStart          *time.Time     `bun:"trial_start,nullzero"`
	TrialEnd            *time.Time     `bun:"trial_end,nullzero"`
	CancelAtPeriodEnd   bool           `bun:"cancel_at_period_end,notnull"`
	CancelledAt         *time.Time     `bun:"cancelled_at,nullzero"`
	Metadata            map[string]any `bun:"metadata,type:jsonb"`
	CreatedAt           time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt           time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newSubscriptionRecord(subscription core.Subscription) *subscriptionRecord {
	return &subscriptionRecord{
		ID:                  subscription.ID,
		AccountID:           subscription.AccountID,
		PolarSubscriptionID: subscription.PolarSubscriptionID,
		PolarProductID:      subscription.PolarProductID,
		Tier:                subscription.Tier,
		Status:              subscription.Status,
		Amount:              subscription.Amount,
		Currency:            subscription.Currency,
		BillingInterval:     subscription.BillingInterval,
		CurrentPeriodStart:  cloneTimePointer(subscription.CurrentPeriodStart),
		CurrentPeriodEnd:    cloneTimePointer(subscription.CurrentPeriodEnd),
		TrialStart:          cloneTimePointer(subscription.TrialStart),
		TrialEnd:            cloneTimePointer(subscription.TrialEnd),
		CancelAtPeriodEnd:   subscription.CancelAtPeriodEnd,
		CancelledAt:         cloneTimePointer(subscription.CancelledAt),
		Metadata:            copyAnyMap(subscription.Metadata),
		CreatedAt:           subscription.CreatedAt,
		UpdatedAt:           subscription.UpdatedAt,
	}
}

func (r *subscriptionRecord) toDomain() core.Subscription {
	if r == nil {
		return core.Subscription{}
	}
	return core.Subscription{
		ID:                  r.ID,
		AccountID:           r.AccountID,
		PolarSubscriptionID: r.PolarSubscriptionID,
		PolarProductID:      r.PolarProductID,
		Tier:                r.Tier,
		Status:              r.Status,
		Amount:              r.Amount,
		Currency:            r.Currency,
		BillingInterval:     r.BillingInterval,
		CurrentPeriodStart:  cloneTimePointer(r.CurrentPeriodStart),
		CurrentPeriodEnd:    cloneTimePointer(r.CurrentPeriodEnd),
		TrialStart:          cloneTimePointer(r.TrialStart),
		TrialEnd:            cloneTimePointer(r.TrialEnd),
		CancelAtPeriodEnd:   r.CancelAtPeriodEnd,
		CancelledAt:         cloneTimePointer(r.CancelledAt),
		Metadata:            copyAnyMap(r.Metadata),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

type tierDefinitionRecord struct {
	bun.BaseModel `bun:"table:tier_definitions,alias:td"`

	Name                  string          `bun:"name,pk"`
	DisplayName           string          `bun:"display_name"`
	Description           string          `bun:"description"`
	MonthlyPrice          float64         `bun:"monthly_price"`
	YearlyPrice           float64         `bun:"yearly_price"`
	PolarMonthlyProductID string          `bun:"polar_monthly_product_id"`
	PolarYearlyProductID  string          `bun:"polar_yearly_product_id"`
	ProjectsLimit         int64           `bun:"projects_limit,notnull"`
	TeamMembersLimit      int64           `bun:"team_members_limit,notnull"`
	StorageLimitBytes     int64           `bun:"storage_limit_bytes,notnull"`
	APICallsLimit         int64           `bun:"api_calls_limit,notnull"`
	Features              map[string]bool `bun:"features,type:jsonb"`
	Active                bool            `bun:"active,notnull"`
	SortOrder             int             `bun:"sort_order,notnull"`
}

func newTierDefinitionRecord(definition core.TierDefinition) *tierDefinitionRecord {
	return &tierDefinitionRecord{
		Name:                  definition.Name,
		DisplayName:           definition.DisplayName,
		Description:           definition.Description,
		MonthlyPrice:          definition.MonthlyPrice,
		YearlyPrice:           definition.YearlyPrice,
		PolarMonthlyProductID: definition.PolarMonthlyProductID,
		PolarYearlyProductID:  definition.PolarYearlyProductID,
		ProjectsLimit:         definition.ProjectsLimit,
		TeamMembersLimit:      definition.TeamMembersLimit,
		StorageLimitBytes:     definition.StorageLimitBytes,
		APICallsLimit:         definition.APICallsLimit,
		Features:              copyBoolMap(definition.Features),
		Active:                definition.Active,
		SortOrder:             definition.SortOrder,
	}
}

func (r *tierDefinitionRecord) toDomain() core.TierDefinition {
	if r == nil {
		return core.TierDefinition{}
	}
	return core.TierDefinition{
		Name:                  r.Name,
		DisplayName:           r.DisplayName,
		Description:           r.Description,
		MonthlyPrice:          r.MonthlyPrice,
		YearlyPrice:           r.YearlyPrice,
		PolarMonthlyProductID: r.PolarMonthlyProductID,
		PolarYearlyProductID:  r.PolarYearlyProductID,
		ProjectsLimit:         r.ProjectsLimit,
		TeamMembersLimit:      r.TeamMembersLimit,
		StorageLimitBytes:     r.StorageLimitBytes,
		APICallsLimit:         r.APICallsLimit,
		Features:              copyBoolMap(r.Features),
		Active:                r.Active,
		SortOrder:             r.SortOrder,
	}
}

type usageQuotaRecord struct {
	bun.BaseModel `bun:"table:usage_quotas,alias:uq"`

	AccountID          string           `bun:"account_id,pk"`
	Tier               string           `bun:"tier,notnull"`
	Used               map[string]int64 `bun:"used,type:jsonb"`
	Limits             map[string]int64 `bun:"limits,type:jsonb"`
	FeaturesEnabled    map[string]bool  `bun:"features_enabled,type:jsonb"`
	CurrentPeriodStart time.Time        `bun:"current_period_start,nullzero"`
	CurrentPeriodEnd   time.Time        `bun:"current_period_end,nullzero"`
	UpdatedAt          time.Time        `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newUsageQuotaRecord(quota core.UsageQuota) *usageQuotaRecord {
	return &usageQuotaRecord{
		AccountID:          quota.AccountID,
		Tier:               quota.Tier,
		Used:               copyInt64Map(quota.Used),
		Limits:             copyInt64Map(quota.Limits),
		FeaturesEnabled:    copyBoolMap(quota.FeaturesEnabled),
		CurrentPeriodStart: quota.CurrentPeriodStart,
		CurrentPeriodEnd:   quota.CurrentPeriodEnd,
		UpdatedAt:          quota.UpdatedAt,
	}
}

func (r *usageQuotaRecord) toDomain() core.UsageQuota {
	if r == nil {
		return core.UsageQuota{}
	}
	return core.UsageQuota{
		AccountID:          r.AccountID,
		Tier:               r.Tier,
		Used:               copyInt64Map(r.Used),
		Limits:             copyInt64Map(r.Limits),
		FeaturesEnabled:    copyBoolMap(r.FeaturesEnabled),
		CurrentPeriodStart: r.CurrentPeriodStart,
		CurrentPeriodEnd:   r.CurrentPeriodEnd,
		UpdatedAt:          r.UpdatedAt,
	}
}

type repositoryRecord struct {
	bun.BaseModel `bun:"table:access_repositories,alias:ar"`

	ID             string `bun:"id,pk"`
	GithubID       string `bun:"github_id"`
	Name           string `bun:"name,notnull"`
	Owner          string `bun:"owner"`
	FullName       string `bun:"full_name,notnull"`
	Private        bool   `bun:"private,notnull"`
	Active         bool   `bun:"active,notnull"`
	PolarProductID string `bun:"polar_product_id"`
}

func (r *repositoryRecord) toDomain() core.Repository {
	if r == nil {
		return core.Repository{}
	}
	return core.Repository{
		ID:             r.ID,
		GithubID:       r.GithubID,
		Name:           r.Name,
		Owner:          r.Owner,
		FullName:       r.FullName,
		Private:        r.Private,
		Active:         r.Active,
		PolarProductID: r.PolarProductID,
	}
}

type repositoryPackageRecord struct {
	bun.BaseModel `bun:"table:repository_packages,alias:rpk"`

	ID             string   `bun:"id,pk"`
	Name           string   `bun:"name,notnull"`
	PolarProductID string   `bun:"polar_product_id"`
	RepositoryIDs  []string `bun:"repository_ids,type:jsonb"`
	Active         bool     `bun:"active,notnull"`
}

func (r *repositoryPackageRecord) toDomain() core.RepositoryPackage {
	if r == nil {
		return core.RepositoryPackage{}
	}
	return core.RepositoryPackage{
		ID:             r.ID,
		Name:           r.Name,
		PolarProductID: r.PolarProductID,
		RepositoryIDs:  append([]string(nil), r.RepositoryIDs...),
		Active:         r.Active,
	}
}

type repositoryAccessRecord struct {
	bun.BaseModel `bun:"table:repository_access,alias:rac"`

	ID                   string     `bun:"id,pk"`
	AccountID            string     `bun:"account_id,notnull"`
	RepositoryID         string     `bun:"repository_id,notnull"`
	Status               string     `bun:"status,notnull"`
	AccessLevel          string     `bun:"access_level,notnull"`
	ExpiresAt            *time.Time `bun:"expires_at,nullzero"`
	PurchaseReference    string     `bun:"purchase_reference"`
	PolarOrderID         string     `bun:"polar_order_id"`
	AccessSource         string     `bun:"access_source"`
	GrantedAt            time.Time  `bun:"granted_at,nullzero,notnull"`
	InvitationAcceptedAt *time.Time `bun:"invitation_accepted_at,nullzero"`
	LastAccessedAt       *time.Time `bun:"last_accessed_at,nullzero"`
	RevokedAt            *time.Time `bun:"revoked_at,nullzero"`
	RevokedReason        string     `bun:"revoked_reason"`
	CreatedAt            time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt            time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newRepositoryAccessRecord(access core.RepositoryAccess) *repositoryAccessRecord {
	return &repositoryAccessRecord{
		ID:                   access.ID,
		AccountID:            access.AccountID,
		RepositoryID:         access.RepositoryID,
		Status:               access.Status,
		AccessLevel:          access.AccessLevel,
		ExpiresAt:            cloneTimePointer(access.ExpiresAt),
		PurchaseReference:    access.PurchaseReference,
		PolarOrderID:         access.PolarOrderID,
		AccessSource:         access.AccessSource,
		GrantedAt:            access.GrantedAt,
		InvitationAcceptedAt: cloneTimePointer(access.InvitationAcceptedAt),
		LastAccessedAt:       cloneTimePointer(access.LastAccessedAt),
		RevokedAt:            cloneTimePointer(access.RevokedAt),
		RevokedReason:        access.RevokedReason,
		CreatedAt:            access.CreatedAt,
		UpdatedAt:            access.UpdatedAt,
	}
}

func (r *repositoryAccessRecord) toDomain() core.RepositoryAccess {
	if r == nil {
		return core.RepositoryAccess{}
	}
	return core.RepositoryAccess{
		ID:                   r.ID,
		AccountID:            r.AccountID,
		RepositoryID:         r.RepositoryID,
		Status:               r.Status,
		AccessLevel:          r.AccessLevel,
		ExpiresAt:            cloneTimePointer(r.ExpiresAt),
		PurchaseReference:    r.PurchaseReference,
		PolarOrderID:         r.PolarOrderID,
		AccessSource:         r.AccessSource,
		GrantedAt:            r.GrantedAt,
		InvitationAcceptedAt: cloneTimePointer(r.InvitationAcceptedAt),
		LastAccessedAt:       cloneTimePointer(r.LastAccessedAt),
		RevokedAt:            cloneTimePointer(r.RevokedAt),
		RevokedReason:        r.RevokedReason,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

type webhookDeliveryRecord struct {
	bun.BaseModel `bun:"table:webhook_deliveries,alias:wd"`

	ID         string    `bun:"id,pk"`
	Source     string    `bun:"source,notnull"`
	DeliveryID string    `bun:"delivery_id,notnull"`
	Status     string    `bun:"status,notnull"`
	Attempts   int       `bun:"attempts,notnull"`
	LastError  string    `bun:"last_error"`
	Payload    []byte    `bun:"payload"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *webhookDeliveryRecord) toDomain() webhooks.DeliveryRecord {
	if r == nil {
		return webhooks.DeliveryRecord{}
	}
	return webhooks.DeliveryRecord{
		ID:         r.ID,
		Source:     r.Source,
		DeliveryID: r.DeliveryID,
		Status:     r.Status,
		Attempts:   r.Attempts,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func copyAnyMap(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}

func copyBoolMap(input map[string]bool) map[string]bool {
	if input == nil {
		return nil
	}
	out := make(map[string]bool, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}

func copyInt64Map(input map[string]int64) map[string]int64 {
	if input == nil {
		return nil
	}
	out := make(map[string]int64, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}

func cloneTimePointer(input *time.Time) *time.Time {
	if input == nil {
		return nil
	}
	value := *input
	return &value
}
