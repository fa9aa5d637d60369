package query

import (
	"fmt"
	"strings"
)

const (
	TypeGetAccount         = "billing.query.account.get"
	TypeCreditHistory      = "billing.query.credits.history"
	TypeListUsageRecords   = "billing.query.usage.list"
	TypeListCreditPackages = "billing.query.packages.list"
	TypeListTiers          = "billing.query.tiers.list"
	TypeGetUsageQuota      = "billing.query.quota.get"
	TypeListAccessGrants   = "billing.query.access.list_by_order"
)

type GetAccountMessage struct {
	AccountID string
}

func (GetAccountMessage) Type() string { return TypeGetAccount }

func (m GetAccountMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return fmt.Errorf("query: account id is required")
	}
	return nil
}

type CreditHistoryMessage struct {
	AccountID string
}

func (CreditHistoryMessage) Type() string { return TypeCreditHistory }

func (m CreditHistoryMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return fmt.Errorf("query: account id is required")
	}
	return nil
}

type ListUsageRecordsMessage struct {
	AccountID string
	Limit     int
}

func (ListUsageRecordsMessage) Type() string { return TypeListUsageRecords }

func (m ListUsageRecordsMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return fmt.Errorf("query: account id is required")
	}
	if m.Limit < 0 {
		return fmt.Errorf("query: limit must be >= 0")
	}
	return nil
}

type ListCreditPackagesMessage struct{}

func (ListCreditPackagesMessage) Type() string { return TypeListCreditPackages }

func (ListCreditPackagesMessage) Validate() error { return nil }

type ListTiersMessage struct{}

func (ListTiersMessage) Type() string { return TypeListTiers }

func (ListTiersMessage) Validate() error { return nil }

type GetUsageQuotaMessage struct {
	AccountID string
}

func (GetUsageQuotaMessage) Type() string { return TypeGetUsageQuota }

func (m GetUsageQuotaMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return fmt.Errorf("query: account id is required")
	}
	return nil
}

type ListAccessGrantsMessage struct {
	PolarOrderID string
}

func (ListAccessGrantsMessage) Type() string { return TypeListAccessGrants }

func (m ListAccessGrantsMessage) Validate() error {
	if strings.TrimSpace(m.PolarOrderID) == "" {
		return fmt.Errorf("query: order id is required")
	}
	return nil
}
