package billing

import (
	"context"
	"strconv"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-billing/core"
	"github.com/goliatone/go-billing/polar"
)

// CheckoutURLs carry the redirect targets handed to the provider when a
// checkout session is created.
type CheckoutURLs struct {
	SuccessURL string
	CancelURL  string
}

// Checkouts drives the synchronous half of the purchase flow: binding
// accounts to provider customers, opening checkout sessions, and confirming
// completion when the buyer lands on the success page.
type Checkouts struct {
	client  *polar.Client
	stores  core.StoreProvider
	credits *Credits
	logger  core.Logger
}

func NewCheckouts(client *polar.Client, stores core.StoreProvider, credits *Credits) *Checkouts {
	_, logger := glog.Resolve("billing.checkouts", nil, nil)
	return &Checkouts{
		client:  client,
		stores:  stores,
		credits: credits,
		logger:  logger,
	}
}

// EnsureCustomer binds the account to a provider customer, creating one
// keyed by the account id as external id when none exists yet.
func (c *Checkouts) EnsureCustomer(ctx context.Context, accountID string) (core.Account, polar.Customer, error) {
	account, err := c.stores.AccountStore().Get(ctx, strings.TrimSpace(accountID))
	if err != nil {
		return core.Account{}, polar.Customer{}, err
	}

	if strings.TrimSpace(account.PolarCustomerID) != "" {
		customer, err := c.client.Customers().Retrieve(ctx, account.PolarCustomerID)
		if err == nil {
			return account, customer, nil
		}
		if !polar.IsNotFound(err) {
			return core.Account{}, polar.Customer{}, err
		}
		c.logger.Warn("provider customer vanished, recreating", "account_id", account.ID, "customer_id", account.PolarCustomerID)
	}

	page, err := c.client.Customers().LookupByEmail(ctx, account.Email)
	if err != nil {
		return core.Account{}, polar.Customer{}, err
	}
	var customer polar.Customer
	if len(page.Data) > 0 {
		customer = polar.DecodeCustomer(page.Data[0])
	} else {
		customer, err = c.client.Customers().Create(ctx, map[string]any{
			"email":       account.Email,
			"external_id": account.ID,
		})
		if err != nil {
			return core.Account{}, polar.Customer{}, err
		}
	}

	account.PolarCustomerID = customer.ID
	account, err = c.stores.AccountStore().Update(ctx, account)
	if err != nil {
		return core.Account{}, polar.Customer{}, err
	}
	return account, customer, nil
}

// StartCreditPurchase opens a checkout for a credit package. The metadata
// carries everything the order.completed handler needs to apply the
// purchase.
func (c *Checkouts) StartCreditPurchase(ctx context.Context, accountID string, packageID string, urls CheckoutURLs) (polar.Checkout, error) {
	pkg, err := c.stores.CreditPackageStore().Get(ctx, strings.TrimSpace(packageID))
	if err != nil {
		return polar.Checkout{}, err
	}
	if !pkg.Active {
		return polar.Checkout{}, core.NewConflictError("credit package is not available")
	}

	account, _, err := c.EnsureCustomer(ctx, accountID)
	if err != nil {
		return polar.Checkout{}, err
	}

	return c.client.Checkouts().CreateCustom(ctx, map[string]any{
		"product_id": pkg.PolarProductID,
		"customer": map[string]any{
			"email":       account.Email,
			"external_id": account.ID,
		},
		"success_url": urls.SuccessURL,
		"cancel_url":  urls.CancelURL,
		"metadata": map[string]any{
			"type":           "credits",
			"account_id":     account.ID,
			"package_id":     pkg.ID,
			"credits_amount": strconv.FormatFloat(pkg.Credits, 'f', -1, 64),
		},
	})
}

// StartSubscription opens a checkout for a tier, picking the monthly or
// yearly product from the tier definition.
func (c *Checkouts) StartSubscription(ctx context.Context, accountID string, tier string, interval string, urls CheckoutURLs) (polar.Checkout, error) {
	definition, err := c.stores.TierDefinitionStore().Get(ctx, strings.TrimSpace(tier))
	if err != nil {
		return polar.Checkout{}, err
	}

	productID := definition.PolarMonthlyProductID
	if normalizeInterval(interval) == core.BillingIntervalYearly {
		productID = definition.PolarYearlyProductID
	}
	if strings.TrimSpace(productID) == "" {
		return polar.Checkout{}, core.NewConflictError("tier has no product for the requested interval")
	}

	account, _, err := c.EnsureCustomer(ctx, accountID)
	if err != nil {
		return polar.Checkout{}, err
	}

	return c.client.Checkouts().CreateCustom(ctx, map[string]any{
		"product_id": productID,
		"customer": map[string]any{
			"email":       account.Email,
			"external_id": account.ID,
		},
		"success_url": urls.SuccessURL,
		"cancel_url":  urls.CancelURL,
		"metadata": map[string]any{
			"account_id":       account.ID,
			"tier":             definition.Name,
			"billing_interval": normalizeInterval(interval),
		},
	})
}

// Confirm retrieves a checkout session and reports whether it completed.
// An unknown session id surfaces as a bad-input error rather than a
// provider error.
func (c *Checkouts) Confirm(ctx context.Context, sessionID string) (polar.Checkout, bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return polar.Checkout{}, false, core.NewBadInputError("checkout session id is required")
	}

	checkout, err := c.client.Checkouts().Retrieve(ctx, sessionID)
	if polar.IsNotFound(err) {
		return polar.Checkout{}, false, core.NewBadInputError("invalid checkout session")
	}
	if err != nil {
		return polar.Checkout{}, false, err
	}
	return checkout, checkout.Completed(), nil
}

// ConfirmCreditPurchase applies a completed credit checkout synchronously,
// for the success-page landing that races the order.completed webhook. The
// purchase is keyed by the checkout's order id, so whichever path runs
// second is a no-op.
func (c *Checkouts) ConfirmCreditPurchase(ctx context.Context, sessionID string) (polar.Checkout, core.LedgerEntry, error) {
	checkout, completed, err := c.Confirm(ctx, sessionID)
	if err != nil {
		return checkout, core.LedgerEntry{}, err
	}
	if !completed {
		return checkout, core.LedgerEntry{}, core.NewConflictError("checkout has not completed")
	}

	accountID := polar.FieldString(checkout.Metadata, "account_id")
	amount := polar.FieldFloat(checkout.Metadata, "credits_amount")
	if accountID == "" || amount <= 0 {
		return checkout, core.LedgerEntry{}, core.NewBadInputError("checkout is not a credit purchase")
	}

	orderID := polar.FieldString(checkout.Raw, "order_id")
	if orderID == "" {
		orderID = checkout.ID
	}

	entry, err := c.credits.Add(ctx, AddRequest{
		AccountID:    accountID,
		Amount:       amount,
		PackageID:    polar.FieldString(checkout.Metadata, "package_id"),
		PolarOrderID: orderID,
		Description:  "credit purchase",
	})
	if err != nil {
		return checkout, core.LedgerEntry{}, err
	}
	return checkout, entry, nil
}

// PortalURL creates a customer portal session and returns its URL, or an
// empty string when the account is not bound to a provider customer yet.
func (c *Checkouts) PortalURL(ctx context.Context, accountID string, returnURL string) (string, error) {
	account, err := c.stores.AccountStore().Get(ctx, strings.TrimSpace(accountID))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(account.PolarCustomerID) == "" {
		return "", nil
	}

	session, err := c.client.Customers().PortalSession(ctx, account.PolarCustomerID, returnURL)
	if err != nil {
		return "", err
	}
	return polar.FieldString(session, "url"), nil
}
