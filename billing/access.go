package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"

	"github.com/goliatone/go-billing/core"
	"github.com/goliatone/go-billing/polar"
)

// GrantRequest asks for collaborator access to one repository.
type GrantRequest struct {
	AccountID         string
	RepositoryID      string
	AccessLevel       string
	ExpiresAt         *time.Time
	PurchaseReference string
	PolarOrderID      string
	AccessSource      string
}

// Access reconciles purchases, refunds, and GitHub membership events into
// repository access grants. Granting is idempotent per account and
// repository pair: a re-grant rewrites the existing row back to pending
// instead of duplicating it.
type Access struct {
	stores        core.StoreProvider
	logger        core.Logger
	mailer        core.Mailer
	analytics     core.AnalyticsSink
	collaboration core.CollaborationClient
	now           func() time.Time
	newID         func() string
}

type AccessOption func(*Access)

func WithAccessLogger(logger core.Logger) AccessOption {
	return func(a *Access) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithAccessMailer(mailer core.Mailer) AccessOption {
	return func(a *Access) {
		a.mailer = mailer
	}
}

func WithAccessAnalytics(sink core.AnalyticsSink) AccessOption {
	return func(a *Access) {
		a.analytics = sink
	}
}

func WithAccessClock(now func() time.Time) AccessOption {
	return func(a *Access) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAccess(stores core.StoreProvider, collaboration core.CollaborationClient, opts ...AccessOption) *Access {
	_, logger := glog.Resolve("billing.access", nil, nil)
	access := &Access{
		stores:        stores,
		collaboration: collaboration,
		logger:        logger,
		now: func() time.Time {
			return time.Now().UTC()
		},
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(access)
		}
	}
	return access
}

// Grant creates or refreshes the access row and sends the collaboration
// invitation. A grant after revocation moves the row back to pending, not
// back into its prior state.
func (a *Access) Grant(ctx context.Context, req GrantRequest) (core.RepositoryAccess, error) {
	account, err := a.stores.AccountStore().Get(ctx, strings.TrimSpace(req.AccountID))
	if err != nil {
		return core.RepositoryAccess{}, err
	}
	if strings.TrimSpace(account.GithubUsername) == "" {
		return core.RepositoryAccess{}, core.NewBadInputError("account has no connected GitHub username")
	}

	repository, err := a.stores.RepositoryStore().Get(ctx, strings.TrimSpace(req.RepositoryID))
	if err != nil {
		return core.RepositoryAccess{}, err
	}
	if !repository.Active {
		return core.RepositoryAccess{}, core.NewConflictError("repository access is not available")
	}

	level := strings.TrimSpace(req.AccessLevel)
	if level == "" {
		level = "read"
	}
	source := strings.TrimSpace(req.AccessSource)
	if source == "" {
		source = core.AccessSourceIndividual
	}

	var access core.RepositoryAccess
	err = a.stores.TxRunner().RunInTx(ctx, func(ctx context.Context) error {
		now := a.now()
		existing, err := a.stores.AccessStore().FindByAccountAndRepository(ctx, account.ID, repository.ID)
		if err != nil && !core.IsNotFound(err) {
			return err
		}
		if core.IsNotFound(err) {
			existing = core.RepositoryAccess{
				ID:           a.newID(),
				AccountID:    account.ID,
				RepositoryID: repository.ID,
				CreatedAt:    now,
			}
		}

		existing.Status = core.AccessStatusPending
		existing.AccessLevel = level
		existing.ExpiresAt = req.ExpiresAt
		existing.PurchaseReference = strings.TrimSpace(req.PurchaseReference)
		existing.PolarOrderID = strings.TrimSpace(req.PolarOrderID)
		existing.AccessSource = source
		existing.GrantedAt = now
		existing.RevokedAt = nil
		existing.RevokedReason = ""
		existing.InvitationAcceptedAt = nil
		existing.UpdatedAt = now

		access, err = a.stores.AccessStore().Save(ctx, existing)
		return err
	})
	if err != nil {
		return core.RepositoryAccess{}, err
	}

	if a.collaboration != nil {
		err = a.collaboration.InviteCollaborator(ctx, repository.FullName, account.GithubUsername, collaborationPermission(level))
		if err != nil {
			a.logger.Error("collaboration invite failed", "repository", repository.FullName, "username", account.GithubUsername, "error", err)
			return access, core.NewInternalError(fmt.Sprintf("failed to invite collaborator to %s", repository.FullName), err)
		}
		access.Status = core.AccessStatusInvited
		access.UpdatedAt = a.now()
		access, err = a.stores.AccessStore().Save(ctx, access)
		if err != nil {
			return core.RepositoryAccess{}, err
		}
		a.notify(ctx, account, "invitation_sent", map[string]any{
			"repository": repository.FullName,
		})
	}

	a.track(ctx, account.ID, "access_granted", map[string]any{
		"repository_id":   repository.ID,
		"repository_name": repository.FullName,
		"access_level":    access.AccessLevel,
		"access_source":   access.AccessSource,
	})
	return access, nil
}

// Revoke terminates a grant and removes the collaborator. Removal failures
// on the hosting platform are logged, not raised, since the local grant is
// already revoked.
func (a *Access) Revoke(ctx context.Context, accountID string, repositoryID string, reason string) (core.RepositoryAccess, error) {
	access, err := a.stores.AccessStore().FindByAccountAndRepository(ctx, strings.TrimSpace(accountID), strings.TrimSpace(repositoryID))
	if err != nil {
		return core.RepositoryAccess{}, err
	}
	return a.revoke(ctx, access, reason)
}

func (a *Access) revoke(ctx context.Context, access core.RepositoryAccess, reason string) (core.RepositoryAccess, error) {
	if access.Status == core.AccessStatusRevoked {
		return access, nil
	}

	account, err := a.stores.AccountStore().Get(ctx, access.AccountID)
	if err != nil {
		return core.RepositoryAccess{}, err
	}
	repository, err := a.stores.RepositoryStore().Get(ctx, access.RepositoryID)
	if err != nil {
		return core.RepositoryAccess{}, err
	}

	err = a.stores.TxRunner().RunInTx(ctx, func(ctx context.Context) error {
		now := a.now()
		access.Status = core.AccessStatusRevoked
		access.RevokedAt = &now
		access.RevokedReason = strings.TrimSpace(reason)
		access.UpdatedAt = now
		access, err = a.stores.AccessStore().Save(ctx, access)
		return err
	})
	if err != nil {
		return core.RepositoryAccess{}, err
	}

	if a.collaboration != nil && strings.TrimSpace(account.GithubUsername) != "" {
		if err := a.collaboration.RemoveCollaborator(ctx, repository.FullName, account.GithubUsername); err != nil {
			a.logger.Error("collaborator removal failed", "repository", repository.FullName, "username", account.GithubUsername, "error", err)
		}
	}

	a.notify(ctx, account, "access_revoked", map[string]any{
		"repository": repository.FullName,
		"reason":     access.RevokedReason,
	})
	a.track(ctx, account.ID, "access_revoked", map[string]any{
		"repository_id":   repository.ID,
		"repository_name": repository.FullName,
		"reason":          access.RevokedReason,
	})
	return access, nil
}

// HandleOrderCompleted grants access for a completed purchase: every
// repository in the package when the order metadata names one, otherwise
// the single repository it names.
func (a *Access) HandleOrderCompleted(ctx context.Context, data map[string]any) error {
	account, ok, err := a.accountForCustomer(ctx, polar.FieldString(data, "customer_id"))
	if err != nil || !ok {
		return err
	}

	metadata := polar.FieldMap(data, "metadata")
	orderID := polar.FieldString(data, "id")
	packageID := polar.FieldString(metadata, "package_id")
	repositoryID := polar.FieldString(metadata, "repository_id")

	switch {
	case packageID != "":
		return a.grantPackage(ctx, account, packageID, orderID)
	case repositoryID != "":
		_, err := a.Grant(ctx, GrantRequest{
			AccountID:         account.ID,
			RepositoryID:      repositoryID,
			PurchaseReference: "repository_" + repositoryID,
			PolarOrderID:      orderID,
			AccessSource:      core.AccessSourceIndividual,
		})
		return err
	default:
		a.logger.Warn("order carries no package or repository reference", "order_id", orderID)
		return nil
	}
}

func (a *Access) grantPackage(ctx context.Context, account core.Account, packageID string, orderID string) error {
	pkg, err := a.stores.RepositoryPackageStore().Get(ctx, packageID)
	if core.IsNotFound(err) {
		a.logger.Warn("unknown repository package, skipping grant", "package_id", packageID, "order_id", orderID)
		return nil
	}
	if err != nil {
		return err
	}

	repositories, err := a.stores.RepositoryStore().ListByPackage(ctx, pkg.ID)
	if err != nil {
		return err
	}

	var failures []string
	for _, repository := range repositories {
		_, err := a.Grant(ctx, GrantRequest{
			AccountID:         account.ID,
			RepositoryID:      repository.ID,
			PurchaseReference: "package_" + pkg.ID,
			PolarOrderID:      orderID,
			AccessSource:      core.AccessSourcePackage,
		})
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", repository.Name, err))
		}
	}
	if len(failures) > 0 {
		return core.NewInternalError(fmt.Sprintf("some package grants failed: %s", strings.Join(failures, ", ")), nil)
	}
	return nil
}

// HandleSubscriptionAccess grants every repository attached to the
// subscription's product, expiring with the current period.
func (a *Access) HandleSubscriptionAccess(ctx context.Context, data map[string]any) error {
	account, ok, err := a.accountForCustomer(ctx, polar.FieldString(data, "customer_id"))
	if err != nil || !ok {
		return err
	}

	subscriptionID := polar.FieldString(data, "id")
	repositories, err := a.stores.RepositoryStore().ListByProduct(ctx, polar.FieldString(data, "product_id"))
	if err != nil {
		return err
	}

	for _, repository := range repositories {
		_, err := a.Grant(ctx, GrantRequest{
			AccountID:         account.ID,
			RepositoryID:      repository.ID,
			ExpiresAt:         polar.FieldTime(data, "current_period_end"),
			PurchaseReference: "subscription_" + subscriptionID,
			PolarOrderID:      subscriptionID,
			AccessSource:      core.AccessSourceSubscription,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// HandleSubscriptionCancelled revokes every grant the cancelled
// subscription was backing.
func (a *Access) HandleSubscriptionCancelled(ctx context.Context, data map[string]any) error {
	subscriptionID := polar.FieldString(data, "id")
	if subscriptionID == "" {
		return core.NewBadInputError("subscription id is required")
	}

	grants, err := a.stores.AccessStore().ListByPurchaseReference(ctx, "subscription_"+subscriptionID)
	if err != nil {
		return err
	}
	for _, grant := range grants {
		if _, err := a.revoke(ctx, grant, "Subscription cancelled"); err != nil {
			return err
		}
	}
	return nil
}

// HandleRefund revokes every grant the refunded order paid for.
func (a *Access) HandleRefund(ctx context.Context, data map[string]any) error {
	orderID := polar.FieldString(data, "order_id")
	if orderID == "" {
		return core.NewBadInputError("order id is required")
	}

	grants, err := a.stores.AccessStore().ListByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	for _, grant := range grants {
		if _, err := a.revoke(ctx, grant, "Purchase refunded"); err != nil {
			return err
		}
	}
	return nil
}

// HandleMemberAdded activates an invited grant once the collaborator
// accepts on the hosting platform.
func (a *Access) HandleMemberAdded(ctx context.Context, data map[string]any) error {
	access, ok, err := a.accessForMemberEvent(ctx, data)
	if err != nil || !ok {
		return err
	}
	if access.Status != core.AccessStatusInvited {
		return nil
	}

	account, err := a.stores.AccountStore().Get(ctx, access.AccountID)
	if err != nil {
		return err
	}

	now := a.now()
	access.Status = core.AccessStatusActive
	access.InvitationAcceptedAt = &now
	access.LastAccessedAt = &now
	access.UpdatedAt = now
	if _, err := a.stores.AccessStore().Save(ctx, access); err != nil {
		return err
	}

	a.notify(ctx, account, "access_activated", map[string]any{
		"repository_id": access.RepositoryID,
	})
	a.track(ctx, account.ID, "repository_access_activated", map[string]any{
		"repository_id": access.RepositoryID,
	})
	return nil
}

// HandleMemberRemoved records an out-of-band removal as a revocation.
func (a *Access) HandleMemberRemoved(ctx context.Context, data map[string]any) error {
	access, ok, err := a.accessForMemberEvent(ctx, data)
	if err != nil || !ok {
		return err
	}
	if access.Status != core.AccessStatusActive {
		return nil
	}

	now := a.now()
	access.Status = core.AccessStatusRevoked
	access.RevokedAt = &now
	access.RevokedReason = "Removed from GitHub repository"
	access.UpdatedAt = now
	if _, err := a.stores.AccessStore().Save(ctx, access); err != nil {
		return err
	}

	a.track(ctx, access.AccountID, "repository_access_revoked", map[string]any{
		"repository_id": access.RepositoryID,
		"reason":        "github_removal",
	})
	return nil
}

func (a *Access) accessForMemberEvent(ctx context.Context, data map[string]any) (core.RepositoryAccess, bool, error) {
	member := polar.FieldMap(data, "member")
	username := polar.FieldString(member, "login")
	if username == "" {
		return core.RepositoryAccess{}, false, core.NewBadInputError("member login is required")
	}

	repoData := polar.FieldMap(data, "repository")
	githubID := strings.TrimSpace(fmt.Sprint(repoData["id"]))
	if githubID == "" || githubID == "<nil>" {
		return core.RepositoryAccess{}, false, core.NewBadInputError("repository id is required")
	}

	account, err := a.stores.AccountStore().FindByGithubUsername(ctx, username)
	if core.IsNotFound(err) {
		a.logger.Info("member event for unknown username, skipping", "username", username)
		return core.RepositoryAccess{}, false, nil
	}
	if err != nil {
		return core.RepositoryAccess{}, false, err
	}

	repository, err := a.stores.RepositoryStore().FindByGithubID(ctx, githubID)
	if core.IsNotFound(err) {
		a.logger.Info("member event for untracked repository, skipping", "github_id", githubID)
		return core.RepositoryAccess{}, false, nil
	}
	if err != nil {
		return core.RepositoryAccess{}, false, err
	}

	access, err := a.stores.AccessStore().FindByAccountAndRepository(ctx, account.ID, repository.ID)
	if core.IsNotFound(err) {
		return core.RepositoryAccess{}, false, nil
	}
	if err != nil {
		return core.RepositoryAccess{}, false, err
	}
	return access, true, nil
}

func (a *Access) accountForCustomer(ctx context.Context, customerID string) (core.Account, bool, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return core.Account{}, false, core.NewBadInputError("customer id is required")
	}
	account, err := a.stores.AccountStore().FindByCustomerID(ctx, customerID)
	if core.IsNotFound(err) {
		a.logger.Warn("no account for provider customer, skipping", "customer_id", customerID)
		return core.Account{}, false, nil
	}
	if err != nil {
		return core.Account{}, false, err
	}
	return account, true, nil
}

func (a *Access) notify(ctx context.Context, account core.Account, template string, fields map[string]any) {
	if a.mailer == nil || strings.TrimSpace(account.Email) == "" {
		return
	}
	err := a.mailer.Send(ctx, core.MailMessage{
		Template: template,
		To:       account.Email,
		Fields:   fields,
	})
	if err != nil {
		a.logger.Error("mail send failed", "account_id", account.ID, "template", template, "error", err)
	}
}

func (a *Access) track(ctx context.Context, accountID string, name string, properties map[string]any) {
	if a.analytics == nil {
		return
	}
	err := a.analytics.Track(ctx, core.AnalyticsEvent{
		AccountID:  accountID,
		Name:       name,
		Properties: properties,
	})
	if err != nil {
		a.logger.Error("analytics track failed", "account_id", accountID, "event", name, "error", err)
	}
}

func collaborationPermission(accessLevel string) string {
	switch strings.ToLower(strings.TrimSpace(accessLevel)) {
	case "write":
		return "push"
	case "admin":
		return "admin"
	default:
		return "pull"
	}
}
