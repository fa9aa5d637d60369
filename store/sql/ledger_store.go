package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-billing/core"
)

// LedgerStore persists the append-only credit ledger. Rows are never
// rewritten after insert except for the refund status flip.
type LedgerStore struct {
	db   *bun.DB
	repo repository.Repository[*ledgerEntryRecord]
}

func NewLedgerStore(db *bun.DB) (*LedgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*ledgerEntryRecord](db, ledgerEntryHandlers())
	if err := validateRepository(repo, "ledger entry"); err != nil {
		return nil, err
	}
	return &LedgerStore{db: db, repo: repo}, nil
}

func (s *LedgerStore) Append(ctx context.Context, entry core.LedgerEntry) (core.LedgerEntry, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.LedgerEntry{}, errStoreNotConfigured("ledger store")
	}
	if strings.TrimSpace(entry.ID) == "" {
		return core.LedgerEntry{}, core.NewBadInputError("ledger entry id is required")
	}
	if strings.TrimSpace(entry.AccountID) == "" {
		return core.LedgerEntry{}, core.NewBadInputError("ledger entry account id is required")
	}
	created, err := s.repo.CreateTx(ctx, conn(ctx, s.db), newLedgerEntryRecord(entry))
	if err != nil {
		return core.LedgerEntry{}, err
	}
	return created.toDomain(), nil
}

func (s *LedgerStore) Get(ctx context.Context, id string) (core.LedgerEntry, error) {
	if s == nil || s.db == nil {
		return core.LedgerEntry{}, errStoreNotConfigured("ledger store")
	}
	record := &ledgerEntryRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.LedgerEntry{}, core.NewNotFoundError(fmt.Sprintf("ledger entry %s not found", id))
		}
		return core.LedgerEntry{}, err
	}
	return record.toDomain(), nil
}

func (s *LedgerStore) FindPurchaseByOrderID(ctx context.Context, polarOrderID string) (core.LedgerEntry, error) {
	if s == nil || s.db == nil {
		return core.LedgerEntry{}, errStoreNotConfigured("ledger store")
	}
	record := &ledgerEntryRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(record).
		Where("?TableAlias.entry_type = ?", core.LedgerEntryPurchase).
		Where("?TableAlias.polar_order_id = ?", strings.TrimSpace(polarOrderID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.LedgerEntry{}, core.NewNotFoundError(
				fmt.Sprintf("purchase for order %s not found", polarOrderID),
			)
		}
		return core.LedgerEntry{}, err
	}
	return record.toDomain(), nil
}

func (s *LedgerStore) FindByTransactionID(ctx context.Context, polarTransactionID string) (core.LedgerEntry, error) {
	if s == nil || s.db == nil {
		return core.LedgerEntry{}, errStoreNotConfigured("ledger store")
	}
	record := &ledgerEntryRecord{}
	err := conn(ctx, s.db).NewSelect().
		Model(record).
		Where("?TableAlias.polar_transaction_id = ?", strings.TrimSpace(polarTransactionID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.LedgerEntry{}, core.NewNotFoundError(
				fmt.Sprintf("ledger entry for transaction %s not found", polarTransactionID),
			)
		}
		return core.LedgerEntry{}, err
	}
	return record.toDomain(), nil
}

func (s *LedgerStore) MarkRefunded(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return errStoreNotConfigured("ledger store")
	}
	trimmed := strings.TrimSpace(id)
	result, err := conn(ctx, s.db).NewUpdate().
		Model((*ledgerEntryRecord)(nil)).
		Set("status = ?", core.LedgerStatusRefunded).
		Where("id = ?", trimmed).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.NewNotFoundError(fmt.Sprintf("ledger entry %s not found", trimmed))
	}
	return nil
}

func (s *LedgerStore) ListByAccount(ctx context.Context, accountID string) ([]core.LedgerEntry, error) {
	if s == nil || s.db == nil {
		return nil, errStoreNotConfigured("ledger store")
	}
	var records []*ledgerEntryRecord
	err := conn(ctx, s.db).NewSelect().
		Model(&records).
		Where("?TableAlias.account_id = ?", strings.TrimSpace(accountID)).
		OrderExpr("?TableAlias.created_at ASC, ?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.LedgerEntry, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}
