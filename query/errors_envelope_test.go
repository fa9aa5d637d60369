package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-billing/core"
	goerrors "github.com/goliatone/go-errors"
)

func TestQueries_NilReaderReturnsRichError(t *testing.T) {
	var q *GetAccountQuery
	_, err := q.Query(context.Background(), GetAccountMessage{AccountID: "acct_1"})
	if err == nil {
		t.Fatalf("expected dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.BillingErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.BillingErrorInternal, rich.TextCode)
	}
}

func TestQueryErrorHelpers_ProduceEnvelopes(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		err := queryValidationError("account_id", "is required")
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) {
			t.Fatalf("expected go-errors envelope, got %T", err)
		}
		if rich.Category != goerrors.CategoryValidation {
			t.Fatalf("expected validation category, got %q", rich.Category)
		}
		if rich.TextCode != core.BillingErrorBadInput {
			t.Fatalf("expected %q text code, got %q", core.BillingErrorBadInput, rich.TextCode)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		err := queryInvalidInputError("query: unknown tier")
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) {
			t.Fatalf("expected go-errors envelope, got %T", err)
		}
		if rich.Category != goerrors.CategoryBadInput {
			t.Fatalf("expected bad input category, got %q", rich.Category)
		}
	})

	t.Run("wrap validation", func(t *testing.T) {
		if got := queryWrapValidation(nil, "query: filter rejected"); got != nil {
			t.Fatalf("expected nil for nil cause, got %v", got)
		}
		err := queryWrapValidation(fmt.Errorf("limit must be >= 0"), "query: filter rejected")
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) {
			t.Fatalf("expected go-errors envelope, got %T", err)
		}
		if rich.Category != goerrors.CategoryValidation {
			t.Fatalf("expected validation category, got %q", rich.Category)
		}
	})
}
