package sqlstore_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	sqlstore "github.com/goliatone/go-billing/store/sql"
)

func TestConnect_OpensSQLiteAndResolvesStores(t *testing.T) {
	dsn := fmt.Sprintf(
		"file:billing-connect-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)

	client, err := sqlstore.Connect(sqlstore.ConnectConfig{
		Driver:       "sqlite",
		DSN:          dsn,
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("build factory from connection: %v", err)
	}
	if factory.DB() == nil {
		t.Fatal("expected a live bun db handle")
	}
	if factory.AccountStore() == nil {
		t.Fatal("expected account store to be wired")
	}
}

func TestConnect_RejectsBadInput(t *testing.T) {
	t.Run("unsupported driver", func(t *testing.T) {
		_, err := sqlstore.Connect(sqlstore.ConnectConfig{
			Driver: "oracle",
			DSN:    "oracle://localhost",
		})
		if err == nil {
			t.Fatal("expected unsupported driver error")
		}
		if !strings.Contains(err.Error(), "unsupported driver") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("missing dsn", func(t *testing.T) {
		_, err := sqlstore.Connect(sqlstore.ConnectConfig{Driver: "sqlite3"})
		if err == nil {
			t.Fatal("expected missing dsn error")
		}
		if !strings.Contains(err.Error(), "dsn is required") {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestConnectConfig_Defaults(t *testing.T) {
	cfg := sqlstore.ConnectConfig{}

	if got := cfg.GetDriver(); got != sqlstore.DriverPostgres {
		t.Fatalf("expected postgres default driver, got %q", got)
	}
	if got := cfg.GetPingTimeout(); got != 5*time.Second {
		t.Fatalf("expected default ping timeout, got %v", got)
	}
	if got := cfg.GetOtelIdentifier(); got != "go-billing" {
		t.Fatalf("expected default otel identifier, got %q", got)
	}

	named := sqlstore.ConnectConfig{
		Driver:         "PostgreSQL",
		PingTimeout:    time.Second,
		OtelIdentifier: "billing-api",
	}
	if got := named.GetDriver(); got != sqlstore.DriverPostgres {
		t.Fatalf("expected driver alias to normalize, got %q", got)
	}
	if got := named.GetPingTimeout(); got != time.Second {
		t.Fatalf("expected configured ping timeout, got %v", got)
	}
	if got := named.GetOtelIdentifier(); got != "billing-api" {
		t.Fatalf("expected configured otel identifier, got %q", got)
	}
}
