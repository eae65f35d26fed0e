package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolationTypedPgError(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "ux_orders_order_number"}

	if !IsUniqueViolation(err, "ux_orders_order_number") {
		t.Fatal("matching constraint should classify as unique violation")
	}
	if IsUniqueViolation(err, "ux_webhook_source_event") {
		t.Fatal("different constraint must not match")
	}
	if !IsUniqueViolation(err, "") {
		t.Fatal("empty constraint filter should accept any unique violation")
	}

	other := &pgconn.PgError{Code: "23503"}
	if IsUniqueViolation(other, "") {
		t.Fatal("foreign key violation misclassified")
	}
}

func TestIsUniqueViolationSqliteMessage(t *testing.T) {
	// sqlite names the columns, not the index
	err := fmt.Errorf("insert: %w",
		errors.New("UNIQUE constraint failed: webhook_logs.source, webhook_logs.event_id"))

	if !IsUniqueViolation(err, "ux_webhook_source_event") {
		t.Fatal("sqlite unique violation should match despite missing index name")
	}
	if IsUniqueViolation(errors.New("no such table: orders"), "") {
		t.Fatal("unrelated error misclassified")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error misclassified")
	}
}
