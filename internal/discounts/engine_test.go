package discounts

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/karimadly/soukly-backend/pkg/db/models"
	pkgerrors "github.com/karimadly/soukly-backend/pkg/errors"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func TestComputeNoInputsNoDiscount(t *testing.T) {
	res, err := Compute(Input{Subtotal: dec(t, "500.00")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Amount.IsZero() {
		t.Fatalf("expected zero discount, got %s", res.Amount)
	}
	if res.VoucherCode != nil {
		t.Fatalf("expected nil voucher code")
	}
}

func TestComputeFixedAmountVoucher(t *testing.T) {
	amount := dec(t, "50.00")
	voucher := &models.Voucher{Code: "SAVE50", Active: true, Amount: &amount}

	res, err := Compute(Input{
		Subtotal:    dec(t, "500.00"),
		VoucherCode: "SAVE50",
		Voucher:     voucher,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Amount.Equal(dec(t, "50.00")) {
		t.Fatalf("expected 50.00, got %s", res.Amount)
	}
	if res.VoucherCode == nil || *res.VoucherCode != "SAVE50" {
		t.Fatalf("expected resolved code SAVE50")
	}
}

func TestComputePercentVoucher(t *testing.T) {
	percent := dec(t, "10")
	voucher := &models.Voucher{Code: "TEN", Active: true, Percent: &percent}

	res, err := Compute(Input{
		Subtotal:    dec(t, "1000.00"),
		VoucherCode: "TEN",
		Voucher:     voucher,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Amount.Equal(dec(t, "100.00")) {
		t.Fatalf("expected 100.00, got %s", res.Amount)
	}
}

func TestComputeExpiredVoucherZeroDiscountWithReason(t *testing.T) {
	amount := dec(t, "50.00")
	past := time.Now().Add(-24 * time.Hour)
	voucher := &models.Voucher{Code: "OLD", Active: true, Amount: &amount, ValidUntil: &past}

	res, err := Compute(Input{
		Subtotal:    dec(t, "500.00"),
		VoucherCode: "OLD",
		Voucher:     voucher,
	})
	if err != nil {
		t.Fatalf("expired voucher should not error: %v", err)
	}
	if !res.Amount.IsZero() {
		t.Fatalf("expected zero discount, got %s", res.Amount)
	}
	if !strings.Contains(res.Reason, "expired") {
		t.Fatalf("reason should mention expiry, got %q", res.Reason)
	}
	if res.VoucherCode != nil {
		t.Fatalf("unusable voucher must not resolve a code")
	}
}

func TestComputeExhaustedVoucherZeroDiscount(t *testing.T) {
	amount := dec(t, "50.00")
	limit := 3
	voucher := &models.Voucher{Code: "MAXED", Active: true, Amount: &amount, UsageLimit: &limit, UsedCount: 3}

	res, err := Compute(Input{
		Subtotal:    dec(t, "500.00"),
		VoucherCode: "MAXED",
		Voucher:     voucher,
	})
	if err != nil {
		t.Fatalf("exhausted voucher should not error: %v", err)
	}
	if !res.Amount.IsZero() {
		t.Fatalf("expected zero discount, got %s", res.Amount)
	}
	if !strings.Contains(res.Reason, "usage limit") {
		t.Fatalf("reason should mention usage limit, got %q", res.Reason)
	}
}

func TestComputeUnknownVoucherIsError(t *testing.T) {
	_, err := Compute(Input{
		Subtotal:    dec(t, "500.00"),
		VoucherCode: "NOPE",
		Voucher:     nil,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown code, got %v", err)
	}
}

func TestComputePointsRedemption(t *testing.T) {
	res, err := Compute(Input{
		Subtotal:        dec(t, "500.00"),
		PointsRequested: 80,
		PointsBalance:   100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Amount.Equal(dec(t, "80.00")) {
		t.Fatalf("expected 80.00 discount, got %s", res.Amount)
	}
	if !strings.Contains(res.Reason, "80 loyalty points") {
		t.Fatalf("reason should mention points, got %q", res.Reason)
	}
}

func TestComputeInsufficientPoints(t *testing.T) {
	_, err := Compute(Input{
		Subtotal:        dec(t, "500.00"),
		PointsRequested: 150,
		PointsBalance:   100,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for insufficient points, got %v", err)
	}
}

func TestComputeCapsAtSubtotal(t *testing.T) {
	amount := dec(t, "400.00")
	voucher := &models.Voucher{Code: "BIG", Active: true, Amount: &amount}

	res, err := Compute(Input{
		Subtotal:        dec(t, "300.00"),
		VoucherCode:     "BIG",
		Voucher:         voucher,
		PointsRequested: 100,
		PointsBalance:   100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Amount.Equal(dec(t, "300.00")) {
		t.Fatalf("discount should cap at subtotal, got %s", res.Amount)
	}
}

func TestComputeStacksVoucherAndPoints(t *testing.T) {
	amount := dec(t, "50.00")
	voucher := &models.Voucher{Code: "SAVE50", Active: true, Amount: &amount}

	res, err := Compute(Input{
		Subtotal:        dec(t, "1000.00"),
		VoucherCode:     "SAVE50",
		Voucher:         voucher,
		PointsRequested: 30,
		PointsBalance:   50,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Amount.Equal(dec(t, "80.00")) {
		t.Fatalf("expected stacked 80.00, got %s", res.Amount)
	}
	if !strings.Contains(res.Reason, ";") {
		t.Fatalf("stacked reason should join both parts, got %q", res.Reason)
	}
}

func TestPointsEarned(t *testing.T) {
	cases := []struct {
		total string
		want  int
	}{
		{"0", 0},
		{"99.99", 0},
		{"100.00", 1},
		{"1100.00", 11},
		{"250.50", 2},
		{"-10.00", 0},
	}
	for _, tc := range cases {
		if got := PointsEarned(dec(t, tc.total)); got != tc.want {
			t.Fatalf("PointsEarned(%s) = %d, want %d", tc.total, got, tc.want)
		}
	}
}
