package discounts

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/karimadly/soukly-backend/pkg/db/models"
	pkgerrors "github.com/karimadly/soukly-backend/pkg/errors"
)

// PointsEarnDivisor converts an order total into earned loyalty points:
// earned = floor(total / PointsEarnDivisor). Exposed once; nothing else may
// restate this ratio.
const PointsEarnDivisor = 100

// Input feeds one discount computation. Voucher is the resolved row for
// VoucherCode, nil when the code matched nothing or no code was given.
type Input struct {
	Subtotal        decimal.Decimal
	VoucherCode     string
	Voucher         *models.Voucher
	PointsRequested int
	PointsBalance   int
	Now             time.Time
}

// Result is the computed reduction. VoucherCode is non-nil only when the
// voucher actually contributed to the amount.
type Result struct {
	Amount      decimal.Decimal
	Reason      string
	VoucherCode *string
}

// Compute is a pure function of its input: no storage access, no clock reads
// beyond Input.Now. Unusable vouchers yield zero discount with an explanatory
// reason; only an unknown code is an error.
func Compute(in Input) (Result, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	if in.PointsRequested < 0 {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "points to redeem cannot be negative")
	}
	if in.PointsRequested > in.PointsBalance {
		return Result{}, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient points").
			WithDetails(map[string]any{
				"requested": in.PointsRequested,
				"balance":   in.PointsBalance,
			})
	}

	amount := decimal.Zero
	reason := ""
	var resolvedCode *string

	if in.VoucherCode != "" {
		if in.Voucher == nil {
			return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid voucher code").
				WithDetails(map[string]any{"code": in.VoucherCode})
		}
		voucherAmount, voucherReason := voucherDiscount(in.Voucher, in.Subtotal, now)
		amount = amount.Add(voucherAmount)
		reason = voucherReason
		if voucherAmount.IsPositive() {
			code := in.Voucher.Code
			resolvedCode = &code
		}
	}

	if in.PointsRequested > 0 {
		// Points convert 1:1 to currency units.
		pointsAmount := decimal.NewFromInt(int64(in.PointsRequested))
		amount = amount.Add(pointsAmount)
		if reason != "" {
			reason = fmt.Sprintf("%s; %d loyalty points redeemed", reason, in.PointsRequested)
		} else {
			reason = fmt.Sprintf("%d loyalty points redeemed", in.PointsRequested)
		}
	}

	// A discount can never exceed what is being discounted.
	if amount.GreaterThan(in.Subtotal) {
		amount = in.Subtotal
	}

	return Result{
		Amount:      amount.Round(2),
		Reason:      reason,
		VoucherCode: resolvedCode,
	}, nil
}

// PointsEarned returns the loyalty points granted for a paid order total.
func PointsEarned(total decimal.Decimal) int {
	if total.Sign() <= 0 {
		return 0
	}
	return int(total.Div(decimal.NewFromInt(PointsEarnDivisor)).Floor().IntPart())
}

func voucherDiscount(v *models.Voucher, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, string) {
	if !v.Active {
		return decimal.Zero, fmt.Sprintf("voucher %s is inactive", v.Code)
	}
	if v.ValidFrom != nil && now.Before(*v.ValidFrom) {
		return decimal.Zero, fmt.Sprintf("voucher %s is not valid yet", v.Code)
	}
	if v.ValidUntil != nil && now.After(*v.ValidUntil) {
		return decimal.Zero, fmt.Sprintf("voucher %s has expired", v.Code)
	}
	if v.UsageLimit != nil && v.UsedCount >= *v.UsageLimit {
		return decimal.Zero, fmt.Sprintf("voucher %s usage limit reached", v.Code)
	}

	switch {
	case v.Amount != nil && v.Amount.IsPositive():
		return *v.Amount, fmt.Sprintf("voucher %s applied", v.Code)
	case v.Percent != nil && v.Percent.IsPositive():
		amount := subtotal.Mul(*v.Percent).Div(decimal.NewFromInt(100)).Round(2)
		return amount, fmt.Sprintf("voucher %s applied (%s%%)", v.Code, v.Percent.String())
	default:
		return decimal.Zero, fmt.Sprintf("voucher %s has no discount configured", v.Code)
	}
}
