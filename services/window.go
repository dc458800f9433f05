package services

import (
	"time"

	"hubcoin-ledger/models"
)

// DateKey formats t as the YYYY-MM-DD day used by every daily cycle.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(time.DateOnly)
}

// EffectiveCounter is the counter value for today: a counter stamped with another day is zero.
func EffectiveCounter(lastDate string, counter int64, today string) int64 {
	if lastDate != today {
		return 0
	}
	return counter
}

// EffectiveVouchers applies the same reset rule to the voucher flags.
func EffectiveVouchers(lastDate string, vouchers models.VoucherFlags, today string) models.VoucherFlags {
	out := models.NewVoucherFlags()
	if lastDate != today {
		return out
	}
	for tier, claimed := range vouchers {
		out[tier] = claimed
	}
	return out
}
