package services

import "context"

type BalanceView struct {
	Balance       int64 `json:"balance"`
	Gems          int64 `json:"gems"`
	UnclaimedGems int64 `json:"unclaimedGems"`
}

// CheckBalance is a read-only snapshot of the spendable counters.
func (e *RewardEngine) CheckBalance(ctx context.Context, userID string) (BalanceView, error) {
	id, err := requireUserID(userID)
	if err != nil {
		e.observe("check_balance", err)
		return BalanceView{}, err
	}
	acct, err := e.Accounts.Get(ctx, id)
	e.observe("check_balance", err)
	if err != nil {
		return BalanceView{}, err
	}
	return BalanceView{
		Balance:       acct.Balance,
		Gems:          acct.Gems,
		UnclaimedGems: acct.UnclaimedGems,
	}, nil
}
