package model

import "time"

// CircleSnapshot is one circle as seen by one account at refresh time.
type CircleSnapshot struct {
	Account      string            `json:"account"`
	CircleHash   string            `json:"circle_hash"`
	Name         string            `json:"name"`
	TokenAddress string            `json:"token_address"`
	TotalBalance string            `json:"total_balance"`
	Deposit      string            `json:"deposit_amount"`
	CurrentIndex *int64            `json:"current_index"`
	Withdrawable bool              `json:"withdrawable"`
	Members      map[string]string `json:"members"`
	TakenAt      time.Time         `json:"taken_at"`
}

// SnapshotsFromCircles flattens a refresh result into snapshot rows.
func SnapshotsFromCircles(account string, circles []CircleInfo, takenAt time.Time) []CircleSnapshot {
	out := make([]CircleSnapshot, 0, len(circles))
	for _, c := range circles {
		out = append(out, CircleSnapshot{
			Account:      account,
			CircleHash:   c.CircleHash,
			Name:         c.Name,
			TokenAddress: c.TokenAddress,
			TotalBalance: c.TotalBalance,
			Deposit:      c.DepositAmount,
			CurrentIndex: c.CurrentIndex,
			Withdrawable: c.Withdrawable,
			Members:      c.Members,
			TakenAt:      takenAt.UTC(),
		})
	}
	return out
}
