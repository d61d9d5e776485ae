package model

// CircleInfo is the named view of one savings circle as read from the contract.
// A refresh replaces it wholesale.
type CircleInfo struct {
	Name                string            `json:"name"`
	Members             map[string]string `json:"members"`
	TotalBalance        string            `json:"total_balance"`
	TokenAddress        string            `json:"token_address"`
	DepositAmount       string            `json:"deposit_amount"`
	PrettyDepositAmount string            `json:"pretty_deposit_amount"`
	// Timestamp and CurrentIndex are nil when the contract returned a non-numeric encoding.
	Timestamp    *int64 `json:"timestamp"`
	CircleHash   string `json:"circle_hash"`
	CurrentIndex *int64 `json:"current_index"`
	Withdrawable bool   `json:"withdrawable"`
}
