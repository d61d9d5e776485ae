package model

// AccountBalances holds display balances for the active account.
type AccountBalances struct {
	Address string `json:"address"`
	Gold    string `json:"gold"`
	Dollar  string `json:"dollar"`
}

// Session records the account that is logged in.
type Session struct {
	Account   string `json:"account"`
	UpdatedAt string `json:"updated_at"`
}
