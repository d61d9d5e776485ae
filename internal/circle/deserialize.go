package circle

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"savingsCircle/internal/amount"
	"savingsCircle/internal/model"
)

// Deserialize builds a CircleInfo from the circle metadata and the balances read.
//
// Members pairs balances.Addresses[i] with balances.Balances[i] by position. The
// contract does not promise that this order matches raw.Members; see MembersAligned.
func Deserialize(raw model.RawCircleInfo, balances model.CircleBalances, circleHash common.Hash, withdrawable bool) model.CircleInfo {
	members := make(map[string]string, len(balances.Addresses))
	for i, addr := range balances.Addresses {
		value := ""
		if i < len(balances.Balances) {
			value = "0"
			if b := balances.Balances[i]; b != nil {
				value = b.String()
			}
		}
		members[addr.Hex()] = value
	}

	deposit := "0"
	if raw.DepositAmount != nil {
		deposit = raw.DepositAmount.String()
	}

	return model.CircleInfo{
		Name:                raw.Name,
		Members:             members,
		TotalBalance:        amount.ToDisplay(amount.Sum(balances.Balances)),
		TokenAddress:        raw.TokenAddress.Hex(),
		DepositAmount:       deposit,
		PrettyDepositAmount: amount.ToDisplay(raw.DepositAmount),
		Timestamp:           parseInteger(raw.Timestamp),
		CircleHash:          circleHash.Hex(),
		CurrentIndex:        parseInteger(raw.CurrentIndex),
		Withdrawable:        withdrawable,
	}
}

// MembersAligned reports whether the metadata member list and the balances
// address list are co-indexed.
func MembersAligned(raw model.RawCircleInfo, balances model.CircleBalances) bool {
	if len(raw.Members) != len(balances.Addresses) {
		return false
	}
	for i, addr := range raw.Members {
		if balances.Addresses[i] != addr {
			return false
		}
	}
	return true
}

// parseInteger reads a leading base-10 integer, ignoring trailing garbage.
// It returns nil when no digits lead the input or the value overflows int64.
func parseInteger(input string) *int64 {
	s := strings.TrimLeft(input, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return nil
	}
	v, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return nil
	}
	return &v
}
