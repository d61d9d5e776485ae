package amount

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// Decimals is the fixed-point scale used by the circle contract and its tokens.
const Decimals = 18

const displayPlaces = 2

var (
	one         = big.NewInt(params.Ether)
	displayUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals-displayPlaces), nil)
)

// OneUnit returns a single token in base units.
func OneUnit() *big.Int {
	return new(big.Int).Set(one)
}

// ToDisplay renders a base-unit amount as a decimal string truncated to two
// fractional digits. Trailing zeros are dropped.
func ToDisplay(raw *big.Int) string {
	if raw == nil {
		return "0"
	}
	sign := raw.Sign()
	cents := new(big.Int).Abs(raw)
	cents.Quo(cents, displayUnit)

	whole, frac := new(big.Int).QuoRem(cents, big.NewInt(100), new(big.Int))
	text := whole.String()
	if frac.Sign() != 0 {
		text += "." + strings.TrimRight(fmt.Sprintf("%02d", frac.Int64()), "0")
	}
	if sign < 0 && cents.Sign() != 0 {
		return "-" + text
	}
	return text
}

// Sum adds base-unit amounts. Nil entries count as zero.
func Sum(values []*big.Int) *big.Int {
	total := new(big.Int)
	for _, v := range values {
		if v == nil {
			continue
		}
		total.Add(total, v)
	}
	return total
}

// ParseDecimal converts a human decimal such as "2.5" into base units.
func ParseDecimal(input string) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty amount")
	}

	whole, frac, hasFrac := strings.Cut(input, ".")
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (hasFrac && (frac == "" || !isDigits(frac))) {
		return nil, fmt.Errorf("invalid amount: %s", input)
	}
	if len(frac) > Decimals {
		return nil, fmt.Errorf("amount %s has more than %d decimals", input, Decimals)
	}

	value, ok := new(big.Int).SetString(whole+frac+strings.Repeat("0", Decimals-len(frac)), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", input)
	}
	return value, nil
}

func isDigits(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
