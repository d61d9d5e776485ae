package circle

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestParseAddresses(t *testing.T) {
	got, err := ParseAddresses([]string{alice.Hex(), " " + bob.Hex() + " "})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 || got[0] != alice || got[1] != bob {
		t.Fatalf("unexpected addresses: %v", got)
	}
	if _, err := ParseAddresses([]string{"0x123"}); err == nil {
		t.Fatalf("expected error for short address")
	}
}

func TestParseCircleHash(t *testing.T) {
	want := common.HexToHash("0x0000000000000000000000000000000000000000000000000000000000000abc")
	got, err := ParseCircleHash(want.Hex())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != want {
		t.Fatalf("hash mismatch: %s", got.Hex())
	}
	for _, input := range []string{"", "abc", "0x1234"} {
		if _, err := ParseCircleHash(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}
