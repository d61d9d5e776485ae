package workflow

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Kind names an in-flight slot. Actions of the same kind supersede each other.
type Kind string

const (
	KindRefresh    Kind = "refresh"
	KindAddCircle  Kind = "add_circle"
	KindSendRawTxs Kind = "send_raw_txs"
	KindContribute Kind = "contribute"
	KindWithdraw   Kind = "withdraw"
	KindLogout     Kind = "logout"
)

var allKinds = []Kind{KindRefresh, KindAddCircle, KindSendRawTxs, KindContribute, KindWithdraw}

// Action is something the user asked for.
type Action interface {
	Kind() Kind
}

// SetAccount logs an account in and refreshes its circles.
type SetAccount struct {
	Address common.Address
}

func (SetAccount) Kind() Kind { return KindRefresh }

// FetchCircles refreshes the active account's circles.
type FetchCircles struct{}

func (FetchCircles) Kind() Kind { return KindRefresh }

// AddCircle creates a circle with the given members.
type AddCircle struct {
	Name    string
	Members []common.Address
}

func (AddCircle) Kind() Kind { return KindAddCircle }

// SendRawTxs broadcasts transactions that were signed elsewhere.
type SendRawTxs struct {
	RawTxs [][]byte
}

func (SendRawTxs) Kind() Kind { return KindSendRawTxs }

// Contribute pays amount into a circle.
type Contribute struct {
	Amount     *big.Int
	CircleHash common.Hash
}

func (Contribute) Kind() Kind { return KindContribute }

// Withdraw takes the pooled funds when it is the caller's turn.
type Withdraw struct {
	CircleHash common.Hash
}

func (Withdraw) Kind() Kind { return KindWithdraw }

// Logout drops every in-flight task and resets state.
type Logout struct{}

func (Logout) Kind() Kind { return KindLogout }

// Phase is where a task currently is.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBuilding
	PhaseAwaitingSignature
	PhaseBroadcasting
	PhaseRefreshing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBuilding:
		return "building"
	case PhaseAwaitingSignature:
		return "awaiting_signature"
	case PhaseBroadcasting:
		return "broadcasting"
	case PhaseRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}
