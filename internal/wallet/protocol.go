package wallet

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// DefaultLinkBase is the wallet app's deep-link entry point.
	DefaultLinkBase = "celo://wallet/dappkit"

	requestTypeSignTx = "sign_tx"
	statusSuccess     = "200"
)

// TxToSign is one transaction as carried in a sign request.
type TxToSign struct {
	From               string `json:"from"`
	To                 string `json:"to"`
	TxData             string `json:"txData"`
	EstimatedGas       uint64 `json:"estimatedGas"`
	Nonce              uint64 `json:"nonce"`
	FeeCurrencyAddress string `json:"feeCurrencyAddress,omitempty"`
	Value              string `json:"value"`
}

// Request is a sign request handed to the wallet.
type Request struct {
	Txs       []TxToSign
	RequestID string
	Callback  string
	DappName  string
}

// Response is the wallet's answer delivered back through the callback URL.
type Response struct {
	RequestID string
	Status    string
	RawTxs    [][]byte
}

// Success reports whether the wallet signed the request.
func (r Response) Success() bool {
	return r.Status == statusSuccess
}

// EncodeRequest serializes a request into a deep link rooted at base.
func EncodeRequest(base string, req Request) (string, error) {
	if req.RequestID == "" {
		return "", fmt.Errorf("request id is required")
	}
	if req.Callback == "" {
		return "", fmt.Errorf("callback is required")
	}
	if base == "" {
		base = DefaultLinkBase
	}

	txs, err := json.Marshal(req.Txs)
	if err != nil {
		return "", fmt.Errorf("marshal txs: %w", err)
	}

	query := url.Values{}
	query.Set("type", requestTypeSignTx)
	query.Set("txs", base64.StdEncoding.EncodeToString(txs))
	query.Set("requestId", req.RequestID)
	query.Set("callback", req.Callback)
	query.Set("dappName", req.DappName)

	return base + "?" + query.Encode(), nil
}

// ParseResponse reads a wallet response from callback query parameters.
func ParseResponse(query url.Values) (Response, error) {
	if t := query.Get("type"); t != requestTypeSignTx {
		return Response{}, fmt.Errorf("unsupported response type: %q", t)
	}
	requestID := query.Get("requestId")
	if requestID == "" {
		return Response{}, fmt.Errorf("missing requestId")
	}

	resp := Response{
		RequestID: requestID,
		Status:    query.Get("status"),
	}
	if !resp.Success() {
		return resp, nil
	}

	for _, value := range rawTxValues(query) {
		raw, err := hexutil.Decode(value)
		if err != nil {
			return Response{}, fmt.Errorf("invalid raw tx %q: %w", value, err)
		}
		resp.RawTxs = append(resp.RawTxs, raw)
	}
	return resp, nil
}

// ParseResponseURL reads a wallet response from a full callback URL.
func ParseResponseURL(callbackURL string) (Response, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return Response{}, fmt.Errorf("parse callback url: %w", err)
	}
	return ParseResponse(u.Query())
}

func rawTxValues(query url.Values) []string {
	values := query["rawTxs"]
	if len(values) == 0 {
		values = query["rawTxs[]"]
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
