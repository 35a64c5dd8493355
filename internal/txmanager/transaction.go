package txmanager

import (
	"strconv"
	"strings"

	"github.com/gabapcia/txwatch/internal/pkg/types"
	"github.com/gabapcia/txwatch/internal/pkg/validator"
)

// Transaction is a caller-supplied, ready-to-send transaction. Quantities are
// hex-encoded the way the node expects them; addresses and payloads are plain
// hex strings.
//
// A transaction is considered signed when it carries a complete signature
// triple or a raw encoded payload. That classification is always computed
// from the fields, never stored as a flag.
type Transaction struct {
	From     string    // sender designator: address, or decimal index into a wallet collection
	To       string    // recipient address (empty for contract creation)
	Data     string    // call data or contract bytecode
	Value    types.Hex // amount transferred
	Gas      types.Hex // gas limit
	GasPrice types.Hex // gas price
	Nonce    types.Hex // account nonce (empty lets the node assign one)

	Raw string // raw encoded signed payload, set after signing
	R   string // signature component
	S   string // signature component
	V   string // signature recovery id
}

// Signed reports whether the transaction already carries a signature: either
// the full R/S/V triple or a raw encoded payload.
func (t Transaction) Signed() bool {
	if t.Raw != "" {
		return true
	}
	return t.R != "" && t.S != "" && t.V != ""
}

// Wallet holds the key material needed to sign locally on behalf of an
// address.
type Wallet struct {
	Address    string `validate:"required"` // account address the key belongs to
	PrivateKey string `validate:"required"` // hex-encoded private key
}

// Wallets is an ordered wallet collection. The order matters: a transaction's
// "from" designator may be a decimal index into it.
type Wallets []Wallet

// SigningContext carries the key material available to a single send call.
// Either field may be empty; when no usable key is found the transaction is
// left for the node to sign remotely.
type SigningContext struct {
	// Wallet is explicit key material to use when the from designator does
	// not resolve as an index. It is only honored when it carries both an
	// address and a private key.
	Wallet *Wallet

	// Wallets is the collection searched by index or by address.
	Wallets Wallets
}

// resolve finds the wallet to sign with for the given from designator.
//
// Precedence: (a) the designator parses as a decimal index into the
// collection; (b) an explicit Wallet carrying both address and key;
// (c) the designator matches a collection entry's address, compared
// case-insensitively. A miss on every rule returns ok=false, which means
// local signing is skipped.
func (c SigningContext) resolve(from string) (Wallet, bool) {
	if idx, err := strconv.Atoi(from); err == nil && idx >= 0 && idx < len(c.Wallets) {
		return c.Wallets[idx], true
	}

	if c.Wallet != nil && validator.Validate(*c.Wallet) == nil {
		return *c.Wallet, true
	}

	for _, w := range c.Wallets {
		if strings.EqualFold(w.Address, from) {
			return w, true
		}
	}

	return Wallet{}, false
}
