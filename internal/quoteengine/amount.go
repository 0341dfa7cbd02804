package quoteengine

import (
	"fmt"
	"math/big"
)

// Amount is an arbitrary-precision non-negative integer tagged with the
// asset it denominates and the decimal scale it was quoted in. Amounts
// are immutable once constructed.
type Amount struct {
	raw      *big.Int
	asset    string
	decimals uint8
}

// NewAmount builds an Amount from a non-negative big.Int. The asset
// identifier is typically a token address or symbol; decimals records the
// scale the raw value is expressed in (e.g. 18 for most ERC-20s).
func NewAmount(raw *big.Int, asset string, decimals uint8) (Amount, error) {
	if raw == nil {
		return Amount{}, fmt.Errorf("amount: raw value is nil")
	}
	if raw.Sign() < 0 {
		return Amount{}, fmt.Errorf("amount: raw value %s is negative", raw.String())
	}
	return Amount{raw: new(big.Int).Set(raw), asset: asset, decimals: decimals}, nil
}

// MustAmount is NewAmount but panics on error; intended for tests and
// static construction sites where the value is known-good.
func MustAmount(raw *big.Int, asset string, decimals uint8) Amount {
	a, err := NewAmount(raw, asset, decimals)
	if err != nil {
		panic(err)
	}
	return a
}

// Raw returns the underlying integer value. The returned pointer is a
// defensive copy; mutating it does not affect the Amount.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(a.raw)
}

// Asset returns the asset identifier this amount is denominated in.
func (a Amount) Asset() string { return a.asset }

// Decimals returns the decimal scale of the raw value.
func (a Amount) Decimals() uint8 { return a.decimals }

// Hex encodes the amount as "0x" + hex(raw), with no leading-zero
// normalization, matching what the remote quoter contract expects on the
// wire (§9 "Arbitrary-precision amounts").
func (a Amount) Hex() string {
	return "0x" + a.Raw().Text(16)
}

// String implements fmt.Stringer for logging.
func (a Amount) String() string {
	return fmt.Sprintf("%s%s", a.Raw().String(), assetSuffix(a.asset))
}

func assetSuffix(asset string) string {
	if asset == "" {
		return ""
	}
	return " " + asset
}
