package models

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// NanoPerUnit is the number of nano-units in one whole unit.
const NanoPerUnit = 1_000_000_000

const coinDecimals = 9

var (
	ErrCoinsOverflow  = errors.New("coin amount overflows")
	ErrCoinsUnderflow = errors.New("coin amount underflows")
	ErrInvalidCoins   = errors.New("invalid coin amount")
)

// Coins is an amount of currency in nano-units.
type Coins uint64

// Units returns n whole units.
func Units(n uint64) Coins {
	return Coins(n * NanoPerUnit)
}

// Add returns c+o or ErrCoinsOverflow.
func (c Coins) Add(o Coins) (Coins, error) {
	if uint64(c) > math.MaxUint64-uint64(o) {
		return 0, ErrCoinsOverflow
	}
	return c + o, nil
}

// Sub returns c-o or ErrCoinsUnderflow.
func (c Coins) Sub(o Coins) (Coins, error) {
	if o > c {
		return 0, ErrCoinsUnderflow
	}
	return c - o, nil
}

// Decimal returns c as a decimal number of whole units.
func (c Coins) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(c)), -coinDecimals)
}

// String formats c in whole units, e.g. "0.3".
func (c Coins) String() string {
	return c.Decimal().String()
}

// MarshalText implements encoding.TextMarshaler.
func (c Coins) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Coins) UnmarshalText(text []byte) error {
	parsed, err := ParseCoins(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCoins parses an amount of whole units with up to nine decimals.
func ParseCoins(s string) (Coins, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCoins, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %s", ErrInvalidCoins, s)
	}
	nano := d.Shift(coinDecimals)
	if !nano.Equal(nano.Truncate(0)) {
		return 0, fmt.Errorf("%w: more than %d decimals in %s", ErrInvalidCoins, coinDecimals, s)
	}
	bi := nano.BigInt()
	if !bi.IsUint64() {
		return 0, ErrCoinsOverflow
	}
	return Coins(bi.Uint64()), nil
}

// MustParseCoins is ParseCoins for constants and tests.
func MustParseCoins(s string) Coins {
	c, err := ParseCoins(s)
	if err != nil {
		panic(err)
	}
	return c
}
