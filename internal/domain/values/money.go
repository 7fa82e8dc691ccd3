package values

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents an amount of the in-game currency ("coins").
// Coins are indivisible: every constructor and operation preserves
// integrality, so Int64() is always exact.
type Money struct {
	amount decimal.Decimal
}

// NewCoins creates Money from a whole number of coins.
func NewCoins(coins int64) Money {
	return Money{amount: decimal.NewFromInt(coins)}
}

// NewMoneyFromString creates Money from a decimal string.
func NewMoneyFromString(s string) (Money, error) {
	dec, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount: %w", err)
	}
	if !dec.Equal(dec.Floor()) {
		return Money{}, fmt.Errorf("amount must be a whole number of coins: %s", s)
	}
	return Money{amount: dec}, nil
}

// Zero returns the zero amount.
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// Int64 returns the amount as whole coins.
func (m Money) Int64() int64 {
	return m.amount.IntPart()
}

// Amount returns the underlying decimal.
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

func (m Money) String() string {
	return m.amount.StringFixed(0)
}

func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsPositive() bool { return m.amount.IsPositive() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// Compare returns -1, 0 or 1 comparing m to other.
func (m Money) Compare(other Money) int {
	return m.amount.Cmp(other.amount)
}

func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.amount.GreaterThanOrEqual(other.amount)
}

func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// PercentFloor returns floor(m * pct / 100). This is the rounding rule
// for bid increments and marketplace fees.
func (m Money) PercentFloor(pct int64) Money {
	return Money{
		amount: m.amount.Mul(decimal.NewFromInt(pct)).Div(decimal.NewFromInt(100)).Floor(),
	}
}

// Max returns the larger of m and other.
func (m Money) Max(other Money) Money {
	if m.GreaterThanOrEqual(other) {
		return m
	}
	return other
}

// MarshalJSON implements json.Marshaler. Amounts serialize as bare numbers.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.amount.StringFixed(0)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid money value: %w", err)
	}
	parsed, err := NewMoneyFromString(raw.String())
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer. Coins are stored as BIGINT.
func (m Money) Value() (driver.Value, error) {
	return m.amount.IntPart(), nil
}

// Scan implements sql.Scanner.
func (m *Money) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = Zero()
		return nil
	case int64:
		*m = NewCoins(v)
		return nil
	case string:
		parsed, err := NewMoneyFromString(v)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case []byte:
		parsed, err := NewMoneyFromString(string(v))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
}
