package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Money is an amount in minor units (cents). Wire formats carry it as a decimal.
type Money int64

func NewMoney(amount float64) Money {
	return Money(math.Round(amount * 100))
}

func (m Money) Float() float64 {
	return float64(m) / 100
}

func (m Money) Times(quantity int) Money {
	return m * Money(quantity)
}

// Scale multiplies by factor and rounds to the nearest cent.
func (m Money) Scale(factor float64) Money {
	return Money(math.Round(float64(m) * factor))
}

func (m Money) String() string {
	return fmt.Sprintf("%.2f", m.Float())
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(m.Float(), 'f', 2, 64)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var amount float64
	if err := json.Unmarshal(data, &amount); err != nil {
		return fmt.Errorf("invalid amount %s: %w", string(data), err)
	}
	*m = NewMoney(amount)
	return nil
}

func (m *Money) UnmarshalYAML(value *yaml.Node) error {
	var amount float64
	if err := value.Decode(&amount); err != nil {
		return fmt.Errorf("invalid amount %q: %w", value.Value, err)
	}
	*m = NewMoney(amount)
	return nil
}
