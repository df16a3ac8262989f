package money

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"cashpos/internal/apperror"

	"github.com/shopspring/decimal"
)

// maxCount bounds a single denomination count.
const maxCount = int64(1_000_000_000)

// Denomination is a currency unit expressed in cents.
type Denomination int64

const (
	Hundred Denomination = 10000
	Fifty   Denomination = 5000
	Twenty  Denomination = 2000
	Ten     Denomination = 1000
	Five    Denomination = 500
	One     Denomination = 100
	Quarter Denomination = 25
	Dime    Denomination = 10
	Nickel  Denomination = 5
	Penny   Denomination = 1
)

// Denominations is the closed set of units a drawer count may use, largest first.
var Denominations = []Denomination{Hundred, Fifty, Twenty, Ten, Five, One, Quarter, Dime, Nickel, Penny}

func (d Denomination) Valid() bool {
	for _, v := range Denominations {
		if v == d {
			return true
		}
	}
	return false
}

// String renders whole units without decimals ("20") and coins with two ("0.25").
func (d Denomination) String() string {
	if d%100 == 0 {
		return strconv.FormatInt(int64(d)/100, 10)
	}
	return decimal.New(int64(d), -2).StringFixed(2)
}

// ParseDenomination accepts "20", "20.00", "0.1" or "0.10".
func ParseDenomination(s string) (Denomination, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return 0, apperror.Validation("denominations", "invalid denomination %q", s)
	}
	c := v.Mul(hundred)
	if !c.IsInteger() || !Denomination(c.IntPart()).Valid() {
		return 0, apperror.Validation("denominations", "unknown denomination %q", s)
	}
	return Denomination(c.IntPart()), nil
}

// Breakdown maps each denomination to the number of units counted.
type Breakdown map[Denomination]int64

// FromDenominations validates a breakdown and returns its total.
func FromDenominations(b Breakdown) (Money, error) {
	var total int64
	for d, n := range b {
		if !d.Valid() {
			return Money{}, apperror.Validation("denominations", "unknown denomination %d cents", int64(d))
		}
		if n < 0 {
			return Money{}, apperror.Validation("denominations", "count for %s must not be negative", d)
		}
		if n > maxCount {
			return Money{}, apperror.Validation("denominations", "count for %s is too large", d)
		}
		total += int64(d) * n
		if total > maxCents {
			return Money{}, apperror.Validation("denominations", "amount exceeds the maximum of %s", FromCents(maxCents))
		}
	}
	return Money{cents: total}, nil
}

// NonZero reports whether any count is positive.
func (b Breakdown) NonZero() bool {
	for _, n := range b {
		if n != 0 {
			return true
		}
	}
	return false
}

// MarshalJSON writes keys in descending denomination order so payloads and
// stored breakdowns are byte-stable.
func (b Breakdown) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	keys := make([]Denomination, 0, len(b))
	for d := range b {
		keys = append(keys, d)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(d.String()))
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(b[d], 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON rejects unknown denominations, keys that name the same
// denomination twice ("20" and "20.00"), and non-integer, negative or
// oversized counts with a ValidationError.
func (b *Breakdown) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]json.Number
	if err := dec.Decode(&raw); err != nil {
		return apperror.Validation("denominations", "must be an object of denomination to count")
	}
	out := make(Breakdown, len(raw))
	for k, v := range raw {
		d, err := ParseDenomination(k)
		if err != nil {
			return err
		}
		n, err := strconv.ParseInt(v.String(), 10, 64)
		if err != nil {
			return apperror.Validation("denominations", "count for %s must be a whole number", d)
		}
		if n < 0 {
			return apperror.Validation("denominations", "count for %s must not be negative", d)
		}
		if n > maxCount {
			return apperror.Validation("denominations", "count for %s is too large", d)
		}
		if _, dup := out[d]; dup {
			return apperror.Validation("denominations", "denomination %s given more than once", d)
		}
		out[d] = n
	}
	*b = out
	return nil
}
