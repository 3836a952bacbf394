package simulation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Bool3 is a tri-state signal value. Unknown models an undriven or
// high-impedance line and is the zero value.
type Bool3 uint8

const (
	Unknown Bool3 = iota
	False
	True
)

// FromBool converts a definite boolean.
func FromBool(b bool) Bool3 {
	if b {
		return True
	}
	return False
}

// ParseBool3 accepts "null", "unknown" and the empty string as Unknown and
// anything strconv.ParseBool understands as a definite value.
func ParseBool3(s string) (Bool3, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "unknown":
		return Unknown, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return Unknown, fmt.Errorf("%w: %q is not a signal value", ErrInvalidProperty, s)
	}
	return FromBool(b), nil
}

// Known reports whether b is True or False.
func (b Bool3) Known() bool { return b == True || b == False }

func (b Bool3) Not() Bool3 {
	switch b {
	case True:
		return False
	case False:
		return True
	}
	return Unknown
}

// And is false if either side is false, unknown if either side is unknown.
func (b Bool3) And(o Bool3) Bool3 {
	if b == False || o == False {
		return False
	}
	if b == True && o == True {
		return True
	}
	return Unknown
}

// Or is true if either side is true, unknown if either side is unknown.
func (b Bool3) Or(o Bool3) Bool3 {
	if b == True || o == True {
		return True
	}
	if b == False && o == False {
		return False
	}
	return Unknown
}

// Xor is unknown whenever a side is unknown.
func (b Bool3) Xor(o Bool3) Bool3 {
	if !b.Known() || !o.Known() {
		return Unknown
	}
	return FromBool(b != o)
}

func (b Bool3) String() string {
	switch b {
	case True:
		return "true"
	case False:
		return "false"
	}
	return "null"
}

// MarshalJSON encodes Unknown as null.
func (b Bool3) MarshalJSON() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Bool3) UnmarshalJSON(data []byte) error {
	var v *bool
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*b = Unknown
		return nil
	}
	*b = FromBool(*v)
	return nil
}
