package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Classification is the closed set of target kinds a feed may report.
type Classification int

const (
	Unknown Classification = iota
	Aircraft
	Ship
	Vehicle
	Missile
)

// Classifications lists every valid Classification in declaration order.
var Classifications = []Classification{Unknown, Aircraft, Ship, Vehicle, Missile}

var classNames = [...]string{"unknown", "aircraft", "ship", "vehicle", "missile"}

// Valid reports whether c is one of the declared classifications.
func (c Classification) Valid() bool {
	return c >= Unknown && c <= Missile
}

func (c Classification) String() string {
	if c.Valid() {
		return classNames[c]
	}
	return "Classification(" + strconv.Itoa(int(c)) + ")"
}

// MarshalText encodes c by name so JSON map keys read "aircraft", not "1".
func (c Classification) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownClassification, int(c))
	}
	return []byte(classNames[c]), nil
}

// UnmarshalText accepts either the lowercase name or the numeric code.
func (c *Classification) UnmarshalText(b []byte) error {
	parsed, err := ParseClassification(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseClassification resolves a name ("ship", case-insensitive) or numeric
// code ("2") to a Classification.
func ParseClassification(s string) (Classification, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		c := Classification(n)
		if !c.Valid() {
			return Unknown, fmt.Errorf("%w: %d", ErrUnknownClassification, n)
		}
		return c, nil
	}
	for i, name := range classNames {
		if strings.EqualFold(s, name) {
			return Classification(i), nil
		}
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknownClassification, s)
}
