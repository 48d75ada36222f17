package resolver

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownProfile = errors.New("unknown resolution profile")

// Profile controls how aggressively untyped receivers are resolved.
type Profile string

const (
	// Strict emits only edges backed by a typed receiver or a direct lookup.
	Strict Profile = "strict"
	// Heuristic additionally guesses receiver classes from variable names and
	// from globally unique method names.
	Heuristic Profile = "heuristic"
)

func ParseProfile(s string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(s))) {
	case "", Strict:
		return Strict, nil
	case Heuristic:
		return Heuristic, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProfile, s)
}

type Options struct {
	Profile Profile
	// TypeCheckUses turns isinstance(x, Cls) into Use edges on the class.
	TypeCheckUses bool
	// Workers bounds the per-callable worker pool. Zero means GOMAXPROCS.
	Workers int
}
