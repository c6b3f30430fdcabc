package recipe

import (
	"fmt"

	"github.com/goplus/llar-mongocxx/mod/module"
)

// Polyfill selects the optional/smart-pointer implementation bsoncxx is
// built against. Exactly one is active per build.
type Polyfill uint8

const (
	PolyfillStd Polyfill = iota + 1
	PolyfillBoost
	PolyfillMnmlstc
	PolyfillExperimental
)

// Polyfills lists every polyfill in declaration order.
var Polyfills = []Polyfill{PolyfillStd, PolyfillBoost, PolyfillMnmlstc, PolyfillExperimental}

var polyfillNames = map[Polyfill]string{
	PolyfillStd:          "std",
	PolyfillBoost:        "boost",
	PolyfillMnmlstc:      "mnmlstc",
	PolyfillExperimental: "experimental",
}

// cmake cache variables understood by the driver's build.
var polyfillFlags = map[Polyfill]string{
	PolyfillStd:          "BSONCXX_POLY_USE_STD",
	PolyfillBoost:        "BSONCXX_POLY_USE_BOOST",
	PolyfillMnmlstc:      "BSONCXX_POLY_USE_MNMLSTC",
	PolyfillExperimental: "BSONCXX_POLY_USE_STD_EXPERIMENTAL",
}

// Boost libraries the boost polyfill links against.
var boostDeps = []module.Version{
	{Path: "boostorg/optional", Version: "1.69.0"},
	{Path: "boostorg/smart_ptr", Version: "1.69.0"},
}

// ParsePolyfill parses one of "std", "boost", "mnmlstc" or "experimental".
func ParsePolyfill(s string) (Polyfill, error) {
	for _, p := range Polyfills {
		if polyfillNames[p] == s {
			return p, nil
		}
	}
	return 0, &ConfigurationError{
		Setting: "polyfill",
		Value:   s,
		Reason:  "must be one of std, boost, mnmlstc, experimental",
	}
}

// Valid reports whether p is one of the four polyfills.
func (p Polyfill) Valid() bool {
	_, ok := polyfillNames[p]
	return ok
}

func (p Polyfill) String() string {
	if name, ok := polyfillNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Polyfill(%d)", uint8(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Polyfill) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid polyfill %d", uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Polyfill) UnmarshalText(text []byte) error {
	v, err := ParsePolyfill(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Definitions returns the definition set selecting p.
func (p Polyfill) Definitions() DefinitionSet {
	return DefinitionSet{active: p}
}

// Dependencies returns the extra modules p requires. Only boost declares
// any: mnmlstc is fetched by the driver's own build and std::experimental
// comes with the toolchain.
func (p Polyfill) Dependencies() []module.Version {
	if p != PolyfillBoost {
		return nil
	}
	deps := make([]module.Version, len(boostDeps))
	copy(deps, boostDeps)
	return deps
}

// DefinitionSet is the flat flag form of a Polyfill, one boolean per
// variant, as the driver's cmake build expects it.
type DefinitionSet struct {
	active Polyfill
}

// Enabled reports whether the flag of p is on.
func (d DefinitionSet) Enabled(p Polyfill) bool {
	return d.active == p
}

// Flags returns the set keyed by polyfill name.
func (d DefinitionSet) Flags() map[string]bool {
	flags := make(map[string]bool, len(Polyfills))
	for _, p := range Polyfills {
		flags[p.String()] = d.Enabled(p)
	}
	return flags
}

// CMakeFlags returns the set keyed by cmake cache variable.
func (d DefinitionSet) CMakeFlags() map[string]bool {
	flags := make(map[string]bool, len(Polyfills))
	for _, p := range Polyfills {
		flags[polyfillFlags[p]] = d.Enabled(p)
	}
	return flags
}
