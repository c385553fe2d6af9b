package genesis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Network identifies which lattice a block belongs to. The value is the
// byte written in the canonical block layout.
type Network uint8

// Set of known networks.
const (
	Live    Network = 0
	Beta    Network = 1
	Dev     Network = 2
	Local   Network = 3
	Unknown Network = 255
)

var networkNames = map[Network]string{
	Live:  "LIVE",
	Beta:  "BETA",
	Dev:   "DEV",
	Local: "LOCAL",
}

// difficultyReduction scales the proof of work difficulty down for the
// test networks so they can be used on ordinary hardware.
var difficultyReduction = map[Network]uint64{
	Live:  1,
	Beta:  10,
	Dev:   100,
	Local: 100_000,
}

// ParseNetwork converts a network name into a Network. Unrecognized names
// return Unknown.
func ParseNetwork(name string) Network {
	for n, s := range networkNames {
		if strings.EqualFold(s, name) {
			return n
		}
	}

	return Unknown
}

// IsKnown reports whether the network is one of the supported networks.
func (n Network) IsKnown() bool {
	_, exists := networkNames[n]
	return exists
}

// DifficultyReduction returns the factor the base work difficulty is
// multiplied by for this network. Unknown networks get the live factor.
func (n Network) DifficultyReduction() uint64 {
	f, exists := difficultyReduction[n]
	if !exists {
		return 1
	}

	return f
}

// String implements the fmt.Stringer interface.
func (n Network) String() string {
	s, exists := networkNames[n]
	if !exists {
		return "UNKNOWN"
	}

	return s
}

// MarshalJSON writes the network by name.
func (n Network) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// UnmarshalJSON reads a network written by name.
func (n *Network) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	net := ParseNetwork(s)
	if net == Unknown {
		return fmt.Errorf("unknown network %q", s)
	}
	*n = net

	return nil
}
