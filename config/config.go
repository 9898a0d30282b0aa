// Package config loads a node's identity, protocol parameters, peer list
// and authentication settings from CLI flags and environment variables
// via cobra/pflag, the CLI stack the reference threshold-signing service
// in this corpus wires through its own cmd/ entrypoint.
package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"
)

// Config is everything cmd/node needs to boot a Server.
type Config struct {
	NodeID       int
	Prime        *big.Int
	Parties      []string // peer base URLs, index i = party i+1
	ListenAddr   string
	JWTSecret    []byte
	TokenTTL     time.Duration
	TrustedIPs   []string
	AdminUser    string
	AdminPass    string
}

// Validate checks the fields cobra's flag parsing cannot enforce on its
// own: that the prime parses, the peer list has odd length, and the
// node id is in range.
func (c *Config) Validate() error {
	if c.Prime == nil || c.Prime.Sign() <= 0 {
		return fmt.Errorf("prime must be a positive integer")
	}
	n := len(c.Parties)
	if n == 0 || n%2 == 0 {
		return fmt.Errorf("parties must list an odd number of peers (2t+1), got %d", n)
	}
	if c.NodeID < 1 || c.NodeID > n {
		return fmt.Errorf("node-id must be in [1,%d], got %d", n, c.NodeID)
	}
	if len(c.JWTSecret) == 0 {
		return fmt.Errorf("jwt-secret must not be empty")
	}
	return nil
}

// ParsePrime accepts a decimal or 0x-prefixed hex literal, matching the
// wire encoding the rest of the node uses for field elements.
func ParsePrime(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	p, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("%q is not a valid integer literal", s)
	}
	return p, nil
}

// EnvOrDefault returns the named environment variable, or def if unset.
// cobra flags take precedence over this; it is only consulted by the
// flag defaults themselves, mirroring the env-then-flag layering the
// original backend's pydantic settings class used.
func EnvOrDefault(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}

// SplitList splits a comma-separated flag value into a trimmed,
// non-empty slice.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
