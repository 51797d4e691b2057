// Package explorer builds block-explorer links for transactions and addresses.
package explorer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// TxURL returns base + "/tx/" + txHash. Inputs are not validated.
func TxURL(base, txHash string) string {
	return base + "/tx/" + txHash
}

// AddressURL returns base + "/address/" + address. Inputs are not validated.
func AddressURL(base, address string) string {
	return base + "/address/" + address
}

// Builder resolves a network name to its explorer base URL.
type Builder struct {
	bases    map[string]string
	fallback string
}

// NewBuilder creates a Builder from a network name to explorer base map.
// defaultNetwork names the network used by TxDefault and AddressDefault.
func NewBuilder(bases map[string]string, defaultNetwork string) *Builder {
	m := make(map[string]string, len(bases))
	for name, base := range bases {
		m[strings.ToLower(name)] = base
	}
	return &Builder{bases: m, fallback: strings.ToLower(defaultNetwork)}
}

// Base returns the explorer base URL configured for network.
func (b *Builder) Base(network string) (string, error) {
	base, ok := b.bases[strings.ToLower(network)]
	if !ok {
		return "", fmt.Errorf("explorer: %w: %q", domain.ErrUnknownNetwork, network)
	}
	return base, nil
}

// Tx builds a transaction link on the named network.
func (b *Builder) Tx(network, txHash string) (string, error) {
	base, err := b.Base(network)
	if err != nil {
		return "", err
	}
	return TxURL(base, txHash), nil
}

// Address builds an address link on the named network.
func (b *Builder) Address(network, address string) (string, error) {
	base, err := b.Base(network)
	if err != nil {
		return "", err
	}
	return AddressURL(base, address), nil
}

// AddressDefault builds an address link on the default network, or returns
// "" when the default network has no explorer configured.
func (b *Builder) AddressDefault(address string) string {
	base, ok := b.bases[b.fallback]
	if !ok {
		return ""
	}
	return AddressURL(base, address)
}

// TxDefault is AddressDefault for transactions.
func (b *Builder) TxDefault(txHash string) string {
	base, ok := b.bases[b.fallback]
	if !ok {
		return ""
	}
	return TxURL(base, txHash)
}

// Networks returns the configured network names in sorted order.
func (b *Builder) Networks() []string {
	out := make([]string, 0, len(b.bases))
	for name := range b.bases {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
