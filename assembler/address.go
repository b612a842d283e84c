package assembler

import (
	"github.com/colorfulnotion/move0/types"
	"golang.org/x/exp/rand"
)

// AddressGenerator supplies the address under which a generated module is
// published.
type AddressGenerator interface {
	NextAddress() types.AccountAddress
}

// AddressGeneratorFunc adapts a function to AddressGenerator.
type AddressGeneratorFunc func() types.AccountAddress

func (f AddressGeneratorFunc) NextAddress() types.AccountAddress { return f() }

// FixedAddress always returns addr.
func FixedAddress(addr types.AccountAddress) AddressGenerator {
	return AddressGeneratorFunc(func() types.AccountAddress { return addr })
}

// SeededAddressGenerator yields a reproducible stream of random addresses.
type SeededAddressGenerator struct {
	rng *rand.Rand
}

func NewSeededAddressGenerator(seed uint64) *SeededAddressGenerator {
	return &SeededAddressGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *SeededAddressGenerator) NextAddress() types.AccountAddress {
	var a types.AccountAddress
	g.rng.Read(a[:])
	return a
}
