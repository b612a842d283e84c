package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AccountAddressLength is the byte length of an account address.
const AccountAddressLength = 32

// AccountAddress identifies an account and the modules published under it.
// It BCS-encodes as its raw 32 bytes.
type AccountAddress [AccountAddressLength]byte

var (
	AddressZero = AccountAddress{}
	AddressOne  = AccountAddress{AccountAddressLength - 1: 1}
)

// AccountAddressFromHex parses a 0x-prefixed hex address. Short forms such
// as "0x1" are left padded with zeros.
func AccountAddressFromHex(s string) (AccountAddress, error) {
	var addr AccountAddress
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return addr, fmt.Errorf("address %q: missing 0x prefix", s)
	}
	digits := s[2:]
	if len(digits) == 0 || len(digits) > 2*AccountAddressLength {
		return addr, fmt.Errorf("address %q: invalid length %d", s, len(digits))
	}
	digits = strings.Repeat("0", 2*AccountAddressLength-len(digits)) + digits
	b, err := hexutil.Decode("0x" + digits)
	if err != nil {
		return addr, fmt.Errorf("address %q: %w", s, err)
	}
	copy(addr[:], b)
	return addr, nil
}

// MustAccountAddressFromHex is AccountAddressFromHex that panics on error.
func MustAccountAddressFromHex(s string) AccountAddress {
	addr, err := AccountAddressFromHex(s)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a AccountAddress) Bytes() []byte {
	return a[:]
}

// Hex returns the full 0x-prefixed 64 digit form.
func (a AccountAddress) Hex() string {
	return hexutil.Encode(a[:])
}

// ShortString drops leading zero digits, keeping at least one.
func (a AccountAddress) ShortString() string {
	s := strings.TrimLeft(hex.EncodeToString(a[:]), "0")
	if s == "" {
		s = "0"
	}
	return "0x" + s
}

func (a AccountAddress) String() string {
	return a.Hex()
}

func (a AccountAddress) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

func (a *AccountAddress) UnmarshalText(text []byte) error {
	parsed, err := AccountAddressFromHex(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
