// Package assembler builds minimal, well-formed Move scripts and modules
// around a caller-chosen signature.
package assembler

import (
	"github.com/colorfulnotion/move0/fileformat"
	"github.com/colorfulnotion/move0/log"
)

// SignatureTable interns signatures so that structurally equal signatures
// share one index. Index 0 is always the empty signature.
type SignatureTable struct {
	sigs []fileformat.Signature
}

func NewSignatureTable() *SignatureTable {
	return &SignatureTable{sigs: []fileformat.Signature{{}}}
}

// Intern returns the index of sig, appending a deep copy of it if no equal
// signature is present.
func (t *SignatureTable) Intern(sig fileformat.Signature) fileformat.SignatureIndex {
	for i, s := range t.sigs {
		if s.Equal(sig) {
			return fileformat.SignatureIndex(i)
		}
	}
	t.sigs = append(t.sigs, sig.Clone())
	idx := fileformat.SignatureIndex(len(t.sigs) - 1)
	log.Trace(log.AssemblerMonitoring, "interned signature", "idx", idx, "sig", sig)
	return idx
}

// Signatures returns the table contents in index order.
func (t *SignatureTable) Signatures() []fileformat.Signature {
	return t.sigs
}

func (t *SignatureTable) Len() int { return len(t.sigs) }
