package fileformat

import (
	"encoding/json"
	"fmt"

	"github.com/xlab/treeprint"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

func dumpCode(parent treeprint.Tree, c *CodeUnit) {
	code := parent.AddMetaBranch(fmt.Sprintf("locals=%d", c.Locals), "code")
	for i, b := range c.Code {
		code.AddMetaNode(i, b.String())
	}
}

func dumpSignatures(tree treeprint.Tree, sigs []Signature) {
	branch := tree.AddMetaBranch(len(sigs), "signatures")
	for i, s := range sigs {
		branch.AddMetaNode(i, s.String())
	}
}

// Dump renders the module as a tree.
func (m *CompiledModule) Dump() treeprint.Tree {
	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf("module %s (v%d)", m.SelfID(), m.Version))
	dumpSignatures(tree, m.Signatures)
	structs := tree.AddMetaBranch(len(m.StructDefs), "structs")
	for _, sd := range m.StructDefs {
		sh := m.StructHandles[sd.StructHandle]
		s := structs.AddBranch(fmt.Sprintf("%s abilities=%#x", m.Identifiers[sh.Name], uint8(sh.Abilities)))
		if sd.FieldInformation.Native {
			s.AddNode("native")
		}
		for _, f := range sd.FieldInformation.Fields {
			s.AddNode(fmt.Sprintf("%s: %s", m.Identifiers[f.Name], f.Signature))
		}
	}
	funcs := tree.AddMetaBranch(len(m.FunctionDefs), "functions")
	for i := range m.FunctionDefs {
		fd := &m.FunctionDefs[i]
		fh := m.FunctionHandles[fd.Function]
		entry := ""
		if fd.IsEntry {
			entry = " entry"
		}
		f := funcs.AddBranch(fmt.Sprintf("%s%s fun %s<%d>%s: %s",
			fd.Visibility, entry, m.Identifiers[fh.Name], len(fh.TypeParameters),
			m.Signatures[fh.Parameters], m.Signatures[fh.Return]))
		if fd.Code == nil {
			f.AddNode("native")
			continue
		}
		dumpCode(f, fd.Code)
	}
	return tree
}

// Dump renders the script as a tree.
func (s *CompiledScript) Dump() treeprint.Tree {
	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf("script<%d>%s (v%d)", len(s.TypeParameters), s.Signatures[s.Parameters], s.Version))
	dumpSignatures(tree, s.Signatures)
	if len(s.ModuleHandles) > 0 {
		deps := tree.AddBranch("dependencies")
		for _, d := range s.ImmediateDependencies() {
			deps.AddNode(d.String())
		}
	}
	dumpCode(tree, &s.Code)
	return tree
}

// Diff returns a readable JSON diff of two descriptors, or "" when they
// are equal.
func Diff(expected, actual interface{}) (string, error) {
	left, err := json.Marshal(expected)
	if err != nil {
		return "", err
	}
	right, err := json.Marshal(actual)
	if err != nil {
		return "", err
	}
	delta, err := gojsondiff.New().Compare(left, right)
	if err != nil {
		return "", err
	}
	if !delta.Modified() {
		return "", nil
	}
	var leftObj interface{}
	if err := json.Unmarshal(left, &leftObj); err != nil {
		return "", err
	}
	asciiFmt := formatter.NewAsciiFormatter(leftObj, formatter.AsciiFormatterConfig{ShowArrayIndex: true})
	return asciiFmt.Format(delta)
}
