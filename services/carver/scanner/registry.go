package scanner

import (
	"bytes"
	_ "embed"
	"encoding/hex"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/spaolacci/murmur3"
	"gopkg.in/yaml.v3"
)

//go:embed signatures.yaml
var builtinTable []byte

// Signature is a named magic number. Immutable once it is inside a Registry.
type Signature struct {
	Name    string
	Pattern []byte
}

// Len returns the pattern length in bytes.
func (s Signature) Len() int { return len(s.Pattern) }

// Registry is an ordered, immutable set of signatures. It is built once before any
// worker starts and shared by pointer; nothing in it is written afterwards.
type Registry struct {
	sigs        []Signature
	maxLen      int
	fingerprint string
}

// NewRegistry validates and copies sigs. Order is preserved.
func NewRegistry(sigs []Signature) (*Registry, error) {
	if len(sigs) == 0 {
		return nil, ErrEmptyRegistry
	}
	seen := make(map[string]struct{}, len(sigs))
	owned := make([]Signature, 0, len(sigs))
	h := murmur3.New64()
	maxLen := 0
	for i, s := range sigs {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: entry %d has no name", ErrInvalidSignature, i)
		}
		if len(s.Pattern) == 0 {
			return nil, fmt.Errorf("%w: %s has an empty pattern", ErrInvalidSignature, s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %s", ErrInvalidSignature, s.Name)
		}
		seen[s.Name] = struct{}{}
		owned = append(owned, Signature{Name: s.Name, Pattern: bytes.Clone(s.Pattern)})
		maxLen = max(maxLen, len(s.Pattern))
		h.Write([]byte(s.Name))
		h.Write([]byte{0})
		h.Write(s.Pattern)
	}
	return &Registry{
		sigs:        owned,
		maxLen:      maxLen,
		fingerprint: fmt.Sprintf("%016x", h.Sum64()),
	}, nil
}

// LongestSignatureLength is the overlap driver for partition planning.
func (r *Registry) LongestSignatureLength() int { return r.maxLen }

// All returns the signatures in registry order. The slice is a copy.
func (r *Registry) All() []Signature { return slices.Clone(r.sigs) }

// Len returns the number of signatures.
func (r *Registry) Len() int { return len(r.sigs) }

// Fingerprint identifies the exact signature set (names, order and patterns).
func (r *Registry) Fingerprint() string { return r.fingerprint }

type tableFile struct {
	Signatures []tableEntry `yaml:"signatures"`
}

type tableEntry struct {
	Name  string `yaml:"name"`
	Magic string `yaml:"magic"`
}

// ParseRegistry builds a registry from a YAML signature table.
func ParseRegistry(data []byte) (*Registry, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse signature table: %w", err)
	}
	sigs := make([]Signature, 0, len(tf.Signatures))
	for _, e := range tf.Signatures {
		pattern, err := hex.DecodeString(strings.Join(strings.Fields(e.Magic), ""))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSignature, e.Name, err)
		}
		sigs = append(sigs, Signature{Name: e.Name, Pattern: pattern})
	}
	return NewRegistry(sigs)
}

// LoadRegistry reads a YAML signature table from r.
func LoadRegistry(r io.Reader) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read signature table: %w", err)
	}
	return ParseRegistry(data)
}

var defaultRegistry = sync.OnceValues(func() (*Registry, error) {
	return ParseRegistry(builtinTable)
})

// DefaultRegistry returns the built-in table, parsed once per process.
func DefaultRegistry() (*Registry, error) { return defaultRegistry() }
