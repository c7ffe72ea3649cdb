package splitter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator derives a node identifier from the node's normalized text.
// Identifiers are hints; collisions are possible.
type IDGenerator interface {
	NewID(text string) string
}

// IDFunc adapts a plain function to IDGenerator.
type IDFunc func(text string) string

func (f IDFunc) NewID(text string) string { return f(text) }

// ContentHash hashes the trimmed text with SHA-256 and returns the hex digest.
type ContentHash struct{}

func (ContentHash) NewID(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// NameUUID returns a deterministic version 5 UUID of the trimmed text.
type NameUUID struct{}

var nodeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docsplit:node"))

func (NameUUID) NewID(text string) string {
	return uuid.NewSHA1(nodeNamespace, []byte(strings.TrimSpace(text))).String()
}

// Sequence hands out monotonically increasing identifiers, ignoring text.
type Sequence struct {
	mu     sync.Mutex
	Prefix string
	next   int
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{Prefix: prefix}
}

func (s *Sequence) NewID(string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	if s.Prefix == "" {
		return fmt.Sprintf("%06d", s.next)
	}
	return fmt.Sprintf("%s-%06d", s.Prefix, s.next)
}

// ID strategy names accepted by IDStrategy.
const (
	IDHash     = "hash"
	IDUUID     = "uuid"
	IDSequence = "sequence"
)

// IDStrategy returns the generator registered under name. An empty name
// selects the content hash.
func IDStrategy(name, prefix string) (IDGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", IDHash:
		return ContentHash{}, nil
	case IDUUID:
		return NameUUID{}, nil
	case IDSequence:
		return NewSequence(prefix), nil
	default:
		return nil, fmt.Errorf("unknown id strategy: %s", name)
	}
}
