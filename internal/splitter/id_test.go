package splitter

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHash(t *testing.T) {
	g := ContentHash{}
	// SHA-256 of "hello world".
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	assert.Equal(t, want, g.NewID("hello world"))
	assert.Equal(t, want, g.NewID("  hello world\n"), "text is trimmed before hashing")
	assert.Len(t, g.NewID("anything"), 64)
	assert.NotEqual(t, g.NewID("a"), g.NewID("b"))
}

func TestNameUUID_Deterministic(t *testing.T) {
	g := NameUUID{}
	a := g.NewID("section text")
	assert.Equal(t, a, g.NewID("section text"))
	assert.NotEqual(t, a, g.NewID("other text"))

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestSequence(t *testing.T) {
	s := NewSequence("doc")
	assert.Equal(t, "doc-000001", s.NewID("x"))
	assert.Equal(t, "doc-000002", s.NewID("x"))

	bare := NewSequence("")
	assert.Equal(t, "000001", bare.NewID(""))
}

func TestSequence_Concurrent(t *testing.T) {
	s := NewSequence("n")
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := s.NewID("")
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}

func TestIDStrategy(t *testing.T) {
	for name, want := range map[string]any{
		"":         ContentHash{},
		"hash":     ContentHash{},
		"UUID":     NameUUID{},
		"sequence": &Sequence{},
	} {
		g, err := IDStrategy(name, "")
		require.NoError(t, err, name)
		assert.IsType(t, want, g, name)
	}

	_, err := IDStrategy("random", "")
	assert.Error(t, err)
}

func TestIDFunc(t *testing.T) {
	g := IDFunc(func(text string) string { return "id:" + text })
	assert.Equal(t, "id:abc", g.NewID("abc"))
}
