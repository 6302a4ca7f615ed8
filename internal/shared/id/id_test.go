package id

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := gen.Generate().String()
		require.False(t, seen[s], "duplicate id %s", s)
		seen[s] = true
	}
}

func TestGenerateSorted(t *testing.T) {
	gen := NewGenerator()
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = gen.Generate().String()
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestMessageID(t *testing.T) {
	before := time.Now().Add(-time.Second)
	msgID := NewMessageID()

	assert.True(t, strings.HasPrefix(msgID.String(), MessagePrefix+"_"))
	assert.Len(t, msgID.String(), len(MessagePrefix)+1+26)

	parsed, err := ulid.Parse(strings.TrimPrefix(msgID.String(), MessagePrefix+"_"))
	require.NoError(t, err)
	assert.True(t, ulid.Time(parsed.Time()).After(before))
}
