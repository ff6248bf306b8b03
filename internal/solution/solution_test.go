package solution

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClone(t *testing.T) {
	orig := &Solution{
		FinalAnswer:     "5",
		Steps:           []string{"add 2 and 3", "the sum is 5"},
		SourceRetrieved: true,
		ReferenceID:     "mem-1",
	}

	clone := orig.Clone()
	require.NotNil(t, clone)
	assert.Equal(t, orig, clone)

	clone.Steps[0] = "mutated"
	assert.Equal(t, "add 2 and 3", orig.Steps[0], "clones must not share step storage")
}

func TestCloneNil(t *testing.T) {
	var s *Solution
	assert.Nil(t, s.Clone())
}

func TestJSONShape(t *testing.T) {
	raw, err := json.Marshal(&Solution{FinalAnswer: "5", Steps: []string{"a"}})
	require.NoError(t, err)

	assert.JSONEq(t, `{"solution":"5","steps":["a"],"source_retrieved":false}`, string(raw))
}
