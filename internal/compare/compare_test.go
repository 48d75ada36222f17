package compare

import (
	"testing"

	"depgraph/internal/canon"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	gt := []canon.Triple{
		{Src: "a.py/CLASSES/A/METHODS/m (Method)", Tgt: "a.py/CLASSES/B (Class)", Kind: "Create"},
		{Src: "a.py/CLASSES/A/METHODS/m (Method)", Tgt: "a.py/CLASSES/B/METHODS/n (Method)", Kind: "Call"},
		{Src: "a.py/CLASSES/A/METHODS/m (Method)", Tgt: "a.py/CLASSES/B/METHODS/o (Method)", Kind: "Call"},
	}
	actual := []canon.Triple{
		gt[0], gt[0], gt[1],
		{Src: "a.py/CLASSES/A/METHODS/m (Method)", Tgt: "a.py/CLASSES/A/FIELDS/x (Field)", Kind: "Use"},
	}

	r := Diff(gt, actual)
	assert.Equal(t, 3, r.Expected)
	assert.Equal(t, 3, r.Found)
	assert.Equal(t, []canon.Triple{gt[2]}, r.Missing)
	require.Len(t, r.Extra, 1)
	assert.Equal(t, "Use", r.Extra[0].Kind)
	assert.False(t, r.Clean())

	require.Len(t, r.Kinds, 3)
	call := r.Kinds[0]
	assert.Equal(t, "Call", call.Kind)
	assert.Equal(t, 1, call.Missing)
	assert.InDelta(t, 1.0, call.Precision, 1e-9)
	assert.InDelta(t, 0.5, call.Recall, 1e-9)

	use := r.Kinds[2]
	assert.Equal(t, "Use", use.Kind)
	assert.InDelta(t, 0.0, use.Precision, 1e-9)
	assert.InDelta(t, 1.0, use.Recall, 1e-9)

	md := r.Markdown()
	assert.Contains(t, md, "## Missing (1)")
	assert.Contains(t, md, "| Call | 2 | 1 | 1 | 0 | 1.000 | 0.500 |")
	assert.Contains(t, r.Summary(0), "... 1 more")
}

func TestDiff_Identical(t *testing.T) {
	ts := []canon.Triple{{Src: "a", Tgt: "b", Kind: "Call"}}
	r := Diff(ts, ts)
	assert.True(t, r.Clean())
	assert.Contains(t, r.Markdown(), "- (none)")
}
