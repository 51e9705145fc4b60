package outline

import (
	"strings"
	"testing"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tree_nav/internal/domain/tree"
	"tree_nav/internal/parser"
)

func TestStringListsEveryBranchInOrder(t *testing.T) {
	tr := parser.Parse(dedent.Dedent(`
		if outlook
		  if humidity high
		    class: no
		    class: no
		  class: yes
	`))

	out, err := String(tr)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	// the trailing class line joins the innermost open question
	require.Len(t, lines, 5)
	assert.Equal(t, "outlook?", lines[0])
	assert.Contains(t, lines[1], "[0] high -> humidity?")
	assert.Contains(t, lines[2], "[0] no => no")
	assert.Contains(t, lines[3], "[1] no => no")
	assert.Contains(t, lines[4], "[2] yes => yes")
}

func TestStringEmptyTree(t *testing.T) {
	out, err := String(&tree.Tree{})
	require.NoError(t, err)
	assert.Equal(t, emptyTree+"\n", out)
}
