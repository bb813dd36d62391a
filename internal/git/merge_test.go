package git

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"
)

func TestTrivialMerge(t *testing.T) {
	a := plumbing.NewHash("1111111111111111111111111111111111111111")
	b := plumbing.NewHash("2222222222222222222222222222222222222222")
	c := plumbing.NewHash("3333333333333333333333333333333333333333")

	t.Run("both sides identical", func(t *testing.T) {
		tree, ok := TrivialMerge(a, b, b)
		require.True(t, ok)
		require.Equal(t, b, tree)
	})

	t.Run("only theirs changed", func(t *testing.T) {
		tree, ok := TrivialMerge(a, a, c)
		require.True(t, ok)
		require.Equal(t, c, tree)
	})

	t.Run("only ours changed", func(t *testing.T) {
		tree, ok := TrivialMerge(a, b, a)
		require.True(t, ok)
		require.Equal(t, b, tree)
	})

	t.Run("both changed", func(t *testing.T) {
		_, ok := TrivialMerge(a, b, c)
		require.False(t, ok)
	})
}

func TestParseMergeTreeOutput(t *testing.T) {
	const tree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

	t.Run("clean merge", func(t *testing.T) {
		result, err := ParseMergeTreeOutput(tree+"\n", false)
		require.NoError(t, err)
		require.Equal(t, plumbing.NewHash(tree), result.Tree)
		require.False(t, result.Conflicted)
		require.Empty(t, result.Conflicts)
	})

	t.Run("conflicted paths are listed once", func(t *testing.T) {
		out := tree + "\nREADME.md\nsrc/main.go\nREADME.md\n\n"
		result, err := ParseMergeTreeOutput(out, true)
		require.NoError(t, err)
		require.True(t, result.Conflicted)
		require.Equal(t, []string{"README.md", "src/main.go"}, result.Conflicts)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseMergeTreeOutput("fatal: something\n", false)
		require.Error(t, err)
	})
}
