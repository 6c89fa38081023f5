package regexlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("lowercase pattern matches any case", func(t *testing.T) {
		rx, err := New("hello", 0)
		require.NoError(t, err)
		assert.True(t, rx.Match("HELLO world"))
	})

	t.Run("uppercase in pattern matches exactly", func(t *testing.T) {
		rx, err := New("Hello", 0)
		require.NoError(t, err)
		assert.True(t, rx.Match("Hello"))
		assert.False(t, rx.Match("hello"))
	})

	t.Run("match case flag disables smart case", func(t *testing.T) {
		rx, err := New("hello", MatchCase)
		require.NoError(t, err)
		assert.False(t, rx.Match("HELLO"))
	})

	t.Run("leading bang negates", func(t *testing.T) {
		rx, err := New("!spam", AllowNot)
		require.NoError(t, err)
		assert.True(t, rx.Not)
		assert.True(t, rx.Match("clean subject"))
		assert.False(t, rx.Match("spam offer"))
	})

	t.Run("bang is literal without the flag", func(t *testing.T) {
		rx, err := New("!x", 0)
		require.NoError(t, err)
		assert.False(t, rx.Not)
		assert.True(t, rx.Match("!x"))
		assert.False(t, rx.Match("x"))
	})

	t.Run("empty pattern is unset", func(t *testing.T) {
		rx, err := New("", 0)
		require.NoError(t, err)
		assert.Nil(t, rx)
		assert.False(t, rx.Match("anything"))
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, err := New("[", 0)
		require.Error(t, err)
	})
}

func TestList(t *testing.T) {
	t.Run("match ignores case", func(t *testing.T) {
		var l List
		require.NoError(t, l.Add("neomutt\\.org"))
		require.NoError(t, l.Add("mutt-dev"))

		pat, ok := l.Match("users@NeoMutt.ORG")
		require.True(t, ok)
		assert.Equal(t, "neomutt\\.org", pat)
	})

	t.Run("first entry wins", func(t *testing.T) {
		var l List
		require.NoError(t, l.Add("a"))
		require.NoError(t, l.Add("b"))

		pat, ok := l.Match("ab")
		require.True(t, ok)
		assert.Equal(t, "a", pat)
	})

	t.Run("duplicate patterns collapse", func(t *testing.T) {
		var l List
		require.NoError(t, l.Add("neomutt"))
		require.NoError(t, l.Add("neomutt"))
		require.NoError(t, l.Add("NeoMutt"))
		assert.Equal(t, 1, l.Len())
	})

	t.Run("remove by pattern", func(t *testing.T) {
		var l List
		require.NoError(t, l.Add("Foo"))
		require.NoError(t, l.Add("bar"))

		assert.True(t, l.Remove("FOO"))
		assert.False(t, l.Remove("missing"))
		assert.Equal(t, []string{"bar"}, l.Patterns())
	})

	t.Run("star clears everything", func(t *testing.T) {
		var l List
		require.NoError(t, l.Add("a"))
		require.NoError(t, l.Add("b"))

		assert.True(t, l.Remove("*"))
		assert.Zero(t, l.Len())
	})

	t.Run("no match", func(t *testing.T) {
		var l List
		require.NoError(t, l.Add("xyz"))
		_, ok := l.Match("abc")
		assert.False(t, ok)
	})

	t.Run("bad pattern", func(t *testing.T) {
		var l List
		require.Error(t, l.Add("["))
	})
}

func TestReplaceListMatch(t *testing.T) {
	t.Run("expands backreferences", func(t *testing.T) {
		var l ReplaceList
		require.NoError(t, l.Add(`^x-spam-score: ([0-9.]+)`, "score %1"))

		out, ok := l.Match("X-Spam-Score: 4.2")
		require.True(t, ok)
		assert.Equal(t, "score 4.2", out)
	})

	t.Run("first matching rule wins", func(t *testing.T) {
		var l ReplaceList
		require.NoError(t, l.Add("spam", "first"))
		require.NoError(t, l.Add("sp.m", "second"))

		out, ok := l.Match("spam here")
		require.True(t, ok)
		assert.Equal(t, "first", out)
	})

	t.Run("no rule matches", func(t *testing.T) {
		var l ReplaceList
		require.NoError(t, l.Add("abc", "x"))
		_, ok := l.Match("def")
		assert.False(t, ok)
	})

	t.Run("re-adding a pattern swaps the template", func(t *testing.T) {
		var l ReplaceList
		require.NoError(t, l.Add("gtube", "old"))
		require.NoError(t, l.Add("GTUBE", "new"))
		require.Equal(t, 1, l.Len())

		out, ok := l.Match("GTUBE test")
		require.True(t, ok)
		assert.Equal(t, "new", out)
	})

	t.Run("template referencing a missing group fails", func(t *testing.T) {
		var l ReplaceList
		err := l.Add("nogroups", "%1")
		require.Error(t, err)
		assert.Zero(t, l.Len())
	})

	t.Run("unmatched optional group expands empty", func(t *testing.T) {
		var l ReplaceList
		require.NoError(t, l.Add("a(b)?c", "[%1]"))

		out, ok := l.Match("ac")
		require.True(t, ok)
		assert.Equal(t, "[]", out)
	})
}

func TestReplaceListApply(t *testing.T) {
	t.Run("rewrites with groups", func(t *testing.T) {
		var l ReplaceList
		require.NoError(t, l.Add("([0-9]+)/([0-9]+)", "%2 of %1"))
		assert.Equal(t, "7 of 3", l.Apply("3/7"))
	})

	t.Run("left and right context", func(t *testing.T) {
		var l ReplaceList
		require.NoError(t, l.Add("--+", "%L-%R"))
		assert.Equal(t, "a-b", l.Apply("a----b"))
	})

	t.Run("rules chain in order", func(t *testing.T) {
		var l ReplaceList
		require.NoError(t, l.Add("foo", "bar"))
		require.NoError(t, l.Add("bar", "baz"))
		assert.Equal(t, "baz", l.Apply("say foo"))
	})

	t.Run("non-matching input passes through", func(t *testing.T) {
		var l ReplaceList
		require.NoError(t, l.Add("xyz", "gone"))
		assert.Equal(t, "hello", l.Apply("hello"))
	})

	t.Run("empty input", func(t *testing.T) {
		var l ReplaceList
		require.NoError(t, l.Add("x", "y"))
		assert.Equal(t, "", l.Apply(""))
	})
}

func TestReplaceListRemove(t *testing.T) {
	var l ReplaceList
	require.NoError(t, l.Add("one", "1"))
	require.NoError(t, l.Add("two", "2"))

	assert.Equal(t, 0, l.Remove("ONE"), "removal is case sensitive")
	assert.Equal(t, 1, l.Remove("one"))
	assert.Equal(t, 1, l.Len())

	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "two", items[0].Pattern)
	assert.Equal(t, "2", items[0].Template)
}
