package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTermMatcher(t *testing.T) {
	m := NewTermMatcher([]string{"Assassination", "  insider trading ", ""})

	require.True(t, m.Dangerous("Will the ASSASSINATION attempt succeed?"))
	require.True(t, m.Dangerous("settles on insider trading conviction"))
	require.False(t, m.Dangerous("Will the index close above the strike?"))
	require.False(t, m.Dangerous(""))
}

func TestTermMatcherEmptyList(t *testing.T) {
	m := NewTermMatcher(nil)
	require.False(t, m.Dangerous("anything at all"))
}
