package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsTemporaryError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset by peer")

	require.False(t, IsTemporaryError(nil))
	require.False(t, IsTemporaryError(cause))
	require.True(t, IsTemporaryError(MakeTemporaryError(cause)))
	require.True(t, IsTemporaryError(fmt.Errorf("failed to fetch the feed: %w", MakeTemporaryError(cause))))
	require.ErrorIs(t, MakeTemporaryError(cause), cause)
}
