package parse

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrimText(t *testing.T) {
	const nbsp = "\u00a0"
	const softHypen = "\u00ad"

	require.Equal(t, "some text with hypened word", TrimText(fmt.Sprintf(
		" \t\nsome%s text with hype%sned word \r\n", nbsp, softHypen,
	)))
}

func TestTrimTitle(t *testing.T) {
	require.Equal(t, "Go 1.26 is released", TrimTitle("\n  Go 1.26\n\tis   released  "))
	require.Equal(t, "", TrimTitle("  \n"))
}
