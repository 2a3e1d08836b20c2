package testutil

import (
	"context"
	"net/url"
	"testing"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func Context(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return logging.WithLogger(ctx, zaptest.NewLogger(t).Sugar())
}

func URL(t *testing.T, value string) *url.URL {
	url, err := url.Parse(value)
	require.NoError(t, err)
	return url
}
