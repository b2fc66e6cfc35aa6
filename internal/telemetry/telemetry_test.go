package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"crackedgrain.shop/storefront/internal/config"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), &config.Config{OTELServiceName: "test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupWithEndpoint(t *testing.T) {
	// exporter construction does not dial; export happens on the batcher
	shutdown, err := Setup(context.Background(), &config.Config{
		OTLPEndpoint:    "http://127.0.0.1:4318",
		OTELServiceName: "test",
		AppEnv:          "test",
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	_ = shutdown(context.Background())
}
