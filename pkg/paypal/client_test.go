package paypal

import (
	"context"
	"testing"

	"github.com/plutov/paypal/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/rentalz-backend/pkg/config"
)

var _ OrdersAPI = (*paypal.Client)(nil)

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.PayPalConfig{Env: "sandbox"}, nil)
	require.ErrorIs(t, err, errCredentialsRequired)

	_, err = NewClient(ctx, config.PayPalConfig{ClientID: "id", ClientSecret: "secret", Env: "staging"}, nil)
	require.ErrorIs(t, err, errInvalidPayPalEnv)
}

func TestOrdersExposesSDKClient(t *testing.T) {
	var missing *Client
	assert.Nil(t, missing.Orders())
	assert.Empty(t, missing.Environment())

	api, err := paypal.NewClient("id", "secret", paypal.APIBaseSandBox)
	require.NoError(t, err)
	c := &Client{api: api, environment: sandboxEnv}
	assert.Same(t, api, c.Orders())
	assert.Equal(t, sandboxEnv, c.Environment())
}
