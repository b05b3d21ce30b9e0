package stripe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/rentalz-backend/pkg/config"
)

func TestKeyMode(t *testing.T) {
	cases := map[string]string{
		"sk_test_abc": "test",
		"rk_test_abc": "test",
		"sk_live_abc": "live",
		"rk_live_abc": "live",
	}
	for key, want := range cases {
		got, err := keyMode(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}
	for _, bad := range []string{"pk_test_abc", "sk_abc", "whsec_abc"} {
		_, err := keyMode(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewClientChecksEnvironmentAgainstKey(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_live_x", Secret: "whsec_x", Env: "test"}, nil)
	assert.Error(t, err)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_x", Env: "test"}, nil)
	assert.Error(t, err, "signing secret required")

	c, err := NewClient(ctx, config.StripeConfig{APIKey: " sk_test_x ", Secret: "whsec_x", Env: "TEST"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "test", c.Mode())
	assert.Equal(t, "whsec_x", c.SigningSecret())
	assert.NotNil(t, c.Payments())
}

func TestNilClientAccessors(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Payments())
	assert.Empty(t, c.Mode())
	assert.Empty(t, c.SigningSecret())
}
