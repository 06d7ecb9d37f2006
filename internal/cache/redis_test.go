package cache

import (
	"context"
	"testing"
	"time"

	"participant-import-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCache(t *testing.T) {
	c, err := NewRedisCache(config.RedisConfig{Enabled: false})
	require.NoError(t, err)

	var names []string
	assert.ErrorIs(t, c.Get(context.Background(), CredentialNamesKey("evt-1"), &names), ErrCacheMiss)
	assert.NoError(t, c.Set(context.Background(), CredentialNamesKey("evt-1"), []string{"VIP"}, time.Minute))
	assert.NoError(t, c.Close())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "event:evt-1:credential_names", CredentialNamesKey("evt-1"))
	assert.Equal(t, "event:evt-1:company_names", CompanyNamesKey("evt-1"))
}
