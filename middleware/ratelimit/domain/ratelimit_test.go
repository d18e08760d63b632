package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientKey_Variants(t *testing.T) {
	assert.Equal(t, ClientKey("user:u1"), UserKey("u1"))
	assert.Equal(t, ClientKey("ip:1.2.3.4"), IPKey("1.2.3.4"))
	assert.Equal(t, ClientKey("ip:unknown"), IPKey(""))

	assert.True(t, UserKey("u1").IsUser())
	assert.False(t, IPKey("1.2.3.4").IsUser())
}

func TestWindowConfig_Validate(t *testing.T) {
	assert.NoError(t, PerMinute(60).Validate())
	assert.Equal(t, time.Minute, PerMinute(60).Window)

	assert.ErrorIs(t, WindowConfig{Quota: 0, Window: time.Minute}.Validate(), ErrInvalidQuota)
	assert.ErrorIs(t, WindowConfig{Quota: -1, Window: time.Minute}.Validate(), ErrInvalidQuota)
	assert.ErrorIs(t, WindowConfig{Quota: 1}.Validate(), ErrInvalidWindow)
}
