package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitRedis_Fail(t *testing.T) {
	// Try to connect to non-existent redis
	client, err := InitRedis("localhost:1", "", 0)
	assert.Error(t, err)
	assert.Nil(t, client)

	t.Run("URL Form", func(t *testing.T) {
		client, err := InitRedis("redis://localhost:1/0", "", 0)
		assert.Error(t, err)
		assert.Nil(t, client)
	})

	t.Run("Malformed URL", func(t *testing.T) {
		client, err := InitRedis("redis://localhost:1/not-a-db", "", 0)
		assert.Error(t, err)
		assert.Nil(t, client)
	})
}
