// internal/models/user_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPasswordHashing(t *testing.T) {
	user := &User{}
	require.NoError(t, user.SetPassword("Sup3rSecret!"))

	assert.NotEqual(t, "Sup3rSecret!", user.PasswordHash)
	assert.NoError(t, user.CheckPassword("Sup3rSecret!"))
	assert.Error(t, user.CheckPassword("wrong-password"))
}
