package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
)

func TestSeedFromEnv(t *testing.T) {
	t.Setenv("ADMIN_NAME", "")
	t.Setenv("ADMIN_EMAIL", " root@example.com ")
	t.Setenv("ADMIN_PASSWORD", "from-env")
	t.Setenv("ADMIN_ADDRESS", "HQ")
	t.Setenv("ADMIN_ACCOUNT_TYPE", " PRIVATE ")

	seed := seedFromEnv("")
	assert.Equal(t, defaultName, seed.Name)
	assert.Equal(t, "root@example.com", seed.Email)
	assert.Equal(t, "from-env", seed.Password)
	assert.Equal(t, entity.AccountPrivate, seed.AccountType)

	assert.Equal(t, "from-flag", seedFromEnv("from-flag").Password)
}
