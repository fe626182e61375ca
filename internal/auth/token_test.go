package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adilzhm/tably/internal/domain"
)

var secret = []byte("test-secret")

func TestMintAndVerify(t *testing.T) {
	token, err := Mint(42, 1, domain.RoleWaiter, secret, time.Hour)
	require.NoError(t, err)

	claims, err := Verify(token, secret)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, int64(1), claims.StoreID)
	assert.Equal(t, domain.RoleWaiter, claims.Role)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := Mint(42, 1, domain.RoleWaiter, secret, time.Hour)
	require.NoError(t, err)

	_, err = Verify(token, []byte("other-secret"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	token, err := Mint(42, 1, domain.RoleWaiter, secret, -time.Minute)
	require.NoError(t, err)

	_, err = Verify(token, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := Verify("not-a-token", secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_UnknownRole(t *testing.T) {
	token, err := Mint(42, 1, domain.Role("intruder"), secret, time.Hour)
	require.NoError(t, err)

	_, err = Verify(token, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
