package jwt

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	SetSecret("test-secret")
	userID := uuid.New()
	distID := uuid.New()

	token, err := GenerateToken(userID, "Aziz", "employee", &distID, []string{"order:create"}, "v1")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "employee", claims.Role)
	require.NotNil(t, claims.DistributorID)
	assert.Equal(t, distID, *claims.DistributorID)
	assert.Equal(t, []string{"order:create"}, claims.Privileges)
	assert.Equal(t, "v1", claims.TokenVersion)
}

func TestValidateRejectsOtherSecret(t *testing.T) {
	SetSecret("first")
	token, err := GenerateToken(uuid.New(), "A", "admin", nil, nil, "v")
	require.NoError(t, err)

	SetSecret("second")
	_, err = ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
