// backend/utils/utils_test.go
package utils

import (
	"context"
	"testing"
	"time"

	"freelance-hub/backend/apperror"
	"freelance-hub/backend/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJWTAndVerify(t *testing.T) {
	secret := "test-secret"
	identity := models.Identity{ID: "f1", Role: models.RoleFreelancer}

	tokenString, err := GenerateJWT(identity, secret, time.Hour)
	assert.NoError(t, err, "生成 JWT 不應該返回錯誤")
	assert.NotEmpty(t, tokenString, "生成的 JWT token 不應該是空的")

	got, err := NewJWTVerifier(secret).Verify(tokenString)
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	identity := models.Identity{ID: "f1", Role: models.RoleFreelancer}
	verifier := NewJWTVerifier("test-secret")

	wrongSecret, err := GenerateJWT(identity, "other-secret", time.Hour)
	require.NoError(t, err)
	_, err = verifier.Verify(wrongSecret)
	assert.True(t, apperror.Is(err, apperror.KindAuthentication))

	expired, err := GenerateJWT(identity, "test-secret", -time.Minute)
	require.NoError(t, err)
	_, err = verifier.Verify(expired)
	assert.True(t, apperror.Is(err, apperror.KindAuthentication))

	_, err = verifier.Verify("not-a-token")
	assert.True(t, apperror.Is(err, apperror.KindAuthentication))

	_, err = NewJWTVerifier("").Verify(wrongSecret)
	assert.True(t, apperror.Is(err, apperror.KindAuthentication))
}

func TestVerifyAcceptsLegacyUserIDClaim(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "f9",
		"role":   "client",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	got, err := NewJWTVerifier("test-secret").Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, models.Identity{ID: "f9", Role: models.RoleClient}, got)
}

func TestIdentityContext(t *testing.T) {
	_, err := GetIdentityFromContext(context.Background())
	assert.True(t, apperror.Is(err, apperror.KindAuthentication))

	ctx := WithIdentity(context.Background(), models.Identity{ID: "f1", Role: models.RoleFreelancer})
	got, err := GetIdentityFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "f1", got.ID)
}

func TestValidateStructMessages(t *testing.T) {
	err := ValidateStruct(models.ActivityRequest{RoomID: "r1", Action: "waved"})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Contains(t, err.Error(), "meetingId is required")
	assert.Contains(t, err.Error(), "userId is required")
	assert.Contains(t, err.Error(), "action must be one of: joined, left")

	assert.NoError(t, ValidateStruct(models.ActivityRequest{
		RoomID: "r1", MeetingID: "m1", UserID: "u1", UserRole: "client", Action: models.ActionJoined,
	}))
}

func TestParseObjectID(t *testing.T) {
	_, err := ParseObjectID("zzz", "team id")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Equal(t, "invalid team id format", err.Error())

	id, err := ParseObjectID("65f1c2a4e4b0a1b2c3d4e5f6", "team id")
	require.NoError(t, err)
	assert.Equal(t, "65f1c2a4e4b0a1b2c3d4e5f6", id.Hex())
}
