package utils

import (
	"context"
	"errors"
	"time"

	"freelance-hub/backend/apperror"
	"freelance-hub/backend/models"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

// IdentityKey 是儲存在 context 中的使用者身分的鍵
const IdentityKey contextKey = "identity"

// TokenVerifier 驗證 bearer token 並回傳 (id, role)；由外部認證服務決定 token 格式
type TokenVerifier interface {
	Verify(token string) (models.Identity, error)
}

// WithIdentity 將已驗證的身分放入 context
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetIdentityFromContext 從 context 中提取使用者身分
func GetIdentityFromContext(ctx context.Context) (models.Identity, error) {
	identity, ok := ctx.Value(IdentityKey).(models.Identity)
	if !ok || identity.ID == "" {
		return models.Identity{}, apperror.Authentication("user identity not found in context")
	}
	return identity, nil
}

// JWTVerifier 以共享密鑰驗證 HS256 token，claims 需包含 id 與 role
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(tokenString string) (models.Identity, error) {
	if len(v.secret) == 0 {
		return models.Identity{}, apperror.Authentication("token verification is not configured")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return models.Identity{}, apperror.Authentication("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.Identity{}, apperror.Authentication("invalid token claims")
	}

	userID, _ := claims["id"].(string)
	if userID == "" {
		// 舊版 token 使用 userId
		userID, _ = claims["userId"].(string)
	}
	if userID == "" {
		return models.Identity{}, apperror.Authentication("user id not found in token claims")
	}
	role, _ := claims["role"].(string)

	return models.Identity{ID: userID, Role: models.UserRole(role)}, nil
}

// GenerateJWT 產生與外部認證服務相同格式的 token (用於測試與本機開發)
func GenerateJWT(identity models.Identity, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"id":   identity.ID,
		"role": string(identity.Role),
		"exp":  time.Now().Add(ttl).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.New("failed to sign token")
	}
	return tokenString, nil
}

// ParseObjectID 解析路徑中的 ObjectID，格式錯誤時回傳 apperror.Validation
func ParseObjectID(hex, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperror.Validation("invalid %s format", what)
	}
	return id, nil
}
