package authservice

import (
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID   uint64 `json:"sub"`
	Username string `json:"username"`
	Type     string `json:"typ"` // "access" / "refresh"
	jwt.RegisteredClaims
}

var (
	secretOnce sync.Once
	secret     []byte
)

// SetSecret 由启动流程注入配置里的密钥；之后的注入会被忽略。
// 没配置时退回环境变量，再退回开发用默认值。
func SetSecret(s string) {
	if s == "" {
		return
	}
	secretOnce.Do(func() { secret = []byte(s) })
}

func getSecret() []byte {
	secretOnce.Do(func() {
		s := os.Getenv("JWT_SECRET")
		if s == "" {
			s = "dev-secret"
		}
		secret = []byte(s)
	})
	return secret
}

func signToken(userID uint64, username, typ string, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(getSecret())
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func SignAccessToken(userID uint64, username string, ttl time.Duration) (string, time.Time, error) {
	return signToken(userID, username, "access", ttl)
}

func SignRefreshToken(userID uint64, username string, ttl time.Duration) (string, time.Time, error) {
	return signToken(userID, username, "refresh", ttl)
}

// ParseToken 解析并校验任意 token（访问/刷新），返回 Claims。
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return getSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
