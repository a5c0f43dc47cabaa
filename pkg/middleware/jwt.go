package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer はサービストークンのiss。
const tokenIssuer = "pushnotify"

// DefaultTokenTTL はサービストークンの有効期間。
const DefaultTokenTTL = 5 * time.Minute

// contextKeyService はGinコンテキストに呼び出し元サービス名を格納するキー。
const contextKeyService = "service"

// ErrEmptySecret は署名鍵が設定されていないことを表す。
var ErrEmptySecret = errors.New("サービストークンの署名鍵が空です")

// ServiceClaims はサービス間通信トークンのクレーム。
// Subjectに呼び出し元のサービス名を格納する。
type ServiceClaims struct {
	jwt.RegisteredClaims
}

// GenerateServiceToken は呼び出し元サービス名を含む短命トークンを生成する。
func GenerateServiceToken(secret, service string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now()
	claims := ServiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   service,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("サービストークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// TokenSource はリクエストごとに新しいサービストークンを発行する関数を返す。
// httpclient.WithTokenSource に渡して使用する。
func TokenSource(secret, service string) func() (string, error) {
	return func() (string, error) {
		return GenerateServiceToken(secret, service, DefaultTokenTTL)
	}
}

// ServiceAuth はサービストークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに呼び出し元サービス名を設定する。
func ServiceAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorizationヘッダーが必要です",
			})
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer トークン形式が不正です",
			})
			return
		}

		claims := &ServiceClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
		)
		if err != nil || !token.Valid || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "トークンが無効です",
			})
			return
		}

		c.Set(contextKeyService, claims.Subject)
		c.Next()
	}
}

// GetService はGinコンテキストから呼び出し元サービス名を取得する。
// ServiceAuthミドルウェアが事前に適用されている必要がある。
func GetService(c *gin.Context) string {
	service, _ := c.Get(contextKeyService)
	if s, ok := service.(string); ok {
		return s
	}
	return ""
}
