package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"budgetwise/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenTypeAccess 访问令牌
	TokenTypeAccess = "access"
	// TokenTypeRefresh 刷新令牌
	TokenTypeRefresh = "refresh"
)

var (
	accessSecret  []byte
	refreshSecret []byte

	// ErrInvalidToken 令牌无效（签名错误、过期或类型不匹配）
	ErrInvalidToken = errors.New("invalid token")
)

// Claims 自定义 JWT 声明
// TokenType 区分访问/刷新令牌：刷新令牌只能换取新的访问令牌，反之不行；
// IsAdmin 标记管理员令牌，管理员与用户是独立的凭证空间
type Claims struct {
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	IsAdmin   bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// InitJWT 初始化 JWT 密钥
func InitJWT(cfg *config.Config) {
	accessSecret = []byte(cfg.JWT.AccessSecret)
	refreshSecret = []byte(cfg.JWT.RefreshSecret)
}

func generate(userID uint, username, tokenType string, isAdmin bool, secret []byte, expire time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: tokenType,
		IsAdmin:   isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parse(tokenString, wantType string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateAccessToken 为用户生成访问令牌
func GenerateAccessToken(userID uint, username string, expire time.Duration) (string, error) {
	return generate(userID, username, TokenTypeAccess, false, accessSecret, expire)
}

// GenerateRefreshToken 为用户生成刷新令牌
func GenerateRefreshToken(userID uint, username string, expire time.Duration) (string, error) {
	return generate(userID, username, TokenTypeRefresh, false, refreshSecret, expire)
}

// GenerateAdminToken 为管理员生成访问令牌
func GenerateAdminToken(adminID uint, username string, expire time.Duration) (string, error) {
	return generate(adminID, username, TokenTypeAccess, true, accessSecret, expire)
}

// ParseAccessToken 解析并校验访问令牌
func ParseAccessToken(tokenString string) (*Claims, error) {
	return parse(tokenString, TokenTypeAccess, accessSecret)
}

// ParseRefreshToken 解析并校验刷新令牌
func ParseRefreshToken(tokenString string) (*Claims, error) {
	return parse(tokenString, TokenTypeRefresh, refreshSecret)
}

// bearerToken 从 Authorization 头提取 Bearer token
func bearerToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	if auth == "" {
		return "", false
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func abortUnauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.JSON(http.StatusUnauthorized, gin.H{
		"code":    401,
		"message": message,
	})
	c.Abort()
}

// JWTAuth 用户认证中间件，校验访问令牌并注入当前用户信息
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "Could not validate credentials")
			return
		}

		claims, err := ParseAccessToken(tokenString)
		if err != nil || claims.IsAdmin {
			abortUnauthorized(c, "Could not validate credentials")
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// AdminAuth 管理员认证中间件，仅放行携带管理员访问令牌的请求
func AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "Could not validate credentials")
			return
		}

		claims, err := ParseAccessToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "Could not validate credentials")
			return
		}
		if !claims.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "Not authorized to access this resource",
			})
			c.Abort()
			return
		}

		c.Set("adminID", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// GetCurrentUserID 获取当前登录用户ID
func GetCurrentUserID(c *gin.Context) uint {
	if userID, exists := c.Get("userID"); exists {
		if id, ok := userID.(uint); ok {
			return id
		}
	}
	return 0
}

// GetCurrentUsername 获取当前登录用户名
func GetCurrentUsername(c *gin.Context) string {
	if username, exists := c.Get("username"); exists {
		if name, ok := username.(string); ok {
			return name
		}
	}
	return ""
}

// GetCurrentAdminID 获取当前登录管理员ID
func GetCurrentAdminID(c *gin.Context) uint {
	if adminID, exists := c.Get("adminID"); exists {
		if id, ok := adminID.(uint); ok {
			return id
		}
	}
	return 0
}
