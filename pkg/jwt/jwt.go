// Package jwt 处理 JWT 令牌的签发与解析
package jwt

import (
	"errors"
	"strings"
	"time"

	jwtpkg "github.com/golang-jwt/jwt/v5"

	"homerent/pkg/config"
)

var (
	ErrTokenMissing   = errors.New("请求未携带令牌")
	ErrTokenMalformed = errors.New("令牌格式有误")
	ErrTokenInvalid   = errors.New("令牌无效或已过期")
	ErrSecretMissing  = errors.New("未配置 JWT 签名密钥")
)

// JWT 定义一个 jwt 对象
type JWT struct {
	// 秘钥，用以加密 JWT
	SignKey []byte
	// 签发方
	Issuer string
	// 有效期
	ExpireTime time.Duration
}

// CustomClaims 自定义载荷，账号服务签发时写入用户 ID 与角色
type CustomClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`

	jwtpkg.RegisteredClaims
}

// NewJWT 按配置创建
func NewJWT() *JWT {
	return New(
		config.GetString("jwt.secret"),
		config.GetString("jwt.issuer"),
		time.Duration(config.GetInt64("jwt.expire_time"))*time.Minute,
	)
}

// New 使用指定参数创建，测试中直接调用
func New(secret, issuer string, expire time.Duration) *JWT {
	return &JWT{
		SignKey:    []byte(secret),
		Issuer:     issuer,
		ExpireTime: expire,
	}
}

// IssueToken 签发令牌，账号服务之外只在 CLI 和测试中使用
func (j *JWT) IssueToken(userID, role string) (string, error) {
	if len(j.SignKey) == 0 {
		return "", ErrSecretMissing
	}
	now := time.Now()
	claims := CustomClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwtpkg.RegisteredClaims{
			Issuer:    j.Issuer,
			Subject:   userID,
			IssuedAt:  jwtpkg.NewNumericDate(now),
			NotBefore: jwtpkg.NewNumericDate(now),
			ExpiresAt: jwtpkg.NewNumericDate(now.Add(j.ExpireTime)),
		},
	}
	token := jwtpkg.NewWithClaims(jwtpkg.SigningMethodHS256, claims)
	return token.SignedString(j.SignKey)
}

// ParseToken 解析 Authorization 头中的 Bearer 令牌
func (j *JWT) ParseToken(header string) (*CustomClaims, error) {
	if len(j.SignKey) == 0 {
		return nil, ErrSecretMissing
	}
	tokenString, err := bearer(header)
	if err != nil {
		return nil, err
	}

	token, err := jwtpkg.ParseWithClaims(tokenString, &CustomClaims{}, func(t *jwtpkg.Token) (interface{}, error) {
		return j.SignKey, nil
	}, jwtpkg.WithValidMethods([]string{jwtpkg.SigningMethodHS256.Alg()}), jwtpkg.WithIssuer(j.Issuer))
	if err != nil {
		if errors.Is(err, jwtpkg.ErrTokenMalformed) {
			return nil, ErrTokenMalformed
		}
		return nil, errors.Join(ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// bearer 从 "Bearer xxx" 中取出令牌
func bearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrTokenMissing
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrTokenMalformed
	}
	return strings.TrimSpace(parts[1]), nil
}
