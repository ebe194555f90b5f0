// Package auth 提供管理员凭据校验和会话 Cookie 签名功能
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AnalyseDeCircuit/homedash/pkg/types"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials 用户名或密码错误，不区分两者以防止用户名枚举
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken 会话 Cookie 签名或格式无效
	ErrInvalidToken = errors.New("invalid session token")
)

const tokenIssuer = "homedash"

// Credentials 进程级管理员凭据，启动时加载一次
type Credentials struct {
	username string
	hash     []byte
}

// NewCredentials 创建凭据。password 可以是明文，也可以是 bcrypt 哈希（$2a$/$2b$/$2y$ 开头）。
// 明文密码在内存中只保留其 bcrypt 哈希。
func NewCredentials(username, password string) (*Credentials, error) {
	return newCredentials(username, password, bcrypt.DefaultCost)
}

func newCredentials(username, password string, cost int) (*Credentials, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	if isBcryptHash(password) {
		if _, err := bcrypt.Cost([]byte(password)); err != nil {
			return nil, fmt.Errorf("invalid bcrypt hash: %w", err)
		}
		return &Credentials{username: username, hash: []byte(password)}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("password hashing failed: %w", err)
	}
	return &Credentials{username: username, hash: hash}, nil
}

// Username 返回管理员用户名
func (c *Credentials) Username() string {
	return c.username
}

// Verify 校验用户名和密码。即使用户名不匹配也会执行一次 bcrypt 比较，
// 使两种失败的耗时一致。
func (c *Credentials) Verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(c.hash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// HashPasswordBcrypt 生成密码哈希，供运维预先生成 ADMIN_PASS
func HashPasswordBcrypt(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// --- 会话令牌 ---

// TokenSigner 把不透明的会话 ID 包装成 HS256 JWT 写入 Cookie。
// 令牌只证明 Cookie 由本服务签发，会话本身仍以服务端存储为准。
type TokenSigner struct {
	key []byte
	now func() time.Time
}

// NewTokenSigner 使用会话签名密钥创建签名器
func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{key: []byte(secret), now: time.Now}
}

// Sign 为会话生成令牌
func (s *TokenSigner) Sign(sess *types.Session) (string, error) {
	claims := &jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   sess.User.Username,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

// Verify 校验令牌并返回其中的会话 ID
func (s *TokenSigner) Verify(tokenString string) (string, error) {
	if strings.TrimSpace(tokenString) == "" {
		return "", ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}
