// Package session 提供会话管理功能：会话的创建、查找、销毁以及 Cookie 策略
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/AnalyseDeCircuit/homedash/internal/auth"
	"github.com/AnalyseDeCircuit/homedash/pkg/types"
	"github.com/rs/zerolog"
)

type contextKey string

const sessionContextKey contextKey = "session"

// CookiePolicy 会话 Cookie 属性。HttpOnly、SameSite=Lax 固定不变，
// Secure 和 Domain 取决于部署拓扑，由配置决定。
type CookiePolicy struct {
	Name   string
	Domain string
	Secure bool
	TTL    time.Duration
}

// Manager 会话管理器
type Manager struct {
	store  Store
	signer *auth.TokenSigner
	policy CookiePolicy
	log    zerolog.Logger
	now    func() time.Time
}

// NewManager 创建会话管理器
func NewManager(store Store, signer *auth.TokenSigner, policy CookiePolicy, log zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		signer: signer,
		policy: policy,
		log:    log,
		now:    time.Now,
	}
}

// GenerateSessionID 生成 32 字节随机数的十六进制会话 ID
func GenerateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Create 为已认证用户创建会话
func (m *Manager) Create(ctx context.Context, user types.User) (*types.Session, error) {
	if user.Username == "" {
		return nil, errors.New("session requires a username")
	}

	id, err := GenerateSessionID()
	if err != nil {
		return nil, err
	}

	now := m.now()
	sess := &types.Session{
		ID:        id,
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(m.policy.TTL),
	}
	if err := m.store.Set(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// Lookup 查找会话。不存在、已过期、没有用户或存储出错时都返回 false，
// 调用方一律按“未登录”处理。
func (m *Manager) Lookup(ctx context.Context, id string) (*types.Session, bool) {
	if id == "" {
		return nil, false
	}

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.Warn().Err(err).Msg("session lookup failed")
		}
		return nil, false
	}
	if !sess.Authenticated(m.now()) {
		return nil, false
	}
	return sess, true
}

// Destroy 删除会话，会话不存在不算错误
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return m.store.Delete(ctx, id)
}

// FromRequest 从 Cookie 中解析并查找会话
func (m *Manager) FromRequest(r *http.Request) (*types.Session, bool) {
	id, ok := m.sessionID(r)
	if !ok {
		return nil, false
	}
	return m.Lookup(r.Context(), id)
}

func (m *Manager) sessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(m.policy.Name)
	if err != nil {
		return "", false
	}
	id, err := m.signer.Verify(cookie.Value)
	if err != nil {
		m.log.Debug().Err(err).Str("path", r.URL.Path).Msg("rejecting session cookie")
		return "", false
	}
	return id, true
}

// SetCookie 写入会话 Cookie
func (m *Manager) SetCookie(w http.ResponseWriter, sess *types.Session) error {
	token, err := m.signer.Sign(sess)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.policy.Name,
		Value:    token,
		Path:     "/",
		Domain:   m.policy.Domain,
		HttpOnly: true,
		Secure:   m.policy.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.policy.TTL / time.Second),
		Expires:  sess.ExpiresAt,
	})
	return nil
}

// ClearCookie 让浏览器删除会话 Cookie
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.policy.Name,
		Value:    "",
		Path:     "/",
		Domain:   m.policy.Domain,
		HttpOnly: true,
		Secure:   m.policy.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

// Revoke 销毁请求携带的会话（如果有），不修改 Cookie
func (m *Manager) Revoke(r *http.Request) error {
	if id, ok := m.sessionID(r); ok {
		return m.Destroy(r.Context(), id)
	}
	return nil
}

// Logout 销毁请求携带的会话（如果有）并清除 Cookie，可重复调用
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	err := m.Revoke(r)
	m.ClearCookie(w)
	return err
}

// NewContext 把会话放入请求上下文
func NewContext(ctx context.Context, sess *types.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// FromContext 取出 Access Guard 放入上下文的会话
func FromContext(ctx context.Context) (*types.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(*types.Session)
	return sess, ok && sess != nil
}
