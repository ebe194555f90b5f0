// Package handlers 提供HTTP路由处理器
package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/AnalyseDeCircuit/homedash/internal/prometheus"
	"github.com/AnalyseDeCircuit/homedash/internal/session"
	"github.com/AnalyseDeCircuit/homedash/pkg/types"
	"github.com/rs/zerolog/hlog"
)

// 登录失败统一提示，不区分用户名错误还是密码错误
const invalidCredentialsMessage = "Invalid credentials"

var errMalformedLogin = errors.New("malformed login request")

// LoginHandler 处理登录请求
// @Summary 登录
// @Description 校验管理员凭据，成功后写入会话 Cookie。接受 JSON 或表单。
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} types.UserResponse
// @Failure 401 {object} types.Response
// @Failure 429 {object} types.Response
// @Router /api/login [post]
func (a *API) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	log := hlog.FromRequest(r)

	req, err := decodeLogin(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	client := a.clientKey(r)
	if err := a.credentials.Verify(req.Username, req.Password); err != nil {
		a.metrics.ObserveLogin(prometheus.LoginFailure)
		log.Warn().Str("username", req.Username).Str("client", client).Msg("login failed")
		writeJSONError(w, http.StatusUnauthorized, invalidCredentialsMessage)
		return
	}

	// 登录前已有的会话作废，防止会话固定
	if err := a.sessions.Revoke(r); err != nil {
		log.Warn().Err(err).Msg("drop previous session")
	}

	sess, err := a.sessions.Create(r.Context(), types.User{Username: req.Username})
	if err != nil {
		log.Error().Err(err).Msg("create session")
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if err := a.sessions.SetCookie(w, sess); err != nil {
		log.Error().Err(err).Msg("set session cookie")
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	a.metrics.ObserveLogin(prometheus.LoginSuccess)
	log.Info().Str("username", sess.User.Username).Str("client", client).Msg("login succeeded")
	writeJSON(w, http.StatusOK, types.UserResponse{OK: true, User: &sess.User})
}

// decodeLogin 按 Content-Type 解析 JSON 或表单
func decodeLogin(r *http.Request) (types.LoginRequest, error) {
	var req types.LoginRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseForm(); err != nil {
			return req, errMalformedLogin
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	default:
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil {
			return req, errMalformedLogin
		}
	}
	req.Username = strings.TrimSpace(req.Username)
	return req, nil
}

// LogoutHandler 处理登出请求，没有会话时同样返回成功
// @Summary 登出
// @Tags Auth
// @Produce json
// @Success 200 {object} types.Response
// @Router /api/logout [post]
func (a *API) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := a.sessions.Logout(w, r); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("destroy session")
	}
	writeJSON(w, http.StatusOK, types.Response{OK: true})
}

// MeHandler 返回当前登录用户
// @Summary 当前用户
// @Tags Auth
// @Produce json
// @Success 200 {object} types.UserResponse
// @Failure 401 {object} types.UserResponse
// @Router /api/me [get]
func (a *API) MeHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, types.UserResponse{OK: false})
		return
	}
	user := sess.User
	writeJSON(w, http.StatusOK, types.UserResponse{OK: true, User: &user})
}
