package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/AnalyseDeCircuit/homedash/pkg/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// StatsHandler 每次请求都重新采集，不做缓存
// @Summary 主机指标
// @Description 采集失败时仍返回 200，ok 为 false 并附带错误信息
// @Tags Monitoring
// @Produce json
// @Success 200 {object} types.StatsResponse
// @Failure 401 {object} types.Response
// @Failure 429 {object} types.Response
// @Router /api/stats [get]
func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, a.collectStats(r.Context(), hlog.FromRequest(r)))
}

// Stats 供实时推送复用的采集入口
func (a *API) Stats(ctx context.Context) types.StatsResponse {
	return a.collectStats(ctx, &a.log)
}

func (a *API) collectStats(ctx context.Context, log *zerolog.Logger) types.StatsResponse {
	start := time.Now()
	snap, err := a.collector.Collect(ctx)
	a.metrics.ObserveCollection(time.Since(start), err)
	if err != nil {
		log.Warn().Err(err).Msg("stats collection failed")
		return types.StatsResponse{OK: false, Error: err.Error()}
	}
	return types.StatsResponse{OK: true, Snapshot: snap}
}

// LinksHandler 返回服务链接列表
// @Summary 服务链接
// @Tags Links
// @Produce json
// @Success 200 {object} types.LinksResponse
// @Router /api/links [get]
func (a *API) LinksHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, types.LinksResponse{OK: true, Links: a.links})
}

// HealthCheckHandler 健康检查，用于容器编排探针
func (a *API) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, types.Response{OK: true})
}
