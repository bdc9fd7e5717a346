// Package handler 提供HTTP请求处理器
package handler

import (
	"net/http"
	"time"

	"github.com/medroster/medroster/internal/metrics"
	"github.com/medroster/medroster/pkg/errors"
	"github.com/medroster/medroster/pkg/model"
	"github.com/medroster/medroster/pkg/stats"
)

// EquityHandler 公平性处理器
type EquityHandler struct {
	loader   SnapshotLoader
	replayer *stats.Replayer
	reporter *stats.Reporter
	metrics  *metrics.Metrics
}

// NewEquityHandler 创建公平性处理器
func NewEquityHandler(loader SnapshotLoader, m *metrics.Metrics) *EquityHandler {
	return &EquityHandler{
		loader:   loader,
		replayer: stats.NewReplayer(),
		reporter: stats.NewReporter(),
		metrics:  m,
	}
}

// ReplayRequest 台账回放请求
type ReplayRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ReplayResponse 台账回放响应
type ReplayResponse struct {
	Report   *stats.EquityReport `json:"report"`
	Duration string              `json:"duration"`
}

// Replay 回放窗口台账并生成公平性报告
func (h *EquityHandler) Replay(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	begin := time.Now()

	var req ReplayRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	start, err := model.ParseDate(req.StartDate)
	if err != nil {
		respondError(w, errors.InvalidInput("start_date", "日期格式应为YYYY-MM-DD"))
		return
	}
	end, err := model.ParseDate(req.EndDate)
	if err != nil {
		respondError(w, errors.InvalidInput("end_date", "日期格式应为YYYY-MM-DD"))
		return
	}

	snap, loadErr := h.loader.LoadSnapshot(r.Context(), req.StartDate, req.EndDate)
	if loadErr != nil {
		respondError(w, loadErr)
		return
	}
	overrides, loadErr := h.loader.LoadOverrides(r.Context(), req.StartDate, req.EndDate)
	if loadErr != nil {
		respondError(w, loadErr)
		return
	}

	// 快照和覆盖每次请求重新加载，回放器按输入指纹决定哪些周需要重算
	ledger, replayErr := h.replayer.ReplayLedger(start, end, snap, overrides)
	if replayErr != nil {
		respondError(w, replayErr)
		return
	}
	h.metrics.ObserveReplay(time.Since(begin))

	report := h.reporter.BuildReport(ledger, snap.Doctors, req.StartDate, req.EndDate)
	respondJSON(w, http.StatusOK, ReplayResponse{
		Report:   report,
		Duration: time.Since(begin).String(),
	})
}
