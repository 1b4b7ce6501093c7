package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"BikeSharingDashboard/src/datapush"
	"BikeSharingDashboard/src/processor"
	"BikeSharingDashboard/src/store"
	"BikeSharingDashboard/src/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type dataRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Years []int  `json:"years"`
}

type summaryResponse struct {
	processor.Summary
	Formatted map[string]string `json:"formatted"`
}

type dashboardResponse struct {
	SessionID string            `json:"session_id"`
	Filter    string            `json:"filter"`
	DataRange *dataRange        `json:"data_range,omitempty"`
	Summary   *summaryResponse  `json:"summary,omitempty"`
	Panels    []processor.Panel `json:"panels,omitempty"`
	Warning   string            `json:"warning,omitempty"`
}

type viewResponse struct {
	SessionID string              `json:"session_id"`
	Filter    string              `json:"filter"`
	View      processor.View      `json:"view"`
	Table     *processor.Table    `json:"table,omitempty"`
	Rows      []processor.LongRow `json:"rows,omitempty"`
	Insight   string              `json:"insight,omitempty"`
	Warning   string              `json:"warning,omitempty"`
}

func rangeOf(rs *store.RecordStore) *dataRange {
	min, max, ok := rs.DateBounds()
	if !ok {
		return nil
	}
	return &dataRange{
		Start: min.Format(utils.DateLayout),
		End:   max.Format(utils.DateLayout),
		Years: rs.Years(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":         "ok",
		"cached_entries": s.cache.Len(),
	})
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{"views": processor.Catalogue()})
}

// prepare 解析过滤参数并加载数据，失败时已写出错误响应
func (s *Server) prepare(w http.ResponseWriter, r *http.Request) (processor.FilterSpec, *store.RecordStore, bool) {
	spec, apiErr := FilterFromQuery(r.URL.Query())
	if apiErr != nil {
		renderError(w, r, apiErr)
		return spec, nil, false
	}
	rs, err := s.Load()
	if err != nil {
		s.logger.Error("加载数据失败", zap.String("session", SessionID(r.Context())), zap.Error(err))
		renderError(w, r, fromError(err))
		return spec, nil, false
	}
	return spec, rs, true
}

func (s *Server) emptyResult(r *http.Request, spec processor.FilterSpec) string {
	s.metrics.EmptyResult.Inc()
	s.logger.Warning("过滤结果为空",
		zap.String("session", SessionID(r.Context())),
		zap.String("filter", spec.String()))
	return "No records match the selected filter."
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	spec, rs, ok := s.prepare(w, r)
	if !ok {
		return
	}

	start := time.Now()
	d, err := processor.Run(processor.Apply(rs, spec))
	s.metrics.timeView("dashboard", start)

	resp := dashboardResponse{
		SessionID: SessionID(r.Context()),
		Filter:    spec.String(),
		DataRange: rangeOf(rs),
	}
	switch {
	case errors.Is(err, processor.ErrEmptyResult):
		resp.Warning = s.emptyResult(r, spec)
		render.JSON(w, r, resp)
		return
	case err != nil:
		renderError(w, r, fromError(err))
		return
	}

	resp.Summary = &summaryResponse{
		Summary: d.Summary,
		Formatted: map[string]string{
			"days":  processor.FormatCount(float64(d.Summary.Days)),
			"total": processor.FormatCount(float64(d.Summary.Total)),
			"mean":  processor.FormatCount(d.Summary.Mean),
		},
	}
	resp.Panels = make([]processor.Panel, len(d.Panels))
	for i, p := range d.Panels {
		p.Table = p.Table.Rounded()
		resp.Panels[i] = p
	}
	render.JSON(w, r, resp)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	v, ok := processor.LookupView(name)
	if !ok {
		renderError(w, r, fromError(&processor.UnknownViewError{Name: name}))
		return
	}
	format := r.URL.Query().Get("format")
	if format != "" && format != "wide" && format != "long" {
		renderError(w, r, NewAPIError(http.StatusBadRequest, CodeInvalidParameter, fmt.Sprintf("unknown format %q", format)))
		return
	}

	spec, rs, ok := s.prepare(w, r)
	if !ok {
		return
	}

	start := time.Now()
	panel, err := processor.RunView(processor.Apply(rs, spec), name)
	s.metrics.timeView(name, start)

	resp := viewResponse{
		SessionID: SessionID(r.Context()),
		Filter:    spec.String(),
		View:      v,
	}
	switch {
	case errors.Is(err, processor.ErrEmptyResult):
		resp.Warning = s.emptyResult(r, spec)
		render.JSON(w, r, resp)
		return
	case err != nil:
		renderError(w, r, fromError(err))
		return
	}

	table := panel.Table.Rounded()
	if format == "long" {
		resp.Rows = table.Melt()
	} else {
		resp.Table = &table
	}
	resp.Insight = panel.Insight
	render.JSON(w, r, resp)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	spec, rs, ok := s.prepare(w, r)
	if !ok {
		return
	}

	d, err := processor.Run(processor.Apply(rs, spec))
	if err != nil {
		if errors.Is(err, processor.ErrEmptyResult) {
			s.emptyResult(r, spec)
		}
		renderError(w, r, fromError(err))
		return
	}

	report := datapush.Report{Dashboard: d, Filter: spec.String(), Generated: time.Now()}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName()))
	if _, err := report.WriteTo(w); err != nil {
		s.logger.Error("写出报表失败", zap.String("session", SessionID(r.Context())), zap.Error(err))
	}
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.cache.Invalidate(s.paths)
	rs, err := s.Load()
	if err != nil {
		s.logger.Error("重新加载数据失败", zap.Error(err))
		renderError(w, r, fromError(err))
		return
	}
	s.logger.Info("数据已重新加载", zap.Int("days", rs.Len()))
	render.JSON(w, r, map[string]interface{}{
		"reloaded":   true,
		"days":       rs.Len(),
		"loaded_at":  rs.LoadedAt(),
		"data_range": rangeOf(rs),
	})
}

// handleLogs 以 chunked 文本持续输出日志
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Transfer-Encoding", "chunked")

	logChan := s.logger.Subscribe()
	defer s.logger.Unsubscribe(logChan)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	for {
		select {
		case msg, ok := <-logChan:
			if !ok {
				return
			}
			// 客户端断开时写入失败
			if _, err := fmt.Fprintln(w, msg); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

// handleLogsWS 通过 websocket 推送日志
func (s *Server) handleLogsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warning("websocket升级失败", zap.Error(err))
		return
	}
	defer conn.Close()

	logChan := s.logger.Subscribe()
	defer s.logger.Unsubscribe(logChan)

	// 只读取控制帧，读失败说明客户端已断开
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-logChan:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
