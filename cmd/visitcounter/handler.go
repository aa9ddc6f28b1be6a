package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/yikakia/visitcounter/core/counter"
	"github.com/yikakia/visitcounter/core/telemetry"
)

// VisitCounter handler 依赖的服务能力
type VisitCounter interface {
	IncrementVisit(ctx context.Context, pageID string) error
	GetVisitCount(ctx context.Context, pageID string) (int64, counter.Source, error)
}

type visitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type visitsResponse struct {
	Visits    int64  `json:"visits"`
	ServedVia string `json:"served_via"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type handler struct {
	svc    VisitCounter
	logger telemetry.Logger
}

func newHandler(svc VisitCounter, logger telemetry.Logger, metrics http.Handler) http.Handler {
	h := &handler{svc: svc, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /visit/{page_id}", h.visit)
	mux.HandleFunc("GET /visits/{page_id}", h.visits)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return mux
}

func (h *handler) visit(w http.ResponseWriter, r *http.Request) {
	pageID := r.PathValue("page_id")
	if err := h.svc.IncrementVisit(r.Context(), pageID); err != nil {
		h.fail(w, r, "handler.visit", err)
		return
	}
	h.write(w, r, http.StatusOK, visitResponse{
		Status:  "success",
		Message: fmt.Sprintf("Visit recorded for page %s", pageID),
	})
}

func (h *handler) visits(w http.ResponseWriter, r *http.Request) {
	v, src, err := h.svc.GetVisitCount(r.Context(), r.PathValue("page_id"))
	if err != nil {
		h.fail(w, r, "handler.visits", err)
		return
	}
	h.write(w, r, http.StatusOK, visitsResponse{Visits: v, ServedVia: string(src)})
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, where string, err error) {
	h.logger.ErrorContext(r.Context(), "["+where+"] request failed.", "path", r.URL.Path, "err", err.Error())
	h.write(w, r, http.StatusInternalServerError, errorResponse{Detail: err.Error()})
}

func (h *handler) write(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WarnContext(r.Context(), "[handler.write] encode response failed.", "err", err.Error())
	}
}
