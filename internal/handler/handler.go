// Package handler содержит HTTP-обработчики API сервиса посещаемости.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mkarpenko/attendance-system/internal/middleware"
	"github.com/mkarpenko/attendance-system/internal/model"
	"github.com/mkarpenko/attendance-system/internal/report"
	"github.com/mkarpenko/attendance-system/internal/repository"
	"github.com/mkarpenko/attendance-system/internal/service"
	"github.com/mkarpenko/attendance-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterMember(ctx context.Context, login, password string) (int64, error)
	AuthenticateMember(ctx context.Context, login, password string) (int64, error)
	RecordCheckin(ctx context.Context, userID int64, now time.Time, proofURL string) (string, string, error)
	GetProgress(ctx context.Context, userID int64, weekKey string) (*model.WeekProgress, error)
	ApplyPayment(ctx context.Context, userID, amount, requesterID int64) (*model.Ledger, error)
	GetLedger(ctx context.Context, userID int64) (*model.Ledger, error)
	GetHistory(ctx context.Context, userID int64) ([]model.HistoryEntry, error)
	SettleElapsedWeek(ctx context.Context, now time.Time) error
	GetWeeklyReport(ctx context.Context, now time.Time) (*report.WeeklyReport, error)
}

// Handler реализует HTTP-обработчики API сервиса посещаемости.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового участника.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	memberID, err := h.service.RegisterMember(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrMemberExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register member error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, memberID)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию участника и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	memberID, err := h.service.AuthenticateMember(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) || err.Error() == "invalid credentials" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login member error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, memberID)
	w.WriteHeader(http.StatusOK)
}

type checkinRequest struct {
	ProofURL    string `json:"proof_url"`
	ContentType string `json:"content_type"`
}

type checkinResponse struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// Checkin принимает отметку посещаемости с фотоподтверждением от текущего участника.
func (h *Handler) Checkin(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req checkinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsImageProof(req.ProofURL, req.ContentType) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	date, timeOfDay, err := h.service.RecordCheckin(r.Context(), memberID, time.Now(), req.ProofURL)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyCheckedIn):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, service.ErrCutoffExceeded):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		default:
			h.logger.Error("checkin error", zap.Error(err), zap.Int64("memberID", memberID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(checkinResponse{Date: date, Time: timeOfDay}); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type progressResponse struct {
	WeekKey string `json:"week_key"`
	Count   int    `json:"count"`
	Verdict string `json:"verdict"`
	Elapsed bool   `json:"elapsed"`
}

// GetProgress возвращает прогресс текущего участника за неделю.
// Неделя задаётся query-параметром week (ключ понедельника); по умолчанию текущая.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	progress, err := h.service.GetProgress(r.Context(), memberID, r.URL.Query().Get("week"))
	if err != nil {
		h.logger.Error("get progress error", zap.Error(err), zap.Int64("memberID", memberID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := progressResponse{
		WeekKey: progress.WeekKey,
		Count:   progress.Count,
		Verdict: string(progress.Verdict),
		Elapsed: progress.Elapsed,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// GetLedger возвращает сводку по штрафам текущего участника.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	ledger, err := h.service.GetLedger(r.Context(), memberID)
	if err != nil {
		h.logger.Error("get ledger error", zap.Error(err), zap.Int64("memberID", memberID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report.BuildLedgerView(*ledger)); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type payRequest struct {
	Amount int64 `json:"amount"`
}

// Pay применяет платёж текущего участника к его долгу.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	ledger, err := h.service.ApplyPayment(r.Context(), memberID, req.Amount, memberID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, service.ErrUnauthorized):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		case errors.Is(err, repository.ErrNoOutstandingDebt):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, repository.ErrPaymentExceedsDebt):
			http.Error(w, http.StatusText(http.StatusPaymentRequired), http.StatusPaymentRequired)
		default:
			h.logger.Error("pay error", zap.Error(err), zap.Int64("memberID", memberID), zap.Int64("amount", req.Amount))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report.BuildLedgerView(*ledger)); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// GetHistory возвращает историю посещаемости текущего участника по дням.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.GetMemberIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	history, err := h.service.GetHistory(r.Context(), memberID)
	if err != nil {
		h.logger.Error("get history error", zap.Error(err), zap.Int64("memberID", memberID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(history) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(history); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// GetReport возвращает недельный отчёт по всем участникам.
// Перед построением отчёта закрывается последняя полностью прошедшая неделя.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now()

	if err := h.service.SettleElapsedWeek(r.Context(), now); err != nil {
		h.logger.Error("settle elapsed week error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rep, err := h.service.GetWeeklyReport(r.Context(), now)
	if err != nil {
		h.logger.Error("get weekly report error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// Ping отвечает на проверку живости сервиса.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
