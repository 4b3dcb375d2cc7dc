// Package service реализует бизнес-логику сервиса учёта посещаемости и штрафов.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mkarpenko/attendance-system/internal/cache"
	"github.com/mkarpenko/attendance-system/internal/dateutil"
	"github.com/mkarpenko/attendance-system/internal/model"
	"github.com/mkarpenko/attendance-system/internal/notify"
	"github.com/mkarpenko/attendance-system/internal/report"
	"github.com/mkarpenko/attendance-system/internal/repository"
)

// cutoffHour — час локального времени, после которого отметка за день не принимается.
const cutoffHour = 7

// ErrAlreadyCheckedIn возвращается при повторной отметке за один календарный день.
var (
	ErrAlreadyCheckedIn = errors.New("already checked in today")
	// ErrCutoffExceeded возвращается, если время отметки позже дневного дедлайна.
	ErrCutoffExceeded = errors.New("checkin cutoff exceeded")
	// ErrUnauthorized возвращается при попытке оплатить чужой долг.
	ErrUnauthorized = errors.New("payment not allowed for another member")
	// ErrInvalidAmount возвращается, если сумма платежа не кратна шагу платежа.
	ErrInvalidAmount = errors.New("payment amount must be a positive multiple of the fine unit")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateMember(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetMemberByLogin(ctx context.Context, login string) (*model.Member, error)
	ListMembers(ctx context.Context) ([]model.Member, error)
	AddCheckin(ctx context.Context, userID int64, day, proofURL string, checkedAt time.Time) (bool, error)
	GetCheckinDays(ctx context.Context, userID int64, days []string) ([]string, error)
	GetCheckins(ctx context.Context, userID int64) ([]model.Checkin, error)
	GetSettlement(ctx context.Context, userID int64, weekStart string) (*repository.Settlement, error)
	CreateSettlement(ctx context.Context, userID int64, weekStart string, missed bool) (bool, error)
	GetLedgerTotals(ctx context.Context, userID int64) (int, int64, error)
	CreatePayment(ctx context.Context, userID int64, amount int64) error
}

// Service содержит бизнес-логику сервиса посещаемости.
type Service struct {
	repo          Repository
	relay         *notify.Client
	reportCache   cache.ReportCache
	loc           *time.Location
	cutoffEnabled bool
	logger        *zap.Logger

	now func() time.Time

	lastDailyKey  string
	lastWeeklyKey string
}

// NewService создаёт новый сервис с указанным репозиторием и клиентом чат-релея.
func NewService(repo Repository, relay *notify.Client, reportCache cache.ReportCache, loc *time.Location, cutoffEnabled bool, logger *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:          repo,
		relay:         relay,
		reportCache:   reportCache,
		loc:           loc,
		cutoffEnabled: cutoffEnabled,
		logger:        logger,
		now:           time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterMember регистрирует нового участника.
func (s *Service) RegisterMember(ctx context.Context, login, password string) (int64, error) {
	hashed := hashPassword(login, password)
	id, err := s.repo.CreateMember(ctx, login, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrMemberExists) {
			return 0, repository.ErrMemberExists
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateMember проверяет логин и пароль участника и возвращает его идентификатор.
func (s *Service) AuthenticateMember(ctx context.Context, login, password string) (int64, error) {
	m, err := s.repo.GetMemberByLogin(ctx, login)
	if err != nil {
		return 0, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(m.PasswordHash) {
		return 0, errors.New("invalid credentials")
	}

	return m.ID, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// RecordCheckin регистрирует отметку участника за текущий день.
// Возвращает отображаемые дату и время для подтверждающего сообщения.
func (s *Service) RecordCheckin(ctx context.Context, userID int64, now time.Time, proofURL string) (string, string, error) {
	local := now.In(s.loc)

	if s.cutoffEnabled && local.Hour() >= cutoffHour {
		return "", "", ErrCutoffExceeded
	}

	day := dateutil.DayKey(local)

	inserted, err := s.repo.AddCheckin(ctx, userID, day, proofURL, local)
	if err != nil {
		return "", "", err
	}
	if !inserted {
		return "", "", ErrAlreadyCheckedIn
	}

	date, err := dateutil.DisplayDate(day, s.loc)
	if err != nil {
		return "", "", err
	}
	timeOfDay := dateutil.TimeOfDay(local)

	if s.relay != nil {
		s.send(ctx, report.CheckinConfirmation(date, timeOfDay))
	}

	return date, timeOfDay, nil
}

// GetProgress оценивает неделю weekKey для участника: число отметок и вердикт.
// Пустой weekKey означает текущую неделю. Для ещё не закончившейся недели
// Elapsed равен false.
func (s *Service) GetProgress(ctx context.Context, userID int64, weekKey string) (*model.WeekProgress, error) {
	if weekKey == "" {
		weekKey = dateutil.WeekKeyOf(s.now().In(s.loc))
	}

	days, err := dateutil.WeekDays(weekKey, s.loc)
	if err != nil {
		return nil, err
	}

	present, err := s.repo.GetCheckinDays(ctx, userID, days)
	if err != nil {
		return nil, err
	}

	count := len(present)
	verdict := model.VerdictFail
	if count >= model.WeekThreshold {
		verdict = model.VerdictPass
	}

	return &model.WeekProgress{
		WeekKey: weekKey,
		Count:   count,
		Verdict: verdict,
		Elapsed: dateutil.WeekElapsed(weekKey, s.now().In(s.loc)),
	}, nil
}

// SettleWeek закрывает неделю weekKey для участника не более одного раза.
// До полного окончания недели и при повторных вызовах состояние не меняется.
func (s *Service) SettleWeek(ctx context.Context, userID int64, weekKey string, now time.Time) (*model.SettleResult, error) {
	local := now.In(s.loc)

	existing, err := s.repo.GetSettlement(ctx, userID, weekKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		verdict := model.VerdictPass
		if existing.Missed {
			verdict = model.VerdictFail
		}
		return &model.SettleResult{Verdict: verdict, Settled: false}, nil
	}

	progress, err := s.GetProgress(ctx, userID, weekKey)
	if err != nil {
		return nil, err
	}

	if !dateutil.WeekElapsed(weekKey, local) {
		return &model.SettleResult{Verdict: progress.Verdict, Settled: false}, nil
	}

	inserted, err := s.repo.CreateSettlement(ctx, userID, weekKey, progress.Verdict == model.VerdictFail)
	if err != nil {
		return nil, err
	}

	return &model.SettleResult{Verdict: progress.Verdict, Settled: inserted}, nil
}

// ApplyPayment применяет платёж участника к его долгу и возвращает обновлённую сводку.
// Платить можно только за себя, суммой, кратной шагу платежа.
func (s *Service) ApplyPayment(ctx context.Context, userID, amount, requesterID int64) (*model.Ledger, error) {
	if requesterID != userID {
		return nil, ErrUnauthorized
	}
	if amount <= 0 || amount%model.FineUnit != 0 {
		return nil, ErrInvalidAmount
	}

	if err := s.repo.CreatePayment(ctx, userID, amount); err != nil {
		return nil, err
	}

	return s.GetLedger(ctx, userID)
}

// GetLedger возвращает сводку по штрафам участника.
// Для участника без записей возвращается нулевая сводка.
func (s *Service) GetLedger(ctx context.Context, userID int64) (*model.Ledger, error) {
	missedWeeks, paidTotal, err := s.repo.GetLedgerTotals(ctx, userID)
	if err != nil {
		return nil, err
	}

	fineTotal := int64(missedWeeks) * model.FineUnit
	outstanding := fineTotal - paidTotal
	if outstanding < 0 {
		outstanding = 0
	}

	return &model.Ledger{
		MissedWeeks: missedWeeks,
		FineTotal:   fineTotal,
		PaidTotal:   paidTotal,
		Outstanding: outstanding,
	}, nil
}

// GetHistory возвращает историю посещаемости участника по дням,
// от первой отметки до сегодняшнего дня включительно.
func (s *Service) GetHistory(ctx context.Context, userID int64) ([]model.HistoryEntry, error) {
	checkins, err := s.repo.GetCheckins(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(checkins) == 0 {
		return []model.HistoryEntry{}, nil
	}

	byDay := make(map[string]model.Checkin, len(checkins))
	for _, c := range checkins {
		byDay[c.Day] = c
	}

	today := dateutil.DayKey(s.now().In(s.loc))
	days, err := dateutil.DaysBetween(checkins[0].Day, today, s.loc)
	if err != nil {
		return nil, err
	}

	res := make([]model.HistoryEntry, 0, len(days))
	for _, day := range days {
		entry := model.HistoryEntry{Date: day}
		if c, ok := byDay[day]; ok {
			entry.Present = true
			entry.Time = dateutil.TimeOfDay(c.CheckedAt.In(s.loc))
		}
		res = append(res, entry)
	}

	return res, nil
}

// SettleElapsedWeek закрывает последнюю полностью прошедшую неделю для всех участников.
// Безопасен при повторных вызовах: уже закрытые недели пропускаются.
func (s *Service) SettleElapsedWeek(ctx context.Context, now time.Time) error {
	local := now.In(s.loc)
	weekKey := dateutil.PrevWeekKey(local)

	members, err := s.repo.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}

	for _, m := range members {
		res, err := s.SettleWeek(ctx, m.ID, weekKey, local)
		if err != nil {
			s.logger.Error("settle week error",
				zap.Error(err), zap.Int64("userID", m.ID), zap.String("week", weekKey))
			continue
		}
		if res.Settled && res.Verdict == model.VerdictFail {
			s.logger.Info("fine accrued",
				zap.Int64("userID", m.ID), zap.String("week", weekKey), zap.Int64("amount", model.FineUnit))
		}
	}

	return nil
}

// GetWeeklyReport строит отчёт по текущей неделе для всех участников.
// Готовый отчёт берётся из кэша, если он настроен.
func (s *Service) GetWeeklyReport(ctx context.Context, now time.Time) (*report.WeeklyReport, error) {
	local := now.In(s.loc)
	weekKey := dateutil.WeekKeyOf(local)

	if s.reportCache != nil {
		if cached, err := s.reportCache.Get(ctx, weekKey); err == nil && cached != nil {
			return cached, nil
		}
	}

	weekRange, err := dateutil.WeekRange(weekKey, s.loc)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	rows := make([]report.MemberWeek, 0, len(members))
	for _, m := range members {
		progress, err := s.GetProgress(ctx, m.ID, weekKey)
		if err != nil {
			return nil, err
		}
		rows = append(rows, report.MemberWeek{
			Login:   m.Login,
			Count:   progress.Count,
			Verdict: progress.Verdict,
		})
	}

	rep := report.BuildWeeklyReport(weekKey, weekRange, rows)

	if s.reportCache != nil {
		if err := s.reportCache.Set(ctx, rep); err != nil {
			s.logger.Warn("cache weekly report error", zap.Error(err))
		}
	}

	return rep, nil
}
