package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mkarpenko/attendance-system/internal/dateutil"
	"github.com/mkarpenko/attendance-system/internal/report"
)

// Моменты срабатывания планировщика в локальном времени группы.
const (
	tickInterval     = 30 * time.Second
	weeklyReportHour = 20
)

// StartScheduleClock запускает фоновый цикл часов расписания: грубый опрос
// текущего времени с закрытием дня после дедлайна и недельным отчётом в
// воскресенье вечером. Повторные срабатывания в одном окне безопасны.
func (s *Service) StartScheduleClock(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runTick(ctx, s.now())
			}
		}
	}()
}

// runTick выполняет одну итерацию часов расписания для момента now.
// Каждая итерация — законченная единица работы без отменяемых остатков.
func (s *Service) runTick(ctx context.Context, now time.Time) {
	local := now.In(s.loc)

	day := dateutil.DayKey(local)
	if local.Hour() >= cutoffHour && s.lastDailyKey != day {
		s.lastDailyKey = day

		if err := s.SettleElapsedWeek(ctx, local); err != nil {
			s.logger.Error("settle elapsed week error", zap.Error(err))
		}
		s.sendDailySummary(ctx, local)
	}

	week := dateutil.WeekKeyOf(local)
	if local.Weekday() == time.Sunday && local.Hour() >= weeklyReportHour && s.lastWeeklyKey != week {
		s.lastWeeklyKey = week
		s.sendWeeklyReport(ctx, local)
	}
}

func (s *Service) sendDailySummary(ctx context.Context, local time.Time) {
	if s.relay == nil {
		return
	}

	day := dateutil.DayKey(local)

	members, err := s.repo.ListMembers(ctx)
	if err != nil {
		s.logger.Error("list members error", zap.Error(err))
		return
	}

	var absent []string
	for _, m := range members {
		present, err := s.repo.GetCheckinDays(ctx, m.ID, []string{day})
		if err != nil {
			s.logger.Error("get checkin days error", zap.Error(err), zap.Int64("userID", m.ID))
			continue
		}
		if len(present) == 0 {
			absent = append(absent, m.Login)
		}
	}

	date, err := dateutil.DisplayDate(day, s.loc)
	if err != nil {
		s.logger.Error("format date error", zap.Error(err))
		return
	}

	s.send(ctx, report.DailySummary(date, absent))
}

func (s *Service) sendWeeklyReport(ctx context.Context, local time.Time) {
	if s.relay == nil {
		return
	}

	rep, err := s.GetWeeklyReport(ctx, local)
	if err != nil {
		s.logger.Error("build weekly report error", zap.Error(err))
		return
	}

	s.send(ctx, rep.Message())
}

func (s *Service) send(ctx context.Context, msg report.Message) {
	retryAfter, err := s.relay.Send(ctx, msg)
	if err != nil {
		s.logger.Error("send message error", zap.Error(err), zap.String("kind", msg.Kind))
		if retryAfter > 0 {
			timer := time.NewTimer(retryAfter)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
				if _, err := s.relay.Send(ctx, msg); err != nil {
					s.logger.Error("resend message error", zap.Error(err), zap.String("kind", msg.Kind))
				}
			}
		}
	}
}
