// Package report строит исходящие сообщения для чат-релея: подтверждения
// отметок, сводки по штрафам, ежедневные и еженедельные отчёты.
package report

import (
	"fmt"
	"strconv"

	"github.com/mkarpenko/attendance-system/internal/model"
)

// Виды исходящих сообщений.
const (
	KindCheckin      = "checkin"
	KindLedger       = "ledger"
	KindDailySummary = "daily_summary"
	KindWeeklyReport = "weekly_report"
)

// Message — плоская структура исходящего сообщения для чат-релея.
// Рендеринг в конкретный формат чата выполняет внешний слой интеграции.
type Message struct {
	Kind  string   `json:"kind"`
	Title string   `json:"title"`
	Lines []string `json:"lines,omitempty"`
}

// MemberWeek описывает итог недели одного участника в отчёте.
type MemberWeek struct {
	Login   string        `json:"login"`
	Count   int           `json:"count"`
	Verdict model.Verdict `json:"verdict"`
}

// WeeklyReport содержит недельный отчёт по всем участникам.
type WeeklyReport struct {
	WeekKey   string       `json:"week_key"`
	WeekRange string       `json:"week_range"`
	Rows      []MemberWeek `json:"rows"`
	TotalFine int64        `json:"total_fine"`
}

// BuildWeeklyReport собирает недельный отчёт и подсчитывает суммарный штраф
// по участникам, не добравшим порог.
func BuildWeeklyReport(weekKey, weekRange string, rows []MemberWeek) *WeeklyReport {
	var totalFine int64
	for _, r := range rows {
		if r.Verdict == model.VerdictFail {
			totalFine += model.FineUnit
		}
	}
	return &WeeklyReport{
		WeekKey:   weekKey,
		WeekRange: weekRange,
		Rows:      rows,
		TotalFine: totalFine,
	}
}

// Message превращает недельный отчёт в исходящее сообщение.
func (r *WeeklyReport) Message() Message {
	lines := make([]string, 0, len(r.Rows)+1)
	for _, row := range r.Rows {
		if row.Verdict == model.VerdictPass {
			lines = append(lines, fmt.Sprintf("%s: ✅ %d days", row.Login, row.Count))
		} else {
			lines = append(lines, fmt.Sprintf("%s: ❌ %d days → 💸 fine %s", row.Login, row.Count, FormatAmount(model.FineUnit)))
		}
	}
	lines = append(lines, "💰 TOTAL FINES: "+FormatAmount(r.TotalFine))

	return Message{
		Kind:  KindWeeklyReport,
		Title: fmt.Sprintf("📊 WEEKLY ATTENDANCE REPORT (%s)", r.WeekRange),
		Lines: lines,
	}
}

// CheckinConfirmation строит подтверждение принятой отметки.
func CheckinConfirmation(date, timeOfDay string) Message {
	return Message{
		Kind:  KindCheckin,
		Title: fmt.Sprintf("✅ Checked in %s at %s", date, timeOfDay),
		Lines: []string{"📸 Proof recorded. 💪"},
	}
}

// LedgerView строит сводку по штрафам участника.
// Payable в ответе API сообщает интеграционному слою, показывать ли кнопку оплаты.
type LedgerView struct {
	Ledger  model.Ledger `json:"ledger"`
	Payable bool         `json:"payable"`
}

// BuildLedgerView собирает сводку и директиву отображения кнопки оплаты.
func BuildLedgerView(l model.Ledger) LedgerView {
	return LedgerView{
		Ledger:  l,
		Payable: l.Outstanding > 0,
	}
}

// Message превращает сводку по штрафам в исходящее сообщение.
func (v LedgerView) Message() Message {
	if v.Ledger.FineTotal == 0 {
		return Message{
			Kind:  KindLedger,
			Title: "📄 FINES",
			Lines: []string{"No fines so far. Keep it up! 💪"},
		}
	}

	lines := []string{
		fmt.Sprintf("- Missed weeks: %d", v.Ledger.MissedWeeks),
		fmt.Sprintf("- Total fine: %s", FormatAmount(v.Ledger.FineTotal)),
		fmt.Sprintf("- Paid: %s", FormatAmount(v.Ledger.PaidTotal)),
	}
	if v.Ledger.Outstanding > 0 {
		lines = append(lines, fmt.Sprintf("- Outstanding: %s", FormatAmount(v.Ledger.Outstanding)))
	} else {
		lines = append(lines, "✅ No debt! 🧾")
	}

	return Message{
		Kind:  KindLedger,
		Title: "📄 FINES",
		Lines: lines,
	}
}

// DailySummary строит итог дня: список не отметившихся участников.
func DailySummary(dateDisplay string, absent []string) Message {
	if len(absent) == 0 {
		return Message{
			Kind:  KindDailySummary,
			Title: fmt.Sprintf("📢 DAY CLOSED – %s", dateDisplay),
			Lines: []string{"✅ Everyone checked in on time! 🔥"},
		}
	}

	lines := make([]string, 0, len(absent)+1)
	lines = append(lines, "❌ Missed today's check-in:")
	lines = append(lines, absent...)

	return Message{
		Kind:  KindDailySummary,
		Title: fmt.Sprintf("📢 DAY CLOSED – %s", dateDisplay),
		Lines: lines,
	}
}

// FormatAmount форматирует денежную сумму с разделителями тысяч: 100,000 VND.
func FormatAmount(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var out []byte
	for i, ch := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, ch)
	}

	s := string(out) + " VND"
	if neg {
		s = "-" + s
	}
	return s
}
