package report

import (
	"strings"
	"testing"

	"github.com/mkarpenko/attendance-system/internal/model"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{0, "0 VND"},
		{100, "100 VND"},
		{100000, "100,000 VND"},
		{1234567, "1,234,567 VND"},
		{-100000, "-100,000 VND"},
	}

	for _, tt := range tests {
		if got := FormatAmount(tt.amount); got != tt.want {
			t.Errorf("FormatAmount(%d) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestBuildWeeklyReport_TotalFine(t *testing.T) {
	rep := BuildWeeklyReport("2024-06-03", "03/06 – 09/06", []MemberWeek{
		{Login: "an", Count: 5, Verdict: model.VerdictPass},
		{Login: "binh", Count: 2, Verdict: model.VerdictFail},
		{Login: "chi", Count: 0, Verdict: model.VerdictFail},
	})

	if rep.TotalFine != 2*model.FineUnit {
		t.Errorf("total fine = %d, want %d", rep.TotalFine, 2*model.FineUnit)
	}

	msg := rep.Message()
	if msg.Kind != KindWeeklyReport {
		t.Errorf("kind = %q, want %q", msg.Kind, KindWeeklyReport)
	}
	if len(msg.Lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(msg.Lines))
	}
	if !strings.Contains(msg.Lines[1], "fine 100,000 VND") {
		t.Errorf("failing member line = %q", msg.Lines[1])
	}
	if !strings.Contains(msg.Lines[3], "200,000 VND") {
		t.Errorf("total line = %q", msg.Lines[3])
	}
}

func TestBuildLedgerView(t *testing.T) {
	withDebt := BuildLedgerView(model.Ledger{MissedWeeks: 1, FineTotal: 100000, Outstanding: 100000})
	if !withDebt.Payable {
		t.Error("ledger with debt must be payable")
	}

	paid := BuildLedgerView(model.Ledger{MissedWeeks: 1, FineTotal: 100000, PaidTotal: 100000})
	if paid.Payable {
		t.Error("paid ledger must not be payable")
	}

	msg := paid.Message()
	found := false
	for _, line := range msg.Lines {
		if strings.Contains(line, "No debt") {
			found = true
		}
	}
	if !found {
		t.Errorf("paid ledger message must announce no debt, got %v", msg.Lines)
	}

	clean := BuildLedgerView(model.Ledger{})
	if clean.Payable {
		t.Error("empty ledger must not be payable")
	}
	if len(clean.Message().Lines) != 1 {
		t.Errorf("empty ledger message = %v", clean.Message().Lines)
	}
}

func TestDailySummary(t *testing.T) {
	allPresent := DailySummary("10/06/2024", nil)
	if len(allPresent.Lines) != 1 || !strings.Contains(allPresent.Lines[0], "Everyone") {
		t.Errorf("all-present summary = %v", allPresent.Lines)
	}

	someAbsent := DailySummary("10/06/2024", []string{"an", "binh"})
	if len(someAbsent.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(someAbsent.Lines))
	}
	if someAbsent.Lines[1] != "an" || someAbsent.Lines[2] != "binh" {
		t.Errorf("absent lines = %v", someAbsent.Lines)
	}
}
