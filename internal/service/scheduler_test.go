package service

import (
	"context"
	"testing"
	"time"
)

func TestRunTick_BeforeCutoffDoesNothing(t *testing.T) {
	repo := newMemRepo()
	now := time.Date(2024, 6, 10, 6, 59, 0, 0, time.UTC)
	svc := newTestService(repo, true, now)
	id := mustAddMember(t, repo, "an")

	svc.runTick(context.Background(), now)

	if len(repo.settlements[id]) != 0 {
		t.Error("tick before cutoff must not settle anything")
	}
	if svc.lastDailyKey != "" {
		t.Error("daily guard must not be set before cutoff")
	}
}

func TestRunTick_SettlesPreviousWeekAfterCutoff(t *testing.T) {
	repo := newMemRepo()
	now := time.Date(2024, 6, 10, 7, 1, 0, 0, time.UTC)
	svc := newTestService(repo, true, now)
	id := mustAddMember(t, repo, "an")

	svc.runTick(context.Background(), now)

	if _, ok := repo.settlements[id]["2024-06-03"]; !ok {
		t.Fatal("previous week must be settled on the first tick after cutoff")
	}
	if svc.lastDailyKey != "2024-06-10" {
		t.Errorf("daily guard = %q, want 2024-06-10", svc.lastDailyKey)
	}
}

func TestRunTick_RepeatedFiringsAreSafe(t *testing.T) {
	repo := newMemRepo()
	now := time.Date(2024, 6, 10, 7, 1, 0, 0, time.UTC)
	svc := newTestService(repo, true, now)
	id := mustAddMember(t, repo, "an")

	for i := 0; i < 5; i++ {
		svc.runTick(context.Background(), now.Add(time.Duration(i)*30*time.Second))
	}

	ledger, err := svc.GetLedger(context.Background(), id)
	if err != nil {
		t.Fatalf("get ledger: %v", err)
	}
	// неделя без отметок провалена ровно один раз
	if ledger.MissedWeeks != 1 {
		t.Errorf("missed weeks = %d, want 1", ledger.MissedWeeks)
	}
}

func TestRunTick_WeeklyGuard(t *testing.T) {
	repo := newMemRepo()
	sunday := time.Date(2024, 6, 9, 20, 0, 30, 0, time.UTC)
	svc := newTestService(repo, true, sunday)

	svc.runTick(context.Background(), sunday)

	if svc.lastWeeklyKey != "2024-06-03" {
		t.Errorf("weekly guard = %q, want 2024-06-03", svc.lastWeeklyKey)
	}

	// суббота вечером отчёт не отправляется
	repo2 := newMemRepo()
	saturday := time.Date(2024, 6, 8, 21, 0, 0, 0, time.UTC)
	svc2 := newTestService(repo2, true, saturday)

	svc2.runTick(context.Background(), saturday)

	if svc2.lastWeeklyKey != "" {
		t.Error("weekly guard must not be set outside the sunday window")
	}
}
