package service

import (
	"math/rand"
	"testing"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/valueobject"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func openIssue(number int, labels ...string) entity.Issue {
	return entity.Issue{
		Number:    number,
		Title:     "issue",
		State:     valueobject.IssueOpen,
		Labels:    labels,
		CreatedAt: testNow.Add(-30 * 24 * time.Hour),
		UpdatedAt: testNow.Add(-time.Hour),
	}
}

func closedIssue(number int, closedAgo time.Duration) entity.Issue {
	closedAt := testNow.Add(-closedAgo)
	return entity.Issue{
		Number:    number,
		Title:     "done",
		State:     valueobject.IssueClosed,
		CreatedAt: testNow.Add(-30 * 24 * time.Hour),
		UpdatedAt: closedAt,
		ClosedAt:  &closedAt,
	}
}

func TestCalculateCompletion(t *testing.T) {
	issues := []entity.Issue{
		closedIssue(1, time.Hour),
		closedIssue(2, 48*time.Hour),
		openIssue(3, "In Progress"),
		openIssue(4, "WIP"),
		openIssue(5, "blocked"),
		openIssue(6),
	}

	m := CalculateCompletion(issues)

	if m.Total != 6 || m.Completed != 2 || m.InProgress != 2 || m.Blocked != 1 || m.Ready != 1 {
		t.Errorf("unexpected counts %+v", m)
	}
	if m.Percentage() != 33.33 {
		t.Errorf("Percentage = %v, want 33.33", m.Percentage())
	}
}

func TestCalculateCompletionReadyMayGoNegative(t *testing.T) {
	// задача в работе и одновременно заблокирована учитывается в обоих счетчиках
	issues := []entity.Issue{openIssue(1, "wip", "on-hold")}

	m := CalculateCompletion(issues)

	if m.InProgress != 1 || m.Blocked != 1 {
		t.Fatalf("overlapping labels must count twice, got %+v", m)
	}
	if m.Ready != -1 {
		t.Errorf("Ready = %d, want -1", m.Ready)
	}
}

func TestCalculateCompletionBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		var issues []entity.Issue
		n := rng.Intn(40)
		for i := 0; i < n; i++ {
			if rng.Intn(2) == 0 {
				issues = append(issues, closedIssue(i+1, time.Duration(rng.Intn(500))*time.Hour))
			} else {
				issues = append(issues, openIssue(i+1))
			}
		}

		m := CalculateCompletion(issues)
		if m.Completed > m.Total {
			t.Fatalf("completed %d > total %d", m.Completed, m.Total)
		}
		if p := m.Percentage(); p < 0 || p > 100 {
			t.Fatalf("percentage %v out of range", p)
		}
	}
}

func TestCalculateVelocityBuckets(t *testing.T) {
	issues := []entity.Issue{
		closedIssue(1, 2*time.Hour),              // сегодня
		closedIssue(2, 26*time.Hour),             // вчера
		closedIssue(3, 27*time.Hour),             // вчера
		closedIssue(4, 6*24*time.Hour+time.Hour), // шесть дней назад
		closedIssue(5, 10*24*time.Hour),          // за пределами окна
		openIssue(6),
	}
	noClose := closedIssue(7, time.Hour)
	noClose.ClosedAt = nil
	issues = append(issues, noClose)

	w := CalculateVelocity(issues, 7, testNow)

	want := []int{1, 0, 0, 0, 0, 2, 1}
	got := w.DailyCounts()
	if len(got) != 7 {
		t.Fatalf("window length = %d, want 7", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("counts = %v, want %v", got, want)
		}
	}
	if w.Total() != 4 {
		t.Errorf("Total = %d, want 4", w.Total())
	}
	if w.IssuesPerDay() != 0.57 {
		t.Errorf("IssuesPerDay = %v, want 0.57", w.IssuesPerDay())
	}
}

func TestCalculateVelocityWindowLengthAlwaysN(t *testing.T) {
	for _, days := range []int{1, 3, 7, 14} {
		w := CalculateVelocity(nil, days, testNow)
		if w.Days() != days {
			t.Errorf("days=%d: window length %d", days, w.Days())
		}
	}
}

func TestForecastUnknownWithoutVelocity(t *testing.T) {
	issues := []entity.Issue{openIssue(1), openIssue(2), closedIssue(3, 30*24*time.Hour)}
	completion := CalculateCompletion(issues)
	velocity := CalculateVelocity(issues, 7, testNow)

	f := ForecastCompletion(completion, velocity, testNow)

	if f.IsKnown() {
		t.Fatal("forecast must be unknown when nothing closed in window")
	}
	if f.Confidence() != 0 || f.ConfidenceLabel() != valueobject.ConfidenceUnknown {
		t.Errorf("confidence = %v label = %s", f.Confidence(), f.ConfidenceLabel())
	}
}

func TestForecastComputed(t *testing.T) {
	// 7 закрытых за неделю равномерно => 1 задача в день, 3 открытых => 3 дня
	var issues []entity.Issue
	for i := 0; i < 7; i++ {
		issues = append(issues, closedIssue(i+1, time.Duration(i)*24*time.Hour+time.Hour))
	}
	issues = append(issues, openIssue(100), openIssue(101), openIssue(102))

	completion := CalculateCompletion(issues)
	velocity := CalculateVelocity(issues, 7, testNow)
	f := ForecastCompletion(completion, velocity, testNow)

	days, ok := f.DaysRemaining()
	if !ok || days != 3 {
		t.Fatalf("DaysRemaining = %v, %v; want 3", days, ok)
	}
	date, _ := f.EstimatedDate()
	if !date.Equal(testNow.Add(72 * time.Hour)) {
		t.Errorf("EstimatedDate = %v", date)
	}
	// первая половина 3, вторая 4: 20 > 18 => increasing => 0.85 High
	if f.Confidence() != 0.85 || f.ConfidenceLabel() != valueobject.ConfidenceHigh {
		t.Errorf("confidence = %v label = %s", f.Confidence(), f.ConfidenceLabel())
	}
}

func TestDetectInterventions(t *testing.T) {
	thresholds := DefaultInterventionThresholds()

	blocked := openIssue(1, "blocked")
	blocked.UpdatedAt = testNow.Add(-48 * time.Hour)

	recentlyBlocked := openIssue(2, "Waiting")
	recentlyBlocked.UpdatedAt = testNow.Add(-2 * time.Hour)

	chatty := openIssue(3)
	chatty.Comments = 7

	borderline := openIssue(4)
	borderline.Comments = 6

	urgentAndChatty := openIssue(5, "P0")
	urgentAndChatty.Comments = 10

	closedCritical := closedIssue(6, time.Hour)
	closedCritical.Labels = []string{"critical"}

	flags := DetectInterventions(
		[]entity.Issue{blocked, recentlyBlocked, chatty, borderline, urgentAndChatty, closedCritical},
		thresholds, testNow,
	)

	if len(flags) != 3 {
		t.Fatalf("got %d flags, want 3: %+v", len(flags), flags)
	}

	tests := []struct {
		number   int
		priority valueobject.FlagPriority
		reason   string
		status   string
	}{
		{1, valueobject.PriorityHigh, "Blocked for 48 hours", entity.IssueStatusBlocked},
		{3, valueobject.PriorityMedium, "High comment count (7)", entity.IssueStatusOpen},
		{5, valueobject.PriorityCritical, "High comment count (10); High priority issue", entity.IssueStatusOpen},
	}

	for i, tt := range tests {
		f := flags[i]
		if f.Issue.Number != tt.number {
			t.Errorf("flag %d: issue #%d, want #%d", i, f.Issue.Number, tt.number)
			continue
		}
		if f.Priority != tt.priority {
			t.Errorf("#%d priority = %s, want %s", tt.number, f.Priority, tt.priority)
		}
		if f.Reason() != tt.reason {
			t.Errorf("#%d reason = %q, want %q", tt.number, f.Reason(), tt.reason)
		}
		if f.Status() != tt.status {
			t.Errorf("#%d status = %q, want %q", tt.number, f.Status(), tt.status)
		}
	}
}

func TestDetectInterventionsNoMatchIsNotFlagged(t *testing.T) {
	flags := DetectInterventions([]entity.Issue{openIssue(1, "enhancement")}, DefaultInterventionThresholds(), testNow)
	if len(flags) != 0 {
		t.Errorf("got %d flags, want none", len(flags))
	}
}

func TestEngineAnalyzeEmpty(t *testing.T) {
	engine := NewProjectForecastEngine(7, DefaultInterventionThresholds())

	report := engine.Analyze(nil, testNow)

	if report.Completion.Total != 0 || report.Completion.Percentage() != 0 {
		t.Errorf("completion = %+v", report.Completion)
	}
	if report.Velocity.Days() != 7 || report.Velocity.Total() != 0 {
		t.Errorf("velocity = %v", report.Velocity.DailyCounts())
	}
	if report.Forecast.IsKnown() {
		t.Error("forecast must be unknown for empty project")
	}
	if report.Flags == nil || len(report.Flags) != 0 {
		t.Errorf("flags must be an empty non-nil slice, got %v", report.Flags)
	}
}

func TestEngineSkipsMalformedRecords(t *testing.T) {
	engine := NewProjectForecastEngine(7, DefaultInterventionThresholds())
	malformed := openIssue(0)
	noState := openIssue(9)
	noState.State = ""

	report := engine.Analyze([]entity.Issue{malformed, noState, openIssue(1)}, testNow)

	if report.Completion.Total != 1 {
		t.Errorf("Total = %d, want 1 valid issue", report.Completion.Total)
	}
	if len(report.Issues) != 1 || report.Issues[0].Number != 1 {
		t.Errorf("Issues = %+v, want only the valid issue", report.Issues)
	}
}
