package slackbot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"

	"agentwatch/internal/domain"
	"agentwatch/internal/performance"
	"agentwatch/internal/storage/sqlstore"
	"agentwatch/internal/sweep"
)

type post struct {
	channel   string
	user      string
	text      string
	ephemeral bool
}

type fakeSlack struct {
	t        *testing.T
	mu       sync.Mutex
	posts    []post
	users    []slack.User
	getCalls int
}

func messageText(t *testing.T, options []slack.MsgOption) string {
	t.Helper()
	_, values, err := slack.UnsafeApplyMsgOptions("token", "C1", "https://slack.test/api/", options...)
	if err != nil {
		t.Fatalf("apply msg options: %v", err)
	}
	return values.Get("text")
}

func (f *fakeSlack) GetUsers(...slack.GetUsersOption) ([]slack.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	return f.users, nil
}

func (f *fakeSlack) PostEphemeral(channelID, userID string, options ...slack.MsgOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, post{channel: channelID, user: userID, text: messageText(f.t, options), ephemeral: true})
	return "", nil
}

func (f *fakeSlack) PostMessage(channelID string, options ...slack.MsgOption) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, post{channel: channelID, text: messageText(f.t, options)})
	return channelID, "1", nil
}

func (f *fakeSlack) last(t *testing.T) post {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.posts) == 0 {
		t.Fatalf("nothing was posted")
	}
	return f.posts[len(f.posts)-1]
}

type fakeStore struct {
	panchayaths []domain.Panchayath
	agents      []domain.Agent
	onFind      func()
}

func (f fakeStore) ListPanchayaths(context.Context) ([]domain.Panchayath, error) {
	return f.panchayaths, nil
}

func (f fakeStore) FindPanchayath(_ context.Context, ref string) (domain.Panchayath, error) {
	if f.onFind != nil {
		f.onFind()
	}
	for _, p := range f.panchayaths {
		if p.ID == ref || strings.EqualFold(p.Name, ref) {
			return p, nil
		}
	}
	return domain.Panchayath{}, sqlstore.ErrNotFound
}

func (f fakeStore) FindAgentsByMobile(_ context.Context, mobile string) ([]domain.Agent, error) {
	var out []domain.Agent
	for _, a := range f.agents {
		if a.MobileNumber == mobile {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeAnalyzer struct {
	err       error
	gotMonth  domain.YearMonth
	onCompute func()
}

var october = domain.YearMonth{Year: 2026, Month: time.October}

func (f *fakeAnalyzer) Today() domain.Date { return domain.NewDate(2026, time.October, 17) }

func (f *fakeAnalyzer) ComputePerformance(_ context.Context, id string, month domain.YearMonth) (performance.Report, error) {
	f.gotMonth = month
	if f.onCompute != nil {
		f.onCompute()
	}
	if f.err != nil {
		return performance.Report{}, f.err
	}
	results := []domain.PerformanceResult{
		{AgentName: "Asha", AgentType: domain.RoleCoordinator, MobileNumber: "9000000001", IsInactive: true, ConsecutiveLeaveDays: 4, TotalNotes: 1},
	}
	return performance.Report{
		PanchayathID: id,
		Month:        month,
		WindowStart:  month.FirstDay(),
		WindowEnd:    domain.NewDate(2026, time.October, 17),
		Results:      results,
		Stats:        performance.Aggregate(results),
		Groups:       performance.GroupByRole(results),
	}, nil
}

func (f *fakeAnalyzer) ComputeAgentCalendar(_ context.Context, _ domain.Agent, month domain.YearMonth) (domain.Calendar, error) {
	f.gotMonth = month
	notes := []domain.DailyNote{{Subject: "9000000001", Date: domain.NewDate(2026, time.October, 2), Activity: "ward visit"}}
	return performance.BuildCalendar(month, notes, f.Today()), nil
}

type fakeSweeper struct{ calls int }

func (f *fakeSweeper) Run(context.Context) (sweep.SweepResult, error) {
	f.calls++
	return sweep.SweepResult{Month: october}, nil
}

func newTestBot(t *testing.T) (*Bot, *fakeSlack, *fakeAnalyzer, *fakeSweeper) {
	t.Helper()
	api := &fakeSlack{t: t, users: []slack.User{{ID: "U0MANAGER2", Name: "lekha"}}}
	analyzer := &fakeAnalyzer{}
	sweeper := &fakeSweeper{}
	store := fakeStore{
		panchayaths: []domain.Panchayath{{ID: "pan-1", Name: "Mavoor"}, {ID: "pan-2", Name: "Kunnamangalam East"}},
		agents: []domain.Agent{
			{ID: "co-1", Name: "Asha", MobileNumber: "9000000001", Role: domain.RoleCoordinator},
			{ID: "pro-1", Name: "Biju", MobileNumber: "9000000002", Role: domain.RolePRO},
			{ID: "sv-1", Name: "Devi", MobileNumber: "9000000002", Role: domain.RoleSupervisor},
		},
	}
	bot := New(api, store, analyzer, sweeper, []string{"U0MANAGER1", "@lekha"})
	return bot, api, analyzer, sweeper
}

func command(name, text string) slack.SlashCommand {
	return slack.SlashCommand{Command: name, Text: text, UserID: "U0VIEWER1", ChannelID: "C1"}
}

func TestParseTargetAndMonth(t *testing.T) {
	today := domain.NewDate(2026, time.October, 17)
	tests := []struct {
		text      string
		wantRef   string
		wantMonth domain.YearMonth
		wantErr   bool
	}{
		{text: "Mavoor", wantRef: "Mavoor", wantMonth: october},
		{text: "  Kunnamangalam East 2026-09 ", wantRef: "Kunnamangalam East", wantMonth: domain.YearMonth{Year: 2026, Month: time.September}},
		{text: "Mavoor 2026-13", wantErr: true},
		{text: "2026-09", wantErr: true},
		{text: "", wantErr: true},
	}
	for _, tt := range tests {
		ref, month, err := parseTargetAndMonth(tt.text, today)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tt.text)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tt.text, err)
		}
		if ref != tt.wantRef || month != tt.wantMonth {
			t.Fatalf("%q: got (%q, %v), want (%q, %v)", tt.text, ref, month, tt.wantRef, tt.wantMonth)
		}
	}
}

func TestPerformanceCommand(t *testing.T) {
	bot, api, analyzer, _ := newTestBot(t)
	bot.handleSlashCommand(context.Background(), command("/performance", "kunnamangalam east 2026-09"))

	got := api.last(t)
	if !got.ephemeral || got.user != "U0VIEWER1" {
		t.Fatalf("expected an ephemeral reply, got %+v", got)
	}
	if analyzer.gotMonth != (domain.YearMonth{Year: 2026, Month: time.September}) {
		t.Fatalf("month = %v", analyzer.gotMonth)
	}
	for _, want := range []string{
		"*Agent performance: Kunnamangalam East (September 2026)*",
		"Total agents: *1* · Inactive: *1* (100%)",
		"*Coordinators* (1 inactive of 1)",
		"• *Asha* (9000000001): inactive, 4 consecutive leave days",
	} {
		if !strings.Contains(got.text, want) {
			t.Fatalf("reply missing %q:\n%s", want, got.text)
		}
	}
}

func TestPerformanceCommandErrors(t *testing.T) {
	bot, api, analyzer, _ := newTestBot(t)

	bot.handleSlashCommand(context.Background(), command("/performance", ""))
	if got := api.last(t).text; !strings.HasPrefix(got, "Usage:") {
		t.Fatalf("expected usage, got %q", got)
	}

	bot.handleSlashCommand(context.Background(), command("/performance", "Nowhere"))
	if got := api.last(t).text; !strings.Contains(got, `No panchayath matches "Nowhere"`) {
		t.Fatalf("unexpected reply %q", got)
	}

	analyzer.err = performance.ErrRosterUnavailable
	bot.handleSlashCommand(context.Background(), command("/performance", "Mavoor"))
	if got := api.last(t).text; got != "Failed to fetch performance data. Please try again." {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestSupersededPerformanceIsDropped(t *testing.T) {
	bot, api, analyzer, _ := newTestBot(t)
	analyzer.onCompute = func() {
		// The viewer picks another selection while this one is computing.
		analyzer.onCompute = nil
		bot.guard.Begin("U0VIEWER1")
	}
	bot.handleSlashCommand(context.Background(), command("/performance", "Mavoor"))
	if len(api.posts) != 0 {
		t.Fatalf("superseded result should not be posted, got %+v", api.posts)
	}
}

func TestSupersededPerformanceErrorsAreDropped(t *testing.T) {
	t.Run("roster failure", func(t *testing.T) {
		bot, api, analyzer, _ := newTestBot(t)
		analyzer.err = performance.ErrRosterUnavailable
		analyzer.onCompute = func() { bot.guard.Begin("U0VIEWER1") }

		bot.handleSlashCommand(context.Background(), command("/performance", "Mavoor"))
		if len(api.posts) != 0 {
			t.Fatalf("superseded error should not be posted, got %+v", api.posts)
		}
	})

	t.Run("unknown panchayath", func(t *testing.T) {
		bot, api, _, _ := newTestBot(t)
		store := bot.store.(fakeStore)
		store.onFind = func() { bot.guard.Begin("U0VIEWER1") }
		bot.store = store

		bot.handleSlashCommand(context.Background(), command("/performance", "Nowhere"))
		if len(api.posts) != 0 {
			t.Fatalf("superseded not-found reply should not be posted, got %+v", api.posts)
		}
	})

	t.Run("other viewer", func(t *testing.T) {
		bot, api, analyzer, _ := newTestBot(t)
		analyzer.err = performance.ErrRosterUnavailable
		analyzer.onCompute = func() { bot.guard.Begin("U0VIEWER2") }

		bot.handleSlashCommand(context.Background(), command("/performance", "Mavoor"))
		if got := api.last(t).text; got != "Failed to fetch performance data. Please try again." {
			t.Fatalf("unexpected reply %q", got)
		}
	})
}

func TestAgentCalendarCommand(t *testing.T) {
	bot, api, _, _ := newTestBot(t)

	bot.handleSlashCommand(context.Background(), command("/agent-calendar", "9000000001 2026-10"))
	got := api.last(t).text
	for _, want := range []string{
		"*Asha* (Coordinator) · October 2026",
		"Su  Mo  Tu  We  Th  Fr  Sa",
		" 1.  2A  3.",
		"17.*",
		"• 2026-10-02: ward visit",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("calendar missing %q:\n%s", want, got)
		}
	}

	bot.handleSlashCommand(context.Background(), command("/agent-calendar", "9000000002"))
	if got := api.last(t).text; !strings.Contains(got, "2 agents share this contact number") || !strings.Contains(got, "Also used by Devi (Supervisor).") {
		t.Fatalf("expected shared number warning:\n%s", got)
	}

	bot.handleSlashCommand(context.Background(), command("/agent-calendar", "9999"))
	if got := api.last(t).text; got != "No agent has contact number 9999." {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestPanchayathsCommand(t *testing.T) {
	bot, api, _, _ := newTestBot(t)
	bot.handleSlashCommand(context.Background(), command("/panchayaths", ""))
	got := api.last(t).text
	if !strings.Contains(got, "*Panchayaths* (2)") || !strings.Contains(got, "• Mavoor `pan-1`") {
		t.Fatalf("unexpected reply:\n%s", got)
	}
}

func TestSweepCommandRequiresManager(t *testing.T) {
	bot, api, _, sweeper := newTestBot(t)

	bot.handleSlashCommand(context.Background(), command("/sweep", ""))
	if got := api.last(t).text; got != "Sorry, only managers can use this command." || sweeper.calls != 0 {
		t.Fatalf("non-manager should be refused, got %q calls=%d", got, sweeper.calls)
	}

	for _, manager := range []string{"U0MANAGER1", "U0MANAGER2"} {
		cmd := command("/sweep", "")
		cmd.UserID = manager
		bot.handleSlashCommand(context.Background(), cmd)
		got := api.last(t)
		if got.ephemeral || got.channel != "C1" || !strings.HasPrefix(got.text, "Inactivity sweep for October 2026") {
			t.Fatalf("%s: expected sweep summary in channel, got %+v", manager, got)
		}
	}
	if sweeper.calls != 2 {
		t.Fatalf("sweeper calls = %d, want 2", sweeper.calls)
	}
}

func TestHelpShowsManagerCommands(t *testing.T) {
	bot, api, _, _ := newTestBot(t)

	bot.handleSlashCommand(context.Background(), command("/help", ""))
	if got := api.last(t).text; strings.Contains(got, "/sweep") {
		t.Fatalf("viewer help should not list /sweep:\n%s", got)
	}

	cmd := command("/help", "")
	cmd.UserID = "U0MANAGER1"
	bot.handleSlashCommand(context.Background(), cmd)
	if got := api.last(t).text; !strings.Contains(got, "`/sweep`") {
		t.Fatalf("manager help should list /sweep:\n%s", got)
	}
}

func TestResolveUserIDsUsesCache(t *testing.T) {
	api := &fakeSlack{t: t, users: []slack.User{
		{ID: "U0AAAAAAA", Name: "asha", RealName: "Asha Kumari"},
		{ID: "U0BBBBBBB", Name: "biju", Profile: slack.UserProfile{DisplayName: "Biju K"}},
	}}
	now := time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC)
	cache := &userCache{now: func() time.Time { return now }}

	ids, unresolved, err := cache.resolveUserIDs(api, []string{"Asha Kumari", "@biju k", "U0CCCCCCC", "ghost", ""})
	if err != nil {
		t.Fatalf("resolveUserIDs failed: %v", err)
	}
	if strings.Join(ids, ",") != "U0CCCCCCC,U0AAAAAAA,U0BBBBBBB" {
		t.Fatalf("ids = %v", ids)
	}
	if len(unresolved) != 1 || unresolved[0] != "ghost" {
		t.Fatalf("unresolved = %v", unresolved)
	}

	if _, _, err := cache.resolveUserIDs(api, []string{"asha"}); err != nil {
		t.Fatalf("resolveUserIDs failed: %v", err)
	}
	if api.getCalls != 1 {
		t.Fatalf("GetUsers calls = %d, want 1 while cached", api.getCalls)
	}

	now = now.Add(userCacheTTL + time.Second)
	if _, _, err := cache.resolveUserIDs(api, []string{"asha"}); err != nil {
		t.Fatalf("resolveUserIDs failed: %v", err)
	}
	if api.getCalls != 2 {
		t.Fatalf("GetUsers calls = %d, want 2 after expiry", api.getCalls)
	}
}

func TestUsageReply(t *testing.T) {
	if got := usageReply("/x", errUsage); got != "Usage: `/x`" {
		t.Fatalf("usage = %q", got)
	}
	if got := usageReply("/x", errors.New("bad month")); got != "bad month\nUsage: `/x`" {
		t.Fatalf("usage = %q", got)
	}
}
