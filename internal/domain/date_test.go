package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestActivityWindowClipsAtToday(t *testing.T) {
	month := YearMonth{Year: 2026, Month: time.October}
	today := NewDate(2026, time.October, 10)

	w := ActivityWindow(month, today)
	if len(w) != 10 {
		t.Fatalf("expected 10 days in window, got %d", len(w))
	}
	if w[0] != NewDate(2026, time.October, 1) {
		t.Fatalf("unexpected first day: %s", w[0])
	}
	if w[len(w)-1] != today {
		t.Fatalf("unexpected last day: got %s want %s", w[len(w)-1], today)
	}
	for i := 1; i < len(w); i++ {
		if !w[i-1].Before(w[i]) {
			t.Fatalf("window not ascending at %d: %s then %s", i, w[i-1], w[i])
		}
	}
}

func TestActivityWindowPastAndFutureMonths(t *testing.T) {
	today := NewDate(2026, time.October, 17)

	past := ActivityWindow(YearMonth{Year: 2026, Month: time.February}, today)
	if len(past) != 28 {
		t.Fatalf("expected full February (28 days), got %d", len(past))
	}

	leap := ActivityWindow(YearMonth{Year: 2024, Month: time.February}, today)
	if len(leap) != 29 {
		t.Fatalf("expected 29 days for leap February, got %d", len(leap))
	}

	future := ActivityWindow(YearMonth{Year: 2026, Month: time.November}, today)
	if len(future) != 0 {
		t.Fatalf("expected empty window for future month, got %d days", len(future))
	}

	if got := ActivityWindow(YearMonth{}, today); got != nil {
		t.Fatalf("expected nil window for invalid month, got %v", got)
	}
}

func TestActivityWindowFirstOfMonth(t *testing.T) {
	today := NewDate(2026, time.October, 1)
	w := ActivityWindow(today.YearMonth(), today)
	if len(w) != 1 || w[0] != today {
		t.Fatalf("expected single-day window, got %v", w)
	}
}

func TestParseYearMonth(t *testing.T) {
	m, err := ParseYearMonth("2026-02")
	if err != nil {
		t.Fatalf("ParseYearMonth returned error: %v", err)
	}
	if m.Year != 2026 || m.Month != time.February {
		t.Fatalf("unexpected month: %+v", m)
	}
	if m.LastDay() != NewDate(2026, time.February, 28) {
		t.Fatalf("unexpected last day: %s", m.LastDay())
	}
	if m.Label() != "February 2026" {
		t.Fatalf("unexpected label: %q", m.Label())
	}

	for _, bad := range []string{"", "2026-13", "2026/02", "Feb 2026"} {
		if _, err := ParseYearMonth(bad); err == nil {
			t.Fatalf("expected ParseYearMonth(%q) to fail", bad)
		}
	}
}

func TestParseDateAcceptsDriverTimestamps(t *testing.T) {
	cases := []string{"2026-10-05", "2026-10-05T00:00:00Z", "2026-10-05 00:00:00+00:00"}
	for _, in := range cases {
		d, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q) error: %v", in, err)
		}
		if d != NewDate(2026, time.October, 5) {
			t.Fatalf("ParseDate(%q) = %s", in, d)
		}
	}
	if _, err := ParseDate("05/10/2026"); err == nil {
		t.Fatal("expected ParseDate to reject non-ISO dates")
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2026, time.March, 0)
	if d.String() != "2026-02-28" {
		t.Fatalf("NewDate did not normalize day 0: %s", d)
	}

	type wrapper struct {
		Last *Date `json:"last"`
		Day  Date  `json:"day"`
	}
	out, err := json.Marshal(wrapper{Day: d})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"last":null,"day":"2026-02-28"}` {
		t.Fatalf("unexpected JSON: %s", out)
	}

	var back wrapper
	if err := json.Unmarshal([]byte(`{"last":"2026-10-02","day":"2026-02-28"}`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Last == nil || *back.Last != NewDate(2026, time.October, 2) || back.Day != d {
		t.Fatalf("unexpected round trip: %+v", back)
	}
}

func TestRecentMonths(t *testing.T) {
	months := RecentMonths(NewDate(2026, time.February, 14), 12)
	if len(months) != 12 {
		t.Fatalf("expected 12 months, got %d", len(months))
	}
	if months[0].String() != "2026-02" {
		t.Fatalf("unexpected first month: %s", months[0])
	}
	if months[2].String() != "2025-12" {
		t.Fatalf("expected year rollover, got %s", months[2])
	}
	if months[11].String() != "2025-03" {
		t.Fatalf("unexpected last month: %s", months[11])
	}
}

func TestParseRoleAndDisplayName(t *testing.T) {
	r, err := ParseRole("Group-Leader")
	if err != nil || r != RoleGroupLeader {
		t.Fatalf("ParseRole(Group-Leader) = %q, %v", r, err)
	}
	if _, err := ParseRole("customer"); err == nil {
		t.Fatal("expected customer to be rejected as an agent role")
	}

	want := map[Role]string{
		RoleCoordinator: "Coordinator",
		RoleSupervisor:  "Supervisor",
		RoleGroupLeader: "Group Leader",
		RolePRO:         "PRO",
	}
	for role, name := range want {
		if got := role.DisplayName(); got != name {
			t.Errorf("got %q, want %q", got, name)
		}
	}
}

func TestDailyNoteActivity(t *testing.T) {
	cases := []struct {
		note   DailyNote
		active bool
	}{
		{DailyNote{Activity: "met 4 customers"}, true},
		{DailyNote{Activity: "   \t"}, false},
		{DailyNote{Activity: ""}, false},
		{DailyNote{IsLeave: true, Activity: "sick"}, false},
	}
	for i, tc := range cases {
		if got := tc.note.IsActive(); got != tc.active {
			t.Errorf("case %d: IsActive = %v, want %v", i, got, tc.active)
		}
	}
}
