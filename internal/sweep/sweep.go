// Package sweep computes the current month's report for every panchayath,
// writes the report files and posts a summary to Slack.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"agentwatch/internal/config"
	"agentwatch/internal/domain"
	"agentwatch/internal/performance"
	"agentwatch/internal/report"
)

type PanchayathLister interface {
	ListPanchayaths(ctx context.Context) ([]domain.Panchayath, error)
}

type Analyzer interface {
	ComputePerformance(ctx context.Context, panchayathID string, month domain.YearMonth) (performance.Report, error)
	Today() domain.Date
}

type Summarizer interface {
	Summarize(ctx context.Context, p domain.Panchayath, r performance.Report) (string, error)
}

// Poster is the part of *slack.Client the scheduler posts with.
type Poster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

type Runner struct {
	Panchayaths PanchayathLister
	Analyzer    Analyzer
	// Summarizer is optional; without it reports carry no narrative.
	Summarizer Summarizer
	OutputDir  string
}

type PanchayathResult struct {
	Panchayath domain.Panchayath
	Stats      domain.PerformanceStats
	Inactive   []domain.PerformanceResult
	Warnings   int
	ReportPath string
	Err        error
}

type SweepResult struct {
	Month       domain.YearMonth
	Panchayaths []PanchayathResult
}

func (r SweepResult) Failed() int {
	n := 0
	for _, p := range r.Panchayaths {
		if p.Err != nil {
			n++
		}
	}
	return n
}

func (r SweepResult) TotalInactive() int {
	n := 0
	for _, p := range r.Panchayaths {
		n += p.Stats.InactiveAgents
	}
	return n
}

// Run sweeps every panchayath for the current month. A panchayath that fails
// is recorded and skipped; Run only errors when the list itself cannot be
// read or every panchayath failed.
func (r *Runner) Run(ctx context.Context) (SweepResult, error) {
	month := r.Analyzer.Today().YearMonth()
	result := SweepResult{Month: month}

	panchayaths, err := r.Panchayaths.ListPanchayaths(ctx)
	if err != nil {
		return result, fmt.Errorf("list panchayaths: %w", err)
	}
	log.Printf("sweep start month=%s panchayaths=%d", month, len(panchayaths))

	for _, p := range panchayaths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Panchayaths = append(result.Panchayaths, r.sweepOne(ctx, p, month))
	}

	if len(panchayaths) > 0 && result.Failed() == len(panchayaths) {
		return result, errors.New("every panchayath failed")
	}
	log.Printf("sweep complete month=%s panchayaths=%d failed=%d inactive=%d",
		month, len(result.Panchayaths), result.Failed(), result.TotalInactive())
	return result, nil
}

func (r *Runner) sweepOne(ctx context.Context, p domain.Panchayath, month domain.YearMonth) PanchayathResult {
	out := PanchayathResult{Panchayath: p}

	rep, err := r.Analyzer.ComputePerformance(ctx, p.ID, month)
	if err != nil {
		log.Printf("sweep error panchayath=%s: %v", p.ID, err)
		out.Err = err
		return out
	}
	out.Stats = rep.Stats
	out.Warnings = len(report.Warnings(rep))
	for _, res := range rep.Results {
		if res.IsInactive {
			out.Inactive = append(out.Inactive, res)
		}
	}

	var summary string
	if r.Summarizer != nil && rep.Stats.TotalAgents > 0 {
		summary, err = r.Summarizer.Summarize(ctx, p, rep)
		if err != nil {
			log.Printf("sweep summary error panchayath=%s: %v", p.ID, err)
			summary = ""
		}
	}

	if r.OutputDir != "" {
		md := report.RenderMarkdown(p, rep, summary)
		path, err := report.WriteReportFile(md, r.OutputDir, month, p)
		if err != nil {
			log.Printf("sweep write error panchayath=%s: %v", p.ID, err)
		} else {
			out.ReportPath = path
		}
		if _, err := report.WriteEmailDraftFile(md, r.OutputDir, month, p, p.Name+" agent performance"); err != nil {
			log.Printf("sweep email draft error panchayath=%s: %v", p.ID, err)
		}
	}
	return out
}

// FormatSweepSummary returns a human-readable summary of a SweepResult.
func FormatSweepSummary(result SweepResult) string {
	if len(result.Panchayaths) == 0 {
		return fmt.Sprintf("Inactivity sweep for %s: no panchayaths found.", result.Month.Label())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Inactivity sweep for %s: %d inactive agent(s) across %d panchayath(s).",
		result.Month.Label(), result.TotalInactive(), len(result.Panchayaths))
	for _, p := range result.Panchayaths {
		b.WriteString("\n")
		if p.Err != nil {
			fmt.Fprintf(&b, "• %s: failed (%v)", p.Panchayath.Name, p.Err)
			continue
		}
		fmt.Fprintf(&b, "• %s: %d of %d inactive (%s%%)", p.Panchayath.Name,
			p.Stats.InactiveAgents, p.Stats.TotalAgents, report.FormatPercent(p.Stats.InactivePercentage))
		if p.Warnings > 0 {
			fmt.Fprintf(&b, ", %d warning(s)", p.Warnings)
		}
	}
	return b.String()
}

// StartScheduler runs the sweep on a standard 5-field cron schedule and posts
// the summary to channelID. It returns once ctx is done.
// Examples: "0 18 * * *" (daily 6pm), "0 9 * * 1" (Mondays 9am).
func StartScheduler(ctx context.Context, schedule string, loc *time.Location, runner *Runner, poster Poster, channelID string) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		log.Println("Sweep disabled (sweep_schedule not set)")
		return
	}
	sched, err := config.SweepParser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid sweep_schedule '%s': %v, sweep disabled", schedule, err)
		return
	}
	if loc == nil {
		loc = time.Local
	}
	log.Printf("Sweep scheduled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now().In(loc)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next sweep at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				log.Println("Sweep scheduler stopped")
				return
			case <-timer.C:
			}

			result, sweepErr := runner.Run(ctx)
			if sweepErr != nil {
				log.Printf("Sweep error: %v", sweepErr)
			}
			summary := FormatSweepSummary(result)
			log.Printf("Sweep complete: %s", summary)
			if sweepErr != nil {
				summary += fmt.Sprintf("\nError: %v", sweepErr)
			}

			if poster != nil && channelID != "" {
				if _, _, postErr := poster.PostMessage(channelID, slack.MsgOptionText(summary, false)); postErr != nil {
					log.Printf("Sweep post error: %v", postErr)
				}
			}
		}
	}()
}
