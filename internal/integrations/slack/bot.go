// Package slackbot answers agent performance slash commands over Slack
// Socket Mode.
package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"agentwatch/internal/domain"
	"agentwatch/internal/performance"
	"agentwatch/internal/storage/sqlstore"
	"agentwatch/internal/sweep"
)

const commandTimeout = 2 * time.Minute

type Store interface {
	ListPanchayaths(ctx context.Context) ([]domain.Panchayath, error)
	FindPanchayath(ctx context.Context, idOrName string) (domain.Panchayath, error)
	FindAgentsByMobile(ctx context.Context, mobile string) ([]domain.Agent, error)
}

type Analyzer interface {
	ComputePerformance(ctx context.Context, panchayathID string, month domain.YearMonth) (performance.Report, error)
	ComputeAgentCalendar(ctx context.Context, agent domain.Agent, month domain.YearMonth) (domain.Calendar, error)
	Today() domain.Date
}

type Sweeper interface {
	Run(ctx context.Context) (sweep.SweepResult, error)
}

// Messenger is the part of *slack.Client the bot replies with.
type Messenger interface {
	UserLister
	PostEphemeral(channelID, userID string, options ...slack.MsgOption) (string, error)
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

type Bot struct {
	api      Messenger
	store    Store
	analyzer Analyzer
	sweeper  Sweeper
	managers []string
	guard    *performance.SelectionGuard
	users    userCache
}

// New builds a bot. sweeper may be nil, in which case /sweep is refused.
func New(api Messenger, store Store, analyzer Analyzer, sweeper Sweeper, managers []string) *Bot {
	return &Bot{
		api:      api,
		store:    store,
		analyzer: analyzer,
		sweeper:  sweeper,
		managers: managers,
		guard:    performance.NewSelectionGuard(),
	}
}

// Run connects over Socket Mode and serves commands until ctx is done.
func (b *Bot) Run(ctx context.Context, api *slack.Client) error {
	client := socketmode.New(api)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-client.Events:
				if !ok {
					return
				}
				switch evt.Type {
				case socketmode.EventTypeConnected:
					log.Println("Slack bot connected via Socket Mode")
				case socketmode.EventTypeSlashCommand:
					client.Ack(*evt.Request)
					cmd, ok := evt.Data.(slack.SlashCommand)
					if !ok {
						continue
					}
					log.Printf("Slash command received: %s from user=%s channel=%s", cmd.Command, cmd.UserID, cmd.ChannelID)
					go b.handleSlashCommand(ctx, cmd)
				}
			}
		}
	}()

	return client.RunContext(ctx)
}

func (b *Bot) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	switch cmd.Command {
	case "/performance":
		b.handlePerformance(ctx, cmd)
	case "/agent-calendar":
		b.handleAgentCalendar(ctx, cmd)
	case "/panchayaths":
		b.handlePanchayaths(ctx, cmd)
	case "/sweep":
		b.handleSweep(ctx, cmd)
	case "/help":
		b.postEphemeral(cmd, helpText(b.isManager(cmd.UserID)))
	default:
		log.Printf("unknown slash command %s", cmd.Command)
	}
}

func (b *Bot) handlePerformance(ctx context.Context, cmd slack.SlashCommand) {
	ref, month, err := parseTargetAndMonth(cmd.Text, b.analyzer.Today())
	if err != nil {
		b.postEphemeral(cmd, usageReply("/performance <panchayath> [YYYY-MM]", err))
		return
	}

	// A newer /performance from the same user supersedes this one.
	ticket := b.guard.Begin(cmd.UserID)

	p, err := b.store.FindPanchayath(ctx, ref)
	if errors.Is(err, sqlstore.ErrNotFound) {
		b.replyIfCurrent(ticket, cmd, fmt.Sprintf("No panchayath matches %q. Try `/panchayaths`.", ref))
		return
	}
	if err != nil {
		log.Printf("performance lookup error ref=%s: %v", ref, err)
		b.replyIfCurrent(ticket, cmd, "Error loading panchayath.")
		return
	}

	rep, err := b.analyzer.ComputePerformance(ctx, p.ID, month)
	if err != nil {
		log.Printf("performance error panchayath=%s month=%s: %v", p.ID, month, err)
		if errors.Is(err, performance.ErrRosterUnavailable) {
			b.replyIfCurrent(ticket, cmd, "Failed to fetch performance data. Please try again.")
		} else {
			b.replyIfCurrent(ticket, cmd, fmt.Sprintf("Error computing performance: %v", err))
		}
		return
	}
	b.replyIfCurrent(ticket, cmd, renderPerformance(p, rep))
}

// replyIfCurrent drops the reply when a newer selection has replaced ticket.
func (b *Bot) replyIfCurrent(ticket performance.Ticket, cmd slack.SlashCommand, text string) {
	if !ticket.Current() {
		log.Printf("performance reply superseded user=%s", cmd.UserID)
		return
	}
	b.postEphemeral(cmd, text)
}

func (b *Bot) handleAgentCalendar(ctx context.Context, cmd slack.SlashCommand) {
	mobile, month, err := parseTargetAndMonth(cmd.Text, b.analyzer.Today())
	if err != nil {
		b.postEphemeral(cmd, usageReply("/agent-calendar <contact number> [YYYY-MM]", err))
		return
	}

	agents, err := b.store.FindAgentsByMobile(ctx, mobile)
	if err != nil {
		log.Printf("agent-calendar lookup error mobile=%s: %v", mobile, err)
		b.postEphemeral(cmd, "Error loading agent.")
		return
	}
	if len(agents) == 0 {
		b.postEphemeral(cmd, fmt.Sprintf("No agent has contact number %s.", mobile))
		return
	}

	agent := agents[0]
	cal, err := b.analyzer.ComputeAgentCalendar(ctx, agent, month)
	if err != nil {
		log.Printf("agent-calendar error agent=%s: %v", agent.ID, err)
		b.postEphemeral(cmd, "Failed to fetch daily notes.")
		return
	}
	text := renderCalendar(agent, cal)
	if len(agents) > 1 {
		var others []string
		for _, a := range agents[1:] {
			others = append(others, fmt.Sprintf("%s (%s)", a.Name, a.Role.DisplayName()))
		}
		text += fmt.Sprintf("\n\n:warning: %d agents share this contact number; their notes are combined. Also used by %s.",
			len(agents), strings.Join(others, ", "))
	}
	b.postEphemeral(cmd, text)
}

func (b *Bot) handlePanchayaths(ctx context.Context, cmd slack.SlashCommand) {
	panchayaths, err := b.store.ListPanchayaths(ctx)
	if err != nil {
		log.Printf("panchayaths list error: %v", err)
		b.postEphemeral(cmd, "Error loading panchayaths.")
		return
	}
	b.postEphemeral(cmd, renderPanchayaths(panchayaths))
}

func (b *Bot) handleSweep(ctx context.Context, cmd slack.SlashCommand) {
	if !b.isManager(cmd.UserID) {
		b.postEphemeral(cmd, "Sorry, only managers can use this command.")
		log.Printf("sweep denied user=%s", cmd.UserID)
		return
	}
	if b.sweeper == nil {
		b.postEphemeral(cmd, "The sweep is not configured.")
		return
	}

	b.postEphemeral(cmd, "Running inactivity sweep...")
	result, err := b.sweeper.Run(ctx)
	summary := sweep.FormatSweepSummary(result)
	if err != nil {
		log.Printf("sweep command error: %v", err)
		summary += fmt.Sprintf("\nError: %v", err)
	}
	if _, _, err := b.api.PostMessage(cmd.ChannelID, slack.MsgOptionText(summary, false)); err != nil {
		log.Printf("Error posting sweep summary: %v", err)
	}
}

func (b *Bot) isManager(userID string) bool {
	ids, unresolved, err := b.users.resolveUserIDs(b.api, b.managers)
	if err != nil {
		log.Printf("manager resolve error: %v", err)
	}
	if len(unresolved) > 0 {
		log.Printf("manager entries not found in Slack: %v", unresolved)
	}
	for _, id := range ids {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) postEphemeral(cmd slack.SlashCommand, text string) {
	_, err := b.api.PostEphemeral(cmd.ChannelID, cmd.UserID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("Error posting ephemeral: %v", err)
	}
}

func usageReply(usage string, err error) string {
	if errors.Is(err, errUsage) {
		return "Usage: `" + usage + "`"
	}
	return fmt.Sprintf("%v\nUsage: `%s`", err, usage)
}
