// Package schedule provides high-level schedule orchestration. It
// coordinates the LLM, interpreter, apply engine, and audit journal to
// turn natural language commands into persisted schedule changes. Both
// the CLI and tests drive it through one Service.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/johnh2o2/coparent-sub000/internal/block"
	"github.com/johnh2o2/coparent-sub000/internal/change"
	"github.com/johnh2o2/coparent-sub000/internal/config"
	"github.com/johnh2o2/coparent-sub000/internal/dateutil"
	"github.com/johnh2o2/coparent-sub000/internal/interpret"
	"github.com/johnh2o2/coparent-sub000/internal/journal"
	"github.com/johnh2o2/coparent-sub000/internal/llm"
	"github.com/johnh2o2/coparent-sub000/internal/slot"
)

// ErrMaxRetriesExceeded is returned when every attempt at interpreting
// a command produced malformed operations.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded, interpretation still failing")

// ErrTimeout is returned when the LLM did not answer within the
// context deadline.
var ErrTimeout = errors.New("command interpretation timed out")

// contextWeeks is how far ahead the model sees the expanded schedule.
const contextWeeks = 4

// Service orchestrates command handling against one repository.
type Service struct {
	client llm.Client
	cfg    *config.Config
	repo   block.Repository
	audit  journal.Store

	commander   *llm.Commander
	interpreter *interpret.Interpreter
	summarizer  *journal.Summarizer
	window      slot.CareWindow

	// Conversation state for retry feedback
	messages []llm.Message
}

func useCompactPrompt(provider string) bool {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case llm.ProviderOllama, llm.ProviderLMStudio, "lm-studio", "llmstudio":
		return true
	default:
		return false
	}
}

// New creates a Service. The audit store may be nil, in which case
// applies are not journaled.
func New(client llm.Client, cfg *config.Config, repo block.Repository, audit journal.Store) (*Service, error) {
	window, err := cfg.CareWindow()
	if err != nil {
		return nil, fmt.Errorf("care window: %w", err)
	}
	return &Service{
		client:      client,
		cfg:         cfg,
		repo:        repo,
		audit:       audit,
		commander:   llm.NewCommander(client),
		interpreter: interpret.New(cfg.Identity.Parent),
		summarizer:  journal.NewSummarizer(client),
		window:      window,
	}, nil
}

// TellOptions tunes one Tell call.
type TellOptions struct {
	DryRun     bool // interpret but do not apply
	MaxRetries int  // extra attempts after a malformed LLM response
}

// TellResult is the outcome of one natural language command.
type TellResult struct {
	Batch   *change.Batch
	Text    string // the model's reply to the parent
	Apply   *change.ApplyResult
	Summary *journal.Summary

	// Schedule is the re-expanded view of the affected days after a
	// successful apply, for display.
	Schedule []*block.TimeBlock
}

// Tell interprets one natural language command and, unless DryRun is
// set, applies the resulting batch.
func (s *Service) Tell(ctx context.Context, input string, opts TellOptions) (*TellResult, error) {
	now := time.Now()

	snapshot, err := s.repo.ListByDateRange(ctx, now.AddDate(0, 0, -7), now.AddDate(0, 0, 7*contextWeeks))
	if err != nil {
		return nil, fmt.Errorf("fetching schedule: %w", err)
	}

	req := llm.CommandRequest{
		Input:            input,
		Date:             now,
		WindowStart:      s.cfg.Care.WindowStart,
		WindowEnd:        s.cfg.Care.WindowEnd,
		Blocks:           toScheduledBlocks(block.Expand(snapshot, dateutil.TruncateToDay(now), dateutil.TruncateToDay(now).AddDate(0, 0, 7*contextWeeks-1))),
		UseCompactPrompt: useCompactPrompt(s.cfg.LLM.Provider),
	}
	s.messages = s.commander.BuildInitialMessages(req)

	batch, text, err := s.interpretWithRetry(ctx, snapshot, input, opts.MaxRetries)
	if err != nil {
		if errors.Is(err, interpret.ErrNoActionRecognized) {
			// The model answered but proposed nothing; surface its
			// reply so the caller can show it.
			return &TellResult{Text: text}, err
		}
		return nil, err
	}

	result := &TellResult{Batch: batch, Text: text}
	if opts.DryRun {
		return result, nil
	}

	applier := change.NewApplier(s.repo, s.window)
	result.Apply = applier.ApplyAll(ctx, batch)
	result.Summary = s.summarizer.Summarize(ctx, batch, result.Apply)
	s.journalize(ctx, batch, result.Apply, result.Summary)

	if start, end, ok := result.Apply.AffectedRange(); ok {
		if view, err := s.Expanded(ctx, start, end); err == nil {
			result.Schedule = view
		}
	}

	return result, nil
}

// interpretWithRetry calls the LLM, builds the batch, and on malformed
// operations feeds the error back to the model for another attempt.
func (s *Service) interpretWithRetry(ctx context.Context, snapshot []*block.TimeBlock, input string, maxRetries int) (*change.Batch, string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := s.commander.CommandWithMessages(ctx, s.messages)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, "", fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			return nil, "", fmt.Errorf("LLM interpretation (attempt %d): %w", attempt+1, err)
		}

		batch, err := s.interpreter.BuildBatch(toResponse(resp), snapshot, input)
		if err == nil {
			return batch, resp.Text, nil
		}
		if errors.Is(err, interpret.ErrNoActionRecognized) {
			return nil, resp.Text, err
		}
		lastErr = err

		// Malformed operation: append the response plus the error so
		// the model can correct itself.
		if attempt < maxRetries {
			respJSON, _ := json.Marshal(resp)
			s.messages = append(s.messages,
				llm.Message{Role: "assistant", Content: string(respJSON)},
				llm.Message{Role: "user", Content: fmt.Sprintf(
					"That response could not be applied: %v. Re-emit the full JSON with corrected operations.", err)},
			)
		}
	}
	return nil, "", fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

// journalize records the apply outcome; audit failures are swallowed,
// journaling never fails a command.
func (s *Service) journalize(ctx context.Context, batch *change.Batch, result *change.ApplyResult, summary *journal.Summary) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Append(ctx, journal.EntryFor(batch, result, summary))
}

// Week returns the expanded schedule for the week containing day,
// along with the Monday and Sunday bounds.
func (s *Service) Week(ctx context.Context, day time.Time) ([]*block.TimeBlock, time.Time, time.Time, error) {
	monday, sunday := dateutil.WeekRange(day)
	blocks, err := s.Expanded(ctx, monday, sunday)
	return blocks, monday, sunday, err
}

// Expanded returns the expanded schedule over the inclusive day range.
func (s *Service) Expanded(ctx context.Context, start, end time.Time) ([]*block.TimeBlock, error) {
	stored, err := s.repo.ListByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching schedule: %w", err)
	}
	return block.Expand(stored, start, end), nil
}

// ProviderMinutes totals expanded care minutes per provider over the
// inclusive day range.
func (s *Service) ProviderMinutes(ctx context.Context, start, end time.Time) (map[block.Provider]int, error) {
	stored, err := s.repo.ListByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching schedule: %w", err)
	}
	return block.ProviderMinutes(stored, start, end), nil
}

// AddBlock persists one block through the same conflict-resolving
// pipeline commands use.
func (s *Service) AddBlock(ctx context.Context, b *block.TimeBlock) (*change.ApplyResult, error) {
	if !b.IsValid() {
		return nil, fmt.Errorf("block has no duration: %s", b.TimeRange())
	}
	b.ModifiedBy = s.cfg.Identity.Parent

	batch := change.NewBatch("")
	c := change.NewChange(change.KindAddBlock, nil, b)
	c.RequestedBy = s.cfg.Identity.Parent
	batch.Changes = append(batch.Changes, c)

	applier := change.NewApplier(s.repo, s.window)
	result := applier.ApplyAll(ctx, batch)
	if result.Err != nil {
		return result, result.Err
	}
	if len(result.FailedSaves) > 0 {
		return result, fmt.Errorf("block %s rejected: %w", b.TimeRange(), slot.ErrOutsideCareWindow)
	}
	return result, nil
}

// RemoveBlock deletes the stored block matching date, provider, and
// start slot. Removing an absent block is an error here, unlike during
// batch apply, because an explicit CLI removal of nothing is a typo.
func (s *Service) RemoveBlock(ctx context.Context, date time.Time, provider block.Provider, startSlot int) error {
	stored, err := s.repo.ListByDateRange(ctx, date, date)
	if err != nil {
		return fmt.Errorf("fetching schedule: %w", err)
	}
	for _, b := range stored {
		if !b.IsTemplate() && dateutil.SameDay(b.Day, date) &&
			b.Provider == provider && b.StartSlot == startSlot {
			return s.repo.Delete(ctx, b)
		}
	}
	return block.ErrNotFound
}

// Audit returns the most recent audit entries, newest first.
func (s *Service) Audit(ctx context.Context, limit int) ([]*journal.Entry, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.List(ctx, limit)
}

// ClearAudit wipes the audit log.
func (s *Service) ClearAudit(ctx context.Context) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Clear(ctx)
}

// toResponse converts the model's raw operations into the
// interpreter's input form.
func toResponse(resp *llm.CommandResponse) interpret.Response {
	out := interpret.Response{}
	if resp.Text != "" {
		out.Texts = append(out.Texts, resp.Text)
	}
	for _, op := range resp.Operations {
		out.Operations = append(out.Operations, interpret.Operation{Name: op.Op, Args: op.Args})
	}
	return out
}

// toScheduledBlocks formats expanded blocks for the prompt.
func toScheduledBlocks(blocks []*block.TimeBlock) []llm.ScheduledBlock {
	out := make([]llm.ScheduledBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, llm.ScheduledBlock{
			Date:      b.Day.Format("2006-01-02"),
			Start:     slot.Format(b.StartSlot),
			End:       slot.Format(b.EndSlot),
			Provider:  string(b.Provider),
			Notes:     b.Notes,
			Recurring: b.IsTemplate(),
		})
	}
	return out
}
