package journal

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/johnh2o2/coparent-sub000/internal/block"
	"github.com/johnh2o2/coparent-sub000/internal/change"
	"github.com/johnh2o2/coparent-sub000/internal/llm"
	"github.com/johnh2o2/coparent-sub000/internal/slot"
)

const summarizerSystemPrompt = `You are a concise family-scheduling assistant. Output ONLY valid JSON matching the schema - no markdown, no extra text.`

const summarizerPromptTemplate = `Summarize this schedule change for the other parent.

Command: %q
Outcome: %s (%d items applied, %d failed)

Changes:
%s

Care time delta per caregiver (minutes, negative means less time):
%s

Respond ONLY with valid JSON (no markdown):
{
  "title": "short title, under 8 words",
  "purpose": "one sentence on what changed and why",
  "dates_impacted": ["YYYY-MM-DD"],
  "notification_message": "1-2 friendly sentences to send to the other parent"
}`

// Summary is the human-facing digest of one applied batch.
type Summary struct {
	Title               string         `json:"title"`
	Purpose             string         `json:"purpose"`
	DatesImpacted       []string       `json:"dates_impacted"`
	NotificationMessage string         `json:"notification_message"`
	CareTimeDelta       map[string]int `json:"-"` // provider -> minutes, computed locally
	Fallback            bool           `json:"-"` // true when the LLM was unavailable
}

// Summarizer turns an applied batch into a Summary. It degrades to a
// deterministic count-based summary when the LLM is unreachable, so
// summarization can never fail an apply.
type Summarizer struct {
	client llm.Client
}

// NewSummarizer creates a Summarizer. A nil client always produces the
// deterministic summary.
func NewSummarizer(client llm.Client) *Summarizer {
	return &Summarizer{client: client}
}

// Summarize builds the digest for one batch and its apply result.
func (s *Summarizer) Summarize(ctx context.Context, batch *change.Batch, result *change.ApplyResult) *Summary {
	delta := careTimeDelta(batch)
	dates := datesImpacted(batch)

	if s.client != nil {
		prompt := fmt.Sprintf(summarizerPromptTemplate,
			batch.CommandText,
			outcomeOf(result),
			result.TotalSucceeded(),
			result.TotalFailed(),
			formatBreakdown(batch.Breakdown()),
			formatDelta(delta),
		)
		var out Summary
		err := s.client.ChatJSON(ctx, []llm.Message{
			{Role: "system", Content: summarizerSystemPrompt},
			{Role: "user", Content: prompt},
		}, &out)
		if err == nil && out.Title != "" {
			out.CareTimeDelta = delta
			if len(out.DatesImpacted) == 0 {
				out.DatesImpacted = dates
			}
			return &out
		}
	}

	return s.fallback(batch, result, delta, dates)
}

// fallback builds a purely mechanical summary from the breakdown.
func (s *Summarizer) fallback(batch *change.Batch, result *change.ApplyResult, delta map[string]int, dates []string) *Summary {
	var adds, removes, other int
	for _, row := range batch.Breakdown() {
		switch row.Kind {
		case change.KindAddBlock:
			adds++
		case change.KindRemoveBlock:
			removes++
		default:
			other++
		}
	}

	parts := make([]string, 0, 3)
	if adds > 0 {
		parts = append(parts, fmt.Sprintf("%d added", adds))
	}
	if removes > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", removes))
	}
	if other > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", other))
	}
	detail := "no blocks touched"
	if len(parts) > 0 {
		detail = strings.Join(parts, ", ")
	}

	title := "Schedule updated"
	if outcomeOf(result) != OutcomeApplied {
		title = "Schedule partially updated"
	}

	return &Summary{
		Title:   title,
		Purpose: fmt.Sprintf("Care blocks changed: %s.", detail),
		NotificationMessage: fmt.Sprintf("The schedule was updated (%s; %d applied, %d failed).",
			detail, result.TotalSucceeded(), result.TotalFailed()),
		DatesImpacted: dates,
		CareTimeDelta: delta,
		Fallback:      true,
	}
}

// outcomeOf maps an apply result to an audit outcome.
func outcomeOf(result *change.ApplyResult) Outcome {
	switch {
	case result.IsFullSuccess():
		return OutcomeApplied
	case result.IsPartialSuccess():
		return OutcomePartial
	default:
		return OutcomeFailed
	}
}

// EntryFor builds the audit entry for one batch and its summary.
func EntryFor(batch *change.Batch, result *change.ApplyResult, summary *Summary) *Entry {
	return &Entry{
		BatchID:     batch.ID,
		CommandText: batch.CommandText,
		Summary:     summary.NotificationMessage,
		Outcome:     outcomeOf(result),
		Succeeded:   result.TotalSucceeded(),
		Failed:      result.TotalFailed(),
		CreatedAt:   batch.CreatedAt,
	}
}

// careTimeDelta computes minutes gained or lost per provider across the
// batch: additions count positive, removals negative. A recurring
// template counts once; the narrative marks it as weekly time.
func careTimeDelta(batch *change.Batch) map[string]int {
	delta := make(map[string]int)
	for _, c := range batch.Changes {
		for _, b := range c.ProposedBlocks() {
			delta[string(b.Provider)] += minutes(b)
		}
		switch c.Kind {
		case change.KindRemoveBlock, change.KindChangeTime:
			if c.Original != nil {
				delta[string(c.Original.Provider)] -= minutes(c.Original)
			}
		case change.KindSwap:
			if c.Original != nil {
				delta[string(c.Original.Provider)] -= minutes(c.Original)
			}
			if c.SecondaryOriginal != nil {
				delta[string(c.SecondaryOriginal.Provider)] -= minutes(c.SecondaryOriginal)
			}
		}
	}
	for k, v := range delta {
		if v == 0 {
			delete(delta, k)
		}
	}
	return delta
}

func minutes(b *block.TimeBlock) int {
	return b.DurationMinutes()
}

// datesImpacted returns the distinct days the batch touches, sorted.
func datesImpacted(batch *change.Batch) []string {
	seen := make(map[string]bool)
	for _, row := range batch.Breakdown() {
		seen[row.Day.Format("2006-01-02")] = true
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func formatBreakdown(rows []change.ItemSummary) string {
	if len(rows) == 0 {
		return "- none"
	}
	var sb strings.Builder
	for _, row := range rows {
		recurring := ""
		if row.Recurring {
			recurring = " (weekly)"
		}
		sb.WriteString(fmt.Sprintf("- %s: %s %s %s-%s%s\n",
			row.Kind,
			row.Provider,
			row.Day.Format("2006-01-02"),
			slot.Format(row.StartSlot),
			slot.Format(row.EndSlot),
			recurring))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatDelta(delta map[string]int) string {
	if len(delta) == 0 {
		return "- none"
	}
	providers := make([]string, 0, len(delta))
	for p := range delta {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	var sb strings.Builder
	for _, p := range providers {
		sb.WriteString(fmt.Sprintf("- %s: %+d\n", p, delta[p]))
	}
	return strings.TrimRight(sb.String(), "\n")
}
