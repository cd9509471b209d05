package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const commandPromptWithContext = `You are a childcare scheduling assistant for two co-parents.

Context:
- Current date: %s, %s (format: DayOfWeek, YYYY-MM-DD)
- Today: %s
- Tomorrow: %s
- Care window: %s to %s (blocks outside it are rejected)
- Caregivers: "mom", "dad", "nanny", "grandparent"

%s

User request: "%s"

Date rules:
1. "today" ALWAYS means %s
2. "tomorrow" ALWAYS means %s
3. "monday", "next monday" -> next occurrence of Monday on or after today
4. "in X days" -> add X days to today
5. Explicit "YYYY-MM-DD" -> use that exact date
6. Resolve ALL dates to YYYY-MM-DD format

Time rules:
1. Use 24-hour "HH:MM" format; "24:00" means end of day
2. Round times to 15-minute increments
3. Keep blocks inside the care window unless the user is explicit

Operations you may emit (args per operation):
- change_time: {"date", "provider", "start", "end", "notes"?} - move a caregiver's block on a date
- swap_days: {"date_a", "date_b"} - exchange caregivers between two days
- add_block: {"date", "provider", "start", "end", "notes"?, "recurrence"?, "recurrence_end"?} - recurrence is one of "daily", "weekly", "monthly", "yearly"
- remove_block: {"date", "provider", "start"} - remove the exact block
- set_day_schedule: {"date", "entries": [{"provider", "start", "end", "notes"?}]} - add several blocks on one date
- clear_day: {"date", "provider"?, "clear_recurring"?} - remove a day's blocks
- set_weekly_schedule: {"start_date", "weeks", "entries": [{"weekday", "provider", "start", "end", "notes"?}]} - replace the whole schedule with a weekly pattern

Other rules:
1. Emit the fewest operations that satisfy the request
2. Use swap_days for "trade"/"switch" requests between two days
3. Use set_weekly_schedule only when the user asks to rebuild the routine
4. If the request is not about the schedule, emit no operations and explain in "text"

Respond ONLY with valid JSON (no markdown, no explanation):
{
  "text": "one or two sentences for the parent",
  "operations": [
    {"op": "operation_name", "args": { ... }}
  ]
}`

const commandPromptCompact = `You are a childcare scheduling assistant. Use the context and return JSON only.

Today: %s (%s)
Tomorrow: %s
Care window: %s to %s
Caregivers: "mom", "dad", "nanny", "grandparent"

%s

User request: "%s"

Rules:
- Return JSON only (no markdown).
- Dates are YYYY-MM-DD; times are 24-hour HH:MM in 15-minute increments.
- Operations: change_time{date,provider,start,end}, swap_days{date_a,date_b},
  add_block{date,provider,start,end,recurrence?,recurrence_end?},
  remove_block{date,provider,start},
  set_day_schedule{date,entries:[{provider,start,end}]},
  clear_day{date,provider?,clear_recurring?},
  set_weekly_schedule{start_date,weeks,entries:[{weekday,provider,start,end}]}.
- Emit no operations if the request is not about the schedule.

JSON schema:
{
  "text": "string",
  "operations": [{"op": "string", "args": {}}]
}`

// ScheduledBlock is one expanded block handed to the model as context.
type ScheduledBlock struct {
	Date      string // YYYY-MM-DD
	Start     string // HH:MM
	End       string // HH:MM
	Provider  string
	Notes     string
	Recurring bool
}

// CommandRequest contains the input for interpreting one command.
type CommandRequest struct {
	Input            string
	Date             time.Time
	WindowStart      string // "HH:MM"
	WindowEnd        string // "HH:MM"
	Blocks           []ScheduledBlock
	UseCompactPrompt bool // shorter prompt for local models
}

// CommandOperation is one structured operation from the model, its
// arguments left raw for the interpreter to decode.
type CommandOperation struct {
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args"`
}

// CommandResponse contains the parsed LLM response.
type CommandResponse struct {
	Text       string             `json:"text"`
	Operations []CommandOperation `json:"operations"`
}

// Commander turns natural language schedule commands into structured
// operations using an LLM.
type Commander struct {
	client Client
}

// NewCommander creates a Commander with the given LLM client.
func NewCommander(client Client) *Commander {
	return &Commander{client: client}
}

// Command interprets one natural language request.
func (c *Commander) Command(ctx context.Context, req CommandRequest) (*CommandResponse, error) {
	return c.commandWithMessages(ctx, c.BuildInitialMessages(req))
}

// CommandWithMessages interprets with a pre-built message history.
// Used for retry logic that appends error feedback.
func (c *Commander) CommandWithMessages(ctx context.Context, messages []Message) (*CommandResponse, error) {
	return c.commandWithMessages(ctx, messages)
}

// BuildInitialMessages creates the initial message list for a request.
// Exported so callers can extend the conversation for retries.
func (c *Commander) BuildInitialMessages(req CommandRequest) []Message {
	dayOfWeek := req.Date.Format("Monday")
	currentDate := req.Date.Format("2006-01-02")
	tomorrowDate := req.Date.AddDate(0, 0, 1).Format("2006-01-02")

	windowStart := req.WindowStart
	if windowStart == "" {
		windowStart = "00:00"
	}
	windowEnd := req.WindowEnd
	if windowEnd == "" {
		windowEnd = "24:00"
	}

	scheduleSection := formatSchedule(req.Blocks)

	var prompt string
	if req.UseCompactPrompt {
		prompt = fmt.Sprintf(commandPromptCompact,
			dayOfWeek,       // Today's day of week
			currentDate,     // Today's date
			tomorrowDate,    // Tomorrow's date
			windowStart,     // Care window start
			windowEnd,       // Care window end
			scheduleSection, // Current schedule
			req.Input,       // User request
		)
	} else {
		prompt = fmt.Sprintf(commandPromptWithContext,
			dayOfWeek,       // DayOfWeek in header
			currentDate,     // YYYY-MM-DD in header
			currentDate,     // Today's date
			tomorrowDate,    // Tomorrow's date
			windowStart,     // Care window start
			windowEnd,       // Care window end
			scheduleSection, // Current schedule
			req.Input,       // User request
			currentDate,     // "today" means this
			tomorrowDate,    // "tomorrow" means this
		)
	}

	return []Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: req.Input},
	}
}

func formatSchedule(blocks []ScheduledBlock) string {
	if len(blocks) == 0 {
		return "Current schedule: empty"
	}

	var sb strings.Builder
	sb.WriteString("Current schedule:\n")
	for _, b := range blocks {
		recurring := ""
		if b.Recurring {
			recurring = " (weekly)"
		}
		notes := ""
		if b.Notes != "" {
			notes = " - " + b.Notes
		}
		sb.WriteString(fmt.Sprintf("- %s %s-%s: %s%s%s\n",
			b.Date, b.Start, b.End, b.Provider, recurring, notes))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (c *Commander) commandWithMessages(ctx context.Context, messages []Message) (*CommandResponse, error) {
	var resp CommandResponse
	if err := c.client.ChatJSON(ctx, messages, &resp); err != nil {
		return nil, fmt.Errorf("interpreting command: %w", err)
	}
	return &resp, nil
}
