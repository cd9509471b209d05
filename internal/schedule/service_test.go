package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/johnh2o2/coparent-sub000/internal/block"
	"github.com/johnh2o2/coparent-sub000/internal/config"
	"github.com/johnh2o2/coparent-sub000/internal/interpret"
	"github.com/johnh2o2/coparent-sub000/internal/journal"
	"github.com/johnh2o2/coparent-sub000/internal/llm"
	"github.com/johnh2o2/coparent-sub000/internal/slot"
)

// scriptedClient returns one canned JSON response per call.
type scriptedClient struct {
	responses []string
	calls     int
}

func (c *scriptedClient) Chat(context.Context, []llm.Message) (string, error) {
	return c.next()
}

func (c *scriptedClient) ChatJSON(_ context.Context, _ []llm.Message, result any) error {
	resp, err := c.next()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(resp), result)
}

func (c *scriptedClient) next() (string, error) {
	if c.calls >= len(c.responses) {
		return "", errors.New("no scripted response left")
	}
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

type memRepo struct {
	blocks map[string]*block.TimeBlock
}

func newMemRepo() *memRepo {
	return &memRepo{blocks: make(map[string]*block.TimeBlock)}
}

func (r *memRepo) Save(_ context.Context, b *block.TimeBlock) (*block.TimeBlock, error) {
	stored := *b
	r.blocks[b.ID] = &stored
	return &stored, nil
}

func (r *memRepo) Delete(_ context.Context, b *block.TimeBlock) error {
	if _, ok := r.blocks[b.ID]; !ok {
		return block.ErrNotFound
	}
	delete(r.blocks, b.ID)
	return nil
}

func (r *memRepo) BatchSave(ctx context.Context, blocks []*block.TimeBlock) ([]*block.TimeBlock, error) {
	var out []*block.TimeBlock
	for _, b := range blocks {
		saved, _ := r.Save(ctx, b)
		out = append(out, saved)
	}
	return out, nil
}

func (r *memRepo) ListByDateRange(_ context.Context, start, end time.Time) ([]*block.TimeBlock, error) {
	var out []*block.TimeBlock
	for _, b := range r.blocks {
		if b.IsTemplate() || (!b.Day.Before(start) && !b.Day.After(end)) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memRepo) Close() error { return nil }

type memAudit struct {
	entries []*journal.Entry
}

func (a *memAudit) Append(_ context.Context, e *journal.Entry) error {
	e.ID = int64(len(a.entries) + 1)
	a.entries = append(a.entries, e)
	return nil
}

func (a *memAudit) List(_ context.Context, limit int) ([]*journal.Entry, error) {
	if limit <= 0 || limit > len(a.entries) {
		limit = len(a.entries)
	}
	out := make([]*journal.Entry, 0, limit)
	for i := len(a.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, a.entries[i])
	}
	return out, nil
}

func (a *memAudit) Clear(context.Context) error {
	a.entries = nil
	return nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Identity.Parent = "alex"
	cfg.Care.WindowStart = "06:00"
	cfg.Care.WindowEnd = "21:00"
	return cfg
}

func newTestService(t *testing.T, client llm.Client, repo block.Repository, audit journal.Store) *Service {
	t.Helper()
	svc, err := New(client, testConfig(), repo, audit)
	if err != nil {
		t.Fatalf("creating service: %v", err)
	}
	return svc
}

func futureDate() string {
	return time.Now().AddDate(0, 0, 7).Format("2006-01-02")
}

func TestTellAppliesAndJournals(t *testing.T) {
	date := futureDate()
	client := &scriptedClient{responses: []string{
		`{"text": "Adding mom on ` + date + `.", "operations": [
			{"op": "add_block", "args": {"date": "` + date + `", "provider": "mom", "start": "09:00", "end": "13:00"}}
		]}`,
		// Second call is the summarizer; malformed on purpose so the
		// deterministic fallback kicks in.
		`not json`,
	}}
	repo := newMemRepo()
	audit := &memAudit{}
	svc := newTestService(t, client, repo, audit)

	result, err := svc.Tell(context.Background(), "mom takes next week", TellOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if !result.Apply.IsFullSuccess() {
		t.Errorf("apply not a full success: %+v", result.Apply)
	}
	if len(repo.blocks) != 1 {
		t.Fatalf("store has %d blocks, want 1", len(repo.blocks))
	}
	for _, b := range repo.blocks {
		if b.Provider != block.ProviderMom || b.StartSlot != 36 || b.EndSlot != 52 {
			t.Errorf("stored block = %+v", b)
		}
		if b.ModifiedBy != "alex" {
			t.Errorf("ModifiedBy = %q, want the configured parent", b.ModifiedBy)
		}
	}
	if result.Summary == nil || !result.Summary.Fallback {
		t.Errorf("expected the fallback summary, got %+v", result.Summary)
	}
	if len(audit.entries) != 1 || audit.entries[0].Outcome != journal.OutcomeApplied {
		t.Errorf("audit = %+v", audit.entries)
	}
	if len(result.Schedule) != 1 {
		t.Errorf("re-expanded schedule has %d blocks, want 1", len(result.Schedule))
	}
}

func TestTellDryRun(t *testing.T) {
	date := futureDate()
	client := &scriptedClient{responses: []string{
		`{"text": "Would add mom.", "operations": [
			{"op": "add_block", "args": {"date": "` + date + `", "provider": "mom", "start": "09:00", "end": "13:00"}}
		]}`,
	}}
	repo := newMemRepo()
	svc := newTestService(t, client, repo, nil)

	result, err := svc.Tell(context.Background(), "mom takes next week", TellOptions{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if result.Apply != nil {
		t.Error("dry run produced an apply result")
	}
	if len(result.Batch.Changes) != 1 {
		t.Errorf("batch has %d changes, want 1", len(result.Batch.Changes))
	}
	if len(repo.blocks) != 0 {
		t.Errorf("dry run wrote %d blocks", len(repo.blocks))
	}
}

func TestTellRetriesOnMalformedOperation(t *testing.T) {
	date := futureDate()
	client := &scriptedClient{responses: []string{
		`{"text": "first try", "operations": [{"op": "add_block", "args": {"provider": "mom"}}]}`,
		`{"text": "second try", "operations": [
			{"op": "add_block", "args": {"date": "` + date + `", "provider": "mom", "start": "09:00", "end": "13:00"}}
		]}`,
		`not json`, // summarizer falls back
	}}
	repo := newMemRepo()
	svc := newTestService(t, client, repo, nil)

	result, err := svc.Tell(context.Background(), "mom takes next week", TellOptions{MaxRetries: 1})
	if err != nil {
		t.Fatal(err)
	}
	if client.calls < 2 {
		t.Errorf("client called %d times, want a retry", client.calls)
	}
	if result.Text != "second try" {
		t.Errorf("Text = %q, want the retried response", result.Text)
	}
	if len(repo.blocks) != 1 {
		t.Errorf("store has %d blocks after retry, want 1", len(repo.blocks))
	}
}

func TestTellRetriesExhausted(t *testing.T) {
	bad := `{"text": "nope", "operations": [{"op": "add_block", "args": {"provider": "mom"}}]}`
	client := &scriptedClient{responses: []string{bad, bad}}
	svc := newTestService(t, client, newMemRepo(), nil)

	_, err := svc.Tell(context.Background(), "mom takes monday", TellOptions{MaxRetries: 1})
	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Errorf("err = %v, want ErrMaxRetriesExceeded", err)
	}
}

func TestTellNoActionRecognized(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"text": "I can only help with the care schedule.", "operations": []}`,
	}}
	svc := newTestService(t, client, newMemRepo(), nil)

	_, err := svc.Tell(context.Background(), "what is the meaning of life", TellOptions{})
	if !errors.Is(err, interpret.ErrNoActionRecognized) {
		t.Errorf("err = %v, want ErrNoActionRecognized", err)
	}
}

func TestAddBlockRejectsOutsideWindow(t *testing.T) {
	svc := newTestService(t, &scriptedClient{}, newMemRepo(), nil)

	late := block.New(time.Now().AddDate(0, 0, 1), 88, 92, block.ProviderDad) // 22:00-23:00
	_, err := svc.AddBlock(context.Background(), late)
	if !errors.Is(err, slot.ErrOutsideCareWindow) {
		t.Errorf("err = %v, want ErrOutsideCareWindow", err)
	}
}

func TestAddBlockResolvesConflicts(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, &scriptedClient{}, repo, nil)
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.Local)

	existing := block.New(day, 36, 44, block.ProviderMom)
	if _, err := repo.Save(context.Background(), existing); err != nil {
		t.Fatal(err)
	}

	incoming := block.New(day, 40, 48, block.ProviderDad)
	result, err := svc.AddBlock(context.Background(), incoming)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Deleted) != 1 || result.Deleted[0].ID != existing.ID {
		t.Errorf("Deleted = %v, want the overlapping block", result.Deleted)
	}
	if len(repo.blocks) != 1 {
		t.Errorf("store has %d blocks, want just the new one", len(repo.blocks))
	}
}

func TestRemoveBlock(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, &scriptedClient{}, repo, nil)
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.Local)

	b := block.New(day, 36, 44, block.ProviderMom)
	if _, err := repo.Save(context.Background(), b); err != nil {
		t.Fatal(err)
	}

	if err := svc.RemoveBlock(context.Background(), day, block.ProviderMom, 36); err != nil {
		t.Fatalf("RemoveBlock failed: %v", err)
	}
	if len(repo.blocks) != 0 {
		t.Error("block still stored")
	}

	err := svc.RemoveBlock(context.Background(), day, block.ProviderMom, 36)
	if !errors.Is(err, block.ErrNotFound) {
		t.Errorf("removing absent block = %v, want ErrNotFound", err)
	}
}

func TestWeekBounds(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(t, &scriptedClient{}, repo, nil)

	// A Wednesday; the week runs Monday through Sunday.
	wed := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.Local)
	_, monday, sunday, err := svc.Week(context.Background(), wed)
	if err != nil {
		t.Fatal(err)
	}
	if monday.Weekday() != time.Monday || sunday.Weekday() != time.Sunday {
		t.Errorf("bounds = %v..%v", monday, sunday)
	}
	if monday.Day() != 2 || sunday.Day() != 8 {
		t.Errorf("week = %v..%v, want Mar 2..Mar 8", monday, sunday)
	}
}
