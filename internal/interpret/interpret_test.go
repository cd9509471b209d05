package interpret

import (
	"errors"
	"testing"
	"time"

	"github.com/johnh2o2/coparent-sub000/internal/block"
	"github.com/johnh2o2/coparent-sub000/internal/change"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestChangeTime(t *testing.T) {
	mon := day(2026, time.March, 2)
	it := New("alex")

	t.Run("rewrites the matching block", func(t *testing.T) {
		stored := block.New(mon, 36, 44, block.ProviderMom)
		stored.Notes = "swim class"

		changes, err := it.Interpret(op(OpChangeTime,
			`{"date":"2026-03-02","provider":"mom","start":"10:00","end":"14:00"}`),
			[]*block.TimeBlock{stored})
		if err != nil {
			t.Fatal(err)
		}
		if len(changes) != 1 {
			t.Fatalf("got %d changes, want 1", len(changes))
		}
		c := changes[0]
		if c.Kind != change.KindChangeTime || c.Original != stored {
			t.Errorf("change = %+v, want change_time of the stored block", c)
		}
		if c.Proposed.StartSlot != 40 || c.Proposed.EndSlot != 56 {
			t.Errorf("proposed slots [%d,%d), want [40,56)", c.Proposed.StartSlot, c.Proposed.EndSlot)
		}
		if c.Proposed.Notes != "swim class" {
			t.Errorf("notes %q not inherited", c.Proposed.Notes)
		}
		if !c.AISuggested || c.RequestedBy != "alex" {
			t.Errorf("attribution wrong: %+v", c)
		}
	})

	t.Run("keeps the stored identity on a non-overlapping move", func(t *testing.T) {
		stored := block.New(mon, 32, 48, block.ProviderMom) // 08:00-12:00
		stored.CreatedAt = day(2026, time.February, 1)

		changes, err := it.Interpret(op(OpChangeTime,
			`{"date":"2026-03-02","provider":"mom","start":"14:00","end":"16:00"}`),
			[]*block.TimeBlock{stored})
		if err != nil {
			t.Fatal(err)
		}
		p := changes[0].Proposed
		if p.ID != stored.ID {
			t.Errorf("proposed ID = %q, want the stored block's %q", p.ID, stored.ID)
		}
		if !p.CreatedAt.Equal(stored.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", p.CreatedAt, stored.CreatedAt)
		}
		if p.StartSlot != 56 || p.EndSlot != 64 {
			t.Errorf("proposed slots [%d,%d), want [56,64)", p.StartSlot, p.EndSlot)
		}
	})

	t.Run("absent original keeps a fresh identity", func(t *testing.T) {
		changes, err := it.Interpret(op(OpChangeTime,
			`{"date":"2026-03-02","provider":"dad","start":"10:00","end":"14:00"}`), nil)
		if err != nil {
			t.Fatal(err)
		}
		if changes[0].Original != nil {
			t.Errorf("Original = %v, want nil", changes[0].Original)
		}
		if changes[0].Proposed == nil {
			t.Fatal("Proposed = nil")
		}
		if changes[0].Proposed.ID == "" {
			t.Error("proposed block has no identity")
		}
	})
}

func TestSwapDays(t *testing.T) {
	mon := day(2026, time.March, 2)
	tue := day(2026, time.March, 3)
	it := New("alex")

	momMon := block.New(mon, 36, 52, block.ProviderMom)
	dadTue := block.New(tue, 40, 60, block.ProviderDad)

	t.Run("exchanges providers, keeps times and ids", func(t *testing.T) {
		changes, err := it.Interpret(op(OpSwapDays,
			`{"date_a":"2026-03-02","date_b":"2026-03-03"}`),
			[]*block.TimeBlock{momMon, dadTue})
		if err != nil {
			t.Fatal(err)
		}
		c := changes[0]
		if c.Proposed.Provider != block.ProviderDad || c.Proposed.ID != momMon.ID {
			t.Errorf("side A = %q/%q, want dad with A's id", c.Proposed.Provider, c.Proposed.ID)
		}
		if c.Proposed.StartSlot != 36 || c.Proposed.EndSlot != 52 {
			t.Errorf("side A slots changed: [%d,%d)", c.Proposed.StartSlot, c.Proposed.EndSlot)
		}
		if c.SecondaryProposed.Provider != block.ProviderMom || c.SecondaryProposed.ID != dadTue.ID {
			t.Errorf("side B = %q/%q, want mom with B's id",
				c.SecondaryProposed.Provider, c.SecondaryProposed.ID)
		}
	})

	t.Run("picks the earliest block on a multi-block day", func(t *testing.T) {
		lateMon := block.New(mon, 60, 70, block.ProviderNanny)
		changes, err := it.Interpret(op(OpSwapDays,
			`{"date_a":"2026-03-02","date_b":"2026-03-03"}`),
			[]*block.TimeBlock{lateMon, momMon, dadTue})
		if err != nil {
			t.Fatal(err)
		}
		if changes[0].Original.ID != momMon.ID {
			t.Errorf("picked %v, want the 09:00 block", changes[0].Original.TimeRange())
		}
	})

	t.Run("missing side fails", func(t *testing.T) {
		_, err := it.Interpret(op(OpSwapDays,
			`{"date_a":"2026-03-02","date_b":"2026-03-04"}`),
			[]*block.TimeBlock{momMon, dadTue})
		var opErr *OpError
		if !errors.As(err, &opErr) {
			t.Fatalf("err = %v, want *OpError", err)
		}
	})
}

func TestRemoveBlockMatchesExactly(t *testing.T) {
	mon := day(2026, time.March, 2)
	it := New("alex")
	stored := block.New(mon, 36, 44, block.ProviderMom)

	t.Run("match", func(t *testing.T) {
		changes, err := it.Interpret(op(OpRemoveBlock,
			`{"date":"2026-03-02","provider":"mom","start":"09:00"}`),
			[]*block.TimeBlock{stored})
		if err != nil {
			t.Fatal(err)
		}
		if changes[0].Original != stored {
			t.Errorf("Original = %v, want the stored block", changes[0].Original)
		}
	})

	t.Run("wrong start slot yields a no-op removal", func(t *testing.T) {
		changes, err := it.Interpret(op(OpRemoveBlock,
			`{"date":"2026-03-02","provider":"mom","start":"10:00"}`),
			[]*block.TimeBlock{stored})
		if err != nil {
			t.Fatal(err)
		}
		if changes[0].Original != nil {
			t.Errorf("Original = %v, want nil", changes[0].Original)
		}
	})
}

func TestClearDay(t *testing.T) {
	mon := day(2026, time.March, 2)
	it := New("alex")

	momMon := block.New(mon, 36, 44, block.ProviderMom)
	dadMon := block.New(mon, 52, 60, block.ProviderDad)
	tmplMon := block.New(day(2026, time.February, 23), 64, 72, block.ProviderNanny)
	tmplMon.Recurrence = block.RecurrenceWeekly // Monday anchor
	tmplTue := block.New(day(2026, time.February, 24), 64, 72, block.ProviderNanny)
	tmplTue.Recurrence = block.RecurrenceWeekly
	snapshot := []*block.TimeBlock{momMon, dadMon, tmplMon, tmplTue}

	t.Run("concrete only by default", func(t *testing.T) {
		changes, err := it.Interpret(op(OpClearDay, `{"date":"2026-03-02"}`), snapshot)
		if err != nil {
			t.Fatal(err)
		}
		if len(changes) != 2 {
			t.Fatalf("got %d removals, want 2", len(changes))
		}
	})

	t.Run("clear_recurring adds same-weekday templates", func(t *testing.T) {
		changes, err := it.Interpret(op(OpClearDay,
			`{"date":"2026-03-02","clear_recurring":true}`), snapshot)
		if err != nil {
			t.Fatal(err)
		}
		if len(changes) != 3 {
			t.Fatalf("got %d removals, want 3", len(changes))
		}
		for _, c := range changes {
			if c.Original.ID == tmplTue.ID {
				t.Error("Tuesday template swept up by a Monday clear")
			}
		}
	})

	t.Run("provider filter narrows", func(t *testing.T) {
		changes, err := it.Interpret(op(OpClearDay,
			`{"date":"2026-03-02","provider":"dad"}`), snapshot)
		if err != nil {
			t.Fatal(err)
		}
		if len(changes) != 1 || changes[0].Original.ID != dadMon.ID {
			t.Fatalf("changes = %v, want just dad's block", changes)
		}
	})
}

func TestSetWeeklyScheduleReplacesEverything(t *testing.T) {
	it := New("alex")
	old := block.New(day(2026, time.February, 25), 36, 44, block.ProviderMom)

	// start_date is a Wednesday; the Monday entry anchors the following Monday.
	changes, err := it.Interpret(op(OpSetWeeklySchedule,
		`{"start_date":"2026-03-04","weeks":4,"entries":[
			{"weekday":"monday","provider":"mom","start":"08:00","end":"18:00"},
			{"weekday":"wednesday","provider":"dad","start":"08:00","end":"18:00"}
		]}`),
		[]*block.TimeBlock{old})
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 3 {
		t.Fatalf("got %d changes, want 1 removal + 2 additions", len(changes))
	}
	if changes[0].Kind != change.KindRemoveBlock || changes[0].Original != old {
		t.Errorf("change 0 = %+v, want removal of the stored block", changes[0])
	}

	monTmpl := changes[1].Proposed
	if monTmpl.Recurrence != block.RecurrenceWeekly {
		t.Errorf("Recurrence = %q, want weekly", monTmpl.Recurrence)
	}
	if monTmpl.Day.Weekday() != time.Monday || monTmpl.Day.Day() != 9 {
		t.Errorf("Monday anchor = %v, want 2026-03-09", monTmpl.Day)
	}
	wedTmpl := changes[2].Proposed
	if wedTmpl.Day.Weekday() != time.Wednesday || wedTmpl.Day.Day() != 4 {
		t.Errorf("Wednesday anchor = %v, want the start date itself", wedTmpl.Day)
	}

	wantEnd := day(2026, time.April, 1) // start + 4 weeks
	if monTmpl.RecurrenceEnd == nil || !monTmpl.RecurrenceEnd.Equal(wantEnd) {
		t.Errorf("RecurrenceEnd = %v, want %v", monTmpl.RecurrenceEnd, wantEnd)
	}
}

func TestBuildBatch(t *testing.T) {
	it := New("alex")

	t.Run("joins texts and collects changes", func(t *testing.T) {
		resp := Response{
			Texts: []string{"Sure,", "moving mom to the afternoon."},
			Operations: []Operation{op(OpAddBlock,
				`{"date":"2026-03-02","provider":"mom","start":"13:00","end":"17:00"}`)},
		}
		batch, err := it.BuildBatch(resp, nil, "mom afternoons")
		if err != nil {
			t.Fatal(err)
		}
		if batch.Summary != "Sure, moving mom to the afternoon." {
			t.Errorf("Summary = %q", batch.Summary)
		}
		if batch.CommandText != "mom afternoons" || len(batch.Changes) != 1 {
			t.Errorf("batch = %+v", batch)
		}
	})

	t.Run("no changes at all is a recognized failure", func(t *testing.T) {
		resp := Response{Texts: []string{"I can't tell what you mean."}}
		_, err := it.BuildBatch(resp, nil, "gibberish")
		if !errors.Is(err, ErrNoActionRecognized) {
			t.Errorf("err = %v, want ErrNoActionRecognized", err)
		}
	})

	t.Run("one bad operation fails the whole response", func(t *testing.T) {
		resp := Response{Operations: []Operation{
			op(OpAddBlock, `{"date":"2026-03-02","provider":"mom","start":"13:00","end":"17:00"}`),
			op("reticulate_splines", `{}`),
		}}
		_, err := it.BuildBatch(resp, nil, "cmd")
		var opErr *OpError
		if !errors.As(err, &opErr) {
			t.Fatalf("err = %v, want *OpError", err)
		}
		if opErr.Op != "reticulate_splines" {
			t.Errorf("Op = %q", opErr.Op)
		}
	})
}
