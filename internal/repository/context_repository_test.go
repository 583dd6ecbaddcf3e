package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"alienx-go/internal/model"
)

func TestMemoryContextAppendAndSnapshot(t *testing.T) {
	repo := NewMemoryContextRepository(8)
	ctx := context.Background()

	turns := []model.Turn{
		{Role: model.RoleUser, Text: "hello"},
		{Role: model.RoleAssistant, Text: "hi there"},
	}
	for _, turn := range turns {
		if err := repo.Append(ctx, "s1", turn); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := repo.Snapshot(ctx, "s1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
	for i := range turns {
		if got[i] != turns[i] {
			t.Errorf("turn %d = %+v, want %+v", i, got[i], turns[i])
		}
	}
}

func TestMemoryContextEvictsOldest(t *testing.T) {
	repo := NewMemoryContextRepository(8)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		turn := model.Turn{Role: model.RoleUser, Text: fmt.Sprintf("turn-%d", i)}
		if err := repo.Append(ctx, "s1", turn); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.Snapshot(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 8 {
		t.Fatalf("expected context bounded to 8 turns, got %d", len(got))
	}
	// 淘汰最早的 4 条，剩余保持先后顺序
	if got[0].Text != "turn-4" || got[7].Text != "turn-11" {
		t.Errorf("unexpected window: first=%q last=%q", got[0].Text, got[7].Text)
	}
}

func TestMemoryContextSnapshotIsCopy(t *testing.T) {
	repo := NewMemoryContextRepository(8)
	ctx := context.Background()

	if err := repo.Append(ctx, "s1", model.Turn{Role: model.RoleUser, Text: "original"}); err != nil {
		t.Fatal(err)
	}

	snapshot, _ := repo.Snapshot(ctx, "s1")
	snapshot[0].Text = "mutated"

	fresh, _ := repo.Snapshot(ctx, "s1")
	if fresh[0].Text != "original" {
		t.Error("mutating a snapshot must not affect the stored context")
	}
}

func TestMemoryContextClear(t *testing.T) {
	repo := NewMemoryContextRepository(8)
	ctx := context.Background()

	if err := repo.Append(ctx, "s1", model.Turn{Role: model.RoleUser, Text: "hello"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Clear(ctx, "s1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	got, _ := repo.Snapshot(ctx, "s1")
	if len(got) != 0 {
		t.Errorf("expected empty context after clear, got %d turns", len(got))
	}

	// 清空不存在的会话同样成功
	if err := repo.Clear(ctx, "never-seen"); err != nil {
		t.Errorf("Clear on unknown session: %v", err)
	}
}

func TestMemoryContextSessionIsolation(t *testing.T) {
	repo := NewMemoryContextRepository(8)
	ctx := context.Background()

	if err := repo.Append(ctx, "s1", model.Turn{Role: model.RoleUser, Text: "for s1"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Append(ctx, "s2", model.Turn{Role: model.RoleUser, Text: "for s2"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Clear(ctx, "s2"); err != nil {
		t.Fatal(err)
	}

	s1, _ := repo.Snapshot(ctx, "s1")
	if len(s1) != 1 || s1[0].Text != "for s1" {
		t.Errorf("clearing s2 must not touch s1, got %+v", s1)
	}
}

func TestMemoryContextConcurrentAppends(t *testing.T) {
	repo := NewMemoryContextRepository(8)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("s%d", i%4)
			for j := 0; j < 16; j++ {
				_ = repo.Append(ctx, sessionID, model.Turn{Role: model.RoleUser, Text: "x"})
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		got, err := repo.Snapshot(ctx, fmt.Sprintf("s%d", i))
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 8 {
			t.Errorf("session s%d: expected 8 turns after concurrent appends, got %d", i, len(got))
		}
	}
}
