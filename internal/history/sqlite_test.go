package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"calcnotify/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "history.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPushAndRecent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		err := st.Push(ctx, Record{
			Name:       "sim",
			Folder:     filepath.Join("h", "sim", "r", string(rune('a'+i))),
			MessageIDs: []int{100 + i},
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Push %d: %v", i, err)
		}
	}

	recent, err := st.Recent(ctx, "sim", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recent))
	}
	if recent[0].MessageIDs[0] != 102 || recent[1].MessageIDs[0] != 101 {
		t.Fatalf("expected newest first, got %v then %v", recent[0].MessageIDs, recent[1].MessageIDs)
	}

	// Other names are isolated.
	other, err := st.Recent(ctx, "other", 10)
	if err != nil {
		t.Fatalf("Recent other: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no records for other name, got %d", len(other))
	}
}

func TestPruneKeepLast(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		err := st.Push(ctx, Record{
			Name:       "sim",
			Folder:     "f",
			MessageIDs: []int{i},
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Push %d: %v", i, err)
		}
	}

	popped, err := st.PruneKeepLast(ctx, "sim", 2)
	if err != nil {
		t.Fatalf("PruneKeepLast: %v", err)
	}
	if len(popped) != 3 {
		t.Fatalf("expected 3 popped records, got %d", len(popped))
	}
	// Oldest first, so the caller deletes chat messages top-down.
	for i, r := range popped {
		if r.MessageIDs[0] != i {
			t.Fatalf("popped[%d] has ids %v, want [%d]", i, r.MessageIDs, i)
		}
	}

	left, err := st.Recent(ctx, "sim", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(left) != 2 {
		t.Fatalf("expected 2 records left, got %d", len(left))
	}

	// Pruning again is a no-op.
	popped, err = st.PruneKeepLast(ctx, "sim", 2)
	if err != nil {
		t.Fatalf("PruneKeepLast again: %v", err)
	}
	if len(popped) != 0 {
		t.Fatalf("expected nothing to pop, got %d", len(popped))
	}
}

func TestPushEnforcesCap(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-24 * time.Hour)
	for i := 0; i < maxRecordsPerName+15; i++ {
		err := st.Push(ctx, Record{
			Name:       "sim",
			Folder:     "f",
			MessageIDs: []int{i},
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Push %d: %v", i, err)
		}
	}

	all, err := st.Recent(ctx, "sim", 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != maxRecordsPerName {
		t.Fatalf("expected %d records after cap, got %d", maxRecordsPerName, len(all))
	}
	// The newest rows survive.
	if all[0].MessageIDs[0] != maxRecordsPerName+14 {
		t.Fatalf("unexpected newest record ids: %v", all[0].MessageIDs)
	}
}

func TestRecordSystemError(t *testing.T) {
	st := openTestStore(t)
	if err := st.RecordSystemError(context.Background(), 4242); err != nil {
		t.Fatalf("RecordSystemError: %v", err)
	}
}
