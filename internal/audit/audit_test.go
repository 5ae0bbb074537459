package audit

import (
	"context"
	"testing"
	"time"

	"github.com/perito-digital/platform/internal/shared/types"
)

func appendEntries(t *testing.T, repo *MemoryRepository, n int) []*Entry {
	t.Helper()

	actorID := types.NewID()
	caseID := types.NewID()

	entries := make([]*Entry, 0, n)
	for i := 0; i < n; i++ {
		entry := NewEntry(actorID, "Dra. Helena", "perito", ActionCaseUpdated, &caseID,
			map[string]any{"campo": "descricao", "indice": i}, repo.GetLastHash())
		if err := repo.Append(context.Background(), entry); err != nil {
			t.Fatalf("failed to append entry: %v", err)
		}
		entries = append(entries, entry)
	}
	return entries
}

// TestHashChain tests that entries form a valid hash chain
func TestHashChain(t *testing.T) {
	repo := NewMemoryRepository()
	entries := appendEntries(t, repo, 5)

	for i, entry := range entries {
		if !entry.VerifyHash() {
			t.Errorf("entry %d failed content verification", i)
		}
		if i == 0 {
			if entry.PrevHash != "" {
				t.Error("first entry should have empty prev_hash")
			}
			continue
		}
		if entry.PrevHash != entries[i-1].Hash {
			t.Errorf("entry %d prev_hash doesn't link to entry %d", i, i-1)
		}
	}

	if repo.GetLastHash() != entries[len(entries)-1].Hash {
		t.Error("repository last hash should match the newest entry")
	}
}

// TestVerifyChainValid tests chain verification on an untouched chain
func TestVerifyChainValid(t *testing.T) {
	repo := NewMemoryRepository()
	appendEntries(t, repo, 10)

	result, err := repo.VerifyChain(context.Background(), 100, false)
	if err != nil {
		t.Fatalf("VerifyChain failed: %v", err)
	}

	if !result.Valid {
		t.Errorf("expected valid chain, got violations: %v", result.Violations)
	}
	if result.Checked != 10 {
		t.Errorf("expected 10 checked entries, got %d", result.Checked)
	}
	if result.ContentInvalid != 0 || result.LinkageInvalid != 0 {
		t.Error("expected no invalid entries")
	}
}

// TestVerifyChainDetectsContentTampering tests that editing a stored entry is detected
func TestVerifyChainDetectsContentTampering(t *testing.T) {
	repo := NewMemoryRepository()
	entries := appendEntries(t, repo, 5)

	// Mutate a middle entry's payload without recomputing its hash
	entries[2].Details["campo"] = "adulterado"

	result, err := repo.VerifyChain(context.Background(), 100, true)
	if err != nil {
		t.Fatalf("VerifyChain failed: %v", err)
	}

	if result.Valid {
		t.Fatal("expected tampered chain to be invalid")
	}
	if result.ContentInvalid != 1 {
		t.Errorf("expected exactly 1 content violation, got %d", result.ContentInvalid)
	}

	found := false
	for _, e := range result.Entries {
		if e.ID == entries[2].ID && !e.ContentValid {
			found = true
		}
	}
	if !found {
		t.Error("expected the tampered entry to be flagged in details")
	}
}

// TestVerifyChainDetectsBrokenLinkage tests that rewriting hashes breaks linkage
func TestVerifyChainDetectsBrokenLinkage(t *testing.T) {
	repo := NewMemoryRepository()
	entries := appendEntries(t, repo, 5)

	// Rewrite an entry AND fix its own hash. Content check passes,
	// but the next entry's prev_hash no longer matches.
	entries[2].Details["campo"] = "adulterado"
	entries[2].Hash = entries[2].ComputeHash()

	result, err := repo.VerifyChain(context.Background(), 100, false)
	if err != nil {
		t.Fatalf("VerifyChain failed: %v", err)
	}

	if result.Valid {
		t.Fatal("expected broken linkage to invalidate the chain")
	}
	if result.LinkageInvalid == 0 {
		t.Error("expected at least one linkage violation")
	}
}

// TestCanonicalJSONDeterminism tests that map ordering doesn't affect hashes
func TestCanonicalJSONDeterminism(t *testing.T) {
	a := map[string]any{"b": 2, "a": 1, "c": map[string]any{"z": true, "y": []any{1, "x"}}}
	b := map[string]any{"c": map[string]any{"y": []any{1, "x"}, "z": true}, "a": 1, "b": 2}

	ja, err := canonicalJSON(a)
	if err != nil {
		t.Fatalf("canonicalJSON failed: %v", err)
	}
	jb, err := canonicalJSON(b)
	if err != nil {
		t.Fatalf("canonicalJSON failed: %v", err)
	}

	if string(ja) != string(jb) {
		t.Errorf("canonical JSON differs:\n%s\n%s", ja, jb)
	}

	want := `{"a":1,"b":2,"c":{"y":[1,"x"],"z":true}}`
	if string(ja) != want {
		t.Errorf("expected %s, got %s", want, ja)
	}
}

// TestEntryHashIgnoresTimezone tests that hashing is timezone-independent
func TestEntryHashIgnoresTimezone(t *testing.T) {
	entry := NewEntry(types.NewID(), "Perito", "perito", ActionCaseCreated, nil, nil, "")

	original := entry.ComputeHash()

	loc := time.FixedZone("UTC-3", -3*60*60)
	entry.Timestamp = entry.Timestamp.In(loc)

	if entry.ComputeHash() != original {
		t.Error("hash changed after timezone conversion")
	}
}

// TestListFilters tests the filters of the in-memory listing
func TestListFilters(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	actor1 := types.NewID()
	actor2 := types.NewID()
	case1 := types.NewID()

	e1 := NewEntry(actor1, "A", "perito", ActionCaseCreated, &case1, nil, repo.GetLastHash())
	if err := repo.Append(ctx, e1); err != nil {
		t.Fatal(err)
	}
	e2 := NewEntry(actor2, "B", "admin", ActionCaseFinalized, &case1, nil, repo.GetLastHash())
	if err := repo.Append(ctx, e2); err != nil {
		t.Fatal(err)
	}
	e3 := NewEntry(actor1, "A", "perito", ActionVictimCreated, nil, nil, repo.GetLastHash())
	if err := repo.Append(ctx, e3); err != nil {
		t.Fatal(err)
	}

	t.Run("by actor", func(t *testing.T) {
		entries, total, err := repo.List(ctx, ListFilter{ActorID: &actor1})
		if err != nil {
			t.Fatal(err)
		}
		if total != 2 || len(entries) != 2 {
			t.Errorf("expected 2 entries for actor1, got %d (total %d)", len(entries), total)
		}
	})

	t.Run("by case", func(t *testing.T) {
		entries, err := repo.GetByCase(ctx, case1, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 2 {
			t.Errorf("expected 2 entries for case, got %d", len(entries))
		}
		// Newest first
		if entries[0].ID != e2.ID {
			t.Error("expected newest entry first")
		}
	})

	t.Run("by action", func(t *testing.T) {
		entries, total, err := repo.List(ctx, ListFilter{Action: ActionVictimCreated})
		if err != nil {
			t.Fatal(err)
		}
		if total != 1 || entries[0].ID != e3.ID {
			t.Errorf("expected only the victim entry, got %d", total)
		}
	})
}

// TestFindByID tests looking up a single entry
func TestFindByID(t *testing.T) {
	repo := NewMemoryRepository()
	entries := appendEntries(t, repo, 3)

	found, err := repo.FindByID(context.Background(), entries[1].ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found.Hash != entries[1].Hash {
		t.Error("found entry doesn't match")
	}

	if _, err := repo.FindByID(context.Background(), types.NewID()); err == nil {
		t.Error("expected not found error for unknown ID")
	}
}
