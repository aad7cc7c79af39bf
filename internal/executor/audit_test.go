package executor

import (
	"fmt"
	"sync"
	"testing"
)

func TestCommandLog_EvictsOldest(t *testing.T) {
	log := NewCommandLog(3)
	for i := 0; i < 5; i++ {
		log.Add(AuditEntry{ID: fmt.Sprintf("e%d", i)})
	}

	if log.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", log.Len())
	}

	got := log.Entries(0, 0)
	want := []string{"e4", "e3", "e2"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("Entries()[%d].ID = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestCommandLog_OffsetLimit(t *testing.T) {
	log := NewCommandLog(10)
	for i := 0; i < 6; i++ {
		log.Add(AuditEntry{ID: fmt.Sprintf("e%d", i)})
	}

	tests := []struct {
		name   string
		offset int
		limit  int
		want   []string
	}{
		{"all", 0, 0, []string{"e5", "e4", "e3", "e2", "e1", "e0"}},
		{"first two", 0, 2, []string{"e5", "e4"}},
		{"page two", 2, 2, []string{"e3", "e2"}},
		{"tail", 4, 10, []string{"e1", "e0"}},
		{"past end", 6, 2, []string{}},
		{"negative offset", -3, 1, []string{"e5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := log.Entries(tt.offset, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("Entries(%d, %d) len = %d, want %d", tt.offset, tt.limit, len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i].ID != tt.want[i] {
					t.Errorf("Entries()[%d].ID = %q, want %q", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

func TestCommandLog_WrapAroundOrdering(t *testing.T) {
	log := NewCommandLog(100)
	for i := 0; i < 250; i++ {
		log.Add(AuditEntry{ID: fmt.Sprintf("e%d", i)})
	}

	got := log.Entries(0, 0)
	if len(got) != 100 {
		t.Fatalf("len = %d, want 100", len(got))
	}
	if got[0].ID != "e249" || got[99].ID != "e150" {
		t.Errorf("newest/oldest = %s/%s, want e249/e150", got[0].ID, got[99].ID)
	}
}

func TestCommandLog_Clear(t *testing.T) {
	log := NewCommandLog(5)
	log.Add(AuditEntry{ID: "a"})
	log.Add(AuditEntry{ID: "b"})

	log.Clear()

	if log.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", log.Len())
	}
	if got := log.Entries(0, 0); len(got) != 0 {
		t.Errorf("Entries() after Clear = %v, want empty", got)
	}

	log.Add(AuditEntry{ID: "c"})
	if got := log.Entries(0, 0); len(got) != 1 || got[0].ID != "c" {
		t.Errorf("Entries() = %v, want [c]", got)
	}
}

func TestCommandLog_Concurrent(t *testing.T) {
	log := NewCommandLog(50)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				log.Add(AuditEntry{ID: fmt.Sprintf("%d-%d", g, i)})
				_ = log.Entries(0, 5)
			}
		}(g)
	}
	wg.Wait()

	if log.Len() != 50 {
		t.Errorf("Len() = %d, want 50", log.Len())
	}
}
