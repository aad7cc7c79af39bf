package graph

import (
	"reflect"
	"testing"

	"gitnet/internal/errors"
	"gitnet/internal/model"
)

func TestLineage(t *testing.T) {
	data := Layout(Input{Commits: history()}, DefaultOptions())

	tests := []struct {
		focus           string
		wantAncestors   []string
		wantDescendants []string
	}{
		{"a", []string{"a"}, []string{"a", "b", "d1", "m", "f1", "f2"}},
		{"m", []string{"m", "b", "a", "f2", "f1"}, []string{"m"}},
		{"f1", []string{"f1", "a"}, []string{"f1", "f2", "m"}},
		{"d1", []string{"d1", "b", "a"}, []string{"d1"}},
	}

	for _, tt := range tests {
		t.Run(tt.focus, func(t *testing.T) {
			got, err := Lineage(data, tt.focus)
			if err != nil {
				t.Fatalf("Lineage() error = %v", err)
			}
			if !reflect.DeepEqual(got.Ancestors, tt.wantAncestors) {
				t.Errorf("Ancestors = %v, want %v", got.Ancestors, tt.wantAncestors)
			}
			if !reflect.DeepEqual(got.Descendants, tt.wantDescendants) {
				t.Errorf("Descendants = %v, want %v", got.Descendants, tt.wantDescendants)
			}
		})
	}
}

func TestLineage_DiamondVisitsOnce(t *testing.T) {
	// a ← b ← d, a ← c ← d
	data := Layout(Input{Commits: []model.Commit{
		commit("d", 4, "main", "b", "c"),
		commit("c", 3, "topic", "a"),
		commit("b", 2, "main", "a"),
		commit("a", 1, "main"),
	}}, DefaultOptions())

	got, err := Lineage(data, "d")
	if err != nil {
		t.Fatalf("Lineage() error = %v", err)
	}
	if len(got.Ancestors) != 4 {
		t.Errorf("Ancestors = %v, want 4 distinct nodes", got.Ancestors)
	}
	if !got.Contains("a") || !got.Contains("c") || got.Contains("zzz") {
		t.Errorf("Contains() mismatch for %+v", got)
	}
}

func TestLineage_UnknownFocus(t *testing.T) {
	data := Layout(Input{Commits: history()}, DefaultOptions())

	_, err := Lineage(data, "nope")
	if !errors.IsCode(err, errors.NotFound) {
		t.Errorf("Lineage() error = %v, want NOT_FOUND", err)
	}
}

func TestLineage_LongChain(t *testing.T) {
	const n = 20000
	commits := make([]model.Commit, n)
	for i := 0; i < n; i++ {
		var parents []string
		if i > 0 {
			parents = []string{hashOf(i - 1)}
		}
		commits[n-1-i] = commit(hashOf(i), int64(i), "main", parents...)
	}
	data := Layout(Input{Commits: commits}, DefaultOptions())

	got, err := Lineage(data, hashOf(n-1))
	if err != nil {
		t.Fatalf("Lineage() error = %v", err)
	}
	if len(got.Ancestors) != n {
		t.Errorf("len(Ancestors) = %d, want %d", len(got.Ancestors), n)
	}
}

func hashOf(i int) string {
	const digits = "0123456789abcdef"
	b := []byte("c0000000")
	for pos := len(b) - 1; i > 0 && pos > 0; pos-- {
		b[pos] = digits[i%16]
		i /= 16
	}
	return string(b)
}
