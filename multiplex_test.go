package reactz

import (
	"context"
	"sort"
	"testing"
)

func TestMultiplex_TagsBySource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tagged := Multiplex(ctx, map[string]*Channel[int]{
		"kitchen": FromSlice(20, 21),
		"garage":  FromSlice(5),
	})

	outputs, err := collect(t, ctx, tagged)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var labels []string
	for _, o := range outputs {
		labels = append(labels, o.String())
	}
	sort.Strings(labels)

	expected := []string{"garage: 5", "kitchen: 20", "kitchen: 21"}
	if !equalSlices(labels, expected) {
		t.Errorf("expected %v, got %v", expected, labels)
	}
}

func TestDemultiplex(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tagged := Multiplex(ctx, map[int]*Channel[string]{
		1: FromSlice("a", "b", "c"),
		2: FromSlice("x", "y"),
	})

	outputs, err := collect(t, ctx, Demultiplex(ctx, tagged, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalSlices(outputs, []string{"a", "b", "c"}) {
		t.Errorf("expected [a b c] in order, got %v", outputs)
	}
}
