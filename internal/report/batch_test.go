package report

import (
	"fmt"
	"testing"
)

func TestPartitionChunksAlbums(t *testing.T) {
	var images []string
	for i := 0; i < 25; i++ {
		images = append(images, fmt.Sprintf("fig_%d.png", i))
	}

	b := Partition(images, nil)
	if len(b.Albums) != 3 {
		t.Fatalf("expected 3 albums, got %d", len(b.Albums))
	}
	if len(b.Albums[0]) != 10 || len(b.Albums[1]) != 10 || len(b.Albums[2]) != 5 {
		t.Fatalf("unexpected album sizes: %d/%d/%d", len(b.Albums[0]), len(b.Albums[1]), len(b.Albums[2]))
	}
	if b.Albums[0][0] != "fig_0.png" || b.Albums[2][4] != "fig_24.png" {
		t.Fatalf("album order not preserved: %v", b.Albums)
	}
	if len(b.Documents) != 0 {
		t.Fatalf("expected no documents, got %v", b.Documents)
	}
}

func TestPartitionDemotesNonPhotos(t *testing.T) {
	b := Partition(
		[]string{"plot.png", "diagram.svg", "photo.JPG"},
		[]string{"results.csv", "model.bin"},
	)
	if len(b.Albums) != 1 || len(b.Albums[0]) != 2 {
		t.Fatalf("expected one album of 2 photos, got %v", b.Albums)
	}
	want := []string{"diagram.svg", "results.csv", "model.bin"}
	if len(b.Documents) != len(want) {
		t.Fatalf("expected %d documents, got %v", len(want), b.Documents)
	}
	for i, w := range want {
		if b.Documents[i] != w {
			t.Fatalf("document %d: expected %q, got %q", i, w, b.Documents[i])
		}
	}
}

func TestPartitionEmpty(t *testing.T) {
	b := Partition(nil, nil)
	if !b.Empty() {
		t.Fatalf("expected empty batches, got %+v", b)
	}
	b = Partition([]string{""}, []string{""})
	if !b.Empty() {
		t.Fatalf("blank paths should be dropped, got %+v", b)
	}
}

func TestIsPhoto(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"a.png", true},
		{"a.PNG", true},
		{"a.jpeg", true},
		{"a.webp", true},
		{"a.gif", false},
		{"a.pdf", false},
		{"noext", false},
	}
	for _, c := range cases {
		if got := IsPhoto(c.path); got != c.want {
			t.Fatalf("IsPhoto(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}
