package media

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	const mib = DefaultChunkSize
	tests := []struct {
		name   string
		header string
		total  int64
		want   Window
	}{
		{"closed range", "bytes=100-199", 1000, Window{100, 199, 1000}},
		{"closed range ending on last byte", "bytes=0-999", 1000, Window{0, 999, 1000}},
		{"end past total is clamped", "bytes=10-5000", 1000, Window{10, 999, 1000}},
		{"open ended small file", "bytes=0-", 500000, Window{0, 499999, 500000}},
		{"open ended large file", "bytes=0-", 10 * mib, Window{0, mib - 1, 10 * mib}},
		{"open ended near end", "bytes=5-", mib + 2, Window{5, mib + 1, mib + 2}},
		{"open ended mid file", "bytes=2048-", 10 * mib, Window{2048, 2048 + mib - 1, 10 * mib}},
		{"unparseable start is zero", "bytes=abc-9", 100, Window{0, 9, 100}},
		{"missing start reads end", "bytes=-50", 100, Window{0, 50, 100}},
		{"only first of many ranges", "bytes=0-9, 20-29", 100, Window{0, 9, 100}},
		{"no unit prefix", "3-4", 100, Window{3, 4, 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.header, tt.total)
			if err != nil {
				t.Fatalf("Resolve(%q, %d): %v", tt.header, tt.total, err)
			}
			if got != tt.want {
				t.Fatalf("Resolve(%q, %d) = %+v, want %+v", tt.header, tt.total, got, tt.want)
			}
			if got.Size() != tt.want.End-tt.want.Start+1 {
				t.Fatalf("Size() = %d", got.Size())
			}
		})
	}
}

func TestResolve_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
		total  int64
		want   error
	}{
		{"missing header", "", 100, ErrMissingRange},
		{"blank header", "   ", 100, ErrMissingRange},
		{"start at total", "bytes=100-", 100, ErrUnsatisfiable},
		{"start past total", "bytes=500-600", 100, ErrUnsatisfiable},
		{"end before start", "bytes=50-10", 100, ErrUnsatisfiable},
		{"empty resource", "bytes=0-", 0, ErrUnsatisfiable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.header, tt.total)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResolve_MissingIsDistinctFromUnsatisfiable(t *testing.T) {
	_, err := Resolve("", 10)
	if errors.Is(err, ErrUnsatisfiable) {
		t.Fatal("missing header classified as unsatisfiable")
	}
}

func TestResolveChunk_CustomChunk(t *testing.T) {
	got, err := ResolveChunk("bytes=10-", 1000, 100)
	if err != nil {
		t.Fatal(err)
	}
	if got.End != 109 {
		t.Fatalf("End = %d, want 109", got.End)
	}
	got, err = ResolveChunk("bytes=0-", 1000, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.End != 999 {
		t.Fatalf("non-positive chunk should fall back to default, End = %d", got.End)
	}
}

func TestWindow_ContentRange(t *testing.T) {
	w := Window{Start: 0, End: 499999, Total: 500000}
	if got := w.ContentRange(); got != "bytes 0-499999/500000" {
		t.Fatalf("ContentRange() = %q", got)
	}
}
