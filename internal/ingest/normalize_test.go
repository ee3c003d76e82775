package ingest

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text trimmed only",
			in:   "  fixed the pool leak\n",
			want: "fixed the pool leak",
		},
		{
			name: "code with angle brackets untouched",
			in:   "if a < b { return a }",
			want: "if a < b { return a }",
		},
		{
			name: "generics untouched",
			in:   "func Map[T any](xs []T) <-chan T",
			want: "func Map[T any](xs []T) <-chan T",
		},
		{
			name: "simple html stripped",
			in:   "<html><body><p>fixed the pool leak</p></body></html>",
			want: "fixed the pool leak",
		},
		{
			name: "html whitespace collapsed",
			in:   "<div>fixed\n\n  the   pool</div>",
			want: "fixed the pool",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeDropsNonContentElements(t *testing.T) {
	in := `<html><body>
		<nav>site menu</nav>
		<p>the actual write-up</p>
		<script>alert(1)</script>
		<footer>copyright</footer>
	</body></html>`

	got := Normalize(in)
	if got != "the actual write-up" {
		t.Errorf("Normalize() = %q, want only article text", got)
	}
}

func TestNormalizePreservesIndentedCodeInPlainText(t *testing.T) {
	in := "steps to reproduce:\n\n    go test ./...\n    go vet ./..."
	got := Normalize(in)
	if !strings.Contains(got, "    go test") {
		t.Errorf("Normalize() = %q, want indentation preserved", got)
	}
}
