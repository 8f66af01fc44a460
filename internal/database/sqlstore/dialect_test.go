package sqlstore

import "testing"

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		from, n int
		want    string
	}{
		{"question", Dialect{Placeholder: QuestionPlaceholder}, 1, 4, "?, ?, ?, ?"},
		{"dollar", Dialect{Placeholder: DollarPlaceholder}, 1, 4, "$1, $2, $3, $4"},
		{"dollar offset", Dialect{Placeholder: DollarPlaceholder}, 3, 2, "$3, $4"},
		{"none", Dialect{Placeholder: DollarPlaceholder}, 1, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.bind(tt.from, tt.n); got != tt.want {
				t.Errorf("bind(%d, %d) = %q, want %q", tt.from, tt.n, got, tt.want)
			}
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := DoubleQuote("timestamp"); got != `"timestamp"` {
		t.Errorf("DoubleQuote = %s", got)
	}
	if got := DoubleQuote(`a"b`); got != `"a""b"` {
		t.Errorf("DoubleQuote escape = %s", got)
	}
	if got := Backtick("a`b"); got != "`a``b`" {
		t.Errorf("Backtick escape = %s", got)
	}
}

func TestNew_RejectsInvalidTable(t *testing.T) {
	d := Dialect{Placeholder: QuestionPlaceholder, QuoteIdent: DoubleQuote}
	if _, err := New(nil, d, "faces; DROP TABLE faces"); err == nil {
		t.Error("expected invalid table error")
	}
	s, err := New(nil, d, "faces_2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Table() != "faces_2024" || s.ts != `"timestamp"` {
		t.Errorf("unexpected store %+v", s)
	}
}
