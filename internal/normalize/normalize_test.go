package normalize

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "identifiers fold, keywords survive",
			in:   "if count > 0 { return total }",
			want: "if ID > ID { return ID }",
		},
		{
			name: "string literal masked before identifier pass",
			in:   `print("hello world")`,
			want: "ID ( ID )",
		},
		{
			name: "line comment stripped",
			in:   "x = 1 // trailing note\ny = 2",
			want: "ID = ID ID = ID",
		},
		{
			name: "block comment stripped across lines",
			in:   "a /* multi\nline */ b",
			want: "ID ID",
		},
		{
			name: "hash comment stripped",
			in:   "value = compute()  # python style",
			want: "ID = ID ()",
		},
		{
			name: "digits inside identifiers stay attached",
			in:   "x2y",
			want: "ID",
		},
		{
			name: "digit run trailing an identifier folds with it",
			in:   "x = int64(2)",
			want: "ID = ID ( ID )",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.in); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Renaming identifiers, changing literal values, and editing comments must
// not change the normalized form; that equivalence is what duplicate
// detection keys on.
func TestNormalizeDuplicateEquivalence(t *testing.T) {
	t.Parallel()

	a := `func sum(items []int) int {
	total := 0
	for _, v := range items { // accumulate
		total += v
	}
	return total
}`
	b := `func addAll(values []int) int {
	acc := 99
	for _, x := range values { /* different comment */
		acc += x
	}
	return acc
}`

	na, nb := Normalize(a), Normalize(b)
	if na == "" {
		t.Fatal("normalized text is empty")
	}
	if na != nb {
		t.Fatalf("normalized forms differ:\n%q\n%q", na, nb)
	}
}

func TestStripComments(t *testing.T) {
	t.Parallel()

	got := StripComments("keep /* drop */ keep2 // drop\nkeep3 # drop")
	want := "keep  keep2 \nkeep3 "
	if got != want {
		t.Fatalf("StripComments = %q, want %q", got, want)
	}
}

func TestMaskNumbers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"x = 42", "x =  NUM "},
		{"pi = 3.14", "pi =  NUM "},
		{"a1 = b", "a1 = b"},
		{"x = int64(2)", "x = int64( NUM )"},
		{"v[10] = 2", "v[ NUM ] =  NUM "},
	}
	for _, tt := range tests {
		if got := maskNumbers(tt.in); got != tt.want {
			t.Errorf("maskNumbers(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokenEstimate(t *testing.T) {
	t.Parallel()

	if got := TokenEstimate(""); got != 0 {
		t.Fatalf("TokenEstimate(\"\") = %d, want 0", got)
	}
	if got := TokenEstimate("if ID > ID { return ID }"); got != 8 {
		t.Fatalf("TokenEstimate = %d, want 8", got)
	}
}
