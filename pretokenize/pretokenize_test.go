package pretokenize

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestPieces(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)

	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "single word", input: "aaabdaaabac", want: []string{"aaabdaaabac"}},
		{name: "sentence", input: "Hello, world! It's 2024.", want: []string{"Hello", ",", " world", "!", " It", "'s", " 2024", "."}},
		{name: "contractions", input: "we'll don't I'm they've you're he'd", want: []string{"we", "'ll", " don", "'t", " I", "'m", " they", "'ve", " you", "'re", " he", "'d"}},
		{name: "double space", input: "a  b", want: []string{"a", " ", " b"}},
		{name: "leading spaces", input: "  hello", want: []string{" ", " hello"}},
		{name: "trailing whitespace", input: "hello   \n", want: []string{"hello", "   \n"}},
		{name: "newlines", input: "a\n\nb", want: []string{"a", "\n", "\n", "b"}},
		{name: "letters then digits", input: "abc123 456", want: []string{"abc", "123", " 456"}},
		{name: "symbols", input: "x ...!? y", want: []string{"x", " ...!?", " y"}},
		{name: "unicode letters", input: "héllo wörld 東京", want: []string{"héllo", " wörld", " 東京"}},
		{name: "only whitespace", input: " \t ", want: []string{" \t "}},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := slices.Collect(p.Pieces(tt.input))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPiecesCoverInput(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)

	for _, input := range []string{
		"The quick brown fox\tjumps over the lazy dog.\n\n",
		"  'S'T 're 'VE ''  ",
		"emoji 🙂🙂 and nbsp and   em space",
		"numbers ١٢٣ and 12,345.67",
		"mixed\r\nline\rendings\n",
	} {
		var sb strings.Builder
		for piece := range p.Pieces(input) {
			require.NotEmpty(t, piece)
			sb.WriteString(piece)
		}
		require.Equal(t, input, sb.String())
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		specials []string
		want     []Segment
	}{
		{
			name:  "no specials",
			input: "hello world",
			want:  []Segment{{Text: "hello world"}},
		},
		{
			name:     "no specials in text",
			input:    "hello world",
			specials: []string{"<|endoftext|>"},
			want:     []Segment{{Text: "hello world"}},
		},
		{
			name:     "empty text",
			input:    "",
			specials: []string{"<|endoftext|>"},
			want:     nil,
		},
		{
			name:     "between documents",
			input:    "doc one<|endoftext|>doc two<|endoftext|>",
			specials: []string{"<|endoftext|>"},
			want: []Segment{
				{Text: "doc one"},
				{Special: true, Text: "<|endoftext|>"},
				{Text: "doc two"},
				{Special: true, Text: "<|endoftext|>"},
			},
		},
		{
			name:     "adjacent specials",
			input:    "<s><s>x",
			specials: []string{"<s>"},
			want: []Segment{
				{Special: true, Text: "<s>"},
				{Special: true, Text: "<s>"},
				{Text: "x"},
			},
		},
		{
			name:     "longest first",
			input:    "a<|endoftext|><|endoftext|>b<|endoftext|>",
			specials: []string{"<|endoftext|>", "<|endoftext|><|endoftext|>"},
			want: []Segment{
				{Text: "a"},
				{Special: true, Text: "<|endoftext|><|endoftext|>"},
				{Text: "b"},
				{Special: true, Text: "<|endoftext|>"},
			},
		},
		{
			name:     "leftmost wins",
			input:    "xx<b><a>",
			specials: []string{"<a>", "<b>"},
			want: []Segment{
				{Text: "xx"},
				{Special: true, Text: "<b>"},
				{Special: true, Text: "<a>"},
			},
		},
		{
			name:     "overlapping occurrence",
			input:    "<ab>c>",
			specials: []string{"<ab>", "b>c"},
			want: []Segment{
				{Special: true, Text: "<ab>"},
				{Text: "c>"},
			},
		},
		{
			name:     "duplicates",
			input:    "1|2",
			specials: []string{"|", "|", ""},
			want: []Segment{
				{Text: "1"},
				{Special: true, Text: "|"},
				{Text: "2"},
			},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.specials)
			require.NoError(t, err)

			got := p.Split(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}

			var sb strings.Builder
			for _, s := range got {
				sb.WriteString(s.Text)
			}
			require.Equal(t, tt.input, sb.String())
		})
	}
}

func TestSpecials(t *testing.T) {
	p, err := New([]string{"<a>", "<|endoftext|>", "<b>", "<a>"})
	require.NoError(t, err)
	require.Equal(t, []string{"<|endoftext|>", "<a>", "<b>"}, p.Specials())
}

func TestAll(t *testing.T) {
	p, err := New([]string{"<|endoftext|>"})
	require.NoError(t, err)

	type piece struct {
		Special bool
		Text    string
	}

	var got []piece
	for special, s := range p.All("Hi there<|endoftext|> it's me<|endoftext|>") {
		got = append(got, piece{special, s})
	}

	want := []piece{
		{false, "Hi"},
		{false, " there"},
		{true, "<|endoftext|>"},
		{false, " it"},
		{false, "'s"},
		{false, " me"},
		{true, "<|endoftext|>"},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAllStopsEarly(t *testing.T) {
	p, err := New([]string{"|"})
	require.NoError(t, err)

	var n int
	for range p.All("a b|c d|e") {
		n++
		if n == 3 {
			break
		}
	}
	require.Equal(t, 3, n)
}
