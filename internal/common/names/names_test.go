package names

import "testing"

func TestHasPrefixFold(t *testing.T) {
	cases := []struct {
		s, prefix string
		want      bool
	}{
		{"Qwen2-7B", "qwen", true},
		{"Qwen2-7B", "", true},
		{"", "q", false},
		{"Qw", "qwen", false},
		{"mistral", "qwen", false},
		{"üNÏ-model", "Ünï", true},
		{"ÜNÏ", "ünï-model", false},
		// Kelvin sign is three bytes; its fold 'k' is one.
		{"\u212Aelvin-7b", "kel", true},
		{"kelvin-7b", "\u212Ael", true},
		// a byte-length cut would land inside 'é'
		{"éa-model", "ea", false},
		{"Éa-model", "éA", true},
		{"Σίσυφος", "σΊΣ", true},
	}
	for _, c := range cases {
		if got := HasPrefixFold(c.s, c.prefix); got != c.want {
			t.Fatalf("HasPrefixFold(%q, %q) = %v, want %v", c.s, c.prefix, got, c.want)
		}
	}
}
