package token

import "testing"

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok := Generate()
		if tok == "" {
			t.Fatal("Generate() returned empty token")
		}
		if seen[tok] {
			t.Fatalf("duplicate token generated: %s", tok)
		}
		seen[tok] = true
	}
}

func TestGenerate_Concurrent(t *testing.T) {
	const n = 100
	tokens := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() { tokens <- Generate() }()
	}

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		tok := <-tokens
		if seen[tok] {
			t.Fatalf("duplicate token across goroutines: %s", tok)
		}
		seen[tok] = true
	}
}
