package hashing

import "testing"

func TestHashURL(t *testing.T) {
	const ref = "http://sports.core.api.espn.com/v2/sports/football/leagues/college-football/seasons/2024/teams/99"

	tests := []struct {
		name       string
		a, b       string
		stripQuery bool
		same       bool
	}{
		{name: "case of scheme and host", a: ref, b: "HTTP://Sports.Core.API.espn.com/v2/sports/football/leagues/college-football/seasons/2024/teams/99", same: true},
		{name: "trailing slash", a: ref, b: ref + "/", same: true},
		{name: "surrounding space", a: ref, b: "  " + ref + "\n", same: true},
		{name: "query kept", a: ref, b: ref + "?lang=en", same: false},
		{name: "query stripped", a: ref, b: ref + "?lang=en&region=us", stripQuery: true, same: true},
		{name: "path case matters", a: ref, b: ref[:len(ref)-2] + "9A", same: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := HashURL(tc.a, tc.stripQuery) == HashURL(tc.b, tc.stripQuery)
			if got != tc.same {
				t.Fatalf("expected same=%t for %q vs %q", tc.same, tc.a, tc.b)
			}
		})
	}
}

func TestHashURL_Shape(t *testing.T) {
	h := HashURL("https://example.com/a", false)
	if len(h) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h))
	}
	// sha256 of the empty string
	if got := HashURL("   ", false); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Fatalf("unexpected empty hash %s", got)
	}
}
