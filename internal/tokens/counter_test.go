package tokens

import "testing"

func TestCounterFallsBackForUnknownModels(t *testing.T) {
	t.Parallel()

	known := NewCounter("gpt-4")
	sonar := NewCounter("sonar-pro")

	text := "Evaluate the bakery supply company for a commercial oven seller."
	if got, want := sonar.Count(text), known.Count(text); got != want {
		t.Fatalf("expected cl100k_base fallback to match gpt-4 count %d, got %d", want, got)
	}
	if sonar.Count(text) == 0 {
		t.Fatalf("expected a positive token count")
	}
	if sonar.Count("") != 0 {
		t.Fatalf("empty text must count zero")
	}
}

func TestNilCounterEstimates(t *testing.T) {
	t.Parallel()

	var c *Counter
	if got := c.Count("abcdefgh"); got != 2 {
		t.Fatalf("expected estimate 2, got %d", got)
	}
	if got := Estimate("abcde"); got != 2 {
		t.Fatalf("expected ceil estimate 2, got %d", got)
	}
}
