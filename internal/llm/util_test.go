package llm

import "testing"

func TestParseJSON(t *testing.T) {
	t.Parallel()

	type out struct {
		Score     int    `json:"score"`
		Reasoning string `json:"reasoning"`
	}

	cases := []struct {
		name string
		raw  string
		want int
	}{
		{"plain", `{"score": 4, "reasoning": "fine"}`, 4},
		{"fenced", "```json\n{\"score\": 3, \"reasoning\": \"ok\"}\n```", 3},
		{"surrounded", "Here you go: {\"score\": 5, \"reasoning\": \"great\"} hope that helps", 5},
	}
	for _, tc := range cases {
		var v out
		if err := ParseJSON(tc.raw, &v); err != nil {
			t.Fatalf("%s: ParseJSON: %v", tc.name, err)
		}
		if v.Score != tc.want {
			t.Fatalf("%s: score: got %d want %d", tc.name, v.Score, tc.want)
		}
	}
}

func TestParseJSON_Errors(t *testing.T) {
	t.Parallel()

	var v map[string]any
	if err := ParseJSON("", &v); err == nil {
		t.Fatalf("empty: expected error")
	}
	if err := ParseJSON("no json here", &v); err == nil {
		t.Fatalf("missing object: expected error")
	}
	if err := ParseJSON("{broken", &v); err == nil {
		t.Fatalf("malformed: expected error")
	}
}
