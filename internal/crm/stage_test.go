package crm

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		stage string
		want  StageClass
	}{
		{"Proposal Sent", StageEnablement},
		{"Demo Scheduled", StageEnablement},
		{"Negotiation", StageEnablement},
		{"Closed Won", StageOutcome},
		{"Closed Lost", StageOutcome},
		{"", StageIgnore},
		{"Discovery", StageIgnore},
		// Exact match only: casing and whitespace drift route to ignore.
		{"proposal sent", StageIgnore},
		{"Closed Won ", StageIgnore},
	}
	for _, tc := range cases {
		if got := Classify(tc.stage); got != tc.want {
			t.Fatalf("Classify(%q): got %v, want %v", tc.stage, got, tc.want)
		}
	}
}
