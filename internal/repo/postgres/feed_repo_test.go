package postgres

import "testing"

func TestMutualPreferenceTargetsSoughtGender(t *testing.T) {
	candGender, candSeeking := mutualPreference("male", "female")

	if candGender != "female" {
		t.Fatalf("candidate gender predicate = %q, want %q", candGender, "female")
	}
	if candSeeking != "male" {
		t.Fatalf("candidate seeking predicate = %q, want %q", candSeeking, "male")
	}
}

func TestMutualPreferenceOpenValuesDisablePredicates(t *testing.T) {
	cases := []struct {
		name         string
		viewerGender string
		seeking      string
		wantGender   string
		wantSeeking  string
	}{
		{name: "seeking all", viewerGender: "female", seeking: "all", wantGender: "", wantSeeking: "female"},
		{name: "seeking any", viewerGender: "female", seeking: "any", wantGender: "", wantSeeking: "female"},
		{name: "no viewer gender", viewerGender: "", seeking: "male", wantGender: "male", wantSeeking: ""},
		{name: "both open", viewerGender: "", seeking: "", wantGender: "", wantSeeking: ""},
		{name: "mixed case trimmed", viewerGender: " Male ", seeking: " FEMALE ", wantGender: "female", wantSeeking: "male"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			candGender, candSeeking := mutualPreference(tc.viewerGender, tc.seeking)
			if candGender != tc.wantGender {
				t.Fatalf("candidate gender = %q, want %q", candGender, tc.wantGender)
			}
			if candSeeking != tc.wantSeeking {
				t.Fatalf("candidate seeking = %q, want %q", candSeeking, tc.wantSeeking)
			}
		})
	}
}
