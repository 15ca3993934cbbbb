package translate

import "testing"

func TestStaticTranslatorLookup(t *testing.T) {
	tr := NewStaticTranslator()
	cases := []struct {
		key, lang string
		want      string
		wantOK    bool
	}{
		{"cup", "es", "taza", true},
		{"chair", "fr", "chaise", true},
		{"book", "de", "Buch", true},
		{"clock", "ja", "時計", true},
		{"cup", "en", "cup", true},
		{"cup", "", "cup", true},
		{"unknown-object", "en", "unknown-object", true},
		{"unknown-object", "es", "", false},
		{"cup", "pt", "", false},
	}
	for _, tc := range cases {
		got, ok := tr.Lookup(tc.key, tc.lang)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("Lookup(%q, %q) = (%q, %v), want (%q, %v)",
				tc.key, tc.lang, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestDisplayTextFallsBackToKey(t *testing.T) {
	tr := NewStaticTranslator()
	if got := DisplayText(tr, "cup", "es"); got != "taza" {
		t.Errorf("DisplayText hit = %q, want %q", got, "taza")
	}
	if got := DisplayText(tr, "stapler", "es"); got != "stapler" {
		t.Errorf("DisplayText miss = %q, want key fallback", got)
	}
	if got := DisplayText(nil, "cup", "es"); got != "cup" {
		t.Errorf("DisplayText nil translator = %q, want key fallback", got)
	}
}
