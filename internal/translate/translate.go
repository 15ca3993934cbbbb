// Package translate maps semantic label keys to display text in a target
// language. The engine only needs the boundary interface; StaticTranslator
// is the built-in implementation backed by a fixed dictionary.
package translate

// Translator looks up display text for a semantic key in the given language.
// A miss returns ok == false; callers fall back to the key itself, so a
// missing dictionary entry degrades to an untranslated label, never an
// error.
type Translator interface {
	Lookup(semanticKey, languageCode string) (text string, ok bool)
}

// StaticTranslator serves lookups from an in-memory table keyed by language
// code then semantic key.
type StaticTranslator struct {
	table map[string]map[string]string
}

// NewStaticTranslator returns a translator preloaded with a small dictionary
// of common object classes in Spanish, French, German, and Japanese. English
// keys pass through as themselves.
func NewStaticTranslator() *StaticTranslator {
	return &StaticTranslator{table: map[string]map[string]string{
		"es": {
			"cup": "taza", "chair": "silla", "book": "libro",
			"bottle": "botella", "laptop": "portátil", "keyboard": "teclado",
			"plant": "planta", "clock": "reloj", "table": "mesa", "door": "puerta",
		},
		"fr": {
			"cup": "tasse", "chair": "chaise", "book": "livre",
			"bottle": "bouteille", "laptop": "ordinateur portable", "keyboard": "clavier",
			"plant": "plante", "clock": "horloge", "table": "table", "door": "porte",
		},
		"de": {
			"cup": "Tasse", "chair": "Stuhl", "book": "Buch",
			"bottle": "Flasche", "laptop": "Laptop", "keyboard": "Tastatur",
			"plant": "Pflanze", "clock": "Uhr", "table": "Tisch", "door": "Tür",
		},
		"ja": {
			"cup": "カップ", "chair": "椅子", "book": "本",
			"bottle": "ボトル", "laptop": "ノートパソコン", "keyboard": "キーボード",
			"plant": "植物", "clock": "時計", "table": "テーブル", "door": "ドア",
		},
	}}
}

// Lookup implements Translator. English ("en" or empty) always hits,
// returning the key unchanged.
func (t *StaticTranslator) Lookup(semanticKey, languageCode string) (string, bool) {
	if languageCode == "" || languageCode == "en" {
		return semanticKey, true
	}
	lang, ok := t.table[languageCode]
	if !ok {
		return "", false
	}
	text, ok := lang[semanticKey]
	return text, ok
}

// DisplayText resolves semanticKey through tr, falling back to the key on a
// miss or a nil translator.
func DisplayText(tr Translator, semanticKey, languageCode string) string {
	if tr == nil {
		return semanticKey
	}
	if text, ok := tr.Lookup(semanticKey, languageCode); ok {
		return text
	}
	return semanticKey
}
