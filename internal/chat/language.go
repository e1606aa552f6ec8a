// Package chat orchestrates retrieval-augmented answer generation: language
// detection, question classification, query rewriting, date enrichment,
// prompt rendering, and response cleanup.
package chat

import "unicode"

// arabicScriptThreshold is the fraction of letters that must be Arabic
// script for a question to be treated as Arabic.
const arabicScriptThreshold = 0.3

// DetectLanguage classifies text as "ar" or "en" by the share of
// Arabic-script letters among all letters. Anything that is not clearly
// Arabic is treated as English.
func DetectLanguage(text string) string {
	letters := 0
	arabic := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Arabic, r) {
			arabic++
		}
	}
	if letters == 0 {
		return "en"
	}
	if float64(arabic)/float64(letters) >= arabicScriptThreshold {
		return "ar"
	}
	return "en"
}
