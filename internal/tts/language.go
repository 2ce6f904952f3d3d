package tts

import "unicode/utf8"

// hanThreshold is the share of CJK ideographs above which text is treated as Chinese.
const hanThreshold = 0.2

// DetectLanguage guesses the synthesis language from the text itself:
// "zh-CN" when more than 20% of the characters are CJK unified ideographs,
// "en-US" otherwise.
func DetectLanguage(text string) string {
	total := utf8.RuneCountInString(text)
	if total == 0 {
		return "en-US"
	}
	han := 0
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			han++
		}
	}
	if float64(han) > float64(total)*hanThreshold {
		return "zh-CN"
	}
	return "en-US"
}
