package stt

import "strings"

// AutoLanguage selects automatic language detection.
const AutoLanguage = "multi"

// Languages are the language codes offered to the user, BCP-47 style.
var Languages = []string{
	AutoLanguage, "zh-CN", "en-US", "ja-JP", "ko-KR", "fr-FR",
	"de-DE", "es-ES", "it-IT", "pt-BR", "ru-RU",
}

var whisperLanguages = map[string]string{
	"zh-CN": "zh",
	"en-US": "en",
	"ja-JP": "ja",
	"ko-KR": "ko",
	"fr-FR": "fr",
	"de-DE": "de",
	"es-ES": "es",
	"it-IT": "it",
	"pt-BR": "pt",
	"ru-RU": "ru",
}

// WhisperLanguage converts a BCP-47 code to the ISO 639-1 code whisper
// engines take. It returns "" for automatic detection.
func WhisperLanguage(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, AutoLanguage) || strings.EqualFold(code, "auto") {
		return ""
	}
	if lang, ok := whisperLanguages[code]; ok {
		return lang
	}
	if i := strings.IndexAny(code, "-_"); i > 0 {
		return strings.ToLower(code[:i])
	}
	return strings.ToLower(code)
}

// IsAuto reports whether code requests automatic detection.
func IsAuto(code string) bool {
	return WhisperLanguage(code) == ""
}
