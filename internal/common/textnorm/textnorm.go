// Package textnorm folds Arabic and Latin user text into a comparable form.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"leadbot/internal/models"
)

const tatweel = 'ـ'

func isDiacritic(r rune) bool {
	return (r >= 0x064B && r <= 0x065F) || r == 0x0670 || (r >= 0x06D6 && r <= 0x06ED) || r == tatweel
}

func fold(r rune) rune {
	switch r {
	case 'أ', 'إ', 'آ', 'ٱ':
		return 'ا'
	case 'ى':
		return 'ي'
	case 'ة':
		return 'ه'
	}
	if r >= '٠' && r <= '٩' {
		return '0' + (r - '٠')
	}
	if r >= '۰' && r <= '۹' {
		return '0' + (r - '۰')
	}
	return unicode.ToLower(r)
}

func chain() transform.Transformer {
	return transform.Chain(norm.NFKC, runes.Remove(runes.Predicate(isDiacritic)), runes.Map(fold))
}

// Normalize applies NFKC, drops Arabic diacritics and tatweel, collapses
// alef, yeh and teh-marbuta variants, maps Arabic-Indic digits to ASCII,
// lowercases and collapses whitespace.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(chain(), s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(out), " ")
}

// Words splits normalized text into words with edge punctuation trimmed.
func Words(s string) []string {
	fields := strings.Fields(Normalize(s))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, unicode.IsPunct)
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// ContainsToken reports whether token occurs in words as a whole word, or
// for a multi-word token as a run of consecutive words.
func ContainsToken(words []string, token string) bool {
	tw := Words(token)
	if len(tw) == 0 || len(tw) > len(words) {
		return false
	}
	for i := 0; i+len(tw) <= len(words); i++ {
		match := true
		for j := range tw {
			if words[i+j] != tw[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func isArabic(r rune) bool {
	return r >= 0x0600 && r <= 0x06FF
}

func isLatinLetter(r rune) bool {
	return r < unicode.MaxASCII && unicode.IsLetter(r)
}

// DetectLanguage classifies text by the scripts of its letters.
func DetectLanguage(s string) models.Language {
	var ar, en int
	for _, r := range s {
		switch {
		case isArabic(r):
			ar++
		case isLatinLetter(r):
			en++
		}
	}
	switch {
	case ar > 0 && en == 0:
		return models.LanguageArabic
	case en > 0 && ar == 0:
		return models.LanguageEnglish
	case ar > 0 && en > 0:
		return models.LanguageMixed
	default:
		return models.LanguageUnknown
	}
}

// IsPhoneticCandidate reports whether s is a single script-pure word of at
// most maxRunes runes after normalization.
func IsPhoneticCandidate(s string, maxRunes int) bool {
	n := Normalize(s)
	if n == "" || strings.ContainsRune(n, ' ') {
		return false
	}
	if len([]rune(n)) > maxRunes {
		return false
	}
	lang := DetectLanguage(n)
	return lang == models.LanguageArabic || lang == models.LanguageEnglish
}

// Digits returns only the ASCII digits of s after normalization.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range Normalize(s) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsPhoneLike reports whether s reads as a phone number: optional leading
// plus, separators, and 8 to 15 digits.
func IsPhoneLike(s string) bool {
	n := strings.TrimPrefix(strings.TrimSpace(Normalize(s)), "+")
	if n == "" {
		return false
	}
	for _, r := range n {
		if !(r >= '0' && r <= '9') && r != ' ' && r != '-' {
			return false
		}
	}
	d := len(Digits(n))
	return d >= 8 && d <= 15
}
