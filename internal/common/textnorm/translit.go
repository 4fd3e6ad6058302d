package textnorm

import "strings"

var arabicToLatin = map[rune]string{
	'ا': "a", 'أ': "a", 'إ': "e", 'آ': "a",
	'ب': "b", 'ت': "t", 'ث': "th",
	'ج': "g", 'ح': "h", 'خ': "kh",
	'د': "d", 'ذ': "z", 'ر': "r", 'ز': "z",
	'س': "s", 'ش': "sh", 'ص': "s", 'ض': "d",
	'ط': "t", 'ظ': "z", 'ع': "a", 'غ': "gh",
	'ف': "f", 'ق': "q", 'ك': "k", 'ل': "l",
	'م': "m", 'ن': "n", 'ه': "h", 'ة': "a",
	'و': "w", 'ي': "y", 'ى': "a",
	'ء': "", 'ئ': "y", 'ؤ': "w",
}

// Transliterate maps Arabic letters to a rough Latin spelling, letter by
// letter. It is the offline fallback for the transliteration service.
func Transliterate(s string) string {
	var b strings.Builder
	for _, r := range s {
		if lat, ok := arabicToLatin[r]; ok {
			b.WriteString(lat)
			continue
		}
		switch {
		case r < 0x80 && r != ' ':
			b.WriteString(strings.ToLower(string(r)))
		case r == ' ' || r == '\t' || r == '\n':
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
