package checker

import "unicode/utf8"

// Hiragana U+3040-U+309F and katakana U+30A0-U+30FF are adjacent blocks.
// CJK ideographs are shared with Traditional Chinese and are not considered
// Japanese, so text written only in kanji is not detected.
const (
	kanaFirst = '\u3040'
	kanaLast  = '\u30ff'
)

func isKana(r rune) bool {
	return r >= kanaFirst && r <= kanaLast
}

// ContainsKana reports whether s has at least one hiragana or katakana rune.
func ContainsKana(s string) bool {
	for _, r := range s {
		if isKana(r) {
			return true
		}
	}
	return false
}

// firstKanaRun returns the first contiguous run of kana in s.
func firstKanaRun(s string) string {
	start := -1
	for i, r := range s {
		switch {
		case isKana(r) && start < 0:
			start = i
		case !isKana(r) && start >= 0:
			return s[start:i]
		}
	}
	if start < 0 {
		return ""
	}
	return s[start:]
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
