package llm

import "strings"

// StripCodeFence removes a surrounding markdown code fence, including its
// language tag, and returns the trimmed body. Text without a fence is only
// trimmed.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "```")
	if start < 0 {
		return text
	}
	body := text[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := strings.TrimSpace(body[:nl])
		if len(tag) < 20 && !strings.ContainsAny(tag, " {<(") {
			body = body[nl+1:]
		}
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// CleanJSONBlock strips code fences and any prose around the first JSON
// object or array in text.
func CleanJSONBlock(text string) string {
	text = StripCodeFence(text)
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	if end := matchingClose(text, start); end > start {
		return text[start : end+1]
	}
	return text[start:]
}

// matchingClose returns the index closing the bracket at open, honoring
// JSON strings and escapes, or -1.
func matchingClose(text string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
