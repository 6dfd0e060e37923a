package ai

import "strings"

// ExtractJSONArray pulls the outermost JSON array out of a model response
// that may be wrapped in prose or code fences. Returns the original text
// when no array span is found.
func ExtractJSONArray(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

// ExtractJSONObject pulls the outermost JSON object out of a model response.
func ExtractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
