package ai

import "strings"

// ExtractJSON strips markdown code fences and a leading json tag from a model
// response. When the remainder still is not a bare object or array, the
// outermost {...} or [...] span is returned.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if len(raw) >= 4 && strings.EqualFold(raw[:4], "json") {
			raw = raw[4:]
		}
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.TrimSpace(strings.Trim(raw, "`"))
	if len(raw) >= 4 && strings.EqualFold(raw[:4], "json") {
		raw = strings.TrimSpace(raw[4:])
	}

	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		return raw
	}
	return outermostSpan(raw)
}

func outermostSpan(raw string) string {
	objStart, objEnd := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	arrStart, arrEnd := strings.Index(raw, "["), strings.LastIndex(raw, "]")

	useObject := objStart != -1 && objEnd > objStart
	useArray := arrStart != -1 && arrEnd > arrStart

	switch {
	case useObject && useArray:
		if arrStart < objStart {
			return raw[arrStart : arrEnd+1]
		}
		return raw[objStart : objEnd+1]
	case useObject:
		return raw[objStart : objEnd+1]
	case useArray:
		return raw[arrStart : arrEnd+1]
	default:
		return raw
	}
}
