package criteria

import (
	"strings"
	"unicode"
)

// ToSnake converts a camelCase or PascalCase property name to the snake_case
// column name used by the store. The transform is pure and deterministic:
// "tenantCode" -> "tenant_code", "userID" -> "user_id", "HTTPStatus" ->
// "http_status". Runs of punctuation collapse to a single underscore.
func ToSnake(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	lastUnderscore := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case unicode.IsUpper(r):
			if b.Len() > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if (unicode.IsLower(prev) || unicode.IsDigit(prev) || nextLower) && !lastUnderscore {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false

		case unicode.IsLower(r), unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false

		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	return strings.Trim(b.String(), "_")
}

// lowerCamel turns an exported Go field name into the property name a JSON
// encoder would produce without a tag override: "TenantCode" -> "tenantCode",
// "ID" -> "id", "URLPath" -> "urlPath".
func lowerCamel(s string) string {
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if !unicode.IsUpper(runes[i]) {
			break
		}
		// keep the last upper of an acronym when a lower case letter follows
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// isIdentifier reports whether s can be embedded in SQL as a bare name.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// paramName derives a bind parameter name from a property name. Anything
// that is not a letter, digit or underscore becomes an underscore so the
// name survives named-parameter parsers.
func paramName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '_' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	out := b.String()
	if out == "" || unicode.IsDigit(rune(out[0])) {
		out = "p_" + out
	}
	return out
}
