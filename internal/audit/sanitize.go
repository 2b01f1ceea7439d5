package audit

// RedactionMarker replaces sensitive values in audit snapshots.
const RedactionMarker = "[REDACTED]"

var sensitiveFields = []string{"password", "token", "secret", "key"}

// Sanitize returns a copy of obj with sensitive top-level keys replaced by
// the redaction marker. Only top-level keys are inspected; values nested
// inside other maps are left as-is. Sanitizing an already-sanitized map is
// a no-op. A nil input stays nil.
func Sanitize(obj map[string]any) map[string]any {
	if obj == nil {
		return nil
	}
	sanitized := make(map[string]any, len(obj))
	for k, v := range obj {
		sanitized[k] = v
	}
	for _, field := range sensitiveFields {
		if _, ok := sanitized[field]; ok {
			sanitized[field] = RedactionMarker
		}
	}
	return sanitized
}
