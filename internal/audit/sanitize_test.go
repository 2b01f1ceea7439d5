package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeRedactsSensitiveKeys(t *testing.T) {
	out := Sanitize(map[string]any{
		"password": "hunter2",
		"token":    "abc",
		"secret":   "s",
		"key":      "k",
		"title":    "Bleach refill",
	})

	assert.Equal(t, RedactionMarker, out["password"])
	assert.Equal(t, RedactionMarker, out["token"])
	assert.Equal(t, RedactionMarker, out["secret"])
	assert.Equal(t, RedactionMarker, out["key"])
	assert.Equal(t, "Bleach refill", out["title"])
}

func TestSanitizeDoesNotMutateInput(t *testing.T) {
	in := map[string]any{"password": "hunter2"}
	out := Sanitize(in)

	assert.Equal(t, "hunter2", in["password"])
	assert.Equal(t, RedactionMarker, out["password"])
}

func TestSanitizeIsIdempotent(t *testing.T) {
	once := Sanitize(map[string]any{"password": "x", "title": "y"})
	twice := Sanitize(once)
	assert.Equal(t, once, twice)
}

func TestSanitizeTopLevelOnly(t *testing.T) {
	out := Sanitize(map[string]any{
		"config": map[string]any{"password": "nested"},
	})
	nested := out["config"].(map[string]any)
	assert.Equal(t, "nested", nested["password"])
}

func TestSanitizeNil(t *testing.T) {
	assert.Nil(t, Sanitize(nil))
}
