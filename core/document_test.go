package core_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/salesdesk/core"
)

func TestNewDocument_Normalizes(t *testing.T) {
	doc, err := core.NewDocument(map[string]any{
		"name":  "Acme",
		"size":  42,
		"tags":  []string{"saas", "b2b"},
		"owner": map[string]string{"email": "a@acme.io"},
	})
	require.NoError(t, err)

	want := map[string]any{
		"name":  "Acme",
		"size":  float64(42),
		"tags":  []any{"saas", "b2b"},
		"owner": map[string]any{"email": "a@acme.io"},
	}
	assert.Equal(t, want, doc.Value())
}

func TestNewDocument_Struct(t *testing.T) {
	type lead struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}
	doc, err := core.NewDocument(lead{Name: "Beta", Score: 0.5})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Beta", "score": 0.5}, doc.Value())
}

func TestNewDocument_Invalid(t *testing.T) {
	_, err := core.NewDocument(map[string]any{"ch": make(chan int)})
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
}

func TestDocument_ValueIsACopy(t *testing.T) {
	src := map[string]any{"items": []any{"a"}}
	doc := core.MustDocument(src)

	src["items"] = []any{"changed"}
	got := doc.Value().(map[string]any)
	got["items"] = []any{"also changed"}

	assert.Equal(t, map[string]any{"items": []any{"a"}}, doc.Value())
}

func TestDocument_NullAndEmptyAreDistinct(t *testing.T) {
	var zero core.Document
	empty := core.MustDocument(map[string]any{})

	assert.True(t, zero.IsNull())
	assert.False(t, empty.IsNull())
	assert.False(t, zero.Equal(empty))

	m, ok := empty.Map()
	require.True(t, ok)
	assert.Empty(t, m)

	_, ok = zero.Map()
	assert.False(t, ok)
}

func TestDocument_Field(t *testing.T) {
	doc := core.MustDocument(map[string]any{"summary": "hello"})
	assert.Equal(t, "hello", doc.Field("summary"))
	assert.Nil(t, doc.Field("missing"))
	assert.Nil(t, core.MustDocument("scalar").Field("summary"))
}

func TestDocument_JSON(t *testing.T) {
	doc := core.MustDocument(map[string]any{"a": []any{1.0, true, nil}})

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var back core.Document
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, doc.Equal(back))

	raw, err = json.Marshal(core.Document{})
	require.NoError(t, err)
	assert.JSONEq(t, "null", string(raw))
}
