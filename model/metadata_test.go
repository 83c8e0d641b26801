package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataMarshal(t *testing.T) {
	t.Run("Marshal empty metadata", func(t *testing.T) {
		bytes, err := Metadata{}.Marshal()

		require.NoError(t, err)
		assert.Equal(t, []byte("{}"), bytes)
	})

	t.Run("Marshal nil metadata as empty object", func(t *testing.T) {
		var m Metadata

		bytes, err := m.Marshal()

		require.NoError(t, err)
		assert.Equal(t, []byte("{}"), bytes, "Expected nil metadata to be stored as an empty JSONB object")
	})

	t.Run("Marshal metadata with simple values", func(t *testing.T) {
		m := Metadata{"company": "Talan", "pages": 12, "ai": true}

		bytes, err := m.Marshal()
		require.NoError(t, err)

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(bytes, &result))
		assert.Equal(t, "Talan", result["company"])
		assert.Equal(t, float64(12), result["pages"])
		assert.Equal(t, true, result["ai"])
	})
}

func TestMetadataUnmarshal(t *testing.T) {
	t.Run("Unmarshal valid JSON bytes", func(t *testing.T) {
		var m Metadata

		err := m.Unmarshal([]byte(`{"type":"company","size":3}`))

		require.NoError(t, err)
		assert.Equal(t, "company", m["type"])
		assert.Equal(t, float64(3), m["size"])
	})

	t.Run("Unmarshal JSON string", func(t *testing.T) {
		var m Metadata

		err := m.Unmarshal(`{"type":"service"}`)

		require.NoError(t, err)
		assert.Equal(t, "service", m["type"])
	})

	t.Run("Unmarshal nil value", func(t *testing.T) {
		m := Metadata{"stale": true}

		err := m.Unmarshal(nil)

		require.NoError(t, err)
		assert.Empty(t, m, "Expected nil to reset the metadata")
	})

	t.Run("Unmarshal invalid JSON", func(t *testing.T) {
		var m Metadata

		err := m.Unmarshal([]byte(`{invalid`))

		require.Error(t, err)
	})

	t.Run("Unmarshal invalid type", func(t *testing.T) {
		var m Metadata

		err := m.Unmarshal(12345)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "type assertion")
	})

	t.Run("Scan from database value", func(t *testing.T) {
		var m Metadata

		err := m.Scan([]byte(`{"name":"Wavestone"}`))

		require.NoError(t, err)
		assert.Equal(t, "Wavestone", m["name"])
	})
}

func TestMetadataString(t *testing.T) {
	m := Metadata{"name": "Inetum", "employees": 27000, "empty": nil}

	t.Run("String value", func(t *testing.T) {
		assert.Equal(t, "Inetum", m.String("name"))
	})

	t.Run("Non string value is formatted", func(t *testing.T) {
		assert.Equal(t, "27000", m.String("employees"))
	})

	t.Run("Missing and nil values are empty", func(t *testing.T) {
		assert.Equal(t, "", m.String("missing"))
		assert.Equal(t, "", m.String("empty"))
	})
}

func TestMetadataClone(t *testing.T) {
	t.Run("Clone is independent of the original", func(t *testing.T) {
		m := Metadata{"a": 1}
		c := m.Clone()
		c["b"] = 2

		assert.NotContains(t, m, "b", "Expected original to stay unchanged")
		assert.Equal(t, 1, c["a"])
	})

	t.Run("Clone of nil is nil", func(t *testing.T) {
		var m Metadata
		assert.Nil(t, m.Clone())
	})
}
