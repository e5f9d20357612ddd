package record_test

import (
	"encoding/json"
	"testing"

	"github.com/lllypuk/collabfront/internal/domain/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomain_JSONRoundTrip(t *testing.T) {
	t.Run("typed fields", func(t *testing.T) {
		d := record.New("alpha", "alpha.collab.test", "key-1")

		data, err := json.Marshal(d)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"alpha","host":"alpha.collab.test","accessKey":"key-1"}`, string(data))

		var got record.Domain
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, d, got)
	})

	t.Run("opaque fields pass through", func(t *testing.T) {
		input := `{"name":"beta","color":"red","tags":["a","b"],"meta":{"n":1.5}}`

		var d record.Domain
		require.NoError(t, json.Unmarshal([]byte(input), &d))
		assert.Equal(t, "beta", d.Name)
		assert.Equal(t, []string{"color", "meta", "tags"}, d.FieldNames())

		raw, ok := d.Field("tags")
		require.True(t, ok)
		assert.JSONEq(t, `["a","b"]`, string(raw))

		out, err := json.Marshal(d)
		require.NoError(t, err)
		assert.JSONEq(t, input, string(out))
	})

	t.Run("whitespace in opaque values is compacted", func(t *testing.T) {
		var d record.Domain
		require.NoError(t, json.Unmarshal([]byte(`{"name":"c", "list": [ 1, 2 ]}`), &d))

		raw, ok := d.Field("list")
		require.True(t, ok)
		assert.Equal(t, `[1,2]`, string(raw))
	})

	t.Run("non-string name stays opaque", func(t *testing.T) {
		var d record.Domain
		require.NoError(t, json.Unmarshal([]byte(`{"name":42}`), &d))

		assert.Empty(t, d.Name)
		out, err := json.Marshal(d)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":42}`, string(out))
	})

	t.Run("absent and null typed keys are written back as read", func(t *testing.T) {
		inputs := []string{
			`{"host":"h"}`,
			`{"name":"a","host":null}`,
			`{"name":null}`,
			`{"name":"","accessKey":""}`,
			`{}`,
		}
		for _, input := range inputs {
			var d record.Domain
			require.NoError(t, json.Unmarshal([]byte(input), &d), input)

			out, err := json.Marshal(d)
			require.NoError(t, err)
			assert.JSONEq(t, input, string(out), input)
		}
	})

	t.Run("typed value replaces a null", func(t *testing.T) {
		var d record.Domain
		require.NoError(t, json.Unmarshal([]byte(`{"name":"a","host":null}`), &d))
		d.Host = "a.collab.test"

		out, err := json.Marshal(d)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"a","host":"a.collab.test"}`, string(out))
	})

	t.Run("rejects non-object", func(t *testing.T) {
		var d record.Domain
		assert.Error(t, json.Unmarshal([]byte(`[1]`), &d))
		assert.Error(t, json.Unmarshal([]byte(`null`), &d))
	})
}

func TestDomain_SetField(t *testing.T) {
	d := record.New("gamma", "", "")

	require.NoError(t, d.SetField("note", "hello"))
	assert.Error(t, d.SetField("name", "other"))
	assert.Error(t, d.SetField("host", "other"))

	raw, ok := d.Field("note")
	require.True(t, ok)
	assert.Equal(t, `"hello"`, string(raw))

	_, ok = d.Field("missing")
	assert.False(t, ok)
}

func TestDomain_WithoutAccessKey(t *testing.T) {
	inputs := map[string]string{
		`{"name":"a","host":"h","accessKey":"secret","note":1}`: `{"name":"a","host":"h","note":1}`,
		`{"name":"b","accessKey":""}`:                           `{"name":"b"}`,
		`{"name":"c","accessKey":{"id":7}}`:                     `{"name":"c"}`,
	}
	for input, want := range inputs {
		var d record.Domain
		require.NoError(t, json.Unmarshal([]byte(input), &d))

		out, err := json.Marshal(d.WithoutAccessKey())
		require.NoError(t, err)
		assert.JSONEq(t, want, string(out), input)

		original, err := json.Marshal(d)
		require.NoError(t, err)
		assert.JSONEq(t, input, string(original), "source record is untouched")
	}
}

func TestDomain_Clone(t *testing.T) {
	d := record.New("delta", "", "")
	require.NoError(t, d.SetField("note", "one"))

	c := d.Clone()
	require.NoError(t, c.SetField("note", "two"))

	raw, _ := d.Field("note")
	assert.Equal(t, `"one"`, string(raw))
	assert.True(t, d.SameName(c))
}
