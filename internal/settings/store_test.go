package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.json")
	return NewStore(path), path
}

func TestStore_CreatesEmptyDocument(t *testing.T) {
	store, path := newTestStore(t)

	_, err := store.Read("Port", Number)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestStore_WriteRead(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		value  string
		typ    ValueType
		stored string
		read   string
	}{
		{"number", "Port", "4841", Number, `4841`, "4841"},
		{"negative number", "Offset", "-3", Number, `-3`, "-3"},
		{"boolean true", "Anonymous", "true", Boolean, `true`, "true"},
		{"boolean false", "Anonymous", "false", Boolean, `false`, "false"},
		{"array", "Users", `[ {"user": "op"}, "x" ]`, Array, `[{"user":"op"},"x"]`, `[{"user":"op"},"x"]`},
		{"empty array", "Users", `[]`, Array, `[]`, `[]`},
		{"string", "Name", "Aerion Gateway", String, `"Aerion Gateway"`, "Aerion Gateway"},
		{"string that looks like a number", "Name", "42", String, `"42"`, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, path := newTestStore(t)

			require.NoError(t, store.Write(tt.key, tt.value, tt.typ))

			got, err := store.Read(tt.key, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.read, got)

			var doc map[string]json.RawMessage
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(data, &doc))
			assert.JSONEq(t, tt.stored, string(doc[tt.key]))
		})
	}
}

func TestStore_WriteInvalidValue(t *testing.T) {
	tests := []struct {
		name  string
		value string
		typ   ValueType
		want  error
	}{
		{"number text", "abc", Number, ErrInvalidValue},
		{"number NaN", "NaN", Number, ErrInvalidValue},
		{"boolean yes", "yes", Boolean, ErrInvalidValue},
		{"boolean capitalised", "True", Boolean, ErrInvalidValue},
		{"array object", `{"a": 1}`, Array, ErrInvalidValue},
		{"array null", `null`, Array, ErrInvalidValue},
		{"unknown type", "x", ValueType("Object"), ErrUnknownValueType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)

			err := store.Write("Key", tt.value, tt.typ)

			assert.ErrorIs(t, err, tt.want)
			_, err = store.Read("Key", String)
			assert.ErrorIs(t, err, ErrKeyNotFound)
		})
	}
}

func TestStore_ReadTypeMismatch(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Write("Name", "gateway", String))
	require.NoError(t, store.Write("Ratio", "0.5", Number))

	_, err := store.Read("Name", Number)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = store.Read("Name", Array)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = store.Read("Ratio", Number)
	assert.ErrorIs(t, err, ErrTypeMismatch, "numbers are read as integers")
}

func TestStore_PreservesOtherKeys(t *testing.T) {
	store, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"Port": 4840, "Custom": {"nested": [1, 2]}}`), 0600))

	require.NoError(t, store.Write("Port", "4850", Number))

	all, err := store.All()
	require.NoError(t, err)
	assert.JSONEq(t, `4850`, string(all["Port"]))
	assert.JSONEq(t, `{"nested": [1, 2]}`, string(all["Custom"]))
}

func TestStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Write("Name", "gw", String))

	require.NoError(t, store.Delete("Name"))

	_, err := store.Read("Name", String)
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.ErrorIs(t, store.Delete("Name"), ErrKeyNotFound)
}

func TestStore_CorruptDocument(t *testing.T) {
	store, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte(`[1, 2, 3]`), 0600))

	_, err := store.Read("Port", Number)
	assert.ErrorIs(t, err, ErrCorruptDocument)
	assert.ErrorIs(t, store.Write("Port", "1", Number), ErrCorruptDocument)
}

func TestStore_Port(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want int
	}{
		{"missing", `{}`, DefaultPort},
		{"configured", `{"Port": 4900}`, 4900},
		{"string", `{"Port": "4900"}`, DefaultPort},
		{"out of range", `{"Port": 70000}`, DefaultPort},
		{"zero", `{"Port": 0}`, DefaultPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, path := newTestStore(t)
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0600))

			assert.Equal(t, tt.want, store.Port())
		})
	}
}

func TestParseValueType(t *testing.T) {
	for _, s := range []string{"Number", "Boolean", "Array", "String"} {
		got, err := ParseValueType(s)
		require.NoError(t, err)
		assert.Equal(t, ValueType(s), got)
	}

	_, err := ParseValueType("number")
	assert.ErrorIs(t, err, ErrUnknownValueType)
}
