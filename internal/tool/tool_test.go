package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stub(name string) Tool {
	return &funcTool{name: name, run: func(ctx context.Context, inv Invocation) (Result, error) { return OK(nil), nil }}
}

func TestNewRegistry_RejectsDuplicateAndEmptyNames(t *testing.T) {
	_, err := NewRegistry(stub("web_search"), stub(" web_search "))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	_, err = NewRegistry(stub("  "))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestRegistry_DescriptorsSortedByName(t *testing.T) {
	registry, err := NewRegistry(stub("web_search"), stub("dad_joke"), stub("get_weather"))
	require.NoError(t, err)

	names := make([]string, 0)
	for _, def := range registry.Descriptors() {
		names = append(names, def.Name)
		assert.NotNil(t, def.Parameters)
	}
	assert.Equal(t, []string{"dad_joke", "get_weather", "web_search"}, names)
	assert.Equal(t, names, registry.Names())
	assert.Equal(t, 3, registry.Len())

	_, ok := registry.Get(" dad_joke")
	assert.True(t, ok)
	_, ok = registry.Get("reddit")
	assert.False(t, ok)
}

func TestRegistry_NamesIsACopy(t *testing.T) {
	registry, err := NewRegistry(stub("a"), stub("b"))
	require.NoError(t, err)

	names := registry.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, registry.Names())
}

func TestResult_JSONShape(t *testing.T) {
	ok, err := json.Marshal(OK(map[string]int{"n": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"n":1}}`, string(ok))

	fail, err := json.Marshal(Fail("location not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"location not found"}`, string(fail))

	var decoded Result
	require.NoError(t, json.Unmarshal(fail, &decoded))
	assert.Equal(t, Fail("location not found"), decoded)
}

func TestResult_StringFallsBackOnUnserializableData(t *testing.T) {
	content := OK(make(chan int)).String()

	var decoded Result
	require.NoError(t, json.Unmarshal([]byte(content), &decoded))
	assert.False(t, decoded.Success)
	assert.Contains(t, decoded.Error, "failed to serialize")
}
