package tool_test

import (
	"testing"

	"github.com/harunnryd/vibechat/internal/tool"
	_ "github.com/harunnryd/vibechat/internal/tool/builtin"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expectedBuiltins = []string{
	"current_time",
	"dad_joke",
	"generate_image",
	"get_weather",
	"reddit",
	"web_search",
}

func TestBuiltinNames_DeterministicAndComplete(t *testing.T) {
	assert.Equal(t, expectedBuiltins, tool.BuiltinNames())
}

func TestInstantiateBuiltins_UsesRegisteredFactories(t *testing.T) {
	builtins, err := tool.InstantiateBuiltins(tool.BuiltinOptions{})
	require.NoError(t, err)
	require.Len(t, builtins, len(expectedBuiltins))

	names := make([]string, 0, len(builtins))
	for _, builtin := range builtins {
		names = append(names, tool.NormalizeToolName(builtin.Name()))
	}
	assert.Equal(t, expectedBuiltins, names)
}

func TestIsBuiltinName_StrictToolName(t *testing.T) {
	assert.True(t, tool.IsBuiltinName("get_weather"))
	assert.True(t, tool.IsBuiltinName("web_search"))
	assert.False(t, tool.IsBuiltinName("web.search"))
	assert.False(t, tool.IsBuiltinName("custom.echo"))
}

func TestNewBuiltinRegistry_DescriptorsCarryMetadata(t *testing.T) {
	registry, err := tool.NewBuiltinRegistry(tool.BuiltinOptions{})
	require.NoError(t, err)
	assert.Equal(t, len(expectedBuiltins), registry.Len())

	defs := registry.Descriptors()
	require.Len(t, defs, len(expectedBuiltins))
	assert.Equal(t, "current_time", defs[0].Name)
	for _, def := range defs {
		assert.NotEmpty(t, def.Description, def.Name)
		assert.Equal(t, "object", def.Parameters["type"], def.Name)
	}

	var weather *tool.ToolDescriptor
	descriptors := registry.GetDescriptors()
	for i := range descriptors {
		if descriptors[i].Definition.Name == "get_weather" {
			weather = &descriptors[i]
			break
		}
	}
	require.NotNil(t, weather)
	assert.Equal(t, "builtin", weather.Metadata.Source)
	assert.Equal(t, tool.RiskLow, weather.Metadata.Risk)
	assert.True(t, weather.Metadata.Network)
	assert.Contains(t, weather.Metadata.Capabilities, "weather.query")
}
