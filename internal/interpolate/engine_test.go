package interpolate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverhq/quiver/internal/core"
)

func devEnvironment(t *testing.T) *core.Environment {
	t.Helper()
	set := core.NewEnvironmentSet()
	env, err := set.Create("dev", "")
	require.NoError(t, err)
	require.NoError(t, set.SetVariable(env.ID(), core.Variable{Key: "HOST", Value: "api.example.com", Enabled: true}))
	require.NoError(t, set.SetVariable(env.ID(), core.Variable{Key: "TOKEN", Value: "s3cret", Enabled: true, Secret: true}))
	require.NoError(t, set.SetVariable(env.ID(), core.Variable{Key: "DISABLED", Value: "nope", Enabled: false}))
	current, _ := set.Find(env.ID())
	return current
}

func TestEngine_Resolve(t *testing.T) {
	engine := FromEnvironment(devEnvironment(t))

	t.Run("substitutes known variables", func(t *testing.T) {
		assert.Equal(t, "https://api.example.com/v1", engine.Resolve("https://{{HOST}}/v1"))
	})

	t.Run("tolerates whitespace inside braces", func(t *testing.T) {
		assert.Equal(t, "api.example.com", engine.Resolve("{{ HOST }}"))
	})

	t.Run("secret values resolve to the stored value", func(t *testing.T) {
		assert.Equal(t, "Bearer s3cret", engine.Resolve("Bearer {{TOKEN}}"))
	})

	t.Run("unknown keys stay verbatim", func(t *testing.T) {
		assert.Equal(t, "https://{{MISSING}}/v1", engine.Resolve("https://{{MISSING}}/v1"))
	})

	t.Run("disabled variables never resolve", func(t *testing.T) {
		assert.Equal(t, "{{DISABLED}}", engine.Resolve("{{DISABLED}}"))
	})

	t.Run("malformed syntax passes through", func(t *testing.T) {
		for _, tmpl := range []string{"{{HOST", "HOST}}", "{{}}", "{ {HOST} }"} {
			assert.Equal(t, tmpl, engine.Resolve(tmpl))
		}
	})

	t.Run("single pass never re-scans substituted values", func(t *testing.T) {
		engine := NewEngine()
		engine.SetVariable("A", "{{B}}")
		engine.SetVariable("B", "final")
		assert.Equal(t, "{{B}}", engine.Resolve("{{A}}"))
	})
}

func TestEngine_NilEnvironmentIsIdentity(t *testing.T) {
	engine := FromEnvironment(nil)
	assert.Equal(t, "https://{{HOST}}/v1", engine.Resolve("https://{{HOST}}/v1"))
}

func TestEngine_Builtins(t *testing.T) {
	engine := NewEngine()

	t.Run("uuid", func(t *testing.T) {
		got := engine.Resolve("{{$uuid}}")
		assert.NotEqual(t, "{{$uuid}}", got)
		assert.Len(t, got, 36)
	})

	t.Run("date", func(t *testing.T) {
		got := engine.Resolve("{{$date}}")
		assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, got)
	})

	t.Run("unknown builtin stays verbatim", func(t *testing.T) {
		assert.Equal(t, "{{$nope}}", engine.Resolve("{{$nope}}"))
	})
}

func TestEngine_SetVariableOverlay(t *testing.T) {
	engine := FromEnvironment(devEnvironment(t))
	engine.SetVariable("HOST", "staging.example.com")

	assert.Equal(t, "staging.example.com", engine.Resolve("{{HOST}}"))
}

func TestEngine_ResolveMap(t *testing.T) {
	engine := FromEnvironment(devEnvironment(t))

	got := engine.ResolveMap(map[string]string{
		"Host":  "{{HOST}}",
		"Other": "plain",
	})
	assert.Equal(t, "api.example.com", got["Host"])
	assert.Equal(t, "plain", got["Other"])
}

func TestExtractVariables(t *testing.T) {
	vars := ExtractVariables("https://{{HOST}}/{{path}}?t={{HOST}}")
	assert.Equal(t, []string{"HOST", "path"}, vars)

	assert.Empty(t, ExtractVariables("no placeholders here"))
}
