package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/Suryanshpandey5492/WebVision/pkg/llm"
	"github.com/Suryanshpandey5492/WebVision/pkg/types"
)

func TestNewProviderRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	_, err := NewProvider(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNewProviderDefaults(t *testing.T) {
	p, err := NewProvider(context.Background(), "key")
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, p.GetModel())
	assert.Equal(t, "gemini", p.GetModelInfo().Provider)

	clone := p.CloneWithModel("gemini-2.5-pro")
	assert.Equal(t, "gemini-2.5-pro", clone.GetModel())
	assert.Equal(t, DefaultModel, p.GetModelInfo().Name)
}

func TestConvertMessages(t *testing.T) {
	msgs := []types.Message{
		types.NewSystemMessage("rules one"),
		types.NewSystemMessage("rules two"),
		types.NewUserMessage("look at this").WithImage("aGVsbG8="),
		types.NewAssistantMessage("ok"),
	}

	contents, system, err := convertMessages(msgs)
	require.NoError(t, err)

	require.NotNil(t, system)
	assert.Equal(t, "rules one\n\nrules two", system.Parts[0].Text)

	require.Len(t, contents, 2)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	require.Len(t, contents[0].Parts, 2)
	assert.Equal(t, "look at this", contents[0].Parts[0].Text)
	require.NotNil(t, contents[0].Parts[1].InlineData)
	assert.Equal(t, []byte("hello"), contents[0].Parts[1].InlineData.Data)
	assert.Equal(t, "image/png", contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
}

func TestConvertMessagesBadImage(t *testing.T) {
	_, _, err := convertMessages([]types.Message{types.NewUserMessage("x").WithImage("%%%")})
	require.Error(t, err)
}

func TestConvertTools(t *testing.T) {
	decls := convertTools([]llm.ToolSpec{
		{
			Name:        "Click",
			Description: "Click an element",
			Parameters:  llm.Object(map[string]*llm.Schema{"bbox_id": llm.Integer("id")}, "bbox_id"),
		},
		{Name: "Wait", Description: "Wait", Parameters: llm.Object(nil)},
	})

	require.Len(t, decls, 2)
	assert.Equal(t, "Click", decls[0].Name)
	require.NotNil(t, decls[0].Parameters)
	assert.Equal(t, genai.TypeObject, decls[0].Parameters.Type)
	assert.Equal(t, genai.TypeInteger, decls[0].Parameters.Properties["bbox_id"].Type)
	assert.Equal(t, []string{"bbox_id"}, decls[0].Parameters.Required)
	assert.Nil(t, decls[1].Parameters)
}

func TestConvertSchemaNullable(t *testing.T) {
	s := convertSchema(llm.Object(map[string]*llm.Schema{
		"errors": llm.String("problems").OrNull(),
	}))
	require.NotNil(t, s.Properties["errors"].Nullable)
	assert.True(t, *s.Properties["errors"].Nullable)
	assert.Nil(t, convertSchema(nil))
}
