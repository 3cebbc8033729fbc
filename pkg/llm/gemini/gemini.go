// Package gemini provides a reasoning provider backed by the Gemini API.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/Suryanshpandey5492/WebVision/pkg/llm"
	"github.com/Suryanshpandey5492/WebVision/pkg/types"
)

const DefaultModel = "gemini-2.5-flash"

// Provider implements llm.Provider on top of the genai SDK.
type Provider struct {
	models  *genai.Models
	apiKey  string
	baseURL string
	model   string
	info    *types.ModelInfo
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// NewProvider creates a Gemini provider. An empty apiKey falls back to
// GEMINI_API_KEY, then GOOGLE_API_KEY.
func NewProvider(ctx context.Context, apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (provide via parameter or GEMINI_API_KEY environment variable)")
	}

	p := &Provider{apiKey: apiKey, model: DefaultModel}
	for _, opt := range opts {
		opt(p)
	}

	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if p.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	p.models = client.Models
	p.info = &types.ModelInfo{
		Name:          p.model,
		Provider:      "gemini",
		MaxTokens:     1048576,
		SupportsTools: true,
		SupportsImage: true,
	}
	return p, nil
}

// CloneWithModel implements llm.ModelCloner.
func (p *Provider) CloneWithModel(model string) llm.Provider {
	clone := *p
	clone.model = model
	info := *p.info
	info.Name = model
	clone.info = &info
	return &clone
}

func (p *Provider) generate(ctx context.Context, messages []types.Message, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	contents, system, err := convertMessages(messages)
	if err != nil {
		return nil, err
	}
	var temperature float32
	cfg.Temperature = &temperature
	cfg.SystemInstruction = system

	resp, err := p.models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, llm.ErrEmptyResponse
	}
	return resp, nil
}

func (p *Provider) Complete(ctx context.Context, messages []types.Message) (*types.Message, error) {
	resp, err := p.generate(ctx, messages, &genai.GenerateContentConfig{})
	if err != nil {
		return nil, err
	}
	msg := types.NewAssistantMessage(resp.Text())
	return &msg, nil
}

func (p *Provider) CompleteWithTools(ctx context.Context, messages []types.Message, tools []llm.ToolSpec) (*llm.Completion, error) {
	cfg := &genai.GenerateContentConfig{}
	if len(tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: convertTools(tools)}}
	}
	resp, err := p.generate(ctx, messages, cfg)
	if err != nil {
		return nil, err
	}

	out := &llm.Completion{Content: resp.Text()}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	for i, fc := range resp.FunctionCalls() {
		args, err := json.Marshal(fc.Args)
		if err != nil {
			return nil, fmt.Errorf("encode args of %s: %w", fc.Name, err)
		}
		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{ID: id, Name: fc.Name, Arguments: string(args)})
	}
	return out, nil
}

func (p *Provider) CompleteStructured(ctx context.Context, messages []types.Message, format llm.ResponseFormat) (string, error) {
	resp, err := p.generate(ctx, messages, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   convertSchema(format.Schema),
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func (p *Provider) GetModelInfo() *types.ModelInfo {
	return p.info
}

func (p *Provider) GetModel() string {
	return p.model
}

// convertMessages splits out system messages into a single system
// instruction and maps the rest to user/model contents.
func convertMessages(messages []types.Message) ([]*genai.Content, *genai.Content, error) {
	var (
		contents []*genai.Content
		system   []string
	)
	for _, m := range messages {
		switch m.Role {
		case types.RoleSystem:
			system = append(system, m.Content)
		case types.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			parts := []*genai.Part{genai.NewPartFromText(m.Content)}
			for _, img := range m.Images {
				data, err := base64.StdEncoding.DecodeString(img.Base64)
				if err != nil {
					return nil, nil, fmt.Errorf("decode image: %w", err)
				}
				parts = append(parts, genai.NewPartFromBytes(data, img.MediaType()))
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		}
	}
	var sys *genai.Content
	if len(system) > 0 {
		sys = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, sys, nil
}

func convertTools(tools []llm.ToolSpec) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decl := &genai.FunctionDeclaration{Name: t.Name, Description: t.Description}
		// parameterless functions must omit the schema entirely
		if t.Parameters != nil && len(t.Parameters.Properties) > 0 {
			decl.Parameters = convertSchema(t.Parameters)
		}
		out = append(out, decl)
	}
	return out
}

var schemaTypes = map[string]genai.Type{
	llm.TypeObject:  genai.TypeObject,
	llm.TypeString:  genai.TypeString,
	llm.TypeInteger: genai.TypeInteger,
	llm.TypeNumber:  genai.TypeNumber,
	llm.TypeBoolean: genai.TypeBoolean,
	llm.TypeArray:   genai.TypeArray,
}

func convertSchema(s *llm.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        schemaTypes[s.Type],
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
	}
	if s.Nullable {
		nullable := true
		out.Nullable = &nullable
	}
	if s.Items != nil {
		out.Items = convertSchema(s.Items)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = convertSchema(prop)
		}
	}
	return out
}
