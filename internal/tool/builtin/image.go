package builtin

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	toolcore "github.com/harunnryd/vibechat/internal/tool"
)

const (
	defaultImageModel = openai.CreateImageModelDallE3
	defaultImageSize  = openai.CreateImageSize1024x1024
)

func init() {
	toolcore.RegisterBuiltin("generate_image", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		tool := &ImageTool{
			Model: strings.TrimSpace(options.ImageModel),
			Size:  strings.TrimSpace(options.ImageSize),
		}
		if tool.Model == "" {
			tool.Model = defaultImageModel
		}
		if tool.Size == "" {
			tool.Size = defaultImageSize
		}

		apiKey := strings.TrimSpace(options.ImageAPIKey)
		if apiKey == "" {
			return tool, nil
		}

		cfg := openai.DefaultConfig(apiKey)
		if baseURL := strings.TrimSpace(options.ImageBaseURL); baseURL != "" {
			cfg.BaseURL = baseURL
		}
		cfg.HTTPClient = newHTTPClient(options.TimeoutOr(options.ImageTimeout))
		tool.Client = openai.NewClientWithConfig(cfg)
		return tool, nil
	})
}

// ImageTool generates an image with the OpenAI images API and returns its URL.
// A nil Client means no API key was configured.
type ImageTool struct {
	Client *openai.Client
	Model  string
	Size   string
}

func (t *ImageTool) Name() string { return "generate_image" }

func (t *ImageTool) Description() string {
	return "Generate an image from a text description"
}

func (t *ImageTool) ToolMetadata() toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		Source:       "builtin",
		Capabilities: []string{"image.generate", "http.post"},
		Risk:         toolcore.RiskMedium,
		Network:      true,
	}
}

func (t *ImageTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"prompt": map[string]interface{}{
				"type":        "string",
				"description": "Description of the image to generate. Defaults to the user's message.",
			},
		},
	}
}

func (t *ImageTool) Execute(ctx context.Context, inv toolcore.Invocation) (toolcore.Result, error) {
	var args struct {
		Prompt string `json:"prompt"`
	}
	if err := decodeArgs(inv.Args, &args); err != nil {
		return toolcore.Result{}, err
	}

	prompt := strings.TrimSpace(args.Prompt)
	if prompt == "" {
		prompt = strings.TrimSpace(inv.UserMessage)
	}
	if prompt == "" {
		return toolcore.Fail("prompt is required"), nil
	}
	if t.Client == nil {
		return toolcore.Fail("Image generation is not configured: missing API key"), nil
	}

	resp, err := t.Client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          t.Model,
		N:              1,
		Size:           t.Size,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return toolcore.Failf("Image generation failed: %v", err), nil
	}
	if len(resp.Data) == 0 || strings.TrimSpace(resp.Data[0].URL) == "" {
		return toolcore.Fail("Image generation returned no image"), nil
	}

	data := map[string]string{
		"url":    resp.Data[0].URL,
		"prompt": prompt,
	}
	if revised := strings.TrimSpace(resp.Data[0].RevisedPrompt); revised != "" {
		data["revised_prompt"] = revised
	}
	return toolcore.OK(data), nil
}
