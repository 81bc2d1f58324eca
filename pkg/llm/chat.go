package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"

	"github.com/finsight/creditrag/internal/models"
)

// AnalystConfig represents the configuration for the credit analyst engine.
type AnalystConfig struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	SystemTemplate string
	BaseURL        string // Ollama server URL
}

// Analyst generates credit-analysis prose grounded in retrieved filing text.
type Analyst struct {
	config AnalystConfig
	llm    llms.Model
}

// NewAnalystWithConfig creates an Analyst with the given configuration.
func NewAnalystWithConfig(config AnalystConfig) (*Analyst, error) {
	if config.Model == "" {
		config.Model = "mistral"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.Temperature == 0 {
		config.Temperature = 0.1
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = "You are a senior credit analyst. Provide clear, structured credit analysis grounded in the filing excerpts you are given."
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	llm, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &Analyst{
		config: config,
		llm:    llm,
	}, nil
}

// Analyze generates a credit report for ticker from labeled groups of
// retrieved chunks (risk factors, financial performance, debt discussion).
func (a *Analyst) Analyze(ctx context.Context, ticker string, sections map[string]models.RetrievalResult) (string, error) {
	prompt := BuildAnalysisPrompt(ticker, sections)

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, a.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	response, err := a.llm.GenerateContent(ctx, content,
		llms.WithTemperature(a.config.Temperature),
		llms.WithMaxTokens(a.config.MaxTokens))
	if err != nil {
		return "", fmt.Errorf("analysis error: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}
	return response.Choices[0].Content, nil
}

// BuildAnalysisPrompt assembles the grounding prompt from retrieved
// sections. Exported so the server can preview the context it sends.
func BuildAnalysisPrompt(ticker string, sections map[string]models.RetrievalResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the creditworthiness of %s based on these 10-K excerpts.\n", ticker)
	for _, name := range []string{"RISK FACTORS", "FINANCIAL PERFORMANCE", "DEBT AND LIQUIDITY"} {
		result, ok := sections[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", name)
		for _, chunk := range result.Chunks {
			b.WriteString(chunk.Text)
			b.WriteString("\n\n")
		}
	}
	b.WriteString("\nProvide: overall credit assessment, key strengths, key risks, and an indicative rating band.")
	return b.String()
}
