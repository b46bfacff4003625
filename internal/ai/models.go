package ai

// Model metadata, fallback chains and endpoint defaults per provider.
// Prices are illustrative and only feed cost estimates in the CLI.

type ModelInfo struct {
	Name          string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

var models = map[string]ModelInfo{
	"gemini-3-flash-preview": {Name: "gemini-3-flash-preview", ContextTokens: 1000000, InputPerK: 0.0005, OutputPerK: 0.003},
	"gemini-2.5-flash":       {Name: "gemini-2.5-flash", ContextTokens: 1000000, InputPerK: 0.0003, OutputPerK: 0.0025},
	"gemini-2.0-flash":       {Name: "gemini-2.0-flash", ContextTokens: 1000000, InputPerK: 0.0001, OutputPerK: 0.0004},
	"gpt-4.1-mini":           {Name: "gpt-4.1-mini", ContextTokens: 1000000, InputPerK: 0.0004, OutputPerK: 0.0016},
	"gpt-4o-mini":            {Name: "gpt-4o-mini", ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
	// OpenRouter names
	"google/gemini-2.5-flash":   {Name: "google/gemini-2.5-flash", ContextTokens: 1000000, InputPerK: 0.0003, OutputPerK: 0.0025},
	"openai/gpt-4o-mini":        {Name: "openai/gpt-4o-mini", ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
	"deepseek/deepseek-r1:free": {Name: "deepseek/deepseek-r1:free", ContextTokens: 128000},
	// Common local (Ollama) tags
	"llama3.1:8b-instruct": {Name: "llama3.1:8b-instruct", ContextTokens: 8192},
	"llama3:latest":        {Name: "llama3:latest", ContextTokens: 8192},
}

var fallbackChains = map[string][]string{
	ProviderGemini:     {"gemini-3-flash-preview", "gemini-2.5-flash", "gemini-2.0-flash"},
	ProviderOpenAI:     {"gpt-4.1-mini", "gpt-4o-mini"},
	ProviderOpenRouter: {"google/gemini-2.5-flash", "openai/gpt-4o-mini", "deepseek/deepseek-r1:free"},
	ProviderOllama:     {"llama3.1:8b-instruct", "llama3:latest"},
}

var baseURLs = map[string]string{
	ProviderGemini:     "https://generativelanguage.googleapis.com/v1beta/openai",
	ProviderOpenAI:     "https://api.openai.com/v1",
	ProviderOpenRouter: "https://openrouter.ai/api/v1",
	ProviderOllama:     DefaultOllamaHost,
}

var apiKeyEnvs = map[string]string{
	ProviderGemini:     "GEMINI_API_KEY",
	ProviderOpenAI:     "OPENAI_API_KEY",
	ProviderOpenRouter: "OPENROUTER_API_KEY",
}

var displayNames = map[string]string{
	ProviderGemini:     "Gemini",
	ProviderOpenAI:     "OpenAI",
	ProviderOpenRouter: "OpenRouter",
	ProviderOllama:     "Ollama",
}

// DisplayName returns a human-readable provider name, or provider itself.
func DisplayName(provider string) string {
	if n, ok := displayNames[provider]; ok {
		return n
	}
	return provider
}

// FallbackChain returns the default model priority list for provider, most
// preferred first. The result is a copy.
func FallbackChain(provider string) []string {
	chain := fallbackChains[provider]
	out := make([]string, len(chain))
	copy(out, chain)
	return out
}

// DefaultBaseURL returns the provider's default endpoint, or "".
func DefaultBaseURL(provider string) string { return baseURLs[provider] }

// APIKeyEnv names the provider-specific environment variable holding a key.
func APIKeyEnv(provider string) string { return apiKeyEnvs[provider] }

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}
