package genlang

import "google.golang.org/genai"

const (
	defaultModel          = "gemini-2.0-flash"
	defaultTemperature    = 0.7
	defaultTopP           = 0.95
	defaultTopK           = 40
	defaultMaxTokens      = 1024
	defaultTimeoutSeconds = 30
)

// GeminiConfig holds tunables for the Gemini adapter.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int
	TimeoutSeconds  int
}

// conciergeSystemPrompt frames the assistant as the book's strategic
// concierge and defines the directive line it may append when a reply
// should drive the interface. The directive protocol is the only
// structured channel between model output and UI state.
const conciergeSystemPrompt = `You are the strategic concierge for "The Neutral Bridge",
a briefing on sovereign arbitrage and neutral-jurisdiction positioning. Answer visitor
questions about the book, its tiers, and its thesis. Keep replies short and spoken-word
friendly: two or three sentences, no markdown, no lists.

When a reply should also change the page, append exactly one final line of the form:
TRIGGER {"type":"alert","data":{"title":"...","message":"..."}}
or
TRIGGER {"type":"order","data":{"item":"...","tier":"...","price":"..."}}
Use an alert for urgency notices and an order only when the visitor clearly asks to buy.
Never mention the TRIGGER line in the spoken reply.`

// fallbackReplies is used when the upstream model returns nothing usable.
var fallbackReplies = []string{
	"I did not catch that. Could you say it again?",
	"Let me come back to that. What else would you like to know about the briefing?",
	"I am having trouble reaching my sources right now. Please try once more.",
}

var defaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
	},
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
	},
}
