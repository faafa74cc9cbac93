package model

// ================ Config ================

type SessionConfig struct {
	TTL      string `envconfig:"SESSION_TTL" default:"30m"`
	MaxTurns int    `envconfig:"SESSION_MAX_TURNS" default:"20"`
}

type ClassifierConfig struct {
	Provider     string  `envconfig:"CLASSIFIER_PROVIDER" default:"gemini"`
	Model        string  `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens    int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"1000"`
	Temperature  float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0.1"`
	Timeout      string  `envconfig:"CLASSIFIER_TIMEOUT" default:"4s"`
	ContextTurns int     `envconfig:"CLASSIFIER_CONTEXT_TURNS" default:"5"`
}

type RouterConfig struct {
	// TieBreakMargin is the confidence gap under which the top two candidates
	// count as ambiguous and the focus-topic tie-break applies.
	TieBreakMargin float64 `envconfig:"ROUTER_TIEBREAK_MARGIN" default:"0.15"`
}

type HandlerConfig struct {
	Timeout string `envconfig:"HANDLER_TIMEOUT" default:"5s"`
}

type ResponderConfig struct {
	Model       string  `envconfig:"RESPONDER_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONDER_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONDER_TEMPERATURE" default:"0.4"`
}

type PromptConfig struct {
	BusinessType string `envconfig:"PROMPT_BUSINESS_TYPE" default:"retail store"`
	BusinessName string `envconfig:"PROMPT_BUSINESS_NAME" default:"ShopTalk"`
}
