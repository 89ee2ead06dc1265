package extractor

const notAvailable = "Not Available"

// Result holds the outcome of the combined extraction call. A non-empty
// Err marks a degraded result: both payloads empty, token counts zero.
// The request continues either way.
type Result struct {
	DomainSpecific map[string]any
	Metrics        *GeneralMetrics
	InputTokens    int
	OutputTokens   int
	Err            string
}

// GeneralMetrics is the fixed general-analysis schema, section keys as the
// model returns them.
type GeneralMetrics struct {
	Names     NameSection      `json:"section_1_name_extraction"`
	Call      CallSection      `json:"section_2_call_direction_interaction_type"`
	Sentiment SentimentSection `json:"section_3_sentiment_and_intent_detection"`
	Summary   string           `json:"section_4_summary_of_conversation_in_brief"`
	Agent     AgentSection     `json:"section_5_agent_improvement_metrics"`
	PII       []string         `json:"section_6_pci_pii_data_detection"`
}

type NameSection struct {
	AgentName    string `json:"agent_name"`
	CustomerName string `json:"customer_name"`
}

type CallSection struct {
	CallDirection   string `json:"call_direction"`   // Inbound | Outbound
	InteractionType string `json:"interaction_type"` // Conversation | Voicemail left by member | Voicemail left by agent
}

type SentimentSection struct {
	Sentiment string `json:"sentiment"` // Positive | Neutral | Negative
	Intent    string `json:"intent"`
}

type AgentSection struct {
	EmpathyScore          float64  `json:"empathy_score"`
	ProfessionalismScore  float64  `json:"professionalism_score"`
	KnowledgeGapDetection []string `json:"knowledge_gap_detection"`
}

// Normalize fills every absent scalar with "Not Available" and every absent
// list with an empty slice, so a key the model dropped never reaches the
// caller as a missing field. Scores the model omitted stay zero.
func (m *GeneralMetrics) Normalize() {
	m.Names.AgentName = orNotAvailable(m.Names.AgentName)
	m.Names.CustomerName = orNotAvailable(m.Names.CustomerName)
	m.Call.CallDirection = orNotAvailable(m.Call.CallDirection)
	m.Call.InteractionType = orNotAvailable(m.Call.InteractionType)
	m.Sentiment.Sentiment = orNotAvailable(m.Sentiment.Sentiment)
	m.Sentiment.Intent = orNotAvailable(m.Sentiment.Intent)
	m.Summary = orNotAvailable(m.Summary)
	if m.Agent.KnowledgeGapDetection == nil {
		m.Agent.KnowledgeGapDetection = []string{}
	}
	if m.PII == nil {
		m.PII = []string{}
	}
}

// FlatMetrics is the scalar slice of GeneralMetrics that lands on the
// general table row.
type FlatMetrics struct {
	AgentName       string
	CustomerName    string
	CallDirection   string
	InteractionType string
	Sentiment       string
	Intent          string
}

// Flatten extracts the persisted scalars. Safe on a nil receiver (degraded
// extraction): every field comes back "Not Available".
func (m *GeneralMetrics) Flatten() FlatMetrics {
	if m == nil {
		return FlatMetrics{
			AgentName:       notAvailable,
			CustomerName:    notAvailable,
			CallDirection:   notAvailable,
			InteractionType: notAvailable,
			Sentiment:       notAvailable,
			Intent:          notAvailable,
		}
	}
	return FlatMetrics{
		AgentName:       orNotAvailable(m.Names.AgentName),
		CustomerName:    orNotAvailable(m.Names.CustomerName),
		CallDirection:   orNotAvailable(m.Call.CallDirection),
		InteractionType: orNotAvailable(m.Call.InteractionType),
		Sentiment:       orNotAvailable(m.Sentiment.Sentiment),
		Intent:          orNotAvailable(m.Sentiment.Intent),
	}
}

func orNotAvailable(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
