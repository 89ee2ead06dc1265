package extractor

// genericTemplate is the last-resort domain instruction when no stored or
// synthesized template exists for the pair.
const genericTemplate = `Extract all relevant information from the following transcript for a %s call with %s category.
Focus on capturing dates, names, numbers, and key decisions made during the call.`

// combinedPrompt asks for domain-specific extraction and the general
// analysis in a single model call.
// Verbs: domain, category, template, transcript.
const combinedPrompt = `You are analyzing a %s call (%s category).

## PART 1: DOMAIN-SPECIFIC DATA EXTRACTION

%s

---

## PART 2: GENERAL CALL ANALYSIS

Analyze the transcript and extract:

1. **Names**: agent_name, customer_name ("Not Available" when missing)
2. **Call Metadata**: call_direction (Inbound/Outbound), interaction_type (Conversation/Voicemail left by member/Voicemail left by agent)
3. **Sentiment & Intent**: sentiment (Positive/Neutral/Negative), intent (3-5 word summary)
4. **Summary**: Brief summary of the conversation
5. **Agent Metrics**: empathy_score (0-10), professionalism_score (0-10), knowledge_gap_detection (instances where the agent was unsure or gave incomplete or incorrect information)
6. **PII Detection**: Date of birth information if present

---

## OUTPUT FORMAT

Return ONLY valid JSON with this structure (no markdown, no extra text):

{
  "domain_specific_data": {
    "...": "... [include all fields from domain-specific extraction]"
  },
  "general_metrics": {
    "section_1_name_extraction": {
      "agent_name": string,
      "customer_name": string
    },
    "section_2_call_direction_interaction_type": {
      "call_direction": string,
      "interaction_type": string
    },
    "section_3_sentiment_and_intent_detection": {
      "sentiment": string,
      "intent": string
    },
    "section_4_summary_of_conversation_in_brief": string,
    "section_5_agent_improvement_metrics": {
      "empathy_score": number,
      "professionalism_score": number,
      "knowledge_gap_detection": [string]
    },
    "section_6_pci_pii_data_detection": [string]
  }
}

---

Transcript to analyze:
%s`
