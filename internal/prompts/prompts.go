package prompts

// Example prompts used as few-shot references when synthesizing a template
// for a newly discovered domain/category pair. The rows live in the prompts
// table under these fixed ids.
var examplePromptIDs = []int{1, 2}

const synthesisPrompt = `You are an expert prompt engineer for call center analysis.

Given a call transcript from the domain '%s' with category '%s',
you need to create an extraction prompt that captures the most relevant information.

Here are example prompts for reference:
%s

Generate a JSON extraction prompt that specifies what fields should be extracted for this specific domain and category.
The prompt should:
1. Ask to extract key fields relevant to %s - %s
2. Include specific field names and descriptions
3. Ask to return the result as JSON
4. Be concise but comprehensive

Generate ONLY a valid extraction prompt (no JSON wrapper, just the prompt text):`
