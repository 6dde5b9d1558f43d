package proxy

import (
	"fmt"

	"llm-gateway/upstream"
)

const (
	validateMaxTokens = 100
	insightMaxTokens  = 300
)

const validateTemplate = `You are validating a user's answer to a business assessment question.

Question: "%s"
User's answer: "%s"

Is this a relevant, meaningful answer to the question? Gibberish, off-topic text or placeholder text is not valid.

Respond with exactly "VALID" if the answer is acceptable, or "INVALID: <one short suggestion for a better answer>" if it is not.`

const insightTemplate = `You are an AI strategy consultant. A business has just completed an AI readiness assessment.

Score: %s
Readiness tier: %s
Context: %s
%s
Write a 2-3 sentence personalized recommendation for their next step with AI. Be specific and practical. Do not use bullet points or headings.`

const customAnswersNote = "Note: They provided custom answers, so tailor the advice to their specific situation.\n"

func (a ValidateAction) Prompt() upstream.Prompt {
	return upstream.Prompt{
		Text:      fmt.Sprintf(validateTemplate, a.Question, a.Input),
		MaxTokens: validateMaxTokens,
	}
}

func (a InsightAction) Prompt() upstream.Prompt {
	note := ""
	if a.Assessment.CustomAnswers() {
		note = customAnswersNote
	}
	return upstream.Prompt{
		Text: fmt.Sprintf(insightTemplate,
			coerce(a.Assessment.Score),
			coerce(a.Assessment.Tier),
			coerce(a.Assessment.ContextSummary),
			note,
		),
		MaxTokens: insightMaxTokens,
	}
}
