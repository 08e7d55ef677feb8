package ollama

import "fmt"

const promptTemplate = `You are an expert security analyst specializing in secret detection.
Your task is to determine if a given string is a hardcoded secret.
Analyze the following code snippet and the highlighted candidate string.

Code Context:
` + "```" + `
%s
` + "```" + `

Candidate Secret: %q

Is the candidate string a real, hardcoded secret, or is it a placeholder,
example, or test data? Provide your answer in JSON format with two keys:
"is_secret" (boolean) and "reason" (a brief explanation).
`

func buildPrompt(value, snippet string) string {
	return fmt.Sprintf(promptTemplate, snippet, value)
}
