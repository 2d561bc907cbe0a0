package answer

import (
	"strings"
	"text/template"
)

// RefusalSentence is the exact reply the model is told to give when the context
// does not contain the answer.
const RefusalSentence = "answer is not available in the context"

const promptText = `Answer the question as thoroughly as possible using only the provided context and chat history.
Do not use outside knowledge and do not guess. If the answer is not in the provided context, reply exactly:
"{{.Refusal}}"

Chat history:
{{if .History}}{{.History}}{{else}}(none)
{{end}}
Context:
{{.Context}}

Question:
{{.Question}}

Answer:
`

var promptTemplate = template.Must(template.New("prompt").Parse(promptText))

// PromptData is the input to the answer prompt.
type PromptData struct {
	History  string
	Context  string
	Question string
	Refusal  string
}

// RenderPrompt fills the fixed answer template. The grounding instruction and the
// refusal sentence are always present.
func RenderPrompt(history, context, question string) (string, error) {
	var b strings.Builder
	err := promptTemplate.Execute(&b, PromptData{
		History:  history,
		Context:  context,
		Question: question,
		Refusal:  RefusalSentence,
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
