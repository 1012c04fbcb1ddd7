package chattube

import (
	"github.com/tmc/langchaingo/prompts"
)

const qaTemplate = `You are a highly accurate, knowledgeable, and helpful assistant.
Your goal is to provide consistent, detailed, and reliable answers
based on the given video transcript.

**Instructions:**
1. Always combine information from ALL provided context snippets.
2. If the same entity is mentioned in multiple contexts, merge them into
   one unified and consistent answer.
3. Use ONLY the transcript context first.
4. If the context does not contain sufficient information, respond with:
   **"Information is not provided in the video, but based on my knowledge, [give best answer]."**
5. Answers must remain consistent for the same question, regardless of small variations in wording.
6. Be clear and structured:
    - Use **numbered points** for multiple facts.
    - Use a **single bullet point** if it's one fact.

Context:
{{.context}}

Question:
{{.question}}

Answer:
`

const condenseTemplate = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question, in its original language.

Chat History:
{{.chat_history}}
Follow Up Input: {{.question}}
Standalone question:`

var (
	QAPrompt       = prompts.NewPromptTemplate(qaTemplate, []string{"context", "question"})
	CondensePrompt = prompts.NewPromptTemplate(condenseTemplate, []string{"chat_history", "question"})
)
