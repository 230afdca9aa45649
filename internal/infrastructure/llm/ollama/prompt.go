package ollama

import "fmt"

func buildAnswerPrompt(question, contextBlock string) string {
	if contextBlock == "" {
		return fmt.Sprintf(
			"Answer the user question.\nIf you do not know the answer, say it directly.\n\nQuestion:\n%s\n",
			question,
		)
	}
	return fmt.Sprintf(
		"Answer the user question only from the context below.\nIf the context is insufficient, say it directly.\n\nQuestion:\n%s\n\nContext:\n%s\n",
		question,
		contextBlock,
	)
}
