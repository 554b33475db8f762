package review

import (
	"embed"
	"strings"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFiles embed.FS

var reviewTemplate = template.Must(template.ParseFS(promptFiles, "prompts/review.tmpl"))

// userInstruction is sent as the user turn after the system prompt.
const userInstruction = "Please review this code and provide feedback in the JSON format specified."

// BuildPrompt renders the system prompt for a review. The code and language are
// embedded verbatim; nothing is escaped, so the code can steer the model.
func BuildPrompt(code, language string) string {
	var b strings.Builder
	// Executing into a strings.Builder with plain string fields cannot fail.
	_ = reviewTemplate.Execute(&b, struct {
		Code     string
		Language string
	}{Code: code, Language: language})
	return b.String()
}

// BuildMessages returns the conversation sent to the generation service.
func BuildMessages(code, language string) []Message {
	return []Message{
		{Role: RoleSystem, Content: BuildPrompt(code, language)},
		{Role: RoleUser, Content: userInstruction},
	}
}
