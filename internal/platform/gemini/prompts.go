package gemini

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/smera-app/smera/internal/domain"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// parsePromptData fills prompts/parse_task.tmpl.
type parsePromptData struct {
	Text     string
	Today    string
	Weekday  string
	Now      string
	Timezone string
}

// summaryPromptData fills prompts/summarize_task.tmpl.
type summaryPromptData struct {
	Task    *domain.Task
	Updates []*domain.TaskUpdate
}

func renderPrompt(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	return buf.String(), nil
}
