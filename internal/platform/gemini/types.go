package gemini

// parsedTask is the JSON object the model returns for a task description.
type parsedTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	DueTime     string `json:"due_time"`
	Priority    string `json:"priority"`
}
