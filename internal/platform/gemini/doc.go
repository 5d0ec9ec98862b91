// Package gemini implements generation.TaskParser and generation.Summarizer
// on Google's Gemini models through google.golang.org/genai.
//
// Every model call is rate limited on the client side and wrapped in the
// retry Executor. API failures are converted into retry.StatusError values
// carrying the HTTP status, so the executor can tell a rate limit from a
// rejected request. Blocked or unparsable output is reported as a
// non-retryable invalid_input failure that wraps generation.ErrContentBlocked
// or generation.ErrInvalidResponse.
//
// Prompts are embedded text templates under prompts/.
package gemini
