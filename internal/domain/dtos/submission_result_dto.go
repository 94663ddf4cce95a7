package dtos

// SubmissionResult is the JSON document the submission endpoint answers with:
// { success, message?, redirect_url?, errors? }.
type SubmissionResult struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message,omitempty"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
}
