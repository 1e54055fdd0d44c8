package models

// ErrorResponse is the envelope for request-level failures. Completed
// evaluations, including ones with status "error", are returned as the
// submission result itself.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PolicyListResponse lists the registered policy class names.
type PolicyListResponse struct {
	Policies []string `json:"policies"`
}
