package handler

// StartSessionResponse is the body returned by POST /session.
type StartSessionResponse struct {
	Token         string `json:"token"`
	Email         string `json:"email"`
	AccountExists bool   `json:"account_exists"`
	Message       string `json:"message"`
}

// UploadResponse is the body returned by POST /uploadDoc for every terminal
// outcome except a system failure.
type UploadResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}
