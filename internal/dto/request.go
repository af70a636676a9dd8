package dto

// CommandRequest is the JSON body of the command endpoints.
type CommandRequest struct {
	Path   string `json:"path"`
	Camera bool   `json:"camera"`
}

// ErrorResponse is returned with every non-2xx API status.
type ErrorResponse struct {
	Error string `json:"error"`
}
