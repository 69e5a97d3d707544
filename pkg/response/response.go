package response

// ErrorBody is the JSON error shape returned by HTTP handlers
type ErrorBody struct {
	Error string `json:"error"`
}

func NewError(message string) ErrorBody {
	return ErrorBody{Error: message}
}
