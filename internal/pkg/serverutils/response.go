package serverutils

type ResponseEnvelope struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(message string, data interface{}) ResponseEnvelope {
	return ResponseEnvelope{Message: message, Data: data}
}
