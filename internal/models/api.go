package models

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type ConnectivityEvent struct {
	Online bool `json:"online"`
}

type MutationEvent struct {
	Kind string `json:"kind"`
	Op   string `json:"op"`
	ID   string `json:"id,omitempty"`
}
