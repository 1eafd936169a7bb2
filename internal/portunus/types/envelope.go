package types

import "encoding/json"

type ErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Envelope wraps every backend response: {success, data} on 2xx,
// {success:false, error:{message}} otherwise.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}
