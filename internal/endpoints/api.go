package endpoints

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the envelope for every JSON reply the collector emits on
// its query endpoints. Track-style endpoints reply 204 with no body and do
// not use it. Status mirrors ErrorCode for clients that only check a bool;
// Value carries the payload on success and is omitted on failure.
type APIResponse struct {
	Status    bool        `json:"status"`
	Value     interface{} `json:"value,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorCode int         `json:"error_code"`
}

// writeJSON marshals the envelope and writes it with the collector's
// standard headers. A statusCode of 0 leaves the default 200 OK.
func (res APIResponse) writeJSON(w http.ResponseWriter, statusCode int) {
	body, _ := json.Marshal(res)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if statusCode != 0 {
		w.WriteHeader(statusCode)
	}
	w.Write(body)
}

// WriteErrorResponse replies 200 OK with the failure envelope; the client
// distinguishes outcomes by error_code rather than HTTP status.
func (res APIResponse) WriteErrorResponse(w http.ResponseWriter, err error) {
	res.Status = false
	res.Error = err.Error()
	res.ErrorCode = GetErrorCode(err)

	res.writeJSON(w, 0)
}

// WriteErrorResponseWithStatusCode replies with an explicit HTTP status for
// failures the transport layer should see, such as 400 or 408.
func (res APIResponse) WriteErrorResponseWithStatusCode(w http.ResponseWriter, err error, statusCode int) {
	res.Status = false
	res.Error = err.Error()
	if statusCode == http.StatusUnauthorized {
		res.ErrorCode = API_UNAUTHORIZED
	} else {
		res.ErrorCode = GetErrorCode(err)
	}

	res.writeJSON(w, statusCode)
}

// WriteResultResponse replies 200 OK with the result in the Value field.
func (res APIResponse) WriteResultResponse(w http.ResponseWriter, result interface{}) {
	res.Status = true
	res.Value = result
	res.ErrorCode = GetErrorCode(nil)

	res.writeJSON(w, 0)
}
