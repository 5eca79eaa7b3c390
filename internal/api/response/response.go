package response

import (
	"encoding/json"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// ResultBody is the response to a lifecycle call: "success" or the failure
// message.
type ResultBody struct {
	Result string `json:"result"`
}

// WriteResult writes a lifecycle result. Failed operations are still HTTP
// 200; the host reads the outcome from the body.
func WriteResult(w http.ResponseWriter, result string) {
	WriteJSON(w, http.StatusOK, ResultBody{Result: result})
}
