// utilitários pequenos para headers e corpos de erro do gateway.

package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func formatFloat(v float64) string {
	// sem notação científica para valores comuns
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ErrorBody é o único formato de erro que chega ao cliente.
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteJSON escreve v como JSON com o status informado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError escreve {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorBody{Error: msg})
}
