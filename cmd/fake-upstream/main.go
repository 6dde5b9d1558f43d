// fake-upstream imita a Messages API do provedor para testes manuais do
// gateway sem gastar créditos:
//
//	LISTEN_ADDR=:8081 go run ./cmd/fake-upstream
//	ANTHROPIC_BASE_URL=http://localhost:8081/v1 ANTHROPIC_API_KEY=x go run ./cmd/gateway
//
// FAKE_STATUS força um status de erro (ex: 503) para exercitar o repasse.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
)

type messagesRequest struct {
	MaxTokens int `json:"max_tokens"`
	Messages  []struct {
		Content string `json:"content"`
	} `json:"messages"`
}

func newHandler(forcedStatus int) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/messages", func(w http.ResponseWriter, r *http.Request) {
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"type":"error","error":{"type":"invalid_request_error"}}`, http.StatusBadRequest)
			return
		}
		log.Printf("fake-upstream: max_tokens=%d messages=%d", req.MaxTokens, len(req.Messages))

		if forcedStatus != 0 {
			http.Error(w, `{"type":"error","error":{"type":"overloaded_error"}}`, forcedStatus)
			return
		}

		// validação responde no formato esperado; o resto vira um texto fixo
		text := "Start with one repetitive, high-volume process and pilot an assistant there before scaling."
		if len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, `exactly "VALID"`) {
			text = "VALID"
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":    "message",
			"role":    "assistant",
			"content": []map[string]string{{"type": "text", "text": text}},
		})
	})
	return mux
}

func main() {
	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}
	status, _ := strconv.Atoi(os.Getenv("FAKE_STATUS"))

	log.Printf("fake upstream listening on %s (forced status=%d)", addr, status)
	if err := http.ListenAndServe(addr, newHandler(status)); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
