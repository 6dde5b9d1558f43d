// Package upstream fala com o provedor de geração de texto.
//
// Cada chamada a Complete é uma única tentativa: sem retry, sem circuit
// breaker. Respostas não-2xx do provedor voltam como *StatusError.
package upstream

import (
	"context"
	"fmt"
)

// Prompt é o texto final enviado ao modelo e o teto de tokens da resposta.
type Prompt struct {
	Text      string
	MaxTokens int
}

type Request struct {
	APIKey string
	Prompt Prompt
}

// Client é o contrato mínimo que o proxy precisa do provedor.
type Client interface {
	// Complete devolve o primeiro texto gerado, ou "" se a resposta não tiver texto.
	Complete(ctx context.Context, req Request) (string, error)
}

// StatusError é uma resposta não-2xx do provedor.
// Body é só para log; nunca deve chegar ao cliente do gateway.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}
