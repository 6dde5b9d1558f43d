// Package ratelimit fornece adapters HTTP (net/http) para rate limit e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela fixa, Redis, token bucket, semáforo)
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + tradução para status/headers
//
// Fluxo no gateway:
//
//   1) Extrai a chave do cliente (header/XFF/RemoteAddr)
//   2) Chama a camada application para obter a decisão
//   3) Se bloqueado, responde 429 (rate limit) ou 503 (concorrência) com {"error": "..."}
//   4) Se permitido, chama o próximo handler (ex: o proxy para o LLM)
//
// O binário cmd/gateway controla o comportamento por variáveis de ambiente,
// como RATE_BACKEND, CONCURRENCY_MAX e CONCURRENCY_TIMEOUT.
package ratelimit
