// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Limitadores (domain.LimiterStore):
//   - FixedWindow: janela fixa em memória (padrão do gateway: 20 req / 60s)
//   - RedisFixedWindow: mesma regra, atômica via script Lua, compartilhada entre instâncias
//   - TokenStore: token bucket por chave usando golang.org/x/time/rate
//
// Outros:
//   - ChanPool: semáforo simples para limite de concorrência
//   - MemoryStatsStore / RedisStatsStore: estatísticas das decisões
package infra
