// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// O registro por cliente (WindowRecord) e a decisão (Decision) vivem aqui para
// que application e infra conversem sem conhecer HTTP.
package domain
