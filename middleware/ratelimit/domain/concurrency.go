package domain

import "context"

// SlotPool limita quantas requisições do gate podem estar em andamento ao
// mesmo tempo (cada uma segura no máximo uma chamada ao provedor upstream).
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// O release retornado deve ser chamado exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
