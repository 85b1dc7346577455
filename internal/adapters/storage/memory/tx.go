// Package memory implementa los repos sobre maps en proceso. Se usa en
// modo dev (sin DB_DSN) y en los tests de servicios y router.
package memory

import (
	"context"
	"sync"
)

// TxManager serializa las transacciones con un mutex global del store.
// No hay rollback: las operaciones de los servicios están ordenadas para
// que los pasos que pueden fallar (checks de unicidad, compare-and-set)
// corran antes de la primera escritura.
type TxManager struct {
	mu sync.Mutex
}

func NewTxManager() *TxManager {
	return &TxManager{}
}

func (t *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}
