// Package storage define el puerto de transacciones compartido por los
// adapters de persistencia. Las operaciones que mutan varias filas corren
// dentro de RunInTx; el tx viaja en el context y cada repo lo resuelve.
package storage

import "context"

type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
