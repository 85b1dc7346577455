package grants

import "context"

type Repository interface {
	Get(ctx context.Context, relationshipID, slug string) (ClientPermission, error)

	// Upsert escribe por (relationship_id, slug): inserta la primera vez,
	// después flipea status/timestamps sobre la misma fila.
	Upsert(ctx context.Context, cp ClientPermission) error

	ListByRelationship(ctx context.Context, relationshipID string) ([]ClientPermission, error)
	ListGranted(ctx context.Context, relationshipID string) ([]ClientPermission, error)

	// ExclusiveHolders devuelve las filas granted del slug para el
	// cliente cuya relación está activa, más reciente primero (por
	// granted_at, desempate created_at). Dentro de una transacción el
	// adapter postgres toma un advisory lock por (cliente, slug): es el
	// lock path por el que serializan los grants exclusivos concurrentes.
	ExclusiveHolders(ctx context.Context, clientID, slug string) ([]Holder, error)

	// AnyGranted reporta si la relación tiene granted alguno de los slugs.
	AnyGranted(ctx context.Context, relationshipID string, slugs []string) (bool, error)

	CreateRequest(ctx context.Context, pr PermissionRequest) error
	GetRequest(ctx context.Context, id string) (PermissionRequest, error)
	UpdateRequest(ctx context.Context, pr PermissionRequest) error
	ListRequestsByRelationship(ctx context.Context, relationshipID string) ([]PermissionRequest, error)
	FindPendingRequest(ctx context.Context, relationshipID, slug string) (PermissionRequest, error)
}
