package catalog

import "time"

// Category agrupa permisos por dominio de datos del cliente.
type Category string

const (
	CategoryNutrition Category = "nutrition"
	CategoryWorkouts  Category = "workouts"
	CategoryWeight    Category = "weight"
	CategoryPhotos    Category = "photos"
	CategoryCheckins  Category = "checkins"
	CategoryFasting   Category = "fasting"
	CategoryProfile   Category = "profile"
)

type PermissionType string

const (
	TypeRead  PermissionType = "read"
	TypeWrite PermissionType = "write"
)

// Definition es una entrada del catálogo de permisos. La administran
// admins: se crea, se edita, se deshabilita — nunca se borra.
type Definition struct {
	Slug     string
	Category Category
	Type     PermissionType

	// Exclusive: a lo sumo un profesional activo puede tener el grant
	// por cliente (p.ej. solo uno define los targets de nutrición).
	Exclusive bool

	// Enabled es el kill switch a nivel catálogo.
	Enabled bool

	// RequiresVerification: el profesional debe tener credencial
	// verificada para pedir/recibir este grant.
	RequiresVerification bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func ValidCategory(c Category) bool {
	switch c {
	case CategoryNutrition, CategoryWorkouts, CategoryWeight,
		CategoryPhotos, CategoryCheckins, CategoryFasting, CategoryProfile:
		return true
	}
	return false
}

func ValidPermissionType(t PermissionType) bool {
	return t == TypeRead || t == TypeWrite
}

// DefaultVisible: categorías visibles en cualquier relación activa sin
// grant explícito.
func DefaultVisible(c Category) bool {
	return c == CategoryProfile
}
