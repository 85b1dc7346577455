package catalog

// RoleType define el tipo de relación profesional-cliente y con eso el
// bundle de permisos que se otorga por defecto al aceptar la invitación.
type RoleType string

const (
	RoleNutritionist RoleType = "nutritionist"
	RoleTrainer      RoleType = "trainer"
	RoleCoach        RoleType = "coach"
)

func ValidRole(r RoleType) bool {
	switch r {
	case RoleNutritionist, RoleTrainer, RoleCoach:
		return true
	}
	return false
}

// Bundles por rol: una sola fuente de verdad, compartida por invitaciones
// y access checks. Nunca incluyen slugs exclusivos: un permiso exclusivo
// siempre se pide explícito para que la arbitración pase por Grant.
var defaultBundles = map[RoleType][]string{
	RoleNutritionist: {
		SlugViewNutrition,
		SlugLogNutrition,
		SlugViewWeight,
		SlugViewFasting,
		SlugViewCheckins,
	},
	RoleTrainer: {
		SlugViewWorkouts,
		SlugLogWorkouts,
		SlugViewWeight,
		SlugViewCheckins,
	},
	RoleCoach: {
		SlugViewNutrition,
		SlugViewWorkouts,
		SlugViewWeight,
		SlugViewCheckins,
		SlugViewPhotos,
		SlugCommentCheckins,
	},
}

// DefaultBundle devuelve una copia del bundle del rol.
func DefaultBundle(r RoleType) []string {
	src := defaultBundles[r]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// InDefaultBundle reporta si el slug ya viene implícito en el rol
// (para rechazar pedidos redundantes en la invitación).
func InDefaultBundle(r RoleType, slug string) bool {
	for _, s := range defaultBundles[r] {
		if s == slug {
			return true
		}
	}
	return false
}
