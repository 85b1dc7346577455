package auth

// Claims representa la identidad del caller ya autenticada.
// Verified indica si el profesional tiene credencial verificada
// (lo decide el IdP, no este servicio).
type Claims struct {
	UserID   string
	Email    string
	Admin    bool
	Verified bool
}
