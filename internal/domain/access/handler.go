package access

import (
	"encoding/json"
	"net/http"
	"strings"

	"pro-client-access/internal/domain/catalog"
	"pro-client-access/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/access/check", checkHandler(svc))
	r.Get("/access/clients", accessibleClientsHandler(svc))
	r.Get("/clients/{clientID}/exclusive/{slug}", exclusiveHolderHandler(svc))
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

type clientsResponse struct {
	ClientIDs []string `json:"client_ids"`
}

type holderResponse struct {
	RelationshipID string `json:"relationship_id"`
	ProfessionalID string `json:"professional_id"`
	Role           string `json:"role_type"`
}

// checkHandler godoc
// @Summary  ¿Puede el profesional ver la categoría del cliente?
// @Tags     access
// @Produce  json
// @Param    client_id query string true "client id"
// @Param    category query string true "data category"
// @Param    role query string false "required role type"
// @Success  200 {object} access.checkResponse
// @Router   /access/check [get]
func checkHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// professional_id explícito solo para admins; el resto consulta
		// por sí mismo (identidad siempre explícita, nunca ambiente)
		proID := claims.UserID
		if v := strings.TrimSpace(r.URL.Query().Get("professional_id")); v != "" && v != claims.UserID {
			if !claims.Admin {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			proID = v
		}

		allowed, err := svc.CanView(
			r.Context(),
			proID,
			r.URL.Query().Get("client_id"),
			catalog.Category(strings.TrimSpace(r.URL.Query().Get("category"))),
			catalog.RoleType(strings.TrimSpace(r.URL.Query().Get("role"))),
		)
		if err != nil {
			writeAccessError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, checkResponse{Allowed: allowed})
	}
}

// accessibleClientsHandler godoc
// @Summary  Clientes visibles del profesional autenticado
// @Tags     access
// @Produce  json
// @Param    role query string false "required role type"
// @Success  200 {object} access.clientsResponse
// @Router   /access/clients [get]
func accessibleClientsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ids, err := svc.AccessibleClients(
			r.Context(),
			claims.UserID,
			catalog.RoleType(strings.TrimSpace(r.URL.Query().Get("role"))),
		)
		if err != nil {
			writeAccessError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, clientsResponse{ClientIDs: ids})
	}
}

// exclusiveHolderHandler godoc
// @Summary  Quién tiene hoy el permiso exclusivo del cliente
// @Tags     access
// @Produce  json
// @Param    clientID path string true "client id"
// @Param    slug path string true "permission slug"
// @Success  200 {object} access.holderResponse
// @Router   /clients/{clientID}/exclusive/{slug} [get]
func exclusiveHolderHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		rel, err := svc.ExclusiveHolder(r.Context(), claims, chi.URLParam(r, "clientID"), chi.URLParam(r, "slug"))
		if err != nil {
			writeAccessError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, holderResponse{
			RelationshipID: rel.ID,
			ProfessionalID: rel.ProfessionalID,
			Role:           string(rel.Role),
		})
	}
}

func writeAccessError(w http.ResponseWriter, err error) {
	switch err {
	case ErrInvalidInput:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case ErrForbidden:
		http.Error(w, "forbidden", http.StatusForbidden)
	case ErrNotFound:
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON duplicado a propósito por módulo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
