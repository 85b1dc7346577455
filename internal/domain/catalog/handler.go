package catalog

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"pro-client-access/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/admin/permissions", func(ar chi.Router) {
		ar.Get("/", listDefinitionsHandler(svc))
		ar.Post("/", createDefinitionHandler(svc))
		ar.Post("/{slug}/disable", setEnabledHandler(svc, false))
		ar.Post("/{slug}/enable", setEnabledHandler(svc, true))
	})
}

type definitionResponse struct {
	Slug                 string    `json:"slug"`
	Category             Category  `json:"category"`
	Type                 string    `json:"permission_type"`
	Exclusive            bool      `json:"is_exclusive"`
	Enabled              bool      `json:"is_enabled"`
	RequiresVerification bool      `json:"requires_verification"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type createDefinitionRequest struct {
	Slug                 string `json:"slug"`
	Category             string `json:"category"`
	Type                 string `json:"permission_type"`
	Exclusive            bool   `json:"is_exclusive"`
	RequiresVerification bool   `json:"requires_verification"`
}

// listDefinitionsHandler godoc
// @Summary  Lista el catálogo de permisos
// @Tags     admin
// @Produce  json
// @Success  200 {array} catalog.definitionResponse
// @Router   /admin/permissions [get]
func listDefinitionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetClaims(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		items, err := svc.List(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]definitionResponse, 0, len(items))
		for _, d := range items {
			out = append(out, toDefinitionResponse(d))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// createDefinitionHandler godoc
// @Summary  Crea una definición de permiso (solo admin)
// @Tags     admin
// @Accept   json
// @Produce  json
// @Param    body body catalog.createDefinitionRequest true "definición"
// @Success  201 {object} catalog.definitionResponse
// @Router   /admin/permissions [post]
func createDefinitionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createDefinitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		d, err := svc.Create(r.Context(), claims, CreateInput{
			Slug:                 strings.TrimSpace(req.Slug),
			Category:             Category(req.Category),
			Type:                 PermissionType(req.Type),
			Exclusive:            req.Exclusive,
			RequiresVerification: req.RequiresVerification,
		})
		if err != nil {
			switch err {
			case ErrForbidden:
				http.Error(w, "forbidden", http.StatusForbidden)
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusCreated, toDefinitionResponse(d))
	}
}

func setEnabledHandler(svc *Service, enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		d, err := svc.SetEnabled(r.Context(), claims, chi.URLParam(r, "slug"), enabled)
		if err != nil {
			switch err {
			case ErrForbidden:
				http.Error(w, "forbidden", http.StatusForbidden)
			case ErrNotFound:
				http.Error(w, "not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusOK, toDefinitionResponse(d))
	}
}

func toDefinitionResponse(d Definition) definitionResponse {
	return definitionResponse{
		Slug:                 d.Slug,
		Category:             d.Category,
		Type:                 string(d.Type),
		Exclusive:            d.Exclusive,
		Enabled:              d.Enabled,
		RequiresVerification: d.RequiresVerification,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

// writeJSON se duplica a propósito por módulo (mismo criterio que el resto
// de handlers: no extraer helpers compartidos antes de tiempo).
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
