package relationships

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"pro-client-access/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/relationships/{relationshipID}", func(rr chi.Router) {
		rr.Get("/", getRelationshipHandler(svc))
		rr.Post("/end", endRelationshipHandler(svc))
	})

	// Vistas "mías": el caller como profesional o como cliente.
	r.Get("/me/relationships", listMineHandler(svc))
}

type relationshipResponse struct {
	ID             string     `json:"id"`
	ProfessionalID string     `json:"professional_id"`
	ClientID       string     `json:"client_id,omitempty"`
	ClientEmail    string     `json:"client_email,omitempty"`
	Role           string     `json:"role_type"`
	Status         Status     `json:"status"`
	InvitedAt      time.Time  `json:"invited_at"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
}

// getRelationshipHandler godoc
// @Summary  Detalle de una relación (solo partes)
// @Tags     relationships
// @Produce  json
// @Param    relationshipID path string true "relationship id"
// @Success  200 {object} relationships.relationshipResponse
// @Router   /relationships/{relationshipID} [get]
func getRelationshipHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		rel, err := svc.GetByID(r.Context(), claims, chi.URLParam(r, "relationshipID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRelationshipResponse(rel))
	}
}

// endRelationshipHandler godoc
// @Summary  Termina una relación activa y revoca sus grants
// @Tags     relationships
// @Produce  json
// @Param    relationshipID path string true "relationship id"
// @Success  200 {object} relationships.relationshipResponse
// @Router   /relationships/{relationshipID}/end [post]
func endRelationshipHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		rel, err := svc.End(r.Context(), claims, chi.URLParam(r, "relationshipID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRelationshipResponse(rel))
	}
}

func listMineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// as=professional|client (default: client)
		var (
			items []Relationship
			err   error
		)
		if strings.EqualFold(r.URL.Query().Get("as"), "professional") {
			items, err = svc.ListForProfessional(r.Context(), claims)
		} else {
			items, err = svc.ListForClient(r.Context(), claims)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]relationshipResponse, 0, len(items))
		for _, rel := range items {
			out = append(out, toRelationshipResponse(rel))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch err {
	case ErrInvalidInput:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case ErrForbidden:
		http.Error(w, "forbidden", http.StatusForbidden)
	case ErrNotFound:
		http.Error(w, "not found", http.StatusNotFound)
	case ErrInvalidState:
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toRelationshipResponse(rel Relationship) relationshipResponse {
	return relationshipResponse{
		ID:             rel.ID,
		ProfessionalID: rel.ProfessionalID,
		ClientID:       rel.ClientID,
		ClientEmail:    rel.ClientEmail,
		Role:           string(rel.Role),
		Status:         rel.Status,
		InvitedAt:      rel.InvitedAt,
		AcceptedAt:     rel.AcceptedAt,
		EndedAt:        rel.EndedAt,
	}
}

// writeJSON duplicado a propósito por módulo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
