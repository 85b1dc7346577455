package grants

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"pro-client-access/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/relationships/{relationshipID}/permissions", func(pr chi.Router) {
		pr.Get("/", listPermissionsHandler(svc))
		pr.Post("/{slug}/grant", grantHandler(svc))
		pr.Post("/{slug}/revoke", revokeHandler(svc))
	})

	r.Route("/relationships/{relationshipID}/requests", func(rr chi.Router) {
		rr.Get("/", listRequestsHandler(svc))
		rr.Post("/", requestPermissionHandler(svc))
	})

	r.Route("/requests/{requestID}", func(rr chi.Router) {
		rr.Post("/approve", approveRequestHandler(svc))
		rr.Post("/deny", denyRequestHandler(svc))
	})
}

type permissionResponse struct {
	ID             string     `json:"id"`
	RelationshipID string     `json:"relationship_id"`
	ClientID       string     `json:"client_id"`
	Slug           string     `json:"permission_slug"`
	Status         Status     `json:"status"`
	GrantedBy      string     `json:"granted_by,omitempty"`
	GrantedAt      *time.Time `json:"granted_at,omitempty"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
}

type requestResponse struct {
	ID             string        `json:"id"`
	RelationshipID string        `json:"relationship_id"`
	Slug           string        `json:"permission_slug"`
	Notes          string        `json:"notes,omitempty"`
	Status         RequestStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty"`
}

type grantRequest struct {
	// Displace pide el swap atómico cuando otro profesional ya tiene el
	// grant exclusivo.
	Displace bool `json:"displace"`
}

type permissionRequestBody struct {
	Slug  string `json:"permission_slug"`
	Notes string `json:"notes"`
}

func listPermissionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByRelationship(r.Context(), claims, chi.URLParam(r, "relationshipID"))
		if err != nil {
			writeGrantError(w, err)
			return
		}
		out := make([]permissionResponse, 0, len(items))
		for _, cp := range items {
			out = append(out, toPermissionResponse(cp))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// grantHandler godoc
// @Summary  Otorga un permiso (swap atómico si es exclusivo con displace)
// @Tags     grants
// @Accept   json
// @Produce  json
// @Param    relationshipID path string true "relationship id"
// @Param    slug path string true "permission slug"
// @Param    body body grants.grantRequest false "opciones"
// @Success  200 {object} grants.permissionResponse
// @Router   /relationships/{relationshipID}/permissions/{slug}/grant [post]
func grantHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req grantRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req) // body opcional
		}

		cp, err := svc.Grant(r.Context(), claims, chi.URLParam(r, "relationshipID"), chi.URLParam(r, "slug"), req.Displace)
		if err != nil {
			writeGrantError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPermissionResponse(cp))
	}
}

// revokeHandler godoc
// @Summary  Revoca un permiso (idempotente)
// @Tags     grants
// @Param    relationshipID path string true "relationship id"
// @Param    slug path string true "permission slug"
// @Success  204
// @Router   /relationships/{relationshipID}/permissions/{slug}/revoke [post]
func revokeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Revoke(r.Context(), claims, chi.URLParam(r, "relationshipID"), chi.URLParam(r, "slug")); err != nil {
			writeGrantError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func requestPermissionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req permissionRequestBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		pr, err := svc.RequestPermission(r.Context(), claims, chi.URLParam(r, "relationshipID"), req.Slug, req.Notes)
		if err != nil {
			writeGrantError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toRequestResponse(pr))
	}
}

func listRequestsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListRequests(r.Context(), claims, chi.URLParam(r, "relationshipID"))
		if err != nil {
			writeGrantError(w, err)
			return
		}
		out := make([]requestResponse, 0, len(items))
		for _, pr := range items {
			out = append(out, toRequestResponse(pr))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func approveRequestHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req grantRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		cp, err := svc.ApproveRequest(r.Context(), claims, chi.URLParam(r, "requestID"), req.Displace)
		if err != nil {
			writeGrantError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPermissionResponse(cp))
	}
}

func denyRequestHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		pr, err := svc.DenyRequest(r.Context(), claims, chi.URLParam(r, "requestID"))
		if err != nil {
			writeGrantError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRequestResponse(pr))
	}
}

func writeGrantError(w http.ResponseWriter, err error) {
	switch err {
	case ErrInvalidInput:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case ErrForbidden, ErrVerificationRequired:
		http.Error(w, err.Error(), http.StatusForbidden)
	case ErrNotFound, ErrUnknownPermission:
		http.Error(w, "not found", http.StatusNotFound)
	case ErrInvalidState, ErrPermissionDisabled, ErrExclusivityConflict:
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toPermissionResponse(cp ClientPermission) permissionResponse {
	return permissionResponse{
		ID:             cp.ID,
		RelationshipID: cp.RelationshipID,
		ClientID:       cp.ClientID,
		Slug:           cp.Slug,
		Status:         cp.Status,
		GrantedBy:      cp.GrantedBy,
		GrantedAt:      cp.GrantedAt,
		RevokedAt:      cp.RevokedAt,
	}
}

func toRequestResponse(pr PermissionRequest) requestResponse {
	return requestResponse{
		ID:             pr.ID,
		RelationshipID: pr.RelationshipID,
		Slug:           pr.Slug,
		Notes:          pr.Notes,
		Status:         pr.Status,
		CreatedAt:      pr.CreatedAt,
		ResolvedAt:     pr.ResolvedAt,
	}
}

// writeJSON duplicado a propósito por módulo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
