package invitations

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"pro-client-access/internal/domain/catalog"
	"pro-client-access/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/invitations", func(ir chi.Router) {
		ir.Post("/", createInvitationHandler(svc))
		ir.Post("/redeem", redeemInvitationHandler(svc))
	})
}

type createInvitationRequest struct {
	Email       string   `json:"email"`
	RoleType    string   `json:"role_type"`
	Permissions []string `json:"permissions"`
}

type createInvitationResponse struct {
	InvitationID   string    `json:"invitation_id"`
	RelationshipID string    `json:"relationship_id"`
	Token          string    `json:"token"` // se muestra esta única vez
	ExpiresAt      time.Time `json:"expires_at"`
}

type redeemInvitationRequest struct {
	Token string `json:"token"`
}

type redeemInvitationResponse struct {
	RelationshipID string `json:"relationship_id"`
	ProfessionalID string `json:"professional_id"`
	Role           string `json:"role_type"`
	Status         string `json:"status"`
}

// createInvitationHandler godoc
// @Summary  Emite una invitación con permisos extra opcionales
// @Tags     invitations
// @Accept   json
// @Produce  json
// @Param    body body invitations.createInvitationRequest true "invitación"
// @Success  201 {object} invitations.createInvitationResponse
// @Router   /invitations [post]
func createInvitationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createInvitationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		created, err := svc.CreateInvitation(r.Context(), claims, CreateInput{
			Email: req.Email,
			Role:  catalog.RoleType(strings.TrimSpace(req.RoleType)),
			Slugs: req.Permissions,
		})
		if err != nil {
			switch err {
			case ErrInvalidInput, ErrInvalidRole, ErrRedundantPermission:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrDuplicateRelationship:
				http.Error(w, err.Error(), http.StatusConflict)
			case ErrUnknownPermission:
				http.Error(w, err.Error(), http.StatusNotFound)
			case ErrPermissionDisabled:
				http.Error(w, err.Error(), http.StatusConflict)
			case ErrVerificationRequired:
				http.Error(w, err.Error(), http.StatusForbidden)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, createInvitationResponse{
			InvitationID:   created.Invitation.ID,
			RelationshipID: created.Invitation.RelationshipID,
			Token:          created.Token,
			ExpiresAt:      created.Invitation.ExpiresAt,
		})
	}
}

// redeemInvitationHandler godoc
// @Summary  Canjea un token de invitación (una sola vez)
// @Tags     invitations
// @Accept   json
// @Produce  json
// @Param    body body invitations.redeemInvitationRequest true "token"
// @Success  200 {object} invitations.redeemInvitationResponse
// @Router   /invitations/redeem [post]
func redeemInvitationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req redeemInvitationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		rel, err := svc.RedeemInvitation(r.Context(), claims, req.Token)
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrTokenNotFound:
				http.Error(w, "not found", http.StatusNotFound)
			case ErrExpired:
				http.Error(w, err.Error(), http.StatusGone)
			case ErrEmailMismatch:
				http.Error(w, err.Error(), http.StatusForbidden)
			case ErrAlreadyAccepted, ErrDuplicateRelationship:
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, redeemInvitationResponse{
			RelationshipID: rel.ID,
			ProfessionalID: rel.ProfessionalID,
			Role:           string(rel.Role),
			Status:         string(rel.Status),
		})
	}
}

// writeJSON duplicado a propósito por módulo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
