package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/dasjeff/warppoint/internal/platform/errors"
	"github.com/dasjeff/warppoint/internal/services/warp/domain"
)

type warpResponse struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	World     string    `json:"world"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Yaw       float32   `json:"yaw"`
	Pitch     float32   `json:"pitch"`
	CreatedAt time.Time `json:"created_at"`
}

type ownerResponse struct {
	OwnerID   string `json:"owner_id"`
	WarpLimit int    `json:"warp_limit"`
	WarpCount int    `json:"warp_count"`
}

type limitResponse struct {
	OwnerID   string `json:"owner_id"`
	WarpLimit int    `json:"warp_limit"`
}

type createWarpRequest struct {
	OwnerID string  `json:"owner_id"`
	Name    string  `json:"name"`
	World   string  `json:"world"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	Yaw     float32 `json:"yaw"`
	Pitch   float32 `json:"pitch"`
}

type transferWarpRequest struct {
	SourceOwnerID string `json:"source_owner_id"`
	TargetOwnerID string `json:"target_owner_id"`
	Name          string `json:"name"`
}

type setLimitRequest struct {
	WarpLimit int `json:"warp_limit"`
}

type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func toWarpResponse(warp domain.Warp) warpResponse {
	return warpResponse{
		ID:        warp.ID,
		OwnerID:   warp.OwnerID.String(),
		Name:      warp.Name,
		World:     warp.Location.World,
		X:         warp.Location.X,
		Y:         warp.Location.Y,
		Z:         warp.Location.Z,
		Yaw:       warp.Location.Yaw,
		Pitch:     warp.Location.Pitch,
		CreatedAt: warp.CreatedAt.UTC(),
	}
}

func (s *Server) handleListOwners(w http.ResponseWriter, r *http.Request) {
	owners, err := s.svc.ListOwners(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	ids := make([]string, 0, len(owners))
	for _, owner := range owners {
		ids = append(ids, owner.String())
	}
	writeJSON(w, http.StatusOK, map[string][]string{"owners": ids})
}

func (s *Server) handleGetOwner(w http.ResponseWriter, r *http.Request) {
	owner, ok := parseOwnerID(w, r)
	if !ok {
		return
	}
	limit, err := s.svc.GetWarpLimit(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	count, err := s.svc.WarpCount(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ownerResponse{
		OwnerID:   owner.String(),
		WarpLimit: limit,
		WarpCount: count,
	})
}

func (s *Server) handleListWarps(w http.ResponseWriter, r *http.Request) {
	owner, ok := parseOwnerID(w, r)
	if !ok {
		return
	}
	warps, err := s.svc.ListWarps(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]warpResponse, 0, len(warps))
	for _, warp := range warps {
		out = append(out, toWarpResponse(warp))
	}
	writeJSON(w, http.StatusOK, map[string][]warpResponse{"warps": out})
}

func (s *Server) handleCreateWarp(w http.ResponseWriter, r *http.Request) {
	var req createWarpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	owner, err := uuid.Parse(req.OwnerID)
	if err != nil {
		writeError(w, apperrors.New(apperrors.CodeOwnerIDInvalid, "owner id must be a uuid"))
		return
	}
	created, err := s.svc.CreateWarp(r.Context(), owner, req.Name, domain.Location{
		World: req.World,
		X:     req.X,
		Y:     req.Y,
		Z:     req.Z,
		Yaw:   req.Yaw,
		Pitch: req.Pitch,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWarpResponse(created))
}

func (s *Server) handleTransferWarp(w http.ResponseWriter, r *http.Request) {
	var req transferWarpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	source, err := uuid.Parse(req.SourceOwnerID)
	if err != nil {
		writeError(w, apperrors.New(apperrors.CodeOwnerIDInvalid, "source owner id must be a uuid"))
		return
	}
	target, err := uuid.Parse(req.TargetOwnerID)
	if err != nil {
		writeError(w, apperrors.New(apperrors.CodeOwnerIDInvalid, "target owner id must be a uuid"))
		return
	}
	if err := s.svc.TransferWarp(r.Context(), source, target, req.Name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteWarp(w http.ResponseWriter, r *http.Request) {
	owner, ok := parseOwnerID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteWarp(r.Context(), owner, r.PathValue("name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetLimit(w http.ResponseWriter, r *http.Request) {
	owner, ok := parseOwnerID(w, r)
	if !ok {
		return
	}
	limit, err := s.svc.GetWarpLimit(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, limitResponse{OwnerID: owner.String(), WarpLimit: limit})
}

func (s *Server) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	owner, ok := parseOwnerID(w, r)
	if !ok {
		return
	}
	var req setLimitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.svc.SetWarpLimit(r.Context(), owner, req.WarpLimit); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, limitResponse{OwnerID: owner.String(), WarpLimit: req.WarpLimit})
}

func parseOwnerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	owner, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, apperrors.New(apperrors.CodeOwnerIDInvalid, "owner id must be a uuid"))
		return uuid.UUID{}, false
	}
	return owner, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, into any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		writeFailure(w, http.StatusBadRequest, "BAD_REQUEST", "malformed request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("warp api: encode response: %v", err)
	}
}

// writeError maps a service error to its HTTP status via the domain code.
func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	body := errorBody{Code: string(code), Message: "internal error"}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		body.Message = domainErr.Message
		body.Metadata = domainErr.Metadata
	}
	writeJSON(w, code.HTTPStatus(), errorResponse{Error: body})
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}
