package handlers

import (
	"net/http"
)

type AttachedResponse struct {
	Attached []int64 `json:"attached"`
}

type DetachedResponse struct {
	Detached []int64 `json:"detached"`
}

type AttachResultResponse struct {
	Detail  string `json:"detail"`
	Created bool   `json:"created"`
}

// relationRequest resolves the organization and the target path of a
// relation route. It writes the error response itself.
func (h *Handlers) relationRequest(w http.ResponseWriter, r *http.Request) (orgID int64, tag string, targetID int64, ok bool) {
	org := h.authorize(w, r)
	if org == nil {
		return 0, "", 0, false
	}

	tag, targetID, ok = targetFromPath(r)
	if !ok {
		WriteError(w, "Invalid object id", http.StatusBadRequest)
		return 0, "", 0, false
	}
	return org.ID, tag, targetID, true
}

func (h *Handlers) ListForTarget(w http.ResponseWriter, r *http.Request) {
	orgID, tag, targetID, ok := h.relationRequest(w, r)
	if !ok {
		return
	}

	page, ok := parsePage(r)
	if !ok {
		WriteError(w, "Invalid pagination parameters", http.StatusBadRequest)
		return
	}

	items, count, err := h.RelationService.ListForTarget(r.Context(), orgID, tag, targetID, r.URL.Query().Get("ordering"), page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, PageResponse{Items: items, Count: count}, http.StatusOK)
}

func (h *Handlers) Attach(w http.ResponseWriter, r *http.Request) {
	orgID, tag, targetID, ok := h.relationRequest(w, r)
	if !ok {
		return
	}

	var req ImageIDsRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, "Invalid JSON data", http.StatusBadRequest)
		return
	}

	relations, err := h.RelationService.Attach(r.Context(), orgID, tag, targetID, req.ImageIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, relations, http.StatusOK)
}

func (h *Handlers) BulkAttach(w http.ResponseWriter, r *http.Request) {
	orgID, tag, targetID, ok := h.relationRequest(w, r)
	if !ok {
		return
	}

	var req ImageIDsRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, "Invalid JSON data", http.StatusBadRequest)
		return
	}

	attached, err := h.RelationService.BulkAttach(r.Context(), orgID, tag, targetID, req.ImageIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, AttachedResponse{Attached: attached}, http.StatusOK)
}

func (h *Handlers) BulkDetach(w http.ResponseWriter, r *http.Request) {
	orgID, tag, targetID, ok := h.relationRequest(w, r)
	if !ok {
		return
	}

	var req ImageIDsRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, "Invalid JSON data", http.StatusBadRequest)
		return
	}

	detached, err := h.RelationService.BulkDetach(r.Context(), orgID, tag, targetID, req.ImageIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, DetachedResponse{Detached: detached}, http.StatusOK)
}

func (h *Handlers) Detach(w http.ResponseWriter, r *http.Request) {
	orgID, tag, targetID, ok := h.relationRequest(w, r)
	if !ok {
		return
	}

	imageID, ok := pathID(r, "image_id")
	if !ok {
		WriteError(w, "Invalid image id", http.StatusBadRequest)
		return
	}

	if err := h.RelationService.Detach(r.Context(), orgID, tag, targetID, imageID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Reorder(w http.ResponseWriter, r *http.Request) {
	orgID, tag, targetID, ok := h.relationRequest(w, r)
	if !ok {
		return
	}

	var req ImageIDsRequest
	if err := decodeJSON(r, &req); err != nil || req.ImageIDs == nil {
		WriteError(w, "image_ids is required", http.StatusBadRequest)
		return
	}

	if err := h.RelationService.Reorder(r.Context(), orgID, tag, targetID, req.ImageIDs); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, DetailResponse{Detail: "reordered"}, http.StatusOK)
}

func (h *Handlers) SetCover(w http.ResponseWriter, r *http.Request) {
	orgID, tag, targetID, ok := h.relationRequest(w, r)
	if !ok {
		return
	}

	var req ImageIDRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, "Invalid JSON data", http.StatusBadRequest)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		WriteError(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	if err := h.RelationService.SetCover(r.Context(), orgID, tag, targetID, req.ImageID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, DetailResponse{Detail: "cover set"}, http.StatusOK)
}

func (h *Handlers) UnsetCover(w http.ResponseWriter, r *http.Request) {
	orgID, tag, targetID, ok := h.relationRequest(w, r)
	if !ok {
		return
	}

	if err := h.RelationService.UnsetCover(r.Context(), orgID, tag, targetID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, DetailResponse{Detail: "cover unset"}, http.StatusOK)
}

// targetFromBody reads the image and target of the body-addressed
// /attach/ and /detach/ routes.
func (h *Handlers) targetFromBody(w http.ResponseWriter, r *http.Request) (orgID int64, req TargetRequest, ok bool) {
	org := h.authorize(w, r)
	if org == nil {
		return 0, req, false
	}

	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, "Invalid JSON data", http.StatusBadRequest)
		return 0, req, false
	}
	if field := req.missingField(); field != "" {
		WriteError(w, "Missing required field: "+field, http.StatusBadRequest)
		return 0, req, false
	}
	return org.ID, req, true
}

// AttachByBody attaches one image to the target named in the body.
func (h *Handlers) AttachByBody(w http.ResponseWriter, r *http.Request) {
	orgID, req, ok := h.targetFromBody(w, r)
	if !ok {
		return
	}

	attached, err := h.RelationService.BulkAttach(r.Context(), orgID, req.Tag(), *req.ObjectID, []int64{*req.ImageID})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, AttachResultResponse{Detail: "attached", Created: len(attached) > 0}, http.StatusOK)
}

func (h *Handlers) DetachByBody(w http.ResponseWriter, r *http.Request) {
	orgID, req, ok := h.targetFromBody(w, r)
	if !ok {
		return
	}

	if err := h.RelationService.Detach(r.Context(), orgID, req.Tag(), *req.ObjectID, *req.ImageID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
