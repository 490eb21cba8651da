package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"imageAttach/internal/models"
	"imageAttach/internal/target"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// PageResponse is the envelope of paginated lists.
type PageResponse struct {
	Items interface{} `json:"items"`
	Count int         `json:"count"`
}

type ImageIDsRequest struct {
	ImageIDs []int64 `json:"image_ids"`
}

type ImageIDRequest struct {
	ImageID int64 `json:"image_id" validate:"required,gt=0"`
}

type IDsRequest struct {
	IDs []int64 `json:"ids"`
}

// TargetRequest names an image and its target in the body.
type TargetRequest struct {
	ImageID  *int64  `json:"image_id"`
	AppLabel *string `json:"app_label"`
	Model    *string `json:"model"`
	ObjectID *int64  `json:"object_id"`
}

// missingField returns the first absent field, or "".
func (t TargetRequest) missingField() string {
	switch {
	case t.ImageID == nil:
		return "image_id"
	case t.AppLabel == nil || *t.AppLabel == "":
		return "app_label"
	case t.Model == nil || *t.Model == "":
		return "model"
	case t.ObjectID == nil:
		return "object_id"
	}
	return ""
}

func (t TargetRequest) Tag() string {
	return target.Tag(*t.AppLabel, *t.Model)
}

// validationMessage turns the first validator failure into a client message.
func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "Invalid request data"
	}

	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	default:
		return "Invalid value for " + fe.Field()
	}
}

// authorize resolves the path organization for the current user. It writes
// the error response itself and returns nil on failure.
func (h *Handlers) authorize(w http.ResponseWriter, r *http.Request) *models.Organization {
	org, err := h.OrgService.Authorize(r.Context(), mux.Vars(r)["org"], UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return nil
	}
	return org
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// targetFromPath returns the type tag and id of /{type}/{model}/{id}/ routes.
func targetFromPath(r *http.Request) (string, int64, bool) {
	vars := mux.Vars(r)
	id, ok := pathID(r, "id")
	if !ok {
		return "", 0, false
	}
	return target.Tag(vars["type"], vars["model"]), id, true
}

func parsePage(r *http.Request) (models.Page, bool) {
	page := models.Page{Limit: defaultLimit}
	query := r.URL.Query()

	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return page, false
		}
		page.Limit = min(limit, maxLimit)
	}
	if v := query.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return page, false
		}
		page.Offset = offset
	}
	return page, true
}

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
