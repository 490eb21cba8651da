package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"imageAttach/internal/models"
)

const multipartMemory = 32 << 20

func (h *Handlers) ListImages(w http.ResponseWriter, r *http.Request) {
	org := h.authorize(w, r)
	if org == nil {
		return
	}

	page, ok := parsePage(r)
	if !ok {
		WriteError(w, "Invalid pagination parameters", http.StatusBadRequest)
		return
	}

	items, count, err := h.ImageService.List(r.Context(), org.ID, r.URL.Query().Get("ordering"), page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, PageResponse{Items: items, Count: count}, http.StatusOK)
}

func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	org := h.authorize(w, r)
	if org == nil {
		return
	}

	imageID, ok := pathID(r, "id")
	if !ok {
		WriteError(w, "Invalid image id", http.StatusBadRequest)
		return
	}

	image, err := h.ImageService.Get(r.Context(), org.ID, imageID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, image, http.StatusOK)
}

func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	org := h.authorize(w, r)
	if org == nil {
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		WriteError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	file.Close()

	upload, err := h.readUpload(header)
	if err != nil {
		WriteError(w, "Failed to read file", http.StatusBadRequest)
		return
	}

	image, err := h.ImageService.Upload(r.Context(), org, UserID(r.Context()), upload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, image, http.StatusOK)
}

// BulkUpload always answers 200 with one result per file, in input order.
func (h *Handlers) BulkUpload(w http.ResponseWriter, r *http.Request) {
	org := h.authorize(w, r)
	if org == nil {
		return
	}

	var headers []*multipart.FileHeader
	if err := r.ParseMultipartForm(multipartMemory); err == nil {
		headers = r.MultipartForm.File["files"]
	}

	files := make([]models.UploadFile, 0, len(headers))
	for _, header := range headers {
		upload, err := h.readUpload(header)
		if err != nil {
			WriteError(w, "Failed to read file", http.StatusBadRequest)
			return
		}
		files = append(files, upload)
	}

	results, err := h.ImageService.BulkUpload(r.Context(), org, UserID(r.Context()), files)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, results, http.StatusOK)
}

func (h *Handlers) UpdateImage(w http.ResponseWriter, r *http.Request) {
	org := h.authorize(w, r)
	if org == nil {
		return
	}

	imageID, ok := pathID(r, "id")
	if !ok {
		WriteError(w, "Invalid image id", http.StatusBadRequest)
		return
	}

	var req models.ImageMetadataUpdate
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, "Invalid JSON data", http.StatusBadRequest)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		WriteError(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	image, err := h.ImageService.UpdateMetadata(r.Context(), org.ID, imageID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, image, http.StatusOK)
}

func (h *Handlers) DeleteImage(w http.ResponseWriter, r *http.Request) {
	org := h.authorize(w, r)
	if org == nil {
		return
	}

	imageID, ok := pathID(r, "id")
	if !ok {
		WriteError(w, "Invalid image id", http.StatusBadRequest)
		return
	}

	if err := h.ImageService.Delete(r.Context(), org.ID, imageID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) BulkDelete(w http.ResponseWriter, r *http.Request) {
	org := h.authorize(w, r)
	if org == nil {
		return
	}

	var req IDsRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, "Invalid JSON data", http.StatusBadRequest)
		return
	}

	if err := h.ImageService.BulkDelete(r.Context(), org.ID, req.IDs); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// readUpload loads a multipart file. Oversized files are not read; the
// service rejects them by their declared size.
func (h *Handlers) readUpload(header *multipart.FileHeader) (models.UploadFile, error) {
	upload := models.UploadFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}
	if header.Size > h.Cfg.Upload.MaxSize {
		return upload, nil
	}

	file, err := header.Open()
	if err != nil {
		return upload, err
	}
	defer file.Close()

	upload.Data, err = io.ReadAll(io.LimitReader(file, h.Cfg.Upload.MaxSize+1))
	if err != nil {
		return upload, err
	}
	return upload, nil
}
