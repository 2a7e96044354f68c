package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	authsvc "github.com/encontrocomfe/backend/internal/services/auth"
	mediasvc "github.com/encontrocomfe/backend/internal/services/media"
	httperrors "github.com/encontrocomfe/backend/internal/transport/http/errors"
)

const multipartMemoryLimit = 32 << 20

type MediaHandler struct {
	service *mediasvc.Service
}

func NewMediaHandler(service *mediasvc.Service) *MediaHandler {
	return &MediaHandler{service: service}
}

func (h *MediaHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	file, header, ok := h.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	photo, err := h.service.UploadProfilePhoto(r.Context(), identity.UserID,
		header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		switch {
		case errors.Is(err, mediasvc.ErrPhotoLimitReached):
			writeConflict(w, "PHOTO_LIMIT_REACHED", "maximum number of photos reached")
		case errors.Is(err, mediasvc.ErrUnsupportedMedia):
			writeBadRequest(w, "UNSUPPORTED_MEDIA", "unsupported file type")
		case errors.Is(err, mediasvc.ErrPayloadTooLarge):
			httperrors.Write(w, http.StatusRequestEntityTooLarge, httperrors.APIError{
				Code:    "PAYLOAD_TOO_LARGE",
				Message: "file is too large",
			})
		case errors.Is(err, mediasvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid upload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to upload photo")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, photo)
}

func (h *MediaHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	photos, err := h.service.ListPhotos(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list photos")
		return
	}

	httperrors.Write(w, http.StatusOK, map[string]any{"photos": photos})
}

func (h *MediaHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	photoID, ok := pathInt64(r, "photoID")
	if !ok {
		writeBadRequest(w, "INVALID_PHOTO_ID", "photo id must be a positive integer")
		return
	}

	if err := h.service.DeletePhoto(r.Context(), identity.UserID, photoID); err != nil {
		if errors.Is(err, mediasvc.ErrPhotoNotFound) {
			writeNotFound(w, "PHOTO_NOT_FOUND", "photo not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to delete photo")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MediaHandler) UploadChatMedia(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	matchID, ok := pathInt64(r, "matchID")
	if !ok {
		writeBadRequest(w, "INVALID_MATCH_ID", "match id must be a positive integer")
		return
	}

	file, header, ok := h.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	upload, err := h.service.UploadChatMedia(r.Context(), matchID, identity.UserID,
		header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		switch {
		case errors.Is(err, mediasvc.ErrMatchNotFound):
			writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
		case errors.Is(err, mediasvc.ErrUnsupportedMedia):
			writeBadRequest(w, "UNSUPPORTED_MEDIA", "unsupported file type")
		case errors.Is(err, mediasvc.ErrPayloadTooLarge):
			httperrors.Write(w, http.StatusRequestEntityTooLarge, httperrors.APIError{
				Code:    "PAYLOAD_TOO_LARGE",
				Message: "file is too large",
			})
		case errors.Is(err, mediasvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid upload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to upload media")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, upload)
}

func (h *MediaHandler) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "expected multipart form data")
		return nil, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "MISSING_FILE", "file field is required")
		return nil, nil, false
	}
	return file, header, true
}
