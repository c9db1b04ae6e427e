package content

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"advisoryhub/internal/domain/auth"
	"advisoryhub/internal/pkg/response"
)

// multipartOverhead allows for form fields and a thumbnail next to the file.
const multipartOverhead = 1 << 20

type Handler struct {
	service       *Service
	maxUploadSize int64
}

func NewHandler(service *Service, maxUploadSize int64) *Handler {
	return &Handler{service: service, maxUploadSize: maxUploadSize}
}

type ResolveRequest struct {
	Resolution Resolution `json:"resolution" binding:"required"`
}

type UpdateRequest struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	IsPremium    *bool     `json:"is_premium"`
	CategoryIDs  *[]string `json:"category_ids"`
}

// List godoc
// @Summary List content
// @Description Filters combine: type tab id, case-insensitive search on title or description, category ids (any match).
// @Tags Content
// @Produce json
// @Param type query string false "all | videos | documents | spreadsheets | presentations | reports"
// @Param search query string false "search text"
// @Param category_ids query []string false "category ids"
// @Success 200 {object} map[string]interface{}
// @Router /content [get]
func (h *Handler) List(c *gin.Context) {
	filter := ListFilter{
		Type:        c.Query("type"),
		Search:      c.Query("search"),
		CategoryIDs: splitIDs(c.QueryArray("category_ids")),
	}
	items, err := h.service.List(c.Request.Context(), auth.CurrentSession(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// Get godoc
// @Summary Get content item
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /content/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), auth.CurrentSession(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// Download godoc
// @Summary Download content file
// @Description Streams the stored file under its original name; external items redirect.
// @Tags Content
// @Param id path string true "Content ID"
// @Success 200 {file} binary
// @Success 302
// @Failure 401,404,502 {object} map[string]interface{}
// @Router /content/{id}/download [get]
func (h *Handler) Download(c *gin.Context) {
	dl, err := h.service.Download(c.Request.Context(), auth.CurrentSession(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if dl.RedirectURL != "" {
		c.Redirect(http.StatusFound, dl.RedirectURL)
		return
	}
	defer dl.Body.Close()

	contentType := mime.TypeByExtension(path.Ext(dl.Filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, dl.Body)
}

// Submit godoc
// @Summary Submit new content
// @Description Exactly one of file or external_url. A name collision returns 409 with a pending token.
// @Tags Content
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param content_type formData string true "video | document | spreadsheet | presentation | report"
// @Param file formData file false "Content file"
// @Param external_url formData string false "External URL"
// @Param thumbnail formData file false "Thumbnail image"
// @Param thumbnail_url formData string false "Thumbnail URL"
// @Param category_ids formData []string false "Category ids"
// @Param is_premium formData bool false "Premium"
// @Success 201 {object} map[string]interface{}
// @Failure 400,403,409,422,500,502 {object} map[string]interface{}
// @Router /content [post]
func (h *Handler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 2*h.maxUploadSize+multipartOverhead)
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.CustomError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Upload exceeds the maximum allowed size")
			return
		}
		response.CustomError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid multipart form")
		return
	}

	in := SubmitInput{
		Title:        c.PostForm("title"),
		Description:  c.PostForm("description"),
		ContentType:  ContentType(strings.ToLower(strings.TrimSpace(c.PostForm("content_type")))),
		ExternalURL:  c.PostForm("external_url"),
		ThumbnailURL: c.PostForm("thumbnail_url"),
		CategoryIDs:  splitIDs(c.PostFormArray("category_ids")),
	}
	if raw := c.PostForm("is_premium"); raw != "" {
		premium, err := strconv.ParseBool(raw)
		if err != nil {
			response.CustomError(c, http.StatusBadRequest, "VALIDATION_ERROR", "is_premium must be a boolean")
			return
		}
		in.IsPremium = premium
	}
	if fh, err := c.FormFile("file"); err == nil {
		in.File = fileInput(fh)
	}
	if fh, err := c.FormFile("thumbnail"); err == nil {
		in.Thumbnail = fileInput(fh)
	}

	res, err := h.service.Submit(c.Request.Context(), auth.CurrentSession(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithWarnings(c, http.StatusCreated, h.resultBody(res), res.Warnings)
}

// Resolve godoc
// @Summary Resolve a duplicate submission
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param token path string true "Pending token"
// @Param body body ResolveRequest true "replace | cancel"
// @Success 200 {object} map[string]interface{}
// @Failure 400,403,404,422,500,502 {object} map[string]interface{}
// @Router /content/pending/{token} [post]
func (h *Handler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.CustomError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	res, err := h.service.ResolvePending(c.Request.Context(), auth.CurrentSession(c), c.Param("token"), req.Resolution)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithWarnings(c, http.StatusOK, h.resultBody(res), res.Warnings)
}

// Update godoc
// @Summary Edit content metadata
// @Tags Content
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Param body body UpdateRequest true "fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 400,403,404,422,500 {object} map[string]interface{}
// @Router /content/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.CustomError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	res, err := h.service.Update(c.Request.Context(), auth.CurrentSession(c), c.Param("id"), UpdateInput{
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		IsPremium:    req.IsPremium,
		CategoryIDs:  req.CategoryIDs,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithWarnings(c, http.StatusOK, h.resultBody(res), res.Warnings)
}

// Delete godoc
// @Summary Delete content
// @Description Requires confirm=true. The row is removed first; file cleanup is best-effort.
// @Tags Content
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content ID"
// @Param confirm query bool true "must be true"
// @Success 200 {object} map[string]interface{}
// @Failure 403,404,428 {object} map[string]interface{}
// @Router /content/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	if err := h.service.Delete(c.Request.Context(), auth.CurrentSession(c), c.Param("id"), confirmed); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) resultBody(res *Result) gin.H {
	body := gin.H{"state": res.State}
	if res.Item != nil {
		body["item"] = h.service.view(*res.Item, res.CategoryIDs, false)
	}
	return body
}

func writeError(c *gin.Context, err error) {
	var verr *ValidationError
	var dup *DuplicateError
	switch {
	case errors.As(err, &verr):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid content submission", verr.Fields)
	case errors.As(err, &dup):
		details := gin.H{"key": dup.Key}
		if dup.Pending != nil {
			details["pending_token"] = dup.Pending.Token
			details["expires_at"] = dup.Pending.ExpiresAt
		}
		response.ErrorWithDetails(c, http.StatusConflict, "DUPLICATE_FILE", err.Error(), details)
	case errors.Is(err, ErrForbidden):
		response.CustomError(c, http.StatusForbidden, "FORBIDDEN", err)
	case errors.Is(err, ErrSignInRequired):
		response.CustomError(c, http.StatusUnauthorized, "UNAUTHORIZED", err)
	case errors.Is(err, ErrNotFound):
		response.CustomError(c, http.StatusNotFound, "NOT_FOUND", err)
	case errors.Is(err, ErrPendingNotFound):
		response.CustomError(c, http.StatusNotFound, "PENDING_NOT_FOUND", err)
	case errors.Is(err, ErrTooManyPending):
		response.CustomError(c, http.StatusTooManyRequests, "TOO_MANY_PENDING", err)
	case errors.Is(err, ErrConfirmationRequired):
		response.CustomError(c, http.StatusPreconditionRequired, "CONFIRMATION_REQUIRED", err)
	case errors.Is(err, ErrStorage):
		response.CustomError(c, http.StatusBadGateway, "STORAGE_ERROR", "File storage operation failed")
	case errors.Is(err, ErrMetadata):
		response.CustomError(c, http.StatusInternalServerError, "METADATA_ERROR", "Saving content details failed")
	default:
		response.CustomError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Request failed")
	}
}

func fileInput(fh *multipart.FileHeader) *FileInput {
	return &FileInput{
		Name:     fh.Filename,
		Size:     fh.Size,
		MIMEType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			f, err := fh.Open()
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

// splitIDs accepts repeated parameters and comma separated lists.
func splitIDs(values []string) []string {
	var out []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}
