package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "github.com/zuetani/earth-tribe/internal/application"
	"github.com/zuetani/earth-tribe/internal/interface/middleware"
	"github.com/zuetani/earth-tribe/pkg/response"
)

// StorageService is the media surface used over HTTP.
type StorageService interface {
	UploadAvatar(ctx context.Context, f app.File, userID string) (*app.UploadResult, error)
	UploadPostImage(ctx context.Context, f app.File, userID, postID string) (*app.UploadResult, error)
	UploadGroupImage(ctx context.Context, f app.File, groupID string) (*app.UploadResult, error)
	DeleteFile(ctx context.Context, path string) error
	DownloadURL(ctx context.Context, path string) (string, error)
}

type UploadHandler struct {
	Svc          StorageService
	Logger       *logrus.Logger
	AllowedTypes []string
	MaxSizeMB    float64
}

func NewUploadHandler(svc StorageService, logger *logrus.Logger, allowedTypes []string, maxSizeMB float64) *UploadHandler {
	return &UploadHandler{Svc: svc, Logger: logger, AllowedTypes: allowedTypes, MaxSizeMB: maxSizeMB}
}

// sniffLen is how much http.DetectContentType looks at.
const sniffLen = 512

type openedFile struct {
	app.File
	closer io.Closer
}

// openForm reads the "file" part. The declared MIME type must agree with the
// sniffed one; the declared type alone is client-controlled.
func (h *UploadHandler) openForm(c *gin.Context) (*openedFile, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "missing file", nil)
		return nil, false
	}
	f, err := fh.Open()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "unreadable file", nil)
		return nil, false
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		_ = f.Close()
		response.Fail(c, http.StatusBadRequest, "unreadable file", nil)
		return nil, false
	}
	head = head[:n]

	declared := declaredType(fh)
	if sniffed := http.DetectContentType(head); !sameMediaType(declared, sniffed) {
		_ = f.Close()
		h.Logger.WithField("declared", declared).WithField("sniffed", sniffed).Warn("upload content type mismatch")
		response.Fail(c, http.StatusBadRequest, "invalid file", "file content does not match type "+declared)
		return nil, false
	}

	return &openedFile{
		File: app.File{
			Name:        fh.Filename,
			ContentType: declared,
			Size:        fh.Size,
			Body:        io.MultiReader(bytes.NewReader(head), f),
		},
		closer: f,
	}, true
}

func declaredType(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

func sameMediaType(a, b string) bool {
	strip := func(s string) string {
		mt, _, _ := strings.Cut(s, ";")
		return strings.ToLower(strings.TrimSpace(mt))
	}
	return strip(a) == strip(b)
}

func (h *UploadHandler) upload(c *gin.Context, do func(ctx context.Context, f app.File) (*app.UploadResult, error)) {
	of, ok := h.openForm(c)
	if !ok {
		return
	}
	defer func() { _ = of.closer.Close() }()

	res, err := do(c.Request.Context(), of.File)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, http.StatusCreated, res, "file uploaded", nil)
}

func (h *UploadHandler) Avatar(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	h.upload(c, func(ctx context.Context, f app.File) (*app.UploadResult, error) {
		return h.Svc.UploadAvatar(ctx, f, uid)
	})
}

// PostImage accepts an optional postId form field.
func (h *UploadHandler) PostImage(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	postID := c.PostForm("postId")
	if !validSegment(postID) {
		response.Fail(c, http.StatusBadRequest, "invalid postId", nil)
		return
	}
	h.upload(c, func(ctx context.Context, f app.File) (*app.UploadResult, error) {
		return h.Svc.UploadPostImage(ctx, f, uid, postID)
	})
}

func (h *UploadHandler) GroupImage(c *gin.Context) {
	gid := c.Param("id")
	h.upload(c, func(ctx context.Context, f app.File) (*app.UploadResult, error) {
		return h.Svc.UploadGroupImage(ctx, f, gid)
	})
}

type validateRequest struct {
	Name        string  `json:"name"`
	ContentType string  `json:"type" binding:"required"`
	Size        int64   `json:"size" binding:"min=0"`
	MaxSizeMB   float64 `json:"maxSizeMB" binding:"min=0"`
}

// Validate runs the upload checks without storing anything so clients can
// show inline feedback. The result is always 200.
func (h *UploadHandler) Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", nil)
		return
	}
	limit := h.MaxSizeMB
	if req.MaxSizeMB > 0 && req.MaxSizeMB < limit {
		limit = req.MaxSizeMB
	}
	v := app.ValidateFile(app.File{Name: req.Name, ContentType: req.ContentType, Size: req.Size}, h.AllowedTypes, limit)
	response.OK(c, http.StatusOK, v, "validation result", nil)
}

// Delete removes an object. Users may only delete their own avatars and the
// post images they uploaded.
func (h *UploadHandler) Delete(c *gin.Context) {
	path := c.Query("path")
	if !ownsPath(c.GetString(middleware.CtxUserIDKey), path) {
		response.Fail(c, http.StatusForbidden, "cannot delete this file", nil)
		return
	}
	if err := h.Svc.DeleteFile(c.Request.Context(), path); err != nil {
		writeError(c, err)
		return
	}
	response.OK[any](c, http.StatusOK, map[string]any{"deleted": path}, "file deleted", nil)
}

// ownsPath accepts avatars/<uid>/<file>, posts/<uid>/<file> and
// posts/<postID>/<uid>/<file>.
func ownsPath(uid, path string) bool {
	if uid == "" {
		return false
	}
	seg := strings.Split(path, "/")
	for _, s := range seg {
		if !validSegment(s) || s == "" {
			return false
		}
	}
	switch {
	case len(seg) == 3 && (seg[0] == "avatars" || seg[0] == "posts"):
		return seg[1] == uid
	case len(seg) == 4 && seg[0] == "posts":
		return seg[2] == uid
	}
	return false
}

// validSegment rejects values that would change an object path's depth.
func validSegment(s string) bool {
	return !strings.Contains(s, "/") && s != "." && s != ".."
}

func (h *UploadHandler) URL(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		response.Fail(c, http.StatusBadRequest, "missing path", nil)
		return
	}
	url, err := h.Svc.DownloadURL(c.Request.Context(), path)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK[any](c, http.StatusOK, map[string]any{"url": url, "path": path}, "download url", nil)
}
