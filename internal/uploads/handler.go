package uploads

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/arjenou/5000React/internal/blob"
	"github.com/arjenou/5000React/internal/metrics"
	"github.com/arjenou/5000React/internal/middleware"
	"github.com/arjenou/5000React/internal/projects"
	"github.com/arjenou/5000React/internal/transport"
)

const (
	MaxImageSize = 10 << 20
	FormField    = "file"
)

var allowedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

type Handler struct {
	store blob.Store
	log   *slog.Logger
	now   func() time.Time
}

func NewHandler(store blob.Store, log *slog.Logger) *Handler {
	return &Handler{store: store, log: log, now: time.Now}
}

// Upload stores one image from the multipart "file" field and returns an
// ImageRef pointing at it. Width and height are not measured.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	r.Body = http.MaxBytesReader(w, r.Body, MaxImageSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			log.Warn("admin upload: body too large")
			transport.WriteError(w, http.StatusBadRequest, "file exceeds 10MB limit", nil)
			return
		}
		log.Warn("admin upload: invalid multipart body", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, "invalid multipart body", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(FormField)
	if err != nil {
		log.Warn("admin upload: missing file")
		transport.WriteError(w, http.StatusBadRequest, "no file provided", nil)
		return
	}
	defer file.Close()

	if header.Size > MaxImageSize {
		log.Warn("admin upload: file too large", slog.Int64("size", header.Size))
		transport.WriteError(w, http.StatusBadRequest, "file exceeds 10MB limit", nil)
		return
	}

	contentType, err := detectType(header.Header.Get("Content-Type"), file)
	if err != nil {
		log.Error("admin upload: read error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, "could not read file", nil)
		return
	}
	if _, ok := allowedTypes[contentType]; !ok {
		log.Warn("admin upload: unsupported type", slog.String("content_type", contentType))
		transport.WriteError(w, http.StatusBadRequest, "only JPEG, PNG and WebP images are supported", nil)
		return
	}

	name := baseName(header.Filename)
	key := strconv.FormatInt(h.now().UnixMilli(), 10) + "-" + name

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	url, err := h.store.Put(ctx, key, file, header.Size, contentType)
	if err != nil {
		log.Error("admin upload: storage error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "upload failed", nil)
		return
	}

	metrics.RecordUpload(header.Size)
	log.Info("admin upload: ok", slog.String("key", key), slog.Int64("size", header.Size))
	transport.WriteMessage(w, http.StatusOK, projects.ImageRef{
		OriginalURL:  url,
		Alt:          header.Filename,
		ThumbnailURL: url,
	}, "upload successful")
}

// detectType trusts the part's declared type unless it is missing or generic,
// in which case the content is sniffed and the reader rewound.
func detectType(declared string, file io.ReadSeeker) (string, error) {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
			return strings.ToLower(mt), nil
		}
	}
	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	mt, _, _ := mime.ParseMediaType(detected.String())
	return mt, nil
}

func baseName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		if r == ' ' {
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return "upload"
	}
	return name
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
