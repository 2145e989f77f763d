package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/geocoder89/taskdeck/internal/observability"
	"github.com/geocoder89/taskdeck/internal/parser"
	"github.com/geocoder89/taskdeck/internal/storage"
	"github.com/gin-gonic/gin"
)

const MaxUploadBytes int64 = 20 << 20

// allowedUploads maps an extension onto the content types sniffing may report for it.
var allowedUploads = map[string][]string{
	"pdf":  {parser.MimePDF},
	"docx": {parser.MimeDOCX, "application/zip"},
	"jpg":  {"image/jpeg"},
	"jpeg": {"image/jpeg"},
	"png":  {"image/png"},
}

type FilesHandler struct {
	blob storage.Blob
	prom *observability.Prom
	now  func() time.Time
}

func NewFilesHandler(blob storage.Blob, prom *observability.Prom) *FilesHandler {
	return &FilesHandler{blob: blob, prom: prom, now: time.Now}
}

type pendingUpload struct {
	name        string
	ext         string
	contentType string
	data        []byte
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func sniffUpload(ext string, data []byte) (string, bool) {
	mt := mimetype.Detect(data)
	for _, want := range allowedUploads[ext] {
		if mt.Is(want) {
			if ext == "docx" {
				return parser.MimeDOCX, true
			}
			return want, true
		}
	}
	return mt.String(), false
}

func (h *FilesHandler) respondFormError(ctx *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Upload exceeds 20 MiB", nil)
		return
	}
	RespondBadRequest(ctx, "Invalid multipart form", gin.H{"reason": err.Error()})
}

// Upload validates every file before storing any of them.
func (h *FilesHandler) Upload(ctx *gin.Context) {
	ownerID, ok := ownerFrom(ctx)
	if !ok {
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		h.respondFormError(ctx, err)
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		RespondBadRequest(ctx, "No files uploaded", gin.H{"field": "files"})
		return
	}

	pending := make([]pendingUpload, 0, len(headers))
	for _, fh := range headers {
		ext := storage.Ext(fh.Filename)
		if _, allowed := allowedUploads[ext]; !allowed {
			RespondUnsupportedMedia(ctx, "Unsupported file type: "+fh.Filename+". Allowed: .pdf, .docx, .jpg, .jpeg, .png")
			return
		}

		data, err := readPart(fh)
		if err != nil {
			h.respondFormError(ctx, err)
			return
		}

		contentType, ok := sniffUpload(ext, data)
		if !ok {
			RespondUnsupportedMedia(ctx, "File content does not match its extension: "+fh.Filename)
			return
		}

		pending = append(pending, pendingUpload{name: fh.Filename, ext: ext, contentType: contentType, data: data})
	}

	rctx := ctx.Request.Context()
	items := make([]storage.Object, 0, len(pending))

	for _, p := range pending {
		key := storage.ObjectKey(ownerID, p.name, h.now())

		if err := h.blob.Put(rctx, key, p.data, p.contentType); err != nil {
			if errors.Is(err, storage.ErrExists) {
				RespondConflict(ctx, "file_exists", "A file with this name already exists")
				return
			}
			slog.ErrorContext(rctx, "file upload failed", "key", key, "err", err)
			RespondInternal(ctx, "Failed to upload files")
			return
		}

		h.prom.AddUploaded(p.ext, int64(len(p.data)))
		items = append(items, storage.ObjectFromKey(key, int64(len(p.data)), p.contentType, h.now()))
	}

	ctx.JSON(http.StatusCreated, gin.H{"items": items})
}

func (h *FilesHandler) List(ctx *gin.Context) {
	ownerID, ok := ownerFrom(ctx)
	if !ok {
		return
	}

	items, err := h.blob.List(ctx.Request.Context(), ownerID+"/")
	if err != nil {
		slog.ErrorContext(ctx.Request.Context(), "file list failed", "err", err)
		RespondInternal(ctx, "Could not list files")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": items})
}

// Parse extracts text from an uploaded document without storing it.
func (h *FilesHandler) Parse(ctx *gin.Context) {
	if _, ok := ownerFrom(ctx); !ok {
		return
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			RespondBadRequest(ctx, "No file uploaded", gin.H{"field": "file"})
			return
		}
		h.respondFormError(ctx, err)
		return
	}

	data, err := readPart(fh)
	if err != nil {
		h.respondFormError(ctx, err)
		return
	}

	h.respondExtract(ctx, data, fh.Filename)
}

// StoredText extracts text from one of the caller's stored files. The path
// parameter is the file's name inside the caller's folder.
func (h *FilesHandler) StoredText(ctx *gin.Context) {
	ownerID, ok := ownerFrom(ctx)
	if !ok {
		return
	}

	name := ctx.Param("path")
	if name == "" || name != storage.SanitizeName(name) {
		RespondBadRequest(ctx, "Invalid file path", nil)
		return
	}

	data, _, err := h.blob.Get(ctx.Request.Context(), ownerID+"/"+name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			RespondNotFound(ctx, "File not found")
			return
		}
		slog.ErrorContext(ctx.Request.Context(), "file read failed", "err", err)
		RespondInternal(ctx, "Could not read file")
		return
	}

	h.respondExtract(ctx, data, name)
}

func (h *FilesHandler) respondExtract(ctx *gin.Context, data []byte, filename string) {
	text, contentType, err := parser.Extract(data, filename)

	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, gin.H{"text": text, "contentType": contentType})
	case errors.Is(err, parser.ErrUnsupported):
		RespondUnsupportedMedia(ctx, "Unsupported file type. Please upload a PDF or DOCX file.")
	case errors.Is(err, parser.ErrTooLarge):
		RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Document is too large to parse.", nil)
	case errors.Is(err, parser.ErrNoText) && contentType == parser.MimePDF:
		RespondUnprocessable(ctx, "No text found in PDF. The PDF may be scanned or image-based.")
	case errors.Is(err, parser.ErrNoText):
		RespondUnprocessable(ctx, "No text found in document.")
	default:
		RespondUnprocessable(ctx, "Failed to parse file: "+err.Error())
	}
}
