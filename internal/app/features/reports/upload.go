// internal/app/features/reports/upload.go
package reports

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dalemusser/fiiportal/internal/app/features/shared"
	"github.com/dalemusser/fiiportal/internal/app/store/audit"
	"github.com/dalemusser/fiiportal/internal/app/system/filestore"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

// multipart overhead allowed on top of MaxUpload
const formSlack = 1 << 20

// HandleUpload stores the PDF for a report, replacing any previous file.
//
// Route: POST /api/admin/reports/{id}/file (multipart field "file")
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	if h.Files == nil {
		h.ErrLog.LogServerError(w, r, "upload report: no file store configured", errors.New("filestore is nil"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUpload+formSlack)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, r, http.StatusRequestEntityTooLarge, respond.CodeTooLarge, "file exceeds 25 MiB")
			return
		}
		h.ErrLog.LogBadRequest(w, r, "upload report: bad form", err, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil || header == nil || header.Size == 0 {
		respond.BadRequest(w, r, "file is required")
		return
	}
	defer file.Close()

	if header.Size > MaxUpload {
		respond.Error(w, r, http.StatusRequestEntityTooLarge, respond.CodeTooLarge, "file exceeds 25 MiB")
		return
	}
	if detectContentType(file) != "application/pdf" {
		respond.BadRequest(w, r, "file must be a PDF")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if _, err := h.Reports.GetByID(ctx, id); err != nil {
		h.storeError(w, r, "upload report: load failed", err)
		return
	}

	name := filestore.CleanFilename(header.Filename)
	if name == "" {
		name = "relatorio.pdf"
	}
	key := filestore.NewKey(KeyPrefix, name, time.Now().UTC())
	if err := h.Files.Put(ctx, key, file, &storage.PutOptions{
		ContentType:        "application/pdf",
		ContentDisposition: filestore.ContentDisposition(name),
	}); err != nil {
		h.ErrLog.LogServerError(w, r, "upload report: store file failed", err, zap.String("key", key))
		return
	}

	actor := shared.Actor(r)
	oldKey, err := h.Reports.SetFile(ctx, id, key, name, header.Size, actor)
	if err != nil {
		// report vanished between the check and the write
		h.removeFile(context.WithoutCancel(ctx), key)
		h.storeError(w, r, "upload report: record file failed", err)
		return
	}
	h.removeFile(ctx, oldKey)

	rep, err := h.Reports.GetByID(ctx, id)
	if err != nil {
		h.storeError(w, r, "upload report: reload failed", err)
		return
	}
	h.Audit.Admin(r.Context(), r, actor, audit.EventUploaded, resource, id.Hex(), rep.Title)
	h.Log.Info("report file uploaded",
		zap.String("report_id", id.Hex()),
		zap.String("key", key),
		zap.Int64("size", header.Size))
	respond.OK(w, view(rep))
}

// detectContentType sniffs the first 512 bytes and rewinds.
func detectContentType(file io.ReadSeeker) string {
	buf := make([]byte, 512)
	n, _ := io.ReadFull(file, buf)
	if _, err := file.Seek(0, io.SeekStart); err != nil || n == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(buf[:n])
}
