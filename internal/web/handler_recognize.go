package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/vbonduro/freezerinv/internal/domain"
	"github.com/vbonduro/freezerinv/internal/service"
)

// maxFormMemory is how much of a multipart upload is kept in memory before
// spilling to temporary files.
const maxFormMemory = 32 << 20

type recognitionResponse struct {
	*service.Recognition
	HasText bool `json:"has_text"`
	// Exists reports whether the coordinate is already in the caller's ledger.
	Exists bool `json:"exists"`
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["media"]
	if len(headers) == 0 {
		http.Error(w, "at least one media file required", http.StatusBadRequest)
		return
	}

	media := make([]domain.Media, 0, len(headers))
	for _, fh := range headers {
		m, err := s.readMedia(fh)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		media = append(media, m)
	}

	coordinate := r.FormValue("coordinate")
	// Recognition is bounded by the annotation timeouts, not by the client
	// staying connected.
	rec, err := s.service.Recognize(context.WithoutCancel(r.Context()), coordinate, media)
	if err != nil {
		if errors.Is(err, service.ErrNoMedia) || errors.Is(err, service.ErrMixedMedia) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to recognize media", http.StatusInternalServerError)
		s.logger.Error("recognize failed", "error", err)
		return
	}

	resp := recognitionResponse{
		Recognition: rec,
		HasText:     rec.HasText(),
		Exists:      rec.Coordinate != "" && sessionFrom(r).Ledger.Contains(rec.Coordinate),
	}
	if isHTMX(r) {
		if err := s.renderPartial(w, http.StatusOK, "partials/recognition.html", resp); err != nil {
			s.logger.Error("render partial failed", "error", err)
		}
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

var errUnsupportedMedia = errors.New("unsupported media format")

func (s *Server) readMedia(fh *multipart.FileHeader) (domain.Media, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.Media{}, err
	}
	defer closeWithLog(f, "upload file", s.logger)

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.Media{}, err
	}
	mime, kind, ok := allowedMedia(data)
	if !ok {
		return domain.Media{}, errUnsupportedMedia
	}
	return domain.Media{Name: fh.Filename, MIMEType: mime, Kind: kind, Data: data}, nil
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
