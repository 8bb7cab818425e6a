package trainer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"yomitore/internal/app/apiresp"
	"yomitore/internal/dataset"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxUploadBytes = 32 << 20

type datasetProvider interface {
	Replace(ctx context.Context, src dataset.Source) (int, error)
	Reset()
	Info() dataset.Info
}

// AdminHandler swaps the dataset served to new sessions. Running sessions
// keep the set they were started with.
type AdminHandler struct {
	provider datasetProvider
	log      *zap.Logger
}

func NewAdminHandler(provider datasetProvider, log *zap.Logger) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{provider: provider, log: log}
}

func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/dataset", h.Info)
	r.Put("/dataset", h.Upload)
	r.Delete("/dataset", h.Reset)
}

func (h *AdminHandler) Info(w http.ResponseWriter, r *http.Request) {
	apiresp.WriteOK(w, r, http.StatusOK, h.provider.Info())
}

// Upload accepts either a multipart form with a "file" field or a raw body
// with ?filename= naming the format (.csv or .xlsx).
func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	name, data, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apiresp.WriteError(w, r, http.StatusRequestEntityTooLarge, "dataset exceeds upload limit")
			return
		}
		apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.provider.Replace(r.Context(), &dataset.MemorySource{Filename: name, Data: data})
	if err != nil {
		h.log.Warn("dataset upload rejected", zap.String("filename", name), zap.Error(err))
		writeServiceError(w, r, err)
		return
	}

	h.log.Info("dataset replaced", zap.String("filename", name), zap.Int("items", count))
	apiresp.WriteOK(w, r, http.StatusOK, map[string]any{
		"items":   count,
		"dataset": h.provider.Info(),
	})
}

func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.provider.Reset()
	h.log.Info("dataset reset to configured source")
	apiresp.WriteOK(w, r, http.StatusOK, h.provider.Info())
}

func readUpload(r *http.Request) (string, []byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, errors.New("multipart field \"file\" is required")
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, err
		}
		return uploadName(header.Filename), data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}
	if len(data) == 0 {
		return "", nil, errors.New("request body is empty")
	}
	return uploadName(r.URL.Query().Get("filename")), data, nil
}

func uploadName(raw string) string {
	name := path.Base(strings.TrimSpace(strings.ReplaceAll(raw, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "upload.csv"
	}
	return name
}
