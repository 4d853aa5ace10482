package server

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mandelbrot-ai/neural-engine/internal/assemble"
	"github.com/mandelbrot-ai/neural-engine/internal/extract"
	"github.com/mandelbrot-ai/neural-engine/internal/registry"
)

const previewLength = 200

// DocumentsHandler owns the upload and chat endpoints.
type DocumentsHandler struct {
	Store     registry.Store
	Assembler *assemble.Assembler
	DataDir   string
	Logger    *log.Logger
}

// Init creates the upload directory.
func (h *DocumentsHandler) Init() error {
	if err := os.MkdirAll(h.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", h.DataDir, err)
	}
	return nil
}

func (h *DocumentsHandler) Register(g *echo.Group) {
	g.POST("/upload", h.upload)
	g.POST("/chat-rag", h.chat)
	g.GET("/documents", h.list)
}

// upload streams the request body to disk, samples it, and registers the
// document under its filename. The file is never buffered whole in memory;
// a failed write removes the partial file before reporting the error.
func (h *DocumentsHandler) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field 'file' required")
	}
	filename := filepath.Base(fh.Filename)
	if filename == "." || filename == string(filepath.Separator) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid filename")
	}
	h.Logger.Printf("stream upload start: %s (%d bytes)", filename, fh.Size)
	uploadsTotal.Inc()

	src, err := fh.Open()
	if err != nil {
		uploadFailuresTotal.Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer src.Close()

	path := filepath.Join(h.DataDir, uuid.NewString()+"_"+filename)
	if err := streamToFile(src, path); err != nil {
		uploadFailuresTotal.Inc()
		h.Logger.Printf("stream upload error for %s: %v", filename, err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	sampled := extract.Extract(path, filename)

	doc := registry.StoredDocument{
		Identifier:  filename,
		SampledText: sampled,
		SourcePath:  path,
		IngestedAt:  time.Now().UTC(),
	}
	if err := h.Store.Upsert(c.Request().Context(), doc); err != nil {
		_ = os.Remove(path)
		uploadFailuresTotal.Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.Logger.Printf("indexed %s", filename)
	return c.JSON(http.StatusOK, uploadResponse{
		Filename: filename,
		Status:   "success",
		Message:  "File streamed & indexed.",
		Preview:  preview(sampled),
	})
}

// chat answers a query against the requested documents (or all of them).
func (h *DocumentsHandler) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message required")
	}
	h.Logger.Printf("chat request: %s", preview(req.Message))
	queriesTotal.Inc()

	response, used, err := h.Assembler.Answer(c.Request().Context(), req.Message, req.ContextFiles)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, chatResponse{Response: response, ContextUsed: used})
}

func (h *DocumentsHandler) list(c echo.Context) error {
	ids, err := h.Store.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"documents": ids, "count": len(ids)})
}

// streamToFile copies src to path without buffering the payload. Any
// write or close failure removes the partial file before returning.
func streamToFile(src io.Reader, path string) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(path)
		return copyErr
	}
	return nil
}

// preview collapses newlines and bounds the text for log lines and upload
// acknowledgements. The bound can split a multi-byte rune; only that
// trailing fragment is trimmed, invalid bytes earlier on stay.
func preview(s string) string {
	s = strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
	if len(s) <= previewLength {
		return s + "..."
	}
	cut := s[:previewLength]
	for i := 0; i < utf8.UTFMax-1 && len(cut) > 0; i++ {
		if r, size := utf8.DecodeLastRuneInString(cut); r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut + "..."
}
