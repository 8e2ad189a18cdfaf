package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/triage_inbox/backend/internal/ingest"
	"github.com/triage_inbox/backend/internal/metrics"
	"github.com/triage_inbox/backend/internal/models"
)

type ImportSummary struct {
	Parsed       int      `json:"parsed"`
	Dropped      int      `json:"dropped"`
	DroppedLines []int    `json:"dropped_lines"`
	Imported     []string `json:"imported_ids"`
	Messages     int      `json:"messages"`
}

// @Summary Import message batch
// @Description Upload a customer message CSV. Adds the batch to the current session's messages under fresh ids.
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param messages formData file true "messages.csv"
// @Success 200 {object} ImportSummary
// @Failure 400 {object} map[string]any
// @Router /api/import [post]
func (h *Handler) Import(c *gin.Context) {
	file, err := c.FormFile("messages")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "messages file required", nil)
		return
	}
	if !validateExt(file.Filename) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "file must be .csv", nil)
		return
	}
	text, err := readUpload(file)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "failed to read upload", err.Error())
		return
	}

	report := ingest.ParseReport(text)
	imported := h.Store.Import(report.Messages)
	RecordIngestion("upload", report)
	metrics.StoreMessages.Set(float64(h.Store.Len()))

	h.Logger.Info().
		Str("file", file.Filename).
		Int("parsed", report.Parsed).
		Int("dropped", len(report.Dropped)).
		Msg("batch imported")

	c.JSON(http.StatusOK, ImportSummary{
		Parsed:       report.Parsed,
		Dropped:      len(report.Dropped),
		DroppedLines: report.Dropped,
		Imported:     messageIDs(imported),
		Messages:     h.Store.Len(),
	})
}

// RecordIngestion exports batch outcome counters for a given source.
func RecordIngestion(source string, report ingest.Report) {
	metrics.RecordsIngested.WithLabelValues(source, "accepted").Add(float64(report.Parsed))
	metrics.RecordsIngested.WithLabelValues(source, "dropped").Add(float64(len(report.Dropped)))
}

func messageIDs(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func readUpload(file *multipart.FileHeader) (string, error) {
	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(string(b), "\ufeff"), nil
}

func validateExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv"
}
