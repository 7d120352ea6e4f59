package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tasador/server/internal/importer"
	"tasador/server/internal/models"
	"tasador/server/internal/report"
	"tasador/server/internal/session"
	"tasador/server/internal/sheets"
	"tasador/server/internal/store"
)

type Handler struct {
	session *session.Session
	fetcher *sheets.Fetcher
	reports *report.Builder
	logger  *logrus.Logger
}

type SheetImportRequest struct {
	URL string `json:"url" binding:"required"`
}

func NewHandler(s *session.Session, fetcher *sheets.Fetcher, reports *report.Builder, logger *logrus.Logger) *Handler {
	return &Handler{
		session: s,
		fetcher: fetcher,
		reports: reports,
		logger:  logger,
	}
}

// respond writes the payload, downgrading a persistence failure to a
// warning: the resident state did change, so the client keeps the
// result either way.
func (h *Handler) respond(c *gin.Context, payload interface{}, err error) {
	var persistErr *session.PersistError
	if errors.As(err, &persistErr) {
		h.logger.WithError(persistErr).Warn("Change applied but not persisted")
		c.JSON(http.StatusOK, gin.H{"data": payload, "warning": persistErr.Error()})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (h *Handler) GetTarget(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Target())
}

func (h *Handler) UpdateTarget(c *gin.Context) {
	var patch session.TargetPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target payload"})
		return
	}

	target, err := h.session.UpdateTarget(patch)
	h.respond(c, target, err)
}

func (h *Handler) GetComparables(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Processed())
}

func (h *Handler) AddComparable(c *gin.Context) {
	comp, err := h.session.AddComparable()
	h.respond(c, comp, err)
}

func (h *Handler) UpdateComparable(c *gin.Context) {
	var patch session.ComparablePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid comparable payload"})
		return
	}

	comp, err := h.session.UpdateComparable(c.Param("id"), patch)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comparable not found"})
		return
	}
	h.respond(c, comp, err)
}

func (h *Handler) DeleteComparable(c *gin.Context) {
	err := h.session.DeleteComparable(c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comparable not found"})
		return
	}
	h.respond(c, gin.H{"deleted": c.Param("id")}, err)
}

func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Stats())
}

func (h *Handler) GetValuation(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"target_h_surface": h.session.TargetHSurface(),
		"valuation":        h.session.Valuate(),
	})
}

func (h *Handler) SaveValuation(c *gin.Context) {
	saved, err := h.session.SaveValuation()
	if errors.Is(err, session.ErrSavedLimit) || errors.Is(err, session.ErrNoAddress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	h.respond(c, saved, err)
}

func (h *Handler) ListValuations(c *gin.Context) {
	valuations, err := h.session.SavedValuations()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list saved valuations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list saved valuations"})
		return
	}
	c.JSON(http.StatusOK, valuations)
}

func (h *Handler) LoadValuation(c *gin.Context) {
	err := h.session.LoadValuation(c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Valuation not found"})
		return
	}
	h.respond(c, gin.H{
		"target":      h.session.Target(),
		"comparables": h.session.Processed(),
	}, err)
}

func (h *Handler) DeleteValuation(c *gin.Context) {
	err := h.session.DeleteValuation(c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Valuation not found"})
		return
	}
	h.respond(c, gin.H{"deleted": c.Param("id")}, err)
}

func (h *Handler) NewValuation(c *gin.Context) {
	err := h.session.NewValuation()
	h.respond(c, gin.H{
		"target":      h.session.Target(),
		"comparables": h.session.Processed(),
	}, err)
}

func (h *Handler) ImportCSV(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty CSV body"})
		return
	}

	var comparables []models.Comparable
	reader := strings.NewReader(string(raw))
	if c.Query("format") == "header" {
		comparables, err = importer.ParseHeaderCSV(reader)
	} else {
		comparables, err = importer.ParsePositionalCSV(reader)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not parse CSV: " + err.Error()})
		return
	}

	count, err := h.session.ImportComparables(comparables)
	h.respond(c, gin.H{"imported": count}, err)
}

func (h *Handler) ImportSheet(c *gin.Context) {
	var req SheetImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing sheet URL"})
		return
	}

	csvText, err := h.fetcher.FetchCSV(req.URL)
	if err != nil {
		h.logger.WithError(err).WithField("url", req.URL).Error("Sheet fetch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not fetch spreadsheet: " + err.Error()})
		return
	}

	comparables, err := importer.ParseHeaderCSV(strings.NewReader(csvText))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not parse spreadsheet: " + err.Error()})
		return
	}

	count, err := h.session.ImportComparables(comparables)
	h.respond(c, gin.H{"imported": count}, err)
}

func (h *Handler) ExportCSV(c *gin.Context) {
	var buf strings.Builder
	if err := importer.WritePositionalCSV(&buf, h.session.Comparables()); err != nil {
		h.logger.WithError(err).Error("CSV export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "CSV export failed"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="comparables.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(buf.String()))
}

func (h *Handler) ExportClipboard(c *gin.Context) {
	tsv, err := importer.ClipboardTSV(h.session.Comparables())
	if err != nil {
		h.logger.WithError(err).Error("Clipboard export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Clipboard export failed"})
		return
	}

	c.Data(http.StatusOK, "text/tab-separated-values; charset=utf-8", []byte(tsv))
}

func (h *Handler) GetReportMap(c *gin.Context) {
	data, err := h.reports.Build(h.session.Processed())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	if c.Query("format") == "geojson" {
		raw, err := h.reports.GeoJSON(data)
		if err != nil {
			h.logger.WithError(err).Error("GeoJSON encoding failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "GeoJSON encoding failed"})
			return
		}
		c.Data(http.StatusOK, "application/geo+json", raw)
		return
	}

	c.JSON(http.StatusOK, data)
}
