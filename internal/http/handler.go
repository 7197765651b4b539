package http

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/ofs-skill/internal/domain"
	"go.ngs.io/ofs-skill/internal/obs"
	"go.ngs.io/ofs-skill/internal/usecase"
)

// Handler handles HTTP requests for model extractions.
type Handler struct {
	extractor  *usecase.Extractor
	controlDir string
	logger     *slog.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(extractor *usecase.Extractor, controlDir string, logger *slog.Logger) *Handler {
	return &Handler{
		extractor:  extractor,
		controlDir: controlDir,
		logger:     logger,
	}
}

// GetExtraction handles GET /v1/extract.
func (h *Handler) GetExtraction(c *gin.Context) {
	// Parse query parameters.
	ofs := c.Query("ofs")
	variablesStr := c.Query("variables")
	kindStr := c.Query("kind")
	castStr := c.Query("cast")
	startStr := c.Query("start")
	endStr := c.Query("end")
	cycleStr := c.Query("cycle")
	datum := c.Query("datum")
	pointsFile := c.Query("points_file")

	if ofs == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ofs parameter is required"})
		return
	}
	if variablesStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "variables parameter is required"})
		return
	}

	req := usecase.Request{
		OFS:         ofs,
		TargetDatum: datum,
	}

	// Parse the variable list.
	for _, tag := range strings.Split(variablesStr, ",") {
		v, err := domain.ParseVariable(strings.TrimSpace(tag))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.Variables = append(req.Variables, v)
	}

	// Parse file kind (default: fields).
	if kindStr == "" {
		kindStr = "fields"
	}
	kind, err := domain.ParseFileKind(kindStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Kind = kind

	// Parse cast (default: nowcast).
	if castStr == "" {
		castStr = "nowcast"
	}
	cast, err := domain.ParseCast(castStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Cast = cast

	// Parse time range.
	if startStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start parameter is required"})
		return
	}
	if endStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end parameter is required"})
		return
	}
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid start time (expected RFC3339): %v", err)})
		return
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid end time (expected RFC3339): %v", err)})
		return
	}
	req.Start = start.UTC()
	req.End = end.UTC()

	// Parse run cycle.
	if cycleStr != "" {
		cycle, err := strconv.Atoi(cycleStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid cycle: %v", err)})
			return
		}
		req.Cycle = cycle
	}

	// Resolve the station list: user points when supplied, the standing
	// inventory otherwise.
	var stations []domain.Station
	if pointsFile != "" {
		req.UserCoords = true
		path := filepath.Join(h.controlDir, filepath.Base(pointsFile))
		stations, err = obs.LoadUserPoints(path, h.logger)
	} else {
		stations, err = obs.LoadInventory(h.inventoryPath(ofs))
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Execute use case.
	results, err := h.extractor.Extract(c.Request.Context(), req, stations)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, buildExtractionResponse(ofs, results))
}

func (h *Handler) inventoryPath(ofs string) string {
	return filepath.Join(h.controlDir, ofs+"_stations.csv")
}

// GetDatumReport handles GET /v1/datum-report/:ofs, serving the audit
// report left behind by the most recent water level extraction.
func (h *Handler) GetDatumReport(c *gin.Context) {
	ofs := c.Param("ofs")
	if _, err := domain.LookupOFS(ofs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	path := filepath.Join(h.controlDir, fmt.Sprintf("%s_wl_datum_report.csv", ofs))
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no datum report for %s; run a water level extraction first", ofs)})
		return
	}
	c.Header("Content-Type", "text/csv")
	c.File(path)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// SampleResponse is one scalar sample. Null values are samples the
// model masked.
type SampleResponse struct {
	Time  string   `json:"time"`
	Value *float64 `json:"value"`
}

// VectorSampleResponse is one current sample.
type VectorSampleResponse struct {
	Time      string   `json:"time"`
	Speed     *float64 `json:"speed"`
	Direction *float64 `json:"direction"`
}

// StationResponse is one station's extracted series.
type StationResponse struct {
	StationID   string                 `json:"station_id"`
	DatumOffset *float64               `json:"datum_offset,omitempty"`
	DatumStatus string                 `json:"datum_status,omitempty"`
	Samples     []SampleResponse       `json:"samples,omitempty"`
	Vectors     []VectorSampleResponse `json:"vectors,omitempty"`
}

// VariableResponse is one variable's extraction.
type VariableResponse struct {
	Variable string            `json:"variable"`
	Stations []StationResponse `json:"stations"`
}

// ExtractionResponse is the full extraction payload.
type ExtractionResponse struct {
	OFS     string             `json:"ofs"`
	Results []VariableResponse `json:"results"`
}

func buildExtractionResponse(ofs string, results []usecase.Result) ExtractionResponse {
	resp := ExtractionResponse{OFS: ofs}
	for _, res := range results {
		vr := VariableResponse{Variable: res.Variable.String()}
		for _, st := range res.Stations {
			sr := StationResponse{StationID: st.StationID}
			if res.Variable == domain.WaterLevel {
				if st.Offset.OK() {
					v := st.Offset.Value
					sr.DatumOffset = &v
					sr.DatumStatus = "pass"
				} else {
					sr.DatumStatus = st.Offset.Reason.Message()
				}
			}
			if res.Variable == domain.Currents {
				for _, s := range st.Vector.Samples {
					sr.Vectors = append(sr.Vectors, VectorSampleResponse{
						Time:      s.Time.UTC().Format(time.RFC3339),
						Speed:     jsonFloat(s.Speed),
						Direction: jsonFloat(s.Direction),
					})
				}
			} else {
				for _, s := range st.Series.Samples {
					sr.Samples = append(sr.Samples, SampleResponse{
						Time:  s.Time.UTC().Format(time.RFC3339),
						Value: jsonFloat(s.Value),
					})
				}
			}
			vr.Stations = append(vr.Stations, sr)
		}
		resp.Results = append(resp.Results, vr)
	}
	return resp
}

// jsonFloat maps NaN onto null; NaN is not representable in JSON.
func jsonFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
