package vdatum

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.ngs.io/ofs-skill/internal/domain"
	"go.ngs.io/ofs-skill/internal/obs"
)

// ReportEntry is one station's outcome for the audit report.
// HasModelData is false when the stations stream had no output point
// for the site, which is expected and reported as NA rather than fail.
type ReportEntry struct {
	StationID    string
	Offset       domain.DatumOffset
	HasModelData bool
}

// reportMaxAge debounces rebuilds: a report younger than this is
// assumed current for the run.
const reportMaxAge = time.Hour

// ReportWriter produces {ofs}_wl_datum_report.csv next to the control
// files, cross-referencing the observation control file for the
// obs-side datum columns.
type ReportWriter struct {
	controlDir string
	logger     *slog.Logger
}

// NewReportWriter wires a writer for one control file directory.
func NewReportWriter(controlDir string, logger *slog.Logger) *ReportWriter {
	return &ReportWriter{controlDir: controlDir, logger: logger}
}

// Write emits the audit report. Runs on user-supplied coordinates have
// no observation control data to audit against, so nothing is written;
// same when the observation control file is absent.
func (w *ReportWriter) Write(ofs, targetDatum string, userCoords bool, entries []ReportEntry) error {
	obsPath := filepath.Join(w.controlDir, fmt.Sprintf("%s_wl_station.ctl", ofs))
	if userCoords {
		w.logger.Info("user coordinates in play, skipping datum report", "ofs", ofs)
		return nil
	}
	if _, err := os.Stat(obsPath); err != nil {
		w.logger.Info("no observation control file, skipping datum report. "+
			"This is normal when extracting model time series only.", "ofs", ofs)
		return nil
	}

	reportPath := filepath.Join(w.controlDir, fmt.Sprintf("%s_wl_datum_report.csv", ofs))
	if info, err := os.Stat(reportPath); err == nil && time.Since(info.ModTime()) < reportMaxAge {
		w.logger.Info("datum report is current, skipping rebuild", "ofs", ofs, "path", reportPath)
		return nil
	}

	obsEntries, err := obs.ReadControlFile(obsPath)
	if err != nil {
		return fmt.Errorf("read observation control file for datum report: %w", err)
	}

	f, err := os.Create(reportPath)
	if err != nil {
		return fmt.Errorf("create datum report: %w", err)
	}
	defer func() { _ = f.Close() }()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{
		"Station ID", "Station provider", "Target datum",
		"Model-to-target offset (m)", "Obs source datum", "Obs-to-target offset (m)",
		"Datum conversion pass/fail", "Reason for failure",
	}); err != nil {
		return fmt.Errorf("write datum report header: %w", err)
	}

	for _, entry := range entries {
		oe, ok := obs.FindEntry(obsEntries, entry.StationID)
		if !ok {
			w.logger.Warn("station missing from observation control file, skipping report row",
				"station", entry.StationID)
			continue
		}
		row := reportRow(entry, oe, targetDatum)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write datum report row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush datum report: %w", err)
	}

	w.logger.Info("datum report written", "ofs", ofs, "path", reportPath, "stations", len(entries))
	return nil
}

func reportRow(entry ReportEntry, oe obs.ControlEntry, targetDatum string) []string {
	modelOffset := fmt.Sprintf("%.2f", entry.Offset.Code())
	obsOffset := oe.Offset
	if obsOffset == "" {
		obsOffset = "0"
	}

	var status, reason string
	switch {
	case !entry.HasModelData:
		status = "NA"
		reason = "No stations model data here, this is expected"
	case entry.Offset.OK() && numericObsOffset(oe.Offset):
		// Both sides converted; the comparison is on one datum.
		status = "pass"
		reason = " "
	default:
		status = "fail"
		reason = failureReason(entry, oe)
	}

	return []string{
		entry.StationID, oe.Provider, targetDatum,
		modelOffset, oe.SourceDatum, obsOffset,
		status, reason,
	}
}

// numericObsOffset reports whether the observation control file carries
// a usable offset. An empty field counts as zero; the RANGE/UNKNOWN
// tags the retrieval stage leaves behind do not.
func numericObsOffset(offset string) bool {
	if offset == "" {
		return true
	}
	_, err := strconv.ParseFloat(offset, 64)
	return err == nil
}

// failureReason composes the report wording, folding in the obs-side
// RANGE/UNKNOWN tags the retrieval stage leaves behind.
func failureReason(entry ReportEntry, oe obs.ControlEntry) string {
	var parts []string
	switch oe.Offset {
	case "RANGE":
		parts = append(parts, "Out of geographic range (obs)")
	case "UNKNOWN":
		parts = append(parts, "Target datum is unavailable for obs conversion")
	}
	if msg := entry.Offset.Reason.Message(); msg != "" {
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}
