package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"resume-graph-service/models"
)

const entitySheetName = "Entities"

var exportHeader = []string{"name", "label"}

// EncodeEntitiesCSV renders entities as a two-column CSV with a header row. An empty
// slice yields the header alone.
func EncodeEntitiesCSV(entities []models.Entity) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, e := range entities {
		if err := w.Write([]string{e.Name, e.Label}); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeEntitiesXLSX renders the same table as a one-sheet workbook.
func EncodeEntitiesXLSX(entities []models.Entity) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), entitySheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []interface{}{exportHeader[0], exportHeader[1]}
	if err := f.SetSheetRow(entitySheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, e := range entities {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{e.Name, e.Label}
		if err := f.SetSheetRow(entitySheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(entitySheetName, "A", "A", 40); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(entitySheetName, "B", "B", 15); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}
