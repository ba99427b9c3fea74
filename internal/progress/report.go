package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const reportSheet = "Progreso"

// WriteReport writes completion rows as an xlsx workbook, one row per
// recorded module item. Used by the read-only admin progress report.
func WriteReport(w io.Writer, rows []CompletedRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return fmt.Errorf("naming report sheet: %w", err)
	}

	headers := []string{"Usuario", "Módulo", "Ítem", "Tipo", "Completado", "Actualizado"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("report header cell: %w", err)
		}
		if err := f.SetCellValue(reportSheet, cell, h); err != nil {
			return fmt.Errorf("report header: %w", err)
		}
	}

	for i, row := range rows {
		values := []any{
			row.UserID,
			row.ModuleID,
			row.ItemIndex,
			string(row.ItemType),
			row.Completed,
			row.UpdatedAt.Format(time.RFC3339),
		}
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return fmt.Errorf("report cell: %w", err)
			}
			if err := f.SetCellValue(reportSheet, cell, v); err != nil {
				return fmt.Errorf("report row %d: %w", i, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
