package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/Veraticus/recon/internal/model"
)

// WriteCSV writes rows with a header made of every key seen, in first-seen order.
// Cells missing from a row are left empty.
func WriteCSV(w io.Writer, rows []model.Row) error {
	header := Header(rows)
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(header))
	for i, row := range rows {
		for j, key := range header {
			v, _ := row.Get(key)
			record[j] = FormatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
