// Package export renders the transaction history as a CSV download.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cashflow/internal/core"
)

// Header is the fixed first row.
var Header = []string{"Tanggal", "Tipe", "Kategori", "Deskripsi", "Jumlah"}

// WriteCSV writes one row per transaction. Fields are joined with commas as
// they are, without quoting, so a comma inside a description shifts the
// columns of that row. Rows are separated by "\n" with no trailing newline.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(Header, ",")); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tx := range txs {
		row := []string{
			tx.Date.String(),
			tx.Type.String(),
			tx.Category,
			tx.Description,
			strconv.FormatInt(tx.Amount.Amount, 10),
		}
		if _, err := bw.WriteString("\n" + strings.Join(row, ",")); err != nil {
			return fmt.Errorf("write row %d: %w", tx.ID, err)
		}
	}
	return bw.Flush()
}

// FileName is the download name for an export taken at now.
func FileName(now time.Time) string {
	return "cashflow_" + now.In(time.Local).Format(core.DayLayout) + ".csv"
}
