package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"expenses/internal/core"
)

var csvHeader = []string{"id", "date", "description", "amount", "category"}

// RenderTable writes expenses as a fixed-width table. Long values are not
// truncated; they push the following columns right.
func RenderTable(w io.Writer, expenses []core.Expense) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%-4s %-12s %-20s %-10s %-15s\n", "ID", "Date", "Description", "Amount", "Category")
	b.WriteString(strings.Repeat("-", 65))
	b.WriteByte('\n')
	for _, e := range expenses {
		fmt.Fprintf(&b, "%-4d %-12s %-20s $%-9s %-15s\n",
			e.ID, e.Date.String(), e.Description, e.Amount.Format(), e.Category)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteCSV writes the header row and one row per expense, in order, with
// CRLF line endings.
func WriteCSV(w io.Writer, expenses []core.Expense) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range expenses {
		row := []string{
			strconv.FormatInt(e.ID, 10),
			e.Date.String(),
			e.Description,
			e.Amount.String(),
			e.Category,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeCSVFile(filename string, expenses []core.Expense) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, expenses); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return f.Close()
}
