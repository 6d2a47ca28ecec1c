// Package export turns a team's request log into an xlsx workbook and
// publishes it to object storage behind a short-lived download link.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/garyellow/geo-linebot-go/internal/storage"
)

// SheetName is the worksheet holding the request rows.
const SheetName = "Requests"

// DateLayout formats request_date cells.
const DateLayout = "2006-01-02 15:04:05"

// ContentType is the MIME type of generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Columns is the header row, in column order.
var Columns = []string{"user_id", "username", "geo", "request_date"}

// FileName returns the download name of a team's workbook.
func FileName(team string) string {
	return strings.ToLower(team) + "_requests.xlsx"
}

// Workbook renders rows into an xlsx document. Every cell is written as a
// string so ids and codes are never reinterpreted as numbers or dates.
func Workbook(rows []storage.Request) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for col, name := range Columns {
		if err := setString(f, col+1, 1, name); err != nil {
			return nil, err
		}
	}

	for i, r := range rows {
		values := []string{r.UserID, r.Username, r.Geo, r.RequestDate.UTC().Format(DateLayout)}
		for col, v := range values {
			if err := setString(f, col+1, i+2, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func setString(f *excelize.File, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetCellStr(SheetName, cell, value); err != nil {
		return fmt.Errorf("set %s: %w", cell, err)
	}
	return nil
}
