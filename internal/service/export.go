package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"triage-dashboard/internal/domain"

	"github.com/xuri/excelize/v2"
)

// exportHeader 匯出欄位: 基本資料 + overall + 11 條規則分數
func exportHeader() []string {
	h := []string{"Domain", "Status", "Price", "Topic", "Country", "DR", "Traffic", "Overall"}
	for _, name := range domain.RuleNames {
		h = append(h, domain.HumanizeRule(name))
	}
	return append(h, "Critical Violations", "Notes")
}

func exportRow(r domain.DomainRecord) []string {
	row := []string{
		r.Domain,
		string(r.Status),
		r.Price,
		r.Topic,
		r.Country,
		strconv.FormatFloat(r.DR, 'f', -1, 64),
		strconv.FormatFloat(r.TotalTraffic(), 'f', -1, 64),
		strconv.Itoa(r.Scores.Overall),
	}
	for _, name := range domain.RuleNames {
		s := r.Scores
		row = append(row, strconv.Itoa(*s.Field(name)))
	}
	return append(row, strings.Join(r.CriticalViolations, "; "), r.Notes)
}

// WriteCSV 帶 UTF-8 BOM，Excel 直接開啟不會亂碼
func WriteCSV(w io.Writer, rows []domain.DomainRecord) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader()); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(exportRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX 單一工作表 "Domains"
func WriteXLSX(w io.Writer, rows []domain.DomainRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Domains"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	header := exportHeader()
	if err := f.SetSheetRow(sheet, "A1", toCells(header)); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, toCells(exportRow(r))); err != nil {
			return err
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	return f.Write(w)
}

// ExportBytes 依格式輸出，回傳內容與 Content-Type
func ExportBytes(formatName string, rows []domain.DomainRecord) ([]byte, string, error) {
	var buf bytes.Buffer
	switch strings.ToLower(formatName) {
	case "", "csv":
		if err := WriteCSV(&buf, rows); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv; charset=utf-8", nil
	case "xlsx":
		if err := WriteXLSX(&buf, rows); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
	}
	return nil, "", fmt.Errorf("unsupported export format: %s", formatName)
}

func toCells(vals []string) *[]interface{} {
	cells := make([]interface{}, len(vals))
	for i, v := range vals {
		cells[i] = v
	}
	return &cells
}
