package csvimport

import (
	"fmt"
	"io"
	"strings"

	"triage-dashboard/internal/domain"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ParseXLSX 讀取活頁簿第一個工作表，規則與 CSV 相同
func ParseXLSX(r io.Reader) ([]domain.DomainInput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoRows
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}

	// 去掉全空白列
	filled := rows[:0]
	for _, row := range rows {
		if strings.TrimSpace(strings.Join(row, "")) != "" {
			filled = append(filled, row)
		}
	}
	if len(filled) > 0 && isHeader(strings.Join(filled[0], ",")) {
		filled = filled[1:]
	}

	batch := uuid.NewString()
	out := make([]domain.DomainInput, 0, len(filled))
	for _, row := range filled {
		if in, ok := fromFields(append([]string(nil), row...)); ok {
			in.ID = batchID(batch, len(out))
			out = append(out, in)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}
