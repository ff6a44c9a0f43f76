// Package csvimport 將貼上或拖放的 CSV / XLSX 轉成待送審的域名清單。
// 欄位固定為 domain,price,notes，標題列可省略 (首列含 "domain" 即視為標題)。
package csvimport

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"triage-dashboard/internal/domain"

	"github.com/google/uuid"
)

// ErrNoRows 整份檔案沒有任何有效域名
var ErrNoRows = errors.New("No valid domains found in CSV")

// Parse 逐行解析，空白行略過，domain 欄為空的列直接丟棄
func Parse(text string) []domain.DomainInput {
	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return nil
	}
	if isHeader(lines[0]) {
		lines = lines[1:]
	}

	batch := uuid.NewString()
	out := make([]domain.DomainInput, 0, len(lines))
	for _, line := range lines {
		if in, ok := fromFields(splitFields(line)); ok {
			in.ID = batchID(batch, len(out))
			out = append(out, in)
		}
	}
	return out
}

// ParseReader 同 Parse，讀取上傳檔案用
func ParseReader(r io.Reader) ([]domain.DomainInput, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	rows := Parse(strings.TrimPrefix(string(b), "\ufeff"))
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows, nil
}

func nonEmptyLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func isHeader(first string) bool {
	return strings.Contains(strings.ToLower(first), "domain")
}

// splitFields 以逗號分欄，引號內的逗號保留。
// 引號外的空白留給 cleanField 處理，所以 `"a.com" , "$1,250"` 也能正確切開。
func splitFields(line string) []string {
	var (
		fields  []string
		cur     strings.Builder
		inQuote bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ',' && !inQuote:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, cur.String())
}

func cleanField(f string) string {
	f = strings.TrimSpace(f)
	f = strings.Trim(f, `"'`)
	return strings.TrimSpace(f)
}

func fromFields(fields []string) (domain.DomainInput, bool) {
	var in domain.DomainInput
	for i := range fields {
		fields[i] = cleanField(fields[i])
	}
	if len(fields) == 0 || fields[0] == "" {
		return in, false
	}
	in.Domain = fields[0]
	if len(fields) > 1 {
		in.Price = fields[1]
	}
	if len(fields) > 2 {
		in.Notes = fields[2]
	}
	return in, true
}

func batchID(batch string, i int) string {
	return batch[:8] + "-" + strconv.Itoa(i)
}
