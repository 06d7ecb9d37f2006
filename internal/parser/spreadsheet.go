package parser

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"participant-import-backend/internal/services/reconciler"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format, upload .csv or .xlsx")
	ErrEmptySheet        = errors.New("worksheet is empty")
	ErrNoRows            = errors.New("worksheet has a header but no participant rows")
	ErrTooManyRows       = errors.New("worksheet exceeds the maximum number of rows")
	ErrMissingColumns    = errors.New("worksheet is missing required columns")
)

type column int

const (
	colCPF column = iota
	colNome
	colFuncao
	colEmpresa
	colCredencial
)

// headerAliases maps normalized header text to a column.
var headerAliases = map[string]column{
	"cpf":           colCPF,
	"documento":     colCPF,
	"nome":          colNome,
	"nome completo": colNome,
	"name":          colNome,
	"funcao":        colFuncao,
	"cargo":         colFuncao,
	"role":          colFuncao,
	"empresa":       colEmpresa,
	"company":       colEmpresa,
	"credencial":    colCredencial,
	"credential":    colCredencial,
	"pulseira":      colCredencial,
}

var requiredColumns = []struct {
	col  column
	name string
}{
	{colCPF, "cpf"},
	{colNome, "nome"},
	{colEmpresa, "empresa"},
	{colCredencial, "credencial"},
}

// Parse reads a participant sheet. The first non-blank row is the header;
// RowNumber counts sheet rows from 1 below it, so blank rows are skipped but
// still advance the count. CSV files may be UTF-8 or Windows-1252.
func Parse(r io.Reader, filename string, maxRows int) ([]reconciler.RawRow, error) {
	records, err := readRecords(r, filename)
	if err != nil {
		return nil, err
	}
	return toRows(records, maxRows)
}

func readRecords(r io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read upload")
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return readCSV(data)
	case ".xlsx", ".xlsm":
		return readXLSX(data)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "got %q", filepath.Ext(filename))
	}
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data, err := toUTF8(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comma = detectDelimiter(data)

	// encoding/csv drops empty lines. They are put back as empty records so
	// row numbers follow the sheet as a spreadsheet program shows it. A quoted
	// cell spanning several lines is still one row.
	var records [][]string
	lastLine := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "parse csv")
		}

		start, _ := reader.FieldPos(0)
		for ; lastLine+1 < start; lastLine++ {
			records = append(records, nil)
		}
		last := len(rec) - 1
		end, _ := reader.FieldPos(last)
		lastLine = end + strings.Count(rec[last], "\n")

		records = append(records, rec)
	}
	return records, nil
}

// toUTF8 decodes Windows-1252 text, the default of Excel CSV exports on pt-BR
// systems. Valid UTF-8 is returned unchanged.
func toUTF8(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode windows-1252 csv")
	}
	return decoded, nil
}

// detectDelimiter picks between semicolon, tab and comma by looking at the
// first line. Spreadsheets exported with a pt-BR locale use semicolons.
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "open xlsx")
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("no worksheet found")
	}

	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %s", sheetName)
	}
	return rows, nil
}

func toRows(records [][]string, maxRows int) ([]reconciler.RawRow, error) {
	headerAt := -1
	for i, rec := range records {
		if !blank(rec) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrEmptySheet
	}

	index, err := mapHeader(records[headerAt])
	if err != nil {
		return nil, err
	}

	rows := make([]reconciler.RawRow, 0, len(records)-headerAt-1)
	for i, rec := range records[headerAt+1:] {
		if blank(rec) {
			continue
		}
		if maxRows > 0 && len(rows) == maxRows {
			return nil, errors.Wrapf(ErrTooManyRows, "limit is %d", maxRows)
		}
		rows = append(rows, reconciler.RawRow{
			RowNumber: i + 1,
			ParticipantRow: reconciler.ParticipantRow{
				CPF:        restoreLeadingZeros(cellValue(rec, index[colCPF])),
				Nome:       cellValue(rec, index[colNome]),
				Funcao:     cellValue(rec, index[colFuncao]),
				Empresa:    cellValue(rec, index[colEmpresa]),
				Credencial: cellValue(rec, index[colCredencial]),
			},
		})
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows, nil
}

func mapHeader(header []string) (map[column]int, error) {
	index := map[column]int{}
	for i, h := range header {
		col, ok := headerAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := index[col]; !seen {
			index[col] = i
		}
	}

	var missing []string
	for _, rc := range requiredColumns {
		if _, ok := index[rc.col]; !ok {
			missing = append(missing, rc.name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Wrap(ErrMissingColumns, strings.Join(missing, ", "))
	}
	if _, ok := index[colFuncao]; !ok {
		index[colFuncao] = -1
	}
	return index, nil
}

func normalizeHeader(header string) string {
	h := strings.TrimPrefix(header, "\ufeff")
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, h); err == nil {
		h = folded
	}
	return strings.Join(strings.Fields(strings.ToLower(h)), " ")
}

// restoreLeadingZeros undoes a CPF stored as a number, which drops its
// leading zeros. Only bare runs of 9 or 10 digits are padded; anything
// formatted or of another length is left for validation to judge.
func restoreLeadingZeros(v string) string {
	s := strings.TrimSpace(v)
	if len(s) < 9 || len(s) > 10 {
		return v
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return v
		}
	}
	return strings.Repeat("0", 11-len(s)) + s
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
