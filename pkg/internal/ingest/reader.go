package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hsk3232/DevelopProject/pkg/internal/errs"
)

// 必需列.
const (
	ColLocationID   = "location_id"
	ColScanLocation = "scan_location"
	ColOperatorID   = "operator_id"
	ColDeviceID     = "device_id"
	ColEPCCode      = "epc_code"
	ColEPCHeader    = "epc_header"
	ColEPCLot       = "epc_lot"
	ColEPCSerial    = "epc_serial"
	ColEPCProduct   = "epc_product"
	ColEPCCompany   = "epc_company"
	ColProductName  = "product_name"
	ColEventTime    = "event_time"
	ColBusinessStep = "business_step"
	ColEventType    = "event_type"
	ColHubType      = "hub_type"

	ColManufactureDate = "manufacture_date"
	ColExpiryDate      = "expiry_date"
)

// RequiredColumns 表头必须包含的列.
var RequiredColumns = []string{
	ColLocationID, ColScanLocation, ColOperatorID, ColDeviceID,
	ColEPCCode, ColEPCHeader, ColEPCLot, ColEPCSerial, ColEPCProduct, ColEPCCompany,
	ColProductName, ColEventTime, ColBusinessStep, ColEventType, ColHubType,
}

// row 一行数据，Num 为文件中的行号（表头为第 1 行）.
type row struct {
	Num    int
	fields []string
	header map[string]int
}

// Get 返回去除首尾空白的值，列不存在或为空时返回 "".
func (r row) Get(col string) string {
	i, ok := r.header[col]
	if !ok || i >= len(r.fields) {
		return ""
	}

	return strings.TrimSpace(r.fields[i])
}

type rowReader struct {
	r      *csv.Reader
	header map[string]int
	line   int
}

func newRowReader(src io.Reader) (*rowReader, error) {
	cr := csv.NewReader(newEscapeReader(src))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", errs.ErrInvalidFormat)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", errs.ErrInvalidFormat, err)
	}

	header := make(map[string]int, len(head))

	for i, h := range head {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := header[name]; !dup {
			header[name] = i
		}
	}

	var missing []string

	for _, col := range RequiredColumns {
		if _, ok := header[col]; !ok {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", errs.ErrInvalidFormat, strings.Join(missing, ","))
	}

	return &rowReader{r: cr, header: header, line: 1}, nil
}

// Next 读取下一行，文件结束时返回 io.EOF.
// csv.ParseError 之后的行边界不可信，整个文件按 ErrInvalidFormat 中止，已提交的分块保留.
// 未闭合的引号字段在 LazyQuotes 下吞并到文件末尾，不产生 ParseError.
func (rr *rowReader) Next() (row, error) {
	rec, err := rr.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return row{}, io.EOF
		}

		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return row{}, fmt.Errorf("%w: line %d: %w", errs.ErrInvalidFormat, pe.Line, err)
		}

		return row{}, fmt.Errorf("read csv: %w", err)
	}

	rr.line++

	return row{Num: rr.line, fields: rec, header: rr.header}, nil
}

// escapeReader 把反斜杠转义改写成 encoding/csv 可识别的形式.
//
// 引号字段内 \" 变为 ""，\\ 变为 \；其余反斜杠原样保留.
// 字段开头的 \" 无法用裸字段表达，改写为以 """ 开头的引号字段并在字段结束处补齐右引号.
type escapeReader struct {
	src       *bufio.Reader
	out       []byte
	err       error
	inQuote   bool
	synthetic bool // 当前引号字段由改写引入，原文没有右引号
	start     bool // 位于字段开头
}

func newEscapeReader(r io.Reader) *escapeReader {
	return &escapeReader{src: bufio.NewReader(r), start: true}
}

func (e *escapeReader) Read(p []byte) (int, error) {
	for len(e.out) < len(p) && e.err == nil {
		e.step()
	}

	if len(e.out) == 0 {
		return 0, e.err
	}

	n := copy(p, e.out)
	e.out = e.out[n:]

	return n, nil
}

func (e *escapeReader) step() {
	c, err := e.src.ReadByte()
	if err != nil {
		if e.synthetic {
			e.out = append(e.out, '"')
			e.synthetic, e.inQuote = false, false
		}

		e.err = err

		return
	}

	switch {
	case c == '\\':
		e.escape()
	case c == '"':
		e.quote()
	case !e.inQuote && (c == ',' || c == '\n' || c == '\r'):
		e.out = append(e.out, c)
		e.start = true
	case e.synthetic && (c == ',' || c == '\n' || c == '\r'):
		e.out = append(e.out, '"', c)
		e.synthetic, e.inQuote = false, false
		e.start = true
	default:
		e.out = append(e.out, c)
		e.start = false
	}
}

func (e *escapeReader) escape() {
	next, err := e.src.ReadByte()
	if err != nil {
		e.out = append(e.out, '\\')
		e.start = false

		return
	}

	switch {
	case next == '\\':
		e.out = append(e.out, '\\')
	case next == '"' && e.inQuote:
		e.out = append(e.out, '"', '"')
	case next == '"' && e.start:
		e.out = append(e.out, '"', '"', '"')
		e.inQuote, e.synthetic = true, true
	case next == '"':
		e.out = append(e.out, '"')
	default:
		_ = e.src.UnreadByte()
		e.out = append(e.out, '\\')
	}

	e.start = false
}

func (e *escapeReader) quote() {
	switch {
	case e.synthetic:
		e.out = append(e.out, '"', '"')
	case e.start:
		e.out = append(e.out, '"')
		e.inQuote = true
	case e.inQuote:
		if nb, err := e.src.Peek(1); err == nil && nb[0] == '"' {
			_, _ = e.src.ReadByte()
			e.out = append(e.out, '"', '"')
		} else {
			e.out = append(e.out, '"')
			e.inQuote = false
		}
	default:
		e.out = append(e.out, '"')
	}

	e.start = false
}
