// internal/app/system/csvutil/members.go
package csvutil

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dalemusser/chitfund/internal/app/system/normalize"
)

// ErrTooManyRows is returned when the file has more data rows than allowed.
var ErrTooManyRows = errors.New("csv has too many rows")

// MemberRow is one normalized member line: Name, Phone, Email, Address.
type MemberRow struct {
	Line    int    `json:"line"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// RowError describes why one line was rejected.
type RowError struct {
	Line   int    `json:"line"`
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Reason string `json:"reason"`
}

func (e RowError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// ParseOptions bounds a parse.
type ParseOptions struct {
	MaxRows int
}

func DefaultParseOptions() ParseOptions {
	return ParseOptions{MaxRows: MaxRows}
}

// ParseResult holds the rows that passed structural checks and the errors
// for those that did not.
type ParseResult struct {
	Rows   []MemberRow
	Errors []RowError
}

func (r *ParseResult) HasErrors() bool { return len(r.Errors) > 0 }

// ParseMemberCSV reads all rows from r, skips a header if present and
// checks each row has a name and a phone number. Phones repeated within the
// file are reported on their second occurrence. It never writes to a DB;
// it's safe to call before any mutations.
func ParseMemberCSV(r io.Reader, opts ParseOptions) (*ParseResult, error) {
	if opts.MaxRows <= 0 {
		opts.MaxRows = MaxRows
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	res := &ParseResult{}
	seenPhone := make(map[string]int)
	first := true
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				res.Errors = append(res.Errors, RowError{Line: pe.StartLine, Reason: pe.Err.Error()})
				continue
			}
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		if first {
			first = false
			rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
			if isHeader(rec) {
				continue
			}
		}

		row := toRow(line, rec)
		if row.Name == "" && row.Phone == "" && row.Email == "" && row.Address == "" {
			continue
		}
		if len(res.Rows)+len(res.Errors) >= opts.MaxRows {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, opts.MaxRows)
		}

		switch {
		case row.Name == "":
			res.Errors = append(res.Errors, RowError{Line: line, Phone: row.Phone, Reason: "missing name"})
		case row.Phone == "":
			res.Errors = append(res.Errors, RowError{Line: line, Name: row.Name, Reason: "missing phone"})
		case seenPhone[row.Phone] != 0:
			res.Errors = append(res.Errors, RowError{Line: line, Name: row.Name, Phone: row.Phone,
				Reason: fmt.Sprintf("phone repeats line %d", seenPhone[row.Phone])})
		default:
			seenPhone[row.Phone] = line
			res.Rows = append(res.Rows, row)
		}
	}
	return res, nil
}

func isHeader(rec []string) bool {
	if len(rec) < 2 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(rec[0]))
	second := strings.ToLower(strings.TrimSpace(rec[1]))
	return (first == "name" || first == "full name") && (second == "phone" || second == "mobile")
}

func toRow(line int, rec []string) MemberRow {
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	return MemberRow{
		Line:    line,
		Name:    normalize.Name(field(0)),
		Phone:   normalize.Phone(field(1)),
		Email:   normalize.Email(field(2)),
		Address: field(3),
	}
}
