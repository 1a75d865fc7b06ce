// internal/app/features/members/import.go
package members

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/dalemusser/chitfund/internal/app/system/csvutil"
	"github.com/dalemusser/chitfund/internal/app/system/htmlsanitize"
	"github.com/dalemusser/chitfund/internal/app/system/inputval"
	"github.com/dalemusser/chitfund/internal/app/system/respond"
	"github.com/dalemusser/chitfund/internal/app/system/timeouts"
	"github.com/dalemusser/chitfund/internal/domain/models"
	"go.uber.org/zap"
)

// rowInput applies the same rules as a single enrollment.
type rowInput struct {
	Name    string `validate:"required,max=200" label:"Name"`
	Phone   string `validate:"required,min=7,max=16" label:"Phone"`
	Email   string `validate:"omitempty,emailaddr" label:"Email"`
	Address string `validate:"max=500" label:"Address"`
}

// ImportedMember is one member written by an import.
type ImportedMember struct {
	Line int    `json:"line"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ImportResult reports every line of an import.
type ImportResult struct {
	Created []ImportedMember   `json:"created"`
	Failed  []csvutil.RowError `json:"failed"`
}

// HandleImport enrolls every row of a CSV (Name, Phone, Email, Address) in
// the chit named by ?chitId. The file is either the "file" field of a
// multipart form or the raw text/csv body. Nothing is written when any row
// is malformed or the chit lacks seats for all rows; after that each row is
// enrolled on its own and failures are reported per line.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	chitID, err := inputval.ObjectID("chitId", q.Get("chitId"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	slots := 1
	if s := q.Get("slots"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 100 {
			respond.Error(w, r, h.Log, apierr.Validation("Invalid slots.", map[string]string{"slots": "must be between 1 and 100"}))
			return
		}
		slots = n
	}

	body, closeBody, err := csvBody(w, r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	defer closeBody()

	parsed, err := csvutil.ParseMemberCSV(body, csvutil.DefaultParseOptions())
	if err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.Is(err, csvutil.ErrTooManyRows):
			respond.Error(w, r, h.Log, apierr.Validation(fmt.Sprintf("The file has more than %d rows.", csvutil.MaxRows), nil))
		case errors.As(err, &mbe):
			respond.Error(w, r, h.Log, apierr.Validation("The file is too large.", nil))
		default:
			respond.Error(w, r, h.Log, apierr.Validation("The file could not be read as CSV.", nil))
		}
		return
	}
	rowErrs := parsed.Errors
	for _, row := range parsed.Rows {
		if err := inputval.Validate(rowInput{Name: row.Name, Phone: row.Phone, Email: row.Email, Address: row.Address}).Err(); err != nil {
			rowErrs = append(rowErrs, csvutil.RowError{Line: row.Line, Name: row.Name, Phone: row.Phone, Reason: apierr.From(err).Message})
		}
	}
	if len(rowErrs) > 0 {
		respond.ErrorWithData(w, r, h.Log,
			apierr.Validation(fmt.Sprintf("Upload rejected: %d invalid rows.", len(rowErrs)), nil),
			ImportResult{Created: []ImportedMember{}, Failed: rowErrs})
		return
	}
	if len(parsed.Rows) == 0 {
		respond.Error(w, r, h.Log, apierr.Validation("The file has no member rows.", nil))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "members.import")
	defer cancel()

	chit, err := h.Chits.GetByID(ctx, chitID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if free := chit.MembersLimit - chit.EnrolledCount; free < len(parsed.Rows) {
		respond.Error(w, r, h.Log, apierr.Conflict(
			fmt.Sprintf("Chit %s has %d free seats; the file has %d members.", chit.Name, max(free, 0), len(parsed.Rows))))
		return
	}

	res := ImportResult{Created: []ImportedMember{}, Failed: []csvutil.RowError{}}
	joined := h.now()
	for _, row := range parsed.Rows {
		m, err := h.enroll(ctx, r, models.Member{
			Name:    htmlsanitize.Text(row.Name),
			Phone:   row.Phone,
			Email:   row.Email,
			Address: htmlsanitize.Text(row.Address),
			Chits:   []models.ChitAssignment{{ChitID: chitID, Slots: slots, JoinedAt: joined}},
		})
		if err != nil {
			res.Failed = append(res.Failed, csvutil.RowError{Line: row.Line, Name: row.Name, Phone: row.Phone, Reason: apierr.From(err).Message})
			continue
		}
		res.Created = append(res.Created, ImportedMember{Line: row.Line, ID: m.ID.Hex(), Name: m.Name})
	}

	h.Log.Info("member import finished",
		zap.String("chit_id", chitID.Hex()),
		zap.Int("created", len(res.Created)),
		zap.Int("failed", len(res.Failed)))

	if len(res.Created) == 0 {
		respond.ErrorWithData(w, r, h.Log, apierr.Conflict("No members were imported."), res)
		return
	}
	respond.Created(w, fmt.Sprintf("Imported %d members.", len(res.Created)), res)
}

// csvBody returns the uploaded file, capped at csvutil.MaxUploadSize.
func csvBody(w http.ResponseWriter, r *http.Request) (io.Reader, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, csvutil.MaxUploadSize)
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(csvutil.MaxUploadSize); err != nil {
			return nil, nil, apierr.Validation("The upload could not be read.", nil)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, nil, apierr.Validation("Attach the CSV as the \"file\" field.", map[string]string{"file": "required"})
		}
		return f, func() { _ = f.Close() }, nil
	case "text/csv", "text/plain":
		return r.Body, func() {}, nil
	default:
		return nil, nil, apierr.Validation("Send the CSV as multipart/form-data or text/csv.", nil)
	}
}
