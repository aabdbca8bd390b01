package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"github.com/tidwall/jsonc"

	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge"
	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge/rows"
)

const (
	contentTypeJSON      = "application/json"
	contentTypeCBOR      = "application/cbor"
	contentTypeMultipart = "multipart/form-data"
	contentTypeDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	contentTypeZip       = "application/zip"
)

// MergeRequest is the body of a merge call in JSON or CBOR form.
// In JSON the template is base64 encoded.
type MergeRequest struct {
	Template []byte            `json:"template" cbor:"template"`
	Rows     []mailmerge.Row   `json:"rows" cbor:"rows"`
	Mapping  mailmerge.Mapping `json:"mapping,omitempty" cbor:"mapping,omitempty"`
	// Separate asks for one document per row, returned as a zip archive
	Separate bool `json:"separate,omitempty" cbor:"separate,omitempty"`

	// columns is set when rows came from an uploaded file
	columns []mailmerge.Column
}

var cborDecMode cbor.DecMode

func init() {
	var err error
	cborDecMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("server: CBOR decoder initialization failed: " + err.Error())
	}
}

// errBadRequest marks request decoding failures
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errBadRequest}, args...)...)
}

func mediaType(r *http.Request) string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return mt
}

// decodeMergeRequest reads a merge request from a JSON, CBOR or multipart body
func decodeMergeRequest(r *http.Request, maxMemory int64) (*MergeRequest, error) {
	req := &MergeRequest{}
	switch mt := mediaType(r); mt {
	case contentTypeCBOR:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, badRequest("failed to read body: %w", err)
		}
		if err := cborDecMode.Unmarshal(data, req); err != nil {
			return nil, badRequest("invalid cbor: %v", err)
		}
	case contentTypeJSON, "":
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, badRequest("failed to read body: %w", err)
		}
		if err := decodeJSON(data, req); err != nil {
			return nil, badRequest("invalid json: %v", err)
		}
	case contentTypeMultipart:
		if err := decodeMultipart(r, maxMemory, req); err != nil {
			return nil, err
		}
	default:
		return nil, badRequest("unsupported content type %q", mt)
	}

	if len(req.Template) == 0 {
		return nil, badRequest("missing template")
	}
	if r.URL.Query().Has("separate") {
		separate, err := strconv.ParseBool(r.URL.Query().Get("separate"))
		if err != nil {
			return nil, badRequest("invalid separate parameter: %v", err)
		}
		req.Separate = separate
	}
	return req, nil
}

// decodeJSON decodes JSON that may contain comments, keeping numbers exact
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	return dec.Decode(v)
}

// decodeMultipart reads the template file, the rows (file or JSON field) and the
// optional mapping field
func decodeMultipart(r *http.Request, maxMemory int64, req *MergeRequest) error {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return badRequest("invalid multipart form: %w", err)
	}

	template, _, err := formFile(r.MultipartForm, "template")
	if err != nil {
		return err
	}
	req.Template = template

	if data, header, err := formFile(r.MultipartForm, "rows"); err == nil {
		format, err := rows.FormatFromPath(header.Filename)
		if err != nil {
			return badRequest("%v", err)
		}
		table, err := rows.Read(bytes.NewReader(data), format)
		if err != nil {
			return badRequest("invalid rows: %v", err)
		}
		req.Rows = table.Rows
		req.columns = table.Columns
	} else if v := r.FormValue("rows"); v != "" {
		if err := decodeJSON([]byte(v), &req.Rows); err != nil {
			return badRequest("invalid rows field: %v", err)
		}
	}

	if v := r.FormValue("mapping"); v != "" {
		if err := decodeJSON([]byte(v), &req.Mapping); err != nil {
			return badRequest("invalid mapping field: %v", err)
		}
	}
	if v := r.FormValue("separate"); v != "" {
		separate, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest("invalid separate field: %v", err)
		}
		req.Separate = separate
	}
	return nil
}

func formFile(form *multipart.Form, field string) ([]byte, *multipart.FileHeader, error) {
	if form == nil || len(form.File[field]) == 0 {
		return nil, nil, badRequest("missing file field %q", field)
	}
	header := form.File[field][0]
	f, err := header.Open()
	if err != nil {
		return nil, nil, badRequest("failed to open %q: %v", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, badRequest("failed to read %q: %v", field, err)
	}
	return data, header, nil
}

// decodeTemplate reads a bare template body or the template field of a multipart form.
// Rows uploaded alongside are returned as well.
func decodeTemplate(r *http.Request, maxMemory int64) ([]byte, *rows.Table, error) {
	if mediaType(r) != contentTypeMultipart {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, nil, badRequest("failed to read body: %w", err)
		}
		if len(data) == 0 {
			return nil, nil, badRequest("missing template")
		}
		return data, nil, nil
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, nil, badRequest("invalid multipart form: %w", err)
	}
	template, _, err := formFile(r.MultipartForm, "template")
	if err != nil {
		return nil, nil, err
	}

	data, header, err := formFile(r.MultipartForm, "rows")
	if err != nil {
		return template, nil, nil
	}
	format, err := rows.FormatFromPath(header.Filename)
	if err != nil {
		return nil, nil, badRequest("%v", err)
	}
	table, err := rows.Read(bytes.NewReader(data), format)
	if err != nil {
		return nil, nil, badRequest("invalid rows: %v", err)
	}
	return template, table, nil
}
