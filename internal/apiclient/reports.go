package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ezfix/portal/internal/dto"
	"github.com/ezfix/portal/internal/models"
)

// ListReports fetches every report in scope with a single GET.
func (c *Client) ListReports(ctx context.Context, scope models.Scope) ([]models.Report, error) {
	req := request{method: http.MethodGet, path: "/reports", auth: c.hasToken()}
	if !scope.All() {
		req.path = "/reports/my-reports"
		req.query = url.Values{"studentId": {scope.StudentID}}
	}
	data, _, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeReportList(data)
}

// decodeReportList accepts a bare array or an object with a "reports" key.
func decodeReportList(data []byte) ([]models.Report, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnexpectedShape)
	}

	var payloads []dto.ReportPayload
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &payloads); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
	case '{':
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &keys); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
		raw, ok := keys["reports"]
		if !ok {
			return nil, fmt.Errorf("%w: object without reports", ErrUnexpectedShape)
		}
		if err := json.Unmarshal(raw, &payloads); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedShape, trimmed[:1])
	}

	out := make([]models.Report, 0, len(payloads))
	for i := range payloads {
		out = append(out, payloads[i].Normalize())
	}
	return out, nil
}

// decodeReport accepts a bare report or {report: {...}}. An empty body
// yields nil, nil.
func decodeReport(data []byte) (*models.Report, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var env dto.ReportEnvelope
	if err := json.Unmarshal(trimmed, &env); err == nil && env.Report != nil {
		r := env.Report.Normalize()
		return &r, nil
	}
	var p dto.ReportPayload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	r := p.Normalize()
	if r.ID == "" {
		// Acknowledgements such as {"message": "..."} carry no report.
		return nil, nil
	}
	return &r, nil
}

func (c *Client) CreateReport(ctx context.Context, in dto.CreateReportRequest, files []Upload) (*models.Report, error) {
	var (
		req request
		err error
	)
	if len(files) == 0 {
		req, err = jsonRequest(http.MethodPost, "/reports", in)
	} else {
		fields := map[string]string{
			"studentId":   in.StudentID,
			"title":       in.Title,
			"location":    in.Location,
			"roomNo":      in.RoomNo,
			"category":    in.Category,
			"description": in.Description,
		}
		if in.ReportedBy != "" {
			fields["reportedBy"] = in.ReportedBy
		}
		for i := range files {
			if files[i].Field == "" {
				files[i].Field = "attachments"
			}
		}
		req, err = multipartRequest(http.MethodPost, "/reports", fields, files)
	}
	if err != nil {
		return nil, err
	}
	req.auth = c.hasToken()

	data, _, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeReport(data)
}

// PatchReport sends a partial update. The returned report is nil when the
// backend acknowledged without echoing the record.
func (c *Client) PatchReport(ctx context.Context, id string, patch dto.ReportPatch) (*models.Report, error) {
	req, err := jsonRequest(http.MethodPatch, "/reports/"+url.PathEscape(id), patch)
	if err != nil {
		return nil, err
	}
	req.auth = true
	data, _, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeReport(data)
}

func (c *Client) DeleteReport(ctx context.Context, id string) error {
	_, _, err := c.do(ctx, request{method: http.MethodDelete, path: "/reports/" + url.PathEscape(id), auth: true})
	return err
}

func (c *Client) Attachment(ctx context.Context, reportID, fileID string) (*Media, error) {
	path := "/reports/" + url.PathEscape(reportID) + "/attachments/" + url.PathEscape(fileID)
	return c.media(ctx, path, c.hasToken())
}
