package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ezfix/portal/internal/dto"
	"github.com/ezfix/portal/internal/models"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token     string
	next      string
	refreshes int32
	fail      bool
}

func (s *staticTokens) AccessToken() string { return s.token }

func (s *staticTokens) RefreshAccess(context.Context) error {
	atomic.AddInt32(&s.refreshes, 1)
	if s.fail {
		return errors.New("refresh rejected")
	}
	s.token = s.next
	return nil
}

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestListReportsAcceptsBothShapes(t *testing.T) {
	for name, body := range map[string]string{
		"bare":    `[{"id":"r1","category":"civil","status":"pending"},{"_id":"r2","status":"fixed"}]`,
		"wrapped": `{"reports":[{"id":"r1","category":"civil","status":"pending"},{"_id":"r2","status":"fixed"}],"total":2}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/reports", r.URL.Path)
				require.NotEmpty(t, r.Header.Get("X-Request-ID"))
				require.Empty(t, r.Header.Get("Authorization"))
				io.WriteString(w, body)
			})
			got, err := c.ListReports(context.Background(), models.ScopeAll)
			require.NoError(t, err)
			require.Len(t, got, 2)
			require.Equal(t, "r2", got[1].ID)
			require.Equal(t, models.CategoryCivil, got[0].Category)
			require.Equal(t, models.StatusFixed, got[1].Status)
		})
	}
}

func TestListReportsRejectsUnknownShape(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"items":[]}`)
	})
	_, err := c.ListReports(context.Background(), models.ScopeAll)
	require.ErrorIs(t, err, ErrUnexpectedShape)
}

func TestListOwnReportsUsesStudentScope(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/reports/my-reports", r.URL.Path)
		require.Equal(t, "A19EC0042", r.URL.Query().Get("studentId"))
		io.WriteString(w, `[]`)
	})
	got, err := c.ListReports(context.Background(), models.ScopeOwn("A19EC0042"))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestNon2xxSurfacesMessage(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":true,"message":"Invalid status"}`)
	})
	c.UseTokens(&staticTokens{token: "t"})
	_, err := c.PatchReport(context.Background(), "r1", dto.ReportPatch{})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, "Invalid status", Message(err, "fallback"))
	require.False(t, IsUnreachable(err))
}

func TestNon2xxWithoutMessageFallsBack(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `<html>oops</html>`)
	})
	_, err := c.ListReports(context.Background(), models.ScopeAll)
	require.True(t, IsStatus(err, http.StatusInternalServerError))
	require.Equal(t, "Failed to load reports.", Message(err, "Failed to load reports."))
}

func TestTransportFailureIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	_, err := New(srv.URL).ListReports(context.Background(), models.ScopeAll)
	require.True(t, IsUnreachable(err))
	require.Equal(t, "generic", Message(err, "generic"))
}

func TestUnauthorizedRefreshesOnceAndRetries(t *testing.T) {
	var calls int32
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	tokens := &staticTokens{token: "stale", next: "fresh"}
	c.UseTokens(tokens)

	require.NoError(t, c.DeleteReport(context.Background(), "r1"))
	require.EqualValues(t, 1, tokens.refreshes)
	require.EqualValues(t, 2, calls)
}

func TestUnauthorizedWithFailedRefreshReturnsOriginalError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	tokens := &staticTokens{token: "stale", fail: true}
	c.UseTokens(tokens)

	err := c.DeleteReport(context.Background(), "r1")
	require.True(t, IsUnauthorized(err))
	require.EqualValues(t, 1, tokens.refreshes)
}

func TestAuthenticatedCallWithoutToken(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent")
	})
	err := c.DeleteReport(context.Background(), "r1")
	require.ErrorIs(t, err, ErrNoToken)
}

func TestPatchSendsOnlySetFields(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/reports/r1", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, map[string]interface{}{"status": "Fixed"}, body)
		w.WriteHeader(http.StatusOK)
	})
	c.UseTokens(&staticTokens{token: "t"})

	fixed := models.StatusFixed
	got, err := c.PatchReport(context.Background(), "r1", dto.ReportPatch{Status: &fixed})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestPatchDecodesEchoedReport(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"report":{"id":"r1","status":"Fixed","updatedAt":"2026-10-02T08:00:00Z"}}`)
	})
	c.UseTokens(&staticTokens{token: "t"})
	got, err := c.PatchReport(context.Background(), "r1", dto.ReportPatch{})
	require.NoError(t, err)
	require.Equal(t, models.StatusFixed, got.Status)
	require.Equal(t, 2026, got.UpdatedAt.Year())
}

func TestRefreshUsesRefreshTokenAsBearer(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/refresh", r.URL.Path)
		require.Equal(t, "Bearer rt-1", r.Header.Get("Authorization"))
		io.WriteString(w, `{"accessToken":"at-2"}`)
	})
	resp, err := c.Refresh(context.Background(), "rt-1")
	require.NoError(t, err)
	require.Equal(t, "at-2", resp.Access())
}

func TestLoginAcceptsLegacyTokenField(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req dto.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "aisyah", req.Username)
		io.WriteString(w, `{"token":"legacy","user":{"_id":"u1","username":"aisyah","role":"user"}}`)
	})
	resp, err := c.Login(context.Background(), "aisyah", "pw")
	require.NoError(t, err)
	require.Equal(t, "legacy", resp.Access())
	require.Equal(t, "u1", resp.User.Normalize().ID)
}

func TestAttachmentKeepsContentType(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/reports/r1/attachments/f1", r.URL.Path)
		require.Equal(t, "*/*", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte{0, 0, 0, 24})
	})
	m, err := c.Attachment(context.Background(), "r1", "f1")
	require.NoError(t, err)
	require.Equal(t, "video/mp4", m.ContentType)
	require.Len(t, m.Data, 4)
}

func TestCreateReportMultipart(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "B12", r.FormValue("location"))
		files := r.MultipartForm.File["attachments"]
		require.Len(t, files, 1)
		require.Equal(t, "leak.jpg", files[0].Filename)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":"r7","location":"B12","status":"Pending"}`)
	})
	got, err := c.CreateReport(context.Background(), dto.CreateReportRequest{StudentID: "s1", Location: "B12"},
		[]Upload{{Name: "leak.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}}})
	require.NoError(t, err)
	require.Equal(t, "r7", got.ID)
}
