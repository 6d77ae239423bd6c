package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stillcast/stillcast-api/internal/archive"
	"github.com/stillcast/stillcast-api/internal/convert"
	"github.com/stillcast/stillcast-api/internal/media"
	"github.com/stillcast/stillcast-api/internal/workspace"
)

// stubMuxer implements media.Muxer with scriptable behavior.
type stubMuxer struct {
	available bool
	muxFn     func(ctx context.Context, spec media.MuxSpec) error
}

func (s *stubMuxer) Available() bool {
	return s.available
}

func (s *stubMuxer) Mux(ctx context.Context, spec media.MuxSpec) error {
	if s.muxFn != nil {
		return s.muxFn(ctx, spec)
	}
	return nil
}

// succeedingMuxer writes the given bytes to the output path and succeeds.
func succeedingMuxer(output []byte) *stubMuxer {
	return &stubMuxer{
		available: true,
		muxFn: func(_ context.Context, spec media.MuxSpec) error {
			return os.WriteFile(spec.OutputPath, output, 0600)
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestRouter wires a real pipeline with the given muxer behind the full
// router (middleware included).
func newTestRouter(t *testing.T, muxer media.Muxer, opts ...HandlerOption) http.Handler {
	t.Helper()
	ws, err := workspace.NewManager(t.TempDir())
	require.NoError(t, err)

	svc := convert.NewService(ws, muxer, archive.Noop{}, convert.NewMemoryRepository(), testLogger())
	h := NewHandlers(svc, testLogger(), opts...)
	return NewRouter(h, testLogger(), DefaultConfig())
}

// multipartRequest builds a POST /convert request. Empty filenames skip
// that part; empty bitrate skips the field.
func multipartRequest(t *testing.T, imageName, audioName, bitrate string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if imageName != "" {
		part, err := w.CreateFormFile("image", imageName)
		require.NoError(t, err)
		_, err = part.Write([]byte("image bytes"))
		require.NoError(t, err)
	}
	if audioName != "" {
		part, err := w.CreateFormFile("audio", audioName)
		require.NoError(t, err)
		_, err = part.Write([]byte("audio bytes"))
		require.NoError(t, err)
	}
	if bitrate != "" {
		require.NoError(t, w.WriteField("bitrate", bitrate))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/convert", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	t.Run("encoder available", func(t *testing.T) {
		router := newTestRouter(t, &stubMuxer{available: true})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp HealthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "ok", resp.Status)
		assert.True(t, resp.FFmpegAvailable)
	})

	t.Run("encoder missing", func(t *testing.T) {
		router := newTestRouter(t, &stubMuxer{available: false})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp HealthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.False(t, resp.FFmpegAvailable)
	})
}

func TestConvert_Success(t *testing.T) {
	router := newTestRouter(t, succeedingMuxer([]byte("MP4BYTES")))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "cover.png", "track.mp3", "256k"))

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="output.mp4"`, rec.Header().Get("Content-Disposition"))
	assert.NotEmpty(t, rec.Header().Get("X-Job-Id"))
	assert.Equal(t, "MP4BYTES", rec.Body.String())
}

func TestConvert_DefaultBitrate(t *testing.T) {
	var got media.Bitrate
	muxer := &stubMuxer{
		available: true,
		muxFn: func(_ context.Context, spec media.MuxSpec) error {
			got = spec.Bitrate
			return os.WriteFile(spec.OutputPath, []byte("v"), 0600)
		},
	}
	router := newTestRouter(t, muxer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "cover.png", "track.mp3", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, media.DefaultBitrate, got)
}

func TestConvert_InvalidBitrate(t *testing.T) {
	router := newTestRouter(t, succeedingMuxer([]byte("v")))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "cover.png", "track.mp3", "999k"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
}

func TestConvert_MissingUploads(t *testing.T) {
	cases := []struct {
		name      string
		imageName string
		audioName string
	}{
		{"missing image", "", "track.mp3"},
		{"missing audio", "cover.png", ""},
		{"missing both", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(t, succeedingMuxer([]byte("v")))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, multipartRequest(t, tc.imageName, tc.audioName, "192k"))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, string(convert.FailureMissingInput), resp.Code)
			assert.Equal(t, convert.MissingInputMessage, resp.Error)
		})
	}
}

func TestConvert_InvalidExtension(t *testing.T) {
	cases := []struct {
		name      string
		imageName string
		audioName string
	}{
		{"gif image", "anim.gif", "track.mp3"},
		{"wav audio", "cover.png", "track.wav"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(t, succeedingMuxer([]byte("v")))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, multipartRequest(t, tc.imageName, tc.audioName, "192k"))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, string(convert.FailureInvalidExtension), decodeError(t, rec).Code)
		})
	}
}

func TestConvert_ToolUnavailable(t *testing.T) {
	router := newTestRouter(t, &stubMuxer{available: false})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "cover.png", "track.mp3", "192k"))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, string(convert.FailureToolUnavailable), resp.Code)
	assert.Equal(t, convert.ToolNotFoundMessage, resp.Error)
}

func TestConvert_EncoderFailure(t *testing.T) {
	muxer := &stubMuxer{
		available: true,
		muxFn: func(_ context.Context, _ media.MuxSpec) error {
			return &media.MuxError{Stderr: "Invalid data found when processing input", Err: fmt.Errorf("exit status 1")}
		},
	}
	router := newTestRouter(t, muxer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "cover.png", "track.mp3", "192k"))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, string(convert.FailureConversionFailed), resp.Code)
	assert.Contains(t, resp.Error, "Invalid data found when processing input")
	assert.NotEmpty(t, resp.JobID)
}

func TestConvert_UploadTooLarge(t *testing.T) {
	router := newTestRouter(t, succeedingMuxer([]byte("v")), WithMaxUploadBytes(16))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "cover.png", "track.mp3", "192k"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_FORM", decodeError(t, rec).Code)
}

func TestJobs(t *testing.T) {
	router := newTestRouter(t, succeedingMuxer([]byte("MP4BYTES")))

	// Run one conversion so a record exists.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "cover.png", "track.mp3", "192k"))
	require.Equal(t, http.StatusOK, rec.Code)
	jobID := rec.Header().Get("X-Job-Id")
	require.NotEmpty(t, jobID)

	t.Run("list includes the record", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var records []JobRecordResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&records))
		require.Len(t, records, 1)
		assert.Equal(t, jobID, records[0].ID)
		assert.Equal(t, string(convert.StatusCompleted), records[0].Status)
		assert.Equal(t, int64(len("MP4BYTES")), records[0].OutputSize)
	})

	t.Run("get by id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+jobID, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var record JobRecordResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&record))
		assert.Equal(t, jobID, record.ID)
		assert.Equal(t, convert.SuccessMessage, record.Message)
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/unknown", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "JOB_NOT_FOUND", decodeError(t, rec).Code)
	})

	t.Run("delete then 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/jobs/"+jobID, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+jobID, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestConvert_FailureIsRecorded(t *testing.T) {
	router := newTestRouter(t, &stubMuxer{
		available: true,
		muxFn: func(_ context.Context, _ media.MuxSpec) error {
			return &media.MuxError{Stderr: "broken input", Err: fmt.Errorf("exit status 1")}
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "cover.png", "track.mp3", "192k"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	jobID := decodeError(t, rec).JobID
	require.NotEmpty(t, jobID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+jobID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var record JobRecordResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&record))
	assert.Equal(t, string(convert.StatusFailed), record.Status)
	assert.Equal(t, string(convert.FailureConversionFailed), record.Kind)
	assert.Contains(t, record.Message, "broken input")
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	router := newTestRouter(t, &stubMuxer{available: true})

	req := httptest.NewRequest(http.MethodOptions, "/convert", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	wrapped := RecoveryMiddleware(testLogger())(panicking)

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
