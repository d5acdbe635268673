package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/body-echo/pkg/camera"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(":0", camera.NewManager(camera.DefaultConfig()), nil)
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

func decode(t *testing.T, body io.Reader, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(body).Decode(v))
}

func TestStatus_StartsLoading(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var st State
	decode(t, resp.Body, &st)
	assert.Equal(t, StatusLoading, st.Status)
}

func TestStatus_ReflectsUpdates(t *testing.T) {
	s := newTestServer(t)
	s.UpdateState(func(st *State) {
		st.Mode = "HORIZONTAL"
		st.Stars = 4
	})
	s.SetStatus(StatusError, "camera unavailable")

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)

	var st State
	decode(t, resp.Body, &st)
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, "camera unavailable", st.Error)
	assert.Equal(t, "HORIZONTAL", st.Mode)
	assert.Equal(t, 4, st.Stars)

	s.SetStatus(StatusRunning, "ignored")
	assert.Empty(t, s.State().Error)
}

func TestInstructions(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/instructions", nil))
	require.NoError(t, err)

	var list []Instruction
	decode(t, resp.Body, &list)
	require.Len(t, list, 3)
	assert.Equal(t, "NEUTRAL", list[0].Mode)
	assert.Equal(t, "VERTICAL", list[2].Mode)
}

func TestCamera_GetAndUpdate(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/camera", nil))
	require.NoError(t, err)
	var cfg map[string]interface{}
	decode(t, resp.Body, &cfg)
	assert.Equal(t, true, cfg["mirror"])
	assert.Contains(t, cfg, "limits")

	req := httptest.NewRequest("POST", "/api/camera", strings.NewReader(`{"mirror":false}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.False(t, s.camera.Mirror())

	req = httptest.NewRequest("POST", "/api/camera", strings.NewReader(`{"width":5}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestCamera_NotConfigured(t *testing.T) {
	s := NewServer(":0", nil, nil)
	t.Cleanup(func() { _ = s.Shutdown() })

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/camera", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestSnapshot(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/snapshot", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)

	s.OnSnapshot = func() ([]byte, error) { return []byte{0xff, 0xd8}, nil }
	resp, err = s.App().Test(httptest.NewRequest("GET", "/api/snapshot", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, []byte{0xff, 0xd8}, body)

	s.OnSnapshot = func() ([]byte, error) { return nil, errors.New("no frame yet") }
	resp, err = s.App().Test(httptest.NewRequest("GET", "/api/snapshot", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestCanvas_Resize(t *testing.T) {
	s := newTestServer(t)

	post := func(body string) int {
		req := httptest.NewRequest("POST", "/api/canvas", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.App().Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, 503, post(`{"width":320,"height":240}`))

	var got [2]int
	s.OnResize = func(w, h int) error {
		if w < 64 || h < 64 {
			return errors.New("too small")
		}
		got = [2]int{w, h}
		return nil
	}

	assert.Equal(t, 200, post(`{"width":320,"height":240}`))
	assert.Equal(t, [2]int{320, 240}, got)
	assert.Equal(t, 320, s.State().Width)
	assert.Equal(t, 240, s.State().Height)

	assert.Equal(t, 400, post(`{"width":8,"height":8}`))
	assert.Equal(t, [2]int{320, 240}, got)
	assert.Equal(t, 400, post(`not json`))
}

func TestWS_RequiresUpgrade(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/ws/canvas", nil))
	require.NoError(t, err)
	assert.Equal(t, 426, resp.StatusCode)
}

func TestDashboardPage(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Body Echo")
	assert.Zero(t, s.CanvasViewers())
}
