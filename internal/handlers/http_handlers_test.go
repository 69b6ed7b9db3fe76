package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giveaway/internal/imaging"
	"giveaway/internal/services"
	"giveaway/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	lg := logger.Init("handlers_test", false, false, io.Discard)
	code := m.Run()
	lg.Close()
	os.Exit(code)
}

func newTestRouter(t *testing.T, winnerCap int, catalog []string) (*gin.Engine, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "giveaway.db"), winnerCap)
	require.NoError(t, err)
	_, err = st.SeedPrizes(catalog)
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("img", 0o755))
	for _, name := range catalog {
		img := image.NewRGBA(image.Rect(0, 0, 24, 24))
		for y := 0; y < 24; y++ {
			for x := 0; x < 24; x++ {
				img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 0, A: 255})
			}
		}
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, img))
		require.NoError(t, afero.WriteFile(fs, "img/"+name, buf.Bytes(), 0o644))
	}
	lib, err := imaging.NewLibrary(fs, "img", "hidden_img")
	require.NoError(t, err)

	router := gin.New()
	NewHTTPHandler(services.NewClaimArbiter(st, lib), 10).RegisterRoutes(router)
	return router, st
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterParticipantEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, 3, nil)

	w := doJSON(t, router, http.MethodPost, "/participants", gin.H{"id": 101, "name": "Alice"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"created": true}`, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/participants", gin.H{"id": 101, "name": "Alice"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"created": false}`, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/participants", gin.H{"name": "NoID"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClaimEndpointOutcomes(t *testing.T) {
	router, st := newTestRouter(t, 1, []string{"a.png"})
	for _, id := range []int64{101, 102} {
		_, err := st.RegisterParticipant(id, "user")
		require.NoError(t, err)
	}
	prize, err := st.PickUnclaimedPrize()
	require.NoError(t, err)
	require.NotNil(t, prize)
	claimPath := fmt.Sprintf("/prizes/%d/claims", prize.PrizeID)

	w := doJSON(t, router, http.MethodPost, claimPath, gin.H{"participant_id": 101})
	assert.Equal(t, http.StatusOK, w.Code)
	var awarded struct {
		Result       string `json:"result"`
		Image        []byte `json:"image"`
		AllCollected bool   `json:"all_collected"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &awarded))
	assert.Equal(t, "awarded", awarded.Result)
	assert.NotEmpty(t, awarded.Image)
	assert.True(t, awarded.AllCollected, "the catalog has a single prize")

	w = doJSON(t, router, http.MethodPost, claimPath, gin.H{"participant_id": 101})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "already_claimed")

	w = doJSON(t, router, http.MethodPost, claimPath, gin.H{"participant_id": 102})
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Contains(t, w.Body.String(), "exhausted")

	w = doJSON(t, router, http.MethodPost, "/prizes/999999/claims", gin.H{"participant_id": 101})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPost, "/prizes/abc/claims", gin.H{"participant_id": 101})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, claimPath, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeaderboardEndpoint(t *testing.T) {
	router, st := newTestRouter(t, 3, []string{"a.png", "b.png"})
	_, err := st.RegisterParticipant(101, "Alice")
	require.NoError(t, err)
	prize, err := st.PickUnclaimedPrize()
	require.NoError(t, err)
	require.NotNil(t, prize)
	_, err = st.AttemptClaim(101, prize.PrizeID)
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodGet, "/leaderboard", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alice")
}

func TestProgressAndCollageEndpoints(t *testing.T) {
	router, st := newTestRouter(t, 3, []string{"a.png", "b.png"})
	_, err := st.RegisterParticipant(101, "Alice")
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodGet, "/participants/101/progress", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"won": 0, "total": 2}`, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/participants/101/collage", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	_, err = png.Decode(bytes.NewReader(w.Body.Bytes()))
	assert.NoError(t, err)
}
