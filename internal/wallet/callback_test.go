package wallet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestCallbackServerDeliversResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	linker, _ := newTestLinker(&captureOpener{})
	server := NewCallbackServer(linker, "/home/test", nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/home/test?type=sign_tx&status=200&requestId=withdraw&rawTxs=0xabcd", nil)
	server.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	resp, err := linker.WaitForSignedTxs(context.Background(), "withdraw")
	require.NoError(t, err)
	require.Len(t, resp.RawTxs, 1)
	require.Equal(t, []byte{0xab, 0xcd}, resp.RawTxs[0])
}

func TestCallbackServerRejectsMalformed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	linker, _ := newTestLinker(&captureOpener{})
	server := NewCallbackServer(linker, "", nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, DefaultCallbackPath+"?type=sign_tx&status=200", nil)
	server.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
