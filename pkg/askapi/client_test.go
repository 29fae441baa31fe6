package askapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient(" ")
	require.ErrorContains(t, err, "endpoint is empty")
}

func TestAsk_Success(t *testing.T) {
	var got askRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	require.NoError(t, c.Ask(context.Background(), "u1", "What is a CDB?"))
	require.Equal(t, askRequest{UserID: "u1", Question: "What is a CDB?"}, got)
}

func TestAsk_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":"question too long"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	err = c.Ask(context.Background(), "u1", "x")
	require.True(t, errors.Is(err, ErrRejected))
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	require.Equal(t, "question too long", rej.Reason)
	require.Equal(t, "question rejected: question too long", err.Error())
}

func TestAsk_TransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	err = c.Ask(context.Background(), "u1", "x")
	require.ErrorContains(t, err, "decode response")
	require.False(t, errors.Is(err, ErrRejected))

	srv.Close()
	err = c.Ask(context.Background(), "u1", "x")
	require.ErrorContains(t, err, "post question")
}
