package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		want    Kind
	}{
		{"unauthorized", http.StatusUnauthorized, "", KindAuth},
		{"forbidden", http.StatusForbidden, "", KindAuth},
		{"internal error", http.StatusInternalServerError, "", KindUnavailable},
		{"bad gateway", http.StatusBadGateway, "", KindUnavailable},
		{"conflict", http.StatusConflict, "analysis already in progress", KindBusiness},
		{"unprocessable", http.StatusUnprocessableEntity, "bad tag", KindBusiness},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyStatus(tt.status, tt.message)
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, tt.message, err.ServerMessage)
		})
	}
}

func TestClassifyTransportTimeout(t *testing.T) {
	err := classifyTransport(context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, err.Kind)
	assert.True(t, IsTimeout(err))
}

func TestClassifyTransportConnectivity(t *testing.T) {
	err := classifyTransport(errors.New("dial tcp: no route to host"))
	assert.Equal(t, KindConnectivity, err.Kind)
}

func TestMessageSelection(t *testing.T) {
	assert.Contains(t, (&Error{Kind: KindUnavailable}).Message(), "unavailable")
	assert.Contains(t, (&Error{Kind: KindTimeout}).Message(), "too long")
	assert.Contains(t, (&Error{Kind: KindConnectivity}).Message(), "connection")
	assert.Equal(t, "Authentication required.", (&Error{Kind: KindAuth}).Message())

	// Business failures surface the server's own message when present.
	withMsg := &Error{Kind: KindBusiness, ServerMessage: "tag does not exist"}
	assert.Equal(t, "tag does not exist", withMsg.Message())
	withoutMsg := &Error{Kind: KindBusiness}
	assert.Contains(t, withoutMsg.Message(), "rejected")
}

func TestIsAuth(t *testing.T) {
	assert.True(t, IsAuth(&Error{Kind: KindAuth}))
	assert.False(t, IsAuth(&Error{Kind: KindBusiness}))
	assert.False(t, IsAuth(errors.New("plain")))
}
