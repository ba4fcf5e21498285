package engine

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/myelin/internal/claim"
)

func TestHTTP_Call(t *testing.T) {
	var gotModule string
	var gotReq Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotModule = r.Header.Get(ModuleHeader)
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotReq)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":"42.0","primary":"291","amount":"12345.67","codes":[{"code":"00","severity":"info"}]}`))
	}))
	defer srv.Close()

	e := NewHTTP(srv.URL, time.Second)
	resp, err := e.Call(context.Background(), Request{ClaimID: "IP-1001", Module: claim.MSDRG, Family: claim.Grouper, Payload: map[string]string{"x": "y"}})
	require.NoError(t, err)

	assert.Equal(t, "MSDRG", gotModule)
	assert.Equal(t, "IP-1001", gotReq.ClaimID)
	assert.Equal(t, "291", resp.Primary)
	require.NotNil(t, resp.Amount)
	assert.Equal(t, "12345.67", resp.Amount.String())
	require.Len(t, resp.Codes, 1)
	assert.Equal(t, SeverityInfo, resp.Codes[0].Severity)
}

func TestHTTP_Non2xx(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "grouper offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL, time.Second).Call(context.Background(), Request{Module: claim.MSDRG})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grouper offline")
	assert.Equal(t, 1, calls, "engine calls are not retried")
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next Engine) Engine {
			return Func(func(ctx context.Context, req Request) (*Response, error) {
				order = append(order, name)
				return next.Call(ctx, req)
			})
		}
	}
	base := Func(func(ctx context.Context, req Request) (*Response, error) {
		order = append(order, "engine")
		return &Response{}, nil
	})
	e := Chain(base, tag("outer"), tag("inner"), WithLogging(zerolog.Nop()))
	_, err := e.Call(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "engine"}, order)
}

func TestExternalEngineError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&ExternalEngineError{ClaimID: "C1", Module: claim.IPPS, Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "IPPS")
}

func TestRegistry_ModulesCanonicalOrder(t *testing.T) {
	r := NewRegistry()
	noop := Func(func(context.Context, Request) (*Response, error) { return &Response{}, nil })
	r.Register(claim.IPPS, noop)
	r.Register(claim.MCE, noop)
	r.Register(claim.MSDRG, noop)
	assert.Equal(t, []claim.Module{claim.MCE, claim.MSDRG, claim.IPPS}, r.Modules())
	_, ok := r.Lookup(claim.OPPS)
	assert.False(t, ok)
}
