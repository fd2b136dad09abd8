package shop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/webshop/internal/cache"
	"finitefield.org/webshop/internal/rpc"
)

func TestSettingsCachesValues(t *testing.T) {
	backend := newStubCaller()
	backend.results[rpc.MethodGetSingleValue] = "Stripe"
	settings := NewSettings(backend, cache.NewMemory(), time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		value, err := settings.String(ctx, DocTypeWebshopSettings, FieldPaymentGatewayAccount)
		require.NoError(t, err)
		require.Equal(t, "Stripe", value)
	}
	calls := backend.callsTo(rpc.MethodGetSingleValue)
	require.Len(t, calls, 1)
	require.Equal(t, DocTypeWebshopSettings, calls[0].args["doctype"])
	require.Equal(t, FieldPaymentGatewayAccount, calls[0].args["field"])
}

func TestSettingsReadSurvivesCancelledCaller(t *testing.T) {
	backend := newStubCaller()
	backend.results[rpc.MethodGetSingleValue] = 24
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	backend.hook = func(string) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
	}
	settings := NewSettings(backend, cache.NewMemory(), time.Minute)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := settings.Int(firstCtx, DocTypeWebshopSettings, FieldProductsPerPage, 20)
		firstErr <- err
	}()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("settings read never reached the backend")
	}

	second := make(chan int, 1)
	secondErr := make(chan error, 1)
	go func() {
		n, err := settings.Int(context.Background(), DocTypeWebshopSettings, FieldProductsPerPage, 20)
		second <- n
		secondErr <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	select {
	case n := <-second:
		require.NoError(t, <-secondErr)
		require.Equal(t, 24, n)
	case <-time.After(time.Second):
		t.Fatal("second settings read never finished")
	}
	require.Len(t, backend.callsTo(rpc.MethodGetSingleValue), 1)

	n, err := settings.Int(context.Background(), DocTypeWebshopSettings, FieldProductsPerPage, 20)
	require.NoError(t, err)
	require.Equal(t, 24, n)
	require.Len(t, backend.callsTo(rpc.MethodGetSingleValue), 1)
}

func TestSettingsNullValues(t *testing.T) {
	backend := newStubCaller()
	settings := NewSettings(backend, cache.NewMemory(), time.Minute)

	value, err := settings.String(context.Background(), DocTypeWebshopSettings, FieldPaymentGatewayAccount)
	require.NoError(t, err)
	require.Empty(t, value)

	n, err := settings.Int(context.Background(), DocTypeWebshopSettings, FieldProductsPerPage, 20)
	require.NoError(t, err)
	require.Equal(t, 20, n)
}

func TestSettingsBackendError(t *testing.T) {
	backend := newStubCaller()
	backend.errs[rpc.MethodGetSingleValue] = errors.New("down")
	settings := NewSettings(backend, nil, time.Minute)

	n, err := settings.Int(context.Background(), DocTypeWebshopSettings, FieldProductsPerPage, 20)
	require.Error(t, err)
	require.Equal(t, 20, n)
}
