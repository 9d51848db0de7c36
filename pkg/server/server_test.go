package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/cloutmarket/settlement/pkg/rewards"
	"github.com/cloutmarket/settlement/pkg/server"
	settletesting "github.com/cloutmarket/settlement/utils/pkg/testing"
)

type fakeChain struct{}

func (fakeChain) GetAccountInfo(_ context.Context, address solana.PublicKey) ([]byte, error) {
	return nil, fmt.Errorf("account %s: %w", address, rewards.ErrAccountNotFound)
}

func (fakeChain) GetLatestBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{}, nil
}

func newTestServer(t *testing.T) (*server.Server, *rewards.Registry) {
	t.Helper()
	programs := rewards.ProgramIDs{
		RewardsVault: solana.NewWallet().PublicKey(),
		Staking:      solana.NewWallet().PublicKey(),
		Escrow:       solana.NewWallet().PublicKey(),
		Loyalty:      solana.NewWallet().PublicKey(),
	}
	registry, err := rewards.NewRegistry(programs)
	require.NoError(t, err)
	composer, err := rewards.NewComposer(rewards.ComposerConfig{
		Logger:   settletesting.NewLogger(),
		Chain:    fakeChain{},
		Registry: registry,
		Programs: programs,
	})
	require.NoError(t, err)

	srv, err := server.New(server.Config{
		Logger:     settletesting.NewLogger(),
		ListenAddr: "127.0.0.1:0",
		VersionInfo: server.VersionInfo{
			Version: "test",
			Commit:  "abc123",
		},
		Composer: composer,
		Registry: registry,
	})
	require.NoError(t, err)
	return srv, registry
}

func TestSettlement_Server_Healthz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSettlement_Server_ReadyzTracksRegistry(t *testing.T) {
	t.Parallel()

	srv, registry := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, registry.Load())

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSettlement_Server_Version(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var info server.VersionInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	require.Equal(t, "test", info.Version)
	require.Equal(t, "abc123", info.Commit)
}

func TestSettlement_Server_Metrics(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSettlement_Server_APIMounted(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rewards/staking/not-a-key", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettlement_Server_ConfigValidation(t *testing.T) {
	t.Parallel()

	_, err := server.New(server.Config{})
	require.Error(t, err)
}
