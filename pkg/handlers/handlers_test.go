package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/cloutmarket/settlement/pkg/handlers"
	"github.com/cloutmarket/settlement/pkg/rewards"
	settletesting "github.com/cloutmarket/settlement/utils/pkg/testing"
)

func testProgramIDs(t *testing.T) rewards.ProgramIDs {
	t.Helper()
	return rewards.ProgramIDs{
		RewardsVault: solana.MustPublicKeyFromBase58("YBSSnuhAgYq6SN1yofjNt8XyLW7B3mQQQFUBF8gwH6J"),
		Staking:      solana.MustPublicKeyFromBase58("4mUWjVdfVWP9TT5wT9x2P2Uhd8NQgzWXXMGKM8xxmM9E"),
		Escrow:       solana.MustPublicKeyFromBase58("8um9wXkGXVuxs9jVCpt3DrzkmMAiLDKrKkaHSLyPqPcX"),
		Loyalty:      solana.MustPublicKeyFromBase58("GgfPQkNHuNbSw6cyDpzHeTLbTxSA2ZPUa2F1ZascnJur"),
	}
}

type fakeChain struct {
	accounts map[solana.PublicKey][]byte
}

func (f *fakeChain) GetAccountInfo(_ context.Context, address solana.PublicKey) ([]byte, error) {
	if data, ok := f.accounts[address]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("account %s: %w", address, rewards.ErrAccountNotFound)
}

func (f *fakeChain) GetLatestBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash(solana.NewWallet().PublicKey()), nil
}

func newTestHandler(t *testing.T, accounts map[solana.PublicKey][]byte, authority *solana.PrivateKey) http.Handler {
	t.Helper()
	programs := testProgramIDs(t)
	registry, err := rewards.NewRegistry(programs)
	require.NoError(t, err)
	composer, err := rewards.NewComposer(rewards.ComposerConfig{
		Logger:    settletesting.NewLogger(),
		Clock:     clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0)),
		Chain:     &fakeChain{accounts: accounts},
		Registry:  registry,
		Programs:  programs,
		Authority: authority,
	})
	require.NoError(t, err)
	return handlers.New(settletesting.NewLogger(), composer).Routes(nil)
}

func mustEncode(t *testing.T, name string, in interface{}) []byte {
	t.Helper()
	data, err := rewards.EncodeAccount(name, in)
	require.NoError(t, err)
	return data
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func TestSettlement_Handlers_StakingSnapshot(t *testing.T) {
	t.Parallel()

	programs := testProgramIDs(t)
	deriver, err := rewards.NewDeriver(programs)
	require.NoError(t, err)

	stakeMint := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	pool, _, err := deriver.Pool(stakeMint)
	require.NoError(t, err)
	position, _, err := deriver.Position(pool, owner)
	require.NoError(t, err)

	now := int64(1_700_000_000)
	accounts := map[solana.PublicKey][]byte{
		pool: mustEncode(t, "StakingPool", &rewards.StakingPool{
			StakeMint:    stakeMint,
			RewardRate:   100,
			TotalStaked:  1000,
			LastUpdateTs: now - 10,
		}),
		position: mustEncode(t, "StakePosition", &rewards.StakePosition{
			Owner:  owner,
			Pool:   pool,
			Amount: 500,
		}),
	}
	h := newTestHandler(t, accounts, nil)

	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/staking/%s?owner=%s", stakeMint, owner), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Pool struct {
			TotalStaked string `json:"totalStaked"`
			RewardRate  string `json:"rewardRate"`
		} `json:"pool"`
		Derived struct {
			Pool     string  `json:"pool"`
			Position *string `json:"position"`
		} `json:"derived"`
		Position *struct {
			Amount         string `json:"amount"`
			PendingRewards string `json:"pendingRewards"`
		} `json:"position"`
	}
	decodeJSON(t, rec, &resp)
	require.Equal(t, "1000", resp.Pool.TotalStaked)
	require.Equal(t, "100", resp.Pool.RewardRate)
	require.Equal(t, pool.String(), resp.Derived.Pool)
	require.NotNil(t, resp.Derived.Position)
	require.NotNil(t, resp.Position)
	require.Equal(t, "500", resp.Position.Amount)
	// 10s at rate 100 over 1000 staked, 500 held.
	require.Equal(t, "500", resp.Position.PendingRewards)
}

func TestSettlement_Handlers_StakingSnapshot_NoPosition(t *testing.T) {
	t.Parallel()

	programs := testProgramIDs(t)
	deriver, err := rewards.NewDeriver(programs)
	require.NoError(t, err)

	stakeMint := solana.NewWallet().PublicKey()
	pool, _, err := deriver.Pool(stakeMint)
	require.NoError(t, err)
	accounts := map[solana.PublicKey][]byte{
		pool: mustEncode(t, "StakingPool", &rewards.StakingPool{StakeMint: stakeMint}),
	}
	h := newTestHandler(t, accounts, nil)

	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/staking/%s?owner=%s", stakeMint, solana.NewWallet().PublicKey()), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Position *json.RawMessage `json:"position"`
	}
	decodeJSON(t, rec, &resp)
	require.Nil(t, resp.Position)
}

func TestSettlement_Handlers_StakingSnapshot_InvalidMint(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/staking/not-a-key", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rec, &resp)
	require.Equal(t, "invalid_address", resp.Error)
}

func TestSettlement_Handlers_Stake(t *testing.T) {
	t.Parallel()

	programs := testProgramIDs(t)
	deriver, err := rewards.NewDeriver(programs)
	require.NoError(t, err)

	stakeMint := solana.NewWallet().PublicKey()
	staker := solana.NewWallet().PublicKey()
	pool, _, err := deriver.Pool(stakeMint)
	require.NoError(t, err)
	accounts := map[solana.PublicKey][]byte{
		pool: mustEncode(t, "StakingPool", &rewards.StakingPool{StakeMint: stakeMint}),
	}
	h := newTestHandler(t, accounts, nil)

	body := fmt.Sprintf(`{"stakeMint":%q,"staker":%q,"amount":"250"}`, stakeMint, staker)
	req := httptest.NewRequest(http.MethodPost, "/staking/transactions/stake", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Transaction    string   `json:"transaction"`
		PartialSigners []string `json:"partialSigners"`
	}
	decodeJSON(t, rec, &resp)
	require.NotEmpty(t, resp.Transaction)
	require.Empty(t, resp.PartialSigners)
}

func TestSettlement_Handlers_Stake_BadAmount(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil, nil)
	body := fmt.Sprintf(`{"stakeMint":%q,"staker":%q,"amount":"12.5"}`,
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	req := httptest.NewRequest(http.MethodPost, "/staking/transactions/stake", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rec, &resp)
	require.Equal(t, "invalid_amount", resp.Error)
}

func TestSettlement_Handlers_Stake_MalformedBody(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/staking/transactions/stake", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rec, &resp)
	require.Equal(t, "invalid_request", resp.Error)
}

func TestSettlement_Handlers_Settle_BadRewardAmount(t *testing.T) {
	t.Parallel()

	authority := solana.NewWallet().PrivateKey
	h := newTestHandler(t, nil, &authority)

	body := fmt.Sprintf(`{"listing":%q,"seller":%q,"buyer":%q,"rewardMint":%q,"treasuryDestination":%q,"marketplaceFeeDestination":%q,"rewardAmount":"1e9"}`,
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	req := httptest.NewRequest(http.MethodPost, "/market/transactions/settle", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rec, &resp)
	require.Equal(t, "invalid_amount", resp.Error)
}

func TestSettlement_Handlers_Harvest_NoAuthority(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil, nil)
	body := fmt.Sprintf(`{"stakeMint":%q,"staker":%q}`,
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	req := httptest.NewRequest(http.MethodPost, "/staking/transactions/harvest", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rec, &resp)
	require.Equal(t, "authority_unavailable", resp.Error)
}

func TestSettlement_Handlers_RecordLoyalty_ProfileCrossCheck(t *testing.T) {
	t.Parallel()

	authority := solana.NewWallet().PrivateKey
	h := newTestHandler(t, nil, &authority)

	body := fmt.Sprintf(`{"actor":%q,"volumeLamports":"100","profile":%q}`,
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	req := httptest.NewRequest(http.MethodPost, "/loyalty/transactions/record", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettlement_Handlers_Settle_NotPending(t *testing.T) {
	t.Parallel()

	programs := testProgramIDs(t)
	deriver, err := rewards.NewDeriver(programs)
	require.NoError(t, err)

	authority := solana.NewWallet().PrivateKey
	seller := solana.NewWallet().PublicKey()
	buyer := solana.NewWallet().PublicKey()
	nftMint := solana.NewWallet().PublicKey()
	rewardMint := solana.NewWallet().PublicKey()

	listingAddr, _, err := deriver.Listing(seller, nftMint, 1)
	require.NoError(t, err)
	escrowAddr, _, err := deriver.EscrowVault(listingAddr)
	require.NoError(t, err)
	vaultConfig, _, err := deriver.VaultConfig(rewardMint)
	require.NoError(t, err)
	registryConfig, _, err := deriver.RegistryConfigAddress()
	require.NoError(t, err)

	accounts := map[solana.PublicKey][]byte{
		listingAddr: mustEncode(t, "Listing", &rewards.Listing{
			Seller:    seller,
			Buyer:     &buyer,
			Mint:      nftMint,
			ListingID: 1,
			Status:    rewards.ListingSettled,
		}),
		escrowAddr: mustEncode(t, "EscrowVault", &rewards.EscrowVault{
			Listing:        listingAddr,
			TotalDeposited: 1,
		}),
		vaultConfig: mustEncode(t, "VaultConfig", &rewards.VaultConfig{
			Authority:  authority.PublicKey(),
			RewardMint: rewardMint,
		}),
		registryConfig: mustEncode(t, "RegistryConfig", &rewards.LoyaltyRegistryConfig{
			Authority: authority.PublicKey(),
		}),
	}
	h := newTestHandler(t, accounts, &authority)

	body := fmt.Sprintf(`{"listing":%q,"seller":%q,"buyer":%q,"rewardMint":%q,"treasuryDestination":%q,"marketplaceFeeDestination":%q}`,
		listingAddr, seller, buyer, rewardMint,
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	req := httptest.NewRequest(http.MethodPost, "/market/transactions/settle", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rec, &resp)
	require.Equal(t, "invalid_state", resp.Error)
}

func TestSettlement_Handlers_RateLimit(t *testing.T) {
	t.Parallel()

	limiter := handlers.NewRateLimiter(rate.Every(time.Hour), 1)
	limited := handlers.RateLimitMiddleware(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	limited.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	limited.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.NotEmpty(t, second.Header().Get("Retry-After"))
}
