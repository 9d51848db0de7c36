package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"

	"github.com/cloutmarket/settlement/pkg/rewards"
)

// Handler serves the settlement REST API on top of the composer.
type Handler struct {
	log      *slog.Logger
	composer *rewards.Composer
}

func New(log *slog.Logger, composer *rewards.Composer) *Handler {
	return &Handler{log: log, composer: composer}
}

// Routes mounts the API. Transaction-building POSTs go through the per-IP
// rate limiter; the read-only snapshot does not.
func (h *Handler) Routes(limiter *RateLimiter) chi.Router {
	r := chi.NewRouter()
	r.Get("/staking/{stakeMint}", h.StakingSnapshot)
	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(RateLimitMiddleware(limiter))
		}
		r.Post("/staking/transactions/stake", h.Stake)
		r.Post("/staking/transactions/unstake", h.Unstake)
		r.Post("/staking/transactions/harvest", h.Harvest)
		r.Post("/loyalty/transactions/record", h.RecordLoyalty)
		r.Post("/market/transactions/settle", h.Settle)
	})
	return r
}

func parsePubkey(field, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, fmt.Errorf("%s is required: %w", field, rewards.ErrInvalidAddress)
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s %q: %w", field, value, rewards.ErrInvalidAddress)
	}
	return key, nil
}

func parseOptionalPubkey(field, value string) (*solana.PublicKey, error) {
	if value == "" {
		return nil, nil
	}
	key, err := parsePubkey(field, value)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// parseAmount parses a decimal-string token amount. Amounts travel as
// strings end to end; floats would corrupt values above 2^53.
func parseAmount(field, value string) (uint64, error) {
	if value == "" {
		return 0, fmt.Errorf("%s is required: %w", field, rewards.ErrInvalidAmount)
	}
	amount, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, value, rewards.ErrInvalidAmount)
	}
	return amount, nil
}

func decodeBody(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

type poolView struct {
	Authority            string `json:"authority"`
	RewardVault          string `json:"rewardVault"`
	RewardMint           string `json:"rewardMint"`
	StakeMint            string `json:"stakeMint"`
	RewardRate           string `json:"rewardRate"`
	TotalStaked          string `json:"totalStaked"`
	RewardPerTokenStored string `json:"rewardPerTokenStored"`
	LastUpdateTs         int64  `json:"lastUpdateTs"`
}

type positionView struct {
	Owner              string `json:"owner"`
	Amount             string `json:"amount"`
	RewardPerTokenPaid string `json:"rewardPerTokenPaid"`
	PendingRewards     string `json:"pendingRewards"`
	LastStakeTs        int64  `json:"lastStakeTs"`
}

type derivedView struct {
	Pool       string  `json:"pool"`
	PoolVault  string  `json:"poolVault"`
	PoolSigner string  `json:"poolSigner"`
	Position   *string `json:"position,omitempty"`
}

type stakingSnapshotResponse struct {
	Pool     poolView      `json:"pool"`
	Derived  derivedView   `json:"derived"`
	Position *positionView `json:"position"`
}

// StakingSnapshot returns the pool state for a stake mint, its derived
// addresses, and the caller's position with rewards projected to now.
func (h *Handler) StakingSnapshot(w http.ResponseWriter, r *http.Request) {
	stakeMint, err := parsePubkey("stakeMint", chi.URLParam(r, "stakeMint"))
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	owner, err := parseOptionalPubkey("owner", r.URL.Query().Get("owner"))
	if err != nil {
		writeError(h.log, w, err)
		return
	}

	pool, _, err := h.composer.FetchStakingPool(r.Context(), stakeMint)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	addrs, err := h.composer.Deriver().StakingAddresses(stakeMint, owner)
	if err != nil {
		writeError(h.log, w, err)
		return
	}

	resp := stakingSnapshotResponse{
		Pool: poolView{
			Authority:            pool.Authority.String(),
			RewardVault:          pool.RewardVault.String(),
			RewardMint:           pool.RewardMint.String(),
			StakeMint:            pool.StakeMint.String(),
			RewardRate:           strconv.FormatUint(pool.RewardRate, 10),
			TotalStaked:          strconv.FormatUint(pool.TotalStaked, 10),
			RewardPerTokenStored: pool.RewardPerTokenStored.BigInt().String(),
			LastUpdateTs:         pool.LastUpdateTs,
		},
		Derived: derivedView{
			Pool:       addrs.Pool.String(),
			PoolVault:  addrs.PoolVault.String(),
			PoolSigner: addrs.PoolSigner.String(),
		},
	}
	if addrs.Position != nil {
		s := addrs.Position.String()
		resp.Derived.Position = &s
	}

	if owner != nil {
		position, err := h.composer.FetchStakePosition(r.Context(), addrs.Pool, *owner)
		if err != nil {
			writeError(h.log, w, err)
			return
		}
		if position != nil {
			pending, err := h.composer.Accountant().PendingRewards(pool, position)
			if err != nil {
				writeError(h.log, w, err)
				return
			}
			resp.Position = &positionView{
				Owner:              position.Owner.String(),
				Amount:             strconv.FormatUint(position.Amount, 10),
				RewardPerTokenPaid: position.RewardPerTokenPaid.BigInt().String(),
				PendingRewards:     strconv.FormatUint(pending, 10),
				LastStakeTs:        position.LastStakeTs,
			}
		}
	}

	writeJSON(h.log, w, http.StatusOK, resp)
}

type transactionResponse struct {
	Transaction    string   `json:"transaction"`
	PartialSigners []string `json:"partialSigners,omitempty"`
}

func (h *Handler) writeBuilt(w http.ResponseWriter, built *rewards.BuiltTransaction) {
	writeJSON(h.log, w, http.StatusOK, transactionResponse{
		Transaction:    built.Base64,
		PartialSigners: built.PartialSigners,
	})
}

type stakeRequest struct {
	StakeMint          string `json:"stakeMint"`
	Staker             string `json:"staker"`
	Amount             string `json:"amount"`
	StakerTokenAccount string `json:"stakerTokenAccount,omitempty"`
}

func (h *Handler) Stake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(h.log, w, err)
		return
	}
	stakeMint, err := parsePubkey("stakeMint", req.StakeMint)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	staker, err := parsePubkey("staker", req.Staker)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	tokenAccount, err := parseOptionalPubkey("stakerTokenAccount", req.StakerTokenAccount)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeError(h.log, w, err)
		return
	}

	built, err := h.composer.BuildStake(r.Context(), stakeMint, staker, tokenAccount, amount)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	h.writeBuilt(w, built)
}

type unstakeRequest struct {
	StakeMint               string `json:"stakeMint"`
	Staker                  string `json:"staker"`
	Amount                  string `json:"amount"`
	DestinationTokenAccount string `json:"destinationTokenAccount,omitempty"`
}

func (h *Handler) Unstake(w http.ResponseWriter, r *http.Request) {
	var req unstakeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(h.log, w, err)
		return
	}
	stakeMint, err := parsePubkey("stakeMint", req.StakeMint)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	staker, err := parsePubkey("staker", req.Staker)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	tokenAccount, err := parseOptionalPubkey("destinationTokenAccount", req.DestinationTokenAccount)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeError(h.log, w, err)
		return
	}

	built, err := h.composer.BuildUnstake(r.Context(), stakeMint, staker, tokenAccount, amount)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	h.writeBuilt(w, built)
}

type harvestRequest struct {
	StakeMint             string `json:"stakeMint"`
	Staker                string `json:"staker"`
	RecipientTokenAccount string `json:"recipientTokenAccount,omitempty"`
}

func (h *Handler) Harvest(w http.ResponseWriter, r *http.Request) {
	var req harvestRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(h.log, w, err)
		return
	}
	stakeMint, err := parsePubkey("stakeMint", req.StakeMint)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	staker, err := parsePubkey("staker", req.Staker)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	tokenAccount, err := parseOptionalPubkey("recipientTokenAccount", req.RecipientTokenAccount)
	if err != nil {
		writeError(h.log, w, err)
		return
	}

	built, err := h.composer.BuildHarvest(r.Context(), stakeMint, staker, tokenAccount)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	h.writeBuilt(w, built)
}
