package handlers

import (
	"net/http"

	"github.com/cloutmarket/settlement/pkg/rewards"
)

type settleRequest struct {
	Listing                   string `json:"listing"`
	Seller                    string `json:"seller"`
	Buyer                     string `json:"buyer"`
	RewardMint                string `json:"rewardMint"`
	TreasuryDestination       string `json:"treasuryDestination"`
	MarketplaceFeeDestination string `json:"marketplaceFeeDestination"`
	BuyerRewardAccount        string `json:"buyerRewardAccount,omitempty"`
	// Decimal strings; both default to zero when omitted.
	RewardAmount       string `json:"rewardAmount,omitempty"`
	LoyaltyBonusPoints string `json:"loyaltyBonusPoints,omitempty"`
}

// Settle builds the atomic settle_sale transaction for a pending listing.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(h.log, w, err)
		return
	}

	listing, err := parsePubkey("listing", req.Listing)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	seller, err := parsePubkey("seller", req.Seller)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	buyer, err := parsePubkey("buyer", req.Buyer)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	rewardMint, err := parsePubkey("rewardMint", req.RewardMint)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	treasury, err := parsePubkey("treasuryDestination", req.TreasuryDestination)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	marketplaceFee, err := parsePubkey("marketplaceFeeDestination", req.MarketplaceFeeDestination)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	buyerReward, err := parseOptionalPubkey("buyerRewardAccount", req.BuyerRewardAccount)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	var rewardAmount, bonusPoints uint64
	if req.RewardAmount != "" {
		rewardAmount, err = parseAmount("rewardAmount", req.RewardAmount)
		if err != nil {
			writeError(h.log, w, err)
			return
		}
	}
	if req.LoyaltyBonusPoints != "" {
		bonusPoints, err = parseAmount("loyaltyBonusPoints", req.LoyaltyBonusPoints)
		if err != nil {
			writeError(h.log, w, err)
			return
		}
	}

	built, err := h.composer.BuildSettlement(r.Context(), rewards.SaleContext{
		Listing:                   listing,
		Seller:                    seller,
		Buyer:                     buyer,
		RewardMint:                rewardMint,
		TreasuryDestination:       treasury,
		MarketplaceFeeDestination: marketplaceFee,
		BuyerRewardAccount:        buyerReward,
		RewardAmount:              rewardAmount,
		LoyaltyBonusPoints:        bonusPoints,
	})
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	h.writeBuilt(w, built)
}
