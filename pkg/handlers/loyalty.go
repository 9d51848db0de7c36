package handlers

import (
	"fmt"
	"net/http"

	"github.com/cloutmarket/settlement/pkg/rewards"
)

type recordLoyaltyRequest struct {
	Actor          string `json:"actor"`
	VolumeLamports string `json:"volumeLamports"`
	BonusPoints    string `json:"bonusPoints,omitempty"`
	// Profile and RegistryConfig are optional cross-checks. All addresses
	// are derived server-side; a supplied value that disagrees with the
	// derivation is rejected rather than trusted.
	Profile        string `json:"profile,omitempty"`
	RegistryConfig string `json:"registryConfig,omitempty"`
}

// RecordLoyalty builds a record_activity transaction crediting the actor's
// loyalty profile for off-chain settled volume.
func (h *Handler) RecordLoyalty(w http.ResponseWriter, r *http.Request) {
	var req recordLoyaltyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(h.log, w, err)
		return
	}
	actor, err := parsePubkey("actor", req.Actor)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	volume, err := parseAmount("volumeLamports", req.VolumeLamports)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	var bonus uint64
	if req.BonusPoints != "" {
		bonus, err = parseAmount("bonusPoints", req.BonusPoints)
		if err != nil {
			writeError(h.log, w, err)
			return
		}
	}

	deriver := h.composer.Deriver()
	if req.Profile != "" {
		supplied, err := parsePubkey("profile", req.Profile)
		if err != nil {
			writeError(h.log, w, err)
			return
		}
		derived, _, err := deriver.Profile(actor)
		if err != nil {
			writeError(h.log, w, err)
			return
		}
		if !supplied.Equals(derived) {
			writeError(h.log, w, fmt.Errorf("profile %s does not belong to actor %s: %w",
				supplied, actor, rewards.ErrInvalidAddress))
			return
		}
	}
	if req.RegistryConfig != "" {
		supplied, err := parsePubkey("registryConfig", req.RegistryConfig)
		if err != nil {
			writeError(h.log, w, err)
			return
		}
		derived, _, err := deriver.RegistryConfigAddress()
		if err != nil {
			writeError(h.log, w, err)
			return
		}
		if !supplied.Equals(derived) {
			writeError(h.log, w, fmt.Errorf("registryConfig %s is not the registry config: %w",
				supplied, rewards.ErrInvalidAddress))
			return
		}
	}

	built, err := h.composer.BuildRecordLoyalty(r.Context(), actor, volume, bonus)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	h.writeBuilt(w, built)
}
