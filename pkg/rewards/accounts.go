package rewards

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// On-chain account layouts. Every account is an Anchor account: an 8-byte
// discriminator (sha256("account:<Name>")[0:8]) followed by Borsh-encoded
// fields in declaration order. Field order and widths here must match the
// deployed programs byte for byte.

// ListingStatus is the marketplace sale lifecycle state.
type ListingStatus uint8

const (
	ListingActive ListingStatus = iota
	ListingPendingSettlement
	ListingSettled
	ListingCancelled
)

func (s ListingStatus) String() string {
	switch s {
	case ListingActive:
		return "active"
	case ListingPendingSettlement:
		return "pending_settlement"
	case ListingSettled:
		return "settled"
	case ListingCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// LoyaltyTier is the cumulative-points tier of a loyalty profile.
type LoyaltyTier uint8

const (
	TierBronze LoyaltyTier = iota
	TierSilver
	TierGold
	TierPlatinum
	TierDiamond
)

func (t LoyaltyTier) String() string {
	switch t {
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	case TierPlatinum:
		return "platinum"
	case TierDiamond:
		return "diamond"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// StakingPool is one per reward-bearing stake mint. RewardPerTokenStored is
// the non-decreasing high-precision accumulator, scaled by RewardScale.
type StakingPool struct {
	Bump                 uint8
	VaultBump            uint8
	SignerBump           uint8
	Authority            solana.PublicKey
	RewardVault          solana.PublicKey
	RewardMint           solana.PublicKey
	StakeMint            solana.PublicKey
	RewardRate           uint64
	TotalStaked          uint64
	RewardPerTokenStored bin.Uint128
	LastUpdateTs         int64
}

// StakePosition is one per (pool, owner) pair.
type StakePosition struct {
	Bump               uint8
	Owner              solana.PublicKey
	Pool               solana.PublicKey
	Amount             uint64
	RewardPerTokenPaid bin.Uint128
	PendingRewards     uint64
	LastStakeTs        int64
}

// VaultConfig records the only authority allowed to mint from a reward vault.
type VaultConfig struct {
	ConfigBump   uint8
	SignerBump   uint8
	Authority    solana.PublicKey
	RewardMint   solana.PublicKey
	EmissionRate uint64
}

// Listing is the marketplace sale lifecycle account. Optional fields are
// Borsh options, kept as pointers so "absent" stays distinguishable from a
// present zero value.
type Listing struct {
	Bump               uint8
	EscrowBump         uint8
	Seller             solana.PublicKey
	Buyer              *solana.PublicKey `bin:"optional"`
	Mint               solana.PublicKey
	ListingID          uint64
	PriceLamports      uint64
	CreationTs         int64
	ExpirationTs       *int64 `bin:"optional"`
	SaleTs             *int64 `bin:"optional"`
	SettlementTs       *int64 `bin:"optional"`
	Status             ListingStatus
	RoyaltyBps         uint16
	RoyaltyDestination solana.PublicKey
	TreasuryBps        uint16
	MarketplaceFeeBps  uint16
}

// EscrowVault holds deposited lamports until a sale settles or cancels.
type EscrowVault struct {
	Bump           uint8
	Listing        solana.PublicKey
	TotalDeposited uint64
}

// SaleReceipt is the immutable economic record written once per settlement.
type SaleReceipt struct {
	Bump                 uint8
	Listing              solana.PublicKey
	Buyer                solana.PublicKey
	Seller               solana.PublicKey
	AmountPaid           uint64
	SellerProceeds       uint64
	RoyaltyPaid          uint64
	TreasuryPaid         uint64
	MarketplaceFeePaid   uint64
	RewardsMinted        uint64
	LoyaltyPointsAwarded uint64
	Timestamp            int64
}

// LoyaltyProfile tracks one user's cumulative marketplace activity.
type LoyaltyProfile struct {
	Bump           uint8
	Owner          solana.PublicKey
	TotalVolume    uint64
	Points         uint64
	Tier           LoyaltyTier
	LastActivityTs int64
	Delegate       *solana.PublicKey `bin:"optional"`
}

// LoyaltyRegistryConfig is the global registry configuration. Its authority
// is the only key allowed to record activity.
type LoyaltyRegistryConfig struct {
	Bump          uint8
	Authority     solana.PublicKey
	PointsPerSol  uint64
	TotalProfiles uint32
	LastUpdatedTs int64
}

// AccountDiscriminator computes the 8-byte Anchor account discriminator.
func AccountDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

// InstructionDiscriminator computes the 8-byte Anchor instruction
// discriminator for a snake_case method name.
func InstructionDiscriminator(method string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + method))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

// DecodeAccount verifies the discriminator for the named account type and
// Borsh-decodes the remaining bytes into out.
func DecodeAccount(name string, data []byte, out interface{}) error {
	disc := AccountDiscriminator(name)
	if len(data) < len(disc) {
		return fmt.Errorf("account %s: %d bytes is too short: %w", name, len(data), ErrInvalidAccountData)
	}
	if !bytes.Equal(data[:len(disc)], disc[:]) {
		return fmt.Errorf("account %s: wrong discriminator: %w", name, ErrInvalidAccountData)
	}
	if err := bin.NewBorshDecoder(data[len(disc):]).Decode(out); err != nil {
		return fmt.Errorf("account %s: failed to decode: %w: %v", name, ErrInvalidAccountData, err)
	}
	return nil
}

// EncodeAccount produces the full on-chain byte representation, discriminator
// included. Decoding and re-encoding an account reproduces the fetched bytes.
func EncodeAccount(name string, in interface{}) ([]byte, error) {
	disc := AccountDiscriminator(name)
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	if err := bin.NewBorshEncoder(buf).Encode(in); err != nil {
		return nil, fmt.Errorf("account %s: failed to encode: %w", name, err)
	}
	return buf.Bytes(), nil
}
