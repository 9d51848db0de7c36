package rewards

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// PDA seed constants. These mirror the seed tuples baked into the deployed
// programs and are part of the wire contract.
var (
	poolSeed           = []byte("pool")
	poolVaultSeed      = []byte("pool-vault")
	poolSignerSeed     = []byte("pool-signer")
	positionSeed       = []byte("position")
	vaultConfigSeed    = []byte("vault-config")
	vaultSignerSeed    = []byte("vault-signer")
	profileSeed        = []byte("profile")
	registryConfigSeed = []byte("registry-config")
	escrowVaultSeed    = []byte("escrow")
	receiptSeed        = []byte("receipt")
	listingSeed        = []byte("listing")
)

// ProgramIDs holds the fixed addresses of the four on-chain programs.
type ProgramIDs struct {
	RewardsVault solana.PublicKey
	Staking      solana.PublicKey
	Escrow       solana.PublicKey
	Loyalty      solana.PublicKey
}

func (p ProgramIDs) Validate() error {
	if p.RewardsVault.IsZero() || p.Staking.IsZero() || p.Escrow.IsZero() || p.Loyalty.IsZero() {
		return fmt.Errorf("all four program ids are required")
	}
	return nil
}

// Deriver computes program-derived addresses for the settlement programs.
// Derivation is deterministic: identical seeds and program id always produce
// the same address and bump.
type Deriver struct {
	programs ProgramIDs
}

func NewDeriver(programs ProgramIDs) (*Deriver, error) {
	if err := programs.Validate(); err != nil {
		return nil, err
	}
	return &Deriver{programs: programs}, nil
}

func (d *Deriver) Programs() ProgramIDs { return d.programs }

func derive(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		// The seed design guarantees a bump exists; reaching this is a bug.
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive program address: %w", err)
	}
	return addr, bump, nil
}

// Pool derives the staking pool PDA for a stake mint.
func (d *Deriver) Pool(stakeMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([][]byte{poolSeed, stakeMint.Bytes()}, d.programs.Staking)
}

// PoolVault derives the token vault that holds staked tokens for a pool.
func (d *Deriver) PoolVault(stakeMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([][]byte{poolVaultSeed, stakeMint.Bytes()}, d.programs.Staking)
}

// PoolSigner derives the PDA that signs transfers out of the pool vault.
func (d *Deriver) PoolSigner(stakeMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([][]byte{poolSignerSeed, stakeMint.Bytes()}, d.programs.Staking)
}

// Position derives the stake position PDA for a (pool, owner) pair.
func (d *Deriver) Position(pool, owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([][]byte{positionSeed, pool.Bytes(), owner.Bytes()}, d.programs.Staking)
}

// VaultConfig derives the reward vault configuration PDA for a reward mint.
func (d *Deriver) VaultConfig(rewardMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([][]byte{vaultConfigSeed, rewardMint.Bytes()}, d.programs.RewardsVault)
}

// VaultSigner derives the PDA that acts as mint authority for a reward mint.
func (d *Deriver) VaultSigner(rewardMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([][]byte{vaultSignerSeed, rewardMint.Bytes()}, d.programs.RewardsVault)
}

// Profile derives the loyalty profile PDA for a user.
func (d *Deriver) Profile(owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([][]byte{profileSeed, owner.Bytes()}, d.programs.Loyalty)
}

// RegistryConfigAddress derives the global loyalty registry config PDA.
func (d *Deriver) RegistryConfigAddress() (solana.PublicKey, uint8, error) {
	return derive([][]byte{registryConfigSeed}, d.programs.Loyalty)
}

// Listing derives the listing PDA for (seller, nft mint, listing id).
func (d *Deriver) Listing(seller, nftMint solana.PublicKey, listingID uint64) (solana.PublicKey, uint8, error) {
	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], listingID)
	return derive([][]byte{listingSeed, seller.Bytes(), nftMint.Bytes(), id[:]}, d.programs.Escrow)
}

// EscrowVault derives the escrow vault PDA that holds a listing's deposits.
func (d *Deriver) EscrowVault(listing solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([][]byte{escrowVaultSeed, listing.Bytes()}, d.programs.Escrow)
}

// Receipt derives the immutable sale receipt PDA for a settled listing.
func (d *Deriver) Receipt(listing, buyer solana.PublicKey) (solana.PublicKey, uint8, error) {
	return derive([][]byte{receiptSeed, listing.Bytes(), buyer.Bytes()}, d.programs.Escrow)
}

// AssociatedTokenAccount derives the canonical token account for (owner, mint).
// Used as the default whenever a caller does not supply an explicit account.
func (d *Deriver) AssociatedTokenAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token account: %w", err)
	}
	return addr, nil
}

// StakingAddresses bundles the derived addresses a pool snapshot exposes.
type StakingAddresses struct {
	Pool       solana.PublicKey
	PoolVault  solana.PublicKey
	PoolSigner solana.PublicKey
	Position   *solana.PublicKey
}

// StakingAddresses derives all pool addresses for a stake mint, plus the
// position address when an owner is supplied.
func (d *Deriver) StakingAddresses(stakeMint solana.PublicKey, owner *solana.PublicKey) (StakingAddresses, error) {
	pool, _, err := d.Pool(stakeMint)
	if err != nil {
		return StakingAddresses{}, err
	}
	vault, _, err := d.PoolVault(stakeMint)
	if err != nil {
		return StakingAddresses{}, err
	}
	signer, _, err := d.PoolSigner(stakeMint)
	if err != nil {
		return StakingAddresses{}, err
	}
	out := StakingAddresses{Pool: pool, PoolVault: vault, PoolSigner: signer}
	if owner != nil {
		position, _, err := d.Position(pool, *owner)
		if err != nil {
			return StakingAddresses{}, err
		}
		out.Position = &position
	}
	return out, nil
}
