package rewards

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/cloutmarket/settlement/pkg/metrics"
)

// ComposerConfig wires the composer's collaborators. Authority is optional;
// builders that need it fail with ErrMissingAuthority when it is absent.
type ComposerConfig struct {
	Logger    *slog.Logger
	Clock     clockwork.Clock
	Chain     ChainReader
	Registry  *Registry
	Programs  ProgramIDs
	Authority *solana.PrivateKey
}

func (c *ComposerConfig) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.Chain == nil {
		return fmt.Errorf("chain reader is required")
	}
	if c.Registry == nil {
		return fmt.Errorf("program registry is required")
	}
	if err := c.Programs.Validate(); err != nil {
		return err
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// BuiltTransaction is a composed, partially-signed transaction ready to hand
// to the user-facing signer. PartialSigners names the roles already signed.
type BuiltTransaction struct {
	Transaction    *solana.Transaction
	Base64         string
	PartialSigners []string
}

// Composer builds unsigned or partially-signed transactions against the four
// settlement programs. It is stateless and safe for concurrent use.
type Composer struct {
	log        *slog.Logger
	clock      clockwork.Clock
	chain      ChainReader
	registry   *Registry
	deriver    *Deriver
	accountant *Accountant
	authority  *solana.PrivateKey
}

func NewComposer(cfg ComposerConfig) (*Composer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid composer config: %w", err)
	}
	deriver, err := NewDeriver(cfg.Programs)
	if err != nil {
		return nil, err
	}
	return &Composer{
		log:        cfg.Logger,
		clock:      cfg.Clock,
		chain:      cfg.Chain,
		registry:   cfg.Registry,
		deriver:    deriver,
		accountant: NewAccountant(cfg.Clock),
		authority:  cfg.Authority,
	}, nil
}

func (c *Composer) Deriver() *Deriver       { return c.deriver }
func (c *Composer) Accountant() *Accountant { return c.accountant }

// HasAuthority reports whether a local settlement key is configured.
func (c *Composer) HasAuthority() bool { return c.authority != nil }

func (c *Composer) requireAuthority() (solana.PublicKey, error) {
	if c.authority == nil {
		return solana.PublicKey{}, ErrMissingAuthority
	}
	return c.authority.PublicKey(), nil
}

// FetchStakingPool fetches and decodes the pool account for a stake mint.
func (c *Composer) FetchStakingPool(ctx context.Context, stakeMint solana.PublicKey) (*StakingPool, solana.PublicKey, error) {
	pool, _, err := c.deriver.Pool(stakeMint)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	data, err := c.chain.GetAccountInfo(ctx, pool)
	if err != nil {
		return nil, pool, fmt.Errorf("failed to fetch staking pool: %w", err)
	}
	var out StakingPool
	if err := DecodeAccount("StakingPool", data, &out); err != nil {
		return nil, pool, err
	}
	return &out, pool, nil
}

// FetchStakePosition fetches the position for (pool, owner). An absent
// position is a normal read result and returns nil without error.
func (c *Composer) FetchStakePosition(ctx context.Context, pool, owner solana.PublicKey) (*StakePosition, error) {
	position, _, err := c.deriver.Position(pool, owner)
	if err != nil {
		return nil, err
	}
	data, err := c.chain.GetAccountInfo(ctx, position)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch stake position: %w", err)
	}
	var out StakePosition
	if err := DecodeAccount("StakePosition", data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Composer) fetchVaultConfig(ctx context.Context, address solana.PublicKey) (*VaultConfig, error) {
	data, err := c.chain.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vault config: %w", err)
	}
	var out VaultConfig
	if err := DecodeAccount("VaultConfig", data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Composer) fetchRegistryConfig(ctx context.Context, address solana.PublicKey) (*LoyaltyRegistryConfig, error) {
	data, err := c.chain.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch registry config: %w", err)
	}
	var out LoyaltyRegistryConfig
	if err := DecodeAccount("RegistryConfig", data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Composer) fetchListing(ctx context.Context, address solana.PublicKey) (*Listing, error) {
	data, err := c.chain.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing: %w", err)
	}
	var out Listing
	if err := DecodeAccount("Listing", data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Composer) fetchEscrowVault(ctx context.Context, address solana.PublicKey) (*EscrowVault, error) {
	data, err := c.chain.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch escrow vault: %w", err)
	}
	var out EscrowVault
	if err := DecodeAccount("EscrowVault", data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

// instructionData concatenates a discriminator with Borsh-encoded args.
func instructionData(disc [8]byte, args interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	if args != nil {
		if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
			return nil, fmt.Errorf("failed to encode instruction args: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// finalize fetches a fresh blockhash, assembles the transaction with the
// given fee payer, signs with the local authority where required, and
// serializes to base64 without requiring signature completeness.
func (c *Composer) finalize(ctx context.Context, instructions []solana.Instruction, feePayer solana.PublicKey, partialSigners []string) (*BuiltTransaction, error) {
	blockhash, err := c.chain.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(feePayer))
	if err != nil {
		return nil, fmt.Errorf("failed to assemble transaction: %w", err)
	}
	_, err = tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if c.authority != nil && c.authority.PublicKey().Equals(key) {
			return c.authority
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to partially sign transaction: %w", err)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return &BuiltTransaction{
		Transaction:    tx,
		Base64:         base64.StdEncoding.EncodeToString(raw),
		PartialSigners: partialSigners,
	}, nil
}

type stakeArgs struct {
	Amount uint64
}

type recordActivityArgs struct {
	VolumeLamports uint64
	BonusPoints    uint64
}

type settleSaleArgs struct {
	RewardAmount       uint64
	LoyaltyBonusPoints uint64
}

// BuildStake composes a stake transaction. stakerTokenAccount defaults to
// the staker's associated token account for the stake mint. The staker is
// the sole signer and fee payer; no partial signatures are attached.
func (c *Composer) BuildStake(ctx context.Context, stakeMint, staker solana.PublicKey, stakerTokenAccount *solana.PublicKey, amount uint64) (*BuiltTransaction, error) {
	done := c.observe("stake")
	out, err := c.buildStake(ctx, stakeMint, staker, stakerTokenAccount, amount)
	done(err)
	return out, err
}

func (c *Composer) buildStake(ctx context.Context, stakeMint, staker solana.PublicKey, stakerTokenAccount *solana.PublicKey, amount uint64) (*BuiltTransaction, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	handle, err := c.registry.Program(ProgramStaking)
	if err != nil {
		return nil, err
	}
	if _, _, err := c.FetchStakingPool(ctx, stakeMint); err != nil {
		return nil, err
	}
	addrs, err := c.deriver.StakingAddresses(stakeMint, &staker)
	if err != nil {
		return nil, err
	}
	tokenAccount, err := c.resolveTokenAccount(stakerTokenAccount, staker, stakeMint)
	if err != nil {
		return nil, err
	}

	disc, err := handle.Instruction("stake")
	if err != nil {
		return nil, err
	}
	data, err := instructionData(disc, stakeArgs{Amount: amount})
	if err != nil {
		return nil, err
	}
	ix := solana.NewInstruction(handle.ID, solana.AccountMetaSlice{
		solana.NewAccountMeta(addrs.Pool, true, false),
		solana.NewAccountMeta(addrs.PoolVault, true, false),
		solana.NewAccountMeta(*addrs.Position, true, false),
		solana.NewAccountMeta(staker, true, true),
		solana.NewAccountMeta(tokenAccount, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}, data)

	return c.finalize(ctx, []solana.Instruction{ix}, staker, nil)
}

// BuildUnstake composes an unstake transaction. The position must already
// exist; destinationTokenAccount defaults to the staker's associated token
// account for the stake mint.
func (c *Composer) BuildUnstake(ctx context.Context, stakeMint, staker solana.PublicKey, destinationTokenAccount *solana.PublicKey, amount uint64) (*BuiltTransaction, error) {
	done := c.observe("unstake")
	out, err := c.buildUnstake(ctx, stakeMint, staker, destinationTokenAccount, amount)
	done(err)
	return out, err
}

func (c *Composer) buildUnstake(ctx context.Context, stakeMint, staker solana.PublicKey, destinationTokenAccount *solana.PublicKey, amount uint64) (*BuiltTransaction, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	handle, err := c.registry.Program(ProgramStaking)
	if err != nil {
		return nil, err
	}
	_, pool, err := c.FetchStakingPool(ctx, stakeMint)
	if err != nil {
		return nil, err
	}
	position, err := c.FetchStakePosition(ctx, pool, staker)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, fmt.Errorf("no stake position for %s: %w", staker, ErrAccountNotFound)
	}
	addrs, err := c.deriver.StakingAddresses(stakeMint, &staker)
	if err != nil {
		return nil, err
	}
	tokenAccount, err := c.resolveTokenAccount(destinationTokenAccount, staker, stakeMint)
	if err != nil {
		return nil, err
	}

	disc, err := handle.Instruction("unstake")
	if err != nil {
		return nil, err
	}
	data, err := instructionData(disc, stakeArgs{Amount: amount})
	if err != nil {
		return nil, err
	}
	ix := solana.NewInstruction(handle.ID, solana.AccountMetaSlice{
		solana.NewAccountMeta(addrs.Pool, true, false),
		solana.NewAccountMeta(addrs.PoolVault, true, false),
		solana.NewAccountMeta(*addrs.Position, true, false),
		solana.NewAccountMeta(staker, true, true),
		solana.NewAccountMeta(tokenAccount, true, false),
		solana.NewAccountMeta(addrs.PoolSigner, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}, data)

	return c.finalize(ctx, []solana.Instruction{ix}, staker, nil)
}

// BuildHarvest composes a reward harvest. Harvest mints from the reward
// vault, so it requires the local authority: the check happens before any
// network call, and the transaction comes back partially signed.
func (c *Composer) BuildHarvest(ctx context.Context, stakeMint, staker solana.PublicKey, recipientTokenAccount *solana.PublicKey) (*BuiltTransaction, error) {
	done := c.observe("harvest")
	out, err := c.buildHarvest(ctx, stakeMint, staker, recipientTokenAccount)
	done(err)
	return out, err
}

func (c *Composer) buildHarvest(ctx context.Context, stakeMint, staker solana.PublicKey, recipientTokenAccount *solana.PublicKey) (*BuiltTransaction, error) {
	held, err := c.requireAuthority()
	if err != nil {
		return nil, err
	}
	stakingHandle, err := c.registry.Program(ProgramStaking)
	if err != nil {
		return nil, err
	}
	rewardsHandle, err := c.registry.Program(ProgramRewardsVault)
	if err != nil {
		return nil, err
	}

	pool, poolAddr, err := c.FetchStakingPool(ctx, stakeMint)
	if err != nil {
		return nil, err
	}
	vault, err := c.fetchVaultConfig(ctx, pool.RewardVault)
	if err != nil {
		return nil, err
	}
	if err := AssertAuthority("reward vault", vault.Authority, held); err != nil {
		return nil, err
	}
	// The pool authority co-signs harvest; a diverged pool authority would
	// otherwise leave its signature slot empty.
	if err := AssertAuthority("staking pool", pool.Authority, held); err != nil {
		return nil, err
	}
	if !vault.RewardMint.Equals(pool.RewardMint) {
		return nil, fmt.Errorf("pool reward mint %s does not match vault reward mint %s: %w",
			pool.RewardMint, vault.RewardMint, ErrInvalidState)
	}

	position, _, err := c.deriver.Position(poolAddr, staker)
	if err != nil {
		return nil, err
	}
	vaultSigner, _, err := c.deriver.VaultSigner(pool.RewardMint)
	if err != nil {
		return nil, err
	}
	poolSigner, _, err := c.deriver.PoolSigner(stakeMint)
	if err != nil {
		return nil, err
	}
	recipient, err := c.resolveTokenAccount(recipientTokenAccount, staker, pool.RewardMint)
	if err != nil {
		return nil, err
	}

	disc, err := stakingHandle.Instruction("harvest")
	if err != nil {
		return nil, err
	}
	data, err := instructionData(disc, nil)
	if err != nil {
		return nil, err
	}
	ix := solana.NewInstruction(stakingHandle.ID, solana.AccountMetaSlice{
		solana.NewAccountMeta(poolAddr, true, false),
		solana.NewAccountMeta(position, true, false),
		solana.NewAccountMeta(staker, false, true),
		solana.NewAccountMeta(pool.RewardVault, true, false),
		solana.NewAccountMeta(vaultSigner, false, false),
		solana.NewAccountMeta(pool.RewardMint, true, false),
		solana.NewAccountMeta(recipient, true, false),
		solana.NewAccountMeta(pool.Authority, true, true),
		solana.NewAccountMeta(poolSigner, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(rewardsHandle.ID, false, false),
	}, data)

	return c.finalize(ctx, []solana.Instruction{ix}, staker, []string{"authority"})
}

// BuildRecordLoyalty composes a record_activity transaction crediting the
// actor's loyalty profile. Requires the local authority, which must match
// the registry authority on-chain. The actor pays the fee.
func (c *Composer) BuildRecordLoyalty(ctx context.Context, actor solana.PublicKey, volumeLamports, bonusPoints uint64) (*BuiltTransaction, error) {
	done := c.observe("record_loyalty")
	out, err := c.buildRecordLoyalty(ctx, actor, volumeLamports, bonusPoints)
	done(err)
	return out, err
}

func (c *Composer) buildRecordLoyalty(ctx context.Context, actor solana.PublicKey, volumeLamports, bonusPoints uint64) (*BuiltTransaction, error) {
	held, err := c.requireAuthority()
	if err != nil {
		return nil, err
	}
	handle, err := c.registry.Program(ProgramLoyalty)
	if err != nil {
		return nil, err
	}
	registryConfig, _, err := c.deriver.RegistryConfigAddress()
	if err != nil {
		return nil, err
	}
	config, err := c.fetchRegistryConfig(ctx, registryConfig)
	if err != nil {
		return nil, err
	}
	if err := AssertAuthority("loyalty registry", config.Authority, held); err != nil {
		return nil, err
	}
	profile, _, err := c.deriver.Profile(actor)
	if err != nil {
		return nil, err
	}

	disc, err := handle.Instruction("record_activity")
	if err != nil {
		return nil, err
	}
	data, err := instructionData(disc, recordActivityArgs{
		VolumeLamports: volumeLamports,
		BonusPoints:    bonusPoints,
	})
	if err != nil {
		return nil, err
	}
	ix := solana.NewInstruction(handle.ID, solana.AccountMetaSlice{
		solana.NewAccountMeta(profile, true, false),
		solana.NewAccountMeta(registryConfig, false, false),
		solana.NewAccountMeta(held, false, true),
		solana.NewAccountMeta(actor, false, false),
	}, data)

	return c.finalize(ctx, []solana.Instruction{ix}, actor, []string{"authority"})
}

// SaleContext identifies a pending sale to settle. The listing address is
// the entity identifier; every other program-derived address comes from it.
type SaleContext struct {
	Listing                   solana.PublicKey
	Seller                    solana.PublicKey
	Buyer                     solana.PublicKey
	RewardMint                solana.PublicKey
	TreasuryDestination       solana.PublicKey
	MarketplaceFeeDestination solana.PublicKey
	// BuyerRewardAccount defaults to the buyer's associated token account
	// for the reward mint.
	BuyerRewardAccount *solana.PublicKey
	// RewardAmount is minted to the buyer and LoyaltyBonusPoints credited
	// on top of the volume-based points. Both may be zero.
	RewardAmount       uint64
	LoyaltyBonusPoints uint64
}

// BuildSettlement composes the atomic settle_sale transaction: escrow payout
// splits, reward mint to the buyer, and loyalty credit, all in one
// instruction across three programs. All pre-flight state is fetched
// concurrently and validated before anything is composed.
func (c *Composer) BuildSettlement(ctx context.Context, sale SaleContext) (*BuiltTransaction, error) {
	done := c.observe("settle")
	out, err := c.buildSettlement(ctx, sale)
	done(err)
	return out, err
}

func (c *Composer) buildSettlement(ctx context.Context, sale SaleContext) (*BuiltTransaction, error) {
	held, err := c.requireAuthority()
	if err != nil {
		return nil, err
	}
	escrowHandle, err := c.registry.Program(ProgramEscrow)
	if err != nil {
		return nil, err
	}
	rewardsHandle, err := c.registry.Program(ProgramRewardsVault)
	if err != nil {
		return nil, err
	}
	loyaltyHandle, err := c.registry.Program(ProgramLoyalty)
	if err != nil {
		return nil, err
	}

	escrowVault, _, err := c.deriver.EscrowVault(sale.Listing)
	if err != nil {
		return nil, err
	}
	vaultConfig, _, err := c.deriver.VaultConfig(sale.RewardMint)
	if err != nil {
		return nil, err
	}
	registryConfig, _, err := c.deriver.RegistryConfigAddress()
	if err != nil {
		return nil, err
	}

	buildID := uuid.NewString()
	log := c.log.With("operation", "settle", "build_id", buildID, "listing", sale.Listing.String())

	var (
		listing *Listing
		escrow  *EscrowVault
		vault   *VaultConfig
		config  *LoyaltyRegistryConfig
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { listing, err = c.fetchListing(gctx, sale.Listing); return err })
	g.Go(func() (err error) { escrow, err = c.fetchEscrowVault(gctx, escrowVault); return err })
	g.Go(func() (err error) { vault, err = c.fetchVaultConfig(gctx, vaultConfig); return err })
	g.Go(func() (err error) { config, err = c.fetchRegistryConfig(gctx, registryConfig); return err })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := AssertAuthority("reward vault", vault.Authority, held); err != nil {
		return nil, err
	}
	if err := AssertAuthority("loyalty registry", config.Authority, held); err != nil {
		return nil, err
	}
	if !vault.RewardMint.Equals(sale.RewardMint) {
		return nil, fmt.Errorf("vault reward mint %s does not match supplied mint %s: %w",
			vault.RewardMint, sale.RewardMint, ErrInvalidState)
	}
	if listing.Status != ListingPendingSettlement {
		return nil, fmt.Errorf("listing is %s, expected pending_settlement: %w", listing.Status, ErrInvalidState)
	}
	if !listing.Seller.Equals(sale.Seller) {
		return nil, fmt.Errorf("listing seller is %s, got %s: %w", listing.Seller, sale.Seller, ErrInvalidState)
	}
	if listing.Buyer == nil || !listing.Buyer.Equals(sale.Buyer) {
		return nil, fmt.Errorf("listing buyer does not match %s: %w", sale.Buyer, ErrInvalidState)
	}
	if escrow.TotalDeposited == 0 {
		return nil, fmt.Errorf("escrow vault holds no deposits: %w", ErrInvalidState)
	}

	receipt, _, err := c.deriver.Receipt(sale.Listing, sale.Buyer)
	if err != nil {
		return nil, err
	}
	vaultSigner, _, err := c.deriver.VaultSigner(sale.RewardMint)
	if err != nil {
		return nil, err
	}
	profile, _, err := c.deriver.Profile(sale.Buyer)
	if err != nil {
		return nil, err
	}
	buyerReward, err := c.resolveTokenAccount(sale.BuyerRewardAccount, sale.Buyer, sale.RewardMint)
	if err != nil {
		return nil, err
	}

	disc, err := escrowHandle.Instruction("settle_sale")
	if err != nil {
		return nil, err
	}
	data, err := instructionData(disc, settleSaleArgs{
		RewardAmount:       sale.RewardAmount,
		LoyaltyBonusPoints: sale.LoyaltyBonusPoints,
	})
	if err != nil {
		return nil, err
	}
	ix := solana.NewInstruction(escrowHandle.ID, solana.AccountMetaSlice{
		solana.NewAccountMeta(sale.Listing, true, false),
		solana.NewAccountMeta(escrowVault, true, false),
		solana.NewAccountMeta(sale.Seller, true, true),
		solana.NewAccountMeta(sale.Buyer, false, false),
		solana.NewAccountMeta(sale.TreasuryDestination, true, false),
		solana.NewAccountMeta(sale.MarketplaceFeeDestination, true, false),
		solana.NewAccountMeta(listing.RoyaltyDestination, true, false),
		solana.NewAccountMeta(receipt, true, false),
		solana.NewAccountMeta(vaultConfig, true, false),
		solana.NewAccountMeta(vaultSigner, false, false),
		solana.NewAccountMeta(sale.RewardMint, true, false),
		solana.NewAccountMeta(buyerReward, true, false),
		solana.NewAccountMeta(held, false, true),
		solana.NewAccountMeta(profile, true, false),
		solana.NewAccountMeta(registryConfig, true, false),
		solana.NewAccountMeta(held, false, true),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(rewardsHandle.ID, false, false),
		solana.NewAccountMeta(loyaltyHandle.ID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}, data)

	built, err := c.finalize(ctx, []solana.Instruction{ix}, sale.Seller, []string{"authority"})
	if err != nil {
		return nil, err
	}
	log.Info("composed settlement transaction",
		"buyer", sale.Buyer.String(),
		"deposited", escrow.TotalDeposited,
		"price", listing.PriceLamports)
	return built, nil
}

func (c *Composer) resolveTokenAccount(explicit *solana.PublicKey, owner, mint solana.PublicKey) (solana.PublicKey, error) {
	if explicit != nil {
		return *explicit, nil
	}
	return c.deriver.AssociatedTokenAccount(owner, mint)
}

func (c *Composer) observe(operation string) func(error) {
	start := c.clock.Now()
	return func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.TransactionsBuilt.WithLabelValues(operation, outcome).Inc()
		metrics.BuildDuration.WithLabelValues(operation).Observe(c.clock.Since(start).Seconds())
	}
}
