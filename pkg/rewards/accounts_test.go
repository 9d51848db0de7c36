package rewards_test

import (
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/cloutmarket/settlement/pkg/rewards"
)

func TestSettlement_Accounts_DiscriminatorsAreStable(t *testing.T) {
	t.Parallel()

	require.Equal(t, rewards.AccountDiscriminator("StakingPool"), rewards.AccountDiscriminator("StakingPool"))
	require.NotEqual(t, rewards.AccountDiscriminator("StakingPool"), rewards.AccountDiscriminator("StakePosition"))
	require.NotEqual(t, rewards.AccountDiscriminator("Listing"), rewards.InstructionDiscriminator("listing"))
}

func TestSettlement_Accounts_StakingPoolRoundTrip(t *testing.T) {
	t.Parallel()

	in := rewards.StakingPool{
		Bump:                 254,
		VaultBump:            253,
		SignerBump:           252,
		Authority:            solana.NewWallet().PublicKey(),
		RewardVault:          solana.NewWallet().PublicKey(),
		RewardMint:           solana.NewWallet().PublicKey(),
		StakeMint:            solana.NewWallet().PublicKey(),
		RewardRate:           100,
		TotalStaked:          1_000_000,
		RewardPerTokenStored: bin.Uint128{Lo: 42_000_000_000},
		LastUpdateTs:         1_700_000_000,
	}

	data, err := rewards.EncodeAccount("StakingPool", &in)
	require.NoError(t, err)

	var out rewards.StakingPool
	require.NoError(t, rewards.DecodeAccount("StakingPool", data, &out))
	require.Equal(t, in.Authority, out.Authority)
	require.Equal(t, in.StakeMint, out.StakeMint)
	require.Equal(t, in.RewardRate, out.RewardRate)
	require.Equal(t, in.TotalStaked, out.TotalStaked)
	require.Equal(t, in.RewardPerTokenStored.BigInt().String(), out.RewardPerTokenStored.BigInt().String())
	require.Equal(t, in.LastUpdateTs, out.LastUpdateTs)
}

func TestSettlement_Accounts_ListingOptionalFields(t *testing.T) {
	t.Parallel()

	base := rewards.Listing{
		Bump:               255,
		EscrowBump:         254,
		Seller:             solana.NewWallet().PublicKey(),
		Mint:               solana.NewWallet().PublicKey(),
		ListingID:          7,
		PriceLamports:      2_500_000_000,
		CreationTs:         1_700_000_000,
		Status:             rewards.ListingActive,
		RoyaltyBps:         500,
		RoyaltyDestination: solana.NewWallet().PublicKey(),
		TreasuryBps:        100,
		MarketplaceFeeBps:  250,
	}

	t.Run("absent options stay nil", func(t *testing.T) {
		t.Parallel()
		data, err := rewards.EncodeAccount("Listing", &base)
		require.NoError(t, err)

		var out rewards.Listing
		require.NoError(t, rewards.DecodeAccount("Listing", data, &out))
		require.Nil(t, out.Buyer)
		require.Nil(t, out.SaleTs)
		require.Nil(t, out.SettlementTs)
		require.Equal(t, base, out)
	})

	t.Run("present options survive", func(t *testing.T) {
		t.Parallel()
		buyer := solana.NewWallet().PublicKey()
		saleTs := int64(1_700_000_100)
		sold := base
		sold.Buyer = &buyer
		sold.SaleTs = &saleTs
		sold.Status = rewards.ListingPendingSettlement

		data, err := rewards.EncodeAccount("Listing", &sold)
		require.NoError(t, err)

		var out rewards.Listing
		require.NoError(t, rewards.DecodeAccount("Listing", data, &out))
		require.NotNil(t, out.Buyer)
		require.Equal(t, buyer, *out.Buyer)
		require.NotNil(t, out.SaleTs)
		require.Equal(t, saleTs, *out.SaleTs)
		require.Nil(t, out.SettlementTs)
	})
}

func TestSettlement_Accounts_LoyaltyProfileRoundTrip(t *testing.T) {
	t.Parallel()

	delegate := solana.NewWallet().PublicKey()
	in := rewards.LoyaltyProfile{
		Bump:           251,
		Owner:          solana.NewWallet().PublicKey(),
		TotalVolume:    9_000_000_000,
		Points:         900,
		Tier:           rewards.TierGold,
		LastActivityTs: 1_700_000_000,
		Delegate:       &delegate,
	}

	data, err := rewards.EncodeAccount("LoyaltyProfile", &in)
	require.NoError(t, err)

	var out rewards.LoyaltyProfile
	require.NoError(t, rewards.DecodeAccount("LoyaltyProfile", data, &out))
	require.Equal(t, in, out)
}

func TestSettlement_Accounts_DecodeRejectsWrongDiscriminator(t *testing.T) {
	t.Parallel()

	in := rewards.EscrowVault{
		Bump:           250,
		Listing:        solana.NewWallet().PublicKey(),
		TotalDeposited: 1,
	}
	data, err := rewards.EncodeAccount("EscrowVault", &in)
	require.NoError(t, err)

	var out rewards.SaleReceipt
	err = rewards.DecodeAccount("SaleReceipt", data, &out)
	require.ErrorIs(t, err, rewards.ErrInvalidAccountData)
}

func TestSettlement_Accounts_DecodeRejectsShortData(t *testing.T) {
	t.Parallel()

	var out rewards.EscrowVault
	err := rewards.DecodeAccount("EscrowVault", []byte{1, 2, 3}, &out)
	require.ErrorIs(t, err, rewards.ErrInvalidAccountData)
}

func TestSettlement_Accounts_StatusStrings(t *testing.T) {
	t.Parallel()

	require.Equal(t, "active", rewards.ListingActive.String())
	require.Equal(t, "pending_settlement", rewards.ListingPendingSettlement.String())
	require.Equal(t, "settled", rewards.ListingSettled.String())
	require.Equal(t, "cancelled", rewards.ListingCancelled.String())
	require.Equal(t, "diamond", rewards.TierDiamond.String())
}
