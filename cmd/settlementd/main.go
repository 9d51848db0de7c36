package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/mr-tron/base58"
	flag "github.com/spf13/pflag"

	"github.com/cloutmarket/settlement/pkg/rewards"
	"github.com/cloutmarket/settlement/pkg/server"
	"github.com/cloutmarket/settlement/utils/pkg/logger"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Deployed program addresses. Overridable per environment.
const (
	defaultRewardsVaultProgram = "YBSSnuhAgYq6SN1yofjNt8XyLW7B3mQQQFUBF8gwH6J"
	defaultStakingProgram      = "4mUWjVdfVWP9TT5wT9x2P2Uhd8NQgzWXXMGKM8xxmM9E"
	defaultEscrowProgram       = "8um9wXkGXVuxs9jVCpt3DrzkmMAiLDKrKkaHSLyPqPcX"
	defaultLoyaltyProgram      = "GgfPQkNHuNbSw6cyDpzHeTLbTxSA2ZPUa2F1ZascnJur"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	listenAddrFlag := flag.String("listen-addr", ":8080", "HTTP listen address (or set LISTEN_ADDR env var)")
	rpcURLFlag := flag.String("rpc-url", "", "Solana RPC endpoint (or set SOLANA_RPC_URL env var)")
	authorityKeypairFlag := flag.String("authority-keypair", "", "path to the settlement authority keypair file (or set AUTHORITY_KEYPAIR env var; AUTHORITY_SECRET_KEY takes a base58 secret key directly)")

	rewardsVaultProgramFlag := flag.String("rewards-vault-program", defaultRewardsVaultProgram, "rewards vault program id (or set REWARDS_VAULT_PROGRAM_ID env var)")
	stakingProgramFlag := flag.String("staking-program", defaultStakingProgram, "staking program id (or set STAKING_PROGRAM_ID env var)")
	escrowProgramFlag := flag.String("escrow-program", defaultEscrowProgram, "market escrow program id (or set ESCROW_PROGRAM_ID env var)")
	loyaltyProgramFlag := flag.String("loyalty-program", defaultLoyaltyProgram, "loyalty registry program id (or set LOYALTY_PROGRAM_ID env var)")

	allowedOriginsFlag := flag.StringSlice("allowed-origins", nil, "CORS allowed origins (or set ALLOWED_ORIGINS env var, comma-separated)")
	buildRateFlag := flag.Int("build-rate-per-minute", 60, "per-IP limit on transaction-building requests (0 disables)")
	shutdownTimeoutFlag := flag.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")

	flag.Parse()

	log := logger.New(*verboseFlag)

	if env := os.Getenv("LISTEN_ADDR"); env != "" {
		*listenAddrFlag = env
	}
	if env := os.Getenv("SOLANA_RPC_URL"); env != "" {
		*rpcURLFlag = env
	}
	if env := os.Getenv("AUTHORITY_KEYPAIR"); env != "" {
		*authorityKeypairFlag = env
	}
	if env := os.Getenv("REWARDS_VAULT_PROGRAM_ID"); env != "" {
		*rewardsVaultProgramFlag = env
	}
	if env := os.Getenv("STAKING_PROGRAM_ID"); env != "" {
		*stakingProgramFlag = env
	}
	if env := os.Getenv("ESCROW_PROGRAM_ID"); env != "" {
		*escrowProgramFlag = env
	}
	if env := os.Getenv("LOYALTY_PROGRAM_ID"); env != "" {
		*loyaltyProgramFlag = env
	}

	if *rpcURLFlag == "" {
		return fmt.Errorf("--rpc-url is required (or set SOLANA_RPC_URL)")
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:     dsn,
			Release: fmt.Sprintf("settlementd@%s", version),
		}); err != nil {
			return fmt.Errorf("failed to initialize sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	programs, err := parsePrograms(*rewardsVaultProgramFlag, *stakingProgramFlag, *escrowProgramFlag, *loyaltyProgramFlag)
	if err != nil {
		return err
	}

	authority, err := loadAuthority(*authorityKeypairFlag)
	if err != nil {
		return err
	}
	if authority == nil {
		log.Warn("no settlement authority configured, harvest/loyalty/settlement endpoints will refuse requests")
	} else {
		log.Info("settlement authority loaded", "pubkey", authority.PublicKey().String())
	}

	registry, err := rewards.NewRegistry(programs)
	if err != nil {
		return err
	}
	composer, err := rewards.NewComposer(rewards.ComposerConfig{
		Logger:    log,
		Chain:     rewards.NewRPCReader(*rpcURLFlag),
		Registry:  registry,
		Programs:  programs,
		Authority: authority,
	})
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Logger:             log,
		ListenAddr:         *listenAddrFlag,
		ShutdownTimeout:    *shutdownTimeoutFlag,
		AllowedOrigins:     *allowedOriginsFlag,
		BuildRatePerMinute: *buildRateFlag,
		VersionInfo: server.VersionInfo{
			Version: version,
			Commit:  commit,
			Date:    date,
		},
		Composer: composer,
		Registry: registry,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

func parsePrograms(rewardsVault, staking, escrow, loyalty string) (rewards.ProgramIDs, error) {
	var out rewards.ProgramIDs
	var err error
	if out.RewardsVault, err = solana.PublicKeyFromBase58(rewardsVault); err != nil {
		return out, fmt.Errorf("invalid rewards vault program id %q: %w", rewardsVault, err)
	}
	if out.Staking, err = solana.PublicKeyFromBase58(staking); err != nil {
		return out, fmt.Errorf("invalid staking program id %q: %w", staking, err)
	}
	if out.Escrow, err = solana.PublicKeyFromBase58(escrow); err != nil {
		return out, fmt.Errorf("invalid escrow program id %q: %w", escrow, err)
	}
	if out.Loyalty, err = solana.PublicKeyFromBase58(loyalty); err != nil {
		return out, fmt.Errorf("invalid loyalty program id %q: %w", loyalty, err)
	}
	return out, nil
}

// loadAuthority loads the settlement signing key. AUTHORITY_SECRET_KEY (a
// base58 secret key) wins over a keypair file; a missing key is not an
// error, it just disables the privileged builders.
func loadAuthority(keypairPath string) (*solana.PrivateKey, error) {
	if secret := os.Getenv("AUTHORITY_SECRET_KEY"); secret != "" {
		raw, err := base58.Decode(secret)
		if err != nil {
			return nil, fmt.Errorf("failed to decode AUTHORITY_SECRET_KEY: %w", err)
		}
		if len(raw) != 64 {
			return nil, fmt.Errorf("AUTHORITY_SECRET_KEY must be a 64-byte secret key, got %d bytes", len(raw))
		}
		key := solana.PrivateKey(raw)
		return &key, nil
	}
	if keypairPath != "" {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(keypairPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load authority keypair from %s: %w", keypairPath, err)
		}
		return &key, nil
	}
	return nil, nil
}
