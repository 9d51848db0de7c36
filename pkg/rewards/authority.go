package rewards

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// AssertAuthority checks that the locally held signing key matches the
// authority recorded on-chain. role names the account being checked so the
// failure is attributable (e.g. "reward vault", "loyalty registry").
func AssertAuthority(role string, onChain, held solana.PublicKey) error {
	if !onChain.Equals(held) {
		return fmt.Errorf("%s authority is %s, configured key is %s: %w",
			role, onChain, held, ErrAuthorityMismatch)
	}
	return nil
}
