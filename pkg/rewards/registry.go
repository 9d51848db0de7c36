package rewards

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

//go:embed idl/*.json
var idlFiles embed.FS

// ProgramName identifies one of the four on-chain programs.
type ProgramName string

const (
	ProgramRewardsVault ProgramName = "rewards_vault"
	ProgramStaking      ProgramName = "clout_staking"
	ProgramEscrow       ProgramName = "market_escrow"
	ProgramLoyalty      ProgramName = "loyalty_registry"
)

var allPrograms = []ProgramName{ProgramRewardsVault, ProgramStaking, ProgramEscrow, ProgramLoyalty}

// idlFile is the shipped interface definition for one program: its
// instruction and account names, from which discriminators are derived.
type idlFile struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	Instructions []struct {
		Name string `json:"name"`
	} `json:"instructions"`
	Accounts []struct {
		Name string `json:"name"`
	} `json:"accounts"`
}

// ProgramHandle bundles a program's address and its instruction/account
// discriminator tables. Handles are pure data and safe to share.
type ProgramHandle struct {
	Name         ProgramName
	ID           solana.PublicKey
	instructions map[string][8]byte
	accounts     map[string][8]byte
}

// Instruction returns the 8-byte discriminator for a snake_case method name.
func (h *ProgramHandle) Instruction(method string) ([8]byte, error) {
	disc, ok := h.instructions[method]
	if !ok {
		return [8]byte{}, fmt.Errorf("program %s has no instruction %q: %w", h.Name, method, ErrConfiguration)
	}
	return disc, nil
}

// Account returns the 8-byte discriminator for an account type name.
func (h *ProgramHandle) Account(name string) ([8]byte, error) {
	disc, ok := h.accounts[name]
	if !ok {
		return [8]byte{}, fmt.Errorf("program %s has no account %q: %w", h.Name, name, ErrConfiguration)
	}
	return disc, nil
}

// Registry lazily loads the interface definitions for all four programs.
// Settlement operations may need several handles at once, so the first use
// populates every handle together. Loading is idempotent and memoized;
// concurrent first use is safe.
type Registry struct {
	programs ProgramIDs

	once    sync.Once
	loadErr error
	loaded  bool
	handles map[ProgramName]*ProgramHandle
	mu      sync.RWMutex
}

func NewRegistry(programs ProgramIDs) (*Registry, error) {
	if err := programs.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return &Registry{programs: programs}, nil
}

// Load parses the embedded interface definitions for all four programs.
// A malformed or missing definition fails with ErrConfiguration; this is
// fatal at startup and is not retried per request.
func (r *Registry) Load() error {
	r.once.Do(func() {
		handles := make(map[ProgramName]*ProgramHandle, len(allPrograms))
		for _, name := range allPrograms {
			handle, err := r.loadHandle(name)
			if err != nil {
				r.loadErr = err
				return
			}
			handles[name] = handle
		}
		r.mu.Lock()
		r.handles = handles
		r.loaded = true
		r.mu.Unlock()
	})
	return r.loadErr
}

// Loaded reports whether all handles are available.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Program returns the cached handle for a program, loading all handles on
// first use. A second call for the same program returns the same handle.
func (r *Registry) Program(name ProgramName) (*ProgramHandle, error) {
	if err := r.Load(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.handles[name]
	if !ok {
		return nil, fmt.Errorf("unknown program %q: %w", name, ErrConfiguration)
	}
	return handle, nil
}

func (r *Registry) programID(name ProgramName) solana.PublicKey {
	switch name {
	case ProgramRewardsVault:
		return r.programs.RewardsVault
	case ProgramStaking:
		return r.programs.Staking
	case ProgramEscrow:
		return r.programs.Escrow
	case ProgramLoyalty:
		return r.programs.Loyalty
	default:
		return solana.PublicKey{}
	}
}

func (r *Registry) loadHandle(name ProgramName) (*ProgramHandle, error) {
	raw, err := idlFiles.ReadFile(fmt.Sprintf("idl/%s.json", name))
	if err != nil {
		return nil, fmt.Errorf("missing interface definition for %s: %w", name, ErrConfiguration)
	}
	var idl idlFile
	if err := json.Unmarshal(raw, &idl); err != nil {
		return nil, fmt.Errorf("malformed interface definition for %s: %w: %v", name, ErrConfiguration, err)
	}
	if idl.Name != string(name) || len(idl.Instructions) == 0 {
		return nil, fmt.Errorf("interface definition for %s is incomplete: %w", name, ErrConfiguration)
	}

	handle := &ProgramHandle{
		Name:         name,
		ID:           r.programID(name),
		instructions: make(map[string][8]byte, len(idl.Instructions)),
		accounts:     make(map[string][8]byte, len(idl.Accounts)),
	}
	for _, ix := range idl.Instructions {
		handle.instructions[ix.Name] = InstructionDiscriminator(ix.Name)
	}
	for _, acc := range idl.Accounts {
		handle.accounts[acc.Name] = AccountDiscriminator(acc.Name)
	}
	return handle, nil
}
