package executor

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/fortiblox/X1-Conduit/pkg/xcm"
)

// Default limits applied by DefaultConfig.
const (
	// DefaultHoldingLimit is the nominal bound on distinct holding
	// entries. Operations that add entries are checked against twice this
	// value, since a take-then-subsume cycle can transiently double the
	// population.
	DefaultHoldingLimit = 64

	// DefaultMaxRecursionDepth bounds nested instruction execution.
	DefaultMaxRecursionDepth = 10
)

var (
	// ErrMissingCollaborator means a required Config field is nil.
	ErrMissingCollaborator = errors.New("executor: missing required collaborator")

	// ErrBadLimit means a Config limit is out of range.
	ErrBadLimit = errors.New("executor: limit must be positive")
)

// Config wires the interpreter to its collaborators and limits. Optional
// collaborators may be nil; instructions that need an absent one fail with
// Unimplemented or NoPermission as appropriate.
type Config struct {
	// AssetTransactor moves assets in and out of accounts. Required.
	AssetTransactor TransactAsset

	// Barrier admits or refuses messages before execution. Required.
	Barrier Barrier

	// Weigher bounds program and instruction weight. Required.
	Weigher WeightBounds

	// NewTrader creates the per-execution weight trader. Required.
	NewTrader func() WeightTrader

	// Sender routes outbound messages. Required.
	Sender MessageSender

	// Trap takes custody of abandoned holding contents. Required.
	Trap AssetTrap

	// Claims pays out trapped assets. Required.
	Claims AssetClaims

	// Fees waives and disposes of fee payments. Required.
	Fees FeeManager

	// Dispatcher runs embedded calls. Required.
	Dispatcher CallDispatcher

	// Reserves is the reserve trust policy. Required.
	Reserves ReservePolicy

	// Teleporters is the teleport trust policy. Required.
	Teleporters TeleportPolicy

	// Responses consumes query responses. Required.
	Responses ResponseHandler

	// Exchanger swaps assets; nil refuses ExchangeAsset.
	Exchanger AssetExchange

	// Locker manages asset locks; nil refuses the locking instructions.
	Locker AssetLocker

	// Exporter bridges messages to other consensus systems; nil refuses
	// ExportMessage.
	Exporter MessageExporter

	// Aliasers authorises origin aliasing; nil refuses AliasOrigin.
	Aliasers AliasPolicy

	// UniversalAliases authorises UniversalOrigin; nil refuses it.
	UniversalAliases UniversalAliasPolicy

	// Subscriptions manages version subscriptions; nil refuses them.
	Subscriptions SubscriptionService

	// PalletsInfo exposes local module metadata; nil makes QueryPallet
	// report an empty list and ExpectPallet fail.
	PalletsInfo PalletsInfoAccess

	// Transactional wraps state-changing instruction bodies.
	Transactional TransactionalProcessor

	// UniversalLocation is the interior of the local consensus system
	// within the universe, used for reanchoring.
	UniversalLocation xcm.InteriorLocation

	// HoldingLimit is the nominal bound on distinct holding entries.
	HoldingLimit int

	// MaxRecursionDepth bounds nested instruction execution.
	MaxRecursionDepth int

	// Logger receives execution trace events.
	Logger zerolog.Logger
}

// DefaultConfig returns a Config with the standard limits set. The
// collaborators must still be filled in.
func DefaultConfig() Config {
	return Config{
		Transactional:     NonTransactional{},
		HoldingLimit:      DefaultHoldingLimit,
		MaxRecursionDepth: DefaultMaxRecursionDepth,
		Logger:            zerolog.Nop(),
	}
}

// Validate checks that every required collaborator and limit is set.
func (c *Config) Validate() error {
	switch {
	case c.AssetTransactor == nil,
		c.Barrier == nil,
		c.Weigher == nil,
		c.NewTrader == nil,
		c.Sender == nil,
		c.Trap == nil,
		c.Claims == nil,
		c.Fees == nil,
		c.Dispatcher == nil,
		c.Reserves == nil,
		c.Teleporters == nil,
		c.Responses == nil:
		return ErrMissingCollaborator
	}
	if c.HoldingLimit <= 0 || c.MaxRecursionDepth <= 0 {
		return ErrBadLimit
	}
	return nil
}
