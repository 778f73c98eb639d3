package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrWorkerNotFound      = errors.Register(ModuleName, 2, "worker not found")
	ErrWorkerExists        = errors.Register(ModuleName, 3, "worker already exists")
	ErrInvalidConfig       = errors.Register(ModuleName, 4, "invalid worker config")
	ErrUnapprovedStrategy  = errors.Register(ModuleName, 5, "strategy not approved")
	ErrUnknownStrategy     = errors.Register(ModuleName, 6, "unknown strategy")
	ErrBadStrategyParams   = errors.Register(ModuleName, 7, "bad strategy params")
	ErrBadReinvestPath     = errors.Register(ModuleName, 8, "bad reinvest path")
	ErrBadRewardPath       = errors.Register(ModuleName, 9, "bad reward path")
	ErrBelowMinSwapOut     = errors.Register(ModuleName, 10, "output below minimum")
	ErrWorkerUnstable      = errors.Register(ModuleName, 11, "worker price unstable")
	ErrReserveInconsistent = errors.Register(ModuleName, 12, "pool reserves inconsistent")
	ErrNotAuthorized       = errors.Register(ModuleName, 13, "not authorized")
	ErrReentrantCall       = errors.Register(ModuleName, 14, "reentrant call")
	ErrInsufficientFarm    = errors.Register(ModuleName, 15, "insufficient farming token to repay debt")
	ErrNoShares            = errors.Register(ModuleName, 16, "worker has no open shares")
)
