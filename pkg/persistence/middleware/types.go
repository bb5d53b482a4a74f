package middleware

import "github.com/sonicwave/pulse/pkg/ports"

// Middleware allows wrapping a ledger to add behavior.
type Middleware func(ports.InspectableLedger) ports.InspectableLedger

// Chain applies mws so that the first one is the outermost.
func Chain(l ports.InspectableLedger, mws ...Middleware) ports.InspectableLedger {
	for i := len(mws) - 1; i >= 0; i-- {
		l = mws[i](l)
	}
	return l
}
