package iagentpay

import (
	"time"

	"github.com/tonatisp/iagent-pay/chains"
	"github.com/tonatisp/iagent-pay/drivers"
	"github.com/tonatisp/iagent-pay/keystore"
	"github.com/tonatisp/iagent-pay/ledger"
	"github.com/tonatisp/iagent-pay/license"
	"github.com/tonatisp/iagent-pay/logger"
	"github.com/tonatisp/iagent-pay/metrics"
	"github.com/tonatisp/iagent-pay/resolver"
)

type Option func(*Dispatcher)

func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(d *Dispatcher) {
		d.metrics = r
	}
}

// WithLedger injects the ledger store. The dispatcher does not close it.
func WithLedger(s ledger.Store) Option {
	return func(d *Dispatcher) {
		d.ledger = s
	}
}

func WithResolver(r resolver.Resolver) Option {
	return func(d *Dispatcher) {
		d.resolver = r
	}
}

func WithPricing(p license.PricingSource) Option {
	return func(d *Dispatcher) {
		d.pricing = p
	}
}

func WithRegistry(r license.Registry) Option {
	return func(d *Dispatcher) {
		d.registry = r
	}
}

// WithDriver binds a ready driver and skips the router. The dispatcher takes
// ownership and closes it.
func WithDriver(drv drivers.ChainDriver) Option {
	return func(d *Dispatcher) {
		d.driver = drv
	}
}

func WithRouter(r *drivers.Router) Option {
	return func(d *Dispatcher) {
		d.router = r
	}
}

func WithChains(r *chains.Registry) Option {
	return func(d *Dispatcher) {
		d.chains = r
	}
}

func WithKeystore(k keystore.Keystore) Option {
	return func(d *Dispatcher) {
		d.keys = k
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}
