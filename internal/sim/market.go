package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/roach88/histlog/internal/histlog"
)

// Config parameterizes a Market.
type Config struct {
	Periods           int
	Seed              uint64
	InitialInsurers   int
	InitialReinsurers int

	// Per-period probability that a new insurer enters. A new reinsurer
	// enters with half this probability.
	EntryProbability float64
}

// DefaultConfig returns the market used when nothing else is configured.
func DefaultConfig() Config {
	return Config{
		Periods:           100,
		Seed:              1,
		InitialInsurers:   4,
		InitialReinsurers: 1,
		EntryProbability:  0.05,
	}
}

func (c Config) validate() error {
	switch {
	case c.Periods < 0:
		return fmt.Errorf("sim: periods must not be negative, got %d", c.Periods)
	case c.InitialInsurers < 0 || c.InitialReinsurers < 0:
		return fmt.Errorf("sim: initial firm counts must not be negative")
	case c.EntryProbability < 0 || c.EntryProbability > 1:
		return fmt.Errorf("sim: entry probability %v outside [0, 1]", c.EntryProbability)
	}
	return nil
}

const (
	startingCash     = 100.0
	startingReinCash = 250.0
	basePremium      = 1.0
	baseReinPremium  = 0.3
	claimPerContract = 8.0
	capitalPerPolicy = 5.0
	reinsuredShare   = 0.25
	operatingCost    = 0.5
)

type firm struct {
	cash      float64
	contracts float64
	active    bool
}

// Market is a seeded synthetic insurance market.
type Market struct {
	cfg    Config
	meta   histlog.RunMetadata
	rng    *rand.Rand
	period int

	insurers   []*firm
	reinsurers []*firm

	bankruptcies     float64
	exits            float64
	unrecovered      float64
	claims           float64
	lastPremium      float64
	premiumDeviation float64
}

// NewMarket builds a market. Catastrophes strike at the periods listed in
// meta.EventSchedule with the matching fraction from meta.EventDamage.
func NewMarket(cfg Config, meta histlog.RunMetadata) (*Market, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Market{
		cfg:         cfg,
		meta:        meta.Clone(),
		rng:         rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		lastPremium: basePremium,
	}, nil
}

// Next advances the market one period.
func (m *Market) Next(ctx context.Context) (Step, bool, error) {
	if m.period >= m.cfg.Periods {
		return Step{}, false, nil
	}

	var step Step
	if m.period == 0 {
		step.NewInsurers = m.cfg.InitialInsurers
		step.NewReinsurers = m.cfg.InitialReinsurers
	} else {
		if m.rng.Float64() < m.cfg.EntryProbability {
			step.NewInsurers = 1
		}
		if m.rng.Float64() < m.cfg.EntryProbability/2 {
			step.NewReinsurers = 1
		}
	}
	for range step.NewInsurers {
		m.insurers = append(m.insurers, &firm{cash: startingCash, active: true})
	}
	for range step.NewReinsurers {
		m.reinsurers = append(m.reinsurers, &firm{cash: startingReinCash, active: true})
	}

	step.Period = m.advance()
	m.period++
	return step, true, nil
}

// damage returns the catastrophe fraction hitting the current period.
func (m *Market) damage() float64 {
	total := 0.0
	for c, periods := range m.meta.EventSchedule {
		for k, p := range periods {
			if p != m.period {
				continue
			}
			if c < len(m.meta.EventDamage) && k < len(m.meta.EventDamage[c]) {
				total += m.meta.EventDamage[c][k]
			}
		}
	}
	return math.Min(total, 1)
}

func (m *Market) advance() histlog.PeriodData {
	var d histlog.PeriodData

	premium := basePremium * (1 + 0.1*m.rng.NormFloat64())
	if premium < 0.1 {
		premium = 0.1
	}
	reinPremium := baseReinPremium * (1 + 0.05*m.rng.NormFloat64())
	m.premiumDeviation = premium - m.lastPremium
	m.lastPremium = premium

	hit := m.damage()
	attritional := 0.05 * m.rng.Float64()

	ceded := 0.0
	for _, f := range m.insurers {
		if !f.active {
			continue
		}
		f.contracts = math.Max(0, f.contracts+float64(m.rng.IntN(5)-1))
		claims := f.contracts * claimPerContract * (hit + attritional)
		recovered := claims * reinsuredShare
		ceded += recovered
		profit := f.contracts*premium - claims + recovered - operatingCost
		f.cash += profit
		m.claims += claims

		d.TotalProfitsLosses += profit
		if f.cash < 0 {
			m.unrecovered += -f.cash
			m.bankruptcies++
			f.cash = 0
			f.contracts = 0
			f.active = false
			continue
		}
		if f.contracts == 0 && f.cash < operatingCost {
			m.exits++
			f.active = false
		}
	}

	activeReins := 0
	for _, r := range m.reinsurers {
		if r.active {
			activeReins++
		}
	}
	for _, r := range m.reinsurers {
		if !r.active {
			continue
		}
		share := ceded / float64(activeReins)
		r.contracts = float64(len(m.insurers))
		profit := r.contracts*reinPremium - share
		r.cash += profit
		d.TotalReinProfitsLosses += profit
		if r.cash < 0 {
			m.unrecovered += -r.cash
			m.bankruptcies++
			r.cash = 0
			r.contracts = 0
			r.active = false
		}
	}

	d.IndividualContracts = make([]float64, len(m.insurers))
	d.InsuranceFirmsCash = make([]float64, len(m.insurers))
	for i, f := range m.insurers {
		d.IndividualContracts[i] = f.contracts
		d.InsuranceFirmsCash[i] = f.cash
		if !f.active {
			continue
		}
		d.TotalCash += f.cash
		d.TotalContracts += f.contracts
		d.TotalExcessCapital += math.Max(0, f.cash-f.contracts*capitalPerPolicy)
		d.TotalOperational++
	}

	d.ReinsuranceFirmsCash = make([]float64, len(m.reinsurers))
	for i, r := range m.reinsurers {
		d.ReinsuranceFirmsCash[i] = r.cash
		if !r.active {
			continue
		}
		d.TotalReinCash += r.cash
		d.TotalReinContracts += r.contracts
		d.TotalReinExcessCapital += math.Max(0, r.cash-r.contracts*capitalPerPolicy)
		d.TotalReinOperational++
	}

	d.MarketPremium = premium
	d.MarketReinPremium = reinPremium
	d.MarketDiffVar = m.premiumDeviation
	d.CumulativeBankruptcies = m.bankruptcies
	d.CumulativeMarketExits = m.exits
	d.CumulativeUnrecoveredClaims = m.unrecovered
	d.CumulativeClaims = m.claims
	return d
}
