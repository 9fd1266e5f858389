// Package engine orchestrates one evaluation cycle: preflight, governance
// transitions, then a sequential breadth scan over candidate symbols where
// every candidate runs the full gate chain and leaves exactly one forensic
// record, whatever the outcome.
package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/tradeops/irongate/auditor"
	"github.com/tradeops/irongate/capital"
	"github.com/tradeops/irongate/config"
	"github.com/tradeops/irongate/forensic"
	"github.com/tradeops/irongate/governance"
	"github.com/tradeops/irongate/integrity"
	"github.com/tradeops/irongate/intent"
	"github.com/tradeops/irongate/internal/id"
	"github.com/tradeops/irongate/ledger"
	"github.com/tradeops/irongate/market"
	"github.com/tradeops/irongate/risk"
	"github.com/tradeops/irongate/sim"
)

// Candidate outcomes recorded in the forensic trail.
const (
	actionExecuted     = "EXECUTED"
	actionSkip         = "SKIP"
	actionSkipMTF      = "SKIP_MTF"
	actionSkipDust     = "SKIP_DUST"
	actionSkipRiskGate = "SKIP_RISK_GATE"
	actionSkipTradeCap = "SKIP_ONE_TRADE_LIMIT"
	actionVetoed       = "VETOED"
	actionError        = "ERROR"
)

// Runner wires the gates into the cycle control flow.
type Runner struct {
	Cfg       *config.Config
	Market    market.Data
	Trail     *forensic.Trail
	Auditor   *auditor.Auditor
	WAL       *ledger.WAL
	Preflight *integrity.Preflighter
	Logger    *log.Logger

	machine   *governance.Machine
	tracker   *risk.DrawdownTracker
	gate      *risk.Gate
	dust      capital.DustGate
	simulator *sim.Simulator

	decisions *prometheus.CounterVec
	cycles    prometheus.Counter
}

// NewRunner assembles a runner. The drawdown tracker loads its persisted
// peak here, so a corrupt risk ledger refuses to construct the runner at
// all (fail-closed before the first cycle).
func NewRunner(cfg *config.Config, md market.Data, trail *forensic.Trail,
	aud *auditor.Auditor, wal *ledger.WAL, pf *integrity.Preflighter,
	logger *log.Logger) (*Runner, error) {

	if logger == nil {
		logger = log.Default()
	}

	tracker, err := risk.NewDrawdownTracker(ledger.NewStore(cfg.Risk.StatePath), logger)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	return &Runner{
		Cfg:       cfg,
		Market:    md,
		Trail:     trail,
		Auditor:   aud,
		WAL:       wal,
		Preflight: pf,
		Logger:    logger,
		machine:   governance.NewMachine(),
		tracker:   tracker,
		gate: &risk.Gate{
			MaxSpreadPct:   cfg.Risk.MaxSpreadPct,
			MaxDrawdownPct: cfg.Risk.MaxDrawdownPct,
			BaseCurrency:   cfg.Engine.BaseCurrency,
			Tracker:        tracker,
			Logger:         logger,
		},
		dust:      capital.DustGate{MinCapitalUSD: cfg.Capital.MinCapitalUSD},
		simulator: sim.New(cfg.Sim.TakerFeeRate, cfg.Sim.SlippageRate),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "irongate", Subsystem: "engine", Name: "decisions_total",
			Help: "Candidate decisions by action.",
		}, []string{"action"}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "irongate", Subsystem: "engine", Name: "cycles_total",
			Help: "Completed evaluation cycles.",
		}),
	}, nil
}

// Register adds engine collectors to a prometheus registry.
func (r *Runner) Register(reg prometheus.Registerer) error {
	if err := reg.Register(r.decisions); err != nil {
		return err
	}
	return reg.Register(r.cycles)
}

// Machine exposes the governance machine for status reporting.
func (r *Runner) Machine() *governance.Machine { return r.machine }

// RunCycle executes one full evaluation cycle. A preflight or governance
// failure halts the machine and returns an error; the caller must not
// retry within the same invocation.
func (r *Runner) RunCycle(ctx context.Context) error {
	if r.machine.Current() == governance.Halted {
		return fmt.Errorf("engine: machine halted, refusing to run")
	}
	if r.machine.Current() != governance.Init {
		// Each cycle is a fresh lifecycle; only HALTED survives across
		// cycles within a process.
		r.machine = governance.NewMachine()
	}

	cycleID := id.Cycle()
	mode := r.Cfg.Engine.Mode
	r.Logger.Printf("[CYCLE %s] start mode=%s state=%s", cycleID, mode, r.machine.Current())

	ok, reason, _ := r.Preflight.Preflight(ctx, mode)
	if !ok {
		r.halt(reason)
		return fmt.Errorf("engine: preflight failed: %s", reason)
	}

	for _, s := range []governance.State{governance.SanityOK, governance.DoDOK, governance.Armed} {
		if _, err := r.machine.Transition(s, nil); err != nil {
			r.halt(err.Error())
			return fmt.Errorf("engine: %w", err)
		}
	}

	runState := governance.DryRun
	if mode == integrity.ModeLive {
		runState = governance.Executing
	}
	if _, err := r.machine.Transition(runState, map[string]string{"cycle": cycleID}); err != nil {
		r.halt(err.Error())
		return fmt.Errorf("engine: %w", err)
	}

	if err := r.scan(ctx, cycleID); err != nil {
		r.halt(err.Error())
		return err
	}

	if _, err := r.machine.Transition(governance.Reconciled, nil); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	r.cycles.Inc()
	r.Logger.Printf("[CYCLE %s] end state=%s", cycleID, r.machine.Current())
	return nil
}

// Shutdown moves the machine to its terminal resting state.
func (r *Runner) Shutdown() {
	if r.machine.Current() == governance.Reconciled {
		_, _ = r.machine.Transition(governance.Sleep, nil)
	}
}

func (r *Runner) halt(reason string) {
	if !r.machine.Terminal() {
		_, _ = r.machine.Transition(governance.Halted, map[string]string{"reason": reason})
	}
	r.Logger.Printf("[CRITICAL] HALTED: %s", reason)
}

// scan runs the sequential breadth scan. Capital state is loaded once per
// cycle from live equity; an unreadable balance is fatal because every
// sizing decision downstream depends on it.
func (r *Runner) scan(ctx context.Context, cycleID string) error {
	state := string(r.machine.Current())

	bal, err := r.Market.FetchBalance(ctx)
	if err != nil {
		r.record(ctx, forensic.BuildParams{
			CycleID: cycleID, State: state, Action: actionError,
			Errors: []string{"CAPITAL_READ_FAILURE: " + err.Error()},
		})
		return fmt.Errorf("engine: balance read: %w", err)
	}
	equity, hasEquity := bal.Total(r.Cfg.Engine.BaseCurrency)
	if !hasEquity {
		r.record(ctx, forensic.BuildParams{
			CycleID: cycleID, State: state, Action: actionError,
			Errors: []string{"CAPITAL_READ_FAILURE: no " + r.Cfg.Engine.BaseCurrency + " balance"},
		})
		return fmt.Errorf("engine: no %s balance", r.Cfg.Engine.BaseCurrency)
	}

	// A typed nil WAL must not reach the Writer interface.
	var walWriter capital.Writer
	if r.WAL != nil {
		walWriter = r.WAL
	}
	capMgr, err := capital.NewManager(equity, ledger.NewStore(r.Cfg.Capital.StatePath), walWriter, r.Logger)
	if err != nil {
		r.record(ctx, forensic.BuildParams{
			CycleID: cycleID, State: state, Action: actionError,
			Errors: []string{"CAPITAL_STATE_FATAL: " + err.Error()},
		})
		return fmt.Errorf("engine: %w", err)
	}

	tradeExecuted := false
	for i, symbol := range r.Cfg.Engine.Symbols {
		if tradeExecuted && r.Cfg.Engine.OneTradePerCycle {
			// Remaining candidates are still scanned and logged, but
			// mechanically prevented from executing.
			r.record(ctx, forensic.BuildParams{
				CycleID: cycleID, State: state, Symbol: symbol, Action: actionSkipTradeCap,
				Facts: []string{
					fmt.Sprintf("asset_index=%d", i),
					"one_trade_limit_reached=true",
				},
			})
			continue
		}

		executed := r.evaluate(ctx, cycleID, state, symbol, i, equity, capMgr)
		if executed {
			tradeExecuted = true
		}
	}
	return nil
}

// evaluate runs the full gate chain for one candidate and writes exactly
// one forensic record. It returns whether a (simulated) trade executed.
func (r *Runner) evaluate(ctx context.Context, cycleID, state, symbol string, idx int, equity float64, capMgr *capital.Manager) bool {
	p := forensic.BuildParams{
		CycleID: cycleID,
		State:   state,
		Symbol:  symbol,
		Action:  actionSkip,
		Facts:   []string{fmt.Sprintf("asset_index=%d", idx)},
	}
	defer func() { r.record(ctx, p) }()

	// Micro regime (15m) with snapshot evidence.
	candles, err := r.Market.FetchOHLCV(ctx, symbol, r.Cfg.Engine.Timeframe, r.Cfg.Engine.CandleLimit)
	if err != nil {
		p.Action = actionError
		p.Errors = append(p.Errors, "OHLCV_FETCH_FAILURE: "+err.Error())
		return false
	}
	r.snapshotFacts(&p, cycleID, state, symbol, r.Cfg.Engine.Timeframe, candles)

	regime, volatility := ClassifyRegime(candles)
	p.MarketRegime = regime
	p.Facts = append(p.Facts,
		"regime_15m="+regime,
		fmt.Sprintf("volatility=%.2f", volatility),
	)

	// Macro regimes (1h, 4h) for the directional veto.
	regime1h := r.macroRegime(ctx, &p, cycleID, state, symbol, "1h")
	regime4h := r.macroRegime(ctx, &p, cycleID, state, symbol, "4h")

	aligned, mtfReason := mtfAligned(regime, regime1h, regime4h)
	p.Facts = append(p.Facts,
		fmt.Sprintf("mtf_ok=%t", aligned),
		"mtf_reason="+mtfReason,
	)
	if !aligned {
		p.Action = actionSkipMTF
		return false
	}

	// Capital segregation and the dust gate.
	realized := capMgr.Update(equity)
	st := capMgr.State()
	sizing := capMgr.SafeCapital()
	p.Facts = append(p.Facts,
		"capital_cycle_id="+st.CycleID,
		fmt.Sprintf("base_capital=%.2f", st.BaseCapital),
		fmt.Sprintf("current_equity=%.2f", equity),
		fmt.Sprintf("realized_profit=%.2f", realized),
		fmt.Sprintf("sizing_capital=%.2f", sizing),
	)

	allow, decision, dustReason := r.dust.Evaluate(sizing)
	p.Facts = append(p.Facts, "capital_decision="+decision, "capital_reason="+dustReason)
	if !allow {
		p.Action = actionSkipDust
		return false
	}

	// Deterministic pre-trade risk gate.
	gateDecision := r.gate.PreTradeCheck(ctx, r.Market, symbol)
	for k, v := range gateDecision.Metrics {
		p.Facts = append(p.Facts, fmt.Sprintf("%s=%.4f", k, v))
	}
	if !gateDecision.OK {
		p.Action = actionSkipRiskGate
		p.Facts = append(p.Facts, "risk_gate_reason="+gateDecision.Reason)
		return false
	}

	// Only a bullish, aligned market produces a buy intent; everything
	// else is a logged skip.
	if regime != RegimeBullTrend {
		p.Facts = append(p.Facts, "no_entry_signal=true")
		return false
	}

	last := candles[len(candles)-1].Close
	if last <= 0 {
		p.Action = actionError
		p.Errors = append(p.Errors, "BAD_LAST_CLOSE")
		return false
	}

	ticket := intent.Ticket{
		TicketID:  id.New(),
		Symbol:    symbol,
		Action:    intent.Buy,
		OrderType: intent.Market,
		Quantity:  sizing / last,
		Reason:    "BULL_REGIME_ALIGNED",
		Regime:    regime,
	}
	p.Intent = &ticket

	verdict := r.Auditor.Audit(ctx, ticket, regime)
	p.AIReason = verdict.Reason
	p.Facts = append(p.Facts,
		"ai_path="+verdict.Path,
		fmt.Sprintf("ai_via_fallback=%t", verdict.ViaFallback),
	)
	if !verdict.Approved {
		p.AIResult = "REJECTED"
		p.Action = actionVetoed
		return false
	}
	p.AIResult = "APPROVED"

	// Execution guard: pessimistic simulated fill.
	ticker, err := r.Market.FetchTicker(ctx, symbol)
	if err != nil || ticker.Ask <= 0 {
		p.Action = actionError
		p.Errors = append(p.Errors, "TICKER_UNAVAILABLE_AT_EXECUTION")
		return false
	}

	atr := decimal.NewFromFloat(volatility * last / 100)
	asks := sim.LevelsFromFloats([][2]float64{{ticker.Ask, ticket.Quantity * 2}})
	vwap := r.simulator.VWAPBuy(asks, decimal.NewFromFloat(sizing))
	if vwap.IsZero() {
		p.Action = actionSkip
		p.Facts = append(p.Facts, "no_liquidity=true")
		return false
	}

	qty, execPrice := r.simulator.SimulateBuy(vwap, decimal.NewFromFloat(sizing), atr)
	p.Action = actionExecuted
	p.OrderResult = map[string]string{
		"status":     "SIMULATED",
		"fill_price": execPrice.StringFixed(8),
		"quantity":   qty.StringFixed(8),
	}
	r.Logger.Printf("[CYCLE %s] %s simulated fill qty=%s @ %s", cycleID, symbol, qty.StringFixed(8), execPrice.StringFixed(8))
	return true
}

// macroRegime fetches and classifies one macro timeframe, appending its
// snapshot hash and label to the decision facts. Fetch failure yields
// UNKNOWN, which the MTF veto treats as missing data.
func (r *Runner) macroRegime(ctx context.Context, p *forensic.BuildParams, cycleID, state, symbol, timeframe string) string {
	candles, err := r.Market.FetchOHLCV(ctx, symbol, timeframe, r.Cfg.Engine.CandleLimit)
	if err != nil {
		p.Facts = append(p.Facts, "regime_"+timeframe+"="+RegimeUnknown)
		return RegimeUnknown
	}
	r.snapshotFacts(p, cycleID, state, symbol, timeframe, candles)
	regime, _ := ClassifyRegime(candles)
	p.Facts = append(p.Facts, "regime_"+timeframe+"="+regime)
	return regime
}

// snapshotFacts persists OHLCV evidence and threads its hash into the
// decision facts, linking evidence to decision.
func (r *Runner) snapshotFacts(p *forensic.BuildParams, cycleID, state, symbol, timeframe string, candles []market.Candle) {
	path, hash := r.Trail.SaveSnapshot(cycleID, state, symbol, timeframe, r.Cfg.Engine.CandleLimit, candles)
	if path != "" {
		p.Facts = append(p.Facts,
			"ohlcv_"+timeframe+"_path="+path,
			"ohlcv_"+timeframe+"_hash="+hash,
		)
	}
}

func (r *Runner) record(ctx context.Context, p forensic.BuildParams) {
	r.decisions.WithLabelValues(p.Action).Inc()
	r.Trail.Write(ctx, forensic.BuildRecord(p))
}
