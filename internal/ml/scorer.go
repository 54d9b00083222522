package ml

// ---------------------------------------------------------------------------
// Scorer — pluggable rug-risk / profit-potential estimator
// ---------------------------------------------------------------------------

// Scores is the scorer output, each value in [0, 100].
type Scores struct {
	RugRisk         float64 `json:"rug_risk"`
	ProfitPotential float64 `json:"profit_potential"`
	Confidence      float64 `json:"confidence"`
}

// Scorer estimates rug risk and profit potential from the indicator map.
type Scorer interface {
	Predict(indicators Indicators) Scores
}

// Heuristic is a deterministic stand-in scorer. The original system used
// synthetically trained models here; this keeps the same interface with
// reproducible outputs so the rest of the pipeline can be exercised.
type Heuristic struct{}

var _ Scorer = (*Heuristic)(nil)

// NewHeuristic creates the stand-in scorer.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Predict derives scores from the strongest indicator signals.
func (h *Heuristic) Predict(ind Indicators) Scores {
	risk := 0.0

	if ind["can_sell"] == 0 {
		risk += 50
	}
	if ind["contract_verified"] == 0 {
		risk += 10
	}
	if ind["ownership_renounced"] == 0 {
		risk += 8
	}
	if ind["has_mint_function"] == 1 {
		risk += 10
	}
	if ind["has_blacklist_function"] == 1 {
		risk += 10
	}
	if ind["has_proxy_pattern"] == 1 {
		risk += 5
	}
	risk += clamp(ind["sell_tax_real"], 0, 20)
	risk += clamp(ind["owner_balance_percent"]/4, 0, 15)
	if ind["liquidity_usd"] < 5000 {
		risk += 15
	}

	profit := 30.0
	liq := ind["liquidity_usd"]
	switch {
	case liq >= 100_000:
		profit += 25
	case liq >= 25_000:
		profit += 15
	case liq >= 10_000:
		profit += 8
	}
	buys, sells := ind["buy_count_5min"], ind["sell_count_5min"]
	if sells > 0 && buys/sells > 2 {
		profit += 20
	} else if buys > sells {
		profit += 10
	}
	if ind["unique_buyers_5min"] > 20 {
		profit += 10
	}
	profit -= clamp(risk/4, 0, 25)

	// Confidence tracks how much of the contract is actually populated.
	populated := 0
	for _, k := range IndicatorKeys {
		if ind[k] != 0 {
			populated++
		}
	}
	confidence := clamp(40+float64(populated)*1.5, 0, 95)

	return Scores{
		RugRisk:         clamp(risk, 0, 100),
		ProfitPotential: clamp(profit, 0, 100),
		Confidence:      confidence,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
