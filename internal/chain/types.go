package chain

// ExpiryLayout is the broker's expiry date format.
const ExpiryLayout = "2006-01-02"

// Quote holds price and greeks for one side of a strike.
type Quote struct {
	LTP    float64 `json:"ltp" yaml:"ltp"`
	Bid    float64 `json:"bid" yaml:"bid"`
	Ask    float64 `json:"ask" yaml:"ask"`
	Volume float64 `json:"volume" yaml:"volume"`
	OI     float64 `json:"oi" yaml:"oi"`
	IV     float64 `json:"iv" yaml:"iv"`
	Delta  float64 `json:"delta" yaml:"delta"`
	Gamma  float64 `json:"gamma" yaml:"gamma"`
	Theta  float64 `json:"theta" yaml:"theta"`
	Vega   float64 `json:"vega" yaml:"vega"`
}

type OptionLeg struct {
	Strike float64 `json:"strike" yaml:"strike"`
	Call   Quote   `json:"call" yaml:"call"`
	Put    Quote   `json:"put" yaml:"put"`
}

// Snapshot is a normalized chain window centred on the underlying price.
// Legs are strictly ascending by strike.
type Snapshot struct {
	UnderlyingPrice   float64     `json:"underlying_price" yaml:"underlying_price"`
	ClosestStrike     float64     `json:"closest_strike" yaml:"closest_strike"`
	TotalStrikesShown int         `json:"total_strikes_shown" yaml:"total_strikes_shown"`
	Legs              []OptionLeg `json:"option_chain" yaml:"option_chain"`
}

// RawChain is the broker option chain response.
type RawChain struct {
	Status string        `json:"status"`
	Data   *RawChainData `json:"data"`
}

type RawChainData struct {
	LastPrice *float64             `json:"last_price"`
	OC        map[string]RawStrike `json:"oc"`
}

type RawStrike struct {
	CE *RawOption `json:"ce,omitempty"`
	PE *RawOption `json:"pe,omitempty"`
}

type RawOption struct {
	LastPrice         float64   `json:"last_price"`
	TopBidPrice       float64   `json:"top_bid_price"`
	TopAskPrice       float64   `json:"top_ask_price"`
	Volume            float64   `json:"volume"`
	OI                float64   `json:"oi"`
	ImpliedVolatility float64   `json:"implied_volatility"`
	Greeks            RawGreeks `json:"greeks"`
}

type RawGreeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}
