package domain

import "time"

// ContextSnapshot is the pre-fetched bundle of indicators an external
// collaborator assembles per instrument per cycle. The core treats it
// as read-only input; agents pick the slices they understand.
type ContextSnapshot struct {
	Instrument string    `json:"instrument" msgpack:"instrument"`
	Timestamp  time.Time `json:"timestamp" msgpack:"timestamp"`

	Market        MarketIndicators        `json:"market" msgpack:"market"`
	Macro         MacroIndicators         `json:"macro" msgpack:"macro"`
	Institutional InstitutionalIndicators `json:"institutional" msgpack:"institutional"`
	News          SentimentIndicators     `json:"news" msgpack:"news"`
	Social        SentimentIndicators     `json:"social" msgpack:"social"`
}

// MarketIndicators carries price, volume and fundamental data.
type MarketIndicators struct {
	CurrentPrice  float64 `json:"current_price" msgpack:"current_price"`
	PrevClose     float64 `json:"prev_close" msgpack:"prev_close"`
	Volume        float64 `json:"volume" msgpack:"volume"`
	AvgVolume30D  float64 `json:"avg_volume_30d" msgpack:"avg_volume_30d"`
	High52W       float64 `json:"high_52w" msgpack:"high_52w"`
	Low52W        float64 `json:"low_52w" msgpack:"low_52w"`
	PERatio       float64 `json:"pe_ratio" msgpack:"pe_ratio"`
	RevenueGrowth float64 `json:"revenue_growth" msgpack:"revenue_growth"`
	ProfitMargin  float64 `json:"profit_margin" msgpack:"profit_margin"`
	DividendYield float64 `json:"dividend_yield" msgpack:"dividend_yield"`
	Beta          float64 `json:"beta" msgpack:"beta"`
	Sector        string  `json:"sector" msgpack:"sector"`
	// Daily closes, oldest first. Technical agents require enough
	// history for their longest lookback (200 periods).
	PriceHistory []float64 `json:"price_history" msgpack:"price_history"`
	// Daily returns, oldest first.
	Returns []float64 `json:"returns" msgpack:"returns"`
}

// MacroIndicators carries the macroeconomic backdrop.
type MacroIndicators struct {
	FedRate        float64 `json:"fed_rate" msgpack:"fed_rate"`
	FedDirection   string  `json:"fed_direction" msgpack:"fed_direction"` // HIKING, HOLDING, CUTTING
	CPIYoY         float64 `json:"cpi_yoy" msgpack:"cpi_yoy"`
	GDPGrowth      float64 `json:"gdp_growth" msgpack:"gdp_growth"`
	YieldCurve     float64 `json:"yield_curve" msgpack:"yield_curve"` // 10y-2y spread
	DollarIndex    float64 `json:"dxy" msgpack:"dxy"`
	DollarChange3M float64 `json:"dxy_change_3m" msgpack:"dxy_change_3m"`
}

// InstitutionalIndicators tracks smart-money positioning.
type InstitutionalIndicators struct {
	Ownership           float64 `json:"ownership" msgpack:"ownership"`
	OwnershipChangeQoQ  float64 `json:"ownership_change_qoq" msgpack:"ownership_change_qoq"`
	InsiderOwnership    float64 `json:"insider_ownership" msgpack:"insider_ownership"`
	InsiderBuySellRatio float64 `json:"insider_buy_sell_ratio" msgpack:"insider_buy_sell_ratio"`
}

// SentimentIndicators is a pre-scored sentiment slice (news or social).
// Score is in [-1, 1]; Volume is the number of scored items.
type SentimentIndicators struct {
	Score  float64 `json:"score" msgpack:"score"`
	Volume int     `json:"volume" msgpack:"volume"`
}
