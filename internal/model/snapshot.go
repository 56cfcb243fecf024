package model

// Snapshot is the read-only account view handed to the presentation layer.
type Snapshot struct {
	Symbol         string
	Name           string
	InitialCapital float64
	Cash           float64
	Positions      []Position
	Trades         []Trade
	PositionValue  float64 // valued at entry price, not market price
	TotalValue     float64
	BuyCount       int
	SellCount      int
}
