package types

import "time"

// YieldToken is a yield-bearing token registered with an Alchemist. One row
// per (token, network) pair for the lifetime of the deployment.
type YieldToken struct {
	TokenAddress    string
	Network         string
	BlockNumber     uint64
	TransactionHash string
	LogIndex        uint64
	CreatedAt       time.Time
}

// Depositor is the running position of a user in a yield token. Numeric
// amounts are stored as strings to preserve full uint256 precision; the
// accumulated earnings and donations are floats by design of the share math.
type Depositor struct {
	DepositorAddress           string
	YieldTokenAddress          string
	Network                    string
	YieldTokenAmount           string
	TotalUnderlyingTokenEarned float64
	TotalDonationReceived      float64
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// HarvestEvent is one Harvest log. Id is "<transactionHash>_<logIndex>" so a
// replayed log collides on the primary key instead of double counting.
type HarvestEvent struct {
	Id                string
	YieldTokenAddress string
	TotalHarvested    string
	Credit            string
	BlockNumber       uint64
	TransactionHash   string
	LogIndex          uint64
	Network           string
	CreatedAt         time.Time
}

// UserHarvestShare is one depositor's slice of a harvest, with the share
// balances captured at the event's block.
type UserHarvestShare struct {
	Id                   string
	HarvestEventId       string
	DepositorAddress     string
	YieldTokenAddress    string
	Shares               string
	TotalAlchemistShares string
	Earnings             float64
	BlockNumber          uint64
	Network              string
	CreatedAt            time.Time
}

// DonateEvent is one Donate log, keyed the same way as HarvestEvent.
type DonateEvent struct {
	Id                string
	SenderAddress     string
	YieldTokenAddress string
	DebtTokensBurned  string
	BlockNumber       uint64
	TransactionHash   string
	LogIndex          uint64
	Network           string
	CreatedAt         time.Time
}

// UserDonateShare is one depositor's slice of a donation.
type UserDonateShare struct {
	Id                   string
	DonateEventId        string
	DepositorAddress     string
	YieldTokenAddress    string
	Shares               string
	TotalAlchemistShares string
	DonationReceived     float64
	BlockNumber          uint64
	Network              string
	CreatedAt            time.Time
}
