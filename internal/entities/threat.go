package entities

// ThreatHistory is what the report store knows about an address.
type ThreatHistory struct {
	Address         string `json:"address"`
	VerifiedReports int    `json:"verifiedReports"`
	IsBlacklisted   bool   `json:"isBlacklisted"`
}
