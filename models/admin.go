package models

// Overview holds the dashboard totals
type Overview struct {
	TotalReports      int64 `json:"totalReports"`
	TotalUsers        int64 `json:"totalUsers"`
	PendingReports    int64 `json:"pendingReports"`
	ValidReports      int64 `json:"validReports"`
	InvalidReports    int64 `json:"invalidReports"`
	InProgressReports int64 `json:"inProgressReports"`
	ClearedReports    int64 `json:"clearedReports"`
}

// DailyCount is one bar of the weekly chart
type DailyCount struct {
	Date  string `json:"date" bson:"_id"`
	Count int    `json:"count" bson:"count"`
}

// DistributionSlice is one slice of the breeding type pie chart
type DistributionSlice struct {
	Name  string `json:"name" bson:"_id"`
	Value int    `json:"value" bson:"count"`
}

// AreaStats is the raw per-location aggregation used to compute risk
type AreaStats struct {
	Location          Location `bson:"_id"`
	ReportCount       int      `bson:"reportCount"`
	HighSeverityCount int      `bson:"highSeverityCount"`
	ValidCount        int      `bson:"validCount"`
}

// AreaRisk is a scored area for the risk table
type AreaRisk struct {
	Location    Location `json:"location"`
	ReportCount int      `json:"reportCount"`
	RiskLevel   Severity `json:"riskLevel"`
	RiskScore   int      `json:"riskScore"`
}
