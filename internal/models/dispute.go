// internal/models/dispute.go
package models

import "time"

// Bureau identifies one of the three consumer credit bureaus.
type Bureau string

const (
	BureauEquifax    Bureau = "equifax"
	BureauExperian   Bureau = "experian"
	BureauTransUnion Bureau = "transunion"
	BureauAll        Bureau = "all"
)

// IndividualBureaus is the full bureau set in canonical order.
var IndividualBureaus = []Bureau{BureauEquifax, BureauExperian, BureauTransUnion}

type Dispute struct {
	ID               string `json:"id"`
	ClientID         string `json:"clientId"`
	Bureau           string `json:"bureau,omitempty"`
	DisputeType      string `json:"disputeType"`
	AccountName      string `json:"accountName,omitempty"`
	AccountNumber    string `json:"accountNumber,omitempty"`
	DisputeReason    string `json:"disputeReason,omitempty"`
	RoundNumber      int    `json:"roundNumber"`
	Status           string `json:"status,omitempty"`
	InquiryDate      string `json:"inquiryDate,omitempty"`
	CollectionAmount string `json:"collectionAmount,omitempty"`
	ChargeOffAmount  string `json:"chargeOffAmount,omitempty"`
	ChargeOffDate    string `json:"chargeOffDate,omitempty"`
	LatePaymentDates string `json:"latePaymentDates,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
}

// TargetingRuleKind dispatches relevance matching.
type TargetingRuleKind string

const (
	RuleDisputeTypeBased   TargetingRuleKind = "dispute_type_based"
	RuleAccountBased       TargetingRuleKind = "account_based"
	RuleClientHistoryBased TargetingRuleKind = "client_history_based"
)

// TargetingRule maps dispute characteristics to a bureau set.
type TargetingRule struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Kind               TargetingRuleKind `json:"kind"`
	DisputeTypes       []string          `json:"disputeTypes,omitempty"`
	AccountKeywords    []string          `json:"accountKeywords,omitempty"`
	MaxAvgDisputes     float64           `json:"maxAvgDisputes,omitempty"`
	RecommendedBureaus []string          `json:"recommendedBureaus"`
	ConfidenceScore    float64           `json:"confidenceScore"`
	SuccessHistory     int               `json:"successHistory"`
	TotalApplications  int               `json:"totalApplications"`
	Active             bool              `json:"active"`
}

// TargetingHistory carries the client-level stats history-based rules need.
type TargetingHistory struct {
	AvgDisputesPerMonth float64 `json:"avgDisputesPerMonth"`
}

// BureauRecommendation is the outcome of bureau targeting.
type BureauRecommendation struct {
	RecommendedBureaus []string `json:"recommendedBureaus"`
	Confidence         float64  `json:"confidenceScore"`
	RuleApplied        string   `json:"ruleApplied"`
	Alternatives       []string `json:"alternatives,omitempty"`
	Reasoning          []string `json:"reasoning,omitempty"`
}

// SchedulingRule constrains the wait before a specific dispute round.
type SchedulingRule struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	RoundNumber      int    `json:"roundNumber"`
	MinWaitDays      int    `json:"minWaitDays"`
	MaxWaitDays      int    `json:"maxWaitDays"`
	FollowUpStrategy string `json:"followUpStrategy,omitempty"`
	Active           bool   `json:"active"`
}

// RoundSchedule is the plan for the next dispute round.
type RoundSchedule struct {
	NextRound                   int       `json:"nextRound"`
	ScheduledDate               time.Time `json:"scheduledDate"`
	RuleApplied                 string    `json:"ruleApplied"`
	FollowUpStrategy            string    `json:"followUpStrategy"`
	TaskID                      string    `json:"taskId,omitempty"`
	EstimatedSuccessProbability float64   `json:"estimatedSuccessProbability"`
}
