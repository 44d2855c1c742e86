package models

import "time"

// Algorithm status values. See services.Transitions for the legal moves
// between them.
const (
	StatusDraft               = "draft"
	StatusPendingReview       = "pending_review"
	StatusUnderReview         = "under_review"
	StatusPendingConfirmation = "pending_confirmation"
	StatusPendingProduct      = "pending_product"
	StatusPendingFrontend     = "pending_frontend"
	StatusLive                = "live"
	StatusDeprecated          = "deprecated"
)

// Interaction methods accepted on submission.
const (
	InteractionAPI       = "api"
	InteractionBatch     = "batch"
	InteractionComponent = "component"
)

// Algorithm is an algorithm asset moving through the review pipeline.
// Reviewer id sets are stored as JSON columns; completed_reviewers is always
// a subset of assigned_reviewers and both are owned exclusively by the
// workflow service.
type Algorithm struct {
	AlgorithmID uint   `gorm:"primaryKey;column:algorithm_id" json:"algorithm_id"`
	AssetCode   string `gorm:"column:asset_code;unique" json:"asset_code"`

	Name        string   `gorm:"column:name" json:"name"`
	Category    string   `gorm:"column:category" json:"category"`
	SubCategory string   `gorm:"column:sub_category" json:"sub_category"`
	Tags        []string `gorm:"column:tags;serializer:json;type:text" json:"tags"`
	Description string   `gorm:"column:description;type:text" json:"description"`

	Status  string `gorm:"column:status;index" json:"status"`
	OwnerID uint   `gorm:"column:owner_id;index" json:"owner_id"`

	ApplicableScenarios string   `gorm:"column:applicable_scenarios;type:text" json:"applicable_scenarios"`
	TargetUsers         []string `gorm:"column:target_users;serializer:json;type:text" json:"target_users"`
	InteractionMethod   string   `gorm:"column:interaction_method" json:"interaction_method"`
	InputDataSource     string   `gorm:"column:input_data_source" json:"input_data_source"`
	InputDataType       string   `gorm:"column:input_data_type" json:"input_data_type"`
	OutputSchema        string   `gorm:"column:output_schema;type:text" json:"output_schema"`

	ResourceRequirements string `gorm:"column:resource_requirements;type:text" json:"resource_requirements"`
	DeploymentProcess    string `gorm:"column:deployment_process;type:text" json:"deployment_process"`
	PseudoCode           string `gorm:"column:pseudo_code;type:text" json:"pseudo_code"`
	APIExample           string `gorm:"column:api_example;type:text" json:"api_example"`

	CurrentApproverID  *uint  `gorm:"column:current_approver_id" json:"current_approver_id,omitempty"`
	AssignedReviewers  []uint `gorm:"column:assigned_reviewers;serializer:json;type:text" json:"assigned_reviewers"`
	CompletedReviewers []uint `gorm:"column:completed_reviewers;serializer:json;type:text" json:"completed_reviewers"`

	CallCount  int     `gorm:"column:call_count" json:"call_count"`
	Rating     float64 `gorm:"column:rating" json:"rating"`
	Popularity int     `gorm:"column:popularity" json:"popularity"`

	// Version increases on every workflow mutation; updates carry the loaded
	// version in the WHERE clause so stale writers lose.
	Version  uint64     `gorm:"column:version" json:"version"`
	CreateAt time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt time.Time  `gorm:"column:update_at" json:"update_at"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Owner         *User             `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	ReviewRecords []ReviewRecord    `gorm:"foreignKey:AlgorithmID" json:"review_records,omitempty"`
	Assignment    *ReviewAssignment `gorm:"foreignKey:AlgorithmID" json:"review_assignment,omitempty"`
}

// TableName overrides
func (Algorithm) TableName() string {
	return "algorithms"
}

// HasAssignedReviewer reports whether the reviewer is in the current cycle.
func (a *Algorithm) HasAssignedReviewer(reviewerID uint) bool {
	for _, id := range a.AssignedReviewers {
		if id == reviewerID {
			return true
		}
	}
	return false
}

// HasCompletedReviewer reports whether the reviewer already concluded.
func (a *Algorithm) HasCompletedReviewer(reviewerID uint) bool {
	for _, id := range a.CompletedReviewers {
		if id == reviewerID {
			return true
		}
	}
	return false
}

// AllReviewsCompleted reports whether every assigned reviewer has concluded.
func (a *Algorithm) AllReviewsCompleted() bool {
	if len(a.AssignedReviewers) == 0 {
		return false
	}
	return len(a.CompletedReviewers) == len(a.AssignedReviewers)
}
