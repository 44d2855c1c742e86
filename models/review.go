package models

import "time"

// Review conclusions.
const (
	ConclusionApproved    = "approved"
	ConclusionConditional = "conditional"
	ConclusionRejected    = "rejected"
)

// Meeting types on a review assignment.
const (
	MeetingOffline = "offline"
	MeetingOnline  = "online"
	MeetingNone    = "none"
)

// Review assignment lifecycle.
const (
	AssignmentActive    = "active"
	AssignmentCompleted = "completed"
	AssignmentCancelled = "cancelled"
)

// Review record lifecycle.
const (
	ReviewPending   = "pending"
	ReviewCompleted = "completed"
)

// ReviewerRef is the reviewer list entry embedded in an assignment.
type ReviewerRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// ReviewAssignment records which reviewers were chosen for a review cycle
// plus optional meeting logistics. At most one active assignment exists per
// algorithm; a rejected confirmation cancels it.
type ReviewAssignment struct {
	AssignmentID       uint          `gorm:"primaryKey;column:assignment_id" json:"assignment_id"`
	AlgorithmID        uint          `gorm:"column:algorithm_id;index" json:"algorithm_id"`
	MeetingType        string        `gorm:"column:meeting_type" json:"meeting_type"`
	MeetingTime        *time.Time    `gorm:"column:meeting_time" json:"meeting_time,omitempty"`
	MeetingDescription *string       `gorm:"column:meeting_description" json:"meeting_description,omitempty"`
	Reviewers          []ReviewerRef `gorm:"column:reviewers;serializer:json;type:text" json:"reviewers"`
	InitiatedBy        uint          `gorm:"column:initiated_by" json:"initiated_by"`
	InitiatedAt        time.Time     `gorm:"column:initiated_at" json:"initiated_at"`
	Status             string        `gorm:"column:status" json:"status"`
}

// TableName specifies the table name for ReviewAssignment.
func (ReviewAssignment) TableName() string {
	return "review_assignments"
}

// ReviewRecord is one reviewer's conclusion for one algorithm in the current
// cycle. Created pending when the reviewer is assigned, finalized by
// SubmitReview. One record per (algorithm, reviewer).
type ReviewRecord struct {
	ReviewID     uint       `gorm:"primaryKey;column:review_id" json:"review_id"`
	AlgorithmID  uint       `gorm:"column:algorithm_id;uniqueIndex:uq_algorithm_reviewer" json:"algorithm_id"`
	ReviewerID   uint       `gorm:"column:reviewer_id;uniqueIndex:uq_algorithm_reviewer" json:"reviewer_id"`
	ReviewerName string     `gorm:"column:reviewer_name" json:"reviewer_name"`
	AssignedBy   uint       `gorm:"column:assigned_by" json:"assigned_by"`
	AssignedAt   time.Time  `gorm:"column:assigned_at" json:"assigned_at"`
	CompletedAt  *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Status       string     `gorm:"column:status" json:"status"`
	Conclusion   *string    `gorm:"column:conclusion" json:"conclusion,omitempty"`
	Comments     *string    `gorm:"column:comments;type:text" json:"comments,omitempty"`

	Algorithm *Algorithm `gorm:"foreignKey:AlgorithmID;references:AlgorithmID" json:"algorithm,omitempty"`
}

// TableName specifies the table name for ReviewRecord.
func (ReviewRecord) TableName() string {
	return "review_records"
}
