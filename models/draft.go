package models

import "time"

// AlgorithmDraft is a pre-submission scratch copy owned by the editing UI.
// Drafts carry no workflow state; submitting one goes through the workflow
// service which creates an Algorithm from the draft's fields.
type AlgorithmDraft struct {
	DraftID uint `gorm:"primaryKey;column:draft_id" json:"draft_id"`
	OwnerID uint `gorm:"column:owner_id;index" json:"owner_id"`

	Name        string   `gorm:"column:name" json:"name"`
	Category    string   `gorm:"column:category" json:"category"`
	SubCategory string   `gorm:"column:sub_category" json:"sub_category"`
	Tags        []string `gorm:"column:tags;serializer:json;type:text" json:"tags"`
	Description string   `gorm:"column:description;type:text" json:"description"`

	Preprocessing      []string `gorm:"column:preprocessing;serializer:json;type:text" json:"preprocessing"`
	FeatureEngineering []string `gorm:"column:feature_engineering;serializer:json;type:text" json:"feature_engineering"`
	ModelStructure     string   `gorm:"column:model_structure;type:text" json:"model_structure"`
	PostProcessing     []string `gorm:"column:post_processing;serializer:json;type:text" json:"post_processing"`
	ExceptionHandling  []string `gorm:"column:exception_handling;serializer:json;type:text" json:"exception_handling"`

	InteractionMethod    string   `gorm:"column:interaction_method" json:"interaction_method"`
	DeploymentMethods    []string `gorm:"column:deployment_methods;serializer:json;type:text" json:"deployment_methods"`
	Dependencies         []string `gorm:"column:dependencies;serializer:json;type:text" json:"dependencies"`
	ResourceRequirements string   `gorm:"column:resource_requirements;type:text" json:"resource_requirements"`

	InputDataSource string `gorm:"column:input_data_source" json:"input_data_source"`
	InputDataType   string `gorm:"column:input_data_type" json:"input_data_type"`
	OutputSchema    string `gorm:"column:output_schema;type:text" json:"output_schema"`

	ApplicableScenarios string   `gorm:"column:applicable_scenarios;type:text" json:"applicable_scenarios"`
	TargetUsers         []string `gorm:"column:target_users;serializer:json;type:text" json:"target_users"`

	// Attachment names only; the files themselves live outside this service.
	Attachments []string `gorm:"column:attachments;serializer:json;type:text" json:"attachments"`

	CreateAt time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt time.Time `gorm:"column:update_at" json:"update_at"`
}

// TableName specifies the table for AlgorithmDraft.
func (AlgorithmDraft) TableName() string {
	return "algorithm_drafts"
}
