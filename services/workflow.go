package services

import (
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"algo-asset-api/models"
	"algo-asset-api/utils"
)

// The workflow service owns every mutation of an algorithm's review state.
// Mutations on one algorithm are serialized two ways: a per-id lock table
// for writers inside this process, and a version column checked in the
// UPDATE's WHERE clause so a stale writer from another replica gets
// ErrConflict instead of clobbering.

type algorithmLock struct {
	mu   sync.Mutex
	refs int
}

var (
	algorithmLocksMu sync.Mutex
	algorithmLocks   = map[uint]*algorithmLock{}
)

// lockAlgorithm serializes writers on one algorithm id. Entries are
// refcounted and evicted on the last release so the table stays bounded by
// the number of in-flight mutations.
func lockAlgorithm(id uint) func() {
	algorithmLocksMu.Lock()
	l, ok := algorithmLocks[id]
	if !ok {
		l = &algorithmLock{}
		algorithmLocks[id] = l
	}
	l.refs++
	algorithmLocksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		algorithmLocksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(algorithmLocks, id)
		}
		algorithmLocksMu.Unlock()
	}
}

/* ==========================
   Shared helpers
   ========================== */

func loadAlgorithm(tx *gorm.DB, id uint) (*models.Algorithm, error) {
	var alg models.Algorithm
	err := tx.Where("algorithm_id = ? AND delete_at IS NULL", id).First(&alg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAlgorithmNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	return &alg, nil
}

func loadUser(tx *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	err := tx.Where("user_id = ? AND delete_at IS NULL", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	return &user, nil
}

// saveAlgorithm writes the given columns with an optimistic version check.
// The loaded version must still be current or the write is rejected.
func saveAlgorithm(tx *gorm.DB, alg *models.Algorithm, columns ...string) error {
	prev := alg.Version
	alg.Version = prev + 1
	alg.UpdateAt = time.Now()

	res := tx.Model(&models.Algorithm{}).
		Where("algorithm_id = ? AND version = ?", alg.AlgorithmID, prev).
		Select(append(columns, "version", "update_at")).
		Updates(alg)
	if res.Error != nil {
		return storageError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func appendStatusHistory(tx *gorm.DB, algorithmID uint, oldStatus *string, newStatus string, changedBy uint, reason *string) error {
	entry := models.AlgorithmStatusHistory{
		AlgorithmID: algorithmID,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
		ChangedBy:   changedBy,
		Reason:      reason,
		CreatedAt:   time.Now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return storageError(err)
	}
	return nil
}

/* ==========================
   Submit
   ========================== */

// SubmitInput is the full submission payload from the apply wizard.
type SubmitInput struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	SubCategory string   `json:"sub_category"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`

	ApplicableScenarios string   `json:"applicable_scenarios"`
	TargetUsers         []string `json:"target_users"`
	InteractionMethod   string   `json:"interaction_method"`

	Preprocessing      []string `json:"preprocessing"`
	FeatureEngineering []string `json:"feature_engineering"`
	ModelStructure     string   `json:"model_structure"`
	PostProcessing     []string `json:"post_processing"`
	ExceptionHandling  []string `json:"exception_handling"`

	DeploymentMethods    []string `json:"deployment_methods"`
	Dependencies         []string `json:"dependencies"`
	ResourceRequirements string   `json:"resource_requirements"`

	InputDataSource string `json:"input_data_source"`
	InputDataType   string `json:"input_data_type"`
	OutputSchema    string `json:"output_schema"`
}

// Validate performs the structural checks of the submission form. No deep
// business validation happens here.
func (in *SubmitInput) Validate() error {
	var issues []string

	if strings.TrimSpace(in.Name) == "" {
		issues = append(issues, "name is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		issues = append(issues, "category is required")
	}
	if strings.TrimSpace(in.SubCategory) == "" {
		issues = append(issues, "sub_category is required")
	}
	if len(in.Tags) == 0 {
		issues = append(issues, "at least one tag is required")
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(in.Description)); n < 10 || n > 100 {
		issues = append(issues, "description must be 10-100 characters")
	}
	switch in.InteractionMethod {
	case models.InteractionAPI, models.InteractionBatch, models.InteractionComponent:
	default:
		issues = append(issues, "interaction_method must be api, batch or component")
	}
	if len(in.DeploymentMethods) == 0 {
		issues = append(issues, "at least one deployment method is required")
	}
	if len(in.TargetUsers) == 0 {
		issues = append(issues, "at least one target user group is required")
	}
	if strings.TrimSpace(in.InputDataSource) == "" {
		issues = append(issues, "input_data_source is required")
	}
	if strings.TrimSpace(in.InputDataType) == "" {
		issues = append(issues, "input_data_type is required")
	}
	if strings.TrimSpace(in.OutputSchema) == "" {
		issues = append(issues, "output_schema is required")
	}
	if strings.TrimSpace(in.ResourceRequirements) == "" {
		issues = append(issues, "resource_requirements is required")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "无"
	}
	return strings.Join(items, ", ")
}

func textOrNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "无"
	}
	return s
}

// buildPseudoCode renders the human-readable logic summary shown on the
// detail page, concatenated from the wizard's structured selections.
func buildPseudoCode(in *SubmitInput) string {
	return "算法逻辑结构：\n" +
		"预处理: " + joinOrNone(in.Preprocessing) + "\n" +
		"特征工程: " + joinOrNone(in.FeatureEngineering) + "\n" +
		"模型结构: " + textOrNone(in.ModelStructure) + "\n" +
		"后处理: " + joinOrNone(in.PostProcessing) + "\n" +
		"异常处理: " + joinOrNone(in.ExceptionHandling)
}

func buildAPIExample(in *SubmitInput) string {
	return "调用方式: " + in.InteractionMethod + "\n" +
		"输入数据源: " + in.InputDataSource + "\n" +
		"输入数据类型: " + in.InputDataType + "\n" +
		"输出格式: " + in.OutputSchema
}

func applySubmitInput(alg *models.Algorithm, in *SubmitInput) {
	alg.Name = utils.SanitizeInput(in.Name)
	alg.Category = in.Category
	alg.SubCategory = in.SubCategory
	alg.Tags = in.Tags
	alg.Description = utils.SanitizeInput(in.Description)
	alg.ApplicableScenarios = utils.SanitizeInput(in.ApplicableScenarios)
	alg.TargetUsers = in.TargetUsers
	alg.InteractionMethod = in.InteractionMethod
	alg.InputDataSource = in.InputDataSource
	alg.InputDataType = in.InputDataType
	alg.OutputSchema = in.OutputSchema
	alg.ResourceRequirements = in.ResourceRequirements
	alg.DeploymentProcess = strings.Join(in.DeploymentMethods, ", ")
	alg.PseudoCode = buildPseudoCode(in)
	alg.APIExample = buildAPIExample(in)
}

// SubmitAlgorithm creates an algorithm in pending_review from the full
// wizard payload. It does not notify anyone; notification-on-submit is the
// presentation layer's call (see TemplateSubmitApplication).
func SubmitAlgorithm(db *gorm.DB, owner *models.User, in *SubmitInput) (*models.Algorithm, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	alg := &models.Algorithm{
		AssetCode:          uuid.NewString(),
		Status:             models.StatusPendingReview,
		OwnerID:            owner.UserID,
		AssignedReviewers:  []uint{},
		CompletedReviewers: []uint{},
		Version:            1,
		CreateAt:           now,
		UpdateAt:           now,
	}
	applySubmitInput(alg, in)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(alg).Error; err != nil {
			return storageError(err)
		}
		return appendStatusHistory(tx, alg.AlgorithmID, nil, alg.Status, owner.UserID, nil)
	})
	if err != nil {
		return nil, err
	}
	return alg, nil
}

// ResubmitAlgorithm moves a kicked-back algorithm from draft to
// pending_review. A non-nil payload replaces the form fields first so the
// owner can resubmit with revisions.
func ResubmitAlgorithm(db *gorm.DB, algorithmID uint, actor *models.User, in *SubmitInput) error {
	if in != nil {
		if err := in.Validate(); err != nil {
			return err
		}
	}

	unlock := lockAlgorithm(algorithmID)
	defer unlock()

	return db.Transaction(func(tx *gorm.DB) error {
		alg, err := loadAlgorithm(tx, algorithmID)
		if err != nil {
			return err
		}
		if alg.OwnerID != actor.UserID && !actor.HasAnyRole(models.RoleAdmin) {
			return ErrForbidden
		}
		if err := checkTransition(alg.Status, EventSubmit); err != nil {
			return err
		}

		old := alg.Status
		alg.Status = models.StatusPendingReview
		columns := []string{"status"}
		if in != nil {
			applySubmitInput(alg, in)
			columns = append(columns,
				"name", "category", "sub_category", "tags", "description",
				"applicable_scenarios", "target_users", "interaction_method",
				"input_data_source", "input_data_type", "output_schema",
				"resource_requirements", "deployment_process", "pseudo_code", "api_example")
		}
		if err := saveAlgorithm(tx, alg, columns...); err != nil {
			return err
		}
		return appendStatusHistory(tx, alg.AlgorithmID, &old, alg.Status, actor.UserID, nil)
	})
}

/* ==========================
   AssignReviewers
   ========================== */

// AssignInput carries the reviewer list and optional meeting logistics for a
// review cycle.
type AssignInput struct {
	MeetingType        string               `json:"meeting_type"`
	MeetingTime        *time.Time           `json:"meeting_time,omitempty"`
	MeetingDescription *string              `json:"meeting_description,omitempty"`
	Reviewers          []models.ReviewerRef `json:"reviewers"`
}

// AssignReviewers stores the assignment, creates one pending review record
// per reviewer, moves the algorithm to under_review and notifies every
// reviewer. Requires team lead or admin.
func AssignReviewers(db *gorm.DB, algorithmID uint, actor *models.User, in *AssignInput) error {
	if !actor.HasAnyRole(models.RoleTeamLead, models.RoleAdmin) {
		return ErrForbidden
	}

	meetingType := in.MeetingType
	if meetingType == "" {
		meetingType = models.MeetingNone
	}
	switch meetingType {
	case models.MeetingOffline, models.MeetingOnline, models.MeetingNone:
	default:
		return &ValidationError{Issues: []string{"meeting_type must be offline, online or none"}}
	}

	unlock := lockAlgorithm(algorithmID)
	defer unlock()

	var emails []pendingEmail
	err := db.Transaction(func(tx *gorm.DB) error {
		alg, err := loadAlgorithm(tx, algorithmID)
		if err != nil {
			return err
		}
		if len(in.Reviewers) == 0 {
			return ErrNoReviewersSelected
		}
		if err := checkTransition(alg.Status, EventAssignReviewers); err != nil {
			return err
		}

		// Dedupe reviewer ids while keeping order.
		seen := map[uint]bool{}
		ids := make([]uint, 0, len(in.Reviewers))
		for _, r := range in.Reviewers {
			if !seen[r.ID] {
				seen[r.ID] = true
				ids = append(ids, r.ID)
			}
		}

		var reviewers []models.User
		if err := tx.Where("user_id IN ? AND delete_at IS NULL", ids).Find(&reviewers).Error; err != nil {
			return storageError(err)
		}
		if len(reviewers) != len(ids) {
			return &ValidationError{Issues: []string{"assignment contains an unknown reviewer"}}
		}
		byID := make(map[uint]*models.User, len(reviewers))
		for i := range reviewers {
			byID[reviewers[i].UserID] = &reviewers[i]
		}

		now := time.Now()

		// A fresh cycle replaces any prior assignment and its records.
		if err := tx.Model(&models.ReviewAssignment{}).
			Where("algorithm_id = ? AND status = ?", algorithmID, models.AssignmentActive).
			Update("status", models.AssignmentCancelled).Error; err != nil {
			return storageError(err)
		}
		if err := tx.Where("algorithm_id = ?", algorithmID).Delete(&models.ReviewRecord{}).Error; err != nil {
			return storageError(err)
		}

		refs := make([]models.ReviewerRef, 0, len(ids))
		for _, id := range ids {
			u := byID[id]
			refs = append(refs, models.ReviewerRef{ID: u.UserID, Name: u.Name, Role: u.Role})
		}
		assignment := models.ReviewAssignment{
			AlgorithmID:        algorithmID,
			MeetingType:        meetingType,
			MeetingTime:        in.MeetingTime,
			MeetingDescription: in.MeetingDescription,
			Reviewers:          refs,
			InitiatedBy:        actor.UserID,
			InitiatedAt:        now,
			Status:             models.AssignmentActive,
		}
		if err := tx.Create(&assignment).Error; err != nil {
			return storageError(err)
		}

		for _, id := range ids {
			record := models.ReviewRecord{
				AlgorithmID:  algorithmID,
				ReviewerID:   id,
				ReviewerName: byID[id].Name,
				AssignedBy:   actor.UserID,
				AssignedAt:   now,
				Status:       models.ReviewPending,
			}
			if err := tx.Create(&record).Error; err != nil {
				return storageError(err)
			}
		}

		old := alg.Status
		actorID := actor.UserID
		alg.Status = models.StatusUnderReview
		alg.AssignedReviewers = ids
		alg.CompletedReviewers = []uint{}
		alg.CurrentApproverID = &actorID
		if err := saveAlgorithm(tx, alg,
			"status", "assigned_reviewers", "completed_reviewers", "current_approver_id"); err != nil {
			return err
		}
		if err := appendStatusHistory(tx, algorithmID, &old, alg.Status, actor.UserID, nil); err != nil {
			return err
		}

		deadline := AddBusinessDays(now, ReviewDeadlineBusinessDays).Format("2006-01-02")
		nc := TemplateAssignReview(alg.Name, deadline)
		for _, id := range ids {
			if _, err := createNotification(tx, byID[id], nc, &algorithmID); err != nil {
				return err
			}
			emails = queueEmail(emails, byID[id], nc)
		}
		return nil
	})
	if err != nil {
		return err
	}

	DeliverEmails(emails)
	return nil
}

/* ==========================
   SubmitReview
   ========================== */

// ReviewInput is one reviewer's conclusion. Detail carries the supplement
// requirements for a conditional conclusion or the rejection reason for a
// rejected one; it is mandatory for both.
type ReviewInput struct {
	Conclusion string `json:"conclusion"`
	Comments   string `json:"comments"`
	Detail     string `json:"detail"`
}

// buildReviewComments produces the stored comment text: the reviewer's
// comments prefixed with the requirement/rejection block where applicable.
func buildReviewComments(conclusion, detail, comments string) (string, error) {
	detail = strings.TrimSpace(detail)
	comments = strings.TrimSpace(comments)

	switch conclusion {
	case models.ConclusionConditional:
		if detail == "" {
			return "", ErrMissingComments
		}
		if comments == "" {
			return "需补充完善：" + detail, nil
		}
		return "需补充完善：" + detail + "\n\n" + comments, nil
	case models.ConclusionRejected:
		if detail == "" {
			return "", ErrMissingComments
		}
		if comments == "" {
			return "驳回原因：" + detail, nil
		}
		return "驳回原因：" + detail + "\n\n" + comments, nil
	default:
		return comments, nil
	}
}

// SubmitReview upserts the reviewer's record for the current cycle. A
// reviewer may revise their conclusion until confirmation; the completed set
// grows monotonically and never duplicates. When the last assigned reviewer
// concludes, the algorithm moves to pending_confirmation and the initiator
// is notified.
func SubmitReview(db *gorm.DB, algorithmID uint, reviewer *models.User, in *ReviewInput) error {
	unlock := lockAlgorithm(algorithmID)
	defer unlock()

	var emails []pendingEmail
	err := db.Transaction(func(tx *gorm.DB) error {
		alg, err := loadAlgorithm(tx, algorithmID)
		if err != nil {
			return err
		}
		if err := checkTransition(alg.Status, EventSubmitReview); err != nil {
			return err
		}
		if !alg.HasAssignedReviewer(reviewer.UserID) {
			return ErrReviewerNotAssigned
		}

		// Payload checks run after the state checks; a caller firing at the
		// wrong submission hears about that first.
		switch in.Conclusion {
		case models.ConclusionApproved, models.ConclusionConditional, models.ConclusionRejected:
		default:
			return &ValidationError{Issues: []string{"conclusion must be approved, conditional or rejected"}}
		}
		comments, err := buildReviewComments(in.Conclusion, in.Detail, in.Comments)
		if err != nil {
			return err
		}

		var record models.ReviewRecord
		err = tx.Where("algorithm_id = ? AND reviewer_id = ?", algorithmID, reviewer.UserID).
			First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Assignment and record creation are atomic, so a missing record
			// means the reviewer is from a stale cycle.
			return ErrReviewerNotAssigned
		}
		if err != nil {
			return storageError(err)
		}

		now := time.Now()
		conclusion := in.Conclusion
		record.Status = models.ReviewCompleted
		record.CompletedAt = &now
		record.Conclusion = &conclusion
		record.Comments = &comments
		if err := tx.Save(&record).Error; err != nil {
			return storageError(err)
		}

		if !alg.HasCompletedReviewer(reviewer.UserID) {
			alg.CompletedReviewers = append(alg.CompletedReviewers, reviewer.UserID)
		}

		columns := []string{"completed_reviewers"}
		if alg.AllReviewsCompleted() {
			old := alg.Status
			alg.Status = models.StatusPendingConfirmation
			columns = append(columns, "status")
			if err := saveAlgorithm(tx, alg, columns...); err != nil {
				return err
			}
			if err := appendStatusHistory(tx, algorithmID, &old, alg.Status, reviewer.UserID, nil); err != nil {
				return err
			}

			if alg.CurrentApproverID != nil {
				initiator, err := loadUser(tx, *alg.CurrentApproverID)
				if err != nil {
					return err
				}
				nc := TemplateReviewCompleted(alg.Name, len(alg.CompletedReviewers), len(alg.AssignedReviewers))
				if _, err := createNotification(tx, initiator, nc, &algorithmID); err != nil {
					return err
				}
				emails = queueEmail(emails, initiator, nc)
			}
			return nil
		}
		return saveAlgorithm(tx, alg, columns...)
	})
	if err != nil {
		return err
	}

	DeliverEmails(emails)
	return nil
}

/* ==========================
   ConfirmResult
   ========================== */

// ConfirmResult is the lead's final sign-off after all reviewers complete.
// Approval advances to pending_product; rejection returns the algorithm to
// draft and clears the review cycle so a fresh one can start. The owner is
// notified either way.
func ConfirmResult(db *gorm.DB, algorithmID uint, actor *models.User, approved bool) error {
	if !actor.HasAnyRole(models.RoleTeamLead, models.RoleAdmin) {
		return ErrForbidden
	}

	unlock := lockAlgorithm(algorithmID)
	defer unlock()

	var emails []pendingEmail
	err := db.Transaction(func(tx *gorm.DB) error {
		alg, err := loadAlgorithm(tx, algorithmID)
		if err != nil {
			return err
		}
		if err := checkTransition(alg.Status, EventConfirmResult); err != nil {
			return err
		}

		old := alg.Status
		var nextStep string
		if approved {
			alg.Status = models.StatusPendingProduct
			nextStep = "进入产品转化阶段"

			if err := tx.Model(&models.ReviewAssignment{}).
				Where("algorithm_id = ? AND status = ?", algorithmID, models.AssignmentActive).
				Update("status", models.AssignmentCompleted).Error; err != nil {
				return storageError(err)
			}
			if err := saveAlgorithm(tx, alg, "status"); err != nil {
				return err
			}
		} else {
			alg.Status = models.StatusDraft
			nextStep = "请修改后重新提交"
			alg.AssignedReviewers = []uint{}
			alg.CompletedReviewers = []uint{}
			alg.CurrentApproverID = nil

			if err := tx.Model(&models.ReviewAssignment{}).
				Where("algorithm_id = ? AND status = ?", algorithmID, models.AssignmentActive).
				Update("status", models.AssignmentCancelled).Error; err != nil {
				return storageError(err)
			}
			if err := saveAlgorithm(tx, alg,
				"status", "assigned_reviewers", "completed_reviewers", "current_approver_id"); err != nil {
				return err
			}
		}
		if err := appendStatusHistory(tx, algorithmID, &old, alg.Status, actor.UserID, nil); err != nil {
			return err
		}

		owner, err := loadUser(tx, alg.OwnerID)
		if err != nil {
			return err
		}
		nc := TemplateApprovalResult(alg.Name, approved, nextStep)
		if _, err := createNotification(tx, owner, nc, &algorithmID); err != nil {
			return err
		}
		emails = queueEmail(emails, owner, nc)
		return nil
	})
	if err != nil {
		return err
	}

	DeliverEmails(emails)
	return nil
}

/* ==========================
   Hand-offs and deprecation
   ========================== */

// HandoffAlgorithm advances the post-approval pipeline: pending_product to
// pending_frontend (product manager), pending_frontend to live (frontend
// engineer). Admins may drive either step.
func HandoffAlgorithm(db *gorm.DB, algorithmID uint, actor *models.User) error {
	unlock := lockAlgorithm(algorithmID)
	defer unlock()

	var emails []pendingEmail
	err := db.Transaction(func(tx *gorm.DB) error {
		alg, err := loadAlgorithm(tx, algorithmID)
		if err != nil {
			return err
		}

		var next, statusText string
		switch alg.Status {
		case models.StatusPendingProduct:
			if !actor.HasAnyRole(models.RoleProductManager, models.RoleAdmin) {
				return ErrForbidden
			}
			next = models.StatusPendingFrontend
			statusText = "产品转化完成，等待前端实现"
		case models.StatusPendingFrontend:
			if !actor.HasAnyRole(models.RoleFrontendEngineer, models.RoleAdmin) {
				return ErrForbidden
			}
			next = models.StatusLive
			statusText = "已正式上线"
		default:
			return &InvalidTransitionError{Status: alg.Status, Event: "handoff"}
		}

		old := alg.Status
		alg.Status = next
		if err := saveAlgorithm(tx, alg, "status"); err != nil {
			return err
		}
		if err := appendStatusHistory(tx, algorithmID, &old, next, actor.UserID, nil); err != nil {
			return err
		}

		owner, err := loadUser(tx, alg.OwnerID)
		if err != nil {
			return err
		}
		nc := TemplateStatusChanged(alg.Name, statusText)
		if _, err := createNotification(tx, owner, nc, &algorithmID); err != nil {
			return err
		}
		emails = queueEmail(emails, owner, nc)
		return nil
	})
	if err != nil {
		return err
	}

	DeliverEmails(emails)
	return nil
}

// DeprecateAlgorithm takes a live algorithm offline. Admin only.
func DeprecateAlgorithm(db *gorm.DB, algorithmID uint, actor *models.User) error {
	if !actor.HasAnyRole(models.RoleAdmin) {
		return ErrForbidden
	}

	unlock := lockAlgorithm(algorithmID)
	defer unlock()

	var emails []pendingEmail
	err := db.Transaction(func(tx *gorm.DB) error {
		alg, err := loadAlgorithm(tx, algorithmID)
		if err != nil {
			return err
		}
		if err := checkTransition(alg.Status, EventDeprecate); err != nil {
			return err
		}

		old := alg.Status
		alg.Status = models.StatusDeprecated
		if err := saveAlgorithm(tx, alg, "status"); err != nil {
			return err
		}
		if err := appendStatusHistory(tx, algorithmID, &old, alg.Status, actor.UserID, nil); err != nil {
			return err
		}

		owner, err := loadUser(tx, alg.OwnerID)
		if err != nil {
			return err
		}
		nc := TemplateStatusChanged(alg.Name, "已下线")
		if _, err := createNotification(tx, owner, nc, &algorithmID); err != nil {
			return err
		}
		emails = queueEmail(emails, owner, nc)
		return nil
	})
	if err != nil {
		return err
	}

	DeliverEmails(emails)
	return nil
}

/* ==========================
   Reviewer task reads
   ========================== */

// GetUserReviewTasks returns the reviewer's unfinished records for the
// current cycles, oldest assignment first.
func GetUserReviewTasks(db *gorm.DB, reviewerID uint) ([]models.ReviewRecord, error) {
	var records []models.ReviewRecord
	err := db.Preload("Algorithm").
		Where("reviewer_id = ? AND status = ?", reviewerID, models.ReviewPending).
		Order("assigned_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, storageError(err)
	}
	return records, nil
}

// GetUserCompletedReviews returns the reviewer's concluded records, most
// recent first.
func GetUserCompletedReviews(db *gorm.DB, reviewerID uint) ([]models.ReviewRecord, error) {
	var records []models.ReviewRecord
	err := db.Preload("Algorithm").
		Where("reviewer_id = ? AND status = ?", reviewerID, models.ReviewCompleted).
		Order("completed_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, storageError(err)
	}
	return records, nil
}
