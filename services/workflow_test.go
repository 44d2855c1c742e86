package services

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"algo-asset-api/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// A single connection keeps the in-memory database alive for the whole
	// test.
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Algorithm{},
		&models.ReviewAssignment{},
		&models.ReviewRecord{},
		&models.Notification{},
		&models.AlgorithmStatusHistory{},
		&models.AlgorithmDraft{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, name, role string) *models.User {
	t.Helper()
	now := time.Now()
	user := &models.User{
		Name:     name,
		Email:    strings.ToLower(name) + "@example.com",
		Password: "x",
		Role:     role,
		CreateAt: &now,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func validSubmitInput() *SubmitInput {
	return &SubmitInput{
		Name:                 "图像去噪算法",
		Category:             "视觉",
		SubCategory:          "图像增强",
		Tags:                 []string{"denoise", "cnn"},
		Description:          "基于卷积网络的图像去噪算法，适用于低光照场景。",
		ApplicableScenarios:  "夜间监控画面增强",
		TargetUsers:          []string{"business_user"},
		InteractionMethod:    models.InteractionAPI,
		Preprocessing:        []string{"归一化"},
		FeatureEngineering:   []string{"多尺度特征"},
		ModelStructure:       "UNet",
		PostProcessing:       []string{"锐化"},
		ExceptionHandling:    []string{"超时重试"},
		DeploymentMethods:    []string{"docker", "k8s"},
		Dependencies:         []string{"onnxruntime"},
		ResourceRequirements: "1x GPU, 4GB RAM",
		InputDataSource:      "摄像头流",
		InputDataType:        "image",
		OutputSchema:         `{"image": "base64"}`,
	}
}

func reviewerRefs(users ...*models.User) []models.ReviewerRef {
	refs := make([]models.ReviewerRef, 0, len(users))
	for _, u := range users {
		refs = append(refs, models.ReviewerRef{ID: u.UserID, Name: u.Name, Role: u.Role})
	}
	return refs
}

func reloadAlgorithm(t *testing.T, db *gorm.DB, id uint) *models.Algorithm {
	t.Helper()
	var alg models.Algorithm
	if err := db.Where("algorithm_id = ?", id).First(&alg).Error; err != nil {
		t.Fatalf("reload algorithm %d: %v", id, err)
	}
	return &alg
}

func countNotifications(t *testing.T, db *gorm.DB, recipientID uint, notifyType string) int64 {
	t.Helper()
	var n int64
	q := db.Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
	if notifyType != "" {
		q = q.Where("type = ?", notifyType)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	return n
}

func assertReviewerSubset(t *testing.T, alg *models.Algorithm) {
	t.Helper()
	for _, done := range alg.CompletedReviewers {
		if !alg.HasAssignedReviewer(done) {
			t.Fatalf("completed reviewer %d is not assigned (completed=%v assigned=%v)",
				done, alg.CompletedReviewers, alg.AssignedReviewers)
		}
	}
}

func TestSubmitAlgorithm(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "Engineer", models.RoleAlgorithmEngineer)

	alg, err := SubmitAlgorithm(db, owner, validSubmitInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if alg.Status != models.StatusPendingReview {
		t.Errorf("status = %s, want %s", alg.Status, models.StatusPendingReview)
	}
	if alg.OwnerID != owner.UserID {
		t.Errorf("owner = %d, want %d", alg.OwnerID, owner.UserID)
	}
	if alg.Version != 1 {
		t.Errorf("version = %d, want 1", alg.Version)
	}
	if alg.AssetCode == "" {
		t.Error("asset code not assigned")
	}
	if alg.DeploymentProcess != "docker, k8s" {
		t.Errorf("deployment process = %q", alg.DeploymentProcess)
	}
	if !strings.Contains(alg.PseudoCode, "预处理: 归一化") {
		t.Errorf("pseudo code missing preprocessing summary: %q", alg.PseudoCode)
	}
	if !strings.Contains(alg.APIExample, "调用方式: api") {
		t.Errorf("api example missing interaction method: %q", alg.APIExample)
	}

	// Submit must not notify anyone.
	var notifications int64
	db.Model(&models.Notification{}).Count(&notifications)
	if notifications != 0 {
		t.Errorf("submit created %d notifications, want 0", notifications)
	}

	var history []models.AlgorithmStatusHistory
	db.Where("algorithm_id = ?", alg.AlgorithmID).Find(&history)
	if len(history) != 1 || history[0].NewStatus != models.StatusPendingReview {
		t.Errorf("unexpected status history: %+v", history)
	}
}

func TestSubmitValidation(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "Engineer", models.RoleAlgorithmEngineer)

	in := validSubmitInput()
	in.Tags = nil
	in.Description = "太短"

	_, err := SubmitAlgorithm(db, owner, in)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(vErr.Issues) != 2 {
		t.Errorf("issues = %v, want tag and description problems", vErr.Issues)
	}

	var count int64
	db.Model(&models.Algorithm{}).Count(&count)
	if count != 0 {
		t.Errorf("invalid submit stored %d algorithms", count)
	}
}

func TestSubmitSanitizesFreeText(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "Engineer", models.RoleAlgorithmEngineer)

	in := validSubmitInput()
	in.Name = "  图像去噪算法\x00  "
	in.Description = " 基于卷积网络的图像去噪算法，适用于低光照场景。\x00"

	alg, err := SubmitAlgorithm(db, owner, in)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if alg.Name != "图像去噪算法" {
		t.Errorf("name = %q", alg.Name)
	}
	if strings.Contains(alg.Description, "\x00") {
		t.Errorf("description keeps null byte: %q", alg.Description)
	}
}

func TestAssignReviewersEmptyList(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "Engineer", models.RoleAlgorithmEngineer)
	lead := createUser(t, db, "Lead", models.RoleTeamLead)

	alg, err := SubmitAlgorithm(db, owner, validSubmitInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	err = AssignReviewers(db, alg.AlgorithmID, lead, &AssignInput{})
	if !errors.Is(err, ErrNoReviewersSelected) {
		t.Fatalf("err = %v, want ErrNoReviewersSelected", err)
	}

	got := reloadAlgorithm(t, db, alg.AlgorithmID)
	if got.Status != models.StatusPendingReview {
		t.Errorf("status changed to %s on rejected assignment", got.Status)
	}
}

func TestAssignReviewersForbidden(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "Engineer", models.RoleAlgorithmEngineer)
	r1 := createUser(t, db, "R1", models.RoleReviewer)

	alg, err := SubmitAlgorithm(db, owner, validSubmitInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	err = AssignReviewers(db, alg.AlgorithmID, owner, &AssignInput{Reviewers: reviewerRefs(r1)})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestAssignReviewersNotFound(t *testing.T) {
	db := newTestDB(t)
	lead := createUser(t, db, "Lead", models.RoleTeamLead)
	r1 := createUser(t, db, "R1", models.RoleReviewer)

	err := AssignReviewers(db, 9999, lead, &AssignInput{Reviewers: reviewerRefs(r1)})
	if !errors.Is(err, ErrAlgorithmNotFound) {
		t.Fatalf("err = %v, want ErrAlgorithmNotFound", err)
	}
}

func TestReviewScenarioA(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "Engineer", models.RoleAlgorithmEngineer)
	lead := createUser(t, db, "Lead", models.RoleTeamLead)
	r1 := createUser(t, db, "R1", models.RoleReviewer)
	r2 := createUser(t, db, "R2", models.RoleReviewer)

	alg, err := SubmitAlgorithm(db, owner, validSubmitInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	err = AssignReviewers(db, alg.AlgorithmID, lead, &AssignInput{
		MeetingType: models.MeetingOnline,
		Reviewers:   reviewerRefs(r1, r2),
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	got := reloadAlgorithm(t, db, alg.AlgorithmID)
	if got.Status != models.StatusUnderReview {
		t.Fatalf("status = %s, want under_review", got.Status)
	}
	if len(got.AssignedReviewers) != 2 || len(got.CompletedReviewers) != 0 {
		t.Fatalf("reviewer sets = %v / %v", got.AssignedReviewers, got.CompletedReviewers)
	}
	if got.CurrentApproverID == nil || *got.CurrentApproverID != lead.UserID {
		t.Fatalf("current approver = %v, want %d", got.CurrentApproverID, lead.UserID)
	}
	if n := countNotifications(t, db, r1.UserID, models.NotifyReviewRequest); n != 1 {
		t.Errorf("R1 review_request notifications = %d, want 1", n)
	}
	if n := countNotifications(t, db, r2.UserID, models.NotifyReviewRequest); n != 1 {
		t.Errorf("R2 review_request notifications = %d, want 1", n)
	}
	assertReviewerSubset(t, got)

	// First reviewer concludes; still under review, no completion notice.
	err = SubmitReview(db, alg.AlgorithmID, r1, &ReviewInput{Conclusion: models.ConclusionApproved, Comments: "实现清晰"})
	if err != nil {
		t.Fatalf("review r1: %v", err)
	}
	got = reloadAlgorithm(t, db, alg.AlgorithmID)
	if got.Status != models.StatusUnderReview {
		t.Fatalf("status after first review = %s, want under_review", got.Status)
	}
	if n := countNotifications(t, db, lead.UserID, models.NotifyReviewCompleted); n != 0 {
		t.Errorf("premature completion notifications = %d", n)
	}
	assertReviewerSubset(t, got)

	// Last reviewer concludes; moves to pending_confirmation, lead notified.
	err = SubmitReview(db, alg.AlgorithmID, r2, &ReviewInput{
		Conclusion: models.ConclusionConditional,
		Detail:     "缺少压测数据",
		Comments:   "其余部分没问题",
	})
	if err != nil {
		t.Fatalf("review r2: %v", err)
	}
	got = reloadAlgorithm(t, db, alg.AlgorithmID)
	if got.Status != models.StatusPendingConfirmation {
		t.Fatalf("status after all reviews = %s, want pending_confirmation", got.Status)
	}
	if len(got.CompletedReviewers) != 2 {
		t.Fatalf("completed reviewers = %v", got.CompletedReviewers)
	}
	if n := countNotifications(t, db, lead.UserID, models.NotifyReviewCompleted); n != 1 {
		t.Errorf("completion notifications = %d, want 1", n)
	}
	assertReviewerSubset(t, got)

	var record models.ReviewRecord
	if err := db.Where("algorithm_id = ? AND reviewer_id = ?", alg.AlgorithmID, r2.UserID).
		First(&record).Error; err != nil {
		t.Fatalf("load r2 record: %v", err)
	}
	if record.Comments == nil || !strings.HasPrefix(*record.Comments, "需补充完善：缺少压测数据") {
		t.Errorf("conditional comments = %v", record.Comments)
	}
}

func TestSubmitReviewNotAssigned(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "Engineer", models.RoleAlgorithmEngineer)
	lead := createUser(t, db, "Lead", models.RoleTeamLead)
	r1 := createUser(t, db, "R1", models.RoleReviewer)
	outsider := createUser(t, db, "Outsider", models.RoleReviewer)

	alg, _ := SubmitAlgorithm(db, owner, validSubmitInput())
	if err := AssignReviewers(db, alg.AlgorithmID, lead, &AssignInput{Reviewers: reviewerRefs(r1)}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	err := SubmitReview(db, alg.AlgorithmID, outsider, &ReviewInput{Conclusion: models.ConclusionApproved})
	if !errors.Is(err, ErrReviewerNotAssigned) {
		t.Fatalf("err = %v, want ErrReviewerNotAssigned", err)
	}
}

func TestSubmitReviewWrongStatus(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "Engineer", models.RoleAlgorithmEngineer)
	r1 := createUser(t, db, "R1", models.RoleReviewer)

	alg, _ := SubmitAlgorithm(db, owner, validSubmitInput())

	err := SubmitReview(db, alg.AlgorithmID, r1, &ReviewInput{Conclusion: models.ConclusionApproved})
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidTransitionError", err)
	}
	if invalid.Status != models.StatusPendingReview || invalid.Event != EventSubmitReview {
		t.Errorf("transition error = %+v", invalid)
	}
}

func TestSubmitReviewErrorPrecedence(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "Engineer", models.RoleAlgorithmEngineer)
	r1 := createUser(t, db, "R1", models.RoleReviewer)

	// Unknown algorithm wins over a bad payload.
	err := SubmitReview(db, 9999, r1, &ReviewInput{Conclusion: "maybe"})
	if !errors.Is(err, ErrAlgorithmNotFound) {
		t.Fatalf("missing algorithm err = %v, want ErrAlgorithmNotFound", err)
	}

	// Wrong status wins over missing detail.
	alg, _ := SubmitAlgorithm(db, owner, validSubmitInput())
	err = SubmitReview(db, alg.AlgorithmID, r1, &ReviewInput{Conclusion: models.ConclusionRejected})
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("wrong status err = %v, want InvalidTransitionError", err)
	}
}

func TestSubmitReviewIdempotent(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "Engineer", models.RoleAlgorithmEngineer)
	lead := createUser(t, db, "Lead", models.RoleTeamLead)
	r1 := createUser(t, db, "R1", models.RoleReviewer)
	r2 := createUser(t, db, "R2", models.RoleReviewer)

	alg, _ := SubmitAlgorithm(db, owner, validSubmitInput())
	if err := AssignReviewers(db, alg.AlgorithmID, lead, &AssignInput{Reviewers: reviewerRefs(r1, r2)}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if err := SubmitReview(db, alg.AlgorithmID, r1, &ReviewInput{Conclusion: models.ConclusionApproved}); err != nil {
		t.Fatalf("first review: %v", err)
	}
	// Revise before confirmation: record is overwritten, not duplicated.
	if err := SubmitReview(db, alg.AlgorithmID, r1, &ReviewInput{
		Conclusion: models.ConclusionRejected,
		Detail:     "模型结构描述不完整",
	}); err != nil {
		t.Fatalf("revised review: %v", err)
	}

	var records []models.ReviewRecord
	db.Where("algorithm_id = ? AND reviewer_id = ?", alg.AlgorithmID, r1.UserID).Find(&records)
	if len(records) != 1 {
		t.Fatalf("record count = %d, want 1", len(records))
	}
	if records[0].Conclusion == nil || *records[0].Conclusion != models.ConclusionRejected {
		t.Errorf("conclusion = %v, want latest (rejected)", records[0].Conclusion)
	}
	if records[0].Comments == nil || !strings.HasPrefix(*records[0].Comments, "驳回原因：") {
		t.Errorf("rejected comments = %v", records[0].Comments)
	}

	got := reloadAlgorithm(t, db, alg.AlgorithmID)
	seen := 0
	for _, id := range got.CompletedReviewers {
		if id == r1.UserID {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("reviewer appears %d times in completed set", seen)
	}
	if got.Status != models.StatusUnderReview {
		t.Errorf("status = %s, want under_review while R2 pending", got.Status)
	}
}

func TestSubmitReviewMissingComments(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "Engineer", models.RoleAlgorithmEngineer)
	lead := createUser(t, db, "Lead", models.RoleTeamLead)
	r1 := createUser(t, db, "R1", models.RoleReviewer)

	alg, _ := SubmitAlgorithm(db, owner, validSubmitInput())
	if err := AssignReviewers(db, alg.AlgorithmID, lead, &AssignInput{Reviewers: reviewerRefs(r1)}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	for _, conclusion := range []string{models.ConclusionConditional, models.ConclusionRejected} {
		err := SubmitReview(db, alg.AlgorithmID, r1, &ReviewInput{Conclusion: conclusion, Detail: "   "})
		if !errors.Is(err, ErrMissingComments) {
			t.Errorf("%s without detail: err = %v, want ErrMissingComments", conclusion, err)
		}
	}

	got := reloadAlgorithm(t, db, alg.AlgorithmID)
	if len(got.CompletedReviewers) != 0 {
		t.Errorf("rejected review mutated completed set: %v", got.CompletedReviewers)
	}
}

func confirmReadyAlgorithm(t *testing.T, db *gorm.DB) (alg *models.Algorithm, owner, lead *models.User) {
	t.Helper()
	owner = createUser(t, db, "Engineer", models.RoleAlgorithmEngineer)
	lead = createUser(t, db, "Lead", models.RoleTeamLead)
	r1 := createUser(t, db, "R1", models.RoleReviewer)

	created, err := SubmitAlgorithm(db, owner, validSubmitInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := AssignReviewers(db, created.AlgorithmID, lead, &AssignInput{Reviewers: reviewerRefs(r1)}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := SubmitReview(db, created.AlgorithmID, r1, &ReviewInput{Conclusion: models.ConclusionApproved}); err != nil {
		t.Fatalf("review: %v", err)
	}
	return reloadAlgorithm(t, db, created.AlgorithmID), owner, lead
}

func TestConfirmApproved(t *testing.T) {
	db := newTestDB(t)
	alg, owner, lead := confirmReadyAlgorithm(t, db)

	if err := ConfirmResult(db, alg.AlgorithmID, lead, true); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	got := reloadAlgorithm(t, db, alg.AlgorithmID)
	if got.Status != models.StatusPendingProduct {
		t.Errorf("status = %s, want pending_product", got.Status)
	}

	var assignment models.ReviewAssignment
	db.Where("algorithm_id = ?", alg.AlgorithmID).First(&assignment)
	if assignment.Status != models.AssignmentCompleted {
		t.Errorf("assignment status = %s, want completed", assignment.Status)
	}

	var n models.Notification
	if err := db.Where("recipient_id = ? AND type = ?", owner.UserID, models.NotifyApprovalResult).
		First(&n).Error; err != nil {
		t.Fatalf("owner notification missing: %v", err)
	}
	if !strings.Contains(n.Content, "已通过") {
		t.Errorf("approval notification content = %q", n.Content)
	}
}

func TestConfirmRejected(t *testing.T) {
	db := newTestDB(t)
	alg, owner, lead := confirmReadyAlgorithm(t, db)

	if err := ConfirmResult(db, alg.AlgorithmID, lead, false); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	got := reloadAlgorithm(t, db, alg.AlgorithmID)
	if got.Status != models.StatusDraft {
		t.Errorf("status = %s, want draft", got.Status)
	}
	if len(got.AssignedReviewers) != 0 || len(got.CompletedReviewers) != 0 {
		t.Errorf("reviewer sets not cleared: %v / %v", got.AssignedReviewers, got.CompletedReviewers)
	}
	if got.CurrentApproverID != nil {
		t.Errorf("current approver not cleared: %v", got.CurrentApproverID)
	}

	var assignment models.ReviewAssignment
	db.Where("algorithm_id = ?", alg.AlgorithmID).First(&assignment)
	if assignment.Status != models.AssignmentCancelled {
		t.Errorf("assignment status = %s, want cancelled", assignment.Status)
	}

	var n models.Notification
	if err := db.Where("recipient_id = ? AND type = ?", owner.UserID, models.NotifyApprovalResult).
		First(&n).Error; err != nil {
		t.Fatalf("owner notification missing: %v", err)
	}
	if !strings.Contains(n.Content, "需修改") {
		t.Errorf("rejection notification content = %q", n.Content)
	}
}

func TestConfirmGuards(t *testing.T) {
	db := newTestDB(t)
	alg, owner, _ := confirmReadyAlgorithm(t, db)

	if err := ConfirmResult(db, alg.AlgorithmID, owner, true); !errors.Is(err, ErrForbidden) {
		t.Errorf("owner confirm err = %v, want ErrForbidden", err)
	}

	got := reloadAlgorithm(t, db, alg.AlgorithmID)
	if got.Status != models.StatusPendingConfirmation {
		t.Errorf("rejected confirm mutated status to %s", got.Status)
	}
}

func TestConfirmMissingOwner(t *testing.T) {
	db := newTestDB(t)
	alg, owner, lead := confirmReadyAlgorithm(t, db)

	now := time.Now()
	if err := db.Model(&models.User{}).
		Where("user_id = ?", owner.UserID).
		Update("delete_at", now).Error; err != nil {
		t.Fatalf("soft delete owner: %v", err)
	}

	if err := ConfirmResult(db, alg.AlgorithmID, lead, true); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}

	// The whole confirmation rolled back with the failed notification.
	if got := reloadAlgorithm(t, db, alg.AlgorithmID); got.Status != models.StatusPendingConfirmation {
		t.Errorf("status = %s, want pending_confirmation", got.Status)
	}
}

func TestResubmitAfterRejection(t *testing.T) {
	db := newTestDB(t)
	alg, owner, lead := confirmReadyAlgorithm(t, db)
	if err := ConfirmResult(db, alg.AlgorithmID, lead, false); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	in := validSubmitInput()
	in.Description = "修订后的图像去噪算法说明，补充了压测数据。"
	if err := ResubmitAlgorithm(db, alg.AlgorithmID, owner, in); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	got := reloadAlgorithm(t, db, alg.AlgorithmID)
	if got.Status != models.StatusPendingReview {
		t.Fatalf("status = %s, want pending_review", got.Status)
	}
	if got.Description != in.Description {
		t.Errorf("revised description not stored")
	}

	// A fresh cycle can start.
	r2 := createUser(t, db, "R2", models.RoleReviewer)
	if err := AssignReviewers(db, alg.AlgorithmID, lead, &AssignInput{Reviewers: reviewerRefs(r2)}); err != nil {
		t.Fatalf("second assign: %v", err)
	}
	var records []models.ReviewRecord
	db.Where("algorithm_id = ?", alg.AlgorithmID).Find(&records)
	if len(records) != 1 || records[0].ReviewerID != r2.UserID {
		t.Errorf("old cycle records not replaced: %+v", records)
	}
}

func TestResubmitForbiddenForStranger(t *testing.T) {
	db := newTestDB(t)
	alg, _, lead := confirmReadyAlgorithm(t, db)
	if err := ConfirmResult(db, alg.AlgorithmID, lead, false); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	stranger := createUser(t, db, "Stranger", models.RoleAlgorithmEngineer)
	if err := ResubmitAlgorithm(db, alg.AlgorithmID, stranger, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestHandoffAndDeprecate(t *testing.T) {
	db := newTestDB(t)
	alg, owner, lead := confirmReadyAlgorithm(t, db)
	pm := createUser(t, db, "PM", models.RoleProductManager)
	fe := createUser(t, db, "FE", models.RoleFrontendEngineer)
	admin := createUser(t, db, "Admin", models.RoleAdmin)

	if err := ConfirmResult(db, alg.AlgorithmID, lead, true); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// Frontend engineer cannot drive the product hand-off.
	if err := HandoffAlgorithm(db, alg.AlgorithmID, fe); !errors.Is(err, ErrForbidden) {
		t.Fatalf("fe handoff err = %v, want ErrForbidden", err)
	}

	if err := HandoffAlgorithm(db, alg.AlgorithmID, pm); err != nil {
		t.Fatalf("product handoff: %v", err)
	}
	if got := reloadAlgorithm(t, db, alg.AlgorithmID); got.Status != models.StatusPendingFrontend {
		t.Fatalf("status = %s, want pending_frontend", got.Status)
	}

	if err := HandoffAlgorithm(db, alg.AlgorithmID, fe); err != nil {
		t.Fatalf("frontend handoff: %v", err)
	}
	if got := reloadAlgorithm(t, db, alg.AlgorithmID); got.Status != models.StatusLive {
		t.Fatalf("status = %s, want live", got.Status)
	}

	if err := DeprecateAlgorithm(db, alg.AlgorithmID, lead); !errors.Is(err, ErrForbidden) {
		t.Fatalf("lead deprecate err = %v, want ErrForbidden", err)
	}
	if err := DeprecateAlgorithm(db, alg.AlgorithmID, admin); err != nil {
		t.Fatalf("deprecate: %v", err)
	}
	if got := reloadAlgorithm(t, db, alg.AlgorithmID); got.Status != models.StatusDeprecated {
		t.Fatalf("status = %s, want deprecated", got.Status)
	}

	// Deprecated is terminal.
	err := DeprecateAlgorithm(db, alg.AlgorithmID, admin)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("second deprecate err = %v, want InvalidTransitionError", err)
	}

	if n := countNotifications(t, db, owner.UserID, models.NotifyStatusUpdate); n != 3 {
		t.Errorf("owner status_update notifications = %d, want 3 (two hand-offs + deprecation)", n)
	}
}

func TestReviewTaskLists(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "Engineer", models.RoleAlgorithmEngineer)
	lead := createUser(t, db, "Lead", models.RoleTeamLead)
	r1 := createUser(t, db, "R1", models.RoleReviewer)
	r2 := createUser(t, db, "R2", models.RoleReviewer)

	alg, _ := SubmitAlgorithm(db, owner, validSubmitInput())
	if err := AssignReviewers(db, alg.AlgorithmID, lead, &AssignInput{Reviewers: reviewerRefs(r1, r2)}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := SubmitReview(db, alg.AlgorithmID, r1, &ReviewInput{Conclusion: models.ConclusionApproved}); err != nil {
		t.Fatalf("review: %v", err)
	}

	tasks, err := GetUserReviewTasks(db, r2.UserID)
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].AlgorithmID != alg.AlgorithmID {
		t.Errorf("r2 tasks = %+v", tasks)
	}
	if tasks[0].Algorithm == nil || tasks[0].Algorithm.Name == "" {
		t.Errorf("task algorithm not preloaded")
	}

	done, err := GetUserCompletedReviews(db, r1.UserID)
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	if len(done) != 1 {
		t.Errorf("r1 completed = %+v", done)
	}
	if tasks, _ := GetUserReviewTasks(db, r1.UserID); len(tasks) != 0 {
		t.Errorf("r1 still has tasks: %+v", tasks)
	}
}

func TestStaleWriteConflict(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "Engineer", models.RoleAlgorithmEngineer)

	alg, err := SubmitAlgorithm(db, owner, validSubmitInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Another writer bumps the version behind our back.
	if err := db.Model(&models.Algorithm{}).
		Where("algorithm_id = ?", alg.AlgorithmID).
		Update("version", alg.Version+1).Error; err != nil {
		t.Fatalf("bump version: %v", err)
	}

	err = saveAlgorithm(db, alg, "status")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestLockTableEvicts(t *testing.T) {
	unlock := lockAlgorithm(424242)
	unlock()

	algorithmLocksMu.Lock()
	_, ok := algorithmLocks[424242]
	algorithmLocksMu.Unlock()
	if ok {
		t.Error("released lock entry not evicted")
	}
}

func TestConcurrentReviewsSerialize(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "Engineer", models.RoleAlgorithmEngineer)
	lead := createUser(t, db, "Lead", models.RoleTeamLead)
	r1 := createUser(t, db, "R1", models.RoleReviewer)
	r2 := createUser(t, db, "R2", models.RoleReviewer)

	alg, _ := SubmitAlgorithm(db, owner, validSubmitInput())
	if err := AssignReviewers(db, alg.AlgorithmID, lead, &AssignInput{Reviewers: reviewerRefs(r1, r2)}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, reviewer := range []*models.User{r1, r2} {
		wg.Add(1)
		go func(i int, reviewer *models.User) {
			defer wg.Done()
			errs[i] = SubmitReview(db, alg.AlgorithmID, reviewer, &ReviewInput{Conclusion: models.ConclusionApproved})
		}(i, reviewer)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent review %d: %v", i, err)
		}
	}

	got := reloadAlgorithm(t, db, alg.AlgorithmID)
	if got.Status != models.StatusPendingConfirmation {
		t.Errorf("status = %s, want pending_confirmation", got.Status)
	}
	if len(got.CompletedReviewers) != 2 {
		t.Errorf("completed reviewers = %v, want both", got.CompletedReviewers)
	}
	assertReviewerSubset(t, got)
	if n := countNotifications(t, db, lead.UserID, models.NotifyReviewCompleted); n != 1 {
		t.Errorf("completion notifications = %d, want exactly 1", n)
	}
}
