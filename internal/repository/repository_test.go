package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fisker/bcm-backend/internal/model"
	"github.com/fisker/bcm-backend/pkg/database"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newPendingRequest(submitter string, role model.Role, createdAt time.Time) *model.ApprovalRequest {
	return &model.ApprovalRequest{
		ID:                  uuid.New().String(),
		Type:                model.RequestTypeClauseEdit,
		Title:               "Clause 8.4 wording",
		SubmittedBy:         submitter,
		SubmitterRole:       model.RoleProcessOwner,
		CurrentApproverRole: role,
		Status:              model.RequestStatusPending,
		Version:             1,
		CreatedAt:           createdAt,
		UpdatedAt:           createdAt,
	}
}

func TestApplyDecision_GuardedUpdate(t *testing.T) {
	repo := NewApprovalRequestRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Now()

	req := newPendingRequest("u1", model.RoleDepartmentHead, now)
	require.NoError(t, repo.CreateRequest(ctx, req))

	step := func() *model.ApprovalStep {
		return &model.ApprovalStep{
			ID:         uuid.New().String(),
			RequestID:  req.ID,
			Role:       model.RoleDepartmentHead,
			ApproverID: "u2",
			Decision:   model.DecisionApproved,
			Timestamp:  now,
		}
	}

	updated := *req
	updated.CurrentApproverRole = model.RoleOrganizationHead
	updated.Version = 2

	tests := []struct {
		name            string
		expectedRole    model.Role
		expectedVersion int
		wantApplied     bool
	}{
		{"角色不匹配", model.RoleAdmin, 1, false},
		{"版本不匹配", model.RoleDepartmentHead, 5, false},
		{"条件满足", model.RoleDepartmentHead, 1, true},
		{"重复提交", model.RoleDepartmentHead, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applied, err := repo.ApplyDecision(ctx, &updated, step(), tt.expectedRole, tt.expectedVersion)
			require.NoError(t, err)
			assert.Equal(t, tt.wantApplied, applied)
		})
	}

	steps, err := repo.FindSteps(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, steps, 1)

	stored, err := repo.FindRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOrganizationHead, stored.CurrentApproverRole)
	assert.Equal(t, 2, stored.Version)
}

func TestApplyDecision_NonPendingNotApplied(t *testing.T) {
	repo := NewApprovalRequestRepository(openTestDB(t))
	ctx := context.Background()

	req := newPendingRequest("u1", model.RoleAdmin, time.Now())
	req.Status = model.RequestStatusApproved
	require.NoError(t, repo.CreateRequest(ctx, req))

	applied, err := repo.ApplyDecision(ctx, req, &model.ApprovalStep{
		ID:         uuid.New().String(),
		RequestID:  req.ID,
		Role:       model.RoleAdmin,
		ApproverID: "u9",
		Decision:   model.DecisionRejected,
		Timestamp:  time.Now(),
	}, model.RoleAdmin, 1)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestApplyEscalation_IgnoresStatus(t *testing.T) {
	repo := NewApprovalRequestRepository(openTestDB(t))
	ctx := context.Background()
	now := time.Now()

	req := newPendingRequest("u1", model.RoleAdmin, now)
	req.Status = model.RequestStatusRejected
	require.NoError(t, repo.CreateRequest(ctx, req))

	updated := *req
	updated.CurrentApproverRole = model.RoleDepartmentHead
	updated.Version = 2
	esc := &model.ApprovalEscalation{
		ID:           uuid.New().String(),
		RequestID:    req.ID,
		FromRole:     model.RoleAdmin,
		ToRole:       model.RoleDepartmentHead,
		StatusBefore: model.RequestStatusRejected,
		StatusAfter:  model.RequestStatusRejected,
		EscalatedBy:  "admin",
		Timestamp:    now,
	}

	applied, err := repo.ApplyEscalation(ctx, &updated, esc, 1)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.ApplyEscalation(ctx, &updated, esc, 1)
	require.NoError(t, err)
	assert.False(t, applied)

	escalations, err := repo.FindEscalations(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, escalations, 1)
	assert.Equal(t, model.RoleDepartmentHead, escalations[0].ToRole)
}

func TestApprovalRequestQueries(t *testing.T) {
	repo := NewApprovalRequestRepository(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mine := newPendingRequest("alice", model.RoleDepartmentHead, base)
	awaiting := newPendingRequest("bob", model.RoleOrganizationHead, base.Add(time.Hour))
	done := newPendingRequest("bob", model.RoleOrganizationHead, base.Add(2*time.Hour))
	done.Status = model.RequestStatusApproved
	done.Type = model.RequestTypeRecoveryStrategy
	for _, r := range []*model.ApprovalRequest{mine, awaiting, done} {
		require.NoError(t, repo.CreateRequest(ctx, r))
	}

	pending, err := repo.FindPendingByRole(ctx, model.RoleOrganizationHead)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, awaiting.ID, pending[0].ID)

	submitted, err := repo.FindBySubmitter(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, submitted, 2)
	assert.Equal(t, done.ID, submitted[0].ID)

	accessible, err := repo.FindSubmittedOrAwaiting(ctx, "alice", model.RoleOrganizationHead)
	require.NoError(t, err)
	require.Len(t, accessible, 2)
	assert.Equal(t, awaiting.ID, accessible[0].ID)
	assert.Equal(t, mine.ID, accessible[1].ID)

	all, total, err := repo.FindAll(ctx, "", "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 2)

	filtered, total, err := repo.FindAll(ctx, model.RequestStatusApproved, model.RequestTypeRecoveryStrategy, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, filtered, 1)
	assert.Equal(t, done.ID, filtered[0].ID)

	_, err = repo.FindRequestByID(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCountDecisionsByApprover(t *testing.T) {
	repo := NewApprovalRequestRepository(openTestDB(t))
	ctx := context.Background()

	req := newPendingRequest("alice", model.RoleDepartmentHead, time.Now())
	require.NoError(t, repo.CreateRequest(ctx, req))

	db := repo.db
	for _, d := range []model.Decision{model.DecisionApproved, model.DecisionApproved, model.DecisionRejected} {
		require.NoError(t, db.Create(&model.ApprovalStep{
			ID:         uuid.New().String(),
			RequestID:  req.ID,
			Role:       model.RoleDepartmentHead,
			ApproverID: "carol",
			Decision:   d,
			Timestamp:  time.Now(),
		}).Error)
	}

	counts, err := repo.CountDecisionsByApprover(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[model.DecisionApproved])
	assert.Equal(t, int64(1), counts[model.DecisionRejected])

	counts, err = repo.CountDecisionsByApprover(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))

	user := &model.User{
		ID:       uuid.New().String(),
		Username: "dana",
		Email:    "dana@example.com",
		Role:     model.RoleProcessOwner,
		Status:   model.UserStatusActive,
	}
	require.NoError(t, repo.CreateUser(user))

	found, err := repo.FindUserByUsername("dana")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	require.NoError(t, repo.UpdateUserRole(user.ID, model.RoleDepartmentHead))
	found, err = repo.FindUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleDepartmentHead, found.Role)

	assert.ErrorIs(t, repo.UpdateUserRole("missing", model.RoleAdmin), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.UpdateUserStatus("missing", model.UserStatusDisabled), gorm.ErrRecordNotFound)

	heads, err := repo.FindUsersByRole(model.RoleDepartmentHead)
	require.NoError(t, err)
	assert.Len(t, heads, 1)

	users, total, err := repo.FindAllUsersWithPagination(1, 10, "example")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, users, 1)

	_, err = repo.FindUserByID("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrganizationRepository_Upsert(t *testing.T) {
	repo := NewOrganizationRepository(openTestDB(t))

	org := &model.Organization{
		UnitCode: "OU=Finance,DC=example,DC=com",
		UnitName: "Finance",
		UnitType: model.UnitTypeOrganization,
		IsActive: true,
	}
	created, err := repo.UpsertByUnitCode(org)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotEmpty(t, org.ID)
	firstID := org.ID

	again := &model.Organization{
		UnitCode:  "OU=Finance,DC=example,DC=com",
		UnitName:  "Finance & Treasury",
		UnitType:  model.UnitTypeOrganization,
		UnitOwner: "CN=Erin,OU=Users,DC=example,DC=com",
		IsActive:  true,
	}
	created, err = repo.UpsertByUnitCode(again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, firstID, again.ID)

	stored, err := repo.FindByUnitCode("OU=Finance,DC=example,DC=com")
	require.NoError(t, err)
	assert.Equal(t, "Finance & Treasury", stored.UnitName)
	assert.Equal(t, "CN=Erin,OU=Users,DC=example,DC=com", stored.UnitOwner)
}

func TestBuildOrganizationTree(t *testing.T) {
	repo := &OrganizationRepository{}
	strPtr := func(s string) *string { return &s }

	orgs := []model.Organization{
		{ID: "org", UnitName: "Example Corp"},
		{ID: "dept-a", UnitName: "IT", ParentID: strPtr("org")},
		{ID: "dept-b", UnitName: "Finance", ParentID: strPtr("org")},
		{ID: "proc", UnitName: "Payroll", ParentID: strPtr("dept-b")},
		{ID: "orphan", UnitName: "Legacy", ParentID: strPtr("deleted")},
	}

	tree := repo.BuildOrganizationTree(orgs)
	require.Len(t, tree, 2)
	assert.Equal(t, "org", tree[0].ID)
	assert.Equal(t, "orphan", tree[1].ID)
	assert.Empty(t, tree[1].Children)

	require.Len(t, tree[0].Children, 2)
	assert.Empty(t, tree[0].Children[0].Children)
	require.Len(t, tree[0].Children[1].Children, 1)
	assert.Equal(t, "proc", tree[0].Children[1].Children[0].ID)

	assert.Empty(t, repo.BuildOrganizationTree(nil))
}

// 环路不会导致无限递归
func TestBuildOrganizationTree_Cycle(t *testing.T) {
	repo := &OrganizationRepository{}
	a, b := "a", "b"
	orgs := []model.Organization{
		{ID: "root"},
		{ID: "a", ParentID: &b},
		{ID: "b", ParentID: &a},
	}
	tree := repo.BuildOrganizationTree(orgs)
	require.Len(t, tree, 1)
	assert.Equal(t, "root", tree[0].ID)
}
