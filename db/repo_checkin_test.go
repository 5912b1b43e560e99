package db

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/Ashnagdarc/Nest-sub004/models"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testRepo opens the postgres database named by TEST_DATABASE_DSN and
// migrates the schema. Tests that need a database skip when it is unset.
func testRepo(t *testing.T) *Repo {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open %s: %v", dsn, err)
	}
	if err := Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepo(gdb)
}

type checkoutFixture struct {
	member models.User
	admin  models.User
	gear   models.Gear
	req    *models.GearRequest
}

// checkedOutRequest seeds a member, an admin, one gear type and a
// request for qty units, driven all the way to CheckedOut.
func checkedOutRequest(t *testing.T, repo *Repo, qty int) checkoutFixture {
	t.Helper()
	ctx := context.Background()

	f := checkoutFixture{
		member: models.User{ID: uuid.NewString(), Email: uuid.NewString() + "@example.com", DisplayName: "Member"},
		admin:  models.User{ID: uuid.NewString(), Email: uuid.NewString() + "@example.com", DisplayName: "Admin", IsAdmin: true},
		gear:   models.Gear{ID: uuid.NewString(), Name: "Camera", QuantityOwned: qty, QuantityAvailable: qty},
	}
	for _, u := range []*models.User{&f.member, &f.admin} {
		if err := repo.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	if err := repo.CreateGear(ctx, &f.gear); err != nil {
		t.Fatalf("create gear: %v", err)
	}

	req, err := repo.CreateRequest(ctx, CreateRequestInput{
		UserID: f.member.ID,
		Reason: "shoot",
		Lines:  []LineInput{{GearID: f.gear.ID, Quantity: qty}},
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if _, err := repo.SetRequestStatus(ctx, req.ID, models.RequestStatusApproved, f.admin.ID, "ok"); err != nil {
		t.Fatalf("approve request: %v", err)
	}
	if _, err := repo.MarkCheckedOut(ctx, req.ID, f.admin.ID); err != nil {
		t.Fatalf("check out: %v", err)
	}
	f.req = req
	return f
}

func pendingCheckin(t *testing.T, repo *Repo, f checkoutFixture, qty int) *models.CheckinRecord {
	t.Helper()
	rec := &models.CheckinRecord{
		RequestID: &f.req.ID,
		UserID:    f.member.ID,
		GearID:    f.gear.ID,
		Quantity:  qty,
		Condition: models.ConditionGood,
	}
	if err := repo.CreateCheckin(context.Background(), rec); err != nil {
		t.Fatalf("create checkin: %v", err)
	}
	return rec
}

// Approving returns one by one walks the request through
// PartiallyReturned to Completed, restocks the gear and appends the
// matching history rows.
func TestApproveCheckin_SettlesRequest(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	f := checkedOutRequest(t, repo, 2)

	first := pendingCheckin(t, repo, f, 1)
	second := pendingCheckin(t, repo, f, 1)

	res, err := repo.ApproveCheckin(ctx, first.ID, f.admin.ID)
	if err != nil {
		t.Fatalf("approve first: %v", err)
	}
	if res.RequestStatus != models.RequestStatusPartiallyReturned {
		t.Errorf("after first approval request is %s, want %s",
			res.RequestStatus, models.RequestStatusPartiallyReturned)
	}

	res, err = repo.ApproveCheckin(ctx, second.ID, f.admin.ID)
	if err != nil {
		t.Fatalf("approve second: %v", err)
	}
	if res.RequestStatus != models.RequestStatusCompleted {
		t.Errorf("after second approval request is %s, want %s",
			res.RequestStatus, models.RequestStatusCompleted)
	}
	if len(res.Approved) != 1 || res.Approved[0].Status != models.CheckinStatusCompleted {
		t.Errorf("unexpected approval result: %+v", res.Approved)
	}

	g, err := repo.FindGearByID(ctx, f.gear.ID)
	if err != nil {
		t.Fatalf("find gear: %v", err)
	}
	if g.QuantityAvailable != 2 {
		t.Errorf("gear available = %d, want 2", g.QuantityAvailable)
	}

	hist, err := repo.RequestHistory(ctx, f.req.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	last := hist[len(hist)-1]
	if last.Status != models.RequestStatusCompleted || last.Note != "all gear returned" {
		t.Errorf("last history row = %s %q, want %s %q",
			last.Status, last.Note, models.RequestStatusCompleted, "all gear returned")
	}
}

// A second approval of the same record hits zero rows and fails with a
// conflict instead of restocking or settling twice.
func TestApproveCheckin_SecondApprovalConflicts(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	f := checkedOutRequest(t, repo, 1)
	rec := pendingCheckin(t, repo, f, 1)

	if _, err := repo.ApproveCheckin(ctx, rec.ID, f.admin.ID); err != nil {
		t.Fatalf("first approval: %v", err)
	}
	if _, err := repo.ApproveCheckin(ctx, rec.ID, f.admin.ID); !errors.Is(err, ErrCheckinNotPending) {
		t.Fatalf("second approval err = %v, want ErrCheckinNotPending", err)
	}

	g, err := repo.FindGearByID(ctx, f.gear.ID)
	if err != nil {
		t.Fatalf("find gear: %v", err)
	}
	if g.QuantityAvailable != 1 {
		t.Errorf("gear available = %d, want 1 (no double restock)", g.QuantityAvailable)
	}

	hist, err := repo.RequestHistory(ctx, f.req.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	completions := 0
	for _, h := range hist {
		if h.Status == models.RequestStatusCompleted {
			completions++
		}
	}
	if completions != 1 {
		t.Errorf("got %d Completed history rows, want 1", completions)
	}
}

// Rejecting a settled record is refused the same way.
func TestRejectCheckin_CompletedIsConflict(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	f := checkedOutRequest(t, repo, 1)
	rec := pendingCheckin(t, repo, f, 1)

	if _, err := repo.ApproveCheckin(ctx, rec.ID, f.admin.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := repo.RejectCheckin(ctx, rec.ID, f.admin.ID, "late"); !errors.Is(err, ErrCheckinNotPending) {
		t.Fatalf("reject err = %v, want ErrCheckinNotPending", err)
	}
}

// Group approval re-derives the member set, approves every pending row
// and settles the request exactly once.
func TestApproveGroup_SettlesRequestOnce(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()
	f := checkedOutRequest(t, repo, 2)
	pendingCheckin(t, repo, f, 1)
	pendingCheckin(t, repo, f, 1)

	res, err := repo.ApproveGroup(ctx, "req::"+f.req.ID, f.admin.ID)
	if err != nil {
		t.Fatalf("approve group: %v", err)
	}
	if len(res.Approved) != 2 {
		t.Fatalf("approved %d records, want 2", len(res.Approved))
	}
	if res.RequestStatus != models.RequestStatusCompleted {
		t.Errorf("request status = %s, want %s", res.RequestStatus, models.RequestStatusCompleted)
	}

	if _, err := repo.ApproveGroup(ctx, "req::"+f.req.ID, f.admin.ID); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("re-approve err = %v, want ErrNothingPending", err)
	}

	hist, err := repo.RequestHistory(ctx, f.req.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	completions := 0
	for _, h := range hist {
		if h.Status == models.RequestStatusCompleted {
			completions++
		}
	}
	if completions != 1 {
		t.Errorf("got %d Completed history rows, want 1", completions)
	}
}
