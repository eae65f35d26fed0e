package cart

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/karimadly/soukly-backend/pkg/db/models"
	"github.com/karimadly/soukly-backend/pkg/enums"
	apperrors "github.com/karimadly/soukly-backend/pkg/errors"
	"github.com/karimadly/soukly-backend/pkg/logger"
)

type gormTx struct{ db *gorm.DB }

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.CartRecord{}, &models.CartItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Repo:          NewRepository(db),
		Tx:            gormTx{db: db},
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		MaxQtyPerLine: 20,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func userOwner(id uuid.UUID) Owner {
	return Owner{UserID: &id}
}

func TestGetOrCreateIsIdempotentPerOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.GetOrCreate(ctx, userOwner(userID))
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	second, err := svc.GetOrCreate(ctx, userOwner(userID))
	if err != nil {
		t.Fatalf("second get or create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatal("same owner must get the same active cart")
	}
}

func TestOwnerMustBeUserOrGuest(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, Owner{})
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	userID := uuid.New()
	_, err = svc.GetOrCreate(ctx, Owner{UserID: &userID, GuestToken: "tok"})
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeValidation {
		t.Fatalf("expected validation error for dual owner, got %v", err)
	}
}

func TestAddItemMergesSameBucket(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := userOwner(uuid.New())
	productID := uuid.New()

	if _, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: productID, Color: "black", Size: "M", Qty: 2}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	cart, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: productID, Color: "black", Size: "M", Qty: 3})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected merged line, got %d items", len(cart.Items))
	}
	if cart.Items[0].Qty != 5 {
		t.Fatalf("merged qty = %d", cart.Items[0].Qty)
	}

	// different size is a distinct line
	cart, err = svc.AddItem(ctx, owner, AddItemInput{ProductID: productID, Color: "black", Size: "L", Qty: 1})
	if err != nil {
		t.Fatalf("third add: %v", err)
	}
	if len(cart.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(cart.Items))
	}
}

func TestAddItemEnforcesQtyBounds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := userOwner(uuid.New())

	_, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: uuid.New(), Qty: 0})
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeValidation {
		t.Fatalf("expected validation error for zero qty, got %v", err)
	}
	_, err = svc.AddItem(ctx, owner, AddItemInput{ProductID: uuid.New(), Qty: 21})
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeValidation {
		t.Fatalf("expected validation error above limit, got %v", err)
	}
}

func TestUpdateAndRemoveItem(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := userOwner(uuid.New())

	cart, err := svc.AddItem(ctx, owner, AddItemInput{ProductID: uuid.New(), Color: "red", Size: "S", Qty: 1})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	itemID := cart.Items[0].ID

	cart, err = svc.UpdateItemQty(ctx, owner, itemID, 4)
	if err != nil {
		t.Fatalf("update qty: %v", err)
	}
	if cart.Items[0].Qty != 4 {
		t.Fatalf("qty = %d", cart.Items[0].Qty)
	}

	cart, err = svc.RemoveItem(ctx, owner, itemID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(cart.Items))
	}

	_, err = svc.UpdateItemQty(ctx, owner, itemID, 2)
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeNotFound {
		t.Fatalf("expected not found for removed item, got %v", err)
	}
}

func TestItemsAreOwnerScoped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	alice := userOwner(uuid.New())
	mallory := userOwner(uuid.New())

	cart, err := svc.AddItem(ctx, alice, AddItemInput{ProductID: uuid.New(), Color: "blue", Size: "M", Qty: 1})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err = svc.RemoveItem(ctx, mallory, cart.Items[0].ID)
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeNotFound {
		t.Fatalf("cross-owner removal must 404, got %v", err)
	}
}

func TestMergeOnLoginFoldsGuestCart(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	guest := Owner{GuestToken: "guest-abc"}
	sharedProduct := uuid.New()

	// guest picked two lines; user already had one of the same buckets
	if _, err := svc.AddItem(ctx, guest, AddItemInput{ProductID: sharedProduct, Color: "black", Size: "M", Qty: 2}); err != nil {
		t.Fatalf("guest add: %v", err)
	}
	if _, err := svc.AddItem(ctx, guest, AddItemInput{ProductID: uuid.New(), Color: "white", Size: "L", Qty: 1}); err != nil {
		t.Fatalf("guest add 2: %v", err)
	}
	if _, err := svc.AddItem(ctx, userOwner(userID), AddItemInput{ProductID: sharedProduct, Color: "black", Size: "M", Qty: 1}); err != nil {
		t.Fatalf("user add: %v", err)
	}

	merged, err := svc.MergeOnLogin(ctx, "guest-abc", userID)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged.Items) != 2 {
		t.Fatalf("expected 2 merged lines, got %d", len(merged.Items))
	}
	total := 0
	for _, item := range merged.Items {
		total += item.Qty
	}
	if total != 4 {
		t.Fatalf("merged qty total = %d", total)
	}

	// guest cart retired, not deleted
	var guestCart models.CartRecord
	if err := db.Where("guest_token = ?", "guest-abc").First(&guestCart).Error; err != nil {
		t.Fatalf("guest cart must survive: %v", err)
	}
	if guestCart.Status != enums.CartStatusMerged {
		t.Fatalf("guest cart status = %s", guestCart.Status)
	}
}

func TestMergeOnLoginWithoutGuestCart(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	merged, err := svc.MergeOnLogin(ctx, "never-seen", userID)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged == nil || merged.UserID == nil || *merged.UserID != userID {
		t.Fatal("merge without a guest cart must still yield the user cart")
	}
}

func TestClearAfterOrderConvertsActiveCart(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := svc.AddItem(ctx, userOwner(userID), AddItemInput{ProductID: uuid.New(), Color: "black", Size: "M", Qty: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.ClearAfterOrder(ctx, tx, &userID, "")
	})
	if err != nil {
		t.Fatalf("clear after order: %v", err)
	}

	cart, err := svc.GetOrCreate(ctx, userOwner(userID))
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatal("post-checkout cart must start empty")
	}

	var converted int64
	if err := db.Model(&models.CartRecord{}).Where("status = ?", enums.CartStatusConverted).Count(&converted).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if converted != 1 {
		t.Fatalf("expected 1 converted cart, got %d", converted)
	}
}
