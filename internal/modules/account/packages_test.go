package account

import (
	"context"
	"testing"
	"time"

	"github.com/mailwarden/core/internal/models"
	"github.com/mailwarden/core/internal/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePackageValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t))

	tests := []struct {
		name string
		pkg  models.PackageModel
	}{
		{"empty name", models.PackageModel{EmailCredits: 100, ConcurrencyLimit: 1}},
		{"negative credits", models.PackageModel{Name: "x", EmailCredits: -1, ConcurrencyLimit: 1}},
		{"credits over cap", models.PackageModel{Name: "x", EmailCredits: 1_000_001, ConcurrencyLimit: 1}},
		{"zero concurrency", models.PackageModel{Name: "x", EmailCredits: 100, ConcurrencyLimit: 0}},
		{"concurrency over cap", models.PackageModel{Name: "x", EmailCredits: 100, ConcurrencyLimit: 1001}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := tt.pkg
			err := svc.CreatePackage(ctx, &pkg)
			assert.True(t, apperr.IsKind(err, apperr.KindValidation))
		})
	}
}

func TestCreatePackageDuplicateName(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t))
	seedPackage(t, svc, "basic")

	dup := &models.PackageModel{Name: "basic", EmailCredits: 1, ConcurrencyLimit: 1}
	err := svc.CreatePackage(ctx, dup)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestUpdatePackage(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t))
	basic := seedPackage(t, svc, "basic")
	seedPackage(t, svc, "pro")

	taken := "pro"
	_, err := svc.UpdatePackage(ctx, basic.ID, PackageParams{Name: &taken})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	credits := 9000
	features := models.StringArray{"tracking", "templates"}
	got, err := svc.UpdatePackage(ctx, basic.ID, PackageParams{
		EmailCredits: &credits,
		Features:     &features,
	})
	require.NoError(t, err)
	assert.Equal(t, 9000, got.EmailCredits)
	assert.Equal(t, features, got.Features)

	bad := -5
	_, err = svc.UpdatePackage(ctx, basic.ID, PackageParams{EmailCredits: &bad})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.UpdatePackage(ctx, "ghost", PackageParams{})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestDeletePackageRefusesWhileReferenced(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t))
	basic := seedPackage(t, svc, "basic")
	alice := seedStandard(t, svc, "alice", basic, time.Now().AddDate(0, 1, 0))

	err := svc.DeletePackage(ctx, basic.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Equal(t, "package_referenced", apperr.ReasonOf(err))

	_, err = svc.BulkDelete(ctx, []string{alice.ID})
	require.Error(t, err) // alice is the only account; no admin remains
	seedAdmin(t, svc, "root")
	_, err = svc.BulkDelete(ctx, []string{alice.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePackage(ctx, basic.ID))

	err = svc.DeletePackage(ctx, basic.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListPackages(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t))
	seedPackage(t, svc, "basic")
	seedPackage(t, svc, "pro")

	pkgs, err := svc.ListPackages(ctx)
	require.NoError(t, err)
	assert.Len(t, pkgs, 2)
}
