package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

type adminCategoryFixture struct {
	store    *fakeCategories
	cache    *fakeTreeCache
	uploader *fakeUploader
	notifier *recordingNotifier
	svc      *AdminCategoryService
}

func newAdminCategoryFixture() *adminCategoryFixture {
	f := &adminCategoryFixture{
		store:    sampleCategories(),
		cache:    &fakeTreeCache{},
		uploader: &fakeUploader{url: "https://cdn.drop.az/category_icons/1/icon.png"},
		notifier: &recordingNotifier{},
	}
	f.svc = NewAdminCategoryService(f.store, f.cache, f.uploader, f.notifier)
	return f
}

func TestAdminCategoryService_CreateGeneratesSlug(t *testing.T) {
	f := newAdminCategoryFixture()
	parent := int64(5)

	c, err := f.svc.Create(context.Background(), CategoryInput{Name: "Uşaq Geyimləri", ParentID: &parent, IconClass: "fas fa-tshirt"})
	require.NoError(t, err)
	assert.Equal(t, "usaq-geyimleri", c.Slug)
	assert.Equal(t, models.DefaultIconColor, c.IconColor)
	assert.Equal(t, 1, f.cache.invalidated)
	assert.Equal(t, []string{"category.created"}, f.notifier.categories)
}

func TestAdminCategoryService_CreateValidation(t *testing.T) {
	f := newAdminCategoryFixture()
	missing := int64(404)

	_, err := f.svc.Create(context.Background(), CategoryInput{
		Name:      "Telefonlar",
		Priority:  -1,
		IconClass: "heart",
		IconColor: "red",
		ParentID:  &missing,
	})
	fields := validationFields(t, err)
	assert.Equal(t, msgSlugTaken, fields["slug"])
	assert.Equal(t, msgPriorityNeg, fields["priority"])
	assert.Equal(t, msgIconInvalid, fields["icon_class"])
	assert.Equal(t, msgColorInvalid, fields["icon_color"])
	assert.Equal(t, msgParentAbsent, fields["parent_id"])
	assert.Zero(t, f.cache.invalidated)
}

func TestAdminCategoryService_DepthLimit(t *testing.T) {
	f := newAdminCategoryFixture()
	smartphones := int64(4)

	_, err := f.svc.Create(context.Background(), CategoryInput{Name: "Aksesuarlar", ParentID: &smartphones})
	assert.ErrorIs(t, err, utils.ErrCategoryDepth)

	// Moving Telefonlar (height 2) under Geyim keeps depth at 3.
	geyim := int64(5)
	moved, err := f.svc.Update(context.Background(), 2, CategoryInput{Name: "Telefonlar", Slug: "telefonlar", ParentID: &geyim})
	require.NoError(t, err)
	assert.Equal(t, &geyim, moved.ParentID)

	// Geyim now has height 3 and cannot go below a root.
	elec := int64(1)
	_, err = f.svc.Update(context.Background(), 5, CategoryInput{Name: "Geyim", ParentID: &elec})
	assert.ErrorIs(t, err, utils.ErrCategoryDepth)
}

func TestAdminCategoryService_RejectsCycles(t *testing.T) {
	f := newAdminCategoryFixture()

	self := int64(2)
	_, err := f.svc.Update(context.Background(), 2, CategoryInput{Name: "Telefonlar", ParentID: &self})
	assert.ErrorIs(t, err, utils.ErrCategoryCycle)

	child := int64(4)
	_, err = f.svc.Update(context.Background(), 1, CategoryInput{Name: "Elektronika", ParentID: &child})
	assert.ErrorIs(t, err, utils.ErrCategoryCycle)
}

func TestAdminCategoryService_UpdateKeepsOwnSlug(t *testing.T) {
	f := newAdminCategoryFixture()

	c, err := f.svc.Update(context.Background(), 5, CategoryInput{Name: "Geyim", Priority: 3, IconColor: "#FF0000"})
	require.NoError(t, err)
	assert.Equal(t, "geyim", c.Slug)
	assert.Equal(t, "#ff0000", c.IconColor)
	assert.Equal(t, 3, c.Priority)

	_, err = f.svc.Update(context.Background(), 404, CategoryInput{Name: "X"})
	assert.ErrorIs(t, err, utils.ErrCategoryNotFound)
}

func TestAdminCategoryService_GetIncludesPath(t *testing.T) {
	f := newAdminCategoryFixture()

	view, err := f.svc.Get(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, view.Breadcrumb, 3)
	assert.Equal(t, "TOP", view.PriorityLevel.Level)
}

func TestAdminCategoryService_Priority(t *testing.T) {
	f := newAdminCategoryFixture()
	ctx := context.Background()

	c, err := f.svc.SetPriority(ctx, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, c.Priority)

	_, err = f.svc.SetPriority(ctx, 3, -2)
	assert.Contains(t, validationFields(t, err), "priority")
	_, err = f.svc.SetPriority(ctx, 404, 1)
	assert.ErrorIs(t, err, utils.ErrCategoryNotFound)

	n, err := f.svc.BulkSetPriority(ctx, []int64{1, 2, 404}, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Len(t, f.notifier.categories, 3)

	_, err = f.svc.BulkSetPriority(ctx, nil, 10)
	assert.Contains(t, validationFields(t, err), "ids")
}

func TestAdminCategoryService_DeleteAndUpload(t *testing.T) {
	f := newAdminCategoryFixture()
	ctx := context.Background()

	c, err := f.svc.UploadIcon(ctx, 1, Upload{Filename: "icon.png"})
	require.NoError(t, err)
	assert.Equal(t, f.uploader.url, c.IconImage)

	f.uploader.err = utils.ErrStorageDisabled
	_, err = f.svc.UploadIcon(ctx, 1, Upload{Filename: "icon.png"})
	assert.ErrorIs(t, err, utils.ErrStorageDisabled)

	require.NoError(t, f.svc.Delete(ctx, 5))
	assert.ErrorIs(t, f.svc.Delete(ctx, 5), utils.ErrCategoryNotFound)
	assert.Contains(t, f.notifier.categories, "category.deleted")
}

func TestAdminCategoryService_ExportCSV(t *testing.T) {
	f := newAdminCategoryFixture()
	var buf bytes.Buffer

	require.NoError(t, f.svc.ExportCSV(context.Background(), &buf, []int64{2}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, categoryCSVHeader, records[0])
	assert.Equal(t, []string{"2", "Telefonlar", "telefonlar", "1"}, records[1][:4])
}

func TestSearchIcons(t *testing.T) {
	all := SearchIcons("", "")
	assert.Len(t, all.Groups, len(iconDatabase))
	assert.Greater(t, all.Total, 300)

	brands := SearchIcons("", "Brendlər")
	require.Len(t, brands.Groups, 1)
	assert.Equal(t, "fab fa-apple", brands.Groups[0].Icons[0].Class)
	assert.Equal(t, "Brand", brands.Groups[0].Icons[0].Type)

	hearts := SearchIcons("HEART", "")
	for _, g := range hearts.Groups {
		for _, icon := range g.Icons {
			assert.Contains(t, icon.Name, "heart")
		}
	}
	assert.Positive(t, hearts.Total)
	assert.Zero(t, SearchIcons("zzz-none", "").Total)
}
