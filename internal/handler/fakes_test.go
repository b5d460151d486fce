package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/repository"
	"github.com/GTDGit/dropaz_api/internal/service"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// envelope mirrors utils.Response with a raw data field.
type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	Meta utils.Meta `json:"meta"`
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

// fakeLimiter records failures and blocks after limit.
type fakeLimiter struct {
	limit    int
	failures int
}

func (f *fakeLimiter) Allow(string) bool {
	f.failures++
	return f.failures <= f.limit
}

func (f *fakeLimiter) Blocked(string) bool {
	return f.failures >= f.limit
}

type fakeAccounts struct {
	registerErr error
	sendErr     error
	verifyErr   error
	refreshErr  error
	profileErr  error
	lastPartial bool
	lastUserID  int64
}

func (f *fakeAccounts) Register(_ context.Context, req service.RegisterRequest) (*service.OTPResult, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &service.OTPResult{Message: "Qeydiyyat uğurlu oldu! OTP kodu göndərildi.", Phone: req.Phone}, nil
}

func (f *fakeAccounts) SendOTP(_ context.Context, phone string) (*service.OTPResult, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &service.OTPResult{Message: "OTP kodu göndərildi", Phone: phone}, nil
}

func (f *fakeAccounts) VerifyOTP(_ context.Context, phone, _ string) (*service.LoginResult, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &service.LoginResult{Access: "a", Refresh: "r", User: models.UserProfile{Phone: phone}}, nil
}

func (f *fakeAccounts) Refresh(string) (string, error) {
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return "new-access", nil
}

func (f *fakeAccounts) Profile(_ context.Context, userID int64) (*models.UserProfile, error) {
	f.lastUserID = userID
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return &models.UserProfile{ID: userID, Phone: "+994501234567"}, nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, userID int64, req service.ProfileUpdate, partial bool) (*models.UserProfile, error) {
	f.lastUserID, f.lastPartial = userID, partial
	p := &models.UserProfile{ID: userID}
	if req.FirstName != nil {
		p.FirstName = *req.FirstName
	}
	return p, nil
}

type fakeCatalog struct {
	err        error
	lastQuery  service.ProductQuery
	lastSlug   string
	tree       []*models.CategoryNode
	invalidate int
}

func (f *fakeCatalog) Home(context.Context) *service.Home {
	return &service.Home{Products: []models.ProductView{}}
}

func (f *fakeCatalog) ListProducts(_ context.Context, q service.ProductQuery) (*service.ProductPage, error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, f.err
	}
	q.Normalize()
	return &service.ProductPage{Products: []models.ProductView{}, Total: 30, Page: q.Page, PerPage: q.PerPage, Query: q}, nil
}

func (f *fakeCatalog) NewProducts(context.Context) ([]models.ProductView, error) {
	return nil, f.err
}

func (f *fakeCatalog) ProductDetail(_ context.Context, slug string) (*service.ProductDetail, error) {
	f.lastSlug = slug
	if f.err != nil {
		return nil, f.err
	}
	return &service.ProductDetail{Product: models.Product{Slug: slug}.View()}, nil
}

func (f *fakeCatalog) CategoryTree(context.Context) ([]*models.CategoryNode, error) {
	return f.tree, f.err
}

func (f *fakeCatalog) CategoryDetail(_ context.Context, slug string, q service.ProductQuery) (*service.CategoryDetail, error) {
	f.lastSlug, f.lastQuery = slug, q
	if f.err != nil {
		return nil, f.err
	}
	q.Normalize()
	return &service.CategoryDetail{
		Category: &models.CategoryNode{},
		Products: &service.ProductPage{Products: []models.ProductView{}, Total: 5, Page: q.Page, PerPage: q.PerPage},
	}, nil
}

func (f *fakeCatalog) HeaderCategories(context.Context) models.HeaderCategories {
	return models.HeaderCategories{Categories: []models.HeaderCategory{}}
}

func (f *fakeCatalog) Breadcrumb(_ context.Context, slug string) ([]models.CategoryRef, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.CategoryRef{{ID: 1, Name: "Elektronika", Slug: slug}}, nil
}

func (f *fakeCatalog) InvalidateTree(context.Context) error {
	f.invalidate++
	return f.err
}

type fakeAdminCategories struct {
	err        error
	lastFilter repository.AdminCategoryFilter
	lastIDs    []int64
	upload     service.Upload
	uploadBody string
}

func (f *fakeAdminCategories) List(_ context.Context, filter repository.AdminCategoryFilter) ([]models.AdminCategoryRow, int, error) {
	f.lastFilter = filter
	return nil, 0, f.err
}

func (f *fakeAdminCategories) Get(_ context.Context, id int64) (*service.AdminCategoryView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.AdminCategoryView{Category: models.Category{ID: id}}, nil
}

func (f *fakeAdminCategories) Create(_ context.Context, in service.CategoryInput) (*models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Category{ID: 9, Name: in.Name, Slug: "new"}, nil
}

func (f *fakeAdminCategories) Update(_ context.Context, id int64, in service.CategoryInput) (*models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Category{ID: id, Name: in.Name}, nil
}

func (f *fakeAdminCategories) Delete(context.Context, int64) error {
	return f.err
}

func (f *fakeAdminCategories) SetPriority(_ context.Context, id int64, priority int) (*models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Category{ID: id, Priority: priority}, nil
}

func (f *fakeAdminCategories) BulkSetPriority(_ context.Context, ids []int64, _ int) (int64, error) {
	f.lastIDs = ids
	return int64(len(ids)), f.err
}

func (f *fakeAdminCategories) UploadIcon(_ context.Context, id int64, up service.Upload) (*models.Category, error) {
	f.upload = up
	b, _ := io.ReadAll(up.Body)
	f.uploadBody = string(b)
	return &models.Category{ID: id, IconImage: "https://cdn.drop.az/icon.png"}, f.err
}

func (f *fakeAdminCategories) ExportCSV(_ context.Context, w io.Writer, ids []int64) error {
	f.lastIDs = ids
	_, err := io.WriteString(w, "id,name\n1,Elektronika\n")
	return err
}

type fakeAdminProducts struct {
	err        error
	lastFilter repository.ProductFilter
	lastPatch  service.ProductPatchInput
	lastAction string
}

func (f *fakeAdminProducts) List(_ context.Context, filter repository.ProductFilter) ([]models.ProductView, int, error) {
	f.lastFilter = filter
	return []models.ProductView{}, 0, f.err
}

func (f *fakeAdminProducts) Get(_ context.Context, id int64) (*models.ProductView, error) {
	if f.err != nil {
		return nil, f.err
	}
	v := models.Product{ID: id}.View()
	return &v, nil
}

func (f *fakeAdminProducts) Create(_ context.Context, in service.ProductInput) (*models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := &models.Product{ID: 1, Name: in.Name}
	if in.Price != nil {
		p.Price = *in.Price
	}
	return p, nil
}

func (f *fakeAdminProducts) Update(_ context.Context, id int64, in service.ProductInput) (*models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Product{ID: id, Name: in.Name}, nil
}

func (f *fakeAdminProducts) Patch(_ context.Context, id int64, in service.ProductPatchInput) (*models.Product, error) {
	f.lastPatch = in
	if f.err != nil {
		return nil, f.err
	}
	return &models.Product{ID: id, Stock: *in.Stock}, nil
}

func (f *fakeAdminProducts) Bulk(_ context.Context, ids []int64, action string) (*service.BulkResult, error) {
	f.lastAction = action
	if f.err != nil {
		return nil, f.err
	}
	return &service.BulkResult{Updated: int64(len(ids)), Message: "2 məhsul satışa çıxarıldı."}, nil
}

func (f *fakeAdminProducts) Delete(context.Context, int64) error {
	return f.err
}

func (f *fakeAdminProducts) UploadImage(_ context.Context, id int64, _ service.Upload) (*models.Product, error) {
	return &models.Product{ID: id}, f.err
}

func (f *fakeAdminProducts) ExportCSV(_ context.Context, w io.Writer, _ []int64) error {
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, "id,name\n")
	return err
}
