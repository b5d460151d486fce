package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/repository"
	"github.com/GTDGit/dropaz_api/internal/sse"
)

var errBoom = errors.New("boom")

// fakeUsers is an in-memory UserStore.
type fakeUsers struct {
	mu     sync.Mutex
	byID   map[int64]*models.User
	nextID int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]*models.User{}}
}

func (f *fakeUsers) add(u models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	f.byID[u.ID] = &u
	return &u
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	u.IsActive = true
	u.CreatedAt = time.Now()
	stored := f.add(*u)
	u.ID = stored.ID
	stored.IsActive = true
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUsers) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	_, err := f.GetByPhone(ctx, phone)
	return err == nil, nil
}

func (f *fakeUsers) SetOTP(_ context.Context, id int64, code string, createdAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[id]
	u.OTPCode = &code
	u.OTPCreatedAt = &createdAt
	u.OTPAttempts = 0
	return nil
}

func (f *fakeUsers) ClaimOTPAttempt(_ context.Context, id int64, maxAttempts int, issuedAfter time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.OTPCode == nil || u.OTPCreatedAt == nil ||
		u.OTPAttempts >= maxAttempts || !u.OTPCreatedAt.After(issuedAfter) {
		return 0, sql.ErrNoRows
	}
	u.OTPAttempts++
	return u.OTPAttempts, nil
}

func (f *fakeUsers) MarkVerified(_ context.Context, id int64, loginAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[id]
	u.IsPhoneVerified = true
	u.OTPCode, u.OTPCreatedAt, u.OTPAttempts = nil, nil, 0
	u.LastLogin = &loginAt
	return nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) List(_ context.Context, _ repository.UserFilter) ([]models.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.User{}
	for _, u := range f.byID {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

// recordingSender remembers the last code sent per phone.
type recordingSender struct {
	codes map[string]string
	err   error
}

func newRecordingSender() *recordingSender {
	return &recordingSender{codes: map[string]string{}}
}

func (r *recordingSender) SendOTP(_ context.Context, phone, code string) error {
	if r.err != nil {
		return r.err
	}
	r.codes[phone] = code
	return nil
}

// fakeCategories is an in-memory category store.
type fakeCategories struct {
	items  []models.Category
	nextID int64
	err    error
}

func (f *fakeCategories) add(name, slug string, parent *int64, priority int) int64 {
	f.nextID++
	f.items = append(f.items, models.Category{
		ID: f.nextID, Name: name, Slug: slug, ParentID: parent, Priority: priority,
		IconColor: models.DefaultIconColor, UpdatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	return f.nextID
}

func (f *fakeCategories) index(id int64) int {
	for i := range f.items {
		if f.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeCategories) GetAll(context.Context) ([]models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Category, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeCategories) GetByID(_ context.Context, id int64) (*models.Category, error) {
	if i := f.index(id); i >= 0 {
		c := f.items[i]
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCategories) GetBySlug(_ context.Context, slug string) (*models.Category, error) {
	for _, c := range f.items {
		if c.Slug == slug {
			c := c
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCategories) GetByIDs(ctx context.Context, ids []int64) ([]models.Category, error) {
	if len(ids) == 0 {
		return f.GetAll(ctx)
	}
	out := []models.Category{}
	for _, id := range ids {
		if i := f.index(id); i >= 0 {
			out = append(out, f.items[i])
		}
	}
	return out, nil
}

func (f *fakeCategories) Suggest(_ context.Context, term string, limit int) ([]models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Category{}
	for _, c := range f.items {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(term)) && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCategories) AdminList(_ context.Context, _ repository.AdminCategoryFilter) ([]models.AdminCategoryRow, int, error) {
	rows := []models.AdminCategoryRow{}
	for _, c := range f.items {
		row := models.AdminCategoryRow{Category: c}
		row.Decorate()
		rows = append(rows, row)
	}
	return rows, len(rows), nil
}

func (f *fakeCategories) SlugExists(_ context.Context, slug string, excludeID int64) (bool, error) {
	for _, c := range f.items {
		if c.Slug == slug && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCategories) Create(_ context.Context, c *models.Category) error {
	f.nextID++
	c.ID = f.nextID
	f.items = append(f.items, *c)
	return nil
}

func (f *fakeCategories) Update(_ context.Context, c *models.Category) error {
	i := f.index(c.ID)
	if i < 0 {
		return sql.ErrNoRows
	}
	f.items[i] = *c
	return nil
}

func (f *fakeCategories) UpdatePriority(_ context.Context, id int64, priority int) error {
	i := f.index(id)
	if i < 0 {
		return sql.ErrNoRows
	}
	f.items[i].Priority = priority
	return nil
}

func (f *fakeCategories) BulkUpdatePriority(_ context.Context, ids []int64, priority int) (int64, error) {
	var n int64
	for _, id := range ids {
		if i := f.index(id); i >= 0 {
			f.items[i].Priority = priority
			n++
		}
	}
	return n, nil
}

func (f *fakeCategories) UpdateIconImage(_ context.Context, id int64, url string) error {
	i := f.index(id)
	if i < 0 {
		return sql.ErrNoRows
	}
	f.items[i].IconImage = url
	return nil
}

func (f *fakeCategories) Delete(_ context.Context, id int64) error {
	i := f.index(id)
	if i < 0 {
		return sql.ErrNoRows
	}
	f.items = append(f.items[:i], f.items[i+1:]...)
	return nil
}

// fakeProducts is an in-memory product store; List honours only category, availability and paging.
type fakeProducts struct {
	items      []models.Product
	nextID     int64
	err        error
	lastFilter repository.ProductFilter
}

func (f *fakeProducts) add(p models.Product) int64 {
	f.nextID++
	p.ID = f.nextID
	f.items = append(f.items, p)
	return p.ID
}

func (f *fakeProducts) index(id int64) int {
	for i := range f.items {
		if f.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeProducts) List(_ context.Context, filter repository.ProductFilter) ([]models.Product, int, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, 0, f.err
	}
	inCategory := map[int64]bool{}
	for _, id := range filter.CategoryIDs {
		inCategory[id] = true
	}
	matched := []models.Product{}
	for _, p := range f.items {
		if filter.Available != nil && p.Available != *filter.Available {
			continue
		}
		if len(inCategory) > 0 && !inCategory[p.CategoryID] {
			continue
		}
		matched = append(matched, p)
	}
	start := (filter.Page - 1) * filter.PerPage
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func (f *fakeProducts) Newest(_ context.Context, limit int) ([]models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Product{}
	for i := len(f.items) - 1; i >= 0 && len(out) < limit; i-- {
		if f.items[i].Available {
			out = append(out, f.items[i])
		}
	}
	return out, nil
}

func (f *fakeProducts) GetByID(_ context.Context, id int64) (*models.Product, error) {
	if i := f.index(id); i >= 0 {
		p := f.items[i]
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeProducts) GetBySlug(_ context.Context, slug string) (*models.Product, error) {
	for _, p := range f.items {
		if p.Slug == slug {
			p := p
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeProducts) GetByIDs(_ context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return append([]models.Product{}, f.items...), nil
	}
	out := []models.Product{}
	for _, id := range ids {
		if i := f.index(id); i >= 0 {
			out = append(out, f.items[i])
		}
	}
	return out, nil
}

func (f *fakeProducts) Related(_ context.Context, categoryID, excludeID int64, limit int) ([]models.Product, error) {
	out := []models.Product{}
	for _, p := range f.items {
		if p.CategoryID == categoryID && p.ID != excludeID && p.Available && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) Suggest(_ context.Context, term string, limit int) ([]models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Product{}
	for _, p := range f.items {
		if p.Available && strings.Contains(strings.ToLower(p.Name), strings.ToLower(term)) && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) ListAvailable(context.Context) ([]models.Product, error) {
	out := []models.Product{}
	for _, p := range f.items {
		if p.Available {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) AvailableCountsByCategory(context.Context) (map[int64]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	counts := map[int64]int{}
	for _, p := range f.items {
		if p.Available {
			counts[p.CategoryID]++
		}
	}
	return counts, nil
}

func (f *fakeProducts) Stats(context.Context) (*models.ProductStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	stats := &models.ProductStats{TotalProducts: len(f.items)}
	for _, p := range f.items {
		if p.Available {
			stats.AvailableProducts++
		}
	}
	return stats, nil
}

func (f *fakeProducts) SlugExists(_ context.Context, slug string, excludeID int64) (bool, error) {
	for _, p := range f.items {
		if p.Slug == slug && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProducts) Create(_ context.Context, p *models.Product) error {
	f.nextID++
	p.ID = f.nextID
	f.items = append(f.items, *p)
	return nil
}

func (f *fakeProducts) Update(_ context.Context, p *models.Product) error {
	i := f.index(p.ID)
	if i < 0 {
		return sql.ErrNoRows
	}
	f.items[i] = *p
	return nil
}

func (f *fakeProducts) Patch(_ context.Context, id int64, patch repository.ProductPatch) error {
	i := f.index(id)
	if i < 0 {
		return sql.ErrNoRows
	}
	if patch.Price != nil {
		f.items[i].Price = *patch.Price
	}
	if patch.Stock != nil {
		f.items[i].Stock = *patch.Stock
	}
	if patch.Available != nil {
		f.items[i].Available = *patch.Available
	}
	return nil
}

func (f *fakeProducts) SetAvailable(_ context.Context, ids []int64, available bool) (int64, error) {
	var n int64
	for _, id := range ids {
		if i := f.index(id); i >= 0 {
			f.items[i].Available = available
			n++
		}
	}
	return n, nil
}

func (f *fakeProducts) UpdateImage(_ context.Context, id int64, url string) error {
	i := f.index(id)
	if i < 0 {
		return sql.ErrNoRows
	}
	f.items[i].Image = url
	return nil
}

func (f *fakeProducts) Delete(_ context.Context, id int64) error {
	i := f.index(id)
	if i < 0 {
		return sql.ErrNoRows
	}
	f.items = append(f.items[:i], f.items[i+1:]...)
	return nil
}

// fakeTreeCache is an in-memory TreeCache that counts invalidations.
type fakeTreeCache struct {
	tree        []*models.CategoryNode
	found       bool
	getErr      error
	sets        int
	invalidated int
}

func (f *fakeTreeCache) GetTree(context.Context) ([]*models.CategoryNode, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.tree, f.found, nil
}

func (f *fakeTreeCache) SetTree(_ context.Context, tree []*models.CategoryNode) error {
	f.tree, f.found = tree, true
	f.sets++
	return nil
}

func (f *fakeTreeCache) Invalidate(context.Context) error {
	f.tree, f.found = nil, false
	f.invalidated++
	return nil
}

// fakeSearch is a Suggester and ProductIndexer.
type fakeSearch struct {
	enabled bool
	hits    []models.ProductSuggestion
	err     error
	indexed []int64
	deleted []int64
}

func (f *fakeSearch) Enabled() bool { return f.enabled }

func (f *fakeSearch) Suggest(context.Context, string, int) ([]models.ProductSuggestion, error) {
	return f.hits, f.err
}

func (f *fakeSearch) IndexProduct(_ context.Context, p *models.Product) error {
	f.indexed = append(f.indexed, p.ID)
	return nil
}

func (f *fakeSearch) DeleteProduct(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

// fakeUploader records uploads and returns a fixed URL.
type fakeUploader struct {
	url string
	err error
}

func (f *fakeUploader) UploadCategoryIcon(context.Context, int64, Upload) (string, error) {
	return f.url, f.err
}

func (f *fakeUploader) UploadProductImage(context.Context, int64, Upload) (string, error) {
	return f.url, f.err
}

// recordingNotifier captures emitted events.
type recordingNotifier struct {
	categories []string
	products   []string
	bulk       int
}

func (r *recordingNotifier) NotifyCategory(event sse.EventType, c *models.Category) {
	r.categories = append(r.categories, string(event))
}

func (r *recordingNotifier) NotifyProduct(event sse.EventType, p *models.Product) {
	r.products = append(r.products, string(event))
}

func (r *recordingNotifier) NotifyProductsBulk([]int64, bool) {
	r.bulk++
}

func ptr[T any](v T) *T {
	return &v
}
