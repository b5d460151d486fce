package service

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/dropaz_api/internal/config"
	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

type fakePutter struct {
	inputs []*s3.PutObjectInput
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.inputs = append(f.inputs, in)
	return &s3.PutObjectOutput{}, f.err
}

func TestStorageService_Upload(t *testing.T) {
	putter := &fakePutter{}
	svc := NewStorageServiceWithClient(putter, &config.S3Config{Bucket: "media", Region: "eu-central-1", PublicURL: "https://cdn.drop.az/"})

	url, err := svc.UploadProductImage(context.Background(), 42, Upload{
		Filename: "phone.png", ContentType: "image/png", Size: 10, Body: strings.NewReader("0123456789"),
	})
	require.NoError(t, err)
	require.Len(t, putter.inputs, 1)
	key := aws.ToString(putter.inputs[0].Key)
	assert.True(t, strings.HasPrefix(key, "products/42/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "https://cdn.drop.az/"+key, url)
	assert.Equal(t, "media", aws.ToString(putter.inputs[0].Bucket))
}

func TestStorageService_RejectsBadUploads(t *testing.T) {
	svc := NewStorageServiceWithClient(&fakePutter{}, &config.S3Config{Bucket: "media", Region: "eu-central-1"})
	ctx := context.Background()

	_, err := svc.UploadCategoryIcon(ctx, 1, Upload{ContentType: "application/pdf", Size: 10, Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, utils.ErrInvalidUpload)

	_, err = svc.UploadCategoryIcon(ctx, 1, Upload{ContentType: "image/png", Size: MaxImageSize + 1, Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, utils.ErrInvalidUpload)

	_, err = svc.UploadCategoryIcon(ctx, 1, Upload{ContentType: "image/png"})
	assert.ErrorIs(t, err, utils.ErrInvalidUpload)

	disabled, err := NewStorageService(ctx, &config.S3Config{})
	require.NoError(t, err)
	assert.False(t, disabled.Enabled())
	_, err = disabled.UploadProductImage(ctx, 1, Upload{})
	assert.ErrorIs(t, err, utils.ErrStorageDisabled)
}

func TestStorageService_ObjectURL(t *testing.T) {
	withEndpoint := NewStorageServiceWithClient(&fakePutter{}, &config.S3Config{Bucket: "media", Endpoint: "http://minio:9000/"})
	assert.Equal(t, "http://minio:9000/media/a.png", withEndpoint.ObjectURL("a.png"))

	regional := NewStorageServiceWithClient(&fakePutter{}, &config.S3Config{Bucket: "media", Region: "eu-central-1"})
	assert.Equal(t, "https://media.s3.eu-central-1.amazonaws.com/a.png", regional.ObjectURL("a.png"))
}

// fakeTransport answers every Elasticsearch request with a fixed response.
type fakeTransport struct {
	status   int
	body     string
	requests []*http.Request
}

func (f *fakeTransport) Perform(req *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, req)
	return &http.Response{
		StatusCode: f.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func TestSearchService_Suggest(t *testing.T) {
	tr := &fakeTransport{status: 200, body: `{"hits":{"hits":[{"_source":{"name":"iPhone 15","slug":"iphone-15","price":"1999.00","category":"Telefonlar"}}]}}`}
	svc := NewSearchServiceWithTransport(tr, "products")

	hits, err := svc.Suggest(context.Background(), "iph", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "iphone-15", hits[0].Slug)
	assert.Equal(t, "1999", hits[0].Price.String())
	assert.Equal(t, "/products/_search", tr.requests[0].URL.Path)
}

func TestSearchService_IndexAndDelete(t *testing.T) {
	tr := &fakeTransport{status: 201, body: `{}`}
	svc := NewSearchServiceWithTransport(tr, "products")
	ctx := context.Background()

	require.NoError(t, svc.IndexProduct(ctx, &models.Product{ID: 7, Name: "A", Available: true}))
	assert.Equal(t, http.MethodPut, tr.requests[0].Method)
	assert.Equal(t, "/products/_doc/7", tr.requests[0].URL.Path)

	tr.status = 404
	require.NoError(t, svc.IndexProduct(ctx, &models.Product{ID: 8, Available: false}), "unavailable products are removed and a missing document is fine")
	assert.Equal(t, http.MethodDelete, tr.requests[1].Method)

	tr.status = 200
	tr.body = `{"errors":false}`
	require.NoError(t, svc.BulkIndex(ctx, []models.Product{{ID: 1}, {ID: 2}}))
	assert.Equal(t, "/_bulk", tr.requests[2].URL.Path)
}

func TestSearchService_Disabled(t *testing.T) {
	svc, err := NewSearchService(&config.ElasticConfig{})
	require.NoError(t, err)
	assert.Nil(t, svc)
	assert.False(t, svc.Enabled())

	_, err = svc.Suggest(context.Background(), "x", 1)
	assert.ErrorIs(t, err, utils.ErrSearchDisabled)
}

func TestMailService_DisabledIsNoop(t *testing.T) {
	mail := NewMailService(&config.SMTPConfig{})
	assert.Nil(t, mail)
	assert.NoError(t, mail.SendNewsletterWelcome(context.Background(), "a@b.az", "https://drop.az/u"))
}

func TestSEOService(t *testing.T) {
	cats := sampleCategories()
	products := &fakeProducts{}
	products.add(models.Product{Slug: "iphone", Available: true})
	products.add(models.Product{Slug: "hidden", Available: false})
	svc := NewSEOService(cats, products, "https://drop.az/")

	body, err := svc.Sitemap(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "<?xml"))

	var set urlset
	require.NoError(t, xml.Unmarshal(body, &set))
	assert.Len(t, set.URLs, 1+len(staticPages)+len(cats.items)+1)
	assert.Equal(t, "https://drop.az/", set.URLs[0].Loc)

	locs := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		locs = append(locs, u.Loc)
	}
	assert.Contains(t, locs, "https://drop.az/product/iphone/")
	assert.NotContains(t, locs, "https://drop.az/product/hidden/")
	assert.Contains(t, locs, "https://drop.az/category/telefonlar/")

	robots := svc.Robots()
	assert.Contains(t, robots, "Disallow: /admin/")
	assert.Contains(t, robots, "Sitemap: https://drop.az/sitemap.xml")
}

func TestStaticPages(t *testing.T) {
	page, ok := FindStaticPage("privacy")
	require.True(t, ok)
	assert.Equal(t, "Məxfilik Siyasəti", page.Title)

	_, ok = FindStaticPage("blog")
	assert.False(t, ok)
	assert.Len(t, StaticPages(), 10)
}
