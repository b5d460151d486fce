package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/dropaz_api/internal/config"
	"github.com/GTDGit/dropaz_api/internal/models"
	"github.com/GTDGit/dropaz_api/internal/utils"
)

// productDocument is the indexed form of a product.
type productDocument struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Image        string          `json:"image"`
	Stock        int             `json:"stock"`
	Available    bool            `json:"available"`
	Category     string          `json:"category"`
	CategorySlug string          `json:"category_slug"`
}

func toDocument(p *models.Product) productDocument {
	return productDocument{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		Description:  p.Description,
		Price:        p.Price,
		Image:        p.Image,
		Stock:        p.Stock,
		Available:    p.Available,
		Category:     p.CategoryName,
		CategorySlug: p.CategorySlug,
	}
}

// SearchService indexes products in Elasticsearch and serves suggestions.
// A nil *SearchService is valid and reports ErrSearchDisabled.
type SearchService struct {
	transport esapi.Transport
	index     string
}

// NewSearchService connects to Elasticsearch. An empty URL returns nil.
func NewSearchService(cfg *config.ElasticConfig) (*SearchService, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, nil
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: strings.Split(cfg.URL, ","),
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return NewSearchServiceWithTransport(client, cfg.Index), nil
}

// NewSearchServiceWithTransport wires an existing transport.
func NewSearchServiceWithTransport(t esapi.Transport, index string) *SearchService {
	return &SearchService{transport: t, index: index}
}

// Enabled reports whether search is configured.
func (s *SearchService) Enabled() bool {
	return s != nil && s.transport != nil
}

// IndexProduct writes or replaces one product document. Unavailable products are removed.
func (s *SearchService) IndexProduct(ctx context.Context, p *models.Product) error {
	if !s.Enabled() {
		return utils.ErrSearchDisabled
	}
	if !p.Available {
		return s.DeleteProduct(ctx, p.ID)
	}

	data, err := json.Marshal(toDocument(p))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: strconv.FormatInt(p.ID, 10),
		Body:       bytes.NewReader(data),
	}
	res, err := req.Do(ctx, s.transport)
	if err != nil {
		return fmt.Errorf("elasticsearch index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch index %d: %s", p.ID, res.String())
	}
	return nil
}

// DeleteProduct removes a product document. A missing document is not an error.
func (s *SearchService) DeleteProduct(ctx context.Context, id int64) error {
	if !s.Enabled() {
		return utils.ErrSearchDisabled
	}
	req := esapi.DeleteRequest{Index: s.index, DocumentID: strconv.FormatInt(id, 10)}
	res, err := req.Do(ctx, s.transport)
	if err != nil {
		return fmt.Errorf("elasticsearch delete request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch delete %d: %s", id, res.String())
	}
	return nil
}

// BulkIndex re-indexes the given products in one request.
func (s *SearchService) BulkIndex(ctx context.Context, products []models.Product) error {
	if !s.Enabled() {
		return utils.ErrSearchDisabled
	}
	if len(products) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range products {
		meta := map[string]map[string]string{"index": {"_index": s.index, "_id": strconv.FormatInt(products[i].ID, 10)}}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(toDocument(&products[i])); err != nil {
			return err
		}
	}

	res, err := esapi.BulkRequest{Body: &buf}.Do(ctx, s.transport)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch bulk: %s", res.String())
	}

	var body struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err == nil && body.Errors {
		log.Warn().Int("count", len(products)).Msg("Elasticsearch bulk finished with item errors")
	}
	return nil
}

// Suggest returns available products matching the typed prefix.
func (s *SearchService) Suggest(ctx context.Context, term string, limit int) ([]models.ProductSuggestion, error) {
	if !s.Enabled() {
		return nil, utils.ErrSearchDisabled
	}

	query := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  term,
						"type":   "phrase_prefix",
						"fields": []string{"name^3", "category", "description"},
					},
				},
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"available": true}},
				},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("encode search query: %w", err)
	}

	res, err := esapi.SearchRequest{Index: []string{s.index}, Body: &buf}.Do(ctx, s.transport)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search: %s", res.String())
	}

	var body struct {
		Hits struct {
			Hits []struct {
				Source productDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]models.ProductSuggestion, 0, len(body.Hits.Hits))
	for _, h := range body.Hits.Hits {
		out = append(out, models.ProductSuggestion{
			Name:     h.Source.Name,
			Slug:     h.Source.Slug,
			Price:    h.Source.Price,
			Image:    h.Source.Image,
			Category: h.Source.Category,
		})
	}
	return out, nil
}
