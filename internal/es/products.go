package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/liushenghao/taixuan_shop/internal/models"
)

const ProductIndex = "products"

// Indexer mirrors active catalog products into Elasticsearch. All methods are
// nil-safe so the catalog works without a search cluster.
type Indexer struct {
	ES    *elasticsearch.Client
	Index string
}

func NewIndexer(client *elasticsearch.Client) *Indexer {
	if client == nil {
		return nil
	}
	return &Indexer{ES: client, Index: ProductIndex}
}

func (ix *Indexer) Enabled() bool {
	return ix != nil && ix.ES != nil
}

type productDoc struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	NameEn        string `json:"name_en"`
	Description   string `json:"description"`
	DescriptionEn string `json:"description_en"`
	Category      string `json:"category"`
	Element       string `json:"element"`
}

func (ix *Indexer) IndexProduct(ctx context.Context, p *models.Product) error {
	if !ix.Enabled() {
		return nil
	}
	if !p.IsActive {
		return ix.DeleteProduct(ctx, p.ID)
	}

	doc := productDoc{
		ID:            p.ID,
		Name:          p.Name,
		NameEn:        p.NameEn,
		Description:   p.Description,
		DescriptionEn: p.DescriptionEn,
		Category:      p.Category,
		Element:       p.Element,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return err
	}

	res, err := ix.ES.Index(
		ix.Index,
		&buf,
		ix.ES.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
		ix.ES.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index product %d: %s", p.ID, res.Status())
	}
	return nil
}

func (ix *Indexer) DeleteProduct(ctx context.Context, id uint) error {
	if !ix.Enabled() {
		return nil
	}
	res, err := ix.ES.Delete(
		ix.Index,
		strconv.FormatUint(uint64(id), 10),
		ix.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("deindex product %d: %s", id, res.Status())
	}
	return nil
}

// SearchIDs resolves a free-text query to ranked product ids.
func (ix *Indexer) SearchIDs(ctx context.Context, query string, size int) ([]uint, error) {
	if !ix.Enabled() {
		return nil, nil
	}

	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "name_en^2", "description", "description_en"},
				"fuzziness": "AUTO",
			},
		},
		"size":    size,
		"_source": []string{"id"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	res, err := ix.ES.Search(
		ix.ES.Search.WithContext(ctx),
		ix.ES.Search.WithIndex(ix.Index),
		ix.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source productDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		ids = append(ids, hit.Source.ID)
	}
	return ids, nil
}
