package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/shop_orders/internal/models"
)

var ErrSearch = errors.New("search backend")

func NewClient(url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch info: %s: %s", res.Status(), body)
	}
	return client, nil
}

// Document is the indexed shape of a product.
type Document struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Brand       string `json:"brand,omitempty"`
	Author      string `json:"author,omitempty"`
	Price       string `json:"price"`
}

func DocumentFrom(p models.Product) Document {
	d := Document{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    string(p.Category),
		Price:       p.Price.StringFixed(2),
	}
	if p.Brand != nil {
		d.Brand = *p.Brand
	}
	if p.Author != nil {
		d.Author = *p.Author
	}
	return d
}

type Index struct {
	ES   *elasticsearch.Client
	Name string
}

func (ix *Index) IndexProduct(ctx context.Context, p models.Product) error {
	body, err := json.Marshal(DocumentFrom(p))
	if err != nil {
		return err
	}

	res, err := ix.ES.Index(ix.Name, bytes.NewReader(body),
		ix.ES.Index.WithContext(ctx),
		ix.ES.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("%w: index product %d: %v", ErrSearch, p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: index product %d: %s", ErrSearch, p.ID, res.Status())
	}
	return nil
}

// DeleteProduct treats an already missing document as success.
func (ix *Index) DeleteProduct(ctx context.Context, id uint) error {
	res, err := ix.ES.Delete(ix.Name, strconv.FormatUint(uint64(id), 10),
		ix.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: delete product %d: %v", ErrSearch, id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: delete product %d: %s", ErrSearch, id, res.Status())
	}
	return nil
}

func (ix *Index) Search(ctx context.Context, query string, from, size int) (int64, []Document, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description", "brand", "author"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := ix.ES.Search(
		ix.ES.Search.WithContext(ctx),
		ix.ES.Search.WithIndex(ix.Name),
		ix.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrSearch, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("%w: %s", ErrSearch, res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("%w: decode response: %v", ErrSearch, err)
	}

	docs := make([]Document, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return r.Hits.Total.Value, docs, nil
}
