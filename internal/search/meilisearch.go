package search

import (
	"encoding/json"

	"estate-marketplace/internal/models"

	"github.com/meilisearch/meilisearch-go"
)

type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	return &SearchClient{
		client: client,
		index:  "listings",
	}
}

// Document is the searchable projection of an approved listing. Rejected
// and pending listings are never indexed.
type Document struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city,omitempty"`
	Price       int64    `json:"price"`
	Beds        *int     `json:"beds,omitempty"`
	Baths       *int     `json:"baths,omitempty"`
	Sqft        *float64 `json:"sqft,omitempty"`
	Amenities   []string `json:"amenities,omitempty"`
}

func documentFromListing(l *models.Listing) Document {
	return Document{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		Address:     l.Address,
		City:        l.City,
		Price:       l.Price,
		Beds:        l.Beds,
		Baths:       l.Baths,
		Sqft:        l.Sqft,
		Amenities:   l.Amenities,
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"title",
		"description",
		"address",
		"city",
		"amenities",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"id",
		"city",
		"price",
		"beds",
		"baths",
	})
	if err != nil {
		return err
	}

	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"price",
		"sqft",
	})
	return err
}

// IndexListing indexes a single approved listing
func (s *SearchClient) IndexListing(l *models.Listing) error {
	_, err := s.client.Index(s.index).AddDocuments([]Document{documentFromListing(l)})
	return err
}

// RemoveListing removes a listing from the index
func (s *SearchClient) RemoveListing(id string) error {
	_, err := s.client.Index(s.index).DeleteDocument(id)
	return err
}

// Request represents search parameters
type Request struct {
	Query  string
	Limit  int64
	Offset int64
	Filter []string
	Sort   []string
}

// Result represents a page of search hits
type Result struct {
	Hits           []Document `json:"hits"`
	TotalHits      int64      `json:"total_hits"`
	ProcessingTime int64      `json:"processing_time_ms"`
}

// Search searches indexed listings
func (s *SearchClient) Search(req Request) (*Result, error) {
	searchReq := &meilisearch.SearchRequest{
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if len(req.Filter) > 0 {
		searchReq.Filter = req.Filter
	}
	if len(req.Sort) > 0 {
		searchReq.Sort = req.Sort
	}

	raw, err := s.client.Index(s.index).Search(req.Query, searchReq)
	if err != nil {
		return nil, err
	}

	result := &Result{
		TotalHits:      raw.EstimatedTotalHits,
		ProcessingTime: raw.ProcessingTimeMs,
	}
	for _, hit := range raw.Hits {
		data, err := json.Marshal(hit)
		if err != nil {
			continue
		}
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}
		result.Hits = append(result.Hits, doc)
	}
	return result, nil
}
