package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/profile-sync/internal/domain/entity"
	"github.com/oksasatya/profile-sync/internal/domain/repository"
)

const (
	requestTimeout = 3 * time.Second
	defaultSize    = 10
	maxSize        = 50
)

// ErrRejected marks an update Elasticsearch refused for the document itself,
// such as a mapping conflict. Retrying it cannot succeed.
var ErrRejected = errors.New("index update rejected")

// ProfileHit is one search result.
type ProfileHit struct {
	ID              string `json:"id"`
	FullName        string `json:"full_name,omitempty"`
	Username        string `json:"username,omitempty"`
	InstagramHandle string `json:"instagram_handle,omitempty"`
	AvatarURL       string `json:"avatar_url,omitempty"`
}

// ProfileIndex mirrors profile rows into Elasticsearch for lookup by name or handle.
type ProfileIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewProfileIndex(es *elasticsearch.Client, index string) *ProfileIndex {
	return &ProfileIndex{es: es, index: index}
}

func (p *ProfileIndex) enabled() bool { return p != nil && p.es != nil && p.index != "" }

// Apply merges the written columns of ev into the profile document, creating it
// when absent. Columns the event does not carry are left untouched.
func (p *ProfileIndex) Apply(ctx context.Context, ev repository.ProfileUpdated) error {
	if !p.enabled() {
		return nil
	}
	body, err := updateBody(ev)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	req := esapi.UpdateRequest{Index: p.index, DocumentID: ev.ProfileID, Body: strings.NewReader(string(body)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, p.es)
	if err != nil {
		return fmt.Errorf("es update %s: %w", ev.ProfileID, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		if res.StatusCode < 500 && res.StatusCode != http.StatusTooManyRequests {
			return fmt.Errorf("es update %s: %w: %s", ev.ProfileID, ErrRejected, res.Status())
		}
		return fmt.Errorf("es update %s: %s", ev.ProfileID, res.Status())
	}
	return nil
}

// Search runs a multi_match over name, username and instagram handle.
func (p *ProfileIndex) Search(ctx context.Context, q string, size int) ([]ProfileHit, error) {
	if !p.enabled() {
		return []ProfileHit{}, nil
	}
	if strings.TrimSpace(q) == "" {
		return nil, errors.New("empty query")
	}
	b, _ := json.Marshal(searchBody(q, size))

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := p.es.Search(p.es.Search.WithContext(c), p.es.Search.WithIndex(p.index), p.es.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string     `json:"_id"`
				Source ProfileHit `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]ProfileHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hit := h.Source
		hit.ID = h.ID
		out = append(out, hit)
	}
	return out, nil
}

func updateBody(ev repository.ProfileUpdated) ([]byte, error) {
	if ev.ProfileID == "" {
		return nil, errors.New("profile id is required")
	}
	doc := map[string]any{entity.ColID: ev.ProfileID}
	for _, f := range ev.Fields {
		if v, ok := ev.Row[f]; ok {
			doc[f] = v
		}
	}
	return json.Marshal(map[string]any{"doc": doc, "doc_as_upsert": true})
}

func searchBody(q string, size int) map[string]any {
	if size <= 0 || size > maxSize {
		size = defaultSize
	}
	return map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^2", "full_name", "instagram_handle"},
			},
		},
		"size": size,
	}
}
