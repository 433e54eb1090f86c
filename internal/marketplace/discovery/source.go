// internal/marketplace/discovery/source.go
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"talent-marketplace/internal/common/config"
	marketerrors "talent-marketplace/internal/common/errors"
	"talent-marketplace/internal/common/logger"
	"talent-marketplace/internal/common/metrics"
	"talent-marketplace/internal/models"
)

const profileQueryType = "talent_profiles"

// Source fetches talent profile pages from Elasticsearch. Ranking and
// the filter chain stay client-side in FilterAndSort; the index query
// only narrows by free text to keep the fetched page relevant.
type Source struct {
	client *elasticsearch.Client
	config config.DiscoveryConfig
	logger logger.Logger
}

func NewSource(client *elasticsearch.Client, cfg config.DiscoveryConfig, log logger.Logger) *Source {
	return &Source{
		client: client,
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "discovery"}),
	}
}

// FetchProfiles queries the talent index and decodes the hits. searchText
// may be empty, in which case the newest-active page of the index is
// returned.
func (s *Source) FetchProfiles(ctx context.Context, searchText string, page int) ([]models.TalentProfile, int64, error) {
	timeout := time.Duration(s.config.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := s.buildRequest(searchText, page)
	if err != nil {
		return nil, 0, err
	}

	start := time.Now()
	res, err := req.Do(ctx, s.client)
	if err != nil {
		metrics.DiscoverySearches.WithLabelValues("error").Inc()
		if ctx.Err() == context.DeadlineExceeded {
			return nil, 0, marketerrors.NewSearchTimeoutError(profileQueryType)
		}
		return nil, 0, marketerrors.NewSearchQueryFailedError(profileQueryType, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		metrics.DiscoverySearches.WithLabelValues("error").Inc()
		return nil, 0, marketerrors.NewSearchQueryFailedError(profileQueryType, fmt.Errorf("search query failed: %s", res.String()))
	}

	profiles, total, err := decodeProfiles(res)
	if err != nil {
		metrics.DiscoverySearches.WithLabelValues("error").Inc()
		return nil, 0, marketerrors.NewSearchQueryFailedError(profileQueryType, err)
	}

	metrics.DiscoverySearches.WithLabelValues("success").Inc()
	s.logger.Debug("profile search completed", map[string]interface{}{
		"totalHits": total,
		"returned":  len(profiles),
		"tookMs":    time.Since(start).Milliseconds(),
	})
	return profiles, total, nil
}

func (s *Source) buildRequest(searchText string, page int) (*esapi.SearchRequest, error) {
	if s.config.Index == "" {
		return nil, marketerrors.NewSearchQueryFailedError(profileQueryType, fmt.Errorf("index name is required"))
	}

	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"match_all": map[string]interface{}{},
		},
		"sort": []interface{}{
			map[string]interface{}{"last_active_at": map[string]interface{}{"order": "desc"}},
		},
	}
	if searchText != "" {
		queryBody["query"] = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  searchText,
				"fields": []string{"full_name^3", "title^2", "bio", "city", "country"},
				"type":   "best_fields",
			},
		}
	}

	size := s.config.PageSize
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	if page < 0 {
		page = 0
	}
	from := page * size
	if s.config.MaxResults > 0 && from >= s.config.MaxResults {
		from = s.config.MaxResults - size
		if from < 0 {
			from = 0
		}
	}

	body, _ := json.Marshal(queryBody)
	return &esapi.SearchRequest{
		Index: []string{s.config.Index},
		Body:  strings.NewReader(string(body)),
		From:  &from,
		Size:  &size,
	}, nil
}

func decodeProfiles(res *esapi.Response) ([]models.TalentProfile, int64, error) {
	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string    `json:"_id"`
				Source esProfile `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, 0, err
	}

	profiles := make([]models.TalentProfile, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		p := hit.Source.toModel()
		if p.ID == "" {
			p.ID = hit.ID
		}
		profiles = append(profiles, p)
	}
	return profiles, r.Hits.Total.Value, nil
}

// esProfile mirrors the talent index document shape.
type esProfile struct {
	ID                   string   `json:"id"`
	FullName             string   `json:"full_name"`
	Title                string   `json:"title"`
	Bio                  string   `json:"bio"`
	Skills               []string `json:"skills"`
	City                 string   `json:"city"`
	Country              string   `json:"country"`
	AvatarURL            *string  `json:"avatar_url"`
	Featured             bool     `json:"featured"`
	Verified             bool     `json:"verified"`
	Premium              bool     `json:"premium"`
	Suspended            bool     `json:"suspended"`
	ProfileCompleteness  int      `json:"profile_completeness"`
	LastActiveAt         string   `json:"last_active_at"`
	HasVideoPresentation bool     `json:"has_video_presentation"`
	ExperienceLevel      string   `json:"experience_level"`
	WorkModalities       []string `json:"work_modalities"`
	ContractTypes        []string `json:"contract_types"`
}

func (e esProfile) toModel() models.TalentProfile {
	lastActive, _ := time.Parse(time.RFC3339, e.LastActiveAt)
	return models.TalentProfile{
		ID:                   e.ID,
		FullName:             e.FullName,
		Title:                e.Title,
		Bio:                  e.Bio,
		Skills:               e.Skills,
		City:                 e.City,
		Country:              e.Country,
		AvatarURL:            e.AvatarURL,
		Featured:             e.Featured,
		Verified:             e.Verified,
		Premium:              e.Premium,
		Suspended:            e.Suspended,
		ProfileCompleteness:  e.ProfileCompleteness,
		LastActiveAt:         lastActive,
		HasVideoPresentation: e.HasVideoPresentation,
		ExperienceLevel:      e.ExperienceLevel,
		WorkModalities:       e.WorkModalities,
		ContractTypes:        e.ContractTypes,
	}
}
