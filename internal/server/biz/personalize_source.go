package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ExternalPersonalizationConfig points at the external academic-profile and
// personalization-preferences services (§6.4: "academic(user_id, ...),
// personalized(user_id, prefs) — read-only to the core", schema owned
// outside this repo). Mirrors brainclient's plain net/http style since both
// are narrow, same-process-network peers rather than a general-purpose API
// client needing retries/circuit breaking.
type ExternalPersonalizationConfig struct {
	AcademicBaseURL      string        `conf:"academic_base_url" yaml:"academic_base_url" json:"academic_base_url"`
	PersonalizedBaseURL  string        `conf:"personalized_base_url" yaml:"personalized_base_url" json:"personalized_base_url"`
	Timeout              time.Duration `conf:"timeout" yaml:"timeout" json:"timeout"`
}

// ExternalPersonalizationSource implements personalize.Source over the two
// external, read-only collaborator services.
type ExternalPersonalizationSource struct {
	cfg    ExternalPersonalizationConfig
	client *http.Client
}

func NewExternalPersonalizationSource(cfg ExternalPersonalizationConfig) *ExternalPersonalizationSource {
	return &ExternalPersonalizationSource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type academicResponse struct {
	Summary string `json:"summary"`
}

func (s *ExternalPersonalizationSource) AcademicProfile(ctx context.Context, userID string) (string, error) {
	if s.cfg.AcademicBaseURL == "" {
		return "", nil
	}

	var out academicResponse
	if err := s.get(ctx, s.cfg.AcademicBaseURL, userID, &out); err != nil {
		return "", err
	}

	return out.Summary, nil
}

type personalizedResponse struct {
	Prefs string `json:"prefs"`
}

func (s *ExternalPersonalizationSource) Preferences(ctx context.Context, userID string) (string, error) {
	if s.cfg.PersonalizedBaseURL == "" {
		return "", nil
	}

	var out personalizedResponse
	if err := s.get(ctx, s.cfg.PersonalizedBaseURL, userID, &out); err != nil {
		return "", err
	}

	return out.Prefs, nil
}

func (s *ExternalPersonalizationSource) get(ctx context.Context, base, userID string, out any) error {
	endpoint := fmt.Sprintf("%s/%s", base, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("biz: personalization source returned %d: %s", resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
