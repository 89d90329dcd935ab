package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/domain/entity"
	"github.com/dreschagin/swarm-heartbeat/internal/domain/valueobject"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

const (
	perPage     = 100
	apiVersion  = "2022-11-28"
	acceptType  = "application/vnd.github+json"
	maxBodyDump = 512
)

// ErrRepositoryNotFound возвращается, если репозиторий не существует или недоступен токену
var ErrRepositoryNotFound = errors.New("github: repository not found")

// Config параметры клиента GitHub
type Config struct {
	BaseURL  string
	Token    string
	MaxPages int
	Timeout  time.Duration
}

// IssueSource читает задачи репозитория через GitHub REST API.
// Реализует интерфейс port.IssueSource
type IssueSource struct {
	baseURL    string
	token      string
	maxPages   int
	httpClient *http.Client
	log        *logger.Logger
}

// NewIssueSource создает клиент
func NewIssueSource(cfg Config, log *logger.Logger) *IssueSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.github.com"
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &IssueSource{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		maxPages:   cfg.MaxPages,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With("component", "github"),
	}
}

// issueRecord запись API; временные метки разбираются вручную, чтобы пропускать битые записи
type issueRecord struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	State     string `json:"state"`
	HTMLURL   string `json:"html_url"`
	Comments  int    `json:"comments"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	ClosedAt  string `json:"closed_at"`
	Labels    []struct {
		Name string `json:"name"`
	} `json:"labels"`
	PullRequest json.RawMessage `json:"pull_request"`
}

// FetchIssues загружает задачи постранично, пока страница полная и не превышен лимит страниц
func (s *IssueSource) FetchIssues(ctx context.Context, repository string) ([]entity.Issue, error) {
	if !validRepository(repository) {
		return nil, fmt.Errorf("github: invalid repository %q, want owner/name", repository)
	}

	issues := make([]entity.Issue, 0)
	skipped := 0

	for page := 1; page <= s.maxPages; page++ {
		records, err := s.fetchPage(ctx, repository, page)
		if err != nil {
			return nil, err
		}

		for _, rec := range records {
			issue, err := toIssue(rec)
			if err != nil {
				skipped++
				continue
			}
			issues = append(issues, issue)
		}

		if len(records) < perPage {
			break
		}
	}

	if skipped > 0 {
		s.log.Warn("Skipped malformed issue records", "repository", repository, "skipped", skipped)
	}
	s.log.Debug("Fetched issues", "repository", repository, "count", len(issues))

	return issues, nil
}

func (s *IssueSource) fetchPage(ctx context.Context, repository string, page int) ([]issueRecord, error) {
	query := url.Values{}
	query.Set("state", "all")
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("sort", "updated")
	query.Set("direction", "desc")
	query.Set("page", strconv.Itoa(page))

	endpoint := fmt.Sprintf("%s/repos/%s/issues?%s", s.baseURL, repository, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", acceptType)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, repository)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyDump))
		return nil, fmt.Errorf("failed to list issues: status %d, body: %s", resp.StatusCode, string(body))
	}

	var records []issueRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return records, nil
}

func toIssue(rec issueRecord) (entity.Issue, error) {
	if rec.Number <= 0 {
		return entity.Issue{}, errors.New("missing number")
	}

	state, err := valueobject.ParseIssueState(rec.State)
	if err != nil {
		return entity.Issue{}, err
	}

	createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
	if err != nil {
		return entity.Issue{}, fmt.Errorf("created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339, rec.UpdatedAt)
	if err != nil {
		return entity.Issue{}, fmt.Errorf("updated_at: %w", err)
	}

	var closedAt *time.Time
	if rec.ClosedAt != "" {
		t, err := time.Parse(time.RFC3339, rec.ClosedAt)
		if err != nil {
			return entity.Issue{}, fmt.Errorf("closed_at: %w", err)
		}
		closedAt = &t
	}

	labels := make([]string, 0, len(rec.Labels))
	for _, l := range rec.Labels {
		if l.Name != "" {
			labels = append(labels, l.Name)
		}
	}

	return entity.Issue{
		Number:        rec.Number,
		Title:         rec.Title,
		State:         state,
		Labels:        labels,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
		ClosedAt:      closedAt,
		Comments:      rec.Comments,
		URL:           rec.HTMLURL,
		IsPullRequest: len(rec.PullRequest) > 0 && string(rec.PullRequest) != "null",
	}, nil
}

func validRepository(repository string) bool {
	owner, name, ok := strings.Cut(repository, "/")
	return ok && owner != "" && name != "" && !strings.Contains(name, "/")
}
