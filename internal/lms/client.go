package lms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tg-coursesync/internal/config"
	"tg-coursesync/internal/logger"
	"tg-coursesync/internal/models"
)

// Client pulls the course catalogue from the academic records service. The
// service speaks OAuth2 client credentials with a plain JSON course listing
// behind it.
type Client struct {
	cfg  config.LMSConfig
	http *http.Client
}

func NewClient(cfg config.LMSConfig) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type courseRecord struct {
	IDNumber  string `json:"idnumber"`
	MoodleID  *int64 `json:"moodle_id"`
	FullName  string `json:"full_name"`
	ShortName string `json:"short_name"`
	Year      *int   `json:"year"`
	Type      string `json:"type_course"`
	Degree    string `json:"degree"`
}

// FetchCourses returns the normalized course list. Records without an id are
// skipped with a warning; unrecognized type or degree values degrade to
// unknown rather than failing the import.
func (c *Client) FetchCourses(ctx context.Context) ([]models.Course, error) {
	token, err := c.fetchToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtaining access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.CoursesURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting courses: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("courses endpoint returned %s", resp.Status)
	}

	var records []courseRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding courses: %w", err)
	}

	courses := make([]models.Course, 0, len(records))
	for _, record := range records {
		id := strings.ToUpper(strings.TrimSpace(record.IDNumber))
		if id == "" {
			logger.Warningf("Skipping course record without idnumber: %q", record.FullName)
			continue
		}
		courses = append(courses, models.Course{
			ID:        id,
			MoodleID:  record.MoodleID,
			FullName:  record.FullName,
			ShortName: record.ShortName,
			Year:      record.Year,
			Type:      parseCourseType(record.Type),
			Degree:    parseCourseDegree(record.Degree),
		})
	}

	return courses, nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %s", resp.Status)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access token")
	}
	return token.AccessToken, nil
}

func parseCourseType(value string) models.CourseType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "core":
		return models.CourseTypeCore
	case "technical elective":
		return models.CourseTypeTechnicalElective
	case "humanitaric elective", "humanitarian elective":
		return models.CourseTypeHumanitarianElective
	default:
		return models.CourseTypeUnknown
	}
}

func parseCourseDegree(value string) models.CourseDegree {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "masters", "master":
		return models.CourseDegreeMasters
	case "bachelors", "bachelor":
		return models.CourseDegreeBachelors
	default:
		return models.CourseDegreeUnknown
	}
}
