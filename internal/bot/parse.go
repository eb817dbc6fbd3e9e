package bot

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"zonarated-bot/internal/apperror"
	"zonarated-bot/internal/models"
)

// maxTopicName is Telegram's limit for forum topic names.
const maxTopicName = 128

type PayloadKind int

const (
	PayloadNone PayloadKind = iota
	PayloadReferral
	PayloadDownload
)

// StartPayload is the decoded argument of a /start deep link.
type StartPayload struct {
	Kind       PayloadKind
	ReferrerID int64
	ContentID  int64
}

// ParseStartPayload understands ref_<user id> and dl_<content id>. Anything
// else, including malformed ids, decodes as PayloadNone.
func ParseStartPayload(arg string) StartPayload {
	arg = strings.TrimSpace(arg)
	switch {
	case strings.HasPrefix(arg, "ref_"):
		id, err := strconv.ParseInt(strings.TrimPrefix(arg, "ref_"), 10, 64)
		if err != nil || id <= 0 {
			return StartPayload{}
		}
		return StartPayload{Kind: PayloadReferral, ReferrerID: id}
	case strings.HasPrefix(arg, "dl_"):
		id, err := strconv.ParseInt(strings.TrimPrefix(arg, "dl_"), 10, 64)
		if err != nil || id <= 0 {
			return StartPayload{}
		}
		return StartPayload{Kind: PayloadDownload, ContentID: id}
	}
	return StartPayload{}
}

func ReferralLink(botUsername string, userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=ref_%d", botUsername, userID)
}

// ShareLink opens Telegram's share sheet prefilled with text.
func ShareLink(link, text string) string {
	return "https://t.me/share/url?url=" + url.QueryEscape(link) + "&text=" + url.QueryEscape(text)
}

// ParseSchedule reads one operator line of the form
//
//	RFC3339 | title | category | file_url [| affiliate_link]
//
// into a pending job. The due time must lie after now.
func ParseSchedule(line string, now time.Time) (models.ScheduledJob, error) {
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 4 || len(parts) > 5 {
		return models.ScheduledJob{}, apperror.ValidationFailed("expected: RFC3339 | title | category | file_url [| affiliate_link]")
	}

	due, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return models.ScheduledJob{}, apperror.ValidationFailed(fmt.Sprintf("invalid time %q, use RFC3339 like 2026-01-02T15:04:05Z", parts[0]))
	}
	if !due.After(now) {
		return models.ScheduledJob{}, apperror.ValidationFailed("due time is already in the past")
	}

	job := models.ScheduledJob{
		DueAt:    due.UTC(),
		Title:    parts[1],
		Category: parts[2],
		FileURL:  parts[3],
		Status:   models.JobPending,
	}
	if job.Title == "" {
		return models.ScheduledJob{}, apperror.ValidationFailed("title is required")
	}
	if job.FileURL == "" {
		return models.ScheduledJob{}, apperror.ValidationFailed("file_url is required")
	}
	if strings.Contains(job.FileURL, "://") && !isHTTPLink(job.FileURL) {
		return models.ScheduledJob{}, apperror.ValidationFailed("file_url must be an http(s) link or a Telegram file id")
	}

	if len(parts) == 5 && parts[4] != "" {
		if !isHTTPLink(parts[4]) {
			return models.ScheduledJob{}, apperror.ValidationFailed("affiliate_link must be an http(s) link")
		}
		job.AffiliateLink = parts[4]
	}
	return job, nil
}

func isHTTPLink(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ParseUserID reads a Telegram user id typed by an operator.
func ParseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(fmt.Sprintf("invalid user id %q", s))
	}
	return id, nil
}

// ParseMaintenanceEnd accepts an RFC3339 time after now, or "-" for no end.
func ParseMaintenanceEnd(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "-" {
		return time.Time{}, nil
	}
	end, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperror.ValidationFailed(fmt.Sprintf("invalid time %q, use RFC3339 or '-'", s))
	}
	if !end.After(now) {
		return time.Time{}, apperror.ValidationFailed("end time is already in the past")
	}
	return end.UTC(), nil
}

// ParseTopic reads "name" or "name | all".
func ParseTopic(line string) (name string, isAll bool, err error) {
	parts := strings.Split(line, "|")
	name = strings.TrimSpace(parts[0])
	switch {
	case len(parts) > 2:
		return "", false, apperror.ValidationFailed("expected: name [| all]")
	case len(parts) == 2:
		if !strings.EqualFold(strings.TrimSpace(parts[1]), "all") {
			return "", false, apperror.ValidationFailed("expected: name [| all]")
		}
		isAll = true
	}
	if name == "" {
		return "", false, apperror.ValidationFailed("topic name is required")
	}
	if utf8.RuneCountInString(name) > maxTopicName {
		return "", false, apperror.ValidationFailed(fmt.Sprintf("topic name is longer than %d characters", maxTopicName))
	}
	return name, isAll, nil
}
