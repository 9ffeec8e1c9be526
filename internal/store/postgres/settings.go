package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/leadtrail/leadtrail/internal/lead"
)

// ListSearchKeywords returns the operator-managed keywords appended to
// website hunting queries.
func (s *Store) ListSearchKeywords(ctx context.Context) ([]string, error) {
	return s.listValues(ctx, `SELECT keyword FROM search_keywords ORDER BY keyword`)
}

// ListExcludedDomains returns domains excluded from hunting queries
// with -site: operators.
func (s *Store) ListExcludedDomains(ctx context.Context) ([]string, error) {
	return s.listValues(ctx, `SELECT domain FROM excluded_domains ORDER BY domain`)
}

// ListBlacklistedDomains returns domains dropped from SERP results.
func (s *Store) ListBlacklistedDomains(ctx context.Context) ([]string, error) {
	return s.listValues(ctx, `SELECT domain FROM blacklisted_domains ORDER BY domain`)
}

func (s *Store) listValues(ctx context.Context, query string) ([]string, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select settings: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetSERPQuota reads the singleton quota row. A missing row means the
// quota has never been checked; callers get a zero value.
func (s *Store) GetSERPQuota(ctx context.Context) (lead.SERPQuota, error) {
	var q lead.SERPQuota
	err := s.pool.QueryRow(ctx, `
SELECT available_credits, last_updated
FROM serp_quota
WHERE singleton`).Scan(&q.AvailableCredits, &q.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return lead.SERPQuota{LastUpdated: time.Time{}}, nil
	}
	if err != nil {
		return lead.SERPQuota{}, fmt.Errorf("select serp quota: %w", err)
	}
	return q, nil
}

// SetSERPQuota upserts the singleton quota row.
func (s *Store) SetSERPQuota(ctx context.Context, q lead.SERPQuota) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO serp_quota (singleton, available_credits, last_updated)
VALUES (TRUE, $1, $2)
ON CONFLICT (singleton) DO UPDATE
SET available_credits = EXCLUDED.available_credits,
	last_updated = EXCLUDED.last_updated`,
		q.AvailableCredits, q.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert serp quota: %w", err)
	}
	return nil
}
