package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateCampaign(ctx context.Context, c Campaign) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO campaigns(campaign_id,name,description,start_date,end_date,is_active)
VALUES($1,$2,$3,$4,$5,$6)
`, c.CampaignID, c.Name, c.Description, c.StartDate, c.EndDate, c.IsActive)
	return err
}

func (s *Store) GetCampaign(ctx context.Context, campaignID string) (Campaign, error) {
	var c Campaign
	err := s.DB.QueryRow(ctx, `
SELECT campaign_id,name,description,start_date,end_date,is_active,created_at
FROM campaigns
WHERE campaign_id=$1
`, campaignID).Scan(&c.CampaignID, &c.Name, &c.Description, &c.StartDate, &c.EndDate, &c.IsActive, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	return c, err
}

func (s *Store) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	rows, err := s.DB.Query(ctx, `
SELECT campaign_id,name,description,start_date,end_date,is_active,created_at
FROM campaigns
ORDER BY created_at, campaign_id
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Campaign
	for rows.Next() {
		var c Campaign
		if err := rows.Scan(&c.CampaignID, &c.Name, &c.Description, &c.StartDate, &c.EndDate, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCampaign(ctx context.Context, c Campaign) error {
	tag, err := s.DB.Exec(ctx, `
UPDATE campaigns
SET name=$2,description=$3,start_date=$4,end_date=$5,is_active=$6
WHERE campaign_id=$1
`, c.CampaignID, c.Name, c.Description, c.StartDate, c.EndDate, c.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCampaign(ctx context.Context, campaignID string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM campaigns WHERE campaign_id=$1`, campaignID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
