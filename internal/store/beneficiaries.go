package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateBeneficiary(ctx context.Context, b Beneficiary) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO beneficiaries(beneficiary_id,user_id,name,email,address,phone,campaign_id)
VALUES($1,$2,$3,lower($4),$5,$6,$7)
`, b.BeneficiaryID, b.UserID, b.Name, b.Email, b.Address, b.Phone, b.CampaignID)
	return err
}

func (s *Store) GetBeneficiary(ctx context.Context, beneficiaryID string) (Beneficiary, error) {
	var b Beneficiary
	err := s.DB.QueryRow(ctx, `
SELECT beneficiary_id,user_id,name,email,address,phone,campaign_id,created_at
FROM beneficiaries
WHERE beneficiary_id=$1
`, beneficiaryID).Scan(&b.BeneficiaryID, &b.UserID, &b.Name, &b.Email, &b.Address, &b.Phone, &b.CampaignID, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Beneficiary{}, ErrNotFound
	}
	return b, err
}

func (s *Store) ListBeneficiaries(ctx context.Context) ([]Beneficiary, error) {
	rows, err := s.DB.Query(ctx, `
SELECT beneficiary_id,user_id,name,email,address,phone,campaign_id,created_at
FROM beneficiaries
ORDER BY created_at, beneficiary_id
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Beneficiary
	for rows.Next() {
		var b Beneficiary
		if err := rows.Scan(&b.BeneficiaryID, &b.UserID, &b.Name, &b.Email, &b.Address, &b.Phone, &b.CampaignID, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) UpdateBeneficiary(ctx context.Context, b Beneficiary) error {
	tag, err := s.DB.Exec(ctx, `
UPDATE beneficiaries
SET name=$2,email=lower($3),address=$4,phone=$5,campaign_id=$6
WHERE beneficiary_id=$1
`, b.BeneficiaryID, b.Name, b.Email, b.Address, b.Phone, b.CampaignID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBeneficiary removes the beneficiary; its tasks go with it via the
// ON DELETE CASCADE on tasks.beneficiary_id.
func (s *Store) DeleteBeneficiary(ctx context.Context, beneficiaryID string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM beneficiaries WHERE beneficiary_id=$1`, beneficiaryID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
