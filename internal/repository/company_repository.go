package repository

import (
    "database/sql"

    "github.com/fleetrecruit/outreach-backend/internal/model"
)

// CompanyRepositoryInterface defines methods used by the worker and the
// authorization layer
type CompanyRepositoryInterface interface {
    GetProfile(companyID string) (*model.CompanyProfile, error)
}

// CompanyRepository is the concrete implementation
type CompanyRepository struct {
    DB *sql.DB
}

// GetProfile fetches a tenant profile by ID
func (r *CompanyRepository) GetProfile(companyID string) (*model.CompanyProfile, error) {
    query := `
        SELECT id, name, sender_name, api_key
        FROM companies
        WHERE id = $1
    `
    row := r.DB.QueryRow(query, companyID)

    var p model.CompanyProfile
    if err := row.Scan(&p.ID, &p.Name, &p.SenderName, &p.APIKey); err != nil {
        if err == sql.ErrNoRows {
            return nil, nil // not found
        }
        return nil, err
    }
    return &p, nil
}

var _ CompanyRepositoryInterface = (*CompanyRepository)(nil)
