package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateContact inserts a contact with whatever reachability data is known.
func (q *Queries) CreateContact(ctx context.Context, input ContactInput) (*Contact, error) {
	var c Contact
	err := q.q.QueryRow(ctx,
		`INSERT INTO contacts (email, phone, linkedin_url)
		 VALUES ($1, $2, $3)
		 RETURNING id, email, phone, linkedin_url, created_at`,
		input.Email, input.Phone, input.LinkedInURL,
	).Scan(&c.ID, &c.Email, &c.Phone, &c.LinkedInURL, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return &c, nil
}

// GetContact retrieves a contact by ID
func (q *Queries) GetContact(ctx context.Context, id uuid.UUID) (*Contact, error) {
	var c Contact
	err := q.q.QueryRow(ctx,
		`SELECT id, email, phone, linkedin_url, created_at FROM contacts WHERE id = $1`, id,
	).Scan(&c.ID, &c.Email, &c.Phone, &c.LinkedInURL, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return &c, nil
}
