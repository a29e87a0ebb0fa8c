package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/outreach-cadence/internal/cadence"
)

// FindEngagementSignals returns the stored signals for a prospect, or nil if none were recorded.
func (q *Queries) FindEngagementSignals(ctx context.Context, prospectID uuid.UUID) (*cadence.EngagementSignals, error) {
	var s cadence.EngagementSignals
	err := q.q.QueryRow(ctx,
		`SELECT wizard_max_step, pdf_downloaded, email_opens
		 FROM engagement_signals
		 WHERE prospect_id = $1`,
		prospectID,
	).Scan(&s.WizardMaxStep, &s.PDFDownloaded, &s.EmailOpens)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get engagement signals: %w", err)
	}
	return &s, nil
}

// UpsertEngagementSignals merges new signals into the stored snapshot. The wizard step and
// open count only grow, and a PDF download is never forgotten.
func (q *Queries) UpsertEngagementSignals(ctx context.Context, prospectID uuid.UUID, signals cadence.EngagementSignals) (*EngagementRecord, error) {
	rec := EngagementRecord{ProspectID: prospectID}
	err := q.q.QueryRow(ctx,
		`INSERT INTO engagement_signals (prospect_id, wizard_max_step, pdf_downloaded, email_opens)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (prospect_id) DO UPDATE SET
		     wizard_max_step = GREATEST(engagement_signals.wizard_max_step, EXCLUDED.wizard_max_step),
		     pdf_downloaded  = engagement_signals.pdf_downloaded OR EXCLUDED.pdf_downloaded,
		     email_opens     = GREATEST(engagement_signals.email_opens, EXCLUDED.email_opens),
		     updated_at      = NOW()
		 RETURNING wizard_max_step, pdf_downloaded, email_opens, updated_at`,
		prospectID, signals.WizardMaxStep, signals.PDFDownloaded, signals.EmailOpens,
	).Scan(&rec.Signals.WizardMaxStep, &rec.Signals.PDFDownloaded, &rec.Signals.EmailOpens, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert engagement signals: %w", err)
	}
	return &rec, nil
}
