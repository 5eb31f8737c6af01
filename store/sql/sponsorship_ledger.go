package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rcmckee/bigcases2/core"
	"github.com/uptrace/bun"
)

type SponsorshipLedger struct {
	db *bun.DB
}

func NewSponsorshipLedger(db *bun.DB) (*SponsorshipLedger, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &SponsorshipLedger{db: db}, nil
}

type UpsertSponsorshipInput struct {
	Sponsor   string
	Watermark string
	Active    bool
}

// AddSponsorship records a sponsor. Activating one deactivates the rest
// so Active always resolves to at most a single row.
func (s *SponsorshipLedger) AddSponsorship(ctx context.Context, in UpsertSponsorshipInput) (core.Sponsorship, error) {
	if s == nil || s.db == nil {
		return core.Sponsorship{}, fmt.Errorf("sqlstore: sponsorship ledger is not configured")
	}
	in.Sponsor = strings.TrimSpace(in.Sponsor)
	if in.Sponsor == "" {
		return core.Sponsorship{}, fmt.Errorf("sqlstore: sponsor name is required")
	}

	record := &sponsorshipRecord{
		ID:        uuid.NewString(),
		Sponsor:   in.Sponsor,
		Watermark: strings.TrimSpace(in.Watermark),
		Active:    in.Active,
		CreatedAt: time.Now().UTC(),
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if in.Active {
			if _, err := tx.NewUpdate().
				Model((*sponsorshipRecord)(nil)).
				Set("active = ?", false).
				Where("active = ?", true).
				Exec(ctx); err != nil {
				return err
			}
		}
		_, err := tx.NewInsert().Model(record).Exec(ctx)
		return err
	})
	if err != nil {
		return core.Sponsorship{}, err
	}
	return record.toDomain(), nil
}

func (s *SponsorshipLedger) Active(ctx context.Context) (core.Sponsorship, bool, error) {
	if s == nil || s.db == nil {
		return core.Sponsorship{}, false, fmt.Errorf("sqlstore: sponsorship ledger is not configured")
	}
	record := &sponsorshipRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.active = ?", true).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Sponsorship{}, false, nil
		}
		return core.Sponsorship{}, false, err
	}
	if strings.TrimSpace(record.ID) == "" {
		return core.Sponsorship{}, false, nil
	}
	return record.toDomain(), true, nil
}

// LogPurchase books at most one entry per (sponsorship, event). A resume
// retry that already committed the entry gets the existing row back, the
// same resolution Create uses for posts.
func (s *SponsorshipLedger) LogPurchase(ctx context.Context, in core.LogPurchaseInput) (core.Purchase, error) {
	if s == nil || s.db == nil {
		return core.Purchase{}, fmt.Errorf("sqlstore: sponsorship ledger is not configured")
	}
	in.SponsorshipID = strings.TrimSpace(in.SponsorshipID)
	in.FilingEventID = strings.TrimSpace(in.FilingEventID)
	if in.SponsorshipID == "" || in.FilingEventID == "" {
		return core.Purchase{}, fmt.Errorf("sqlstore: sponsorship id and filing event id are required")
	}
	record := &purchaseRecord{
		ID:            uuid.NewString(),
		SponsorshipID: in.SponsorshipID,
		FilingEventID: in.FilingEventID,
		PageCount:     in.PageCount,
		CostCents:     core.PurchaseCostCents(in.PageCount),
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return s.findPurchase(ctx, in.SponsorshipID, in.FilingEventID)
		}
		return core.Purchase{}, err
	}
	return record.toDomain(), nil
}

func (s *SponsorshipLedger) findPurchase(ctx context.Context, sponsorshipID, filingEventID string) (core.Purchase, error) {
	record := &purchaseRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.sponsorship_id = ?", sponsorshipID).
		Where("?TableAlias.filing_event_id = ?", filingEventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return core.Purchase{}, err
	}
	return record.toDomain(), nil
}

var _ core.SponsorshipLedger = (*SponsorshipLedger)(nil)
