package lead

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lead id matches no row.
var ErrNotFound = errors.New("lead not found")

// MaxListLimit caps admin list queries.
const MaxListLimit = 100

// Repo persists leads in SQLite.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Insert stores a new lead, assigning its id and timestamps.
func (r *Repo) Insert(ctx context.Context, l *Lead) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now
	if l.Statut == "" {
		l.Statut = StatutNouveau
	}

	segments, err := json.Marshal(l.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO leads(
  id, nom, prenom, email, telephone, type_projet, surface, budget, delai,
  description, adresse, ville, code_postal, statut, score_ia, urgence,
  recommandation, segments, lead_chaud, sendgrid_message_id, created_at, updated_at
)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, l.ID, l.Nom, l.Prenom, l.Email, l.Telephone, l.TypeProjet, l.Surface, l.Budget,
		l.Delai, l.Description, l.Adresse, l.Ville, l.CodePostal, l.Statut, l.ScoreIA,
		l.Urgence, l.Recommandation, string(segments), l.LeadChaud, l.SendGridMessageID,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

const leadColumns = `
  id, nom, prenom, email, telephone, type_projet, surface, budget, delai,
  description, adresse, ville, code_postal, statut, score_ia, urgence,
  recommandation, segments, lead_chaud, email_ouvert, email_ouvert_count,
  email_clic_count, sendgrid_message_id, derniere_interaction, created_at, updated_at`

func scanLead(row interface{ Scan(...any) error }) (*Lead, error) {
	var (
		l            Lead
		segments     sql.NullString
		urgence      sql.NullString
		reco         sql.NullString
		msgID        sql.NullString
		lastInteract sql.NullString
		createdAt    string
		updatedAt    string
	)
	err := row.Scan(&l.ID, &l.Nom, &l.Prenom, &l.Email, &l.Telephone, &l.TypeProjet,
		&l.Surface, &l.Budget, &l.Delai, &l.Description, &l.Adresse, &l.Ville,
		&l.CodePostal, &l.Statut, &l.ScoreIA, &urgence, &reco, &segments,
		&l.LeadChaud, &l.EmailOuvert, &l.EmailOuvertCount, &l.EmailClicCount,
		&msgID, &lastInteract, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	l.Urgence = urgence.String
	l.Recommandation = reco.String
	l.SendGridMessageID = msgID.String
	if segments.Valid && segments.String != "" {
		_ = json.Unmarshal([]byte(segments.String), &l.Segments)
	}
	if lastInteract.Valid && lastInteract.String != "" {
		if t, err := time.Parse(time.RFC3339Nano, lastInteract.String); err == nil {
			l.DerniereInteraction = &t
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		l.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		l.UpdatedAt = t
	}
	return &l, nil
}

// GetByID returns one lead or ErrNotFound.
func (r *Repo) GetByID(ctx context.Context, id string) (*Lead, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+leadColumns+` FROM leads WHERE id = ?;`, id)
	l, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

// List returns leads newest first, optionally filtered by statut. The limit
// is capped at MaxListLimit.
func (r *Repo) List(ctx context.Context, limit, offset int, statut string) ([]*Lead, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT` + leadColumns + ` FROM leads`
	args := []any{}
	if statut != "" {
		query += ` WHERE statut = ?`
		args = append(args, statut)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?;`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// Hot returns leads at or above the score threshold, highest first.
func (r *Repo) Hot(ctx context.Context, threshold int) ([]*Lead, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT`+leadColumns+` FROM leads WHERE score_ia >= ? ORDER BY score_ia DESC, created_at DESC;`, threshold)
	if err != nil {
		return nil, fmt.Errorf("list hot leads: %w", err)
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// Update applies an admin patch. Only whitelisted fields can change.
func (r *Repo) Update(ctx context.Context, id string, u *Update) (*Lead, error) {
	if err := u.ValidateStatut(); err != nil {
		return nil, err
	}

	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Format(time.RFC3339Nano)}
	if u.Statut != nil {
		sets = append(sets, "statut = ?")
		args = append(args, *u.Statut)
	}
	if u.Notes != nil {
		sets = append(sets, "notes_devis_custom = ?")
		args = append(args, *u.Notes)
	}
	if u.BudgetNegocie != nil {
		sets = append(sets, "budget_negocie = ?")
		args = append(args, *u.BudgetNegocie)
	}
	if len(u.LignesDevisCustom) > 0 {
		sets = append(sets, "lignes_devis_custom = ?")
		args = append(args, string(u.LignesDevisCustom))
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, `UPDATE leads SET `+strings.Join(sets, ", ")+` WHERE id = ?;`, args...)
	if err != nil {
		return nil, fmt.Errorf("update lead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// SetStatut changes only the status.
func (r *Repo) SetStatut(ctx context.Context, id, statut string) error {
	if !ValidStatuts[statut] {
		return fmt.Errorf("invalid statut %q", statut)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE leads SET statut = ?, updated_at = ? WHERE id = ?;`,
		statut, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("set statut: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a lead.
func (r *Repo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordOpen marks an email-open event: sets the opened flag, bumps the
// counter and refreshes the interaction timestamp.
func (r *Repo) RecordOpen(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := r.db.ExecContext(ctx, `
UPDATE leads
SET email_ouvert = 1,
    email_ouvert_count = email_ouvert_count + 1,
    derniere_interaction = ?,
    updated_at = ?
WHERE id = ?;`, now, now, id)
	if err != nil {
		return fmt.Errorf("record open: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordClick marks a click-through: the lead is considered hot, its score
// jumps to 100 and its status flips to "chaud". Re-delivery of the same
// click is harmless.
func (r *Repo) RecordClick(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := r.db.ExecContext(ctx, `
UPDATE leads
SET statut = ?,
    score_ia = 100,
    lead_chaud = 1,
    email_clic_count = email_clic_count + 1,
    derniere_interaction = ?,
    updated_at = ?
WHERE id = ?;`, StatutChaud, now, now, id)
	if err != nil {
		return fmt.Errorf("record click: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSendGridMessageID records the provider message id of the confirmation
// email once it has been sent.
func (r *Repo) SetSendGridMessageID(ctx context.Context, id, messageID string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE leads SET sendgrid_message_id = ?, updated_at = ? WHERE id = ?;`,
		messageID, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("set message id: %w", err)
	}
	return nil
}

// EngagementStats is the tracking summary for one lead.
type EngagementStats struct {
	LeadID              string     `json:"lead_id"`
	Statut              string     `json:"statut"`
	ScoreIA             int        `json:"score_ia"`
	EmailOuvert         bool       `json:"email_ouvert"`
	EmailOuvertCount    int        `json:"email_ouvert_count"`
	EmailClicCount      int        `json:"email_clic_count"`
	LeadChaud           bool       `json:"lead_chaud"`
	DerniereInteraction *time.Time `json:"derniere_interaction,omitempty"`
}

// Engagement returns the tracking summary for one lead.
func (r *Repo) Engagement(ctx context.Context, id string) (*EngagementStats, error) {
	l, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &EngagementStats{
		LeadID:              l.ID,
		Statut:              l.Statut,
		ScoreIA:             l.ScoreIA,
		EmailOuvert:         l.EmailOuvert,
		EmailOuvertCount:    l.EmailOuvertCount,
		EmailClicCount:      l.EmailClicCount,
		LeadChaud:           l.LeadChaud,
		DerniereInteraction: l.DerniereInteraction,
	}, nil
}

// DevisInputs returns the stored quote inputs: custom lines, notes and the
// negotiated budget, if any.
func (r *Repo) DevisInputs(ctx context.Context, id string) (lignes json.RawMessage, notes string, budgetNegocie int, err error) {
	var (
		rawLignes sql.NullString
		rawNotes  sql.NullString
		rawBudget sql.NullInt64
	)
	err = r.db.QueryRowContext(ctx, `
SELECT lignes_devis_custom, notes_devis_custom, budget_negocie FROM leads WHERE id = ?;`, id).
		Scan(&rawLignes, &rawNotes, &rawBudget)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", 0, ErrNotFound
	}
	if err != nil {
		return nil, "", 0, fmt.Errorf("get devis inputs: %w", err)
	}
	if rawLignes.Valid {
		lignes = json.RawMessage(rawLignes.String)
	}
	return lignes, rawNotes.String, int(rawBudget.Int64), nil
}
