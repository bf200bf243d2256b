package devis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/toitureai/leadgw/internal/money"
)

// ErrNotFound is returned when a quote id matches no row.
var ErrNotFound = errors.New("devis not found")

// Repo persists quotes in SQLite.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Insert stores a new quote, assigning its id and timestamps.
func (r *Repo) Insert(ctx context.Context, d *Devis) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.Statut == "" {
		d.Statut = StatutBrouillon
	}

	lignes, err := json.Marshal(d.Lignes)
	if err != nil {
		return fmt.Errorf("marshal lignes: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO devis(
  id, numero, lead_id, client_nom, client_email, lignes, total_ht, total_tva,
  total_ttc, tva_taux, validite, statut, mode, url_pdf, pdf_checksum,
  created_at, updated_at
)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, d.ID, d.Numero, d.LeadID, d.ClientNom, d.ClientEmail, string(lignes),
		int64(d.TotalHT), int64(d.TotalTVA), int64(d.TotalTTC), d.TVATaux,
		d.Validite.UTC().Format(time.RFC3339Nano), d.Statut, d.Mode, d.URLPDF,
		d.PDFChecksum, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert devis: %w", err)
	}
	return nil
}

const devisColumns = `
  id, numero, lead_id, client_nom, client_email, lignes, total_ht, total_tva,
  total_ttc, tva_taux, validite, statut, mode, url_pdf, pdf_checksum,
  created_at, updated_at`

// devisColumnsQualified carries the d. alias for joins against leads, where
// id, statut and the timestamps exist in both tables.
const devisColumnsQualified = `
  d.id, d.numero, d.lead_id, d.client_nom, d.client_email, d.lignes, d.total_ht,
  d.total_tva, d.total_ttc, d.tva_taux, d.validite, d.statut, d.mode, d.url_pdf,
  d.pdf_checksum, d.created_at, d.updated_at`

func scanDevis(row interface{ Scan(...any) error }) (*Devis, error) {
	var (
		d         Devis
		lignes    string
		totalHT   int64
		totalTVA  int64
		totalTTC  int64
		validite  string
		urlPDF    sql.NullString
		checksum  sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(&d.ID, &d.Numero, &d.LeadID, &d.ClientNom, &d.ClientEmail,
		&lignes, &totalHT, &totalTVA, &totalTTC, &d.TVATaux, &validite,
		&d.Statut, &d.Mode, &urlPDF, &checksum, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(lignes), &d.Lignes); err != nil {
		return nil, fmt.Errorf("unmarshal lignes: %w", err)
	}
	d.TotalHT, d.TotalTVA, d.TotalTTC = cents(totalHT), cents(totalTVA), cents(totalTTC)
	d.URLPDF = urlPDF.String
	d.PDFChecksum = checksum.String
	if t, err := time.Parse(time.RFC3339Nano, validite); err == nil {
		d.Validite = t
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		d.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		d.UpdatedAt = t
	}
	return &d, nil
}

// GetByID returns one quote or ErrNotFound.
func (r *Repo) GetByID(ctx context.Context, id string) (*Devis, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+devisColumns+` FROM devis WHERE id = ?;`, id)
	d, err := scanDevis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get devis: %w", err)
	}
	return d, nil
}

// ListByLead returns a lead's quotes, newest first.
func (r *Repo) ListByLead(ctx context.Context, leadID string) ([]*Devis, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT`+devisColumns+` FROM devis WHERE lead_id = ? ORDER BY created_at DESC;`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list devis: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// FindForSigner locates the quote a signature completion refers to: the
// signer's email narrowed by the lead's phone when several match, otherwise
// the most recent one.
func (r *Repo) FindForSigner(ctx context.Context, email, phone string) (*Devis, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT`+devisColumnsQualified+`, l.telephone
FROM devis d JOIN leads l ON l.id = d.lead_id
WHERE d.client_email = ?
ORDER BY d.created_at DESC;`, email)
	if err != nil {
		return nil, fmt.Errorf("find devis for signer: %w", err)
	}
	defer rows.Close()

	var (
		first   *Devis
		matched *Devis
	)
	for rows.Next() {
		var (
			d         Devis
			lignes    string
			totalHT   int64
			totalTVA  int64
			totalTTC  int64
			validite  string
			urlPDF    sql.NullString
			checksum  sql.NullString
			createdAt string
			updatedAt string
			telephone string
		)
		err := rows.Scan(&d.ID, &d.Numero, &d.LeadID, &d.ClientNom, &d.ClientEmail,
			&lignes, &totalHT, &totalTVA, &totalTTC, &d.TVATaux, &validite,
			&d.Statut, &d.Mode, &urlPDF, &checksum, &createdAt, &updatedAt, &telephone)
		if err != nil {
			return nil, fmt.Errorf("scan devis: %w", err)
		}
		_ = json.Unmarshal([]byte(lignes), &d.Lignes)
		d.TotalHT, d.TotalTVA, d.TotalTTC = cents(totalHT), cents(totalTVA), cents(totalTTC)
		d.URLPDF = urlPDF.String
		d.PDFChecksum = checksum.String
		if t, err := time.Parse(time.RFC3339Nano, validite); err == nil {
			d.Validite = t
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			d.CreatedAt = t
		}

		if first == nil {
			cp := d
			first = &cp
		}
		if phone != "" && telephone == phone && matched == nil {
			cp := d
			matched = &cp
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if matched != nil {
		return matched, nil
	}
	if first != nil {
		return first, nil
	}
	return nil, ErrNotFound
}

// SetStatut changes only the status.
func (r *Repo) SetStatut(ctx context.Context, id, statut string) error {
	if !ValidStatuts[statut] {
		return fmt.Errorf("invalid statut %q", statut)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE devis SET statut = ?, updated_at = ? WHERE id = ?;`,
		statut, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("set devis statut: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPDF records where the rendered document lives and its checksum.
func (r *Repo) SetPDF(ctx context.Context, id, urlPDF, checksum string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE devis SET url_pdf = ?, pdf_checksum = ?, updated_at = ? WHERE id = ?;`,
		urlPDF, checksum, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("set devis pdf: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats is the per-status quote count.
type Stats struct {
	Total     int            `json:"total"`
	ParStatut map[string]int `json:"par_statut"`
}

// CountByStatut aggregates quote counts per status.
func (r *Repo) CountByStatut(ctx context.Context) (*Stats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT statut, COUNT(*) FROM devis GROUP BY statut;`)
	if err != nil {
		return nil, fmt.Errorf("count devis: %w", err)
	}
	defer rows.Close()

	stats := &Stats{ParStatut: map[string]int{}}
	for rows.Next() {
		var (
			statut string
			n      int
		)
		if err := rows.Scan(&statut, &n); err != nil {
			return nil, err
		}
		stats.ParStatut[statut] = n
		stats.Total += n
	}
	return stats, rows.Err()
}

func cents(v int64) money.Cents { return money.Cents(v) }

func collect(rows *sql.Rows) ([]*Devis, error) {
	var out []*Devis
	for rows.Next() {
		d, err := scanDevis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan devis: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
