package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/toitureai/leadgw/internal/money"
)

// ErrNotFound is returned when no report matches the requested period.
var ErrNotFound = errors.New("rapport not found")

// Repo reads period data from the leads and devis tables and persists
// generated report records.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// LeadStatuts returns the status of every lead created in the period.
func (r *Repo) LeadStatuts(ctx context.Context, p Periode) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT statut FROM leads WHERE created_at >= ? AND created_at < ?`,
		p.Debut.UTC().Format(time.RFC3339Nano), p.Fin.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("query lead statuts: %w", err)
	}
	defer rows.Close()

	var statuts []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan lead statut: %w", err)
		}
		statuts = append(statuts, s)
	}
	return statuts, rows.Err()
}

// DevisRows returns the quotes created in the period, newest first,
// along with a client email to city mapping for the ranking.
func (r *Repo) DevisRows(ctx context.Context, p Periode) ([]DevisLigne, map[string]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.numero, d.client_nom, d.client_email, d.total_ttc, d.statut, d.created_at, COALESCE(l.ville, '')
		 FROM devis d
		 LEFT JOIN leads l ON l.id = d.lead_id
		 WHERE d.created_at >= ? AND d.created_at < ?
		 ORDER BY d.created_at DESC`,
		p.Debut.UTC().Format(time.RFC3339Nano), p.Fin.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, nil, fmt.Errorf("query devis rows: %w", err)
	}
	defer rows.Close()

	var out []DevisLigne
	villes := map[string]string{}
	for rows.Next() {
		var d DevisLigne
		var ttc int64
		var createdAt, ville string
		if err := rows.Scan(&d.Numero, &d.ClientNom, &d.ClientEmail, &ttc, &d.Statut, &createdAt, &ville); err != nil {
			return nil, nil, fmt.Errorf("scan devis row: %w", err)
		}
		d.MontantTTC = money.Cents(ttc)
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			d.CreatedAt = t
		}
		if ville != "" {
			villes[strings.ToLower(d.ClientEmail)] = ville
		}
		out = append(out, d)
	}
	return out, villes, rows.Err()
}

// Insert stores a generated report. One record per period: a rerun for
// the same month replaces the previous record.
func (r *Repo) Insert(ctx context.Context, rec *Record) error {
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rapports (id, mois, annee, url_pdf, nb_leads, nb_leads_gagnes, nb_devis, nb_devis_signes, ca_mensuel, panier_moyen, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(annee, mois) DO UPDATE SET
		   id = excluded.id,
		   url_pdf = excluded.url_pdf,
		   nb_leads = excluded.nb_leads,
		   nb_leads_gagnes = excluded.nb_leads_gagnes,
		   nb_devis = excluded.nb_devis,
		   nb_devis_signes = excluded.nb_devis_signes,
		   ca_mensuel = excluded.ca_mensuel,
		   panier_moyen = excluded.panier_moyen,
		   created_at = excluded.created_at`,
		rec.ID, rec.Mois, rec.Annee, rec.URLPDF,
		rec.NbLeads, rec.NbLeadsGagnes, rec.NbDevis, rec.NbDevisSignes,
		int64(rec.CAMensuel), int64(rec.PanierMoyen),
		rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert rapport: %w", err)
	}
	return nil
}

const recordColumns = `id, mois, annee, COALESCE(url_pdf, ''), nb_leads, nb_leads_gagnes, nb_devis, nb_devis_signes, ca_mensuel, panier_moyen, created_at`

func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	var rec Record
	var ca, panier int64
	var createdAt string
	err := row.Scan(&rec.ID, &rec.Mois, &rec.Annee, &rec.URLPDF,
		&rec.NbLeads, &rec.NbLeadsGagnes, &rec.NbDevis, &rec.NbDevisSignes,
		&ca, &panier, &createdAt)
	if err != nil {
		return nil, err
	}
	rec.CAMensuel = money.Cents(ca)
	rec.PanierMoyen = money.Cents(panier)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = t
	}
	return &rec, nil
}

// GetByPeriod returns the stored report for one month or ErrNotFound.
func (r *Repo) GetByPeriod(ctx context.Context, month, year int) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM rapports WHERE mois = ? AND annee = ?`, month, year)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rapport: %w", err)
	}
	return rec, nil
}

// List returns stored reports, newest period first. A zero year means
// all years.
func (r *Repo) List(ctx context.Context, year int) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM rapports`
	var args []any
	if year > 0 {
		query += ` WHERE annee = ?`
		args = append(args, year)
	}
	query += ` ORDER BY annee DESC, mois DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rapports: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rapport: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
