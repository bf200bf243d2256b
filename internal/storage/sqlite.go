package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (and creates if needed) the SQLite database at path and
// ensures required tables exist.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := validateSQLiteFilesystem(path); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Basic health check + apply a few safe pragmas.
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := BootstrapSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// BootstrapSQLite creates tables/indexes if missing.
func BootstrapSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS leads (
  id                   TEXT PRIMARY KEY,
  nom                  TEXT NOT NULL,
  prenom               TEXT NOT NULL,
  email                TEXT NOT NULL,
  telephone            TEXT NOT NULL,
  type_projet          TEXT NOT NULL,
  surface              INTEGER,
  budget               INTEGER,
  delai                TEXT,
  description          TEXT,
  adresse              TEXT NOT NULL,
  ville                TEXT NOT NULL,
  code_postal          TEXT NOT NULL,
  statut               TEXT NOT NULL DEFAULT 'nouveau',
  score_ia             INTEGER NOT NULL DEFAULT 0,
  urgence              TEXT,
  recommandation       TEXT,
  segments             JSON,
  lead_chaud           INTEGER NOT NULL DEFAULT 0,
  email_ouvert         INTEGER NOT NULL DEFAULT 0,
  email_ouvert_count   INTEGER NOT NULL DEFAULT 0,
  email_clic_count     INTEGER NOT NULL DEFAULT 0,
  sendgrid_message_id  TEXT,
  derniere_interaction TEXT,
  lignes_devis_custom  JSON,
  notes_devis_custom   TEXT,
  budget_negocie       INTEGER,
  created_at           TEXT NOT NULL,
  updated_at           TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS devis (
  id           TEXT PRIMARY KEY,
  numero       TEXT NOT NULL UNIQUE,
  lead_id      TEXT NOT NULL REFERENCES leads(id),
  client_nom   TEXT NOT NULL,
  client_email TEXT NOT NULL,
  lignes       JSON NOT NULL,
  total_ht     INTEGER NOT NULL,
  total_tva    INTEGER NOT NULL,
  total_ttc    INTEGER NOT NULL,
  tva_taux     REAL NOT NULL,
  validite     TEXT NOT NULL,
  statut       TEXT NOT NULL DEFAULT 'brouillon',
  mode         TEXT NOT NULL,
  url_pdf      TEXT,
  pdf_checksum TEXT,
  created_at   TEXT NOT NULL,
  updated_at   TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS rapports (
  id              TEXT PRIMARY KEY,
  mois            INTEGER NOT NULL,
  annee           INTEGER NOT NULL,
  url_pdf         TEXT,
  nb_leads        INTEGER NOT NULL,
  nb_leads_gagnes INTEGER NOT NULL,
  nb_devis        INTEGER NOT NULL,
  nb_devis_signes INTEGER NOT NULL,
  ca_mensuel      INTEGER NOT NULL,
  panier_moyen    INTEGER NOT NULL,
  created_at      TEXT NOT NULL,
  UNIQUE(annee, mois)
);`,
		`CREATE TABLE IF NOT EXISTS error_log (
  id         TEXT PRIMARY KEY,
  workflow   TEXT NOT NULL,
  step       TEXT NOT NULL,
  kind       TEXT NOT NULL,
  message    TEXT NOT NULL,
  created_at TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS outbox (
  id            TEXT PRIMARY KEY,
  lead_id       TEXT,
  to_email      TEXT NOT NULL,
  subject       TEXT NOT NULL,
  payload       JSON NOT NULL,
  status        TEXT NOT NULL,
  attempt       INTEGER NOT NULL DEFAULT 1,
  max_attempts  INTEGER NOT NULL DEFAULT 4,
  created_at    TEXT NOT NULL,
  sent_at       TEXT,
  next_retry_at TEXT,
  last_error    TEXT
);`,
		`CREATE INDEX IF NOT EXISTS leads_statut_created_at_idx ON leads(statut, created_at);`,
		`CREATE INDEX IF NOT EXISTS leads_email_idx ON leads(email);`,
		`CREATE INDEX IF NOT EXISTS leads_score_idx ON leads(score_ia);`,
		`CREATE INDEX IF NOT EXISTS devis_lead_id_idx ON devis(lead_id);`,
		`CREATE INDEX IF NOT EXISTS devis_client_email_idx ON devis(client_email);`,
		`CREATE INDEX IF NOT EXISTS devis_statut_idx ON devis(statut);`,
		`CREATE INDEX IF NOT EXISTS outbox_status_created_at_idx ON outbox(status, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}
