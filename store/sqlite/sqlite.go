/*
Package sqlite provides the SQLite-backed implementation of billing.Store.

PURPOSE:

	Application persistence for the income engine. In production the same
	patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:

	trainers, clients:  roster records; client price snapshots are stored
	                    as JSON (they are opaque value objects)
	packages:           seq INTEGER PRIMARY KEY AUTOINCREMENT supplies the
	                    insertion order that breaks start-date ties
	sessions:           package_id '' marks a drop-in; relinking updates
	                    only this column
	late_fees, price_history, income_rates

MONEY:

	decimal values are stored as TEXT and re-parsed on read, never as
	floating point columns.

CONCURRENCY:

	Uses sync.RWMutex for thread-safety; RelinkSessions and
	ReplaceRateTable additionally run inside SQL transactions so each is
	one logical unit. WAL mode for better read concurrency.

USAGE:

	st, err := sqlite.New("./data/income.db")   // ":memory:" for tests
	defer st.Close()

SEE ALSO:
  - billing/store.go:        Interface definition
  - billing/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/pulsefit/income-engine/billing"
	"github.com/pulsefit/income-engine/engine"
)

// Store implements billing.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ billing.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trainers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		tier INTEGER NOT NULL,
		archived INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		trainer_id TEXT NOT NULL,
		secondary_trainer_id TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL,
		tier INTEGER NOT NULL,
		pricing TEXT NOT NULL,
		personal INTEGER NOT NULL DEFAULT 0,
		archived INTEGER NOT NULL DEFAULT 0,
		location TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_clients_trainer ON clients(trainer_id);

	CREATE TABLE IF NOT EXISTS packages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		client_id TEXT NOT NULL,
		trainer_id TEXT NOT NULL,
		sessions_purchased INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		sales_bonus TEXT NOT NULL,
		mode TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_packages_pair ON packages(client_id, trainer_id);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		trainer_id TEXT NOT NULL,
		date TEXT NOT NULL,
		package_id TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_pair_date ON sessions(client_id, trainer_id, date);
	CREATE INDEX IF NOT EXISTS idx_sessions_trainer_date ON sessions(trainer_id, date);

	CREATE TABLE IF NOT EXISTS late_fees (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		trainer_id TEXT NOT NULL,
		date TEXT NOT NULL,
		amount TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_late_fees_trainer_date ON late_fees(trainer_id, date);

	CREATE TABLE IF NOT EXISTS price_history (
		rowid_seq INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id TEXT NOT NULL,
		effective_date TEXT NOT NULL,
		pricing TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_price_history_client ON price_history(client_id, effective_date);

	CREATE TABLE IF NOT EXISTS income_rates (
		rowid_seq INTEGER PRIMARY KEY AUTOINCREMENT,
		trainer_id TEXT NOT NULL,
		effective_week TEXT NOT NULL,
		bracket_min INTEGER NOT NULL,
		bracket_max INTEGER,
		rate TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_income_rates_trainer ON income_rates(trainer_id, effective_week);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SERIALIZATION HELPERS
// =============================================================================

type snapshotJSON struct {
	Prices  [3]string `json:"prices"`
	Premium string    `json:"premium"`
}

func marshalSnapshot(ps billing.PriceSnapshot) (string, error) {
	doc := snapshotJSON{Premium: ps.SemiPrivatePremium.String()}
	for i, p := range ps.BracketPrices {
		doc.Prices[i] = p.String()
	}
	raw, err := json.Marshal(doc)
	return string(raw), err
}

func unmarshalSnapshot(raw string) (billing.PriceSnapshot, error) {
	var doc snapshotJSON
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return billing.PriceSnapshot{}, err
	}
	ps := billing.PriceSnapshot{}
	for i, p := range doc.Prices {
		d, err := decimal.NewFromString(p)
		if err != nil {
			return billing.PriceSnapshot{}, err
		}
		ps.BracketPrices[i] = d
	}
	premium, err := decimal.NewFromString(doc.Premium)
	if err != nil {
		return billing.PriceSnapshot{}, err
	}
	ps.SemiPrivatePremium = premium
	return ps, nil
}

func parseMoney(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

// =============================================================================
// TRAINERS
// =============================================================================

func (s *Store) SaveTrainer(ctx context.Context, t billing.Trainer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trainers (id, name, tier, archived) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, tier=excluded.tier, archived=excluded.archived`,
		string(t.ID), t.Name, int(t.Tier), boolToInt(t.Archived))
	return err
}

func (s *Store) Trainer(ctx context.Context, id billing.TrainerID) (billing.Trainer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT id, name, tier, archived FROM trainers WHERE id = ?`, string(id))
	t, err := scanTrainer(row)
	if err == sql.ErrNoRows {
		return billing.Trainer{}, fmt.Errorf("trainer %s: %w", id, billing.ErrNotFound)
	}
	return t, err
}

func (s *Store) Trainers(ctx context.Context) ([]billing.Trainer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, tier, archived FROM trainers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []billing.Trainer
	for rows.Next() {
		t, err := scanTrainer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanTrainer(r rowScanner) (billing.Trainer, error) {
	var t billing.Trainer
	var id string
	var tier, archived int
	if err := r.Scan(&id, &t.Name, &tier, &archived); err != nil {
		return billing.Trainer{}, err
	}
	t.ID = billing.TrainerID(id)
	t.Tier = billing.Tier(tier)
	t.Archived = archived != 0
	return t, nil
}

// =============================================================================
// CLIENTS
// =============================================================================

func (s *Store) SaveClient(ctx context.Context, c billing.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pricing, err := marshalSnapshot(c.Pricing)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, trainer_id, secondary_trainer_id, mode, tier, pricing, personal, archived, location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, trainer_id=excluded.trainer_id,
			secondary_trainer_id=excluded.secondary_trainer_id,
			mode=excluded.mode, tier=excluded.tier, pricing=excluded.pricing,
			personal=excluded.personal, archived=excluded.archived, location=excluded.location`,
		string(c.ID), c.Name, string(c.TrainerID), string(c.SecondaryTrainerID),
		string(c.Mode), int(c.Tier), pricing, boolToInt(c.IsPersonalClient),
		boolToInt(c.Archived), c.Location)
	return err
}

func (s *Store) Client(ctx context.Context, id billing.ClientID) (billing.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, trainer_id, secondary_trainer_id, mode, tier, pricing, personal, archived, location
		FROM clients WHERE id = ?`, string(id))
	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return billing.Client{}, fmt.Errorf("client %s: %w", id, billing.ErrNotFound)
	}
	return c, err
}

func (s *Store) Clients(ctx context.Context) ([]billing.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, trainer_id, secondary_trainer_id, mode, tier, pricing, personal, archived, location
		FROM clients ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []billing.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanClient(r rowScanner) (billing.Client, error) {
	var c billing.Client
	var id, trainerID, secondaryID, mode, pricing string
	var tier, personal, archived int
	if err := r.Scan(&id, &c.Name, &trainerID, &secondaryID, &mode, &tier, &pricing, &personal, &archived, &c.Location); err != nil {
		return billing.Client{}, err
	}
	snapshot, err := unmarshalSnapshot(pricing)
	if err != nil {
		return billing.Client{}, err
	}
	c.ID = billing.ClientID(id)
	c.TrainerID = billing.TrainerID(trainerID)
	c.SecondaryTrainerID = billing.TrainerID(secondaryID)
	c.Mode = billing.TrainingMode(mode)
	c.Tier = billing.Tier(tier)
	c.Pricing = snapshot
	c.IsPersonalClient = personal != 0
	c.Archived = archived != 0
	return c, nil
}

// =============================================================================
// PACKAGES
// =============================================================================

func (s *Store) SavePackage(ctx context.Context, p billing.Package) (billing.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO packages (id, client_id, trainer_id, sessions_purchased, start_date, sales_bonus, mode)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(p.ID), string(p.ClientID), string(p.TrainerID),
		p.SessionsPurchased, engine.FormatDate(p.StartDate), p.SalesBonus.String(), string(p.Mode))
	if err != nil {
		return billing.Package{}, err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return billing.Package{}, err
	}
	p.Seq = seq
	return p, nil
}

func (s *Store) Packages(ctx context.Context) ([]billing.Package, error) {
	return s.queryPackages(ctx, `
		SELECT seq, id, client_id, trainer_id, sessions_purchased, start_date, sales_bonus, mode
		FROM packages ORDER BY seq`)
}

func (s *Store) PackagesFor(ctx context.Context, clientID billing.ClientID, trainerID billing.TrainerID) ([]billing.Package, error) {
	return s.queryPackages(ctx, `
		SELECT seq, id, client_id, trainer_id, sessions_purchased, start_date, sales_bonus, mode
		FROM packages WHERE client_id = ? AND trainer_id = ? ORDER BY seq`,
		string(clientID), string(trainerID))
}

func (s *Store) queryPackages(ctx context.Context, query string, args ...any) ([]billing.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []billing.Package
	for rows.Next() {
		var p billing.Package
		var id, clientID, trainerID, startDate, bonus, mode string
		if err := rows.Scan(&p.Seq, &id, &clientID, &trainerID, &p.SessionsPurchased, &startDate, &bonus, &mode); err != nil {
			return nil, err
		}
		date, err := engine.ParseDate(startDate)
		if err != nil {
			return nil, err
		}
		salesBonus, err := parseMoney(bonus)
		if err != nil {
			return nil, err
		}
		p.ID = billing.PackageID(id)
		p.ClientID = billing.ClientID(clientID)
		p.TrainerID = billing.TrainerID(trainerID)
		p.StartDate = date
		p.SalesBonus = salesBonus
		p.Mode = billing.TrainingMode(mode)
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// SESSIONS
// =============================================================================

func (s *Store) SaveSession(ctx context.Context, sess billing.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, client_id, trainer_id, date, package_id, mode, location)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id=excluded.client_id, trainer_id=excluded.trainer_id,
			date=excluded.date, package_id=excluded.package_id,
			mode=excluded.mode, location=excluded.location`,
		string(sess.ID), string(sess.ClientID), string(sess.TrainerID),
		engine.FormatDate(sess.Date), string(sess.PackageID), string(sess.Mode), sess.Location)
	return err
}

func (s *Store) Sessions(ctx context.Context) ([]billing.Session, error) {
	return s.querySessions(ctx, `
		SELECT id, client_id, trainer_id, date, package_id, mode, location
		FROM sessions ORDER BY date, id`)
}

func (s *Store) SessionsFor(ctx context.Context, clientID billing.ClientID, trainerID billing.TrainerID) ([]billing.Session, error) {
	return s.querySessions(ctx, `
		SELECT id, client_id, trainer_id, date, package_id, mode, location
		FROM sessions WHERE client_id = ? AND trainer_id = ? ORDER BY date, id`,
		string(clientID), string(trainerID))
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]billing.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []billing.Session
	for rows.Next() {
		var sess billing.Session
		var id, clientID, trainerID, date, packageID, mode string
		if err := rows.Scan(&id, &clientID, &trainerID, &date, &packageID, &mode, &sess.Location); err != nil {
			return nil, err
		}
		d, err := engine.ParseDate(date)
		if err != nil {
			return nil, err
		}
		sess.ID = billing.SessionID(id)
		sess.ClientID = billing.ClientID(clientID)
		sess.TrainerID = billing.TrainerID(trainerID)
		sess.Date = d
		sess.PackageID = billing.PackageID(packageID)
		sess.Mode = billing.TrainingMode(mode)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// =============================================================================
// LATE FEES
// =============================================================================

func (s *Store) SaveLateFee(ctx context.Context, f billing.LateFee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO late_fees (id, client_id, trainer_id, date, amount) VALUES (?, ?, ?, ?, ?)`,
		string(f.ID), string(f.ClientID), string(f.TrainerID),
		engine.FormatDate(f.Date), f.Amount.String())
	return err
}

func (s *Store) LateFees(ctx context.Context) ([]billing.LateFee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, trainer_id, date, amount FROM late_fees ORDER BY date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []billing.LateFee
	for rows.Next() {
		var f billing.LateFee
		var id, clientID, trainerID, date, amount string
		if err := rows.Scan(&id, &clientID, &trainerID, &date, &amount); err != nil {
			return nil, err
		}
		d, err := engine.ParseDate(date)
		if err != nil {
			return nil, err
		}
		amt, err := parseMoney(amount)
		if err != nil {
			return nil, err
		}
		f.ID = billing.LateFeeID(id)
		f.ClientID = billing.ClientID(clientID)
		f.TrainerID = billing.TrainerID(trainerID)
		f.Date = d
		f.Amount = amt
		out = append(out, f)
	}
	return out, rows.Err()
}

// =============================================================================
// PRICE HISTORY
// =============================================================================

func (s *Store) AppendPriceHistory(ctx context.Context, e billing.PriceHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pricing, err := marshalSnapshot(e.Pricing)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO price_history (client_id, effective_date, pricing) VALUES (?, ?, ?)`,
		string(e.ClientID), engine.FormatDate(e.EffectiveDate), pricing)
	return err
}

func (s *Store) PriceHistory(ctx context.Context) ([]billing.PriceHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT client_id, effective_date, pricing FROM price_history ORDER BY rowid_seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []billing.PriceHistoryEntry
	for rows.Next() {
		var clientID, date, pricing string
		if err := rows.Scan(&clientID, &date, &pricing); err != nil {
			return nil, err
		}
		d, err := engine.ParseDate(date)
		if err != nil {
			return nil, err
		}
		snapshot, err := unmarshalSnapshot(pricing)
		if err != nil {
			return nil, err
		}
		out = append(out, billing.PriceHistoryEntry{
			ClientID:      billing.ClientID(clientID),
			EffectiveDate: d,
			Pricing:       snapshot,
		})
	}
	return out, rows.Err()
}

// =============================================================================
// INCOME RATES
// =============================================================================

func (s *Store) ReplaceRateTable(ctx context.Context, trainerID billing.TrainerID, effectiveWeek time.Time, rows []billing.IncomeRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	week := engine.FormatDate(effectiveWeek)
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM income_rates WHERE trainer_id = ? AND effective_week = ?`,
		string(trainerID), week); err != nil {
		return err
	}
	for _, r := range rows {
		var max any
		if r.Bracket.Max != nil {
			max = *r.Bracket.Max
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO income_rates (trainer_id, effective_week, bracket_min, bracket_max, rate)
			VALUES (?, ?, ?, ?, ?)`,
			string(r.TrainerID), engine.FormatDate(r.EffectiveWeek), r.Bracket.Min, max, r.Rate.String()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) IncomeRates(ctx context.Context) ([]billing.IncomeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT trainer_id, effective_week, bracket_min, bracket_max, rate
		FROM income_rates ORDER BY rowid_seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []billing.IncomeRate
	for rows.Next() {
		var trainerID, week, rate string
		var min int
		var max sql.NullInt64
		if err := rows.Scan(&trainerID, &week, &min, &max, &rate); err != nil {
			return nil, err
		}
		d, err := engine.ParseDate(week)
		if err != nil {
			return nil, err
		}
		fraction, err := parseMoney(rate)
		if err != nil {
			return nil, err
		}
		bracket := engine.Bracket{Min: min}
		if max.Valid {
			v := int(max.Int64)
			bracket.Max = &v
		}
		out = append(out, billing.IncomeRate{
			TrainerID:     billing.TrainerID(trainerID),
			EffectiveWeek: d,
			Bracket:       bracket,
			Rate:          fraction,
		})
	}
	return out, rows.Err()
}

// =============================================================================
// SESSION RELINKING
// =============================================================================

func (s *Store) RelinkSessions(ctx context.Context, links map[billing.SessionID]billing.PackageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for id, pkgID := range links {
		if _, err := tx.ExecContext(ctx, `
			UPDATE sessions SET package_id = ? WHERE id = ?`,
			string(pkgID), string(id)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
