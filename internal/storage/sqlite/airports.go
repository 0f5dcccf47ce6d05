package sqlite

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yegors/routewx/internal/airports"
	"github.com/yegors/routewx/internal/geo"
	"github.com/yegors/routewx/pkg/logger"
	_ "modernc.org/sqlite"
)

// Airport types kept from the directory CSV
var importedTypes = map[string]bool{
	"large_airport":  true,
	"medium_airport": true,
	"small_airport":  true,
	"seaplane_base":  true,
}

// OurAirports column positions, used when the header is missing a name
var defaultColumns = map[string]int{
	"ident":         1,
	"type":          2,
	"name":          3,
	"latitude_deg":  4,
	"longitude_deg": 5,
	"elevation_ft":  6,
	"iso_country":   8,
	"municipality":  10,
	"iata_code":     13,
}

const airportColumns = "ident, type, name, latitude, longitude, elevation_ft, country, municipality, iata_code"

// AirportStorage is a SQLite-based airport directory
type AirportStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewAirportStorage opens (creating if needed) the airport database at dbPath
func NewAirportStorage(dbPath string, log *logger.Logger) (*AirportStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open the database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool limits
	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	// Set pragmas for better performance and concurrency
	pragmas := []struct{ stmt, what string }{
		{"PRAGMA journal_mode=WAL", "journal mode"},
		{"PRAGMA synchronous=NORMAL", "synchronous mode"},
		{"PRAGMA busy_timeout=5000", "busy timeout"},
		{"PRAGMA cache_size=10000", "cache size"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %s: %w", p.what, err)
		}
	}

	// Create tables if they don't exist
	if err := initSchema(db, storageLogger); err != nil {
		db.Close()
		return nil, err
	}

	return &AirportStorage{
		db:     db,
		logger: storageLogger,
	}, nil
}

// Close closes the database connection
func (s *AirportStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// initSchema initializes the database schema
func initSchema(db *sql.DB, log *logger.Logger) error {
	log.Info("Initializing database schema")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS airports (
			ident TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			name TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			elevation_ft INTEGER,
			country TEXT,
			municipality TEXT,
			iata_code TEXT,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create airports table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_airports_iata ON airports(iata_code)",
		"CREATE INDEX IF NOT EXISTS idx_airports_name ON airports(name)",
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Info("Database schema initialized successfully")
	return nil
}

// ImportCSVFile loads an OurAirports-format CSV file into the directory
func (s *AirportStorage) ImportCSVFile(ctx context.Context, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return s.ImportCSV(ctx, file)
}

// ImportCSV upserts every airport row of an OurAirports-format CSV and
// returns the number imported. Closed airports, heliports and rows without a
// usable position are skipped.
func (s *AirportStorage) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := columnIndexes(header)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO airports (`+airportColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(ident) DO UPDATE SET
			type = excluded.type,
			name = excluded.name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			elevation_ft = excluded.elevation_ft,
			country = excluded.country,
			municipality = excluded.municipality,
			iata_code = excluded.iata_code,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	imported, skipped := 0, 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read CSV record: %w", err)
		}

		a, ok := parseRecord(record, cols)
		if !ok {
			skipped++
			continue
		}
		if _, err := stmt.ExecContext(ctx, a.Ident, a.Type, a.Name, a.Lat, a.Lon,
			a.ElevationFt, a.Country, a.Municipality, nullable(a.IATA)); err != nil {
			return 0, fmt.Errorf("failed to insert airport %s: %w", a.Ident, err)
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}

	s.logger.Info("Imported airport directory",
		logger.Int("imported", imported),
		logger.Int("skipped", skipped))
	return imported, nil
}

func columnIndexes(header []string) map[string]int {
	cols := make(map[string]int, len(defaultColumns))
	for name, idx := range defaultColumns {
		cols[name] = idx
	}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, known := defaultColumns[name]; known {
			cols[name] = i
		}
	}
	return cols
}

func parseRecord(record []string, cols map[string]int) (airports.Airport, bool) {
	field := func(name string) string {
		idx := cols[name]
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	a := airports.Airport{
		Ident:        airports.NormalizeCode(field("ident")),
		IATA:         airports.NormalizeCode(field("iata_code")),
		Name:         field("name"),
		Type:         field("type"),
		Country:      field("iso_country"),
		Municipality: field("municipality"),
	}
	if a.Ident == "" || !importedTypes[a.Type] {
		return airports.Airport{}, false
	}

	lat, err := strconv.ParseFloat(field("latitude_deg"), 64)
	if err != nil {
		return airports.Airport{}, false
	}
	lon, err := strconv.ParseFloat(field("longitude_deg"), 64)
	if err != nil {
		return airports.Airport{}, false
	}
	a.Coordinate = geo.Coordinate{Lat: lat, Lon: lon}
	if a.Coordinate.Validate() != nil {
		return airports.Airport{}, false
	}

	// Elevation might be empty
	if elev, err := strconv.ParseFloat(field("elevation_ft"), 64); err == nil {
		a.ElevationFt = int(elev)
	}
	return a, true
}

// GetByCode looks up an airport by ident, falling back to IATA code. When
// several airports share an IATA code the largest wins.
func (s *AirportStorage) GetByCode(ctx context.Context, code string) (airports.Airport, error) {
	code = airports.NormalizeCode(code)
	if code == "" {
		return airports.Airport{}, airports.ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+airportColumns+`
		FROM airports
		WHERE ident = ? OR iata_code = ?
		ORDER BY CASE WHEN ident = ? THEN 0 ELSE 1 END, `+typeRank+`
		LIMIT 1
	`, code, code, code)

	a, err := scanAirport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return airports.Airport{}, airports.ErrNotFound
	}
	if err != nil {
		return airports.Airport{}, fmt.Errorf("failed to query airport %s: %w", code, err)
	}
	return a, nil
}

// Search finds airports whose ident, IATA code, name or municipality contain
// query. Exact code matches and larger airports come first.
func (s *AirportStorage) Search(ctx context.Context, query string, limit int) ([]airports.Airport, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []airports.Airport{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	code := airports.NormalizeCode(query)
	pattern := "%" + escapeLike(strings.ToUpper(query)) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+airportColumns+`
		FROM airports
		WHERE ident LIKE ? ESCAPE '\'
			OR iata_code LIKE ? ESCAPE '\'
			OR UPPER(name) LIKE ? ESCAPE '\'
			OR UPPER(municipality) LIKE ? ESCAPE '\'
		ORDER BY CASE WHEN ident = ? OR iata_code = ? THEN 0 ELSE 1 END, `+typeRank+`, name
		LIMIT ?
	`, pattern, pattern, pattern, pattern, code, code, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search airports: %w", err)
	}
	defer rows.Close()

	results := []airports.Airport{}
	for rows.Next() {
		a, err := scanAirport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan airport: %w", err)
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// Count returns the number of airports in the directory
func (s *AirportStorage) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM airports").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count airports: %w", err)
	}
	return n, nil
}

const typeRank = `CASE type
	WHEN 'large_airport' THEN 0
	WHEN 'medium_airport' THEN 1
	WHEN 'small_airport' THEN 2
	ELSE 3 END`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAirport(row scanner) (airports.Airport, error) {
	var (
		a                   airports.Airport
		elevation           sql.NullInt64
		country, city, iata sql.NullString
	)
	if err := row.Scan(&a.Ident, &a.Type, &a.Name, &a.Lat, &a.Lon, &elevation, &country, &city, &iata); err != nil {
		return airports.Airport{}, err
	}
	a.ElevationFt = int(elevation.Int64)
	a.Country = country.String
	a.Municipality = city.String
	a.IATA = iata.String
	return a, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
