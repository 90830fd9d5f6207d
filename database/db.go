package database

import (
	"database/sql"
	"log"
	"sync"

	_ "github.com/lib/pq"

	"github.com/vidforge/vidforge/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database connection error: %v", err)
		return nil, err
	}
	err = createBalanceTable(db)
	if err != nil {
		return nil, err
	}
	err = createLedgerEntryTable(db)
	if err != nil {
		return nil, err
	}
	err = createTaskTable(db)
	if err != nil {
		return nil, err
	}
	err = createAssetTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func createBalanceTable(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS balances (
		id SERIAL PRIMARY KEY,
		account_id TEXT NOT NULL UNIQUE,
		balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	)
`)
	return err
}

func createLedgerEntryTable(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id SERIAL PRIMARY KEY,
		entry_id TEXT NOT NULL UNIQUE,
		account_id TEXT NOT NULL,
		amount BIGINT NOT NULL,
		type TEXT NOT NULL,
		description TEXT,
		task_id TEXT,
		asset_id TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)
`)
	return err
}

func createTaskTable(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS tasks (
		id SERIAL PRIMARY KEY,
		task_id TEXT NOT NULL UNIQUE,
		correlation_id TEXT UNIQUE,
		account_id TEXT NOT NULL,
		prompt TEXT NOT NULL,
		duration INT NOT NULL,
		quality TEXT NOT NULL,
		aspect_ratio TEXT NOT NULL,
		image_url TEXT,
		status TEXT NOT NULL DEFAULT 'processing',
		error_message TEXT,
		cost_charged BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	)
`)
	return err
}

func createAssetTable(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS assets (
		id SERIAL PRIMARY KEY,
		asset_id TEXT NOT NULL UNIQUE,
		task_id TEXT NOT NULL UNIQUE,
		video_url TEXT NOT NULL,
		thumbnail_url TEXT NOT NULL,
		size_bytes BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	)
`)
	return err
}
