package vid

import (
	"crypto/sha1"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Conversion is a record of one successful conversion.
type Conversion struct {
	SHA1            string    `csv:"sha1"`
	Width           int       `csv:"width"`
	Colors          int       `csv:"colors"`
	Output          string    `csv:"output"`
	Frames          int       `csv:"frames"`
	Height          int       `csv:"height"`
	FPS             int       `csv:"fps"`
	RawBytes        int64     `csv:"raw_bytes"`
	CompressedBytes int64     `csv:"compressed_bytes"`
	Created         time.Time `csv:"created"`
}

// CatalogDB remembers previous conversions so an unchanged input does not
// need to be encoded again.
type CatalogDB struct {
	db *sql.DB
}

func NewCatalogDB(file string) (*CatalogDB, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS conversion (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL, width INTEGER NOT NULL, colors INTEGER NOT NULL, output TEXT NOT NULL, frames INTEGER NOT NULL, height INTEGER NOT NULL, fps INTEGER NOT NULL, raw_bytes INTEGER NOT NULL, compressed_bytes INTEGER NOT NULL, created INTEGER NOT NULL, UNIQUE(sha1, width, colors, fps))"); err != nil {
		db.Close()
		return nil, err
	}

	return &CatalogDB{
		db: db,
	}, nil
}

func (db *CatalogDB) Close() error {
	return db.db.Close()
}

// Record stores c, replacing any earlier conversion of the same input with
// the same settings and any earlier conversion written to the same output.
func (db *CatalogDB) Record(c Conversion) error {
	if c.Created.IsZero() {
		c.Created = time.Now()
	}
	if _, err := db.db.Exec("DELETE FROM conversion WHERE output = ?", c.Output); err != nil {
		return err
	}
	if _, err := db.db.Exec("INSERT OR REPLACE INTO conversion (sha1, width, colors, output, frames, height, fps, raw_bytes, compressed_bytes, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", c.SHA1, c.Width, c.Colors, c.Output, c.Frames, c.Height, c.FPS, c.RawBytes, c.CompressedBytes, c.Created.Unix()); err != nil {
		return err
	}
	return nil
}

// Find returns the conversion matching the input checksum and settings, or
// nil if there isn't one.
func (db *CatalogDB) Find(sha string, width, colors, fps int) (*Conversion, error) {
	c := Conversion{
		SHA1:   sha,
		Width:  width,
		Colors: colors,
		FPS:    fps,
	}
	var created int64
	switch err := db.db.QueryRow("SELECT output, frames, height, raw_bytes, compressed_bytes, created FROM conversion WHERE sha1 = ? AND width = ? AND colors = ? AND fps = ?", sha, width, colors, fps).Scan(&c.Output, &c.Frames, &c.Height, &c.RawBytes, &c.CompressedBytes, &created); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		c.Created = time.Unix(created, 0)
		return &c, nil
	default:
		return nil, err
	}
}

// List returns every recorded conversion, oldest first.
func (db *CatalogDB) List() ([]Conversion, error) {
	rows, err := db.db.Query("SELECT sha1, width, colors, output, frames, height, fps, raw_bytes, compressed_bytes, created FROM conversion ORDER BY created, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversions []Conversion
	for rows.Next() {
		var c Conversion
		var created int64
		if err := rows.Scan(&c.SHA1, &c.Width, &c.Colors, &c.Output, &c.Frames, &c.Height, &c.FPS, &c.RawBytes, &c.CompressedBytes, &created); err != nil {
			return nil, err
		}
		c.Created = time.Unix(created, 0)
		conversions = append(conversions, c)
	}

	return conversions, rows.Err()
}

// Checksum returns the SHA-1 of the named files, read in order.
func Checksum(files ...string) (string, error) {
	h := sha1.New()
	for _, file := range files {
		f, err := os.Open(file)
		if err != nil {
			return "", err
		}

		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%X", h.Sum(nil)), nil
}
