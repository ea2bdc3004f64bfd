package fbin

import (
	"database/sql"
	"fmt"

	"github.com/bodgit/fbin/format"
	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3" // register sqlite3 driver
	"github.com/pkg/errors"
)

// Cache stores converted units keyed by the SHA-1 of the source file and the
// options used to convert it, so repeated runs can skip the quantization.
type Cache struct {
	db   *sql.DB
	zenc *zstd.Encoder
	zdec *zstd.Decoder
}

// NewCache opens or creates the cache database in file.
func NewCache(file string) (*Cache, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS unit (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL, options TEXT NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, data BLOB NOT NULL, UNIQUE(sha1, options))"); err != nil {
		db.Close()
		return nil, err
	}

	zenc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		db.Close()
		return nil, err
	}

	zdec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{
		db:   db,
		zenc: zenc,
		zdec: zdec,
	}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	c.zdec.Close()
	if err := c.zenc.Close(); err != nil {
		c.db.Close()
		return err
	}
	return c.db.Close()
}

// Find returns the cached unit or nil if there is no match.
func (c *Cache) Find(sha, options string, width, height int) (*format.Unit, error) {
	var data []byte
	switch err := c.db.QueryRow("SELECT data FROM unit WHERE sha1 = ? AND options = ? AND width = ? AND height = ?", sha, options, width, height).Scan(&data); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		b, err := c.zdec.DecodeAll(data, nil)
		if err != nil {
			return nil, errors.Wrap(err, "corrupt cache entry")
		}

		u := &format.Unit{Width: width, Height: height}
		if err := u.UnmarshalBinary(b); err != nil {
			return nil, errors.Wrap(err, "corrupt cache entry")
		}
		return u, nil
	default:
		return nil, err
	}
}

// Add stores u, replacing any existing entry.
func (c *Cache) Add(sha, options string, u *format.Unit) error {
	b, err := u.MarshalBinary()
	if err != nil {
		return err
	}

	if _, err := c.db.Exec("INSERT OR REPLACE INTO unit (sha1, options, width, height, data) VALUES (?, ?, ?, ?, ?)", sha, options, u.Width, u.Height, c.zenc.EncodeAll(b, nil)); err != nil {
		return err
	}
	return nil
}

// Len returns the number of cached units.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM unit").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
