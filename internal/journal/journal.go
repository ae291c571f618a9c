// Package journal records completed OTP fill episodes in SQLite.
//
// Codes are never stored. Each entry carries a BLAKE2b-256 MAC of the code keyed
// with a random per-journal key, which is enough to notice the same code being
// entered twice. The key lives in a separate owner-only file next to the
// database (KeyPath). The database alone does not reveal codes, but anyone
// holding both files can recover a short numeric code by trying every
// candidate, so the key file must not be copied along with the database.
package journal

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/blake2b"

	"otpentry/internal/otp"
	"otpentry/internal/security"
)

const schema = `
CREATE TABLE IF NOT EXISTS episodes (
    id                  TEXT PRIMARY KEY,
    started_ns          INTEGER NOT NULL,
    completed_ns        INTEGER NOT NULL,
    provenance          TEXT NOT NULL,
    length              INTEGER NOT NULL,
    keystrokes          INTEGER NOT NULL,
    abandoned_bursts    INTEGER NOT NULL,
    digest              BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_episodes_completed ON episodes(completed_ns);
CREATE INDEX IF NOT EXISTS idx_episodes_digest ON episodes(digest);
`

const keySize = 32

// ErrCorruptKey is returned when the key file exists but does not hold a key.
var ErrCorruptKey = errors.New("journal key file is corrupt")

// KeyPath returns the key file used by the journal at path.
func KeyPath(path string) string {
	return path + ".key"
}

// Entry is a stored episode.
type Entry struct {
	ID              string
	Started         time.Time
	Completed       time.Time
	Provenance      otp.Provenance
	Length          int
	Keystrokes      int
	AbandonedBursts int
	Digest          []byte
}

// Journal is the SQLite episode store. It is safe for concurrent use.
type Journal struct {
	db  *sql.DB
	key *security.Secret
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), security.PermSecretDir); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	key, err := loadOrCreateKey(KeyPath(path))
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db, key: security.NewSecret(key)}, nil
}

func loadOrCreateKey(path string) ([]byte, error) {
	key, err := readKey(path)
	switch {
	case err == nil:
		return key, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read journal key: %w", err)
	}

	key = make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate journal key: %w", err)
	}

	// Write the key under a temporary name and link it into place, so a
	// concurrent Open either wins or reads the complete key of the winner.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".journal-key-*")
	if err != nil {
		return nil, fmt.Errorf("create journal key: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(key); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write journal key: %w", err)
	}
	if err := tmp.Chmod(security.PermSecretFile); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write journal key: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write journal key: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("write journal key: %w", err)
	}

	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			security.Wipe(key)
			return readKey(path)
		}
		return nil, fmt.Errorf("install journal key: %w", err)
	}
	return key, nil
}

func readKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(key) != keySize {
		security.Wipe(key)
		return nil, fmt.Errorf("%w: %s", ErrCorruptKey, path)
	}
	return key, nil
}

// Close wipes the digest key and closes the database connection.
func (j *Journal) Close() error {
	if j.key != nil {
		j.key.Destroy()
	}
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Digest returns the keyed digest stored for code.
func (j *Journal) Digest(code string) ([]byte, error) {
	h, err := blake2b.New256(j.key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("init digest: %w", err)
	}
	h.Write([]byte(code))
	return h.Sum(nil), nil
}

// Record stores a completed episode.
func (j *Journal) Record(ep otp.Episode) error {
	digest, err := j.Digest(ep.Value)
	if err != nil {
		return err
	}
	_, err = j.db.Exec(`
		INSERT INTO episodes (id, started_ns, completed_ns, provenance, length, keystrokes, abandoned_bursts, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ep.ID, ep.Started.UnixNano(), ep.Completed.UnixNano(), ep.Provenance.String(),
		ep.Length, ep.Keystrokes, ep.AbandonedBursts, digest,
	)
	if err != nil {
		return fmt.Errorf("insert episode: %w", err)
	}
	return nil
}

// SeenBefore reports whether an episode with the same code was recorded.
func (j *Journal) SeenBefore(code string) (bool, error) {
	digest, err := j.Digest(code)
	if err != nil {
		return false, err
	}
	var n int
	if err := j.db.QueryRow(`SELECT COUNT(*) FROM episodes WHERE digest = ?`, digest).Scan(&n); err != nil {
		return false, fmt.Errorf("query digest: %w", err)
	}
	return n > 0, nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.Query(`
		SELECT id, started_ns, completed_ns, provenance, length, keystrokes, abandoned_bursts, digest
		FROM episodes ORDER BY completed_ns DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                 Entry
			startedNs, doneNs int64
			provenance        string
		)
		if err := rows.Scan(&e.ID, &startedNs, &doneNs, &provenance, &e.Length, &e.Keystrokes, &e.AbandonedBursts, &e.Digest); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		e.Started = time.Unix(0, startedNs)
		e.Completed = time.Unix(0, doneNs)
		if e.Provenance, err = otp.ParseProvenance(provenance); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats summarises the journal by provenance.
type Stats struct {
	Total        int
	ByProvenance map[otp.Provenance]int
}

// Stats counts recorded episodes.
func (j *Journal) Stats() (Stats, error) {
	rows, err := j.db.Query(`SELECT provenance, COUNT(*) FROM episodes GROUP BY provenance`)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := Stats{ByProvenance: make(map[otp.Provenance]int)}
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		p, err := otp.ParseProvenance(name)
		if err != nil {
			return Stats{}, err
		}
		stats.ByProvenance[p] = n
		stats.Total += n
	}
	return stats, rows.Err()
}
