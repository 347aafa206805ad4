package offline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/campusgo/campusgo-backend/internal/models"
)

// QueuedBooking is one booking captured while the realtime store was
// unreachable. QueuedAt preserves submission order across replays.
type QueuedBooking struct {
	RiderID  string             `json:"riderId"`
	QueuedAt time.Time          `json:"queuedAt"`
	Details  models.RideDetails `json:"details"`
}

// Queue spools bookings to disk, one JSON-lines file per rider, and
// replays them in submission order once connectivity returns. Replay
// stops at the first booking the coordinator rejects so a later
// booking can never jump ahead of an earlier one. Delivery is
// at-least-once: a crash between a successful replay call and the
// spool rewrite re-submits that booking.
type Queue struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

func NewQueue(dir string) (*Queue, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("offline: create spool dir: %w", err)
	}
	return &Queue{dir: dir, now: time.Now}, nil
}

func (q *Queue) spoolPath(riderID string) string {
	return filepath.Join(q.dir, riderID+".jsonl")
}

// Enqueue appends a booking to the rider's spool.
func (q *Queue) Enqueue(riderID string, details models.RideDetails) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	line, err := json.Marshal(QueuedBooking{
		RiderID:  riderID,
		QueuedAt: q.now(),
		Details:  details,
	})
	if err != nil {
		return fmt.Errorf("offline: encode booking: %w", err)
	}
	f, err := os.OpenFile(q.spoolPath(riderID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("offline: open spool: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("offline: append booking: %w", err)
	}
	return nil
}

// Pending returns the rider's queued bookings in submission order.
func (q *Queue) Pending(riderID string) ([]QueuedBooking, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.readSpool(riderID)
}

func (q *Queue) readSpool(riderID string) ([]QueuedBooking, error) {
	f, err := os.Open(q.spoolPath(riderID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("offline: open spool: %w", err)
	}
	defer f.Close()

	var out []QueuedBooking
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var b QueuedBooking
		if err := json.Unmarshal(sc.Bytes(), &b); err != nil {
			return nil, fmt.Errorf("offline: corrupt spool entry for %s: %w", riderID, err)
		}
		out = append(out, b)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("offline: read spool: %w", err)
	}
	return out, nil
}

// Replay feeds the rider's queued bookings to submit in order. It
// stops at the first failure, keeping that booking and everything
// after it spooled, and returns how many bookings were accepted.
func (q *Queue) Replay(riderID string, submit func(QueuedBooking) error) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending, err := q.readSpool(riderID)
	if err != nil {
		return 0, err
	}
	replayed := 0
	var submitErr error
	for _, b := range pending {
		if submitErr = submit(b); submitErr != nil {
			break
		}
		replayed++
	}
	if err := q.rewriteSpool(riderID, pending[replayed:]); err != nil {
		return replayed, err
	}
	return replayed, submitErr
}

func (q *Queue) rewriteSpool(riderID string, remaining []QueuedBooking) error {
	path := q.spoolPath(riderID)
	if len(remaining) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("offline: clear spool: %w", err)
		}
		return nil
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("offline: rewrite spool: %w", err)
	}
	for _, b := range remaining {
		line, err := json.Marshal(b)
		if err != nil {
			f.Close()
			return err
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			f.Close()
			return fmt.Errorf("offline: rewrite spool: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Riders lists every rider with a non-empty spool, oldest spool first.
func (q *Queue) Riders() ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, fmt.Errorf("offline: list spool dir: %w", err)
	}
	type spool struct {
		rider string
		mod   time.Time
	}
	var spools []spool
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		spools = append(spools, spool{rider: strings.TrimSuffix(name, ".jsonl"), mod: info.ModTime()})
	}
	sort.Slice(spools, func(i, j int) bool { return spools[i].mod.Before(spools[j].mod) })
	riders := make([]string, len(spools))
	for i, s := range spools {
		riders[i] = s.rider
	}
	return riders, nil
}
