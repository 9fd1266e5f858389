package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	// Seed a PRNG from crypto/rand so ULID entropy is unpredictable.
	// ulid.Monotonic keeps IDs generated within the same millisecond
	// lexicographically increasing.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID string (time-sortable identifier).
//
// Cycle IDs and ticket IDs are ULIDs so forensic records sort by creation
// time, which keeps the append-only audit log and its SQLite mirror
// naturally ordered.
func New() string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), mono)
	if err != nil {
		panic(err)
	}
	return id.String()
}

// Cycle returns a short capital-cycle identifier: the last 8 characters
// of a ULID. Those come from the entropy payload, not the timestamp
// prefix, so cycles started within the same instant still get distinct
// IDs. The capital ledger only needs opaque uniqueness per cycle.
func Cycle() string {
	u := New()
	return u[len(u)-8:]
}
