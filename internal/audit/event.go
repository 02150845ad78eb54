package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Event is a single immutable ledger record.
type Event struct {
	ID         string
	AgentID    string
	Action     string
	Decision   string
	Reason     string
	InputHash  string
	OutputHash string
	SessionID  string
	PrevHash   string
	Hash       string
	Timestamp  time.Time
}

// canonical renders the hashed portion of an event as a pipe-delimited field
// string. Field order and delimiter are pinned: changing either invalidates
// every existing chain.
func (e Event) canonical() string {
	fields := []string{
		e.ID,
		e.AgentID,
		e.Action,
		e.Decision,
		e.Reason,
		e.InputHash,
		e.OutputHash,
		e.SessionID,
		e.PrevHash,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	return strings.Join(fields, "|")
}

// ComputeHash returns the SHA-256 hex digest of the event's canonical form.
func ComputeHash(e Event) string {
	sum := sha256.Sum256([]byte(e.canonical()))
	return hex.EncodeToString(sum[:])
}

// HashPayload digests an arbitrary payload without retaining it. Payloads are
// marshaled to JSON first; Go sorts map keys during marshaling, which gives a
// stable digest for map-shaped inputs. A nil payload hashes to the empty
// string so absent inputs and outputs stay distinguishable from empty ones.
func HashPayload(payload any) (string, error) {
	if payload == nil {
		return "", nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}
