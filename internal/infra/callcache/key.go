package callcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"edgemcp/internal/domain"
)

// CallKey identifies one cacheable execution: the tool, its validated
// arguments, and the customer section the call runs under.
type CallKey struct {
	Tool    string
	Args    json.RawMessage
	Section string
}

// Hash returns a stable digest of the key. Arguments are canonicalized
// through a decode/re-encode round trip so key order and whitespace do
// not fragment the cache.
func (k CallKey) Hash() (string, error) {
	canonical, err := canonicalJSON(k.Args)
	if err != nil {
		return "", domain.E(domain.CodeInvalidArgument, "callcache.key", "arguments are not valid JSON", err)
	}
	h := sha256.New()
	h.Write([]byte(k.Tool))
	h.Write([]byte{0})
	h.Write([]byte(k.Section))
	h.Write([]byte{0})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func canonicalJSON(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return []byte("null"), nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	// encoding/json writes object keys in sorted order
	return json.Marshal(decoded)
}
