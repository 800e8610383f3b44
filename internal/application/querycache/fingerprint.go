// Package querycache resolves natural-language requests to structured queries
// through a two-tier cache: exact fingerprint lookup, then approximate match
// over request embeddings, then the LLM translator as the source of truth.
package querycache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/geoinsight/geoinsight/internal/domain/query"
)

// translatorIdentity names the translation contract a fingerprint was minted
// under.  It participates in the hash together with the query schema version,
// so changing either retires every previously cached fingerprint at once.
const translatorIdentity = "geoinsight-translator/1"

// Normalize canonicalizes request text before fingerprinting: lowercased,
// whitespace collapsed.  Two requests differing only in spacing or case are
// the same question.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Fingerprint derives the cache key of one request text.
func Fingerprint(text string) string {
	payload := fmt.Sprintf("%s|schema=%d|%s", translatorIdentity, query.SchemaVersion, Normalize(text))
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
