// Package spatial reconciles raw spatial identifiers onto the three-level
// administrative hierarchy.  Source systems disagree on how they reference a
// location: some carry the finest-level key, some a bare administrative code,
// some a human-readable district or province name.  The Resolver maps any of
// these onto canonical labels per level, degrading to the raw key itself when
// nothing matches, so that no record is ever dropped for want of a label.
package spatial

import (
	"strings"

	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
	"github.com/geoinsight/geoinsight/pkg/types/common"
)

// Administrative code layout of the source data: a full finest-level code is
// ten digits, of which the leading five identify the intermediate unit and
// the leading two the coarsest.
const (
	FullCodeWidth         = 10
	IntermediateCodeWidth = 5
	CoarsestCodeWidth     = 2
)

// ─────────────────────────────────────────────────────────────────────────────
// Directory
// ─────────────────────────────────────────────────────────────────────────────

// Unit is one directory record describing a finest-level spatial unit and its
// position in the hierarchy.
type Unit struct {
	// Key is the raw identifier sources use for this unit.
	Key string
	// Code is the full administrative code, when known.
	Code string
	// FinestLabel, IntermediateLabel, CoarsestLabel are the canonical names
	// at each tier.  Any of them may be empty.
	FinestLabel       string
	IntermediateLabel string
	CoarsestLabel     string
}

// Directory holds the lookup indexes the resolution strategies run against.
// Built once at startup from the spatial dimension table; read-only afterwards.
type Directory struct {
	byKey          map[string]Unit
	byCodePrefix   map[string]string // intermediate-width code prefix → label
	bySidoPrefix   map[string]string // coarsest-width code prefix → label
	intermediateNm map[string]string // lowercased name → canonical label
	coarsestNm     map[string]string
}

// NewDirectory indexes units for resolution.  A raw key resolves to at most
// one unit; on duplicate keys the first record wins and the duplicate is
// logged, never silently merged.
func NewDirectory(units []Unit, logger logging.Logger) *Directory {
	if logger == nil {
		logger = logging.Default()
	}
	d := &Directory{
		byKey:          make(map[string]Unit, len(units)),
		byCodePrefix:   make(map[string]string),
		bySidoPrefix:   make(map[string]string),
		intermediateNm: make(map[string]string),
		coarsestNm:     make(map[string]string),
	}
	for _, u := range units {
		if u.Key != "" {
			if _, dup := d.byKey[u.Key]; dup {
				logger.Warn("duplicate spatial key in directory", logging.String("key", u.Key))
			} else {
				d.byKey[u.Key] = u
			}
		}
		if len(u.Code) >= IntermediateCodeWidth && u.IntermediateLabel != "" {
			d.byCodePrefix[u.Code[:IntermediateCodeWidth]] = u.IntermediateLabel
		}
		if len(u.Code) >= CoarsestCodeWidth && u.CoarsestLabel != "" {
			d.bySidoPrefix[u.Code[:CoarsestCodeWidth]] = u.CoarsestLabel
		}
		if u.IntermediateLabel != "" {
			d.intermediateNm[strings.ToLower(u.IntermediateLabel)] = u.IntermediateLabel
		}
		if u.CoarsestLabel != "" {
			d.coarsestNm[strings.ToLower(u.CoarsestLabel)] = u.CoarsestLabel
		}
	}
	return d
}

// Size returns the number of finest-level units indexed.
func (d *Directory) Size() int { return len(d.byKey) }

// ─────────────────────────────────────────────────────────────────────────────
// Resolution
// ─────────────────────────────────────────────────────────────────────────────

// Resolution carries the per-level labels derived for one raw key.  A nil
// level means resolution failed there; LabelAt substitutes the raw key so
// downstream grouping always has a label.
type Resolution struct {
	RawKey       string
	Finest       *string
	Intermediate *string
	Coarsest     *string
}

// LabelAt returns the resolved label for the level, or the raw key when the
// level could not be resolved.
func (r Resolution) LabelAt(level common.Level) string {
	var p *string
	switch level {
	case common.LevelFinest:
		p = r.Finest
	case common.LevelIntermediate:
		p = r.Intermediate
	case common.LevelCoarsest:
		p = r.Coarsest
	}
	if p == nil || *p == "" {
		return r.RawKey
	}
	return *p
}

// Resolved reports whether any level produced a canonical label.
func (r Resolution) Resolved() bool {
	return r.Finest != nil || r.Intermediate != nil || r.Coarsest != nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Resolver
// ─────────────────────────────────────────────────────────────────────────────

// strategy attempts to fill unresolved levels of res from the raw key.
// Strategies run in priority order; per level the first one to produce a
// label wins and later strategies leave it untouched.
type strategy func(d *Directory, rawKey string, res *Resolution)

// Resolver maps raw keys onto per-level labels.  Resolve never returns an
// error: an unknown key yields a Resolution whose LabelAt falls back to the
// key itself.
type Resolver struct {
	dir        *Directory
	strategies []strategy
}

// NewResolver builds a Resolver over the directory with the standard rule
// chain: exact finest-key match, code-prefix derivation, then name match.
func NewResolver(dir *Directory) *Resolver {
	return &Resolver{
		dir: dir,
		strategies: []strategy{
			resolveByFinestKey,
			resolveByCodePrefix,
			resolveByName,
		},
	}
}

// Resolve runs every strategy against rawKey.  All strategies execute (they
// fill different levels); within a level earlier strategies take precedence.
func (r *Resolver) Resolve(rawKey string) Resolution {
	res := Resolution{RawKey: rawKey}
	for _, s := range r.strategies {
		s(r.dir, rawKey, &res)
	}
	return res
}

// resolveByFinestKey matches rawKey exactly against the finest-level
// directory, filling every level the matched unit knows about.
func resolveByFinestKey(d *Directory, rawKey string, res *Resolution) {
	u, ok := d.byKey[rawKey]
	if !ok {
		return
	}
	setIfEmpty(&res.Finest, u.FinestLabel)
	setIfEmpty(&res.Intermediate, u.IntermediateLabel)
	setIfEmpty(&res.Coarsest, u.CoarsestLabel)
}

// resolveByCodePrefix treats a numeric rawKey as an administrative code and
// derives the intermediate and coarsest labels from its fixed-width prefixes.
func resolveByCodePrefix(d *Directory, rawKey string, res *Resolution) {
	if !isNumeric(rawKey) {
		return
	}
	if len(rawKey) >= IntermediateCodeWidth {
		if label, ok := d.byCodePrefix[rawKey[:IntermediateCodeWidth]]; ok {
			setIfEmpty(&res.Intermediate, label)
		}
	}
	if len(rawKey) >= CoarsestCodeWidth {
		if label, ok := d.bySidoPrefix[rawKey[:CoarsestCodeWidth]]; ok {
			setIfEmpty(&res.Coarsest, label)
		}
	}
}

// resolveByName matches rawKey case-insensitively against the intermediate
// and coarsest name directories.
func resolveByName(d *Directory, rawKey string, res *Resolution) {
	k := strings.ToLower(strings.TrimSpace(rawKey))
	if label, ok := d.intermediateNm[k]; ok {
		setIfEmpty(&res.Intermediate, label)
	}
	if label, ok := d.coarsestNm[k]; ok {
		setIfEmpty(&res.Coarsest, label)
	}
}

func setIfEmpty(dst **string, label string) {
	if *dst == nil && label != "" {
		v := label
		*dst = &v
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
