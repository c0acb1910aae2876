// Package types holds data shared across the photo-manager packages: the
// records a scan produces, the cache row shape, progress events, and a
// small counting-semaphore primitive used by the directory walker.
package types

// RelatedFile is a sidecar or companion preview attached to a primary
// record.
type RelatedFile struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Type string `json:"type"` // "sidecar" or "jpeg-preview"
}

const (
	RelatedSidecar     = "sidecar"
	RelatedJPEGPreview = "jpeg-preview"
)

// PhotoRecord is the unit of output from a scan.
type PhotoRecord struct {
	ID                 string        `json:"id"`
	Path               string        `json:"path"`
	Name               string        `json:"name"`
	DirectoryName      string        `json:"directoryName"`
	Extension          string        `json:"extension"`
	Size               int64         `json:"size"`
	ModifiedAt         int64         `json:"modifiedAt"`
	Hash               string        `json:"hash,omitempty"`
	ThumbnailPath      string        `json:"thumbnailPath,omitempty"`
	RelatedFiles       []RelatedFile `json:"relatedFiles"`
	IsDuplicate        bool          `json:"isDuplicate"`
	DuplicateOf        string        `json:"duplicateOf,omitempty"`
	IsCloudPlaceholder bool          `json:"isCloudPlaceholder"`

	// TrailingHash is carried on the record during the pipeline so Phase 6
	// can bucket on (size, trailing hash) without a side map; it is never
	// serialised.
	TrailingHash string `json:"-"`
}

// CachedEntry is a row in the persistent hash cache, keyed by path.
type CachedEntry struct {
	Size         int64
	TrailingHash string
	FullHash     string
	HasTrailing  bool
	HasFull      bool
}

// ScanProgress is emitted throughout a scan to report phase transitions.
type ScanProgress struct {
	Phase   string `json:"phase"`
	Current uint64 `json:"current"`
	Total   uint64 `json:"total"`
	Message string `json:"message"`
}

// Progress phase names, forming the closed set the reporter may emit.
const (
	PhaseDiscovery    = "discovery"
	PhaseGrouping     = "grouping"
	PhaseAnalyzing    = "analyzing"
	PhaseDuplicates   = "duplicates"
	PhaseTrailingHash = "trailing_hash"
	PhaseHashing      = "hashing"
	PhaseComplete     = "complete"
)

// Semaphore implements a counting semaphore using a buffered channel.
// It limits concurrent access to a resource by blocking when the limit is
// reached.
type Semaphore chan struct{}

// NewSemaphore creates a semaphore that allows up to n concurrent
// acquisitions.
func NewSemaphore(n int) Semaphore { return make(chan struct{}, n) }

// Acquire blocks until a slot is available, then claims it.
func (s Semaphore) Acquire() { s <- struct{}{} }

// Release frees a slot, unblocking one waiting Acquire call.
func (s Semaphore) Release() { <-s }
