package archive

// Stage identifies the pipeline stage an object was lost at.
type Stage string

const (
	StageDownload   Stage = "download"
	StageVerify     Stage = "verify"
	StageDecompress Stage = "decompress"
	StageValidate   Stage = "validate"
)

// DownloadOutcome captures the result of one download attempt sequence.
// Transport failures never escape the downloader; they land here.
type DownloadOutcome struct {
	Descriptor Descriptor
	LocalPath  string
	Succeeded  bool

	// Attempts counts fetches actually made, at least 1 once any I/O ran.
	// It stays 0 when the key is rejected or the context is already
	// cancelled before the first fetch.
	Attempts int

	SHA256  string
	LastErr error
}

// ObjectOutcome is the per-object record folded into the run aggregate.
// Exactly one is produced per listed object that enters the worker pool.
type ObjectOutcome struct {
	Descriptor    Descriptor
	RawPath       string
	ProcessedPath string

	Downloaded   bool
	Verified     bool
	Decompressed bool
	Validated    bool

	Attempts int
	SHA256   string

	// FailedStage and Err are set when the object was lost at a stage;
	// zero values mean the object survived the whole chain.
	FailedStage Stage
	Err         error
}

// Failed reports whether the object was lost at any stage.
func (o ObjectOutcome) Failed() bool {
	return o.FailedStage != ""
}
