package types

// Stage is a processing stage reported by the upload endpoint.
type Stage string

// Stages in the order the backend reports them.
const (
	StageParsing   Stage = "parsing"
	StageChunking  Stage = "chunking"
	StageEmbedding Stage = "embedding"
	StageStoring   Stage = "storing"
)

// IsValid reports whether s is a known stage.
func (s Stage) IsValid() bool {
	switch s {
	case StageParsing, StageChunking, StageEmbedding, StageStoring:
		return true
	}
	return false
}

// InitialProgressMessage is shown before the first server event arrives.
const InitialProgressMessage = "Starting upload..."

// ProgressState is the most recent in-flight status of an upload.
// Each progress event overwrites it; it is never corrected retroactively.
type ProgressState struct {
	Stage   Stage  `json:"stage" yaml:"stage"`
	Percent int    `json:"percent" yaml:"percent"`
	Message string `json:"message" yaml:"message"`
}

// InitialProgress returns the state of a session before any event.
func InitialProgress() ProgressState {
	return ProgressState{
		Stage:   StageParsing,
		Percent: 0,
		Message: InitialProgressMessage,
	}
}

// Fraction returns Percent as a value in [0, 1].
func (p ProgressState) Fraction() float64 {
	switch {
	case p.Percent <= 0:
		return 0
	case p.Percent >= 100:
		return 1
	default:
		return float64(p.Percent) / 100
	}
}
