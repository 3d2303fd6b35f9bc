package types

// Enum columns store lowercase strings for wire compatibility with the
// existing database.

const (
	TaskStatusCreated             = "created"
	TaskStatusInSplitProcess      = "in_split_process"
	TaskStatusSplitCompleted      = "split_completed"
	TaskStatusInTranscriptProcess = "in_transcript_process"
	TaskStatusTranscriptCompleted = "transcript_completed"
	TaskStatusInSubtitlesProcess  = "in_subtitles_process"
	TaskStatusSubtitlesCompleted  = "subtitles_completed"
	TaskStatusCompleted           = "completed"
	TaskStatusFailed              = "failed"
)

const (
	StepKindSplit      = "split"
	StepKindTranscript = "transcript"
	StepKindSubtitles  = "subtitles"
)

const (
	StepStatusInit        = "init"
	StepStatusInProcess   = "in_process"
	StepStatusCompleted   = "completed"
	StepStatusFailed      = "failed"
	StepStatusFinalFailed = "final_failed"
)

const (
	SourceTypeTG     = "tg"
	SourceTypeManual = "manual"
)

const (
	SpecialistFrontend    = "frontend"
	SpecialistBackend     = "backend"
	SpecialistFullstack   = "fullstack"
	SpecialistAnalyst     = "analyst"
	SpecialistDevops      = "devops"
	SpecialistQA          = "qa"
	SpecialistAutomaticQA = "authomatic_qa"
	SpecialistDesigner    = "designer"
	SpecialistOther       = "other"
)

const (
	GradeJunior    = "junior"
	GradeMiddle    = "middle"
	GradeSenior    = "senior"
	GradePrinciple = "principle"
	GradeLead      = "lead"
)

const (
	WorkFormatOffice = "office"
	WorkFormatRemote = "remote"
	WorkFormatHybrid = "hybrid"
)
