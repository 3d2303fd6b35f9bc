package karaoke

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/aikhq/aik-backend/internal/clients/assemblyai"
	"github.com/aikhq/aik-backend/internal/clients/lalal"
	"github.com/aikhq/aik-backend/internal/data/repos"
	"github.com/aikhq/aik-backend/internal/data/repos/testutil"
	"github.com/aikhq/aik-backend/internal/pkg/apperr"
	"github.com/aikhq/aik-backend/internal/services"
	"github.com/aikhq/aik-backend/internal/types"
)

// --- stub providers ---

type stubStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	fetched []string
}

func newStubStore() *stubStore {
	return &stubStore{objects: map[string][]byte{}}
}

func (s *stubStore) Upload(ctx context.Context, content []byte, key, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = content
	return key, nil
}

func (s *stubStore) UploadFromURL(ctx context.Context, srcURL, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched = append(s.fetched, srcURL)
	s.objects[key] = []byte("content of " + srcURL)
	return key, nil
}

func (s *stubStore) Download(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.objects[key]
	if !ok {
		return nil, apperr.Storage("file_not_found", fmt.Errorf("no object %s", key))
	}
	return content, nil
}

func (s *stubStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

func (s *stubStore) Delete(ctx context.Context, key string) error { return nil }

func (s *stubStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

type stubSplitter struct {
	mu         sync.Mutex
	checkCalls int
	check      func(call int) (*lalal.CheckResult, error)
}

func (s *stubSplitter) Upload(ctx context.Context, content []byte, filename string) (*lalal.UploadResult, error) {
	return &lalal.UploadResult{FileID: "f1"}, nil
}

func (s *stubSplitter) StartSplit(ctx context.Context, fileID string) (*lalal.SplitResult, error) {
	return &lalal.SplitResult{TaskID: "s1"}, nil
}

func (s *stubSplitter) Check(ctx context.Context, fileID string) (*lalal.CheckResult, error) {
	s.mu.Lock()
	s.checkCalls++
	call := s.checkCalls
	s.mu.Unlock()
	return s.check(call)
}

type stubASR struct {
	mu       sync.Mutex
	getCalls int
	get      func(call int) (*assemblyai.Transcript, error)
	vtt      string
}

func (s *stubASR) Submit(ctx context.Context, audioURL, languageCode string) (*assemblyai.SubmitResult, error) {
	return &assemblyai.SubmitResult{TranscriptID: "tr1", Status: assemblyai.StatusQueued}, nil
}

func (s *stubASR) Get(ctx context.Context, transcriptID string) (*assemblyai.Transcript, error) {
	s.mu.Lock()
	s.getCalls++
	call := s.getCalls
	s.mu.Unlock()
	return s.get(call)
}

func (s *stubASR) GetSubtitles(ctx context.Context, transcriptID, format string, charsPerCaption int) (*assemblyai.SubtitlesResult, error) {
	return &assemblyai.SubtitlesResult{VTT: s.vtt}, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	errors   []string
}

func (n *recordingNotifier) SendNotification(ctx context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func (n *recordingNotifier) SendErrorNotification(ctx context.Context, cause error, contextLine string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, contextLine)
	return nil
}

// --- harness ---

type pipelineHarness struct {
	deps     *Deps
	store    *stubStore
	splitter *stubSplitter
	asr      *stubASR
	notifier *recordingNotifier
}

func newPipelineHarness(t *testing.T, gdb *gorm.DB) *pipelineHarness {
	t.Helper()
	log := testutil.Logger(t)

	// Worker transactions commit, so start each test from clean tables.
	for _, table := range []string{"track_creating_task_logs", "track_creating_task_steps", "karaoke_tracks", "track_creating_tasks"} {
		if err := gdb.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("clean %s: %v", table, err)
		}
	}

	h := &pipelineHarness{
		store:    newStubStore(),
		splitter: &stubSplitter{},
		asr:      &stubASR{},
		notifier: &recordingNotifier{},
	}
	h.deps = &Deps{
		Log:    log,
		DB:     gdb,
		Tasks:  repos.NewTrackTaskRepo(gdb, log),
		Steps:  repos.NewTrackTaskStepRepo(gdb, log),
		Logs:   repos.NewTrackTaskLogRepo(gdb, log),
		Tracks: repos.NewKaraokeTrackRepo(gdb, log),

		Store:    h.store,
		Splitter: h.splitter,
		ASR:      h.asr,

		Transcript: services.NewTranscriptService(log),
		Notifier:   h.notifier,

		MaxAttempts: 5,
		BatchSize:   100,
		Tick:        time.Second,
		// negative thresholds make freshly submitted steps pollable at once
		SplitPollThreshold:      -2 * time.Second,
		TranscriptPollThreshold: -2 * time.Second,
		CharsPerCaption:         80,
		PresignTTL:              time.Hour,
	}
	return h
}

func (h *pipelineHarness) newTask(t *testing.T, langCode string) *types.TrackTask {
	t.Helper()
	ctx := context.Background()
	task := &types.TrackTask{BaseTrackFile: "jobs/test/original.mp3", LangCode: langCode}
	if _, err := h.store.Upload(ctx, []byte("audio bytes"), task.BaseTrackFile, "audio/mpeg"); err != nil {
		t.Fatalf("seed object: %v", err)
	}
	if err := h.deps.Tasks.Create(ctx, nil, task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func (h *pipelineHarness) tick(t *testing.T, workers ...interface {
	RunOnce(ctx context.Context) error
}) {
	t.Helper()
	for _, w := range workers {
		if err := w.RunOnce(context.Background()); err != nil {
			t.Fatalf("worker tick: %v", err)
		}
	}
}

func (h *pipelineHarness) reloadTask(t *testing.T, task *types.TrackTask) *types.TrackTask {
	t.Helper()
	got, err := h.deps.Tasks.GetByID(context.Background(), nil, task.ID)
	if err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if got == nil {
		t.Fatalf("task %s vanished", task.ID)
	}
	return got
}

func (h *pipelineHarness) step(t *testing.T, task *types.TrackTask, kind string) *types.TrackTaskStep {
	t.Helper()
	step, err := h.deps.Steps.GetByTaskAndKind(context.Background(), nil, task.ID, kind, nil)
	if err != nil {
		t.Fatalf("load %s step: %v", kind, err)
	}
	if step == nil {
		t.Fatalf("no %s step for task %s", kind, task.ID)
	}
	return step
}

// --- scenarios ---

func TestPipelineHappyPath(t *testing.T) {
	gdb := testutil.DB(t)
	h := newPipelineHarness(t, gdb)

	h.splitter.check = func(call int) (*lalal.CheckResult, error) {
		return &lalal.CheckResult{
			State:           lalal.StateSuccess,
			VocalURL:        "https://lalal.example/vocal",
			InstrumentalURL: "https://lalal.example/instrumental",
			Duration:        180,
		}, nil
	}
	h.asr.get = func(call int) (*assemblyai.Transcript, error) {
		return &assemblyai.Transcript{
			ID:     "tr1",
			Status: assemblyai.StatusCompleted,
			Words: []assemblyai.Word{
				{Text: "hello", Start: 0, End: 500, Confidence: 0.9},
				{Text: "world", Start: 600, End: 1100, Confidence: 0.95},
			},
		}, nil
	}
	h.asr.vtt = "WEBVTT\n\n00:00:00.000 --> 00:00:01.200\nhello world"

	task := h.newTask(t, "en")

	h.tick(t,
		&InitSplitWorker{Deps: h.deps},
		&SubmitSplitWorker{Deps: h.deps},
		&PollSplitWorker{Deps: h.deps},
		&InitTranscriptWorker{Deps: h.deps},
		&SubmitTranscriptWorker{Deps: h.deps},
		&PollTranscriptWorker{Deps: h.deps},
		&InitSubtitlesWorker{Deps: h.deps},
		&FetchSubtitlesWorker{Deps: h.deps},
		&AssembleWorker{Deps: h.deps},
	)

	got := h.reloadTask(t, task)
	if got.Status != types.TaskStatusCompleted {
		t.Fatalf("expected completed task, got %s", got.Status)
	}
	if got.VocalFile == nil || got.InstrumentalFile == nil || got.ResultTrackID == nil {
		t.Fatalf("task missing artifacts: %+v", got)
	}

	track, err := h.deps.Tracks.GetByID(context.Background(), nil, *got.ResultTrackID)
	if err != nil || track == nil {
		t.Fatalf("load track: %v (%v)", err, track)
	}
	if len(track.Transcript) != 1 {
		t.Fatalf("expected 1 transcript line, got %d", len(track.Transcript))
	}
	line := track.Transcript[0]
	if line.Text != "hello world" || line.Start != 0 || line.End != 1200 {
		t.Fatalf("unexpected line: %+v", line)
	}
	if len(line.Words) != 2 || line.Words[0].Text != "hello" || line.Words[1].Text != "world" {
		t.Fatalf("unexpected line words: %+v", line.Words)
	}
	if len(h.notifier.errors) != 0 {
		t.Fatalf("unexpected error notifications: %v", h.notifier.errors)
	}
}

func TestPipelineSplitFinalFailure(t *testing.T) {
	gdb := testutil.DB(t)
	h := newPipelineHarness(t, gdb)

	h.splitter.check = func(call int) (*lalal.CheckResult, error) {
		return &lalal.CheckResult{State: lalal.StateError, ErrorMessage: "bad format"}, nil
	}

	task := h.newTask(t, "en")
	h.tick(t, &InitSplitWorker{Deps: h.deps}, &SubmitSplitWorker{Deps: h.deps})

	poll := &PollSplitWorker{Deps: h.deps}
	for i := 0; i < 5; i++ {
		h.tick(t, poll)
	}

	step := h.step(t, task, types.StepKindSplit)
	if step.Status != types.StepStatusFinalFailed {
		t.Fatalf("expected final_failed step, got %s", step.Status)
	}
	if step.Attempts != 5 {
		t.Fatalf("expected 5 attempts, got %d", step.Attempts)
	}
	if got := h.reloadTask(t, task); got.Status != types.TaskStatusFailed {
		t.Fatalf("expected failed task, got %s", got.Status)
	}
	if len(h.notifier.errors) != 1 {
		t.Fatalf("expected exactly 1 error notification, got %d", len(h.notifier.errors))
	}

	logs, err := h.deps.Logs.ListByTask(context.Background(), nil, task.ID)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	errorEntries := 0
	for _, entry := range logs {
		ev, _ := entry.Data["event"].(string)
		if ev == "step_failed" || ev == "step_final_failed" {
			errorEntries++
		}
	}
	if errorEntries != 5 {
		t.Fatalf("expected 5 error log entries, got %d", errorEntries)
	}

	// an exhausted step is no longer claimable
	before := h.splitter.checkCalls
	h.tick(t, poll)
	if h.splitter.checkCalls != before {
		t.Fatal("final_failed step must not be polled again")
	}
}

func TestPipelineTranscriptNotReadyThenSuccess(t *testing.T) {
	gdb := testutil.DB(t)
	h := newPipelineHarness(t, gdb)

	h.splitter.check = func(call int) (*lalal.CheckResult, error) {
		return &lalal.CheckResult{
			State:           lalal.StateSuccess,
			VocalURL:        "https://lalal.example/vocal",
			InstrumentalURL: "https://lalal.example/instrumental",
			Duration:        90,
		}, nil
	}
	h.asr.get = func(call int) (*assemblyai.Transcript, error) {
		if call <= 3 {
			return &assemblyai.Transcript{ID: "tr1", Status: assemblyai.StatusProcessing}, nil
		}
		return &assemblyai.Transcript{
			ID:     "tr1",
			Status: assemblyai.StatusCompleted,
			Words:  []assemblyai.Word{{Text: "solo", Start: 0, End: 400, Confidence: 0.8}},
		}, nil
	}

	task := h.newTask(t, "en")
	h.tick(t,
		&InitSplitWorker{Deps: h.deps},
		&SubmitSplitWorker{Deps: h.deps},
		&PollSplitWorker{Deps: h.deps},
		&InitTranscriptWorker{Deps: h.deps},
		&SubmitTranscriptWorker{Deps: h.deps},
	)

	poll := &PollTranscriptWorker{Deps: h.deps}
	for i := 0; i < 3; i++ {
		h.tick(t, poll)
		step := h.step(t, task, types.StepKindTranscript)
		if step.Attempts != 0 {
			t.Fatalf("not-ready must not count as attempt, got %d", step.Attempts)
		}
		if step.Status != types.StepStatusInProcess {
			t.Fatalf("not-ready must leave step in_process, got %s", step.Status)
		}
	}

	h.tick(t, poll)
	if got := h.reloadTask(t, task); got.Status != types.TaskStatusTranscriptCompleted {
		t.Fatalf("expected transcript_completed on tick 4, got %s", got.Status)
	}
	if len(h.reloadTask(t, task).Words) != 1 {
		t.Fatal("expected persisted words")
	}
}

func TestPipelineInitIsIdempotent(t *testing.T) {
	gdb := testutil.DB(t)
	h := newPipelineHarness(t, gdb)

	task := h.newTask(t, "en")
	init := &InitSplitWorker{Deps: h.deps}
	h.tick(t, init, init)

	steps, err := h.deps.Steps.ListByTask(context.Background(), nil, task.ID)
	if err != nil {
		t.Fatalf("list steps: %v", err)
	}
	if len(steps) != 1 {
		t.Fatalf("expected a single split step, got %d", len(steps))
	}
	if got := h.reloadTask(t, task); got.Status != types.TaskStatusInSplitProcess {
		t.Fatalf("expected in_split_process, got %s", got.Status)
	}
}

func TestPipelineShutdownDoesNotAbortInFlightItem(t *testing.T) {
	gdb := testutil.DB(t)
	h := newPipelineHarness(t, gdb)

	ctx, cancel := context.WithCancel(context.Background())
	h.splitter.check = func(call int) (*lalal.CheckResult, error) {
		// shutdown arrives while the provider call is in flight
		cancel()
		return &lalal.CheckResult{
			State:           lalal.StateSuccess,
			VocalURL:        "https://lalal.example/vocal",
			InstrumentalURL: "https://lalal.example/instrumental",
			Duration:        30,
		}, nil
	}

	task := h.newTask(t, "en")
	h.tick(t, &InitSplitWorker{Deps: h.deps}, &SubmitSplitWorker{Deps: h.deps})

	if err := (&PollSplitWorker{Deps: h.deps}).RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if got := h.reloadTask(t, task); got.Status != types.TaskStatusSplitCompleted {
		t.Fatalf("in-flight item must finish despite cancellation, got %s", got.Status)
	}
	step := h.step(t, task, types.StepKindSplit)
	if step.Status != types.StepStatusCompleted || step.Attempts != 0 {
		t.Fatalf("step must complete cleanly: %+v", step)
	}
}

func TestPipelineSplitInProgressLeavesStepUntouched(t *testing.T) {
	gdb := testutil.DB(t)
	h := newPipelineHarness(t, gdb)

	h.splitter.check = func(call int) (*lalal.CheckResult, error) {
		return &lalal.CheckResult{State: lalal.StateProgress, Progress: 40}, nil
	}

	task := h.newTask(t, "en")
	h.tick(t, &InitSplitWorker{Deps: h.deps}, &SubmitSplitWorker{Deps: h.deps}, &PollSplitWorker{Deps: h.deps})

	step := h.step(t, task, types.StepKindSplit)
	if step.Status != types.StepStatusInProcess || step.Attempts != 0 {
		t.Fatalf("in-progress split must not mutate the step: %+v", step)
	}
	if got := h.reloadTask(t, task); got.Status != types.TaskStatusInSplitProcess {
		t.Fatalf("task must stay in_split_process, got %s", got.Status)
	}
}
