package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/face-recognizer/internal/augment"
	"github.com/kozaktomas/face-recognizer/internal/classifier"
	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/recognition"
	"github.com/kozaktomas/face-recognizer/internal/training"
)

// TrainingHandler runs training jobs in the background and installs the
// resulting model into the recognizer.
type TrainingHandler struct {
	config     *config.Config
	recognizer *recognition.Recognizer
	trainer    classifier.Trainer
	jobManager *JobManager
}

// NewTrainingHandler creates a new training handler.
func NewTrainingHandler(cfg *config.Config, rec *recognition.Recognizer, trainer classifier.Trainer, jm *JobManager) *TrainingHandler {
	return &TrainingHandler{
		config:     cfg,
		recognizer: rec,
		trainer:    trainer,
		jobManager: jm,
	}
}

// Start starts a training job. The body is optional.
func (h *TrainingHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req TrainingJobOptions
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Quota < 0 {
		respondError(w, http.StatusBadRequest, "quota must not be negative")
		return
	}
	if req.Quota == 0 {
		req.Quota = h.config.Training.Quota
	}
	if req.Seed == 0 {
		req.Seed = h.config.Training.Seed
	}

	// The job outlives the request, so it gets its own context.
	ctx, cancel := context.WithCancel(context.Background())
	jobID := uuid.New().String()
	job, err := h.jobManager.CreateJob(jobID, req, cancel)
	if err != nil {
		cancel()
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	go h.runTrainingJob(ctx, job)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(JobStatusPending),
	})
}

// List returns the kept training jobs, oldest first.
func (h *TrainingHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.jobManager.ListJobs())
}

// Status returns the status of a training job
func (h *TrainingHandler) Status(w http.ResponseWriter, r *http.Request) {
	job := h.jobFromURL(w, r)
	if job == nil {
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// Events streams job events via SSE
func (h *TrainingHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			job := h.jobManager.GetJob(id)
			if job == nil {
				return nil
			}
			return job
		},
		func(job SSEJob) any {
			return job
		},
	)
}

// Cancel asks a training job to stop. The job reports cancelled once its
// goroutine has stopped; until then it blocks new jobs.
func (h *TrainingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	job := h.jobFromURL(w, r)
	if job == nil {
		return
	}
	if isJobTerminal(job.GetStatus()) {
		respondError(w, http.StatusConflict, "job already finished")
		return
	}

	job.Cancel()
	respondJSON(w, http.StatusAccepted, map[string]bool{"cancelling": true})
}

func (h *TrainingHandler) jobFromURL(w http.ResponseWriter, r *http.Request) *TrainingJob {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return nil
	}
	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return nil
	}
	return job
}

// runTrainingJob trains, swaps the new model into the recognizer and
// optionally tests it on original photos. It is the only place a job
// reaches a terminal state. Cancelling after the swap stops the held-out
// test only; the installed model stays.
func (h *TrainingHandler) runTrainingJob(ctx context.Context, job *TrainingJob) {
	defer job.cancel()

	job.setRunning()
	job.SendEvent(JobEvent{Type: "started", Message: "Training started"})

	params := h.recognizer.Options().Params
	selfTest := training.DefaultInSampleOptions()
	selfTest.Threshold = h.config.Thresholds.SelfTest

	opts := training.Options{
		DataDir:     h.config.DataDir,
		ModelDir:    h.config.ModelDir,
		Quota:       job.Options.Quota,
		Seed:        job.Options.Seed,
		Params:      params,
		Synthesizer: augment.Default(),
		SelfTest:    selfTest,
		OnProgress: func(info training.ProgressInfo) {
			progress := 0
			if info.Phase == training.PhaseCollecting && info.Total > 0 {
				// Collecting dominates the run; fitting and saving share the rest.
				progress = info.Current * 80 / info.Total
			}
			job.setProgress(info.Phase, progress)
			job.SendEvent(JobEvent{
				Type: "progress",
				Data: map[string]any{
					"phase":    info.Phase,
					"current":  info.Current,
					"total":    info.Total,
					"identity": info.Identity,
				},
			})
		},
	}

	result, err := training.New(h.recognizer.Locator(), h.trainer, opts).Run(ctx)
	if err != nil {
		h.endJob(ctx, job, fmt.Sprintf("training failed: %v", err))
		return
	}
	// A run cancelled while saving is not installed.
	if ctx.Err() != nil {
		h.endJob(ctx, job, "")
		return
	}

	h.recognizer.Holder().Swap(result.Artifact)
	log.Printf("Training job %s installed model %s (%d identities, %d samples)", job.ID, result.RunID, result.Trained, result.Samples)
	job.SendEvent(JobEvent{Type: "model_loaded", Data: map[string]string{"run_id": result.RunID}})

	jobResult := &TrainingJobResult{
		RunID:      result.RunID,
		Trained:    result.Trained,
		Samples:    result.Samples,
		Identities: result.Identities,
		SelfTest:   result.SelfTest,
		DurationMs: result.Duration.Milliseconds(),
	}

	if !job.Options.SkipTest {
		job.setProgress(training.PhaseTesting, 90)
		jobResult.HeldOut, err = training.HeldOutCheck(ctx, training.HeldOutOptions{
			DataDir:     h.config.DataDir,
			ModelDir:    h.config.ModelDir,
			Classifier:  h.trainer,
			Locator:     h.recognizer.Locator(),
			Params:      params,
			PerIdentity: constants.HeldOutPerIdentity,
			Threshold:   h.recognizer.Options().Threshold,
			Seed:        job.Options.Seed,
		})
		if err != nil {
			h.endJob(ctx, job, fmt.Sprintf("testing failed: %v", err))
			return
		}
	}

	job.complete(jobResult)
	job.SendEvent(JobEvent{Type: "completed", Data: jobResult})
}

// endJob marks the job cancelled when its context ended, failed otherwise.
func (h *TrainingHandler) endJob(ctx context.Context, job *TrainingJob, message string) {
	if ctx.Err() != nil {
		job.finish(JobStatusCancelled, "")
		job.SendEvent(JobEvent{Type: "cancelled", Message: "Job was cancelled"})
		return
	}
	log.Printf("Training job %s failed: %s", job.ID, message)
	job.finish(JobStatusFailed, message)
	job.SendEvent(JobEvent{Type: "job_error", Message: message})
}
