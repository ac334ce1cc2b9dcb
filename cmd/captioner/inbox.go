package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tools.zach/dev/captioner/internal/atomicfile"
	"tools.zach/dev/captioner/internal/paths"
	"tools.zach/dev/captioner/internal/pipeline"
)

// ///////////////////////////////////////////////
// Jobs
// ///////////////////////////////////////////////

// job is the JSON body of an inbox file.
type job struct {
	Template string   `json:"template"`
	Captions []string `json:"captions"`
	Prompt   string   `json:"prompt,omitempty"`
}

// parseJob decodes a job file, rejecting unknown keys and a missing template.
func parseJob(data []byte) (job, error) {
	var j job
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&j); err != nil {
		return job{}, fmt.Errorf("parse job: %w", err)
	}
	if j.Template == "" {
		return job{}, errors.New("parse job: missing \"template\"")
	}
	return j, nil
}

// renderer is the part of [pipeline.Pipeline] the inbox needs.
type renderer interface {
	Run(req pipeline.Request) (*pipeline.Result, error)
}

// inboxStats counts the outcome of one inbox pass.
type inboxStats struct {
	Rendered int
	Failed   int
}

// processInbox renders every job file in the inbox in name order. Rendered
// jobs move to done/; jobs that fail move to failed/ next to a .err note.
// Empty files are left alone since their writer has not finished yet.
func processInbox(r renderer, in paths.Inbox, log *slog.Logger) (inboxStats, error) {
	var stats inboxStats
	entries, err := os.ReadDir(in.Dir)
	if err != nil {
		return stats, fmt.Errorf("read inbox: %w", err)
	}
	for _, dir := range []string{in.Done(), in.Failed()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return stats, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	for _, e := range entries {
		if e.IsDir() || !paths.IsJob(e.Name()) {
			continue
		}
		name := e.Name()
		src := filepath.Join(in.Dir, name)
		data, err := os.ReadFile(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return stats, fmt.Errorf("read job %s: %w", name, err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}

		res, runErr := runJob(r, data)
		if runErr != nil {
			stats.Failed++
			log.Warn("job failed", "job", name, "kind", kindLabel(runErr), "error", runErr)
			if err := failJob(in, name, runErr); err != nil {
				return stats, err
			}
			continue
		}
		stats.Rendered++
		log.Info("job rendered", "job", name, "path", res.Path)
		if err := os.Rename(src, filepath.Join(in.Done(), name)); err != nil {
			return stats, fmt.Errorf("move job %s to done: %w", name, err)
		}
	}
	return stats, nil
}

func runJob(r renderer, data []byte) (*pipeline.Result, error) {
	j, err := parseJob(data)
	if err != nil {
		return nil, err
	}
	return r.Run(pipeline.Request{TemplateID: j.Template, Captions: j.Captions, Prompt: j.Prompt})
}

// failJob moves a job to failed/ and writes its .err note.
func failJob(in paths.Inbox, name string, cause error) error {
	note := fmt.Sprintf("kind: %s\nerror: %v\n", kindLabel(cause), cause)
	if err := atomicfile.Write(in.ErrorNote(name), []byte(note), 0o644); err != nil {
		return fmt.Errorf("write error note for %s: %w", name, err)
	}
	if err := os.Rename(filepath.Join(in.Dir, name), filepath.Join(in.Failed(), name)); err != nil {
		return fmt.Errorf("move job %s to failed: %w", name, err)
	}
	return nil
}

// kindLabel names the failure class of a job error.
func kindLabel(err error) string {
	if k := pipeline.KindOf(err); k != 0 {
		return k.String()
	}
	return "invalid job"
}
