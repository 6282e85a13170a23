package domain

import (
	"errors"
	"testing"
)

func validOptions() GenerationOptions {
	return GenerationOptions{
		Tone:      ToneProfessional,
		Language:  "en",
		WordCount: 150,
	}
}

func TestGenerationOptionsNormalize(t *testing.T) {
	t.Parallel()
	opts := validOptions()
	opts.Language = " EN "
	opts.Keywords = []string{" mug ", "", "ceramic"}
	opts.CustomInstruction = "  mention the glaze  "

	if err := opts.Normalize(); err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if opts.Language != "en" {
		t.Fatalf("Language = %q, want en", opts.Language)
	}
	if len(opts.Keywords) != 2 || opts.Keywords[0] != "mug" || opts.Keywords[1] != "ceramic" {
		t.Fatalf("Keywords = %v", opts.Keywords)
	}
	if opts.CustomInstruction != "mention the glaze" {
		t.Fatalf("CustomInstruction = %q", opts.CustomInstruction)
	}
}

func TestGenerationOptionsNormalizeRejections(t *testing.T) {
	t.Parallel()
	tooManyKeywords := make([]string, MaxKeywords+1)
	for i := range tooManyKeywords {
		tooManyKeywords[i] = "kw"
	}

	cases := []struct {
		name   string
		mutate func(o *GenerationOptions)
	}{
		{name: "bad_tone", mutate: func(o *GenerationOptions) { o.Tone = "sarcastic" }},
		{name: "bad_language", mutate: func(o *GenerationOptions) { o.Language = "notalang!" }},
		{name: "word_count_low", mutate: func(o *GenerationOptions) { o.WordCount = MinWordCount - 1 }},
		{name: "word_count_high", mutate: func(o *GenerationOptions) { o.WordCount = MaxWordCount + 1 }},
		{name: "too_many_keywords", mutate: func(o *GenerationOptions) { o.Keywords = tooManyKeywords }},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			opts := validOptions()
			tc.mutate(&opts)
			if err := opts.Normalize(); !errors.Is(err, ErrInvalidOptions) {
				t.Fatalf("err = %v, want ErrInvalidOptions", err)
			}
		})
	}
}

func TestJobStatusTerminal(t *testing.T) {
	t.Parallel()
	terminal := map[JobStatus]bool{
		JobStatusQueued:     false,
		JobStatusProcessing: false,
		JobStatusCompleted:  true,
		JobStatusFailed:     true,
		JobStatusCancelled:  true,
	}
	for status, want := range terminal {
		if status.Terminal() != want {
			t.Fatalf("%s.Terminal() = %t, want %t", status, !want, want)
		}
	}
}

func TestBulkJobProgress(t *testing.T) {
	t.Parallel()
	job := &BulkJob{Total: 8, Processed: 5}
	if got := job.Progress(); got != 62 {
		t.Fatalf("Progress = %d, want 62", got)
	}
	if (&BulkJob{}).Progress() != 0 {
		t.Fatal("empty job progress must be 0")
	}
	job.Processed = 8
	if job.Progress() != 100 {
		t.Fatalf("Progress = %d, want 100", job.Progress())
	}
}
