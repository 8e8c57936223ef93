package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dv00d00/expo-text-extractor/internal/queue"
)

type enqueueResult struct {
	Source string     `json:"source"`
	JobID  string     `json:"jobId,omitempty"`
	Error  *errorBody `json:"error,omitempty"`
}

func newEnqueueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue <image>...",
		Short: "Submit images to the worker queue",
		Long: `Submit one extract-text job per image to the worker queue and print the
job ids. Local paths are sent as file URIs, so the worker must see the same
filesystem; use --base64 to send the image bytes instead. HTTP(S) URLs are
downloaded by the worker.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			producer, err := queue.NewProducer(
				a.v.GetString("redis_url"),
				a.v.GetString("queue"),
				a.v.GetInt("max_retry"),
				a.v.GetDuration("ocr.timeout"),
			)
			if err != nil {
				return err
			}
			defer producer.Close()

			opts := a.ocrOptions()
			useData := a.v.GetBool("base64")

			results := make([]enqueueResult, 0, len(args))
			failed := 0
			for _, arg := range args {
				job, err := jobFor(arg, useData)
				if err == nil {
					job.Options = opts
					var id string
					if id, err = producer.Enqueue(cmd.Context(), job); err == nil {
						results = append(results, enqueueResult{Source: arg, JobID: id})
						continue
					}
				}
				failed++
				results = append(results, enqueueResult{Source: arg, Error: newErrorBody(err)})
			}

			if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d jobs could not be enqueued", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().String("redis-url", "redis://localhost:6379", "Redis URL of the worker queue")
	cmd.Flags().String("queue", "textextract", "queue name")
	cmd.Flags().Int("max-retry", 3, "retries for retryable failures")
	a.mustBindPFlag("redis_url", cmd.Flags().Lookup("redis-url"))
	a.mustBindPFlag("queue", cmd.Flags().Lookup("queue"))
	a.mustBindPFlag("max_retry", cmd.Flags().Lookup("max-retry"))
	return cmd
}

// jobFor builds the job payload for one argument.
func jobFor(arg string, useData bool) (*queue.JobData, error) {
	lower := strings.ToLower(arg)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return &queue.JobData{ImageURI: arg}, nil
	}
	if useData {
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		return &queue.JobData{ImageData: data}, nil
	}
	if strings.Contains(arg, "://") {
		return &queue.JobData{ImageURI: arg}, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", arg, err)
	}
	return &queue.JobData{ImageURI: "file://" + filepath.ToSlash(abs)}, nil
}
