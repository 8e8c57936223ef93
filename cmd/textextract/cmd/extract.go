package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	textextractor "github.com/dv00d00/expo-text-extractor"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/dv00d00/expo-text-extractor/unified"
)

type errorBody struct {
	Code    ocrerror.ErrorCode `json:"code"`
	Message string             `json:"message"`
}

type fileResult struct {
	Source  string                         `json:"source"`
	Texts   []string                       `json:"texts,omitempty"`
	Regions []textextractor.RecognizedText `json:"regions,omitempty"`
	Error   *errorBody                     `json:"error,omitempty"`
}

func newErrorBody(err error) *errorBody {
	oe := ocrerror.Wrap("", err)
	return &errorBody{Code: oe.Code, Message: oe.Message}
}

func newExtractCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <image>...",
		Short: "Print the text of each detected region",
		Long: `Recognize each image and print the text of every detected region in
reading order. Images are processed independently; one failure does not
stop the others.

Examples:
  textextract extract receipt.png
  textextract extract --base64 --languages de,en scan1.jpg scan2.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, logger, err := a.extractor()
			if err != nil {
				return err
			}
			defer logger.Sync()

			useData := a.v.GetBool("base64")
			results := a.forEach(cmd.Context(), args, func(ctx context.Context, path string) fileResult {
				var texts []string
				var err error
				if useData {
					var data string
					if data, err = readBase64(path); err == nil {
						texts, err = e.ExtractTextFromImageData(ctx, data)
					}
				} else {
					texts, err = e.ExtractTextFromImage(ctx, path)
				}
				if err != nil {
					return fileResult{Source: path, Error: newErrorBody(err)}
				}
				return fileResult{Source: path, Texts: texts}
			})
			return report(cmd.OutOrStdout(), results)
		},
	}
}

func newDetailsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "details <image>...",
		Short: "Print text, confidence and bounding box of each region",
		Long: `Recognize each image and print every detected region with its
confidence and its pixel bounding box (top-left origin).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, logger, err := a.extractor()
			if err != nil {
				return err
			}
			defer logger.Sync()

			useData := a.v.GetBool("base64")
			results := a.forEach(cmd.Context(), args, func(ctx context.Context, path string) fileResult {
				var regions []textextractor.RecognizedText
				var err error
				if useData {
					var data string
					if data, err = readBase64(path); err == nil {
						regions, err = e.ExtractTextFromImageDataWithDetails(ctx, data)
					}
				} else {
					regions, err = e.ExtractTextFromImageWithDetails(ctx, path)
				}
				if err != nil {
					return fileResult{Source: path, Error: newErrorBody(err)}
				}
				if regions == nil {
					regions = []textextractor.RecognizedText{}
				}
				return fileResult{Source: path, Regions: regions}
			})
			return report(cmd.OutOrStdout(), results)
		},
	}
}

func newRecognizeCmd(a *app) *cobra.Command {
	var includeChars, orientation bool

	cmd := &cobra.Command{
		Use:   "recognize <image>",
		Short: "Print the full unified result of one image",
		Long: `Recognize one image and print the complete block, line, word and
character hierarchy, with detected languages when available.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, logger, err := a.extractor()
			if err != nil {
				return err
			}
			defer logger.Sync()

			src := textextractor.FromURI(args[0])
			if a.v.GetBool("base64") {
				data, err := readBase64(args[0])
				if err != nil {
					return err
				}
				src = textextractor.FromBase64(data)
			}

			opts := a.ocrOptions()
			opts.IncludeCharacters = unified.Bool(includeChars)
			opts.DetectOrientation = unified.Bool(orientation)

			res, err := e.Recognize(cmd.Context(), src, opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&includeChars, "characters", false, "include character level entities")
	cmd.Flags().BoolVar(&orientation, "orientation", false, "report line orientation")
	return cmd
}

func newSupportedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "supported",
		Short: "Report whether this build can recognize text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := a.extractor()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"supported": e.IsSupported(),
				"platform":  e.Platform(),
			})
		},
	}
}

// forEach runs fn over args with bounded parallelism, keeping input order.
func (a *app) forEach(ctx context.Context, args []string, fn func(ctx context.Context, path string) fileResult) []fileResult {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]fileResult, len(args))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallel())
	for i, arg := range args {
		i, arg := i, arg
		g.Go(func() error {
			results[i] = fn(gctx, arg)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func readBase64(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ocrerror.NewInvalidImageError("", "file could not be read", err).WithDetail("path", path)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// report prints results and fails when any image failed.
func report(w io.Writer, results []fileResult) error {
	if err := writeJSON(w, results); err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(results))
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
