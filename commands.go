package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-tonescope/cronjobs"
	"go-tonescope/processor"
	"go-tonescope/routes"
	"go-tonescope/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the cache prune schedule",
	RunE:  runServe,
}

var (
	analyzeVideo       string
	analyzeURL         string
	analyzeTextFile    string
	analyzeTitle       string
	analyzeBatchFile   string
	analyzeConcurrency int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one video or text file and print the result as JSON",
	Long: `Analyze one subject and print the AnalysisResult.

  tonescope analyze --video dQw4w9WgXcQ
  tonescope analyze --url https://youtu.be/dQw4w9WgXcQ
  tonescope analyze --url https://news.example/a --text-file article.txt [--title "..."]

Use --text-file - to read text from stdin. With --batch, each non-empty line of the
file is a video URL or id; results and a summary are printed together.`,
	RunE: runAnalyze,
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage stored API keys",
}

var (
	keysOpenAI     string
	keysPerplexity string
)

var keysSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the OpenAI and Perplexity keys (obfuscated) in the local store",
	RunE:  runKeysSet,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the analysis cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [key]",
	Short: "Invalidate one cached analysis, or all of them without a key",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheClear,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop expired cache entries",
	RunE:  runCachePrune,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeVideo, "video", "", "video id")
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "video URL, or the cache key for --text-file")
	analyzeCmd.Flags().StringVar(&analyzeTextFile, "text-file", "", "file with text to analyze (- for stdin)")
	analyzeCmd.Flags().StringVar(&analyzeTitle, "title", "", "optional title passed to the recommendation prompt")
	analyzeCmd.Flags().StringVar(&analyzeBatchFile, "batch", "", "file with one video URL or id per line (- for stdin)")
	analyzeCmd.Flags().IntVar(&analyzeConcurrency, "concurrency", processor.DefaultConcurrency, "parallel analyses for --batch")

	keysSetCmd.Flags().StringVar(&keysOpenAI, "openai", "", "OpenAI API key")
	keysSetCmd.Flags().StringVar(&keysPerplexity, "perplexity", "", "Perplexity API key")
	_ = keysSetCmd.MarkFlagRequired("openai")
	_ = keysSetCmd.MarkFlagRequired("perplexity")
	keysCmd.AddCommand(keysSetCmd)

	cacheCmd.AddCommand(cacheClearCmd, cachePruneCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	jobs, err := cronjobs.InitCronJobs(a.cache, a.cfg.PruneSchedule, a.logger.Named("cron"))
	if err != nil {
		return fmt.Errorf("failed to schedule cache prune: %w", err)
	}
	defer func() { <-jobs.Stop().Done() }()

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           routes.SetupRouter(a.service, a.logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	if analyzeVideo == "" && analyzeURL == "" && analyzeBatchFile == "" {
		return errors.New("one of --video, --url or --batch is required")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	if analyzeBatchFile != "" {
		text, err := readText(cmd.InOrStdin(), analyzeBatchFile)
		if err != nil {
			return err
		}
		results := processor.AnalyzeBatch(ctx, a.service, batchSubjects(text), analyzeConcurrency)
		return enc.Encode(map[string]any{
			"results": results,
			"summary": processor.Summarize(results),
		})
	}

	var result types.AnalysisResult
	if analyzeTextFile != "" {
		text, err := readText(cmd.InOrStdin(), analyzeTextFile)
		if err != nil {
			return err
		}
		result, err = a.service.AnalyzeText(ctx, analyzeURL, text, analyzeTitle)
		if err != nil {
			return err
		}
	} else {
		result, err = a.service.AnalyzeVideo(ctx, analyzeVideo, analyzeURL)
		if err != nil {
			return err
		}
	}

	return enc.Encode(result)
}

// batchSubjects reads one subject per line. Lines that look like URLs are passed
// as such; anything else is taken as a video id.
func batchSubjects(text string) []types.MessagePayload {
	var subjects []types.MessagePayload
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, "://") {
			subjects = append(subjects, types.MessagePayload{URL: line})
		} else {
			subjects = append(subjects, types.MessagePayload{VideoID: line})
		}
	}
	return subjects
}

func readText(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(b), nil
}

func runKeysSet(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.creds.Update(cmd.Context(), keysOpenAI, keysPerplexity); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "API keys stored")
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	if len(args) == 1 {
		if err := a.cache.Invalidate(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "invalidated %s\n", args[0])
		return nil
	}
	if err := a.cache.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
	return nil
}

func runCachePrune(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.cache.Prune(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", n)
	return nil
}
