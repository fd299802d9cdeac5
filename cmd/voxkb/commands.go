package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/voxkb/internal/cli"
	"github.com/hyperjump/voxkb/internal/indexer"
	"github.com/hyperjump/voxkb/internal/llm"
	"github.com/hyperjump/voxkb/internal/models"
	"github.com/hyperjump/voxkb/internal/server"
	"github.com/hyperjump/voxkb/internal/voice"
	"github.com/hyperjump/voxkb/internal/watcher"
)

// withComponents opens the knowledge base for the duration of run.
func withComponents(opts *rootOptions, run func(ctx context.Context, c *components) error) error {
	c, err := openComponents(opts, false)
	if err != nil {
		return err
	}
	defer c.Close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, c)
}

func outputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", "text", "output format: text or json")
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openComponents(opts, true)
			if err != nil {
				return err
			}
			defer c.Close()
			return serve(c)
		},
	}
}

func serve(c *components) error {
	cfg, logger := c.cfg, c.logger

	gen, err := llm.New(&cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("initialize llm: %w", err)
	}
	stt, err := voice.NewSpeechToText(&cfg.Voice.STT, logger)
	if err != nil {
		return fmt.Errorf("initialize speech-to-text: %w", err)
	}
	tts, err := voice.NewTextToSpeech(&cfg.Voice.TTS, logger)
	if err != nil {
		return fmt.Errorf("initialize text-to-speech: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Watch.Enabled {
		inbox := indexer.NewInbox(c.indexer)
		w := watcher.New(cfg.Watch.Directory, inbox.Accept, inbox,
			watcher.WithLogger(logger), watcher.WithDebounce(cfg.Watch.Debounce))
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("start inbox watcher: %w", err)
		}
		defer w.Stop()
		go func() {
			if err := w.Sync(ctx); err != nil {
				logger.Warn("inbox sync failed", zap.Error(err))
			}
		}()
	}

	srv := server.NewServer(c.engine, c.indexer, cfg, logger,
		server.WithGenerator(gen), server.WithVoice(stt, tts))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Add documents to the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(opts, func(ctx context.Context, c *components) error {
				out := cmd.OutOrStdout()
				var failed int
				for _, path := range args {
					var (
						res *models.IngestResult
						err error
					)
					if replace {
						res, err = c.indexer.ReplaceFile(ctx, path)
					} else {
						res, err = c.indexer.IngestFile(ctx, path, "")
					}
					if err != nil {
						failed++
						cli.Warnf(cmd.ErrOrStderr(), "%s: %v", path, err)
						continue
					}
					fmt.Fprintf(out, "%s  %s  %d chunk(s)\n", res.DocID, res.Filename, res.Chunks)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d file(s) failed", failed, len(args))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "replace documents previously ingested under the same filename")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var output string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ingested documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseFormat(output)
			if err != nil {
				return err
			}
			if asJSON {
				format = cli.OutputJSON
			}
			return withComponents(opts, func(ctx context.Context, c *components) error {
				return cli.WriteDocuments(cmd.OutOrStdout(), c.indexer.ListDocuments(), format)
			})
		},
	}
	outputFlag(cmd, &output)
	cmd.Flags().BoolVar(&asJSON, "json", false, "shorthand for --output json")
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	var byFilename bool
	cmd := &cobra.Command{
		Use:   "delete <doc_id>",
		Short: "Delete a document and rebuild the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComponents(opts, func(ctx context.Context, c *components) error {
				if byFilename {
					n, err := c.indexer.DeleteByFilename(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d chunk(s) of %s\n", n, args[0])
					return nil
				}
				if err := c.indexer.DeleteDocument(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Document deleted: %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&byFilename, "filename", false, "treat the argument as a filename and delete every document ingested under it")
	return cmd
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd, "Delete every document in the knowledge base?") {
				return errors.New("aborted")
			}
			return withComponents(opts, func(ctx context.Context, c *components) error {
				deleted, err := c.indexer.ClearAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Knowledge base cleared (%d stored upload(s) removed)\n", len(deleted))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func newRetrieveCmd(opts *rootOptions) *cobra.Command {
	var topK int
	var output string
	cmd := &cobra.Command{
		Use:   "retrieve <query>",
		Short: "Show the chunks the agent would see for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseFormat(output)
			if err != nil {
				return err
			}
			req := models.RetrieveRequest{Query: joinQuery(args), TopK: topK}
			if err := req.Validate(); err != nil {
				return err
			}
			return withComponents(opts, func(ctx context.Context, c *components) error {
				rag, err := c.engine.Retrieve(ctx, req.Query, req.TopK)
				if err != nil {
					return err
				}
				return cli.WriteRetrieval(cmd.OutOrStdout(), req.Query, rag, format)
			})
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of chunks (default from config)")
	outputFlag(cmd, &output)
	return cmd
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question with the configured language model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseFormat(output)
			if err != nil {
				return err
			}
			req := models.AgentQueryRequest{Query: joinQuery(args)}
			if err := req.Validate(); err != nil {
				return err
			}
			return withComponents(opts, func(ctx context.Context, c *components) error {
				gen, err := llm.New(&c.cfg.LLM, c.logger)
				if err != nil {
					return err
				}
				agent := llm.NewAgent(c.engine, gen, llm.NewSystemPrompt(c.cfg.LLM.SystemPrompt),
					c.cfg.KnowledgeBase.AgentTopK, c.cfg.LLM.HistoryTurns, c.logger)
				resp, err := agent.Answer(ctx, &req, uuid.NewString())
				if err != nil {
					return err
				}
				return cli.WriteAnswer(cmd.OutOrStdout(), resp, format)
			})
		},
	}
	outputFlag(cmd, &output)
	return cmd
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show knowledge base status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseFormat(output)
			if err != nil {
				return err
			}
			return withComponents(opts, func(ctx context.Context, c *components) error {
				st := c.indexer.Status(ctx, c.cfg.Storage.DataDir, c.cfg.Storage.UploadsDir)
				return cli.WriteStatus(cmd.OutOrStdout(), st, format)
			})
		},
	}
	outputFlag(cmd, &output)
	return cmd
}

// joinQuery joins positional args so multi-word queries work with or
// without shell quoting.
func joinQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
