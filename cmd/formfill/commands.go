package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pdf-form-filler/internal/config"
	"pdf-form-filler/internal/domain"
	"pdf-form-filler/internal/preflight"
	"pdf-form-filler/internal/ui"
	"pdf-form-filler/internal/usecase"
)

const defaultSessionLimit = 20

func newFillCmd() *cobra.Command {
	var (
		answersPath string
		check       bool
		noDownload  bool
	)
	cmd := &cobra.Command{
		Use:   "fill [file.pdf]",
		Short: "Upload a PDF form and fill it",
		Long: `Uploads a PDF and asks for each field until the form is complete.
With --answers the questions are answered from a YAML file instead:

  default: "N/A"
  answers:
    applicant_name: Jane Doe
    agree_terms: "yes"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd.Flags())
			if err != nil {
				return err
			}
			start := usecase.Start{}
			if len(args) == 1 {
				start.Path = args[0]
			}
			if answersPath == "" {
				return a.interactive(cmd, start, check)
			}
			if start.Path == "" {
				return domain.NewValidationError("fill", "a PDF file is required with --answers")
			}
			answers, err := config.LoadAnswers(answersPath)
			if err != nil {
				return err
			}
			return a.scripted(cmd, start, answers, check, !noDownload)
		},
	}
	cmd.Flags().StringVar(&answersPath, "answers", "", "YAML file of scripted answers")
	cmd.Flags().BoolVar(&check, "preflight", false, "Check locally that the PDF has form fields before uploading")
	cmd.Flags().BoolVar(&noDownload, "no-download", false, "With --answers, do not download the completed form")
	return cmd
}

func newResumeCmd() *cobra.Command {
	var filename string
	cmd := &cobra.Command{
		Use:   "resume <session-id>",
		Short: "Continue filling an existing session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd.Flags())
			if err != nil {
				return err
			}
			if filename == "" {
				filename = a.bookmarkedFilename(cmd, args[0])
			}
			return a.interactive(cmd, usecase.Start{SessionID: args[0], Filename: filename}, false)
		},
	}
	cmd.Flags().StringVar(&filename, "filename", "", "Original file name, used to name the download")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show a session's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd.Flags())
			if err != nil {
				return err
			}
			st, err := a.client.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderStatus(st))
			return nil
		},
	}
}

func newFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields <session-id>",
		Short: "List a session's fields and their values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd.Flags())
			if err != nil {
				return err
			}
			fields, err := a.client.Fields(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), ui.RenderFields(fields))
			return nil
		},
	}
}

func newDownloadCmd() *cobra.Command {
	var filename string
	cmd := &cobra.Command{
		Use:   "download <session-id>",
		Short: "Download a completed form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd.Flags())
			if err != nil {
				return err
			}
			if filename == "" {
				filename = a.bookmarkedFilename(cmd, args[0])
			}
			saver := usecase.DirSaver{Dir: a.cfg.OutputDir}
			path, err := saver.Save(usecase.SuggestedFilename(filename), func(w io.Writer) error {
				_, err := a.client.Download(cmd.Context(), args[0], w)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Styles.Success.Render(ui.IconSuccess+" Saved "+path))
			return nil
		},
	}
	cmd.Flags().StringVar(&filename, "filename", "", "Original file name, used to name the download")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the form service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cmd.Flags())
			if err != nil {
				return err
			}
			h, err := a.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderHealth(h))
			return nil
		},
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.pdf>",
		Short: "List the fillable fields of a local PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return domain.NewValidationError("inspect", fmt.Sprintf("Could not open %s", args[0]))
			}
			defer func() { _ = f.Close() }()

			fields, err := preflight.Inspect(f)
			if err != nil {
				return &domain.Error{Kind: domain.KindValidation, Op: "inspect", Message: preflight.MessageNotPDF, Err: err}
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, ui.RenderInspection(filepath.Base(args[0]), fields))
			if len(fields) > 0 {
				fmt.Fprintln(out, ui.Styles.Muted.Render(preflight.Summary(fields)))
			}
			return nil
		},
	}
}

func newSessionsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List bookmarked sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cmd.Flags())
			if err != nil {
				return err
			}
			if a.store == nil {
				return domain.NewValidationError("sessions", "session bookmarks need --state-table")
			}
			bookmarks, err := a.store.ListBookmarks(cmd.Context(), a.cfg.Owner, limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), ui.RenderBookmarks(bookmarks))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", defaultSessionLimit, "Maximum number of sessions to list")
	return cmd
}

func (a *app) wizardOptions(observe func(usecase.Event)) []usecase.WizardOption {
	opts := []usecase.WizardOption{
		usecase.WithLogger(a.logger),
		usecase.WithSaver(usecase.DirSaver{Dir: a.cfg.OutputDir}),
	}
	if observe != nil {
		opts = append(opts, usecase.WithEventObserver(observe))
	}
	if a.store != nil {
		opts = append(opts, usecase.WithBookmarks(a.store, a.cfg.Owner))
	}
	return opts
}

func (a *app) runnerOptions(check bool) []usecase.RunnerOption {
	opts := []usecase.RunnerOption{usecase.WithRunnerLogger(a.logger)}
	if check {
		opts = append(opts, usecase.WithPreflight(preflight.CheckFile))
	}
	return opts
}

func (a *app) interactive(cmd *cobra.Command, start usecase.Start, check bool) error {
	term := ui.NewTerminal(ui.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()))
	w, err := usecase.NewWizard(a.client, a.wizardOptions(term.Observe)...)
	if err != nil {
		return err
	}
	r, err := usecase.NewRunner(w, term, a.runnerOptions(check)...)
	if err != nil {
		return err
	}
	res, err := r.Run(cmd.Context(), start)
	if res.DownloadURL != "" {
		fmt.Fprintln(cmd.OutOrStdout(), ui.Styles.Muted.Render("Download URL: "+res.DownloadURL))
	}
	return err
}

func (a *app) scripted(cmd *cobra.Command, start usecase.Start, answers config.Answers, check, download bool) error {
	surface := usecase.NewScriptedSurface(answers.Fields, answers.Default, download)
	w, err := usecase.NewWizard(a.client, a.wizardOptions(nil)...)
	if err != nil {
		return err
	}
	r, err := usecase.NewRunner(w, surface, a.runnerOptions(check)...)
	if err != nil {
		return err
	}
	res, runErr := r.Run(cmd.Context(), start)

	out := cmd.OutOrStdout()
	fmt.Fprint(out, ui.RenderTranscript(res.Transcript))
	if runErr != nil {
		return runErr
	}
	c := w.Completion()
	if c != nil && c.Ready() {
		fmt.Fprintln(out, ui.RenderCompletion(res.Session, c.Result(), res.DownloadURL))
	}
	if res.SavedPath != "" {
		fmt.Fprintln(out, ui.Styles.Success.Render(ui.IconSuccess+" Saved "+res.SavedPath))
	}
	return nil
}

// bookmarkedFilename is best effort: without a bookmark the download falls
// back to the generic name.
func (a *app) bookmarkedFilename(cmd *cobra.Command, sessionID string) string {
	if a.store == nil {
		return ""
	}
	b, found, err := a.store.GetBookmark(cmd.Context(), a.cfg.Owner, sessionID)
	if err != nil {
		a.logger.Warn("bookmark lookup failed", "session_id", sessionID, "err", err)
		return ""
	}
	if !found {
		return ""
	}
	return b.Filename
}
