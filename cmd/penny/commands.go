package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"penny/internal/session"
)

func newController(cfg Config, out io.Writer) (*session.Controller, *session.HTTPGateway) {
	var opts []session.ClientOption
	if cfg.Token != "" {
		opts = append(opts, session.WithToken(cfg.Token))
	}
	gw := session.NewHTTPGateway(cfg.Server, opts...)
	c := session.NewController(gw, session.NewTranscript(printer(out)), session.WithTurnTimeout(cfg.Timeout))
	return c, gw
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func startSession(ctx context.Context, gw *session.HTTPGateway, c *session.Controller, email string) error {
	info, err := gw.StartSession(ctx, email)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	if info.Message != "" {
		c.Announce(info.Message)
	}
	return nil
}

func readUpload(cfg Config, documentPath, selfiePath string) (session.UploadFiles, error) {
	doc, err := os.ReadFile(documentPath)
	if err != nil {
		return session.UploadFiles{}, fmt.Errorf("read document: %w", err)
	}
	selfie, err := os.ReadFile(selfiePath)
	if err != nil {
		return session.UploadFiles{}, fmt.Errorf("read selfie: %w", err)
	}
	return session.UploadFiles{
		Document:     doc,
		DocumentName: filepath.Base(documentPath),
		Selfie:       selfie,
		SelfieName:   filepath.Base(selfiePath),
		FirstName:    cfg.FirstName,
		LastName:     cfg.LastName,
		AccountType:  cfg.AccountType,
	}, nil
}

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to Penny interactively",
		Long: `Start an interactive conversation. Type a question and press enter.

Commands inside the chat:
  /upload <document> <selfie>   verify your identity
  /quit                         leave the chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return runChat(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("email", "", "email address used to open a session")
	declaredFlags(cmd)
	return cmd
}

// declaredFlags adds the details sent with an upload.
func declaredFlags(cmd *cobra.Command) {
	cmd.Flags().String("first-name", "", "first name as printed on your ID")
	cmd.Flags().String("last-name", "", "last name as printed on your ID")
	cmd.Flags().String("account-type", "", "account to open: checking or savings")
}

func runChat(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	c, gw := newController(cfg, out)

	greeting, err := gw.Greeting(ctx)
	if err != nil {
		return fmt.Errorf("reach server: %w", err)
	}
	c.Announce(greeting)
	if cfg.Email != "" {
		if err := startSession(ctx, gw, c, cfg.Email); err != nil {
			return err
		}
	}

	lines := bufio.NewScanner(in)
	for lines.Scan() {
		line := strings.TrimSpace(lines.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			c.Wait()
			return nil
		case strings.HasPrefix(line, "/upload"):
			fields := strings.Fields(line)
			if len(fields) != 3 {
				fmt.Fprintln(out, "usage: /upload <document> <selfie>")
				continue
			}
			files, err := readUpload(cfg, fields[1], fields[2])
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			c.SubmitUpload(ctx, files)
		default:
			if err := c.SubmitQuestion(ctx, line); err != nil && !errors.Is(err, session.ErrEmptyQuestion) {
				return err
			}
		}
	}
	c.Wait()
	return lines.Err()
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask Penny one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			c, _ := newController(cfg, cmd.OutOrStdout())
			_, err = c.Ask(ctx, strings.Join(args, " "))
			return err
		},
	}
}

func uploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Verify your identity with an ID document and a selfie",
		Long: `Upload a photo of your ID document and a selfie. A session is opened with
--email unless a token is already configured.

Examples:
  penny upload --email jane@example.com --document id.jpg --selfie me.jpg
  penny upload --email jane@example.com --first-name Jane --last-name Doe \
    --account-type savings --document id.jpg --selfie me.jpg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			documentPath, _ := cmd.Flags().GetString("document")
			selfiePath, _ := cmd.Flags().GetString("selfie")
			files, err := readUpload(cfg, documentPath, selfiePath)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			c, gw := newController(cfg, cmd.OutOrStdout())
			if gw.Token() == "" {
				if cfg.Email == "" {
					return errors.New("--email is required to open a session")
				}
				if err := startSession(ctx, gw, c, cfg.Email); err != nil {
					return err
				}
			}
			c.Upload(ctx, files)
			return nil
		},
	}
	cmd.Flags().String("email", "", "email address used to open a session")
	cmd.Flags().String("document", "", "path to the ID document image")
	cmd.Flags().String("selfie", "", "path to the selfie image")
	declaredFlags(cmd)
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("selfie")
	return cmd
}

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Open a session and print its token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Email == "" {
				return errors.New("--email is required")
			}
			ctx, cancel := signalContext()
			defer cancel()

			gw := session.NewHTTPGateway(cfg.Server)
			info, err := gw.StartSession(ctx, cfg.Email)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, info.Message)
			fmt.Fprintf(out, "export PENNY_TOKEN=%s\n", gw.Token())
			return nil
		},
	}
	cmd.Flags().String("email", "", "email address")
	return cmd
}
