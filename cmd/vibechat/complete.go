package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/harunnryd/vibechat/internal/completion"
	"github.com/harunnryd/vibechat/internal/config"
	"github.com/harunnryd/vibechat/internal/suggest"

	"github.com/spf13/cobra"
)

const watchIdleTimeout = 30 * time.Second

var completeCmd = &cobra.Command{
	Use:   "complete [text]",
	Short: "Stream a completion or analysis from a running server",
	Long: `Sends the text to /api/vibe-ask of a running vibechat server and prints the streamed suggestion.
With --watch, every line read from stdin is treated as the new input value; requests are debounced and stale suggestions are dropped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		baseURL, _ := cmd.Flags().GetString("url")
		if baseURL == "" {
			baseURL = loadedCfg.Client.BaseURL
		}
		client := suggest.NewClient(baseURL, nil, loadedCfg.Completion.MinQuestionLength)

		watch, _ := cmd.Flags().GetBool("watch")
		if watch {
			debounce, err := config.DurationOrDefault(loadedCfg.Client.Debounce, config.DefaultClientDebounce)
			if err != nil {
				return fmt.Errorf("parse client debounce: %w", err)
			}
			return watchSuggestions(cmd.Context(), client, debounce, cmd.InOrStdin(), cmd.OutOrStdout())
		}

		if len(args) == 0 {
			return fmt.Errorf("text is required unless --watch is set")
		}
		modeFlag, _ := cmd.Flags().GetString("mode")
		mode, err := completion.ParseMode(modeFlag)
		if err != nil {
			return err
		}
		return streamOnce(cmd.Context(), client, strings.Join(args, " "), mode, cmd.OutOrStdout())
	},
}

func streamOnce(ctx context.Context, client *suggest.Client, text string, mode completion.Mode, out io.Writer) error {
	var streamErr string
	err := client.Stream(ctx, suggest.Request{
		Question: text,
		Position: utf8.RuneCountInString(text),
		Mode:     mode,
	}, func(ev completion.Event) {
		switch ev.Type {
		case completion.EventContent:
			fmt.Fprint(out, ev.Text)
		case completion.EventError:
			streamErr = ev.Message
		}
	})
	fmt.Fprintln(out)
	if err != nil {
		return err
	}
	if streamErr != "" {
		return fmt.Errorf("%s", streamErr)
	}
	return nil
}

// watchSuggestions prints one line per finished suggestion and returns once
// the suggestion for the last input line is done.
func watchSuggestions(ctx context.Context, client *suggest.Client, debounce time.Duration, in io.Reader, out io.Writer) error {
	finished := make(chan suggest.Update, 16)
	s := suggest.NewSuggester(client, suggest.NewDebouncer(debounce), func(u suggest.Update) {
		if !u.Event.Terminal() {
			return
		}
		select {
		case finished <- u:
		default:
		}
	})

	var last string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		last = scanner.Text()
		s.Input(ctx, last)
	}
	if err := scanner.Err(); err != nil {
		s.Dismiss()
		return fmt.Errorf("read input: %w", err)
	}
	if client.TooShort(last) {
		return nil
	}

	timer := time.NewTimer(watchIdleTimeout + debounce)
	defer timer.Stop()
	for {
		select {
		case u := <-finished:
			printUpdate(out, u)
			if u.Input == last {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("no suggestion received for %q", last)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func printUpdate(out io.Writer, u suggest.Update) {
	if u.Event.Type == completion.EventError {
		fmt.Fprintf(out, "%s -> %s\n", u.Input, u.Event.Message)
		return
	}
	fmt.Fprintf(out, "%s -> %s%s\n", u.Input, u.Input, u.Text)
}

func init() {
	completeCmd.Flags().String("mode", string(completion.ModeCompletion), "completion or analysis")
	completeCmd.Flags().String("url", "", "base URL of the vibechat server (default client.base_url)")
	completeCmd.Flags().Bool("watch", false, "read successive inputs from stdin")
	rootCmd.AddCommand(completeCmd)
}
