package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/harunnryd/vibechat/internal/agent"
	"github.com/harunnryd/vibechat/internal/config"
	"github.com/harunnryd/vibechat/internal/model/contract"

	"github.com/spf13/cobra"
)

type transcript struct {
	RunID      string             `json:"runId"`
	Iterations int                `json:"iterations"`
	Duration   string             `json:"duration"`
	Messages   []contract.Message `json:"messages"`
}

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Run one agent conversation locally",
	Long:  `Runs the tool-calling agent in-process for a single user message and prints the final answer.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loadedCfg, err := loadConfigForCommand(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		loop, err := buildLocalAgent(loadedCfg)
		if err != nil {
			return err
		}

		quiet, _ := cmd.Flags().GetBool("quiet")
		transcriptFlag, _ := cmd.Flags().GetString("transcript")
		transcriptPath, err := config.ExpandPath(transcriptFlag)
		if err != nil {
			return fmt.Errorf("invalid transcript path: %w", err)
		}

		var opts []agent.RunOption
		if !quiet {
			opts = append(opts, agent.WithRunObserver(statusPrinter(cmd.ErrOrStderr())))
		}

		result, err := loop.Run(cmd.Context(), strings.Join(args, " "), opts...)
		if err != nil {
			return fmt.Errorf("chat failed: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), result.Last.Content)

		if transcriptPath != "" {
			if err := saveTranscript(transcriptPath, result); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Transcript written to %s\n", transcriptPath)
		}
		return nil
	},
}

func statusPrinter(w io.Writer) agent.Observer {
	return agent.ObserverFunc(func(s agent.Status) {
		fmt.Fprintf(w, "[%d] %s\n", s.Iteration, s.String())
	})
}

func saveTranscript(path string, result *agent.Result) error {
	data, err := json.MarshalIndent(transcript{
		RunID:      result.RunID,
		Iterations: result.Iterations,
		Duration:   result.Duration.String(),
		Messages:   result.Messages,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	return writeFileLocked(path, append(data, '\n'))
}

func init() {
	chatCmd.Flags().String("transcript", "", "write the full conversation as JSON to this path")
	chatCmd.Flags().BoolP("quiet", "q", false, "do not print agent status updates")
	rootCmd.AddCommand(chatCmd)
}
